package service

import (
	"context"

	"github.com/sourcepawn-studio/spls/internal/project"
)

// ProjectGraph implements spec.md §4.9's project_graph(): every file the VFS
// currently knows about, partitioned into include-graph connected components
// each with a resolved root (spec.md §4.6). Exposed on Service, rather than
// only on query.Snapshot, so a transport-side diagnostic tool (cmd/
// sourcepawn-lsp's doctor subcommand) can inspect the whole workspace
// without constructing a Snapshot itself.
func (svc *Service) ProjectGraph(ctx context.Context) ([]project.Project, error) {
	s := svc.db.Snapshot(ctx)
	return s.ProjectGraph()
}
