package main

import (
	"context"

	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/service"
	"github.com/sourcepawn-studio/spls/internal/ui"
	"github.com/sourcepawn-studio/spls/internal/vfs"
)

// printDoctorReport prints the project graph the workspace currently
// resolves to, plus the diagnostics a goto-definition at offset 0 of each
// member file of each project happens to surface — the same approximation
// publishDiagnostics in server.go uses, since nothing under internal/query
// or internal/resolver exposes a true "every diagnostic in this file" sweep
// (SPEC_FULL.md §7's diagnostics are a byproduct of goto_definition, not
// their own query).
func printDoctorReport(ctx context.Context, svc *service.Service, fs vfs.FS) error {
	report := ui.NewReport()
	report.PrintHeader(version)

	projects, err := svc.ProjectGraph(ctx)
	if err != nil {
		report.PrintError(err.Error())
		return err
	}

	for i, proj := range projects {
		rootPath, _ := fs.Path(proj.Root)
		memberPaths := make([]string, 0, len(proj.Files))
		for _, f := range proj.Files {
			if p, ok := fs.Path(f); ok {
				memberPaths = append(memberPaths, p)
			}
		}
		report.PrintProject(i, rootPath, memberPaths)

		for _, f := range proj.Files {
			printFileDiagnostics(ctx, svc, fs, report, f)
		}
	}

	report.PrintSummary()
	return nil
}

func printFileDiagnostics(ctx context.Context, svc *service.Service, fs vfs.FS, report *ui.Report, file ids.FileID) {
	path, ok := fs.Path(file)
	if !ok {
		return
	}
	_, diags, err := svc.GotoDefinition(ctx, ids.FilePosition{File: file, Offset: 0})
	if err != nil {
		return
	}
	for _, d := range diags {
		report.PrintDiagnostic(path, ui.SeverityWarning, diagnosticMessage(d))
	}
}
