// Command sourcepawn-lsp is the stdio JSON-RPC 2.0 binary wiring the
// incremental cross-file analysis engine to an editor, grounded on
// cmd/dingo-lsp/main.go's stdio transport wiring and cmd/dingo/main.go's
// cobra subcommand structure (SPEC_FULL.md §2's transport layer).
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.lsp.dev/jsonrpc2"

	"github.com/sourcepawn-studio/spls/internal/config"
	"github.com/sourcepawn-studio/spls/internal/logging"
	"github.com/sourcepawn-studio/spls/internal/service"
	"github.com/sourcepawn-studio/spls/internal/vfs"
)

const version = "0.1.0"

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:     "sourcepawn-lsp",
		Short:   "A language server for SourcePawn",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(doctorCmd(&logLevel))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runServe starts the stdio JSON-RPC server: a fresh in-memory VFS and
// Service, a Server dispatching onto it, and a connection read from
// stdin/written to stdout, grounded on cmd/dingo-lsp/main.go's
// stdinoutCloser/jsonrpc2.NewStream/NewConn/conn.Go/<-conn.Done() sequence.
// Unlike the teacher, there is no downstream process to find or proxy to:
// this server answers every request itself.
func runServe(logLevel string) error {
	logger, err := logging.New(os.Stderr, logLevel, "color")
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Sugar().Infof("starting sourcepawn-lsp %s (log level: %s)", version, logLevel)

	fs := vfs.NewMemFS()
	svc := service.New(fs, config.DefaultConfig())
	srv := NewServer(svc, fs, logger)

	rwc := &stdinoutCloser{stdin: os.Stdin, stdout: os.Stdout}
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.SetConn(conn)
	conn.Go(ctx, srv.Handler())

	<-conn.Done()
	logger.Sugar().Infof("connection closed")
	return nil
}

// stdinoutCloser wraps stdin/stdout as the io.ReadWriteCloser jsonrpc2.NewStream
// wants, grounded on cmd/dingo-lsp/main.go's stdinoutCloser — simplified by
// dropping its per-call debug logging, which that file added while chasing a
// specific race and which would otherwise double-log every byte here.
type stdinoutCloser struct {
	stdin  *os.File
	stdout *os.File
}

func (s *stdinoutCloser) Read(p []byte) (int, error)  { return s.stdin.Read(p) }
func (s *stdinoutCloser) Write(p []byte) (int, error) { return s.stdout.Write(p) }
func (s *stdinoutCloser) Close() error                { return nil }

var _ io.ReadWriteCloser = (*stdinoutCloser)(nil)

func doctorCmd(logLevel *string) *cobra.Command {
	var (
		include  []string
		mainPath string
	)

	cmd := &cobra.Command{
		Use:   "doctor [workspace]",
		Short: "Scan a workspace and print its project graph and diagnostics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runDoctor(root, include, mainPath, *logLevel)
		},
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "additional include search directories")
	cmd.Flags().StringVar(&mainPath, "main", "", "override root-selection and treat this file as the project entry point")

	return cmd
}

func runDoctor(root string, include []string, mainPath string, logLevel string) error {
	logger, err := logging.New(os.Stderr, logLevel, "color")
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(root, &config.Config{IncludesDirectories: include, MainPath: mainPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		return err
	}

	fs := vfs.NewMemFS()
	svc := service.New(fs, cfg)
	srv := NewServer(svc, fs, logger)

	ctx := context.Background()
	scanWorkspace(ctx, srv, root, cfg.IncludesDirectories, logger)

	return printDoctorReport(ctx, svc, fs)
}
