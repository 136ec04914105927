// Package cli implements the command-line interface. Commands talk to the
// configured backends directly, without going through the HTTP API.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/akulikov/driveguard/internal/logging"
	"github.com/akulikov/driveguard/internal/server"
	"github.com/akulikov/driveguard/internal/server/config"
	"github.com/akulikov/driveguard/internal/server/services"
)

type App struct {
	config   *config.Config
	verifier *services.Verifier
	logger   logging.Logger
	out      io.Writer
	closers  []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	// CLI output belongs to the command results; diagnostics go to stderr
	// and only when something is wrong.
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	verifier, closers, err := server.NewVerifier(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		config:   cfg,
		verifier: verifier,
		logger:   logger,
		out:      os.Stdout,
		closers:  closers,
	}, nil
}

// Close releases backend resources.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "close error: %v\n", err)
		}
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, `Usage: driveguard <command> [arguments]

Commands:
  upload <path> [name]   upload a file and record its digest
  verify <name>          re-download a file and check its integrity
  verify-all             verify every active file
  list                   list active files
  search <query>         search active files by name or digest
  stats                  show storage statistics
  delete <name>          delete a file and its metadata
  token [client]         mint an API token for the HTTP server`)
}

// Run dispatches the subcommand in args. It returns an error only for
// operational failures; usage problems are printed and return nil.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return nil
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "upload":
		if len(rest) < 1 {
			fmt.Fprintln(a.out, "usage: driveguard upload <path> [name]")
			return nil
		}
		name := ""
		if len(rest) > 1 {
			name = rest[1]
		}
		return a.Upload(ctx, rest[0], name)

	case "verify":
		if len(rest) != 1 {
			fmt.Fprintln(a.out, "usage: driveguard verify <name>")
			return nil
		}
		return a.Verify(ctx, rest[0])

	case "verify-all":
		return a.VerifyAll(ctx)

	case "l", "list":
		return a.List(ctx)

	case "search":
		if len(rest) != 1 {
			fmt.Fprintln(a.out, "usage: driveguard search <query>")
			return nil
		}
		return a.Search(ctx, rest[0])

	case "stats":
		return a.Stats(ctx)

	case "delete":
		if len(rest) != 1 {
			fmt.Fprintln(a.out, "usage: driveguard delete <name>")
			return nil
		}
		return a.Delete(ctx, rest[0])

	case "token":
		client := "cli"
		if len(rest) > 0 {
			client = rest[0]
		}
		return a.Token(client)

	case "help", "":
		a.usage()
		return nil

	default:
		fmt.Fprintln(a.out, "Unknown command:", cmd)
		a.usage()
		return nil
	}
}
