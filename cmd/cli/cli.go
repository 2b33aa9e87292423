package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli-altsrc/v3"
	toml "github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/cdacos/sql-info-streamer/internal/config"
	"github.com/cdacos/sql-info-streamer/internal/db"
	"github.com/cdacos/sql-info-streamer/internal/events"
	"github.com/cdacos/sql-info-streamer/internal/export"
)

const (
	exitOK        = 0
	exitError     = 1
	exitCancelled = 130
)

// Run dispatches the command line and maps the outcome to the process
// exit code: 0 on success, 1 on any error, 130 on user cancellation.
func Run(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(cfg).Run(ctx, os.Args); err != nil {
		var cancelErr *db.CancellationError
		if errors.As(err, &cancelErr) || errors.Is(err, context.Canceled) {
			return exitCancelled
		}
		slog.Error("Command failed", "error", err)
		return exitError
	}

	return exitOK
}

func newCommand(cfg *config.Config) *cli.Command {
	var (
		configFile    string
		connection    string
		timeout       time.Duration
		statementFile string
	)

	resolveConnection := func() (string, error) {
		if connection != "" {
			return connection, nil
		}
		if cfg.Connection.DSN != "" || cfg.Connection.Host != "" {
			return cfg.Connection.ResolveDSN(), nil
		}
		return "", fmt.Errorf("no connection configured: use --connection, SQLSTREAM_CONNECTION_STRING or the config file")
	}

	return &cli.Command{
		Name:        "sql-info-streamer",
		Usage:       "Execute a SQL statement and stream its progress as JSON lines",
		Description: "Events (server messages, rows, output parameters, terminal status) are written to stdout, one JSON object per line, as they happen.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Value:       DefaultConfigPath(),
				Usage:       "path to the TOML config file",
				Destination: &configFile,
			},
			&cli.StringFlag{
				Name:        "connection",
				Aliases:     []string{"c"},
				Usage:       "connection string (ADO-style key=value pairs)",
				Destination: &connection,
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("SQLSTREAM_CONNECTION_STRING"),
					toml.TOML("connection.dsn", altsrc.NewStringPtrSourcer(&configFile)),
				),
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Aliases:     []string{"t"},
				Value:       cfg.StatementTimeout(),
				Usage:       "statement timeout (0 = unbounded)",
				Destination: &timeout,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Execute a statement from the argument, --file, or stdin",
				ArgsUsage: "[statement]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "file",
						Aliases:     []string{"f"},
						Usage:       "read the statement from a file",
						Destination: &statementFile,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					statement, err := readStatement(c.Args().Get(0), statementFile, os.Stdin)
					if err != nil {
						return err
					}

					dsn, err := resolveConnection()
					if err != nil {
						return err
					}

					session := db.NewSession(dsn, timeout, events.NewEmitter(os.Stdout))
					return session.Run(ctx, statement)
				},
			},
			{
				Name:      "export",
				Usage:     "Convert captured event streams to xlsx workbooks",
				ArgsUsage: "capture [capture...] output.xlsx",
				Action: func(ctx context.Context, c *cli.Command) error {
					args := c.Args().Slice()
					if len(args) < 2 {
						return fmt.Errorf("export needs at least one capture file and an output path")
					}

					output := args[len(args)-1]
					if !strings.EqualFold(filepath.Ext(output), ".xlsx") {
						return fmt.Errorf("%q is not a supported output format (only xlsx)", filepath.Ext(output))
					}

					return export.Excel(ctx, args[:len(args)-1], output, int(cfg.MaxWorkers))
				},
			},
			{
				Name:  "check",
				Usage: "Verify database connectivity",
				Action: func(ctx context.Context, c *cli.Command) error {
					dsn, err := resolveConnection()
					if err != nil {
						return err
					}

					return db.Check(ctx, dsn, cfg.MaxRetries)
				},
			},
		},
	}
}

// readStatement resolves the statement text: literal argument first,
// then --file, then stdin.
func readStatement(arg, path string, stdin io.Reader) (string, error) {
	var statement string

	switch {
	case arg != "":
		statement = arg
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("error reading statement file: %w", err)
		}
		statement = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("error reading statement from stdin: %w", err)
		}
		statement = string(data)
	}

	if strings.TrimSpace(statement) == "" {
		return "", fmt.Errorf("no statement provided")
	}

	return statement, nil
}

func DefaultConfigPath() string {
	if path := os.Getenv("SQLSTREAM_CONFIG"); path != "" {
		return path
	}
	return "./config/config.toml"
}
