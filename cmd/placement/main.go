// Package main is the placement-hub command line tool. It wires the
// placement workflow to the configured stores and runs one operation per
// invocation, printing the result as JSON. Without DATABASE_URL the state is
// kept in the STORE_PATH file between invocations.
//
//	placement migrate | rollback | status
//	placement import-users -students students.csv -staff staff.csv
//	placement login -id U2310001A -password password
//	placement register-rep -name Ann -email ann@acme.com -company Acme
//	placement review-rep -staff sng001 -rep ann@acme.com -decision approve
//	placement post -rep ann@acme.com -title "Data Intern" -major CSC -open 2024-06-01 -close 2024-06-30
//	placement review-internship -staff sng001 -internship <id> -decision approve
//	placement search -actor U2310001A [-status APPROVED] [-major CSC] [-level BASIC] [-company Acme]
//	placement eligible -student U2310001A [-date 2024-06-15]
//	placement apply -student U2310001A -internship <id>
//	placement applications -student U2310001A
//	placement review-application -rep ann@acme.com -application <id> -decision approve
//	placement accept -student U2310001A -application <id>
//	placement request-withdrawal -student U2310001A -application <id>
//	placement resolve-withdrawal -staff sng001 -application <id> -decision approve
//	placement withdrawals -staff sng001
//	placement report -staff sng001 -kind popularity|companies|slots
//	placement features
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/campus-careers/placement-hub/config"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

var errUsage = errors.New("usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
			os.Exit(2)
		}
		if kind := shared.KindOf(err); kind != "Internal" {
			fmt.Fprintf(os.Stderr, "error [%s]: %v\n", kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	name, rest := args[0], args[1:]

	cmd, ok := subcommands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	requestID := uuid.NewString()
	log := setupLogger(cfg).With("request_id", requestID)
	log.Debug("starting placement-hub",
		"command", name,
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. WIRING
	// ─────────────────────────────────────────────────────────────────────────
	a := &app{cfg: cfg, log: log}
	if !cmd.standalone {
		if a, err = newApp(ctx, cfg, log, cmd.manageSchema); err != nil {
			return err
		}
		defer a.close()
	}
	a.requestID = requestID

	// ─────────────────────────────────────────────────────────────────────────
	// 3. COMMAND
	// ─────────────────────────────────────────────────────────────────────────
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	result, err := cmd.run(ctx, a, fs, rest)
	if err != nil {
		return err
	}
	a.wait()
	if err := a.persist(ctx); err != nil {
		return err
	}
	a.writeMetrics()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// setupLogger configures structured logging. Logs go to stderr so stdout
// carries only the JSON result.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Observability.LogLevel)}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	format := cfg.Observability.LogFormat
	if format == "json" || (format == "" && cfg.IsProduction()) {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log := slog.New(handler).With("app", cfg.App.Name)
	slog.SetDefault(log)
	return log
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: placement <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range subcommandOrder {
		fmt.Fprintf(w, "  %-19s %s\n", name, subcommands[name].summary)
	}
}
