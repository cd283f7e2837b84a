// Command precis is a terminal client for an arXiv summarization backend:
// search, document uploads with duplicate detection, and summary tracking.
// `precis mcp` serves the same operations over MCP stdio instead.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/scrivano/precis"
	"github.com/scrivano/precis/artifact"
	"github.com/scrivano/precis/config"
	"github.com/scrivano/precis/history"
	"github.com/scrivano/precis/objectstore"
	"github.com/scrivano/precis/papers"
	"github.com/scrivano/precis/tui"
)

func main() {
	configPath := flag.String("config", env("PRECIS_CONFIG", ""), "YAML config file (optional)")
	paperID := flag.String("paper", "", "open this paper's detail view on startup")
	flag.Parse()
	mcpMode := flag.Arg(0) == "mcp"

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging. The TUI owns the terminal, so without a log_file its logs are
	// dropped; MCP mode talks protocol on stdout and logs to stderr.
	logOut, closeLog, err := logDestination(cfg.LogFile, mcpMode)
	if err != nil {
		slog.Error("log file", "error", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Backend client.
	client, err := papers.New(papers.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("papers client", "error", err)
		os.Exit(1)
	}

	// Upload ledger.
	ledger, err := history.Open(history.Config{
		Path:       cfg.History.Path,
		MaxRecords: cfg.History.MaxRecords,
		Logger:     logger,
	})
	if err != nil {
		slog.Error("history store", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	// Artifact store.
	objects, err := objectstore.New(objectstore.Config{
		Kind: objectstore.Kind(cfg.Artifact.Backend),
		HTTP: objectstore.HTTPConfig{
			BaseURL: cfg.Artifact.BaseURL,
			Timeout: cfg.Artifact.Timeout,
		},
		S3: objectstore.S3Config{
			Bucket:         cfg.Artifact.S3.Bucket,
			Region:         cfg.Artifact.S3.Region,
			Endpoint:       cfg.Artifact.S3.Endpoint,
			AccessKey:      cfg.Artifact.S3.AccessKey,
			SecretKey:      cfg.Artifact.S3.SecretKey,
			ForcePathStyle: cfg.Artifact.S3.ForcePathStyle,
			PublicBaseURL:  cfg.Artifact.S3.PublicBaseURL,
		},
		Logger: logger,
	})
	if err != nil {
		slog.Error("object store", "error", err)
		os.Exit(1)
	}

	builder := artifact.New(artifact.Config{
		MaxFileSize: cfg.MaxFileBytes(),
		Logger:      logger,
	})

	// Service. The TUI consumes events through a buffered channel; a full
	// buffer drops rather than blocking a poller.
	opts := []precis.Option{precis.WithLogger(logger)}
	var events chan precis.Event
	if !mcpMode {
		events = make(chan precis.Event, 64)
		opts = append(opts, precis.WithEvents(func(ev precis.Event) {
			select {
			case events <- ev:
			default:
			}
		}))
	}
	svc, err := precis.New(precis.Config{
		Papers:    client,
		Artifacts: builder,
		History:   ledger,
		Objects:   objects,
		Poll: precis.PollConfig{
			Interval:    cfg.Poll.Interval,
			MaxAttempts: cfg.Poll.MaxAttempts,
			MaxBackoff:  cfg.Poll.MaxBackoff,
		},
		DedupStrict: !cfg.Dedup.FailOpen,
	}, opts...)
	if err != nil {
		slog.Error("service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	// Warn-only probe; the backend may come up later.
	probeCtx, probeCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := client.Health(probeCtx); err != nil {
		slog.Warn("backend unreachable", "url", cfg.API.BaseURL, "error", err)
	}
	probeCancel()

	if mcpMode {
		runMCP(ctx, svc)
		return
	}

	model := tui.New(tui.Config{
		Service:      svc,
		Events:       events,
		InitialPaper: *paperID,
		Logger:       logger,
	})
	slog.Info("precis starting", "api", cfg.API.BaseURL)
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && ctx.Err() == nil {
		slog.Error("tui", "error", err)
		os.Exit(1)
	}
}

func runMCP(ctx context.Context, svc *precis.Service) {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "precis",
		Version: "1.0.0",
	}, nil)
	svc.RegisterMCP(srv)
	slog.Info("mcp server starting", "transport", "stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		slog.Error("mcp server", "error", err)
		os.Exit(1)
	}
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func logDestination(path string, mcpMode bool) (io.Writer, func() error, error) {
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
	if mcpMode {
		return os.Stderr, nil, nil
	}
	return io.Discard, nil, nil
}
