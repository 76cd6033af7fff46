// Package main provides the flowtrace CLI application
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	memory "github.com/flowtrace/flowtrace/internal/adapters/repository/memory"
	"github.com/flowtrace/flowtrace/internal/adapters/repository/postgres"
	"github.com/flowtrace/flowtrace/internal/adapters/repository/sqlite"
	"github.com/flowtrace/flowtrace/internal/app/dto"
	"github.com/flowtrace/flowtrace/internal/app/replay"
	"github.com/flowtrace/flowtrace/internal/core/annotate"
	"github.com/flowtrace/flowtrace/internal/core/archive"
	"github.com/flowtrace/flowtrace/internal/ctxlog"
	"github.com/flowtrace/flowtrace/internal/infrastructure/config"
	"github.com/flowtrace/flowtrace/pkg/graphml"
	"github.com/flowtrace/flowtrace/pkg/serialization"
)

// Version information set during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return nil
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(out, "flowtrace %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		return nil
	case "replay":
		return runReplay(args[1:], out)
	default:
		usage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(out io.Writer) {
	fmt.Fprintln(out, "flowtrace - object flow graph capture and replay")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  version                      print version information")
	fmt.Fprintln(out, "  replay [flags] <events.json> rebuild a flow graph from a recording")
}

func runReplay(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	flatten := fs.Bool("flatten", false, "inline nested call graphs")
	output := fs.String("o", "", "write the graph as GraphML to this file")
	doArchive := fs.Bool("archive", false, "persist the replayed graph")
	annotations := fs.String("annotations", "", "load annotation documents from this JSON file")
	simplify := fs.Bool("simplify", false, "keep only the most recent annotated output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("replay: expected one events file, got %d arguments", fs.NArg())
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	db := annotate.NewDB()
	if *annotations != "" {
		if err := db.LoadFile(*annotations); err != nil {
			return fmt.Errorf("loading annotations: %w", err)
		}
	}

	req, err := readRequest(fs.Arg(0))
	if err != nil {
		return err
	}
	req.Flatten = *flatten
	req.Archive = *doArchive

	saver, closeSaver, err := newArchiveSaver(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSaver()

	svc := replay.NewService(db, saver)
	resp, err := svc.Replay(ctx, req)
	if err != nil {
		return err
	}
	logger.Info("replay complete",
		"session_id", resp.SessionID,
		"events", resp.Events,
		"nodes", resp.Nodes,
		"edges", resp.Edges,
		"duration", resp.Duration)
	if resp.ArchiveID != "" {
		logger.Info("graph archived", "archive_id", resp.ArchiveID)
	}

	if *output != "" {
		if err := writeGraphML(*output, resp, *simplify); err != nil {
			return err
		}
		logger.Info("graph written", "path", *output)
	}
	return nil
}

// newArchiveSaver builds the archive backend selected by the configuration.
// The returned cleanup releases the backing connection and is safe to call
// for the memory driver too.
func newArchiveSaver(ctx context.Context, cfg *config.Config) (archive.Saver, func(), error) {
	serializer := serialization.New(serialization.Config{
		Codec:       serialization.NewCodec(cfg.Codec.Codec),
		Compression: serialization.CompressionType(cfg.Codec.Compression),
	})
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		saver := sqlite.NewArchiveSaver(db, serializer)
		if err := saver.Init(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("preparing sqlite schema: %w", err)
		}
		return saver, func() { db.Close() }, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		saver := postgres.NewArchiveSaver(pool, serializer)
		if err := saver.CreateTables(ctx); err != nil {
			saver.Close()
			return nil, nil, fmt.Errorf("preparing postgres schema: %w", err)
		}
		return saver, saver.Close, nil
	default:
		return memory.NewArchiveSaver(), func() {}, nil
	}
}

// readRequest parses a replay request. A file holding a bare event array is
// accepted as shorthand, with the session derived from the file name.
func readRequest(path string) (*dto.ReplayRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	var req dto.ReplayRequest
	if err := json.Unmarshal(data, &req); err == nil && (len(req.Events) > 0 || len(req.Chunks) > 0) {
		if req.SessionID == "" {
			req.SessionID = path
		}
		return &req, nil
	}
	var events []dto.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parsing events: %w", err)
	}
	return &dto.ReplayRequest{SessionID: path, Events: events}, nil
}

func writeGraphML(path string, resp *dto.ReplayResponse, simplify bool) error {
	doc := graphml.FromGraph(resp.Graph, graphml.Options{Simplify: simplify})
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := graphml.Write(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("writing graphml: %w", err)
	}
	return f.Close()
}
