// Command databuild compiles offline project resources into their runtime
// form. It pulls source metadata from a project definition file, runs the
// requested compile paths through the registered compilers and writes a
// manifest of linked runtime assets.
//
// Subcommands:
//
//	databuild source-pull -project project.yaml
//	databuild compile     -project project.yaml -path "text:aaaa|text" -manifest game.manifest
//	databuild graph       -project project.yaml -path "text:aaaa|text"
//
// The output index and content store default to in-process memory; set
// DATABUILD_BACKEND=postgres to persist them in Postgres and MinIO.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/legion-labs/databuild-go/internal/build"
	"github.com/legion-labs/databuild-go/internal/compiler"
	"github.com/legion-labs/databuild-go/internal/domain"
	"github.com/legion-labs/databuild-go/internal/platform/env"
	"github.com/legion-labs/databuild-go/internal/platform/objectstore"
	"github.com/legion-labs/databuild-go/internal/platform/postgres"
	"github.com/legion-labs/databuild-go/internal/project"
	"github.com/legion-labs/databuild-go/internal/repo"
	"github.com/legion-labs/databuild-go/internal/repo/memory"
	repopg "github.com/legion-labs/databuild-go/internal/repo/postgres"
	"github.com/legion-labs/databuild-go/internal/storage/contentstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "source-pull":
		err = runSourcePull(ctx, logger, os.Args[2:])
	case "compile":
		err = runCompile(ctx, logger, os.Args[2:])
	case "graph":
		err = runGraph(ctx, logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: databuild <source-pull|compile|graph> [flags]")
}

// newBuild wires the configured backend and compiler set. The returned
// cleanup closes backend connections and must run before exit.
func newBuild(ctx context.Context, logger *slog.Logger, transforms string) (*build.Build, func(), error) {
	registry := compiler.NewRegistry()
	for _, pair := range strings.Split(transforms, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		from, to, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, nil, fmt.Errorf("transform %q: want from:to", pair)
		}
		transform := domain.Transform{From: domain.ResourceType(from), To: domain.ResourceType(to)}
		if err := registry.Register(transform, compiler.Passthrough{}); err != nil {
			return nil, nil, err
		}
	}

	var index repo.OutputIndex
	var store contentstore.Store
	cleanup := func() {}

	switch backend := env.String("DATABUILD_BACKEND", "memory"); backend {
	case "memory":
		index = memory.NewOutputIndex()
		store = contentstore.NewMemoryStore()
	case "postgres":
		dbCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("database config: %w", err)
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("database unavailable: %w", err)
		}
		cleanup = func() { _ = db.Close() }

		pgIndex, err := repopg.NewOutputIndex(db, build.Version)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := pgIndex.Initialize(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("initialize output index: %w", err)
		}
		index = pgIndex

		storeCfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("object store config: %w", err)
		}
		client, err := objectstore.NewMinIOClient(storeCfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("object store client: %w", err)
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = objectstore.EnsureBucket(startupCtx, client, storeCfg)
		cancel()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("object store unavailable: %w", err)
		}
		store, err = contentstore.NewMinioStoreWithClient(client, storeCfg.BucketContent)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}

	b, err := build.New(build.Options{
		Index:     index,
		Store:     store,
		Compilers: registry,
		Logger:    logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return b, cleanup, nil
}

func runSourcePull(ctx context.Context, logger *slog.Logger, args []string) error {
	flags := flag.NewFlagSet("source-pull", flag.ExitOnError)
	projectPath := flags.String("project", "project.yaml", "project definition file")
	transforms := flags.String("passthrough", "text:text", "comma-separated from:to transforms handled by the passthrough compiler")
	if err := flags.Parse(args); err != nil {
		return err
	}

	p, err := project.LoadFile(*projectPath)
	if err != nil {
		return err
	}
	b, cleanup, err := newBuild(ctx, logger, *transforms)
	if err != nil {
		return err
	}
	defer cleanup()

	updated, err := b.SourcePull(ctx, p)
	if err != nil {
		return err
	}
	logger.Info("source pull complete", "project", p.Name(), "updated", updated)
	return nil
}

func runCompile(ctx context.Context, logger *slog.Logger, args []string) error {
	flags := flag.NewFlagSet("compile", flag.ExitOnError)
	projectPath := flags.String("project", "project.yaml", "project definition file")
	pathArg := flags.String("path", "", "resource path to compile")
	manifestPath := flags.String("manifest", "game.manifest", "manifest file to merge results into")
	target := flags.String("target", string(domain.TargetGame), "compilation target")
	platform := flags.String("platform", string(domain.PlatformLinux), "compilation platform")
	locale := flags.String("locale", "en", "compilation locale")
	transforms := flags.String("passthrough", "text:text", "comma-separated from:to transforms handled by the passthrough compiler")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *pathArg == "" {
		return fmt.Errorf("-path is required")
	}

	compilePath, err := domain.ParseResourcePathID(*pathArg)
	if err != nil {
		return err
	}
	compilationEnv := domain.CompilationEnv{
		Target:   domain.Target(*target),
		Platform: domain.Platform(*platform),
		Locale:   domain.Locale(*locale),
	}
	if err := compilationEnv.Validate(); err != nil {
		return err
	}

	p, err := project.LoadFile(*projectPath)
	if err != nil {
		return err
	}
	b, cleanup, err := newBuild(ctx, logger, *transforms)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := b.SourcePull(ctx, p); err != nil {
		return err
	}
	manifest, err := b.Compile(ctx, compilePath, compilationEnv, *manifestPath)
	if err != nil {
		return err
	}
	logger.Info("compile complete",
		"path", compilePath.String(),
		"manifest", *manifestPath,
		"resources", len(manifest.CompiledResources),
	)
	return nil
}

func runGraph(ctx context.Context, logger *slog.Logger, args []string) error {
	flags := flag.NewFlagSet("graph", flag.ExitOnError)
	projectPath := flags.String("project", "project.yaml", "project definition file")
	pathArg := flags.String("path", "", "resource path to render")
	transforms := flags.String("passthrough", "text:text", "comma-separated from:to transforms handled by the passthrough compiler")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *pathArg == "" {
		return fmt.Errorf("-path is required")
	}

	compilePath, err := domain.ParseResourcePathID(*pathArg)
	if err != nil {
		return err
	}
	p, err := project.LoadFile(*projectPath)
	if err != nil {
		return err
	}
	b, cleanup, err := newBuild(ctx, logger, *transforms)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := b.SourcePull(ctx, p); err != nil {
		return err
	}
	dot, err := b.PrintBuildGraph(compilePath, nil)
	if err != nil {
		return err
	}
	fmt.Println(dot)
	return nil
}
