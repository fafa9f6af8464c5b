// Command zlsd is the document-store daemon: it loads a project's
// configuration, wires the docstore against its external collaborators,
// and serves it over MCP on stdio. Built around an App/Commands/Flags
// CLI structure with a signal-handling goroutine/errChan pattern for its
// serve subcommand.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/zlsd/internal/buildrun"
	"github.com/standardbeagle/zlsd/internal/collab"
	"github.com/standardbeagle/zlsd/internal/config"
	"github.com/standardbeagle/zlsd/internal/ctranslate"
	"github.com/standardbeagle/zlsd/internal/diag"
	"github.com/standardbeagle/zlsd/internal/docstore"
	"github.com/standardbeagle/zlsd/internal/logging"
	"github.com/standardbeagle/zlsd/internal/mcpserver"
	"github.com/standardbeagle/zlsd/internal/progress"
	"github.com/standardbeagle/zlsd/internal/version"
	"github.com/standardbeagle/zlsd/internal/watch"
)

func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", absRoot, err)
	}

	if zigExe := c.String("zig-exe"); zigExe != "" {
		cfg.Build.ZigExePath = zigExe
	}
	if buildRunner := c.String("build-runner"); buildRunner != "" {
		cfg.Build.BuildRunnerPath = buildRunner
	}
	if zigLibDir := c.String("zig-lib-dir"); zigLibDir != "" {
		cfg.Build.ZigLibDir = zigLibDir
	}

	return cfg, nil
}

func buildStore(cfg *config.Config) *docstore.Store {
	grammars := docstore.NewGrammarRegistry()
	diagnostics := diag.New(os.Stdout)
	progressWriter := progress.New(os.Stdout, true)
	translator := ctranslate.New(cfg)

	collaborators := docstore.Collaborators{
		ScopeBuilder: collab.ScopeBuilder{},
		IRSourceGen:  collab.SourceIRGenerator{},
		IRDataGen:    collab.DataIRGenerator{},
		Imports:      collab.Importer{},
		CImports:     collab.CImporter{},
		CConverter:   collab.CConverter{},
		Diagnostics:  diagnostics,
		Progress:     progressWriter,
		RunnerFactory: func(buildFileURI string) docstore.Runner {
			runner := buildrun.New(cfg, diagnostics)
			if runner == nil {
				return nil
			}
			return runner
		},
	}
	if translator != nil {
		collaborators.Translator = translator
	}

	return docstore.New(cfg, grammars, collaborators)
}

func serveCommand(c *cli.Context) error {
	logging.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	store := buildStore(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := watch.New(cfg, store)
	if err != nil {
		logging.Warnf("main", "filesystem watcher disabled: %v", err)
	} else if watcher != nil {
		if err := watcher.AddRoot(cfg.Project.Root); err != nil {
			logging.Warnf("main", "watching %s: %v", cfg.Project.Root, err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logging.Warnf("main", "watcher stopped: %v", err)
			}
		}()
	}

	server := mcpserver.New(store)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return cli.Exit(fmt.Sprintf("mcp server error: %v", err), 1)
		}
		return nil
	case sig := <-sigChan:
		logging.Infof("main", "received signal %v, shutting down", sig)
		cancel()
		return nil
	}
}

func main() {
	app := &cli.App{
		Name:    "zlsd",
		Usage:   "document store daemon for the Zig language server",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "project root directory",
				Value: ".",
			},
			&cli.StringFlag{
				Name:  "zig-exe",
				Usage: "path to the zig executable (overrides config)",
			},
			&cli.StringFlag{
				Name:  "build-runner",
				Usage: "path to the build-runner script (overrides config)",
			},
			&cli.StringFlag{
				Name:  "zig-lib-dir",
				Usage: "path to the zig standard library (overrides config)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve the document store over MCP on stdio",
				Action: serveCommand,
			},
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(c *cli.Context) error {
					fmt.Println(version.FullInfo())
					return nil
				},
			},
		},
		Action: serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
