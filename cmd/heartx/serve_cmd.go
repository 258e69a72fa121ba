package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/miniheartx/heartx/pkg/config"
	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/providers"
	"github.com/miniheartx/heartx/pkg/service"
	"github.com/miniheartx/heartx/pkg/tracing"
)

type serveOptions struct {
	listen   string
	catalog  string
	provider string
	debug    bool
}

func parseServeOptions(args []string) (serveOptions, error) {
	var opts serveOptions
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug", "-d":
			opts.debug = true
		case "--listen", "-l", "--catalog", "--provider":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s needs a value", args[i])
			}
			switch args[i] {
			case "--catalog":
				opts.catalog = args[i+1]
			case "--provider":
				opts.provider = args[i+1]
			default:
				opts.listen = args[i+1]
			}
			i++
		default:
			return opts, fmt.Errorf("unknown option: %s", args[i])
		}
	}
	return opts, nil
}

// applyServeOptions folds command-line overrides into cfg and revalidates.
func applyServeOptions(cfg *config.Config, opts serveOptions) error {
	if opts.listen != "" {
		cfg.Service.Listen = opts.listen
	}
	if opts.catalog != "" {
		cfg.Service.CatalogPath = opts.catalog
	}
	if opts.provider != "" {
		cfg.Service.Provider = opts.provider
	}
	if cfg.Service.Listen == "" {
		cfg.Service.Listen = config.DefaultListen
	}
	return cfg.Validate()
}

func serveCmd() {
	opts, err := parseServeOptions(os.Args[2:])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Printf("Usage: %s serve [--listen host:port] [--catalog file.yaml] [--provider openai|anthropic|compat] [--debug]\n", cliName)
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := applyServeOptions(cfg, opts); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if err := setupLogging(cfg, false, opts.debug); err != nil {
		fmt.Printf("Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Trace.File != "" {
		if err := tracing.Init(cliName, version, cfg.Trace.File); err != nil {
			fmt.Printf("Error starting tracing: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tracing.Shutdown(ctx)
		}()
	}

	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		fmt.Printf("Error creating provider: %v\n", err)
		os.Exit(1)
	}

	svc, err := service.New(service.Options{
		Listen:         cfg.Service.Listen,
		AllowedOrigins: cfg.Service.AllowedOrigins,
		HistoryLimit:   cfg.Service.HistoryLimit,
		CatalogPath:    cfg.Service.CatalogPath,
		TranscriptPath: cfg.Log.Transcript,
		Provider:       provider,
	})
	if err != nil {
		fmt.Printf("Error starting service: %v\n", err)
		os.Exit(1)
	}

	if provider != nil {
		fmt.Printf("✓ LLM translation via %s (%s)\n", cfg.Service.Provider, provider.GetDefaultModel())
	} else {
		fmt.Println("⚠ No LLM provider configured, using the phrase table only")
	}
	fmt.Printf("✓ Translation service on http://%s\n", cfg.Service.Listen)
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n✓ Translation service stopped")
}
