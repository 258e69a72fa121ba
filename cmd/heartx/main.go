// heartx - natural-language console for security tooling
// License: MIT
//
// Copyright (c) 2026 Mini Heart X contributors

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/miniheartx/heartx/pkg/audit"
	"github.com/miniheartx/heartx/pkg/bus"
	"github.com/miniheartx/heartx/pkg/catalog"
	"github.com/miniheartx/heartx/pkg/config"
	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/pipeline"
	"github.com/miniheartx/heartx/pkg/remote"
	"github.com/miniheartx/heartx/pkg/session"
	"github.com/miniheartx/heartx/pkg/state"
)

var (
	version   = "dev"
	buildTime string
	goVersion string
)

const logo = "♥"
const displayName = "Mini Heart X"
const cliName = "heartx"

func printVersion() {
	fmt.Printf("%s %s (%s) v%s\n", logo, displayName, cliName, version)
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	if goVer != "" {
		fmt.Printf("  Go: %s\n", goVer)
	}
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "tui":
		tuiCmd()
	case "shell":
		shellCmd()
	case "translate":
		translateCmd()
	case "serve":
		serveCmd()
	case "tools":
		toolsCmd()
	case "onboard":
		onboard()
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Printf("%s %s - plain English in, shell commands out v%s\n\n", logo, displayName, version)
	fmt.Printf("Usage: %s <command>\n", cliName)
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  tui         Open the full-screen console")
	fmt.Println("  shell       Line-mode console (readline)")
	fmt.Println("  translate   Translate a single phrase and print the entry")
	fmt.Println("  serve       Run the translation service")
	fmt.Println("  tools       List the tool catalog")
	fmt.Println("  onboard     Write a default config and catalog")
	fmt.Println("  version     Show version information")
	fmt.Println()
	fmt.Println("Console flags (tui, shell, translate):")
	fmt.Println("  --mode <mode>   attack, defense, ops or matrix")
	fmt.Println("  --offline       Skip the translation service, use the local phrase table")
	fmt.Println("  -d, --debug     Debug logging")
	fmt.Println()
	fmt.Println("Translate flags:")
	fmt.Println("  -m <phrase>     Phrase to translate (or pass it as trailing arguments)")
	fmt.Println("  --json          Print the entry as JSON")
}

func getConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("HEARTX_CONFIG")); p != "" {
		return p
	}
	return config.DefaultPath()
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

// runOptions are the flags shared by the console commands.
type runOptions struct {
	mode    string
	offline bool
	debug   bool
	json    bool
	message string
}

func parseRunOptions(args []string) (runOptions, error) {
	var opts runOptions
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug", "-d":
			opts.debug = true
		case "--offline":
			opts.offline = true
		case "--json":
			opts.json = true
		case "--mode":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--mode needs a value")
			}
			opts.mode = args[i+1]
			i++
		case "-m", "--message":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s needs a value", args[i])
			}
			opts.message = args[i+1]
			i++
		default:
			if strings.HasPrefix(args[i], "-") {
				return opts, fmt.Errorf("unknown option: %s", args[i])
			}
			rest = append(rest, args[i])
		}
	}
	if opts.message == "" && len(rest) > 0 {
		opts.message = strings.Join(rest, " ")
	}
	if opts.mode != "" {
		if _, err := session.ParseMode(opts.mode); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// setupLogging applies the log section. Interactive front ends discard log
// lines unless a file is configured.
func setupLogging(cfg *config.Config, interactive, debug bool) error {
	opts := logger.Options{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
		JSON:  cfg.Log.JSON,
	}
	if debug {
		opts.Level = "debug"
	}
	if interactive && opts.File == "" {
		opts.Discard = true
	}
	return logger.Configure(opts)
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Service.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.Service.CatalogPath)
}

// buildPipeline wires a console session: remote client unless offline,
// local phrase table from the catalog. entries may be nil.
func buildPipeline(cfg *config.Config, cat *catalog.Catalog, opts runOptions, entries *bus.EntryBus) (*pipeline.Pipeline, error) {
	mode := cfg.SessionMode()
	if opts.mode != "" {
		m, err := session.ParseMode(opts.mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}

	popts := pipeline.Options{
		Local:       cat.Translator(),
		Bus:         entries,
		Timeout:     cfg.RemoteTimeout(),
		RemoteLabel: cfg.Remote.URL,
	}
	if !opts.offline && strings.TrimSpace(cfg.Remote.URL) != "" {
		client, err := remote.NewClient(cfg.Remote.URL, remote.Options{
			Timeout:   cfg.RemoteTimeout(),
			Transport: cfg.TransportOptions(),
		})
		if err != nil {
			return nil, fmt.Errorf("remote client: %w", err)
		}
		popts.Remote = client
	}
	return pipeline.New(session.New(mode), popts), nil
}

func remoteStatus(p *pipeline.Pipeline, cfg *config.Config) string {
	if p.Offline() {
		return "offline"
	}
	return "remote " + cfg.Remote.URL
}

// console is a ready-to-use session for tui, shell and translate.
type console struct {
	cfg   *config.Config
	cat   *catalog.Catalog
	pipe  *pipeline.Pipeline
	opts  runOptions
	state *state.Manager

	stopTranscript func()
}

// close flushes the transcript and, for interactive sessions, remembers the
// mode the operator ended in.
func (c *console) close(rememberMode bool) {
	c.stopTranscript()
	if rememberMode {
		if err := c.state.SetLastMode(c.pipe.Mode()); err != nil {
			logger.WarnCF("console", "Could not save console state", map[string]interface{}{"error": err.Error()})
		}
	}
	logger.Sync()
}

// prepareConsole is the shared setup of tui, shell and translate. An
// explicit --mode wins over the remembered mode, which wins over config.
func prepareConsole(args []string, interactive bool) *console {
	opts, err := parseRunOptions(args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := setupLogging(cfg, interactive, opts.debug); err != nil {
		fmt.Printf("Error configuring logging: %v\n", err)
		os.Exit(1)
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		fmt.Printf("Error loading catalog: %v\n", err)
		os.Exit(1)
	}

	st := state.NewManager(config.HomeDir())
	if opts.mode == "" && interactive {
		opts.mode = string(st.LastMode())
	}

	c := &console{cfg: cfg, cat: cat, opts: opts, state: st, stopTranscript: func() {}}

	var entries *bus.EntryBus
	if cfg.Log.Transcript != "" {
		sink, err := audit.NewJSONLSink(cfg.Log.Transcript)
		if err != nil {
			fmt.Printf("Error opening transcript: %v\n", err)
			os.Exit(1)
		}
		entries = bus.NewEntryBus()
		done := make(chan struct{})
		go func() {
			defer close(done)
			audit.Follow(context.Background(), entries, sink, "console")
		}()
		c.stopTranscript = func() {
			entries.Close()
			<-done
			sink.Close()
		}
	}

	c.pipe, err = buildPipeline(cfg, cat, opts, entries)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return c
}
