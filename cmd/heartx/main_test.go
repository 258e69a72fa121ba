package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miniheartx/heartx/cmd/heartx/tui"
	"github.com/miniheartx/heartx/pkg/catalog"
	"github.com/miniheartx/heartx/pkg/config"
	"github.com/miniheartx/heartx/pkg/pipeline"
	"github.com/miniheartx/heartx/pkg/session"
	"github.com/miniheartx/heartx/pkg/state"
)

func TestParseRunOptions(t *testing.T) {
	opts, err := parseRunOptions([]string{"--mode", "defense", "--offline", "--json", "scan", "ports", "on", "10.0.0.1"})
	if err != nil {
		t.Fatalf("parseRunOptions: %v", err)
	}
	if opts.mode != "defense" || !opts.offline || !opts.json {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.message != "scan ports on 10.0.0.1" {
		t.Fatalf("message = %q", opts.message)
	}

	opts, err = parseRunOptions([]string{"-m", "web scan 10.0.0.2", "ignored"})
	if err != nil {
		t.Fatalf("parseRunOptions: %v", err)
	}
	if opts.message != "web scan 10.0.0.2" {
		t.Fatalf("-m should win over trailing args, got %q", opts.message)
	}

	for _, args := range [][]string{
		{"--mode"},
		{"--mode", "purple"},
		{"-m"},
		{"--verbose"},
	} {
		if _, err := parseRunOptions(args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestBuildPipeline(t *testing.T) {
	cfg := config.DefaultConfig()
	cat := catalog.Default()

	p, err := buildPipeline(cfg, cat, runOptions{}, nil)
	if err != nil {
		t.Fatalf("buildPipeline: %v", err)
	}
	if p.Offline() {
		t.Fatal("default config should use the remote service")
	}
	if p.Mode() != session.DefaultMode {
		t.Fatalf("mode = %q", p.Mode())
	}
	if got := remoteStatus(p, cfg); got != "remote "+config.DefaultRemoteURL {
		t.Fatalf("remoteStatus = %q", got)
	}

	p, err = buildPipeline(cfg, cat, runOptions{offline: true, mode: "ops"}, nil)
	if err != nil {
		t.Fatalf("buildPipeline: %v", err)
	}
	if !p.Offline() || p.Mode() != session.ModeOps {
		t.Fatalf("offline=%v mode=%q", p.Offline(), p.Mode())
	}

	cfg.Remote.URL = ""
	p, err = buildPipeline(cfg, cat, runOptions{}, nil)
	if err != nil {
		t.Fatalf("buildPipeline: %v", err)
	}
	if !p.Offline() {
		t.Fatal("empty remote url should run offline")
	}

	cfg.Remote.URL = "ftp://example.com"
	if _, err := buildPipeline(cfg, cat, runOptions{}, nil); err == nil {
		t.Fatal("expected error for non-http remote url")
	}
}

func newOfflinePipeline(t *testing.T) (*pipeline.Pipeline, *catalog.Catalog) {
	t.Helper()
	cfg := config.DefaultConfig()
	cat := catalog.Default()
	p, err := buildPipeline(cfg, cat, runOptions{offline: true, mode: "attack"}, nil)
	if err != nil {
		t.Fatalf("buildPipeline: %v", err)
	}
	return p, cat
}

func TestRunShellLine(t *testing.T) {
	p, cat := newOfflinePipeline(t)
	ctx := context.Background()
	var out bytes.Buffer

	if !runShellLine(ctx, p, cat, "check network connections", &out) {
		t.Fatal("translation line should keep the shell running")
	}
	if !strings.Contains(out.String(), "> netstat -tulpn <target>") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}

	out.Reset()
	runShellLine(ctx, p, cat, "/mode defense", &out)
	if p.Mode() != session.ModeDefense {
		t.Fatalf("mode = %q", p.Mode())
	}
	if !strings.Contains(out.String(), "Blue Team") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	out.Reset()
	runShellLine(ctx, p, cat, "/mode sideways", &out)
	if !strings.Contains(out.String(), "Error:") || p.Mode() != session.ModeDefense {
		t.Fatalf("bad mode should be reported and ignored: %q", out.String())
	}

	out.Reset()
	runShellLine(ctx, p, cat, "/use tcpdump", &out)
	if !strings.Contains(out.String(), "Using Tcpdump: monitor traffic on eth0") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "> tcpdump -i <target>") {
		t.Fatalf("expected tcpdump command:\n%s", out.String())
	}

	out.Reset()
	runShellLine(ctx, p, cat, "/use nothing-here", &out)
	if !strings.Contains(out.String(), "Unknown tool") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	out.Reset()
	runShellLine(ctx, p, cat, "/frobnicate now", &out)
	if !strings.Contains(out.String(), "Unknown command /frobnicate") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	if got := len(p.Entries()); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}

	out.Reset()
	runShellLine(ctx, p, cat, "/history", &out)
	for _, want := range []string{"> netstat -tulpn <target>", "> tcpdump -i <target>"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("history missing %q:\n%s", want, out.String())
		}
	}

	if runShellLine(ctx, p, cat, "  exit ", &out) {
		t.Fatal("exit should stop the shell")
	}
}

func TestRunShellLineBusy(t *testing.T) {
	p, cat := newOfflinePipeline(t)
	guard := p.Session().Guard()
	if !guard.TryBegin() {
		t.Fatal("guard already held")
	}
	defer guard.End()

	var out bytes.Buffer
	runShellLine(context.Background(), p, cat, "scan ports on 10.0.0.1", &out)
	if !strings.Contains(out.String(), "already running") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if len(p.Entries()) != 0 {
		t.Fatal("busy submission must not append")
	}
}

func TestRenderEntry(t *testing.T) {
	var out bytes.Buffer
	renderEntry(&out, session.Entry{
		Timestamp: "14:05:09",
		Input:     "scan port 443 on 192.168.1.1",
		Command:   "nmap -p 443 192.168.1.1",
		Output:    []string{"PORT    STATE SERVICE", "443/tcp open  https"},
	})
	want := "[14:05:09] $ scan port 443 on 192.168.1.1\n> nmap -p 443 192.168.1.1\n  PORT    STATE SERVICE\n  443/tcp open  https\n"
	if out.String() != want {
		t.Fatalf("renderEntry:\n%q\nwant\n%q", out.String(), want)
	}
}

func TestPrintTools(t *testing.T) {
	var out bytes.Buffer
	printTools(&out, catalog.Default())
	for _, want := range []string{"Reconnaissance", "Nmap", "Monitoring", `"monitor traffic on eth0"`} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("tool list missing %q:\n%s", want, out.String())
		}
	}
}

func TestServeOptions(t *testing.T) {
	opts, err := parseServeOptions([]string{"--listen", "0.0.0.0:9000", "--provider", "openai", "-d"})
	if err != nil {
		t.Fatalf("parseServeOptions: %v", err)
	}
	if opts.listen != "0.0.0.0:9000" || opts.provider != "openai" || !opts.debug {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, err := parseServeOptions([]string{"--listen"}); err == nil {
		t.Fatal("expected error for missing value")
	}

	cfg := config.DefaultConfig()
	cfg.Service.Listen = ""
	if err := applyServeOptions(cfg, serveOptions{}); err != nil {
		t.Fatalf("applyServeOptions: %v", err)
	}
	if cfg.Service.Listen != config.DefaultListen {
		t.Fatalf("listen = %q", cfg.Service.Listen)
	}
	if err := applyServeOptions(cfg, serveOptions{provider: "carrier-pigeon"}); err == nil {
		t.Fatal("expected validation error for unknown provider")
	}
}

func TestRunOnboard(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	cfg, err := runOnboard(configPath, false)
	if err != nil {
		t.Fatalf("runOnboard: %v", err)
	}
	wantCatalog := filepath.Join(dir, "catalog.yaml")
	if cfg.Service.CatalogPath != wantCatalog {
		t.Fatalf("catalog path = %q", cfg.Service.CatalogPath)
	}
	cat, err := catalog.Load(wantCatalog)
	if err != nil {
		t.Fatalf("written catalog does not load: %v", err)
	}
	if len(cat.Tools()) != len(catalog.Default().Tools()) {
		t.Fatalf("catalog has %d tools", len(cat.Tools()))
	}

	// A second run keeps the file as is.
	before, _ := os.ReadFile(configPath)
	if _, err := runOnboard(configPath, false); err != nil {
		t.Fatalf("runOnboard again: %v", err)
	}
	after, _ := os.ReadFile(configPath)
	if !bytes.Equal(before, after) {
		t.Fatal("onboard without --force rewrote the config")
	}

	if _, err := runOnboard(configPath, true); err != nil {
		t.Fatalf("runOnboard --force: %v", err)
	}
	backups, _ := filepath.Glob(configPath + ".bak.*")
	if len(backups) != 1 {
		t.Fatalf("expected one backup, got %v", backups)
	}
}

func TestTuiCmdRunsConsole(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HEARTX_HOME", home)
	t.Setenv("HEARTX_CONFIG", filepath.Join(home, "config.json"))
	t.Setenv("HEARTX_TRANSCRIPT", filepath.Join(home, "transcript.jsonl"))

	origArgs := os.Args
	origRun := runTUI
	t.Cleanup(func() {
		os.Args = origArgs
		runTUI = origRun
	})

	os.Args = []string{"heartx", "tui", "--offline", "--mode", "ops"}
	var gotStatus string
	var gotMode session.Mode
	runTUI = func(p *pipeline.Pipeline, cat *catalog.Catalog, status string) (tui.Model, error) {
		gotStatus = status
		gotMode = p.Mode()
		if _, err := p.Submit(context.Background(), "check network connections"); err != nil {
			t.Errorf("Submit: %v", err)
		}
		p.SetMode(session.ModeDefense)
		return tui.NewModel(p, cat, status), nil
	}

	tuiCmd()

	if gotStatus != "offline" {
		t.Fatalf("status = %q", gotStatus)
	}
	if gotMode != session.ModeOps {
		t.Fatalf("mode = %q", gotMode)
	}

	if got := state.NewManager(home).LastMode(); got != session.ModeDefense {
		t.Fatalf("remembered mode = %q", got)
	}
	data, err := os.ReadFile(filepath.Join(home, "transcript.jsonl"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(data), "netstat -tulpn <target>") {
		t.Fatalf("transcript missing entry: %s", data)
	}

	// Without --mode the next console starts where the last one ended.
	os.Args = []string{"heartx", "tui", "--offline"}
	tuiCmd()
	if gotMode != session.ModeDefense {
		t.Fatalf("mode after restart = %q", gotMode)
	}
}
