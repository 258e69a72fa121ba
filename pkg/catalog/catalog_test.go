package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDefault(t *testing.T) {
	c := Default()
	if len(c.Categories) != 5 {
		t.Fatalf("categories = %d, want 5", len(c.Categories))
	}
	if len(c.Tools()) != 20 {
		t.Fatalf("tools = %d, want 20", len(c.Tools()))
	}
	if len(c.QuickCommands) != 4 {
		t.Fatalf("quick commands = %d, want 4", len(c.QuickCommands))
	}
	if c.Categories[0].Name != "Reconnaissance" || c.Categories[4].Name != "Monitoring" {
		t.Fatalf("unexpected category order: %q .. %q", c.Categories[0].Name, c.Categories[4].Name)
	}
}

func TestExampleFor(t *testing.T) {
	c := Default()

	nmap, ok := c.Find("nmap")
	if !ok {
		t.Fatal("nmap not found")
	}
	if got := ExampleFor(nmap); got != "scan all ports on 192.168.1.1" {
		t.Errorf("ExampleFor(nmap) = %q", got)
	}

	john, ok := c.Find("John")
	if !ok {
		t.Fatal("john not found by name")
	}
	if got := ExampleFor(john); got != "use John on target" {
		t.Errorf("ExampleFor(john) = %q", got)
	}

	if got := ExampleFor(Tool{Name: "X", Command: "nmap", Example: "custom"}); got != "custom" {
		t.Errorf("explicit example ignored: %q", got)
	}
}

func TestFindMisses(t *testing.T) {
	c := Default()
	for _, token := range []string{"", "  ", "nessus"} {
		if _, ok := c.Find(token); ok {
			t.Errorf("Find(%q) should miss", token)
		}
	}
}

func TestParseOverridesSections(t *testing.T) {
	data := []byte(`
categories:
  - name: Custom
    tools:
      - name: Zmap
        command: zmap
        description: Internet-wide scanner
        category: recon
rules:
  - trigger: internet scan
    template: zmap -p 80
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := c.Names(); len(got) != 1 || got[0] != "zmap" {
		t.Fatalf("Names = %v", got)
	}
	if len(c.QuickCommands) != 4 {
		t.Fatalf("quick commands should keep defaults, got %v", c.QuickCommands)
	}

	res := c.Translator().Translate("internet scan from 10.1.2.3")
	if res.Command != "zmap -p 80 10.1.2.3" {
		t.Fatalf("catalog rule not applied: %q", res.Command)
	}
}

func TestParseRejectsIncompleteTools(t *testing.T) {
	if _, err := Parse([]byte("categories:\n  - name: X\n    tools:\n      - name: NoCommand\n")); err == nil {
		t.Fatal("expected error for tool without command")
	}
	if _, err := Parse([]byte("categories: [oops")); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestDefaultTranslatorUsesBuiltinRules(t *testing.T) {
	res := Default().Translator().Translate("check network")
	if res.Command != "netstat -tulpn <target>" {
		t.Fatalf("command = %q", res.Command)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	prev := DebounceDelay
	DebounceDelay = 20 * time.Millisecond
	defer func() { DebounceDelay = prev }()

	path := filepath.Join(t.TempDir(), "tools.yaml")
	if err := os.WriteFile(path, []byte("quick_commands: [first]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan *Catalog, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Catalog) {
			select {
			case reloaded <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	var got *Catalog
	for got == nil {
		select {
		case <-tick.C:
			_ = os.WriteFile(path, []byte("quick_commands: [second]\n"), 0o644)
		case c := <-reloaded:
			got = c
		case <-deadline:
			cancel()
			<-done
			t.Fatal("catalog was not reloaded")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(got.QuickCommands) != 1 || got.QuickCommands[0] != "second" {
		t.Fatalf("reloaded quick commands = %v", got.QuickCommands)
	}
}
