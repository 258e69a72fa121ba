package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/miniheartx/heartx/cmd/heartx/tui"
	"github.com/miniheartx/heartx/pkg/catalog"
	"github.com/miniheartx/heartx/pkg/config"
	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/pipeline"
	"github.com/miniheartx/heartx/pkg/session"
)

// runTUI is swapped out in tests.
var runTUI = tui.Run

func tuiCmd() {
	c := prepareConsole(os.Args[2:], true)
	p := c.pipe

	final, err := runTUI(p, c.cat, remoteStatus(p, c.cfg))
	if err != nil {
		c.close(false)
		fmt.Printf("Error running console: %v\n", err)
		os.Exit(1)
	}
	defer c.close(true)
	logger.InfoCF("tui", "Console closed", map[string]interface{}{
		"entries": len(p.Entries()),
		"mode":    string(final.Mode()),
	})
}

func translateCmd() {
	c := prepareConsole(os.Args[2:], false)
	p, opts := c.pipe, c.opts

	if strings.TrimSpace(opts.message) == "" {
		fmt.Printf("Usage: %s translate -m \"scan ports on 192.168.1.1\" [--mode attack] [--offline] [--json]\n", cliName)
		os.Exit(2)
	}

	entry, err := p.Submit(context.Background(), opts.message)
	c.close(false)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if opts.json {
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			fmt.Printf("Error encoding entry: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}
	renderEntry(os.Stdout, entry)
	if entry.Type == session.Error {
		os.Exit(1)
	}
}

// renderEntry prints an entry the way the line-mode console shows it.
func renderEntry(w io.Writer, e session.Entry) {
	fmt.Fprintf(w, "[%s] $ %s\n", e.Timestamp, e.Input)
	fmt.Fprintf(w, "> %s\n", e.Command)
	for _, line := range e.Output {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func shellCmd() {
	c := prepareConsole(os.Args[2:], true)
	defer c.close(true)

	p := c.pipe
	fmt.Printf("%s %s line console (%s, %s). Type /help for commands, exit to quit.\n\n",
		logo, displayName, p.Mode().Label(), remoteStatus(p, c.cfg))
	interactiveShell(p, c.cat)
}

func shellPrompt(p *pipeline.Pipeline) string {
	return fmt.Sprintf("%s %s> ", logo, p.Mode())
}

func interactiveShell(p *pipeline.Pipeline, cat *catalog.Catalog) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt(p),
		HistoryFile:     filepath.Join(config.HomeDir(), "shell_history"),
		HistoryLimit:    200,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveShell(p, cat)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if !runShellLine(context.Background(), p, cat, line, os.Stdout) {
			fmt.Println("Goodbye!")
			return
		}
		rl.SetPrompt(shellPrompt(p))
	}
}

func simpleInteractiveShell(p *pipeline.Pipeline, cat *catalog.Catalog) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(shellPrompt(p))
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if !runShellLine(context.Background(), p, cat, line, os.Stdout) {
			fmt.Println("Goodbye!")
			return
		}
	}
}

// runShellLine handles one console line and reports whether the shell
// should keep going.
func runShellLine(ctx context.Context, p *pipeline.Pipeline, cat *catalog.Catalog, line string, w io.Writer) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	switch input {
	case "exit", "quit":
		return false
	case "/help":
		printShellHelp(w)
		return true
	case "/tools":
		printTools(w, cat)
		return true
	case "/history":
		entries := p.Entries()
		if len(entries) == 0 {
			fmt.Fprintln(w, "No entries yet.")
		}
		for _, e := range entries {
			renderEntry(w, e)
			fmt.Fprintln(w)
		}
		return true
	case "/mode":
		m := p.Mode()
		fmt.Fprintf(w, "Mode: %s (%s) - %s\n", m, m.Label(), m.Description())
		return true
	}

	switch {
	case strings.HasPrefix(input, "/mode "):
		m, err := session.ParseMode(strings.TrimPrefix(input, "/mode "))
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return true
		}
		p.SetMode(m)
		fmt.Fprintf(w, "Mode set to %s\n", m.Label())
		return true
	case strings.HasPrefix(input, "/use "):
		name := strings.TrimSpace(strings.TrimPrefix(input, "/use "))
		tool, ok := cat.Find(name)
		if !ok {
			fmt.Fprintf(w, "Unknown tool %q. Try /tools.\n", name)
			return true
		}
		input = catalog.ExampleFor(tool)
		fmt.Fprintf(w, "Using %s: %s\n", tool.Name, input)
	case strings.HasPrefix(input, "/"):
		fmt.Fprintf(w, "Unknown command %s. Try /help.\n", strings.Fields(input)[0])
		return true
	}

	entry, err := p.Submit(ctx, input)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		fmt.Fprintln(w, "A translation is already running. Wait for it to finish.")
	case err != nil:
		fmt.Fprintf(w, "Error: %v\n", err)
	default:
		renderEntry(w, entry)
		fmt.Fprintln(w)
	}
	return true
}

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, "Type what you want to do, e.g. \"scan ports on 192.168.1.1\".")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  /mode [mode]   Show or switch team mode (attack, defense, ops, matrix)")
	fmt.Fprintln(w, "  /tools         List the tool catalog")
	fmt.Fprintln(w, "  /use <tool>    Submit the tool's example phrase")
	fmt.Fprintln(w, "  /history       Print this session's transcript")
	fmt.Fprintln(w, "  exit, quit     Leave the console")
}
