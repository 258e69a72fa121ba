package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/miniheartx/heartx/pkg/catalog"
)

func toolsCmd() {
	asJSON := false
	for _, arg := range os.Args[2:] {
		switch arg {
		case "--json":
			asJSON = true
		default:
			fmt.Printf("Unknown option: %s\n", arg)
			fmt.Printf("Usage: %s tools [--json]\n", cliName)
			os.Exit(2)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		fmt.Printf("Error loading catalog: %v\n", err)
		os.Exit(1)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cat); err != nil {
			fmt.Printf("Error encoding catalog: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printTools(os.Stdout, cat)
}

func printTools(w io.Writer, cat *catalog.Catalog) {
	for i, c := range cat.Categories {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", c.Name)
		for _, t := range c.Tools {
			fmt.Fprintf(w, "  %-12s %-40s e.g. %q\n", t.Name, t.Description, catalog.ExampleFor(t))
		}
	}
}
