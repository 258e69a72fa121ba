package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miniheartx/heartx/pkg/catalog"
	"github.com/miniheartx/heartx/pkg/config"
)

func onboardHelp() {
	fmt.Println("\nOnboard:")
	fmt.Printf("  %s onboard writes %s and an editable tool catalog next to it.\n", cliName, getConfigPath())
	fmt.Println("  It is idempotent by default: an existing config is left alone.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --force      Reset config.json to defaults (backs up existing file first)")
}

func parseOnboardOptions(args []string) (force bool, showHelp bool, err error) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--force", "-f":
			force = true
		case "help", "--help", "-h":
			showHelp = true
		default:
			return false, false, fmt.Errorf("unknown option: %s", args[i])
		}
	}
	return force, showHelp, nil
}

func onboard() {
	force, showHelp, err := parseOnboardOptions(os.Args[2:])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		onboardHelp()
		os.Exit(2)
	}
	if showHelp {
		onboardHelp()
		return
	}

	configPath := getConfigPath()
	cfg, err := runOnboard(configPath, force)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s %s is ready!\n", logo, displayName)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Start the translation service: %s serve\n", cliName)
	if cfg.Service.Provider == "" {
		fmt.Printf("     Optional: set service.provider and an API key in %s for LLM translation\n", configPath)
	}
	fmt.Printf("  2. Open the console: %s tui (or %s shell)\n", cliName, cliName)
	if cfg.Service.CatalogPath != "" {
		fmt.Printf("  3. Edit tools and phrases in %s\n", cfg.Service.CatalogPath)
	}
}

// runOnboard creates or resets the config at configPath and makes sure a
// catalog file exists next to it.
func runOnboard(configPath string, force bool) (*config.Config, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	exists := false
	if _, err := os.Stat(configPath); err == nil {
		exists = true
	}

	var cfg *config.Config
	var err error
	switch {
	case exists && !force:
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("load existing config at %s: %w (fix it or run %s onboard --force)", configPath, err, cliName)
		}
		fmt.Printf("Config already exists at %s (preserving credentials)\n", configPath)
	case exists && force:
		backupPath, err := backupFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("back up existing config: %w", err)
		}
		cfg = config.DefaultConfig()
		fmt.Printf("Reset config to defaults at %s\n", configPath)
		if backupPath != "" {
			fmt.Printf("Backup written to %s\n", backupPath)
		}
	default:
		cfg = config.DefaultConfig()
		fmt.Printf("Created config at %s\n", configPath)
	}

	writeConfig := !exists || force
	if cfg.Service.CatalogPath == "" && writeConfig {
		cfg.Service.CatalogPath = filepath.Join(filepath.Dir(configPath), "catalog.yaml")
	}
	if cfg.Service.CatalogPath != "" {
		created, err := writeCatalogIfMissing(cfg.Service.CatalogPath)
		if err != nil {
			return nil, err
		}
		if created {
			fmt.Printf("Created catalog at %s\n", cfg.Service.CatalogPath)
		}
	}

	if writeConfig {
		if err := config.SaveConfig(configPath, cfg); err != nil {
			return nil, fmt.Errorf("save config: %w", err)
		}
	}
	return cfg, nil
}

func writeCatalogIfMissing(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	data, err := yaml.Marshal(catalog.Default())
	if err != nil {
		return false, fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("write catalog: %w", err)
	}
	return true, nil
}

func backupFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	perm := os.FileMode(0600)
	if st, err := os.Stat(path); err == nil {
		perm = st.Mode().Perm()
	}
	ts := time.Now().UTC().Format("20060102-150405Z")
	backupPath := fmt.Sprintf("%s.bak.%s", path, ts)
	if err := os.WriteFile(backupPath, b, perm); err != nil {
		return "", err
	}
	return backupPath, nil
}
