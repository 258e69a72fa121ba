// Package catalog is the tool arsenal shown beside the transcript and fed to
// the LLM prompt. It can be overridden by a YAML file, which may also carry
// its own phrase rules.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miniheartx/heartx/pkg/translate"
)

type Tool struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Command     string `json:"command" yaml:"command"`
	Category    string `json:"category" yaml:"category"`
	// Example is the phrase submitted when the tool is picked. Empty uses
	// the built-in examples.
	Example string `json:"example,omitempty" yaml:"example,omitempty"`
}

type Category struct {
	Name  string `json:"name" yaml:"name"`
	Tools []Tool `json:"tools" yaml:"tools"`
}

type Catalog struct {
	Categories []Category       `json:"categories" yaml:"categories"`
	Rules      []translate.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// QuickCommands are one-key phrases offered under the input line.
	QuickCommands []string `json:"quick_commands,omitempty" yaml:"quick_commands,omitempty"`
}

var examples = map[string]string{
	"nmap":     "scan all ports on 192.168.1.1",
	"hydra":    "brute force SSH on 192.168.1.10",
	"sqlmap":   "test SQL injection on http://target.com/login",
	"gobuster": "scan directories on http://target.com",
	"tcpdump":  "monitor traffic on eth0",
	"netstat":  "check network connections",
}

var defaultQuickCommands = []string{
	"scan ports on 192.168.1.1",
	"check network connections",
	"monitor traffic on eth0",
	"brute force SSH on target",
}

func Default() *Catalog {
	return &Catalog{
		Categories: []Category{
			{Name: "Reconnaissance", Tools: []Tool{
				{Name: "Nmap", Description: "Network discovery and security auditing", Category: "recon", Command: "nmap"},
				{Name: "Masscan", Description: "High-speed port scanner", Category: "recon", Command: "masscan"},
				{Name: "Netstat", Description: "Display network connections", Category: "recon", Command: "netstat"},
				{Name: "Netdiscover", Description: "Network address discovering tool", Category: "recon", Command: "netdiscover"},
			}},
			{Name: "Web Testing", Tools: []Tool{
				{Name: "Nikto", Description: "Web server scanner", Category: "web", Command: "nikto"},
				{Name: "Gobuster", Description: "Directory/file & DNS brute-forcer", Category: "web", Command: "gobuster"},
				{Name: "SQLmap", Description: "SQL injection testing tool", Category: "web", Command: "sqlmap"},
				{Name: "Dirb", Description: "Web content scanner", Category: "web", Command: "dirb"},
			}},
			{Name: "Exploitation", Tools: []Tool{
				{Name: "Hydra", Description: "Password brute-force tool", Category: "exploit", Command: "hydra"},
				{Name: "John", Description: "Password cracker", Category: "exploit", Command: "john"},
				{Name: "Hashcat", Description: "Advanced password recovery", Category: "exploit", Command: "hashcat"},
				{Name: "Metasploit", Description: "Penetration testing framework", Category: "exploit", Command: "msfconsole"},
			}},
			{Name: "Defense", Tools: []Tool{
				{Name: "Fail2ban", Description: "Intrusion prevention system", Category: "defense", Command: "fail2ban-client"},
				{Name: "UFW", Description: "Uncomplicated firewall", Category: "defense", Command: "ufw"},
				{Name: "Suricata", Description: "Network threat detection", Category: "defense", Command: "suricata"},
				{Name: "AIDE", Description: "File integrity checker", Category: "defense", Command: "aide"},
			}},
			{Name: "Monitoring", Tools: []Tool{
				{Name: "Tcpdump", Description: "Network packet analyzer", Category: "monitor", Command: "tcpdump"},
				{Name: "Wireshark", Description: "Network protocol analyzer", Category: "monitor", Command: "tshark"},
				{Name: "ss", Description: "Socket statistics", Category: "monitor", Command: "ss"},
				{Name: "iftop", Description: "Network bandwidth monitor", Category: "monitor", Command: "iftop"},
			}},
		},
		QuickCommands: append([]string(nil), defaultQuickCommands...),
	}
}

// Load reads a catalog file. Sections the file leaves out keep their
// defaults.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	out := Default()
	if len(file.Categories) > 0 {
		out.Categories = nil
		for _, c := range file.Categories {
			if strings.TrimSpace(c.Name) == "" {
				return nil, fmt.Errorf("parse catalog: category without a name")
			}
			for i, t := range c.Tools {
				if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Command) == "" {
					return nil, fmt.Errorf("parse catalog: tool %d in %q needs name and command", i, c.Name)
				}
			}
			out.Categories = append(out.Categories, c)
		}
	}
	if len(file.Rules) > 0 {
		out.Rules = file.Rules
	}
	if len(file.QuickCommands) > 0 {
		out.QuickCommands = file.QuickCommands
	}
	return out, nil
}

// Tools flattens every category in display order.
func (c *Catalog) Tools() []Tool {
	var out []Tool
	for _, cat := range c.Categories {
		out = append(out, cat.Tools...)
	}
	return out
}

// Names lists every tool's command, for the LLM prompt.
func (c *Catalog) Names() []string {
	var out []string
	for _, t := range c.Tools() {
		out = append(out, t.Command)
	}
	return out
}

// Find matches token against tool names and commands, case-insensitively.
func (c *Catalog) Find(token string) (Tool, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return Tool{}, false
	}
	for _, t := range c.Tools() {
		if strings.ToLower(t.Command) == token || strings.ToLower(t.Name) == token {
			return t, true
		}
	}
	return Tool{}, false
}

// Translator builds a phrase translator from the catalog's rules, or the
// built-in table when it has none.
func (c *Catalog) Translator() *translate.Translator {
	return translate.New(c.Rules)
}

// ExampleFor is the phrase submitted when the operator picks t.
func ExampleFor(t Tool) string {
	if t.Example != "" {
		return t.Example
	}
	if ex, ok := examples[t.Command]; ok {
		return ex
	}
	return "use " + t.Name + " on target"
}
