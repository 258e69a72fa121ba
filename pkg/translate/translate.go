// Package translate maps natural-language requests onto command templates
// using an ordered table of trigger phrases. It is the local path used when
// no translation service answers.
package translate

import (
	"fmt"
	"strings"

	"github.com/miniheartx/heartx/pkg/target"
)

const (
	// Placeholder stands in for the target when the input names no address.
	Placeholder = "<target>"
	// CommentPrefix marks a command line that is an explanation, not
	// something to run.
	CommentPrefix = "#"
)

// Rule pairs a trigger phrase with the command template it selects.
type Rule struct {
	Trigger  string `json:"trigger" yaml:"trigger"`
	Template string `json:"template" yaml:"template"`
}

// DefaultRules returns the built-in table. Order is precedence: an input
// containing several triggers resolves to the earliest one.
func DefaultRules() []Rule {
	return []Rule{
		{Trigger: "scan ports", Template: "nmap -sS"},
		{Trigger: "scan port 443", Template: "nmap -p 443"},
		{Trigger: "scan port 22", Template: "nmap -p 22"},
		{Trigger: "check network", Template: "netstat -tulpn"},
		{Trigger: "monitor traffic", Template: "tcpdump -i"},
		{Trigger: "brute force ssh", Template: "hydra -l root -P passwords.txt ssh://"},
		{Trigger: "sql injection", Template: "sqlmap -u"},
		{Trigger: "directory scan", Template: "gobuster dir -u"},
		{Trigger: "web scan", Template: "nikto -h"},
	}
}

// Result is the outcome of a local translation.
type Result struct {
	Command string
	// Trigger is the phrase that matched; empty when Untranslatable.
	Trigger string
	// Target is the extracted address, empty when the placeholder was used.
	Target         string
	Untranslatable bool
}

// Translator evaluates rules in declaration order, first match wins. It is
// immutable after construction and safe for concurrent use.
type Translator struct {
	rules []Rule
}

// New copies rules, dropping entries with an empty trigger or template.
// A nil or empty table falls back to DefaultRules.
func New(rules []Rule) *Translator {
	kept := make([]Rule, 0, len(rules))
	for _, r := range rules {
		trigger := compactLine(strings.ToLower(r.Trigger))
		template := strings.TrimSpace(r.Template)
		if trigger == "" || template == "" {
			continue
		}
		kept = append(kept, Rule{Trigger: trigger, Template: template})
	}
	if len(kept) == 0 {
		kept = DefaultRules()
	}
	return &Translator{rules: kept}
}

// Rules returns a copy of the table in precedence order.
func (t *Translator) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func (t *Translator) Translate(input string) Result {
	normalized := strings.ToLower(input)
	for _, r := range t.rules {
		if !strings.Contains(normalized, r.Trigger) {
			continue
		}
		addr, ok := target.ExtractIPv4(input)
		if !ok {
			return Result{Command: r.Template + " " + Placeholder, Trigger: r.Trigger}
		}
		return Result{Command: r.Template + " " + addr, Trigger: r.Trigger, Target: addr}
	}
	return Result{
		Command:        Untranslatable(input),
		Untranslatable: true,
	}
}

// Untranslatable renders the comment line shown for input no rule matched.
func Untranslatable(input string) string {
	return fmt.Sprintf("%s could not translate: %q - try being more specific", CommentPrefix, compactLine(input))
}

// IsComment reports whether command is an explanatory comment line.
func IsComment(command string) bool {
	return strings.HasPrefix(strings.TrimSpace(command), CommentPrefix)
}

func compactLine(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
