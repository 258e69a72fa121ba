package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/providers"
	"github.com/miniheartx/heartx/pkg/session"
	"github.com/miniheartx/heartx/pkg/synth"
	"github.com/miniheartx/heartx/pkg/target"
	"github.com/miniheartx/heartx/pkg/tracing"
)

// Translate produces, records and publishes one entry. It never fails: a
// provider error drops to the phrase table, and an unknown phrase comes back
// as an error-typed entry.
func (s *Service) Translate(ctx context.Context, input string, mode session.Mode) session.Entry {
	ctx, span := tracing.StartSpan(ctx, "service.Translate")
	span.SetAttributes(map[string]string{"mode": string(mode)})

	command, via := s.command(ctx, input, mode)
	out := synth.Synthesize(command)

	entry := session.Entry{
		ID:        s.opts.NewID(),
		Timestamp: s.opts.Now().Format("15:04:05"),
		Input:     input,
		Command:   command,
		Output:    out.Lines,
		Type:      out.Type,
		Mode:      mode,
	}
	s.history.Append(entry)
	if err := s.bus.TryPublish(entry); err != nil {
		logger.DebugCF("service", "Entry not streamed", map[string]interface{}{
			"entry_id": entry.ID,
			"error":    err.Error(),
		})
	}

	logger.InfoCF("service", "Translated", map[string]interface{}{
		"entry_id": entry.ID,
		"mode":     string(mode),
		"via":      via,
		"type":     string(entry.Type),
	})
	span.SetAttributes(map[string]string{"via": via, "type": string(entry.Type)})
	span.End(nil)
	return entry
}

func (s *Service) command(ctx context.Context, input string, mode session.Mode) (string, string) {
	rules := s.Catalog().Translator()
	if s.provider == nil {
		return rules.Translate(input).Command, "rules"
	}

	lctx, cancel := context.WithTimeout(ctx, s.opts.LLMTimeout)
	defer cancel()

	resp, err := s.provider.Chat(lctx, s.promptFor(input, mode), "", map[string]interface{}{
		"max_tokens":  200,
		"temperature": 0.2,
	})
	if err != nil {
		logger.WarnCF("service", "LLM translation failed, using phrase table", map[string]interface{}{
			"error": err.Error(),
		})
		return rules.Translate(input).Command, "rules"
	}

	cmd := cleanCommand(resp.Content)
	if cmd == "" {
		logger.WarnCF("service", "LLM returned no command, using phrase table", nil)
		return rules.Translate(input).Command, "rules"
	}
	return cmd, "llm"
}

func (s *Service) promptFor(input string, mode session.Mode) []providers.Message {
	var b strings.Builder
	b.WriteString("You are a cybersecurity expert assistant. Convert natural language requests into precise Linux/Kali commands.\n\n")
	fmt.Fprintf(&b, "Available tools: %s\n", strings.Join(s.Catalog().Names(), ", "))
	fmt.Fprintf(&b, "Current mode: %s (%s)\n", mode, mode.Description())
	if addrs := target.ExtractAllIPv4(input); len(addrs) > 0 {
		fmt.Fprintf(&b, "Addresses mentioned: %s\n", strings.Join(addrs, ", "))
	}
	b.WriteString(`
Rules:
- Return ONLY the command, no explanations
- Use the appropriate tool for the request
- Include proper arguments and syntax
- For network scans, use common private IP ranges if none is given
- For brute force, use standard wordlists from /usr/share/wordlists/

Example:
Input: "scan network for SSH"
Output: nmap -p 22 192.168.1.0/24`)

	return []providers.Message{
		{Role: "system", Content: b.String()},
		{Role: "user", Content: input},
	}
}

// cleanCommand reduces an LLM reply to its first command line, dropping
// code fences, inline backticks and a leading shell prompt.
func cleanCommand(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.Trim(line, "`")
		line = strings.TrimPrefix(line, "$ ")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
