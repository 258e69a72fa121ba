package session

import (
	"fmt"
	"strings"
)

// Classification tags how an entry's output should be rendered.
type Classification string

const (
	Success Classification = "success"
	Error   Classification = "error"
	Info    Classification = "info"
)

func (c Classification) Valid() bool {
	switch c {
	case Success, Error, Info:
		return true
	default:
		return false
	}
}

// Mode is the operator's team mode. It is sent with every remote
// translation request and selects the TUI theme.
type Mode string

const (
	ModeAttack  Mode = "attack"
	ModeDefense Mode = "defense"
	ModeOps     Mode = "ops"
	ModeMatrix  Mode = "matrix"
)

// DefaultMode matches the backend's default when a request omits the mode.
const DefaultMode = ModeMatrix

// Modes lists every mode in display order.
func Modes() []Mode {
	return []Mode{ModeMatrix, ModeAttack, ModeDefense, ModeOps}
}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return DefaultMode, nil
	}
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q (want attack, defense, ops or matrix)", s)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	switch m {
	case ModeAttack, ModeDefense, ModeOps, ModeMatrix:
		return true
	default:
		return false
	}
}

// Label is the human name shown in the mode switch.
func (m Mode) Label() string {
	switch m {
	case ModeAttack:
		return "Red Team"
	case ModeDefense:
		return "Blue Team"
	case ModeOps:
		return "Purple Ops"
	case ModeMatrix:
		return "Matrix"
	default:
		return string(m)
	}
}

func (m Mode) Description() string {
	switch m {
	case ModeAttack:
		return "Offensive security operations"
	case ModeDefense:
		return "Defensive security operations"
	case ModeOps:
		return "Combined offensive & defensive"
	case ModeMatrix:
		return "Classic green hacker style"
	default:
		return ""
	}
}

// Entry is one transcript row. Entries are built once per accepted
// submission and never modified afterwards.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Input     string         `json:"input"`
	Command   string         `json:"command"`
	Output    []string       `json:"output"`
	Type      Classification `json:"type"`
	Mode      Mode           `json:"mode,omitempty"`
}

func (e Entry) clone() Entry {
	out := e
	if e.Output != nil {
		out.Output = make([]string, len(e.Output))
		copy(out.Output, e.Output)
	}
	return out
}
