// Package synth produces canned output for a resolved command. Nothing is
// executed: the output is looked up from a fixed table keyed by substring.
package synth

import (
	"strings"

	"github.com/miniheartx/heartx/pkg/session"
	"github.com/miniheartx/heartx/pkg/translate"
)

// Output is a classified block of transcript lines.
type Output struct {
	Lines []string
	Type  session.Classification
}

type signature struct {
	match string
	lines []string
	typ   session.Classification
}

// Evaluated top to bottom; the first signature contained in the command
// wins. Comment lines are handled before this table.
var signatures = []signature{
	{
		match: "nmap",
		typ:   session.Success,
		lines: []string{
			"Starting Nmap 7.94 ( https://nmap.org )",
			"Nmap scan report for target",
			"Host is up (0.001s latency).",
			"PORT     STATE SERVICE",
			"22/tcp   open  ssh",
			"80/tcp   open  http",
			"443/tcp  open  https",
			"",
			"Nmap done: 1 IP address (1 host up) scanned in 0.12 seconds",
		},
	},
	{
		match: "netstat",
		typ:   session.Success,
		lines: []string{
			"Active Internet connections (only servers)",
			"Proto Recv-Q Send-Q Local Address           Foreign Address         State       PID/Program name",
			"tcp        0      0 0.0.0.0:22              0.0.0.0:*               LISTEN      1234/sshd",
			"tcp        0      0 127.0.0.1:3306          0.0.0.0:*               LISTEN      5678/mysqld",
			"tcp6       0      0 :::80                   :::*                    LISTEN      9012/apache2",
		},
	},
	{
		match: "tcpdump",
		typ:   session.Success,
		lines: []string{
			"tcpdump: verbose output suppressed, use -v[v]... for full protocol decode",
			"listening on any, link-type LINUX_SLL2 (Linux cooked v2), snapshot length 262144 bytes",
			"12:00:01.000001 IP 192.168.1.20.51234 > 192.168.1.1.443: Flags [S], seq 1000, win 64240, length 0",
			"12:00:01.000412 IP 192.168.1.1.443 > 192.168.1.20.51234: Flags [S.], seq 2000, ack 1001, win 65160, length 0",
			"2 packets captured",
		},
	},
	{
		match: "hydra",
		typ:   session.Success,
		lines: []string{
			"Hydra v9.5 (c) 2023 by van Hauser/THC & David Maciejak",
			"[DATA] max 16 tasks per 1 server, overall 16 tasks, 14344399 login tries (l:1/p:14344399)",
			"[DATA] attacking ssh://target:22/",
			"[STATUS] 256.00 tries/min, 256 tries in 00:01h, 14344143 to do in 933:52h, 16 active",
			"0 of 1 target completed, 0 valid password found",
		},
	},
}

var commentOutput = []string{
	"Command translation failed. Please try a different approach.",
}

// Synthesize classifies command and returns its canned output. The result
// is a fresh slice on every call.
func Synthesize(command string) Output {
	if translate.IsComment(command) {
		return Output{Lines: copyLines(commentOutput), Type: session.Error}
	}

	for _, sig := range signatures {
		if strings.Contains(command, sig.match) {
			return Output{Lines: copyLines(sig.lines), Type: sig.typ}
		}
	}

	return Output{
		Lines: []string{
			"Executing: " + command,
			"Command completed successfully.",
			"Use --help for more options.",
		},
		Type: session.Info,
	}
}

// Signatures lists the recognised command substrings in evaluation order.
func Signatures() []string {
	out := make([]string, len(signatures))
	for i, sig := range signatures {
		out[i] = sig.match
	}
	return out
}

func copyLines(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

// Host is one device in a simulated ping sweep.
type Host struct {
	IP     string `json:"ip"`
	MAC    string `json:"mac,omitempty"`
	Vendor string `json:"vendor,omitempty"`
}

// Canned result of "nmap -sn 192.168.1.0/24". The scanning host itself has
// no MAC line, as in real nmap output.
var discoveredHosts = []Host{
	{IP: "192.168.1.1", MAC: "00:1A:2B:3C:4D:5E", Vendor: "Netgear"},
	{IP: "192.168.1.10", MAC: "B8:27:EB:12:34:56", Vendor: "Raspberry Pi Foundation"},
	{IP: "192.168.1.23", MAC: "3C:22:FB:AA:BB:CC", Vendor: "Apple"},
	{IP: "192.168.1.42", MAC: "00:50:56:C0:00:08", Vendor: "VMware"},
	{IP: "192.168.1.100"},
}

// DiscoverHosts returns the simulated hosts of the local /24. The result is
// a fresh slice on every call.
func DiscoverHosts() []Host {
	out := make([]Host, len(discoveredHosts))
	copy(out, discoveredHosts)
	return out
}
