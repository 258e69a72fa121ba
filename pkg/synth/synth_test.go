package synth

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/miniheartx/heartx/pkg/session"
)

func containsLine(lines []string, sub string) bool {
	for _, l := range lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func TestSynthesizeKnownCommands(t *testing.T) {
	cases := []struct {
		command string
		typ     session.Classification
		marker  string
	}{
		{"nmap -p 443 192.168.1.1", session.Success, "443/tcp"},
		{"netstat -tulpn <target>", session.Success, "Active Internet connections"},
		{"tcpdump -i <target>", session.Success, "packets captured"},
		{"hydra -l root -P passwords.txt ssh:// 10.0.0.1", session.Success, "attacking ssh://"},
		{"# could not translate: \"x\"", session.Error, "translation failed"},
		{"sqlmap -u <target>", session.Info, "Executing: sqlmap -u <target>"},
	}
	for _, tc := range cases {
		out := Synthesize(tc.command)
		if out.Type != tc.typ {
			t.Fatalf("%q: type = %q, want %q", tc.command, out.Type, tc.typ)
		}
		if !containsLine(out.Lines, tc.marker) {
			t.Fatalf("%q: no line containing %q in %v", tc.command, tc.marker, out.Lines)
		}
	}
}

func TestSynthesizeIsDeterministicAndIsolated(t *testing.T) {
	first := Synthesize("nmap -sS 10.0.0.1")
	first.Lines[0] = "mutated"
	second := Synthesize("nmap -sS 10.0.0.1")
	if second.Lines[0] == "mutated" {
		t.Fatal("Synthesize must return a fresh slice")
	}
	third := Synthesize("nmap -sS 10.0.0.1")
	if diff := cmp.Diff(second, third); diff != "" {
		t.Fatalf("output not deterministic (-second +third):\n%s", diff)
	}
}

func TestSignaturesEnumerable(t *testing.T) {
	want := []string{"nmap", "netstat", "tcpdump", "hydra"}
	if diff := cmp.Diff(want, Signatures()); diff != "" {
		t.Fatalf("signatures (-want +got):\n%s", diff)
	}
}

func TestDiscoverHostsReturnsCopy(t *testing.T) {
	hosts := DiscoverHosts()
	if len(hosts) == 0 {
		t.Fatal("expected simulated hosts")
	}
	if hosts[0].IP != "192.168.1.1" || hosts[0].Vendor != "Netgear" {
		t.Fatalf("first host = %+v", hosts[0])
	}
	last := hosts[len(hosts)-1]
	if last.MAC != "" || last.Vendor != "" {
		t.Fatalf("scanning host should have no MAC: %+v", last)
	}

	hosts[0].IP = "10.0.0.1"
	if diff := cmp.Diff("192.168.1.1", DiscoverHosts()[0].IP); diff != "" {
		t.Fatalf("DiscoverHosts shares state (-want +got):\n%s", diff)
	}
}
