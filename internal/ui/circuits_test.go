package ui

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/skein-net/skein/internal/circuit"
)

func TestPathSummary(t *testing.T) {
	tests := []struct {
		name string
		c    circuit.Circuit
		want string
	}{
		{
			name: "relay nicknames win",
			c: circuit.Circuit{Relays: []circuit.Relay{
				{Nickname: "guard", Fingerprint: "AAAA000000000000000000000000000000000001"},
				{Nickname: "exit", Fingerprint: "AAAA000000000000000000000000000000000002"},
			}},
			want: "guard›exit",
		},
		{
			name: "fingerprint prefix when nickname missing",
			c: circuit.Circuit{Relays: []circuit.Relay{
				{Fingerprint: "AAAA000000000000000000000000000000000001"},
			}},
			want: "AAAA0000",
		},
		{
			name: "heuristic fingerprints and ips before relay list arrives",
			c: circuit.Circuit{
				Fingerprints: []string{"BBBB000000000000000000000000000000000001"},
				IPs:          []string{"10.0.0.9"},
			},
			want: "BBBB0000›10.0.0.9",
		},
		{
			name: "empty circuit",
			c:    circuit.Circuit{},
			want: "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pathSummary(tt.c); got != tt.want {
				t.Errorf("pathSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAgeString(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "-"},
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m30s"},
		{61 * time.Minute, "1h01m"},
	}
	for _, tt := range tests {
		if got := ageString(tt.d); got != tt.want {
			t.Errorf("ageString(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestExpiryString(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	if got := expiryString(circuit.Circuit{}, now); got != "-" {
		t.Errorf("expiryString(no expiry) = %q, want -", got)
	}
	c := circuit.Circuit{ExpiresAt: now.Add(45 * time.Second)}
	if got := expiryString(c, now); got != "45s" {
		t.Errorf("expiryString(45s out) = %q, want 45s", got)
	}
	c = circuit.Circuit{ExpiresAt: now.Add(-time.Second)}
	if got := expiryString(c, now); got != "expired" {
		t.Errorf("expiryString(past) = %q, want expired", got)
	}
}

func TestRateString(t *testing.T) {
	if got := rateString(nil); got != "-" {
		t.Errorf("rateString(nil) = %q, want -", got)
	}
	relays := []circuit.Relay{{RateMsat: 100}, {RateMsat: 20}, {}}
	if got := rateString(relays); got != "120 msat" {
		t.Errorf("rateString() = %q, want 120 msat", got)
	}
}

func TestPad(t *testing.T) {
	if got := pad("ab", 5); got != "ab   " {
		t.Errorf("pad short = %q", got)
	}
	if got := pad("abcdefgh", 5); got != "abc… " {
		t.Errorf("pad long = %q", got)
	}
}

// Relay operators pick their own nicknames, so the path cell has to
// truncate multibyte and wide runes on display-cell boundaries without
// ever cutting a rune in half.
func TestPad_MultibyteNicknames(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"nödé-relay", 6, "nödé… "},  // 2-byte runes, 1 cell each
		{"リレーガード", 5, "リ…  "}, // CJK runes, 2 cells each
		{"日本", 5, "日本 "},         // fits, pad to width
	}
	for _, tt := range tests {
		got := pad(tt.s, tt.width)
		if got != tt.want {
			t.Errorf("pad(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("pad(%q, %d) produced invalid UTF-8 %q", tt.s, tt.width, got)
		}
	}
}
