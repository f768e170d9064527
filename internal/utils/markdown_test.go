package utils

import (
	"strings"
	"testing"
)

func TestRenderTelegramHTML(t *testing.T) {
	out := RenderTelegramHTML("**Open air** concert\n\nBring <script>alert(1)</script> friends")

	if !strings.Contains(out, "<strong>Open air</strong>") {
		t.Errorf("bold not rendered: %q", out)
	}
	if strings.Contains(out, "<script") || strings.Contains(out, "<p>") {
		t.Errorf("disallowed tag leaked: %q", out)
	}
	if !strings.Contains(out, "\n\n") {
		t.Errorf("paragraph break lost: %q", out)
	}
}

func TestStripHTML(t *testing.T) {
	if got := StripHTML("  <b>Hi</b> & bye "); got != "Hi & bye" {
		t.Errorf("StripHTML = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("привет", 10); got != "привет" {
		t.Errorf("short string changed: %q", got)
	}
	if got := Truncate("привет", 4); got != "при…" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestParseUintAcceptsPositive(t *testing.T) {
	if v, ok := ParseUint("42"); !ok || v != 42 {
		t.Errorf("ParseUint(42) = %d, %v", v, ok)
	}
	for _, s := range []string{"0", "-1", "x", ""} {
		if _, ok := ParseUint(s); ok {
			t.Errorf("ParseUint(%q) accepted", s)
		}
	}
}
