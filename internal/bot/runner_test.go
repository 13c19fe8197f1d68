package bot

import (
	"regexp"
	"strings"
	"testing"
)

var routeSuffix = regexp.MustCompile(`-[0-9a-f]{8}$`)

func newNamedRunner(t *testing.T, name string) *Runner {
	t.Helper()
	b, err := NewBot(name, nil)
	if err != nil {
		t.Fatalf("NewBot(%q) error = %v", name, err)
	}
	return NewRunner(b)
}

func TestWebhookRouteSanitization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		botName    string
		wantPrefix string
	}{
		{"simple", "helpbot", "helpbot"},
		{"mixed case", "HelpBot", "helpbot"},
		{"spaces to hyphens", "My Help Bot", "my-help-bot"},
		{"slashes to hyphens", "ops/alerts/bot", "ops-alerts-bot"},
		{"backslashes and underscores", `ops\alerts_bot`, "ops-alerts-bot"},
		{"whitespace runs collapse", "a \t\n  b", "a-b"},
		{"leading and trailing junk", "  --bot--  ", "bot"},
		{"query-unsafe characters dropped", "bot?a=1&b=2#frag", "bota1b2frag"},
		{"unicode kept", "機器人", "機器人"},
		{"mixed unicode and ascii", "Bot 機器人 2", "bot-機器人-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			route := newNamedRunner(t, tt.botName).WebhookRoute()
			if !strings.HasPrefix(route, tt.wantPrefix+"-") {
				t.Errorf("WebhookRoute(%q) = %q, want prefix %q", tt.botName, route, tt.wantPrefix)
			}
			if !routeSuffix.MatchString(route) {
				t.Errorf("WebhookRoute(%q) = %q, want hex digest suffix", tt.botName, route)
			}
		})
	}
}

func TestWebhookRoutePathologicalNames(t *testing.T) {
	t.Parallel()

	// Names that sanitize to nothing still get a usable route.
	for _, name := range []string{"!!!", "???", "   ", "///", "\t\n"} {
		route := newNamedRunner(t, name).WebhookRoute()
		if route == "" {
			t.Errorf("WebhookRoute(%q) is empty", name)
		}
		if strings.ContainsAny(route, " /\\?#") {
			t.Errorf("WebhookRoute(%q) = %q contains unsafe characters", name, route)
		}
	}
}

func TestWebhookRouteDeterministic(t *testing.T) {
	t.Parallel()
	a := newNamedRunner(t, "stable bot").WebhookRoute()
	b := newNamedRunner(t, "stable bot").WebhookRoute()
	if a != b {
		t.Errorf("WebhookRoute() not deterministic: %q vs %q", a, b)
	}
}

func TestWebhookRouteDistinctForDistinctNames(t *testing.T) {
	t.Parallel()

	// Pairs that collide after sanitization alone.
	names := []string{
		"help bot", "help-bot", "Help Bot", "help/bot", "help_bot",
		"!!!", "???", "bot", "bot!", "b ot",
	}
	seen := make(map[string]string, len(names))
	for _, name := range names {
		route := newNamedRunner(t, name).WebhookRoute()
		if prior, ok := seen[route]; ok {
			t.Errorf("names %q and %q share route %q", prior, name, route)
		}
		seen[route] = name
	}
}

func TestWebhookRouteNeverContainsToken(t *testing.T) {
	t.Parallel()
	const token = "123456:SECRET-TOKEN-VALUE"
	route := newNamedRunner(t, "token bot").WebhookRoute()
	if strings.Contains(route, token) || strings.Contains(route, "SECRET") {
		t.Errorf("WebhookRoute() = %q leaks credentials", route)
	}
}
