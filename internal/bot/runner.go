package bot

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"
)

// Job is a named background task a runner keeps alive while its bot is
// hosted. Run must honor ctx cancellation; the host cancels it when the
// runner is removed or the process shuts down.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner bundles a bot with its background jobs for hosting. The webhook
// host derives the bot's route from the runner and supervises its jobs.
type Runner struct {
	Bot  *Bot
	Jobs []Job
}

// NewRunner creates a runner for b with the given background jobs.
func NewRunner(b *Bot, jobs ...Job) *Runner {
	return &Runner{Bot: b, Jobs: jobs}
}

// WebhookRoute derives the runner's route segment from the bot's name.
// The segment is the sanitized name plus a short digest of the original
// name, so distinct names always yield distinct routes and a name that
// sanitizes to nothing still yields a usable one. The route never
// contains the bot token.
func (r *Runner) WebhookRoute() string {
	name := r.Bot.Name()
	sanitized := sanitizeRouteName(name)
	sum := md5.Sum([]byte(name))
	suffix := hex.EncodeToString(sum[:])[:8]
	if sanitized == "" {
		return suffix
	}
	return sanitized + "-" + suffix
}

// sanitizeRouteName lowercases ASCII, maps whitespace and slashes to
// hyphens, keeps letters, digits and non-ASCII runes, and drops the
// rest. Runs of hyphens collapse to one and leading/trailing hyphens are
// trimmed.
func sanitizeRouteName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '/', r == '\\', r == '-', r == '_':
			b.WriteRune('-')
		case r > unicode.MaxASCII && unicode.IsGraphic(r):
			b.WriteRune(r)
		}
	}

	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	return strings.Join(parts, "-")
}
