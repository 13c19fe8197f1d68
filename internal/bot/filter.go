package bot

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/telehost/telehost/internal/telegram"
)

// Filter decides whether a handler wants an update. Criteria that are set
// are combined with AND; a zero Filter matches every update. Filters must
// be effectively pure: resolution may evaluate a filter many times across
// updates and never rolls back its side effects.
type Filter struct {
	// Kinds restricts matches to the listed update kinds
	// (telegram.KindMessage and friends). Empty means any kind.
	Kinds []string

	// Commands matches message updates whose text is a bot command,
	// compared without the leading slash or @botname suffix.
	Commands []string

	// Regexp matches message updates whose text or caption matches.
	Regexp *regexp.Regexp

	// ContentTypes matches message updates by payload classification
	// (telegram.ContentText and friends).
	ContentTypes []string

	// Predicate is a caller-supplied check, evaluated last. It may fail;
	// a failing predicate counts as a non-match and is reported through
	// the per-update timing breakdown.
	Predicate func(u *telegram.Update) (bool, error)
}

// Match reports whether the update satisfies every criterion set on the
// filter. The error return is non-nil only when Predicate fails.
func (f *Filter) Match(u *telegram.Update) (bool, error) {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, u.Kind()) {
		return false, nil
	}

	msg := messageOf(u)

	if len(f.Commands) > 0 {
		if msg == nil {
			return false, nil
		}
		cmd, ok := msg.Command()
		if !ok || !slices.Contains(f.Commands, cmd) {
			return false, nil
		}
	}

	if f.Regexp != nil {
		if msg == nil {
			return false, nil
		}
		text := msg.Text
		if text == "" {
			text = msg.Caption
		}
		if !f.Regexp.MatchString(text) {
			return false, nil
		}
	}

	if len(f.ContentTypes) > 0 {
		if msg == nil || !slices.Contains(f.ContentTypes, msg.ContentType()) {
			return false, nil
		}
	}

	if f.Predicate != nil {
		ok, err := f.Predicate(u)
		if err != nil {
			return false, fmt.Errorf("filter predicate: %w", err)
		}
		return ok, nil
	}

	return true, nil
}

// Any combines filters with OR: the result matches when at least one of
// the given filters matches. A failing member counts as a non-match but
// the failure is still surfaced if no other member matches.
func Any(filters ...*Filter) *Filter {
	return &Filter{
		Predicate: func(u *telegram.Update) (bool, error) {
			var firstErr error
			for _, f := range filters {
				ok, err := f.Match(u)
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				if ok {
					return true, nil
				}
			}
			return false, firstErr
		},
	}
}

// All combines filters with AND.
func All(filters ...*Filter) *Filter {
	return &Filter{
		Predicate: func(u *telegram.Update) (bool, error) {
			for _, f := range filters {
				ok, err := f.Match(u)
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		},
	}
}

// messageOf returns the message payload that message-level criteria apply
// to. Edited messages and channel posts are messages too.
func messageOf(u *telegram.Update) *telegram.Message {
	return u.MessageEvent()
}
