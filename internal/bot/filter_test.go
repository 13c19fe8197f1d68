package bot

import (
	"errors"
	"regexp"
	"testing"

	"github.com/telehost/telehost/internal/telegram"
)

func textUpdate(id int64, text string) *telegram.Update {
	return &telegram.Update{
		UpdateID: id,
		Message: &telegram.Message{
			MessageID: id,
			Text:      text,
			Chat:      telegram.Chat{ID: 1, Type: "private"},
			From:      &telegram.User{ID: 42, FirstName: "Tester", LanguageCode: "en"},
		},
	}
}

func TestFilterMatch(t *testing.T) {
	t.Parallel()

	stickerUpdate := &telegram.Update{
		UpdateID: 7,
		Message: &telegram.Message{
			MessageID: 7,
			Chat:      telegram.Chat{ID: 1, Type: "private"},
			Sticker:   &telegram.Sticker{FileID: "abc"},
		},
	}
	callbackUpdate := &telegram.Update{
		UpdateID: 8,
		CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb1",
			From: telegram.User{ID: 42},
			Data: "page$2",
		},
	}

	tests := []struct {
		name   string
		filter *Filter
		update *telegram.Update
		want   bool
	}{
		{"zero filter matches anything", &Filter{}, callbackUpdate, true},
		{"command match", &Filter{Commands: []string{"start", "help"}}, textUpdate(1, "/start"), true},
		{"command with bot suffix", &Filter{Commands: []string{"start"}}, textUpdate(1, "/start@help_bot now"), true},
		{"command mismatch", &Filter{Commands: []string{"start"}}, textUpdate(1, "/stop"), false},
		{"command against plain text", &Filter{Commands: []string{"start"}}, textUpdate(1, "start"), false},
		{"command against non-message", &Filter{Commands: []string{"start"}}, callbackUpdate, false},
		{"regexp match", &Filter{Regexp: regexp.MustCompile(`(?i)^hello`)}, textUpdate(1, "Hello there"), true},
		{"regexp mismatch", &Filter{Regexp: regexp.MustCompile(`^hello`)}, textUpdate(1, "goodbye"), false},
		{"content type match", &Filter{ContentTypes: []string{telegram.ContentSticker}}, stickerUpdate, true},
		{"content type mismatch", &Filter{ContentTypes: []string{telegram.ContentText}}, stickerUpdate, false},
		{"kind match", &Filter{Kinds: []string{telegram.KindCallbackQuery}}, callbackUpdate, true},
		{"kind mismatch", &Filter{Kinds: []string{telegram.KindMessage}}, callbackUpdate, false},
		{
			"criteria are combined with AND",
			&Filter{Kinds: []string{telegram.KindMessage}, Commands: []string{"start"}},
			textUpdate(1, "/help"),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.filter.Match(tt.update)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterPredicateError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	f := &Filter{Predicate: func(*telegram.Update) (bool, error) { return false, boom }}

	ok, err := f.Match(textUpdate(1, "hi"))
	if ok {
		t.Error("Match() = true, want false on predicate failure")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Match() error = %v, want wrapped boom", err)
	}
}

func TestAnyCombinator(t *testing.T) {
	t.Parallel()
	f := Any(
		&Filter{Commands: []string{"start"}},
		&Filter{ContentTypes: []string{telegram.ContentSticker}},
	)

	if ok, _ := f.Match(textUpdate(1, "/start")); !ok {
		t.Error("Any() should match the first branch")
	}
	sticker := &telegram.Update{
		UpdateID: 2,
		Message:  &telegram.Message{Sticker: &telegram.Sticker{FileID: "x"}},
	}
	if ok, _ := f.Match(sticker); !ok {
		t.Error("Any() should match the second branch")
	}
	if ok, _ := f.Match(textUpdate(3, "plain")); ok {
		t.Error("Any() should not match when no branch matches")
	}
}

func TestAnySurfacesErrorOnlyWithoutMatch(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	failing := &Filter{Predicate: func(*telegram.Update) (bool, error) { return false, boom }}

	withFallback := Any(failing, &Filter{Commands: []string{"start"}})
	if ok, err := withFallback.Match(textUpdate(1, "/start")); !ok || err != nil {
		t.Errorf("Match() = (%v, %v), want match despite failing sibling", ok, err)
	}

	onlyFailing := Any(failing)
	if _, err := onlyFailing.Match(textUpdate(1, "/start")); !errors.Is(err, boom) {
		t.Errorf("Match() error = %v, want boom when nothing matched", err)
	}
}

func TestAllCombinator(t *testing.T) {
	t.Parallel()
	f := All(
		&Filter{Kinds: []string{telegram.KindMessage}},
		&Filter{Regexp: regexp.MustCompile(`^\d+$`)},
	)

	if ok, _ := f.Match(textUpdate(1, "12345")); !ok {
		t.Error("All() should match when every member matches")
	}
	if ok, _ := f.Match(textUpdate(2, "words")); ok {
		t.Error("All() should not match when a member does not")
	}
}
