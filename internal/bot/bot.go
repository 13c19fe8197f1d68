// Package bot provides the handler registry, filter model and update
// dispatcher shared by every hosted bot. A bot owns an ordered table of
// (filter, handler) pairs; the dispatcher resolves each inbound update to
// at most one handler and emits one report per update to the metrics sink.
package bot

import (
	"errors"

	"github.com/telehost/telehost/internal/telegram"
)

// Bot is one hosted bot instance: its identity, API client and handler
// table. Register handlers before hosting the bot; the registry is read
// concurrently once traffic starts.
type Bot struct {
	name     string
	api      *telegram.Client
	registry *Registry
}

// NewBot creates a bot with an empty registry. The name is the
// human-readable identity routes are derived from; it must be non-empty.
func NewBot(name string, api *telegram.Client) (*Bot, error) {
	if name == "" {
		return nil, errors.New("bot name must not be empty")
	}
	return &Bot{
		name:     name,
		api:      api,
		registry: NewRegistry(),
	}, nil
}

// Name returns the bot's human-readable name.
func (b *Bot) Name() string {
	return b.name
}

// API returns the bot's outbound API client.
func (b *Bot) API() *telegram.Client {
	return b.api
}

// Registry returns the bot's handler table.
func (b *Bot) Registry() *Registry {
	return b.registry
}

// Handle registers a handler on the bot's registry.
func (b *Bot) Handle(name string, filter *Filter, handler Handler) {
	b.registry.Register(name, filter, handler)
}
