// Package echo implements the built-in echo bot: command handlers for
// /start and /help, a text echo fallback, and a guarded background job
// that periodically logs usage counts. It doubles as the reference for
// how hosted bots register handlers and jobs.
package echo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/telehost/telehost/internal/bot"
	"github.com/telehost/telehost/internal/logger"
	"github.com/telehost/telehost/internal/shutdown"
	"github.com/telehost/telehost/internal/telegram"
)

// ModuleName is the default bot name when none is configured.
const ModuleName = "echo"

const helpText = "I am an echo bot.\n" +
	"/start - this message\n" +
	"/help - this message\n" +
	"Anything else I say right back."

// Module holds the echo bot's state.
type Module struct {
	name   string
	api    *telegram.Client
	log    *logger.Logger
	echoed atomic.Int64
}

// New creates the module. The name is the hosted bot's identity; empty
// falls back to ModuleName. The API client may be nil in tests; handlers
// then skip sending replies.
func New(name string, api *telegram.Client, log *logger.Logger) *Module {
	if name == "" {
		name = ModuleName
	}
	return &Module{
		name: name,
		api:  api,
		log:  log.WithModule(ModuleName).WithBot(name),
	}
}

// NewRunner builds the hosted bot: handler registrations plus the stats
// job, guarded through the coordinator.
func (m *Module) NewRunner(coordinator *shutdown.Coordinator, statsInterval time.Duration) (*bot.Runner, error) {
	b, err := bot.NewBot(m.name, m.api)
	if err != nil {
		return nil, fmt.Errorf("create echo bot: %w", err)
	}
	b.Handle("commands", &bot.Filter{Commands: []string{"start", "help"}}, m.handleCommand)
	b.Handle("echo", &bot.Filter{ContentTypes: []string{telegram.ContentText}}, m.handleEcho)

	return bot.NewRunner(b, bot.Job{
		Name: "stats",
		Run:  m.statsJob(coordinator, statsInterval),
	}), nil
}

// Echoed returns how many messages were echoed back.
func (m *Module) Echoed() int64 {
	return m.echoed.Load()
}

func (m *Module) handleCommand(ctx context.Context, u *telegram.Update) (*bot.HandlerResult, error) {
	// The commands filter matches edited messages and channel posts too,
	// so the payload must be resolved the same way the filter does.
	msg := u.MessageEvent()
	cmd, _ := msg.Command()
	if err := m.reply(ctx, msg, helpText); err != nil {
		return nil, err
	}
	return &bot.HandlerResult{Metrics: map[string]any{"command": cmd}}, nil
}

func (m *Module) handleEcho(ctx context.Context, u *telegram.Update) (*bot.HandlerResult, error) {
	msg := u.MessageEvent()
	if err := m.reply(ctx, msg, msg.Text); err != nil {
		return nil, err
	}
	echoed := m.echoed.Add(1)
	return &bot.HandlerResult{Metrics: map[string]any{"echoed_total": echoed}}, nil
}

func (m *Module) reply(ctx context.Context, msg *telegram.Message, text string) error {
	if m.api == nil {
		return nil
	}
	if _, err := m.api.SendMessage(ctx, msg.Chat.ID, text); err != nil {
		return fmt.Errorf("send echo reply: %w", err)
	}
	return nil
}

// statsJob logs usage counts on the given interval. The flush itself is
// guarded so a shutdown signal waits for an in-progress flush, while the
// idle wait between ticks never blocks shutdown.
func (m *Module) statsJob(coordinator *shutdown.Coordinator, interval time.Duration) func(ctx context.Context) error {
	if interval <= 0 {
		interval = time.Minute
	}
	return func(ctx context.Context) error {
		guard := shutdown.NewGuard(coordinator, "echo stats flush")
		defer guard.Close()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				guard.Do(func() {
					m.log.WithField("echoed_total", m.echoed.Load()).Info("Echo usage stats")
				})
			}
		}
	}
}
