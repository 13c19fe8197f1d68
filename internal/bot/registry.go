package bot

import (
	"context"
	"time"

	"github.com/telehost/telehost/internal/metrics"
	"github.com/telehost/telehost/internal/telegram"
)

// Handler processes one update. Its result may carry auxiliary metrics
// that end up in the update's report. A nil result is treated as success
// with no auxiliary data.
type Handler func(ctx context.Context, u *telegram.Update) (*HandlerResult, error)

// HandlerResult is the optional payload a handler returns on success.
type HandlerResult struct {
	// Metrics is handler-supplied auxiliary data attached to the
	// update's report verbatim.
	Metrics map[string]any
}

// Entry pairs a filter with a handler under a stable name. Entries are
// immutable after registration.
type Entry struct {
	Name    string
	Filter  *Filter
	Handler Handler
}

// Registry is a bot's ordered handler table. Registration order defines
// match priority: Resolve picks the first entry whose filter matches.
// Registration happens at setup time, before traffic starts; Resolve is
// then safe to call from any number of concurrent dispatches.
type Registry struct {
	entries []*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an entry. A nil filter matches every update.
func (r *Registry) Register(name string, filter *Filter, handler Handler) {
	if filter == nil {
		filter = &Filter{}
	}
	r.entries = append(r.entries, &Entry{Name: name, Filter: filter, Handler: handler})
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Resolve returns the first entry whose filter matches the update, or nil
// when none does. Every evaluated filter is timed and reported through
// observe; a filter that fails counts as a non-match with its error
// recorded in the timing, never propagated.
func (r *Registry) Resolve(u *telegram.Update, observe func(metrics.FilterTiming)) *Entry {
	for _, e := range r.entries {
		start := time.Now()
		ok, err := e.Filter.Match(u)
		if observe != nil {
			timing := metrics.FilterTiming{Handler: e.Name, Duration: time.Since(start)}
			if err != nil {
				timing.Err = err.Error()
			}
			observe(timing)
		}
		if err != nil {
			continue
		}
		if ok {
			return e
		}
	}
	return nil
}
