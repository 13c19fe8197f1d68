package metrics

import (
	"context"
	"time"
)

// Outcome classifies how dispatching a single update ended.
type Outcome string

const (
	// OutcomeSuccess means a handler matched and returned without error.
	OutcomeSuccess Outcome = "success"
	// OutcomeError means the matched handler returned an error or panicked.
	OutcomeError Outcome = "error"
	// OutcomeUnhandled means no registered filter matched the update.
	OutcomeUnhandled Outcome = "unhandled"
	// OutcomeUndecodable means the raw payload could not be decoded.
	OutcomeUndecodable Outcome = "undecodable"
)

// FilterTiming records one filter evaluation during handler resolution.
// A non-empty Err means the filter failed and was treated as a non-match.
type FilterTiming struct {
	Handler  string        `json:"handler"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// MessageInfo carries message-level correlation fields for message updates.
type MessageInfo struct {
	ContentType string `json:"content_type"`
	IsForwarded bool   `json:"is_forwarded"`
	IsReply     bool   `json:"is_reply"`
}

// UpdateReport is the per-update metrics record. The dispatcher creates one
// at dispatch start, finalizes it exactly once at dispatch end, and hands it
// to the configured Sink. It is not retained by the dispatch path afterward.
type UpdateReport struct {
	Bot        string    `json:"bot"`
	UpdateID   int64     `json:"update_id"`
	UpdateType string    `json:"update_type,omitempty"`
	ReceivedAt time.Time `json:"received_at"`

	// HandlerName is empty when no handler matched.
	HandlerName string `json:"handler_name,omitempty"`

	// FilterTimings holds one entry per candidate filter evaluated, in
	// registration order, ending with the matched one (if any).
	FilterTimings []FilterTiming `json:"filter_timings,omitempty"`

	ProcessingDuration time.Duration `json:"processing_duration"`

	Outcome      Outcome `json:"outcome"`
	ErrorType    string  `json:"error_type,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`

	// UserIDHash is a hash of the sending user's id, never the raw id.
	UserIDHash   string       `json:"user_id_hash,omitempty"`
	LanguageCode string       `json:"language_code,omitempty"`
	MessageInfo  *MessageInfo `json:"message_info,omitempty"`

	// HandlerData carries auxiliary data the handler chose to attach.
	HandlerData map[string]any `json:"handler_data,omitempty"`
}

// Sink consumes finalized update reports.
type Sink interface {
	Emit(ctx context.Context, r *UpdateReport)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, r *UpdateReport)

// Emit calls f(ctx, r).
func (f SinkFunc) Emit(ctx context.Context, r *UpdateReport) { f(ctx, r) }

// MultiSink fans a report out to several sinks. A panicking sink is
// contained so it cannot break the dispatch path or starve later sinks.
type MultiSink []Sink

// Emit delivers r to every sink in order.
func (m MultiSink) Emit(ctx context.Context, r *UpdateReport) {
	for _, s := range m {
		if s == nil {
			continue
		}
		emitSafely(ctx, s, r)
	}
}

func emitSafely(ctx context.Context, s Sink, r *UpdateReport) {
	defer func() {
		_ = recover()
	}()
	s.Emit(ctx, r)
}
