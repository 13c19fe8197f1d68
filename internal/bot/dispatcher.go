package bot

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/telehost/telehost/internal/logger"
	"github.com/telehost/telehost/internal/metrics"
	"github.com/telehost/telehost/internal/telegram"
)

// Dispatcher routes raw inbound payloads through a bot's registry and
// reports every outcome to the metrics sink. Dispatch never returns an
// error and never panics: malformed payloads, failing filters and failing
// handlers are all contained here so the HTTP listener can keep answering
// 200 and the remote side never backs off delivery.
type Dispatcher struct {
	sink metrics.Sink
	log  *logger.Logger
}

// NewDispatcher creates a dispatcher emitting reports to sink. A nil sink
// discards reports.
func NewDispatcher(sink metrics.Sink, log *logger.Logger) *Dispatcher {
	if sink == nil {
		sink = metrics.SinkFunc(func(context.Context, *metrics.UpdateReport) {})
	}
	return &Dispatcher{
		sink: sink,
		log:  log.WithModule("dispatcher"),
	}
}

// Dispatch decodes raw into an update, resolves a handler on b's registry
// and invokes it. Exactly one report is emitted per call, whatever the
// outcome. Concurrent dispatches are independent; no ordering is
// guaranteed between updates, even for the same bot.
func (d *Dispatcher) Dispatch(ctx context.Context, b *Bot, raw []byte) {
	report := &metrics.UpdateReport{
		Bot:        b.Name(),
		ReceivedAt: time.Now(),
	}
	start := time.Now()
	defer func() {
		report.ProcessingDuration = time.Since(start)
		d.sink.Emit(ctx, report)
	}()

	log := d.log.WithBot(b.Name())

	u, err := telegram.DecodeUpdate(raw)
	if err != nil {
		report.Outcome = metrics.OutcomeUndecodable
		report.ErrorType = fmt.Sprintf("%T", err)
		report.ErrorMessage = err.Error()
		log.WithError(err).
			WithField("synthetic_id", uuid.NewString()).
			Warn("Discarding undecodable update")
		return
	}

	report.UpdateID = u.UpdateID
	report.UpdateType = u.Kind()
	d.correlate(report, u)

	entry := b.Registry().Resolve(u, func(t metrics.FilterTiming) {
		report.FilterTimings = append(report.FilterTimings, t)
		if t.Err != "" {
			log.WithField("handler", t.Handler).
				WithField("error", t.Err).
				Warn("Filter failed, treating as non-match")
		}
	})
	if entry == nil {
		report.Outcome = metrics.OutcomeUnhandled
		log.WithField("update_id", u.UpdateID).
			WithField("update_type", u.Kind()).
			Debug("No handler matched update")
		return
	}

	report.HandlerName = entry.Name
	result, err := d.invoke(ctx, entry, u)
	if err != nil {
		report.Outcome = metrics.OutcomeError
		report.ErrorType = fmt.Sprintf("%T", err)
		report.ErrorMessage = err.Error()
		log.WithError(err).
			WithField("handler", entry.Name).
			WithField("update_id", u.UpdateID).
			Error("Handler failed")
		return
	}

	report.Outcome = metrics.OutcomeSuccess
	if result != nil && len(result.Metrics) > 0 {
		report.HandlerData = result.Metrics
	}
}

// invoke runs the handler with panic containment. A panicking handler is
// reported as an error outcome, not rethrown.
func (d *Dispatcher) invoke(ctx context.Context, entry *Entry, u *telegram.Update) (result *HandlerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return entry.Handler(ctx, u)
}

// correlate fills the report's per-update correlation fields.
func (d *Dispatcher) correlate(report *metrics.UpdateReport, u *telegram.Update) {
	if from := u.From(); from != nil {
		report.UserIDHash = hashUserID(from.ID)
		report.LanguageCode = from.LanguageCode
	}
	if msg := messageOf(u); msg != nil {
		report.MessageInfo = &metrics.MessageInfo{
			ContentType: msg.ContentType(),
			IsForwarded: msg.IsForwarded(),
			IsReply:     msg.IsReply(),
		}
	}
}

// hashUserID hashes a user id so reports carry correlation without raw
// identifiers.
func hashUserID(id int64) string {
	sum := md5.Sum([]byte(strconv.FormatInt(id, 10)))
	return hex.EncodeToString(sum[:])
}
