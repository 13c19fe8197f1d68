package storage

import (
	"context"

	"github.com/telehost/telehost/internal/logger"
	"github.com/telehost/telehost/internal/metrics"
)

// ReportSink adapts the store to the metrics sink interface. Insert
// failures are logged and dropped; the dispatch path never sees them.
type ReportSink struct {
	store *Store
	log   *logger.Logger
}

// NewReportSink creates a sink writing to store.
func NewReportSink(store *Store, log *logger.Logger) *ReportSink {
	return &ReportSink{
		store: store,
		log:   log.WithModule("storage"),
	}
}

// Emit implements metrics.Sink.
func (s *ReportSink) Emit(ctx context.Context, r *metrics.UpdateReport) {
	if err := s.store.InsertReport(ctx, r); err != nil {
		s.log.WithError(err).
			WithBot(r.Bot).
			WithField("update_id", r.UpdateID).
			Error("Failed to log update report")
	}
}
