package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/telehost/telehost/internal/metrics"
)

// StoredReport is one row of the report log as read back for queries.
type StoredReport struct {
	ID                 int64
	Bot                string
	UpdateID           int64
	UpdateType         string
	ReceivedAt         time.Time
	HandlerName        string
	Outcome            string
	ErrorType          string
	ErrorMessage       string
	ProcessingDuration time.Duration
}

// InsertReport appends one report to the log.
func (s *Store) InsertReport(ctx context.Context, r *metrics.UpdateReport) error {
	var contentType string
	var isForwarded, isReply bool
	if r.MessageInfo != nil {
		contentType = r.MessageInfo.ContentType
		isForwarded = r.MessageInfo.IsForwarded
		isReply = r.MessageInfo.IsReply
	}

	filterTimings, err := encodeJSON(r.FilterTimings)
	if err != nil {
		return fmt.Errorf("failed to encode filter timings: %w", err)
	}
	handlerData, err := encodeJSON(r.HandlerData)
	if err != nil {
		return fmt.Errorf("failed to encode handler data: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO update_reports (
			bot, update_id, update_type, received_at, handler_name,
			outcome, error_type, error_message, processing_us,
			user_id_hash, language_code, content_type, is_forwarded, is_reply,
			filter_timings, handler_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Bot, r.UpdateID, r.UpdateType, r.ReceivedAt.Unix(), r.HandlerName,
		string(r.Outcome), r.ErrorType, r.ErrorMessage, r.ProcessingDuration.Microseconds(),
		r.UserIDHash, r.LanguageCode, contentType, isForwarded, isReply,
		filterTimings, handlerData,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// CountReports returns the total number of logged reports.
func (s *Store) CountReports(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM update_reports`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// RecentReports returns the most recently received reports, newest first.
func (s *Store) RecentReports(ctx context.Context, limit int) ([]StoredReport, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, bot, update_id, update_type, received_at, handler_name,
		       outcome, error_type, error_message, processing_us
		FROM update_reports
		ORDER BY received_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent reports: %w", err)
	}
	defer rows.Close()

	var reports []StoredReport
	for rows.Next() {
		var r StoredReport
		var receivedAt, processingUS int64
		if err := rows.Scan(
			&r.ID, &r.Bot, &r.UpdateID, &r.UpdateType, &receivedAt, &r.HandlerName,
			&r.Outcome, &r.ErrorType, &r.ErrorMessage, &processingUS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r.ReceivedAt = time.Unix(receivedAt, 0)
		r.ProcessingDuration = time.Duration(processingUS) * time.Microsecond
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

// PurgeReportsBefore deletes reports received before the cutoff and
// returns how many rows were removed. The maintenance job runs it on the
// retention schedule.
func (s *Store) PurgeReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM update_reports WHERE received_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge reports: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge count: %w", err)
	}
	return deleted, nil
}

// OutcomeCounts returns the number of logged reports per outcome.
func (s *Store) OutcomeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM update_reports GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcome counts: %w", err)
	}
	return counts, nil
}

func encodeJSON(v any) (string, error) {
	switch typed := v.(type) {
	case nil:
		return "", nil
	case []metrics.FilterTiming:
		if len(typed) == 0 {
			return "", nil
		}
	case map[string]any:
		if len(typed) == 0 {
			return "", nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
