package repository

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/JorgeS15/AirLab/internal/modules/pressure/types"
)

//go:embed sql/insert-calibration-event.sql
var insertCalibrationEventSQL string

//go:embed sql/get-calibration-events.sql
var getCalibrationEventsSQL string

// Fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

type HistoryRepository interface {
	InsertEvent(ev types.CalibrationEvent) error
	// GetEvents returns up to limit events, newest first.
	GetEvents(limit int) ([]types.CalibrationEvent, error)
}

type historyRepositoryImpl struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) HistoryRepository {
	return &historyRepositoryImpl{db: db}
}

func (r *historyRepositoryImpl) InsertEvent(ev types.CalibrationEvent) error {
	offsets, err := json.Marshal(ev.Offsets)
	if err != nil {
		return fmt.Errorf("encode offsets: %w", err)
	}
	ts := ev.CreatedAt.UTC().Format(createdAtLayout)
	if _, err := r.db.Exec(insertCalibrationEventSQL, ev.ID, string(ev.Kind), string(offsets), ts); err != nil {
		return fmt.Errorf("insert calibration event: %w", err)
	}
	return nil
}

func (r *historyRepositoryImpl) GetEvents(limit int) ([]types.CalibrationEvent, error) {
	rows, err := r.db.Query(getCalibrationEventsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close calibration events rows", "error", err)
		}
	}()

	out := []types.CalibrationEvent{}
	for rows.Next() {
		var (
			ev      types.CalibrationEvent
			kind    string
			offsets string
			ts      string
		)
		if err := rows.Scan(&ev.ID, &kind, &offsets, &ts); err != nil {
			return nil, err
		}
		ev.Kind = types.CalibrationKind(kind)
		if err := json.Unmarshal([]byte(offsets), &ev.Offsets); err != nil {
			return nil, fmt.Errorf("decode offsets of event %s: %w", ev.ID, err)
		}
		t, err := time.Parse(createdAtLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		ev.CreatedAt = t
		out = append(out, ev)
	}
	return out, rows.Err()
}
