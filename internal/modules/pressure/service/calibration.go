package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JorgeS15/AirLab/internal/modules/pressure/repository"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/types"
)

// Calibrator changes the offsets used by an Acquisition. Every change is
// persisted before the filter windows are cleared, and only then recorded in
// the history.
type Calibrator struct {
	acq     *Acquisition
	store   repository.OffsetStore
	history repository.HistoryRepository

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// NewCalibrator builds a Calibrator. history may be nil, in which case events
// are not recorded.
func NewCalibrator(acq *Acquisition, store repository.OffsetStore, history repository.HistoryRepository) *Calibrator {
	return &Calibrator{
		acq:     acq,
		store:   store,
		history: history,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// CalibrateZero makes the current raw reading of every channel read 0 mbar.
// On a source or persistence failure nothing changes.
func (c *Calibrator) CalibrateZero() (types.Offsets, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.acq.ReadRaw()
	if err != nil {
		return nil, err
	}

	channels := c.acq.Channels()
	offsets := make(types.Offsets, len(channels))
	for i, ch := range channels {
		offsets[ch] = ZeroOffset(raw[i])
	}

	if err := c.apply(offsets); err != nil {
		return nil, err
	}
	slog.Info("calibrated to zero", "offsets", offsets)
	c.record(types.CalibrationZero, offsets)
	return offsets, nil
}

// ResetCalibration sets every offset back to zero.
func (c *Calibrator) ResetCalibration() (types.Offsets, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	offsets := repository.ZeroOffsets(c.acq.Channels())
	if err := c.apply(offsets); err != nil {
		return nil, err
	}
	slog.Info("calibration reset")
	c.record(types.CalibrationReset, offsets)
	return offsets, nil
}

// Offsets returns the persisted offsets.
func (c *Calibrator) Offsets() types.Offsets {
	return c.store.Load()
}

// History returns up to limit calibration events, newest first.
func (c *Calibrator) History(limit int) ([]types.CalibrationEvent, error) {
	if c.history == nil {
		return []types.CalibrationEvent{}, nil
	}
	return c.history.GetEvents(limit)
}

func (c *Calibrator) apply(offsets types.Offsets) error {
	return c.acq.exclusive(func() error {
		if err := c.store.Save(offsets); err != nil {
			return err
		}
		c.acq.Filters().ClearAll()
		return nil
	})
}

func (c *Calibrator) record(kind types.CalibrationKind, offsets types.Offsets) {
	if c.history == nil {
		return
	}
	ev := types.CalibrationEvent{
		ID:        c.newID(),
		Kind:      kind,
		Offsets:   offsets,
		CreatedAt: c.now().UTC(),
	}
	if err := c.history.InsertEvent(ev); err != nil {
		slog.Error("failed to record calibration event", "kind", kind, "error", err)
	}
}
