package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JorgeS15/AirLab/internal/modules/pressure/repository"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/types"
)

type fakeHistory struct {
	mu        sync.Mutex
	events    []types.CalibrationEvent
	insertErr error
}

func (h *fakeHistory) InsertEvent(ev types.CalibrationEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.insertErr != nil {
		return h.insertErr
	}
	h.events = append(h.events, ev)
	return nil
}

func (h *fakeHistory) GetEvents(limit int) ([]types.CalibrationEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []types.CalibrationEvent{}
	for i := len(h.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.events[i])
	}
	return out, nil
}

func newTestCalibrator(t *testing.T, store repository.OffsetStore, history repository.HistoryRepository) (*Calibrator, *Acquisition, string) {
	t.Helper()
	acq, path := newTestAcquisition(t, store)
	c := NewCalibrator(acq, store, history)
	c.now = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) }
	n := 0
	c.newID = func() string {
		n++
		return fmt.Sprintf("event-%d", n)
	}
	return c, acq, path
}

func TestCalibrateZero(t *testing.T) {
	store := newMemOffsetStore()
	history := &fakeHistory{}
	c, acq, path := newTestCalibrator(t, store, history)

	writeAnalog(t, path, "1002,998,1000,0\n")
	for i := 0; i < 3; i++ {
		_, err := acq.Poll()
		require.NoError(t, err)
	}

	offsets, err := c.CalibrateZero()
	require.NoError(t, err)
	assert.Equal(t, types.Offsets{"ch1": 2, "ch2": -2, "ch3": 0, "ch4": -1000}, offsets)
	assert.Equal(t, offsets, store.Load())

	for _, ch := range testChannels {
		assert.Equal(t, 0, acq.Filters().Len(ch), "window %s not cleared", ch)
	}

	snap, err := acq.Poll()
	require.NoError(t, err)
	for _, r := range snap.Channels {
		assert.Equal(t, int64(0), r.InstantPressure, r.Channel)
		assert.Equal(t, int64(0), r.PressureMbar, r.Channel)
		assert.Equal(t, 1, r.SamplesInAvg, r.Channel)
	}

	require.Len(t, history.events, 1)
	assert.Equal(t, types.CalibrationEvent{
		ID:        "event-1",
		Kind:      types.CalibrationZero,
		Offsets:   offsets,
		CreatedAt: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC),
	}, history.events[0])
}

func TestCalibrateZero_SourceFailure(t *testing.T) {
	store := newMemOffsetStore()
	store.offsets["ch1"] = 5
	history := &fakeHistory{}
	c, acq, path := newTestCalibrator(t, store, history)

	writeAnalog(t, path, "1000,1000,1000,1000\n")
	_, err := acq.Poll()
	require.NoError(t, err)

	writeAnalog(t, path, "1,2,3\n")
	_, err = c.CalibrateZero()
	assert.ErrorIs(t, err, ErrNoData)

	assert.Equal(t, int64(5), store.Load()["ch1"])
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, 1, acq.Filters().Len("ch1"))
	assert.Empty(t, history.events)
}

func TestCalibrateZero_PersistenceFailure(t *testing.T) {
	store := newMemOffsetStore()
	store.offsets["ch1"] = 5
	store.saveErr = fmt.Errorf("%w: disk full", repository.ErrPersistence)
	history := &fakeHistory{}
	c, acq, path := newTestCalibrator(t, store, history)

	writeAnalog(t, path, "1000,1000,1000,1000\n")
	_, err := acq.Poll()
	require.NoError(t, err)

	_, err = c.CalibrateZero()
	assert.ErrorIs(t, err, repository.ErrPersistence)

	assert.Equal(t, int64(5), store.Load()["ch1"])
	for _, ch := range testChannels {
		assert.Equal(t, 1, acq.Filters().Len(ch), "window %s changed", ch)
	}
	assert.Empty(t, history.events)

	_, err = c.ResetCalibration()
	assert.ErrorIs(t, err, repository.ErrPersistence)
	assert.Equal(t, 1, acq.Filters().Len("ch1"))
}

func TestResetCalibration(t *testing.T) {
	store := newMemOffsetStore()
	store.offsets = types.Offsets{"ch1": 12, "ch2": -4, "ch3": 0, "ch4": 900}
	history := &fakeHistory{}
	c, acq, path := newTestCalibrator(t, store, history)

	writeAnalog(t, path, "1000,1000,1000,1000\n")
	_, err := acq.Poll()
	require.NoError(t, err)

	offsets, err := c.ResetCalibration()
	require.NoError(t, err)
	assert.Equal(t, repository.ZeroOffsets(testChannels), offsets)
	assert.Equal(t, repository.ZeroOffsets(testChannels), c.Offsets())
	assert.Equal(t, 0, acq.Filters().Len("ch1"))

	require.Len(t, history.events, 1)
	assert.Equal(t, types.CalibrationReset, history.events[0].Kind)
}

func TestResetCalibration_NoSourceNeeded(t *testing.T) {
	store := repository.NewFileOffsetStore(filepath.Join(t.TempDir(), "offsets.json"), testChannels)
	require.NoError(t, store.Save(types.Offsets{"ch1": 3, "ch2": 3, "ch3": 3, "ch4": 3}))
	c, _, _ := newTestCalibrator(t, store, nil)

	_, err := c.ResetCalibration()
	require.NoError(t, err)
	assert.Equal(t, repository.ZeroOffsets(testChannels), store.Load())
}

func TestCalibrator_HistoryFailureIsNotFatal(t *testing.T) {
	store := newMemOffsetStore()
	history := &fakeHistory{insertErr: errors.New("database is locked")}
	c, _, path := newTestCalibrator(t, store, history)
	writeAnalog(t, path, "1001,1001,1001,1001\n")

	offsets, err := c.CalibrateZero()
	require.NoError(t, err)
	assert.Equal(t, int64(1), offsets["ch1"])
	assert.Equal(t, 1, store.saves)
}

func TestCalibrator_History(t *testing.T) {
	history := &fakeHistory{}
	c, _, path := newTestCalibrator(t, newMemOffsetStore(), history)
	writeAnalog(t, path, "1000,1000,1000,1000\n")

	_, err := c.CalibrateZero()
	require.NoError(t, err)
	_, err = c.ResetCalibration()
	require.NoError(t, err)

	events, err := c.History(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "event-2", events[0].ID)

	noHistory, _, _ := newTestCalibrator(t, newMemOffsetStore(), nil)
	events, err = noHistory.History(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
