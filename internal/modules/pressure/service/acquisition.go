package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JorgeS15/AirLab/internal/fieldbus"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/repository"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/types"
)

// ErrNoData means the current cycle produced no usable reading. It is distinct
// from a reading of zero; callers should wait for the next cycle.
var ErrNoData = errors.New("no data")

type SnapshotObserver func(types.Snapshot)

type Acquisition struct {
	source   string
	channels []string
	offsets  repository.OffsetStore
	filters  *FilterRegistry
	now      func() time.Time

	// Held shared by Poll and exclusively by calibration, so a poll never
	// feeds a pre-calibration sample into freshly cleared windows.
	gate sync.RWMutex

	obsMu     sync.RWMutex
	observers []SnapshotObserver
}

func NewAcquisition(source string, channels []string, offsets repository.OffsetStore, filters *FilterRegistry) *Acquisition {
	if filters == nil {
		filters = NewFilterRegistry(DefaultWindowSize)
	}
	return &Acquisition{
		source:   source,
		channels: append([]string(nil), channels...),
		offsets:  offsets,
		filters:  filters,
		now:      time.Now,
	}
}

func (a *Acquisition) Channels() []string {
	return append([]string(nil), a.channels...)
}

func (a *Acquisition) Filters() *FilterRegistry {
	return a.filters
}

// OnSnapshot registers fn to receive every successful snapshot. Observers run
// on the polling goroutine and must not block.
func (a *Acquisition) OnSnapshot(fn SnapshotObserver) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, fn)
}

// ReadRaw reads one record from the analog source, one value per channel.
func (a *Acquisition) ReadRaw() ([]int64, error) {
	raw, err := fieldbus.ReadRecord(a.source, len(a.channels))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoData, err)
	}
	return raw, nil
}

// Poll reads the analog source, converts and smooths every channel and returns
// the snapshot. A missing or malformed source yields ErrNoData and leaves the
// filter windows untouched.
func (a *Acquisition) Poll() (types.Snapshot, error) {
	raw, err := a.ReadRaw()
	if err != nil {
		return types.Snapshot{}, err
	}

	a.gate.RLock()
	offsets := a.offsets.Load()
	readings := make([]types.ChannelReading, len(a.channels))
	for i, ch := range a.channels {
		off := offsets[ch]
		instant := ToMillibar(raw[i], off)
		mean, n := a.filters.Observe(ch, float64(instant))

		readings[i] = types.ChannelReading{
			Channel:         ch,
			RawValue:        raw[i],
			Offset:          off,
			PressureMbar:    roundMbar(mean),
			InstantPressure: instant,
			SamplesInAvg:    n,
			Status:          types.StatusOK,
		}
	}
	a.gate.RUnlock()

	snap := types.Snapshot{Timestamp: a.now().UTC(), Channels: readings}
	a.notify(snap)
	return snap, nil
}

func (a *Acquisition) notify(snap types.Snapshot) {
	a.obsMu.RLock()
	observers := make([]SnapshotObserver, len(a.observers))
	copy(observers, a.observers)
	a.obsMu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// exclusive runs fn with polling held off.
func (a *Acquisition) exclusive(fn func() error) error {
	a.gate.Lock()
	defer a.gate.Unlock()
	return fn()
}
