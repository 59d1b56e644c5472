package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/JorgeS15/AirLab/internal/fieldbus"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/types"
)

// ErrPersistence wraps every failure to write calibration offsets.
var ErrPersistence = errors.New("persistence error")

// Raw samples are int32 and a zero offset is raw-1000, so every offset a
// calibration can produce lies in [minOffset, maxOffset]. Anything outside
// could overflow the conversion.
const (
	minOffset int64 = math.MinInt32 - 1000
	maxOffset int64 = math.MaxInt32 - 1000
)

type OffsetStore interface {
	// Load never fails: a missing or unreadable file means all-zero offsets.
	Load() types.Offsets
	Save(offsets types.Offsets) error
}

type fileOffsetStore struct {
	path     string
	channels []string
}

// NewFileOffsetStore keeps offsets as a JSON object {"ch1": 0, ...} at path.
func NewFileOffsetStore(path string, channels []string) OffsetStore {
	return &fileOffsetStore{path: path, channels: channels}
}

func (s *fileOffsetStore) Load() types.Offsets {
	out := ZeroOffsets(s.channels)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("offsets unreadable, using zero offsets", "path", s.path, "error", err)
		}
		return out
	}

	var stored map[string]int64
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.Warn("offsets malformed, using zero offsets", "path", s.path, "error", err)
		return out
	}
	for _, ch := range s.channels {
		v, ok := stored[ch]
		if !ok {
			continue
		}
		if v < minOffset || v > maxOffset {
			slog.Warn("offset out of range, using zero", "path", s.path, "channel", ch, "offset", v)
			continue
		}
		out[ch] = v
	}
	return out
}

func (s *fileOffsetStore) Save(offsets types.Offsets) error {
	full := ZeroOffsets(s.channels)
	for _, ch := range s.channels {
		full[ch] = offsets[ch]
	}
	data, err := json.Marshal(full)
	if err != nil {
		return fmt.Errorf("%w: encode offsets: %w", ErrPersistence, err)
	}
	if err := fieldbus.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// ZeroOffsets returns an offset set with every channel at zero.
func ZeroOffsets(channels []string) types.Offsets {
	out := make(types.Offsets, len(channels))
	for _, ch := range channels {
		out[ch] = 0
	}
	return out
}
