package types

import "time"

// StatusOK is the only health marker the driver can currently justify; the
// file format carries no fault bits.
const StatusOK = "OK"

// Offsets maps a channel id to the raw-count offset subtracted before conversion.
type Offsets map[string]int64

// ChannelReading is one channel's entry in a Snapshot.
type ChannelReading struct {
	Channel         string `json:"channel"`
	RawValue        int64  `json:"raw_value"`
	Offset          int64  `json:"offset"`
	PressureMbar    int64  `json:"pressure_mbar"`
	InstantPressure int64  `json:"instant_pressure"`
	SamplesInAvg    int    `json:"samples_in_avg"`
	Status          string `json:"status"`
	Error           bool   `json:"error"`
	Underrange      bool   `json:"underrange"`
	Overrange       bool   `json:"overrange"`
}

// Snapshot is the result of one successful poll, channels in configured order.
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Channels  []ChannelReading `json:"channels"`
}

// Channel returns the reading for id.
func (s Snapshot) Channel(id string) (ChannelReading, bool) {
	for _, c := range s.Channels {
		if c.Channel == id {
			return c, true
		}
	}
	return ChannelReading{}, false
}

type CalibrationKind string

const (
	CalibrationZero  CalibrationKind = "zero"
	CalibrationReset CalibrationKind = "reset"
)

// CalibrationEvent is an audit record of an applied offset set.
type CalibrationEvent struct {
	ID        string          `json:"id"`
	Kind      CalibrationKind `json:"kind"`
	Offsets   Offsets         `json:"offsets"`
	CreatedAt time.Time       `json:"created_at"`
}
