package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JorgeS15/AirLab/internal/fieldbus"
	"github.com/JorgeS15/AirLab/internal/modules/digital/types"
)

// ErrNoData means the input file could not be read or parsed this cycle.
var ErrNoData = errors.New("no data")

// ValidationError rejects a command before anything is written.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type OutputsObserver func(types.Vector)

// Gateway reads the digital input and output files and rewrites the output
// file on command. All output mutations are serialised in process and across
// processes through an advisory lock next to the output file.
type Gateway struct {
	inputPath  string
	outputPath string

	mu sync.Mutex

	obsMu     sync.RWMutex
	observers []OutputsObserver
}

func NewGateway(inputPath, outputPath string) *Gateway {
	return &Gateway{inputPath: inputPath, outputPath: outputPath}
}

// OnOutputs registers fn to receive the output vector after every write.
// Observers run in write order with the output mutex held, so they must not
// block or call back into the Gateway.
func (g *Gateway) OnOutputs(fn OutputsObserver) {
	g.obsMu.Lock()
	defer g.obsMu.Unlock()
	g.observers = append(g.observers, fn)
}

func (g *Gateway) ReadInputs() (types.Vector, error) {
	v, err := readVector(g.inputPath)
	if err != nil {
		return types.Vector{}, fmt.Errorf("%w: %w", ErrNoData, err)
	}
	return v, nil
}

// ReadOutputs returns the commanded output state. An absent or unreadable file
// reads as all outputs off.
func (g *Gateway) ReadOutputs() types.Vector {
	v, err := readVector(g.outputPath)
	if err != nil {
		if errors.Is(err, fieldbus.ErrMalformedData) {
			slog.Warn("outputs file malformed, assuming all off", "path", g.outputPath, "error", err)
		} else {
			slog.Debug("outputs file unavailable, assuming all off", "path", g.outputPath, "error", err)
		}
		return types.Vector{}
	}
	return v
}

// SetOutput switches one output (1..8) and returns the full vector written.
func (g *Gateway) SetOutput(index, value int) (types.Vector, error) {
	if index < 1 || index > types.Width {
		return types.Vector{}, &ValidationError{Message: fmt.Sprintf("Output must be between 1 and %d", types.Width)}
	}
	if value != 0 && value != 1 {
		return types.Vector{}, &ValidationError{Message: "Value must be 0 or 1"}
	}

	return g.mutate(func(current types.Vector) types.Vector {
		current[index-1] = value
		return current
	})
}

// SetAllOutputs overwrites every output.
func (g *Gateway) SetAllOutputs(values []int) (types.Vector, error) {
	if len(values) != types.Width {
		return types.Vector{}, &ValidationError{Message: fmt.Sprintf("Must provide array of %d output values", types.Width)}
	}
	var next types.Vector
	for i, x := range values {
		if x != 0 && x != 1 {
			return types.Vector{}, &ValidationError{Message: "All values must be 0 or 1"}
		}
		next[i] = x
	}

	return g.mutate(func(types.Vector) types.Vector { return next })
}

func (g *Gateway) mutate(change func(types.Vector) types.Vector) (types.Vector, error) {
	g.mu.Lock()
	lock, err := fieldbus.Lock(g.outputPath)
	if err != nil {
		g.mu.Unlock()
		return types.Vector{}, fmt.Errorf("lock outputs: %w", err)
	}

	next := change(g.ReadOutputs())
	werr := fieldbus.WriteRecord(g.outputPath, next[:])

	if err := lock.Unlock(); err != nil {
		slog.Warn("unlock outputs", "path", g.outputPath, "error", err)
	}
	defer g.mu.Unlock()

	if werr != nil {
		return types.Vector{}, fmt.Errorf("write outputs: %w", werr)
	}
	g.notify(next)
	return next, nil
}

func (g *Gateway) notify(v types.Vector) {
	g.obsMu.RLock()
	observers := make([]OutputsObserver, len(g.observers))
	copy(observers, g.observers)
	g.obsMu.RUnlock()

	for _, fn := range observers {
		fn(v)
	}
}

func readVector(path string) (types.Vector, error) {
	raw, err := fieldbus.ReadRecord(path, types.Width)
	if err != nil {
		return types.Vector{}, err
	}
	var v types.Vector
	for i, x := range raw {
		if x != 0 && x != 1 {
			return types.Vector{}, fmt.Errorf("%w: point %d is %d", fieldbus.ErrMalformedData, i+1, x)
		}
		v[i] = int(x)
	}
	return v, nil
}
