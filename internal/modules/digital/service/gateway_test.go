package service

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JorgeS15/AirLab/internal/fieldbus"
	"github.com/JorgeS15/AirLab/internal/modules/digital/types"
)

func newTestGateway(t *testing.T) (*Gateway, string, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "ethercat_digital.txt")
	out := filepath.Join(dir, "ethercat_outputs.txt")
	return NewGateway(in, out), in, out
}

func TestGateway_ReadInputs(t *testing.T) {
	g, in, _ := newTestGateway(t)

	_, err := g.ReadInputs()
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, err, fieldbus.ErrSourceUnavailable)

	require.NoError(t, os.WriteFile(in, []byte("1,0,0,1,0,0,0,1\n"), 0o644))
	v, err := g.ReadInputs()
	require.NoError(t, err)
	assert.Equal(t, types.Vector{1, 0, 0, 1, 0, 0, 0, 1}, v)

	for _, bad := range []string{"1,0,1\n", "1,0,0,1,0,0,0,2\n", "a,b,c,d,e,f,g,h\n"} {
		require.NoError(t, os.WriteFile(in, []byte(bad), 0o644))
		_, err := g.ReadInputs()
		assert.ErrorIs(t, err, ErrNoData, bad)
		assert.ErrorIs(t, err, fieldbus.ErrMalformedData, bad)
	}
}

func TestGateway_ReadOutputsDefaultsToOff(t *testing.T) {
	g, _, out := newTestGateway(t)

	assert.Equal(t, types.Vector{}, g.ReadOutputs())

	require.NoError(t, os.WriteFile(out, []byte("garbage\n"), 0o644))
	assert.Equal(t, types.Vector{}, g.ReadOutputs())
}

func TestGateway_SetOutput(t *testing.T) {
	g, _, out := newTestGateway(t)
	require.NoError(t, os.WriteFile(out, []byte("0,0,0,0,0,0,0,1\n"), 0o644))

	v, err := g.SetOutput(3, 1)
	require.NoError(t, err)
	assert.Equal(t, types.Vector{0, 0, 1, 0, 0, 0, 0, 1}, v)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "0,0,1,0,0,0,0,1\n", string(raw))

	v, err = g.SetOutput(8, 0)
	require.NoError(t, err)
	assert.Equal(t, types.Vector{0, 0, 1, 0, 0, 0, 0, 0}, v)
}

func TestGateway_SetOutputFromMissingFile(t *testing.T) {
	g, _, _ := newTestGateway(t)

	v, err := g.SetOutput(1, 1)
	require.NoError(t, err)
	assert.Equal(t, types.Vector{1}, v)
	assert.Equal(t, types.Vector{1}, g.ReadOutputs())
}

func TestGateway_ValidationLeavesFileAlone(t *testing.T) {
	tests := []struct {
		name string
		call func(g *Gateway) error
		msg  string
	}{
		{name: "index 9", call: func(g *Gateway) error { _, err := g.SetOutput(9, 1); return err }, msg: "Output must be between 1 and 8"},
		{name: "index 0", call: func(g *Gateway) error { _, err := g.SetOutput(0, 1); return err }, msg: "Output must be between 1 and 8"},
		{name: "value 2", call: func(g *Gateway) error { _, err := g.SetOutput(3, 2); return err }, msg: "Value must be 0 or 1"},
		{name: "short vector", call: func(g *Gateway) error { _, err := g.SetAllOutputs([]int{1, 0}); return err }, msg: "Must provide array of 8 output values"},
		{name: "nil vector", call: func(g *Gateway) error { _, err := g.SetAllOutputs(nil); return err }, msg: "Must provide array of 8 output values"},
		{name: "bad element", call: func(g *Gateway) error { _, err := g.SetAllOutputs([]int{1, 0, 1, 0, 1, 0, 1, 5}); return err }, msg: "All values must be 0 or 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, out := newTestGateway(t)
			require.NoError(t, os.WriteFile(out, []byte("1,1,1,1,1,1,1,1\n"), 0o644))

			notified := false
			g.OnOutputs(func(types.Vector) { notified = true })

			err := tt.call(g)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "want *ValidationError, got %v", err)
			assert.Equal(t, tt.msg, verr.Message)

			raw, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, "1,1,1,1,1,1,1,1\n", string(raw))
			assert.False(t, notified)
		})
	}
}

func TestGateway_SetAllOutputsRoundTrip(t *testing.T) {
	g, _, _ := newTestGateway(t)

	v, err := g.SetAllOutputs([]int{1, 0, 1, 0, 1, 0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, types.Vector{1, 0, 1, 0, 1, 0, 1, 0}, v)
	assert.Equal(t, types.Vector{1, 0, 1, 0, 1, 0, 1, 0}, g.ReadOutputs())
}

func TestGateway_ConcurrentSetOutputKeepsEveryUpdate(t *testing.T) {
	g, _, _ := newTestGateway(t)

	for round := 0; round < 20; round++ {
		_, err := g.SetAllOutputs(make([]int, types.Width))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 1; i <= types.Width; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				if _, err := g.SetOutput(idx, 1); err != nil {
					t.Errorf("SetOutput(%d) error = %v", idx, err)
				}
			}(i)
		}
		wg.Wait()

		require.Equal(t, types.Vector{1, 1, 1, 1, 1, 1, 1, 1}, g.ReadOutputs(), "round %d lost an update", round)
	}
}

func TestGateway_ObserversSeeWrites(t *testing.T) {
	g, _, _ := newTestGateway(t)

	var got []types.Vector
	g.OnOutputs(func(v types.Vector) { got = append(got, v) })

	_, err := g.SetOutput(2, 1)
	require.NoError(t, err)
	_, err = g.SetAllOutputs([]int{0, 0, 0, 0, 0, 0, 0, 1})
	require.NoError(t, err)

	assert.Equal(t, []types.Vector{{0, 1}, {0, 0, 0, 0, 0, 0, 0, 1}}, got)
}

func TestGateway_ObserversFollowWriteOrder(t *testing.T) {
	g, _, _ := newTestGateway(t)

	var (
		mu   sync.Mutex
		last types.Vector
	)
	g.OnOutputs(func(v types.Vector) {
		mu.Lock()
		last = v
		mu.Unlock()
	})

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		for i := 1; i <= types.Width; i++ {
			wg.Add(1)
			go func(index int) {
				defer wg.Done()
				_, err := g.SetOutput(index, round%2)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		mu.Lock()
		assert.Equal(t, g.ReadOutputs(), last, "round %d", round)
		mu.Unlock()
	}
}

func TestGateway_WriteFailure(t *testing.T) {
	g := NewGateway("unused", filepath.Join(t.TempDir(), "missing", "outputs.txt"))

	_, err := g.SetOutput(1, 1)
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}
