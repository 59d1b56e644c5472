package fieldbus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    int
		values  []int64
		wantErr error
	}{
		{name: "four channels", line: "1000,998,1002,0\n", want: 4, values: []int64{1000, 998, 1002, 0}},
		{name: "negative and spaces", line: " -5, 12 ,3,  4 ", want: 4, values: []int64{-5, 12, 3, 4}},
		{name: "int32 extremes", line: "2147483647,-2147483648", want: 2, values: []int64{2147483647, -2147483648}},
		{name: "too few fields", line: "1,2,3", want: 4, wantErr: ErrMalformedData},
		{name: "too many fields", line: "1,2,3,4,5", want: 4, wantErr: ErrMalformedData},
		{name: "empty", line: "\n", want: 4, wantErr: ErrMalformedData},
		{name: "non integer", line: "1,2,x,4", want: 4, wantErr: ErrMalformedData},
		{name: "float", line: "1,2,3.5,4", want: 4, wantErr: ErrMalformedData},
		{name: "empty field", line: "1,,3,4", want: 4, wantErr: ErrMalformedData},
		{name: "above int32", line: "2147483648,0", want: 2, wantErr: ErrMalformedData},
		{name: "near int64 min", line: "-9223372036854775807,0", want: 2, wantErr: ErrMalformedData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.line, tt.want)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.values, got)
		})
	}
}

func TestReadRecord_MissingFile(t *testing.T) {
	_, err := ReadRecord(filepath.Join(t.TempDir(), "missing.txt"), 4)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.NotErrorIs(t, err, ErrMalformedData)
}

func TestReadRecord_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("1,2,3\n"), 0o644))

	_, err := ReadRecord(path, 4)
	assert.ErrorIs(t, err, ErrMalformedData)
	assert.NotErrorIs(t, err, ErrSourceUnavailable)
}

func TestFormatRecord(t *testing.T) {
	assert.Equal(t, "1,0,1,0,1,0,1,0\n", FormatRecord([]int{1, 0, 1, 0, 1, 0, 1, 0}))
	assert.Equal(t, "\n", FormatRecord(nil))
}

func TestWriteRecord_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs.txt")

	require.NoError(t, WriteRecord(path, []int{0, 1, 1, 0, 0, 0, 0, 1}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0,1,1,0,0,0,0,1\n", string(raw))

	values, err := ReadRecord(path, 8)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 1, 0, 0, 0, 0, 1}, values)
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offsets.json")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "offsets.json", entries[0].Name())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(raw))
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "nope", "file"), []byte("x"), 0o644)
	assert.Error(t, err)
}
