package streak

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSet() *MeasurementSet {
	return newMeasurementSet([]Measurement{
		{DY: 17.24, Length: 128.2225, Velocity: 5.028333333333333, ErrY: 10.775, ErrLength: 10.775, ErrVelocity: 0.4242640687119285},
		{DY: 81.89, Length: 150.85, Velocity: 5.915686274509804, ErrY: 10.775, ErrLength: 10.775, ErrVelocity: 0.4243},
	}, 0)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	set := sampleSet()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, set))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "d_y,length,velocity,err_y,err_length,err_velocity", lines[0])

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(set.Measurements(), back.Measurements()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_EmptySet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, newMeasurementSet(nil, 0)))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Zero(t, back.Len())
}

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		wantErr string
	}{
		{name: "exact", header: Columns()},
		{name: "padded names", header: []string{" d_y", "length ", "velocity", "err_y", "err_length", "err_velocity"}},
		{
			name:    "missing column",
			header:  []string{"d_y", "length", "velocity", "err_y", "err_length"},
			wantErr: "missing columns [err_velocity]",
		},
		{
			name:    "extra column",
			header:  append(Columns(), "notes"),
			wantErr: "unexpected columns [notes]",
		},
		{
			name:    "reordered",
			header:  []string{"length", "d_y", "velocity", "err_y", "err_length", "err_velocity"},
			wantErr: `column 0 is "length", want "d_y"`,
		},
		{
			name:    "duplicate",
			header:  []string{"d_y", "d_y", "velocity", "err_y", "err_length", "err_velocity"},
			wantErr: `duplicate column "d_y"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeader(tt.header)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchema)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadCSV_Rejects(t *testing.T) {
	header := strings.Join(Columns(), ",") + "\n"

	t.Run("wrong field count", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(header + "1,2,3,4,5\n"))
		assert.ErrorIs(t, err, ErrSchema)
	})
	t.Run("non numeric", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(header + "1,2,fast,4,5,6\n"))
		assert.ErrorIs(t, err, ErrParse)
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 2, pe.Line)
		assert.Equal(t, 2, pe.Column)
	})
	t.Run("line numbers skip blank lines", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(header + "1,2,3,4,5,6\n\n1,2,fast,4,5,6\n"))
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 4, pe.Line)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrIO)
	})
	t.Run("bad header", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("x,y\n1,2\n"))
		assert.ErrorIs(t, err, ErrSchema)
	})
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleSet()))

	var rows []map[string]float64
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)

	keys := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, Columns(), keys)
	assert.Equal(t, 81.89, rows[1][ColDY])

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, newMeasurementSet(nil, 0)))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleSet()))

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	for _, c := range Columns() {
		assert.Contains(t, lines[0], c)
	}
	assert.Contains(t, lines[1], "17.240000")
	assert.Contains(t, lines[2], "150.850000")
}
