package streak

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ValidateHeader accepts exactly the Columns() names in order.
func ValidateHeader(header []string) error {
	want := Columns()
	got := make([]string, len(header))
	for i, h := range header {
		got[i] = strings.TrimSpace(h)
	}

	known := make(map[string]bool, len(want))
	for _, c := range want {
		known[c] = true
	}
	present := make(map[string]bool, len(got))
	var unexpected []string
	for _, h := range got {
		if present[h] {
			return fmt.Errorf("%w: duplicate column %q", ErrSchema, h)
		}
		present[h] = true
		if !known[h] {
			unexpected = append(unexpected, h)
		}
	}
	var missing []string
	for _, c := range want {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		return fmt.Errorf("%w: missing columns %v, unexpected columns %v", ErrSchema, missing, unexpected)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: column %d is %q, want %q (expected order %s)", ErrSchema, i, got[i], want[i], strings.Join(want, ","))
		}
	}
	return nil
}

// WriteCSV writes the measurement table with a header row. Values use the
// shortest representation that parses back to the same float64.
func WriteCSV(w io.Writer, set *MeasurementSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	row := make([]string, len(Columns()))
	for _, m := range set.measurements {
		for i, v := range m.Values() {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. The header must match
// Columns() exactly and every row must carry six numeric fields.
func ReadCSV(r io.Reader) (*MeasurementSet, error) {
	records, lines, err := parseRecords(r)
	if err != nil {
		return nil, fmt.Errorf("measurement table: %w", err)
	}
	if err := ValidateHeader(records[0]); err != nil {
		return nil, err
	}

	ncols := len(Columns())
	out := make([]Measurement, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := lines[i+1]
		if len(rec) != ncols {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrSchema, line, len(rec), ncols)
		}
		vals := make([]float64, ncols)
		for c := range vals {
			v, err := field(rec, c, line)
			if err != nil {
				return nil, err
			}
			vals[c] = v
		}
		out = append(out, Measurement{
			DY:          vals[0],
			Length:      vals[1],
			Velocity:    vals[2],
			ErrY:        vals[3],
			ErrLength:   vals[4],
			ErrVelocity: vals[5],
		})
	}
	return newMeasurementSet(out, 0), nil
}

// WriteJSON writes the measurements as an array of objects keyed by column name.
func WriteJSON(w io.Writer, set *MeasurementSet) error {
	ms := set.measurements
	if ms == nil {
		ms = []Measurement{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ms)
}

// WriteTable prints an aligned, index-prefixed table for the console.
func WriteTable(w io.Writer, set *MeasurementSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(Columns(), "\t"))
	for i, m := range set.measurements {
		fmt.Fprintf(tw, "%d", i)
		for _, v := range m.Values() {
			fmt.Fprintf(tw, "\t%.6f", v)
		}
		fmt.Fprint(tw, "\t\n")
	}
	return tw.Flush()
}
