package streak

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/streak.profile/internal/fsutil"
	"github.com/banshee-data/streak.profile/internal/monitoring"
)

// Extract converts header-prefixed rows into one Measurement per
// consecutive row pair.
//
// Algorithm, per pair (a, b):
//  1. y = (ya + yb) / 2, since hand-drawn streaks are rarely exactly horizontal
//  2. d_y = |y - YBase| * ScaleFactor
//  3. length = |xb - xa| * ScaleFactor
//  4. velocity = length / ExposureTime
//  5. err_velocity = velocity * sqrt((errPos/length)^2 + (ExposureTimeError/ExposureTime)^2)
//
// where errPos = MeasurementError * ScaleFactor is shared by every row.
// Rows are assumed to come one per source line; ExtractFile reports the
// real source lines.
func Extract(rows [][]string, p Params) (*MeasurementSet, error) {
	return extract(rows, nil, p)
}

// extract does the work of Extract. lines[i] is the 1-based source line of
// rows[i]; nil means rows[i] sits on line i+1.
func extract(rows [][]string, lines []int, p Params) (*MeasurementSet, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrIO)
	}
	if err := checkParams(p); err != nil {
		return nil, err
	}
	lineOf := func(i int) int {
		if lines != nil {
			return lines[i]
		}
		return i + 1
	}

	data := rows[1:]
	pairs := len(data) / 2
	dropped := len(data) % 2
	if dropped == 1 {
		lastLine := lineOf(len(rows) - 1)
		if p.OddRows == OddRowsStrict {
			return nil, &DomainError{Pair: -1, Reason: fmt.Sprintf("odd number of data rows (%d): line %d has no partner endpoint", len(data), lastLine)}
		}
		monitoring.Warnf("odd number of data rows (%d), dropping unpaired line %d", len(data), lastLine)
	}

	errPos := p.MeasurementError * p.ScaleFactor
	relTimeErr := p.ExposureTimeError / p.ExposureTime

	out := make([]Measurement, 0, pairs)
	for k := 0; k < pairs; k++ {
		// rows[0] is the header
		ia, ib := 2*k+1, 2*k+2
		a, b := rows[ia], rows[ib]
		lineA, lineB := lineOf(ia), lineOf(ib)

		xa, err := field(a, p.XIndex, lineA)
		if err != nil {
			return nil, err
		}
		xb, err := field(b, p.XIndex, lineB)
		if err != nil {
			return nil, err
		}
		ya, err := field(a, p.YIndex, lineA)
		if err != nil {
			return nil, err
		}
		yb, err := field(b, p.YIndex, lineB)
		if err != nil {
			return nil, err
		}

		y := (ya + yb) / 2
		dy := math.Abs(y-p.YBase) * p.ScaleFactor
		length := math.Abs(xb-xa) * p.ScaleFactor
		if length == 0 {
			return nil, &DomainError{Pair: k, Line: lineA, EndLine: lineB, Reason: "zero streak length (division by zero in error propagation)"}
		}
		velocity := length / p.ExposureTime
		errVelocity := velocity * math.Sqrt(math.Pow(errPos/length, 2)+math.Pow(relTimeErr, 2))

		out = append(out, Measurement{
			DY:          dy,
			Length:      length,
			Velocity:    velocity,
			ErrY:        errPos,
			ErrLength:   errPos,
			ErrVelocity: errVelocity,
		})
	}

	monitoring.Logf("extracted %d streaks from %d data rows", len(out), len(data))
	return newMeasurementSet(out, dropped), nil
}

// checkParams rejects parameters that would yield non-finite or negative
// measurements.
func checkParams(p Params) error {
	if p.XIndex < 0 || p.YIndex < 0 {
		return fmt.Errorf("%w: column indices must be non-negative, got x=%d y=%d", ErrConfig, p.XIndex, p.YIndex)
	}
	var reason string
	switch {
	case p.ExposureTime == 0:
		reason = "exposure time is zero (division by zero)"
	case !positive(p.ExposureTime):
		reason = fmt.Sprintf("exposure time must be positive and finite, got %g", p.ExposureTime)
	case !positive(p.ScaleFactor):
		reason = fmt.Sprintf("scale factor must be positive and finite, got %g", p.ScaleFactor)
	case math.IsNaN(p.YBase) || math.IsInf(p.YBase, 0):
		reason = fmt.Sprintf("y base must be finite, got %g", p.YBase)
	case !nonNegative(p.ExposureTimeError):
		reason = fmt.Sprintf("exposure time error must be non-negative and finite, got %g", p.ExposureTimeError)
	case !nonNegative(p.MeasurementError):
		reason = fmt.Sprintf("measurement error must be non-negative and finite, got %g", p.MeasurementError)
	default:
		return nil
	}
	return &DomainError{Pair: -1, Reason: reason}
}

// positive is false for NaN.
func positive(v float64) bool { return v > 0 && !math.IsInf(v, 1) }

func nonNegative(v float64) bool { return v >= 0 && !math.IsInf(v, 1) }

// field parses column idx of row as a finite float.
func field(row []string, idx, line int) (float64, error) {
	if idx >= len(row) {
		return 0, &ParseError{Line: line, Column: idx}
	}
	raw := strings.TrimSpace(row[idx])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParseError{Line: line, Column: idx, Value: raw, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Line: line, Column: idx, Value: raw, Err: errors.New("value is not finite")}
	}
	return v, nil
}

// ParseRows reads every CSV record from r. Rows may be ragged; the extractor
// checks the selected columns itself.
func ParseRows(r io.Reader) ([][]string, error) {
	records, _, err := parseRecords(r)
	return records, err
}

// parseRecords reads every record from r along with the 1-based line each
// record starts on. Blank lines are skipped and quoted fields may span
// lines, so record and line numbers drift apart.
func parseRecords(r io.Reader) ([][]string, []int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, nil, fmt.Errorf("%w: malformed CSV: %w", ErrParse, err)
			}
			return nil, nil, fmt.Errorf("%w: failed to read CSV: %w", ErrIO, err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: input is empty, expected a header row", ErrIO)
	}
	return records, lines, nil
}

// ReadRows opens path on fsys and returns all of its records, header
// included. The file is closed before returning.
func ReadRows(fsys fsutil.FileSystem, path string) ([][]string, error) {
	records, _, err := readRecords(fsys, path)
	return records, err
}

func readRecords(fsys fsutil.FileSystem, path string) ([][]string, []int, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	records, lines, err := parseRecords(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Logf("read %d rows from %s", len(records), path)
	return records, lines, nil
}

// ExtractFile reads path and extracts its measurements. Errors name the
// line in the file, not the record index.
func ExtractFile(fsys fsutil.FileSystem, path string, p Params) (*MeasurementSet, error) {
	records, lines, err := readRecords(fsys, path)
	if err != nil {
		return nil, err
	}
	set, err := extract(records, lines, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}
