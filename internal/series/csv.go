package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// VendorTimeLayout is the timestamp format of the radar export (DD-MM-YYYY HH:MM).
const VendorTimeLayout = "02-01-2006 15:04"

const defaultHeaderRow = 2

// LoadVendorCSVFile opens path and parses it with LoadVendorCSV.
func LoadVendorCSVFile(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()
	s, err := LoadVendorCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// LoadVendorCSV parses the ';'-separated radar export. Metadata rows precede
// a header row whose first cell is "Time"; the first column holds the
// timestamp and the second the displacement in mm. Rows with an unparseable
// timestamp or a missing or non-finite displacement are dropped, the rest sorted by time, and
// duplicate timestamps keep their first occurrence.
func LoadVendorCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}

	header := -1
	for i, rec := range rows {
		if len(rec) > 0 && cleanCell(rec[0]) == "Time" {
			header = i
			break
		}
	}
	if header < 0 {
		header = defaultHeaderRow
	}

	type sample struct {
		t time.Time
		v float64
	}
	var samples []sample
	for i := header + 1; i < len(rows); i++ {
		rec := rows[i]
		if len(rec) < 2 {
			continue
		}
		t, err := time.ParseInLocation(VendorTimeLayout, cleanCell(rec[0]), time.UTC)
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(cleanCell(rec[1]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		samples = append(samples, sample{t: t, v: v})
	}

	sort.SliceStable(samples, func(a, b int) bool { return samples[a].t.Before(samples[b].t) })

	times := make([]time.Time, 0, len(samples))
	disp := make([]float64, 0, len(samples))
	for _, smp := range samples {
		if n := len(times); n > 0 && times[n-1].Equal(smp.t) {
			continue
		}
		times = append(times, smp.t)
		disp = append(disp, smp.v)
	}
	return New(times, disp)
}

func cleanCell(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}
