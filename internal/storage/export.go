package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/climemu/internal/sim"
)

var csvHeader = []string{"year", "emission", "forcing", "tatm", "tocean", "m_at", "m_up", "m_lo"}

// WriteCSV writes one row per state. Row i carries the emission and
// forcing that drive step i; the final row leaves those two columns empty.
func WriteCSV(w io.Writer, res *sim.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i := range res.Tatm {
		row := []string{
			formatAt(res.Years, i),
			formatAt(res.Emissions, i),
			formatAt(res.Forcing, i),
			formatAt(res.Tatm, i),
			formatAt(res.Tocean, i),
			formatAt(res.MAt, i),
			formatAt(res.MUp, i),
			formatAt(res.MLo, i),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the output of WriteCSV.
func ReadCSV(r io.Reader) (*sim.Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("series: missing header")
	}

	res := &sim.Result{}
	columns := []*[]float64{&res.Years, &res.Emissions, &res.Forcing, &res.Tatm, &res.Tocean, &res.MAt, &res.MUp, &res.MLo}
	for line, record := range records[1:] {
		for j, field := range record {
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("series line %d column %s: %w", line+2, csvHeader[j], err)
			}
			*columns[j] = append(*columns[j], v)
		}
	}
	return res, nil
}

// WriteJSON encodes res as indented JSON.
func WriteJSON(w io.Writer, res *sim.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func formatAt(values []float64, i int) string {
	if i >= len(values) {
		return ""
	}
	return strconv.FormatFloat(values[i], 'g', -1, 64)
}
