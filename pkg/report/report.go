// Package report renders batch results as an aligned table, CSV or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/pangeorg/rusty-stl/pkg/batch"
)

// Format selects the output encoding.
type Format string

const (
	Table Format = "table"
	CSV   Format = "csv"
	JSON  Format = "json"
)

// ParseFormat validates a format name. The empty string means Table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return Table, nil
	case Table, CSV, JSON:
		return f, nil
	}
	return "", fmt.Errorf("report: unknown format %q (want table, csv or json)", s)
}

// Litres is the Scale that turns mm³ into litres.
const Litres = 1e6

// nameWidth is the minimum width of the file name column in tables.
const nameWidth = 30

// Options controls rendering.
type Options struct {
	Format Format

	// Scale divides volumes in table and CSV output. Zero means 1.
	// JSON always carries raw values.
	Scale float64

	// Columns lists derived column names in display order.
	Columns []string

	// NoHeader omits the header line of tables and CSV, for output that
	// continues an earlier report.
	NoHeader bool

	// Profile forces a colour profile for tables. Nil detects it from
	// the writer, so pipes and files get plain text.
	Profile *termenv.Profile
}

func (o Options) scale() float64 {
	if o.Scale == 0 {
		return 1
	}
	return o.Scale
}

// Write renders results to w.
func Write(w io.Writer, results []batch.FileResult, opts Options) error {
	switch opts.Format {
	case "", Table:
		return writeTable(w, results, opts)
	case CSV:
		return writeCSV(w, results, opts)
	case JSON:
		return writeJSON(w, results)
	}
	return fmt.Errorf("report: unknown format %q", opts.Format)
}

func hasThickness(results []batch.FileResult) bool {
	for _, r := range results {
		if r.Thickness != nil {
			return true
		}
	}
	return false
}

func writeTable(w io.Writer, results []batch.FileResult, opts Options) error {
	var out *termenv.Output
	if opts.Profile != nil {
		out = termenv.NewOutput(w, termenv.WithProfile(*opts.Profile))
	} else {
		out = termenv.NewOutput(w)
	}
	warn := out.Color("3")
	bad := out.Color("1")

	// Tables show the file name only; CSV and JSON keep the full path.
	width := nameWidth
	for _, r := range results {
		width = max(width, len(filepath.Base(r.Name))+2)
	}
	thick := hasThickness(results)
	scale := opts.scale()

	var sb strings.Builder
	if !opts.NoHeader {
		fmt.Fprintf(&sb, "%-*s%12s%12s", width, "file", "mesh", "box")
		if thick {
			fmt.Fprintf(&sb, "%12s%12s", "wall-avg", "wall-med")
		}
		for _, c := range opts.Columns {
			fmt.Fprintf(&sb, "%14s", c)
		}
		fmt.Fprintln(out, out.String(sb.String()).Bold())
	}

	for _, r := range results {
		sb.Reset()
		fmt.Fprintf(&sb, "%-*s", width, filepath.Base(r.Name))
		if r.Failed() {
			fmt.Fprintln(out, sb.String()+out.String("error: "+r.Error).Foreground(bad).String())
			continue
		}
		fmt.Fprintf(&sb, "%12.2f%12.2f", r.MeshVolume/scale, r.BoxVolume/scale)
		if thick {
			if r.Thickness != nil {
				fmt.Fprintf(&sb, "%12.2f%12.2f", r.Thickness.Avg, r.Thickness.Median)
			} else {
				fmt.Fprintf(&sb, "%12s%12s", "-", "-")
			}
		}
		for _, c := range opts.Columns {
			if v, ok := r.Columns[c]; ok {
				fmt.Fprintf(&sb, "%14.4g", v)
			} else {
				fmt.Fprintf(&sb, "%14s", "-")
			}
		}
		line := sb.String()
		if len(r.Warnings) > 0 {
			fmt.Fprintln(out, out.String(line).Foreground(warn).String())
			continue
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeCSV(w io.Writer, results []batch.FileResult, opts Options) error {
	cw := csv.NewWriter(w)
	thick := hasThickness(results)
	scale := opts.scale()

	header := []string{"file", "mesh_volume", "box_volume", "triangles", "surface_area"}
	if thick {
		header = append(header, "thickness_avg", "thickness_median", "thickness_stddev")
	}
	header = append(header, opts.Columns...)
	header = append(header, "error")
	if !opts.NoHeader {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}

	for _, r := range results {
		row := make([]string, 0, len(header))
		row = append(row, r.Name)
		if r.Failed() {
			for len(row) < len(header)-1 {
				row = append(row, "")
			}
			row = append(row, r.Error)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("report: %w", err)
			}
			continue
		}
		row = append(row,
			formatFloat(r.MeshVolume/scale),
			formatFloat(r.BoxVolume/scale),
			strconv.Itoa(r.Triangles),
			formatFloat(r.SurfaceArea),
		)
		if thick {
			if t := r.Thickness; t != nil {
				row = append(row, formatFloat(t.Avg), formatFloat(t.Median), formatFloat(t.StdDev))
			} else {
				row = append(row, "", "", "")
			}
		}
		for _, c := range opts.Columns {
			if v, ok := r.Columns[c]; ok {
				row = append(row, formatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, "")
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, results []batch.FileResult) error {
	if results == nil {
		results = []batch.FileResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
