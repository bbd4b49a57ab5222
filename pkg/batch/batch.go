// Package batch analyses many meshes concurrently and collects one result
// per file. A failing file never aborts the batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pangeorg/rusty-stl/pkg/engine"
	"github.com/pangeorg/rusty-stl/pkg/kernel"
	"github.com/pangeorg/rusty-stl/pkg/logx"
	"github.com/pangeorg/rusty-stl/pkg/measure"
	"github.com/pangeorg/rusty-stl/pkg/source"
	"github.com/pangeorg/rusty-stl/pkg/stl"
)

// FileResult is the outcome for one input file.
type FileResult struct {
	Name string `json:"name"`
	measure.Result
	Thickness *measure.Statistics `json:"thickness,omitempty"`
	Columns   map[string]float64  `json:"columns,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
	Duration  time.Duration       `json:"-"`

	// Err is set when the file could not be read or decoded. Error
	// mirrors it for JSON output.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the file could not be analysed.
func (r FileResult) Failed() bool { return r.Err != nil }

func (r *FileResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// CountFailed returns the number of failed results.
func CountFailed(results []FileResult) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Runner analyses meshes. The zero value analyses sequentially per mesh
// with one file per CPU and no derived columns.
type Runner struct {
	Engine  *engine.Engine
	Columns []engine.Column

	// Workers bounds the number of files in flight. Zero means GOMAXPROCS.
	Workers int

	// MeshWorkers splits each mesh across goroutines when above 1.
	MeshWorkers int

	// Thickness enables the wall thickness estimate when non-nil.
	Thickness *measure.ThicknessOptions

	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger { return logx.Or(r.Logger) }

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Run lists src and analyses every entry. Results are in listing order.
// The returned error reports listing problems and cancellation; per-file
// failures are carried in the results.
func (r *Runner) Run(ctx context.Context, src source.Source) ([]FileResult, error) {
	names, listErr := src.List(ctx)
	if listErr != nil {
		r.logger().Warn("listing inputs", "err", listErr)
	}
	results := make([]FileResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, name := range names {
		g.Go(func() error {
			results[i] = r.runOne(gctx, src, name)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(listErr, ctx.Err())
}

func (r *Runner) runOne(ctx context.Context, src source.Source, name string) FileResult {
	display := source.DisplayName(name)
	if err := ctx.Err(); err != nil {
		res := FileResult{Name: display}
		res.fail(err)
		return res
	}
	rc, err := src.Open(ctx, name)
	if err != nil {
		res := FileResult{Name: display}
		res.fail(fmt.Errorf("batch: open %s: %w", display, err))
		r.logger().Error("open failed", "file", display, "err", err)
		return res
	}
	defer rc.Close()
	return r.AnalyzeReader(display, rc)
}

// AnalyzeReader decodes an STL stream and analyses it.
func (r *Runner) AnalyzeReader(name string, rd io.Reader) FileResult {
	m, err := stl.Decode(rd)
	if err != nil {
		res := FileResult{Name: name}
		res.fail(fmt.Errorf("batch: decode %s: %w", name, err))
		r.logger().Error("decode failed", "file", name, "err", err)
		return res
	}
	m.Name = name
	return r.Analyze(m)
}

// Analyze measures an already decoded mesh.
func (r *Runner) Analyze(m *kernel.Mesh) FileResult {
	start := time.Now()
	res := FileResult{Name: m.Name}
	if r.MeshWorkers > 1 {
		res.Result = measure.AnalyzeParallel(m, r.MeshWorkers)
	} else {
		res.Result = measure.Analyze(m)
	}

	log := r.logger().With("file", m.Name)
	if res.Inverted() {
		res.Warnings = append(res.Warnings, "negative volume, triangles may be wound inward")
		log.Warn("negative mesh volume", "meshVolume", res.MeshVolume)
	}
	if !res.Valid() {
		res.Warnings = append(res.Warnings, "non-finite volume")
		log.Warn("non-finite volume")
	}

	if r.Thickness != nil {
		st := measure.Thickness(m, *r.Thickness)
		res.Thickness = &st
	}

	if len(r.Columns) > 0 {
		eng := r.Engine
		if eng == nil {
			eng = engine.NewEngine()
		}
		vals, errs := eng.Columns(r.Columns, engine.MeshVars(m, res.Result))
		res.Columns = vals
		for _, err := range errs {
			res.Warnings = append(res.Warnings, err.Error())
			log.Warn("column failed", "err", err)
		}
	}

	res.Duration = time.Since(start)
	log.Debug("analysed", "triangles", res.Triangles, "duration", res.Duration)
	return res
}
