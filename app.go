package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pangeorg/rusty-stl/pkg/batch"
	"github.com/pangeorg/rusty-stl/pkg/config"
	"github.com/pangeorg/rusty-stl/pkg/discover"
	"github.com/pangeorg/rusty-stl/pkg/engine"
	"github.com/pangeorg/rusty-stl/pkg/kernel"
	"github.com/pangeorg/rusty-stl/pkg/kernel/sdfx"
	"github.com/pangeorg/rusty-stl/pkg/logx"
	"github.com/pangeorg/rusty-stl/pkg/measure"
	"github.com/pangeorg/rusty-stl/pkg/report"
	"github.com/pangeorg/rusty-stl/pkg/server"
	"github.com/pangeorg/rusty-stl/pkg/source"
	"github.com/pangeorg/rusty-stl/pkg/stl"
	"github.com/pangeorg/rusty-stl/pkg/store"
	"github.com/pangeorg/rusty-stl/pkg/tessellate"
	"github.com/pangeorg/rusty-stl/pkg/watch"
)

// errFilesFailed is returned when at least one input could not be analysed.
var errFilesFailed = errors.New("some files failed")

// App wires configuration to the analysis pipeline. Each CLI command is
// one method.
type App struct {
	cfg    *config.Config
	out    io.Writer
	log    *slog.Logger
	runner *batch.Runner
	kernel kernel.Kernel
	clock  store.Clock

	outMu sync.Mutex
	// headerDone is set once watch mode has printed its report header.
	headerDone bool

	repo      store.Repository
	closeRepo func() error
}

// NewApp creates an App writing reports to out.
func NewApp(cfg *config.Config, out io.Writer, log *slog.Logger) *App {
	a := &App{
		cfg:    cfg,
		out:    out,
		log:    log,
		kernel: sdfx.New(),
		clock:  store.SystemClock{},
	}
	a.runner = &batch.Runner{
		Engine:      engine.NewEngine(),
		Columns:     cfg.Columns,
		Workers:     cfg.Analysis.Workers,
		MeshWorkers: cfg.Analysis.MeshWorkers,
		Logger:      log,
	}
	if cfg.Analysis.Thickness {
		a.runner.Thickness = &measure.ThicknessOptions{}
	}
	return a
}

// openStore connects the result store when a database is configured.
func (a *App) openStore(ctx context.Context) error {
	db := a.cfg.Database
	if db.Driver == "" || a.repo != nil {
		return nil
	}
	s, err := store.Open(ctx, db.Driver, db.ConnString())
	if err != nil {
		return err
	}
	if err := s.Migrate(ctx); err != nil {
		logx.Log(s.Close())
		return err
	}
	a.repo, a.closeRepo = s, s.Close
	return nil
}

// Close releases the result store.
func (a *App) Close() error {
	if a.closeRepo == nil {
		return nil
	}
	return logx.Log(a.closeRepo())
}

func (a *App) reportOptions() (report.Options, error) {
	f, err := report.ParseFormat(a.cfg.Analysis.Format)
	if err != nil {
		return report.Options{}, err
	}
	cols := make([]string, len(a.cfg.Columns))
	for i, c := range a.cfg.Columns {
		cols[i] = c.Name
	}
	return report.Options{Format: f, Scale: a.cfg.Analysis.Scale, Columns: cols}, nil
}

// source builds the input source for the given path, glob and s3:// arguments.
func (a *App) source(args []string) (source.Source, error) {
	local, remote, err := source.Split(args)
	if err != nil {
		return nil, err
	}
	files := &source.Files{Args: local, Options: discover.Options{Recursive: a.cfg.Analysis.Recursive}}
	if len(remote) == 0 {
		return files, nil
	}
	bucket, err := source.NewBucket(a.cfg.Minio.Bucket(), remote...)
	if err != nil {
		return nil, err
	}
	if len(local) == 0 {
		return bucket, nil
	}
	return source.Multi{files, bucket}, nil
}

// Analyze measures every input, writes the report and stores the run
// when a database is configured.
func (a *App) Analyze(ctx context.Context, args []string) ([]batch.FileResult, error) {
	opts, err := a.reportOptions()
	if err != nil {
		return nil, err
	}
	src, err := a.source(args)
	if err != nil {
		return nil, err
	}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	results, runErr := a.runner.Run(ctx, src)
	if err := report.Write(a.out, results, opts); err != nil {
		return results, err
	}

	if a.repo != nil && len(results) > 0 {
		runID, recs := store.FromResults(results, a.clock.Now())
		if err := a.repo.Save(ctx, recs...); err != nil {
			return results, err
		}
		a.log.Info("stored run", "run", runID, "files", len(recs))
	}

	if runErr != nil {
		return results, runErr
	}
	if n := batch.CountFailed(results); n > 0 {
		return results, fmt.Errorf("%w: %d of %d", errFilesFailed, n, len(results))
	}
	return results, nil
}

// SampleFile is a reference mesh written by Sample.
type SampleFile struct {
	Path     string
	Expected float64
	Exact    bool
	Result   measure.Result
}

// Sample tessellates the shapes in shapesPath, writes one binary STL per
// mesh into outDir and reports the measured volumes next to the analytic
// ones where those are known.
func (a *App) Sample(shapesPath, outDir string) ([]SampleFile, error) {
	f, err := os.Open(shapesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	shapes, err := tessellate.Decode(f)
	if err != nil {
		return nil, err
	}
	meshes, err := tessellate.Tessellate(shapes, a.kernel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	// Only top level primitives have a closed form volume.
	expected := map[string]float64{}
	for i := range shapes {
		if v, ok := shapes[i].Volume(); ok && shapes[i].Name != "" {
			expected[shapes[i].Name] = v
		}
	}

	out := make([]SampleFile, 0, len(meshes))
	for _, m := range meshes {
		p := filepath.Join(outDir, m.Name+discover.Ext)
		if err := stl.WriteFile(p, m); err != nil {
			return out, err
		}
		sf := SampleFile{Path: p, Result: measure.Analyze(m)}
		sf.Expected, sf.Exact = expected[m.Name]
		out = append(out, sf)

		if sf.Exact {
			fmt.Fprintf(a.out, "%-30s%14.2f%14.2f\n", filepath.Base(p), sf.Result.MeshVolume, sf.Expected)
		} else {
			fmt.Fprintf(a.out, "%-30s%14.2f%14s\n", filepath.Base(p), sf.Result.MeshVolume, "-")
		}
	}
	return out, nil
}

// Serve runs the HTTP API until ctx is cancelled. Without a database the
// results are kept in memory.
func (a *App) Serve(ctx context.Context) error {
	if err := a.openStore(ctx); err != nil {
		return err
	}
	if a.repo == nil {
		a.repo = store.NewMemory()
	}
	h := server.NewRouter(a.runner, server.Options{
		Repo:           a.repo,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Logger:         a.log,
		Clock:          a.clock,
	})
	return server.ListenAndServe(ctx, fmt.Sprintf(":%d", a.cfg.Server.Port), h, a.log)
}

// Watch re-analyses STL files below dirs whenever they change.
func (a *App) Watch(ctx context.Context, dirs []string) error {
	opts, err := a.reportOptions()
	if err != nil {
		return err
	}
	w := &watch.Watcher{
		Recursive: a.cfg.Analysis.Recursive,
		Logger:    a.log,
		OnChange: func(path string) {
			a.watchChanged(path, opts)
		},
	}
	a.log.Info("watching", "dirs", dirs)
	return w.Run(ctx, dirs...)
}

func (a *App) watchChanged(path string, opts report.Options) {
	var res batch.FileResult
	m, err := stl.ReadFile(path)
	if err != nil {
		res = batch.FileResult{Name: path, Err: err, Error: err.Error()}
		a.log.Error("read failed", "file", path, "err", err)
	} else {
		m.Name = path
		res = a.runner.Analyze(m)
	}
	a.outMu.Lock()
	defer a.outMu.Unlock()
	opts.NoHeader = a.headerDone
	if logx.Log(report.Write(a.out, []batch.FileResult{res}, opts)) == nil {
		a.headerDone = true
	}
}
