// Command rusty-stl measures the enclosed volume and bounding box volume of
// STL meshes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pangeorg/rusty-stl/pkg/config"
	"github.com/pangeorg/rusty-stl/pkg/logx"
)

// flags holds command line values that override the config file.
type flags struct {
	config    string
	format    string
	workers   int
	recursive bool
	thickness bool
	scale     float64
	store     string
	verbose   bool
	quiet     bool
	port      int
}

// apply overlays flags the user set explicitly onto cfg.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("format") {
		cfg.Analysis.Format = f.format
	}
	if changed("workers") {
		cfg.Analysis.Workers = f.workers
	}
	if changed("recursive") {
		cfg.Analysis.Recursive = f.recursive
	}
	if changed("thickness") {
		cfg.Analysis.Thickness = f.thickness
	}
	if changed("scale") {
		cfg.Analysis.Scale = f.scale
	}
	if changed("store") {
		cfg.Database.Driver = f.store
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
}

func (f *flags) logLevel(cfg *config.Config) slog.Level {
	if f.verbose || f.quiet {
		return logx.LevelFromFlags(f.verbose, f.quiet)
	}
	return logx.ParseLevel(cfg.Log.Level)
}

// setup loads the configuration and builds the App for cmd.
func (f *flags) setup(cmd *cobra.Command) (*App, error) {
	cfg, err := config.Resolve(f.config)
	if err != nil {
		return nil, err
	}
	f.apply(cmd, cfg)
	log := logx.SetDefault(cmd.ErrOrStderr(), f.logLevel(cfg), cfg.Log.JSON)
	return NewApp(cfg, cmd.OutOrStdout(), log), nil
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "rusty-stl [flags] PATH...",
		Short: "Measure mesh and bounding box volumes of STL files",
		Long: `rusty-stl reads binary or ASCII STL files and reports the enclosed mesh
volume and the volume of the axis-aligned bounding box.

PATH may be a file, a directory (its .stl files), a glob pattern such as
"parts/**/*.stl", or an object store location s3://bucket/prefix.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			app, err := f.setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			_, err = app.Analyze(cmd.Context(), args)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.config, "config", "", "config file (.yaml or .toml), defaults to $"+config.EnvPath)
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "only log errors")
	pf.IntVar(&f.workers, "workers", 0, "files analysed concurrently (0 = one per CPU)")
	pf.BoolVar(&f.thickness, "thickness", false, "estimate wall thickness (slow on large meshes)")
	pf.StringVar(&f.store, "store", "", "result store driver: postgres or mysql")

	fl := root.Flags()
	fl.StringVar(&f.format, "format", "table", "output format: table, csv or json")
	fl.BoolVarP(&f.recursive, "recursive", "r", false, "descend into subdirectories")
	fl.Float64Var(&f.scale, "scale", 1e6, "divide reported volumes by this factor (1 for mm³)")

	root.AddCommand(newServeCmd(f), newSampleCmd(f), newWatchCmd(f))
	return root
}

func newServeCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := f.setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&f.port, "port", 8080, "listen port")
	return cmd
}

func newSampleCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "sample SHAPES.yaml OUTDIR",
		Short: "Write reference STL files with known volumes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := f.setup(cmd)
			if err != nil {
				return err
			}
			_, err = app.Sample(args[0], args[1])
			return err
		},
	}
}

func newWatchCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch DIR...",
		Short: "Re-analyse STL files as they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := f.setup(cmd)
			if err != nil {
				return err
			}
			return app.Watch(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVar(&f.format, "format", "table", "output format: table, csv or json")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "watch subdirectories")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
