package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/arbox/internal/export"
	"github.com/Faultbox/arbox/internal/logger"
	"github.com/Faultbox/arbox/internal/metrics"
	"github.com/Faultbox/arbox/internal/scene"
	"github.com/Faultbox/arbox/internal/session"
	"github.com/Faultbox/arbox/internal/trace"
)

type replayOptions struct {
	out   string
	quiet bool
}

func newReplayCmd(a *app) *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay <trace.yaml>",
		Short: "Drive a capture session from a pose trace",
		Long: `Replay delivers every pose of a YAML trace to a capture session, sends the
commands listed on each keyframe and writes one JSON snapshot per frame.
Exports requested by the trace render the overlay of the latest snapshot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReplay(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "-", "Write snapshots to this file (- for stdout)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print the summary")
	return cmd
}

func (a *app) runReplay(cmd *cobra.Command, path string, opts replayOptions) error {
	tr, err := trace.Load(path)
	if err != nil {
		return err
	}
	steps, err := tr.Steps()
	if err != nil {
		return fmt.Errorf("expanding %s: %w", path, err)
	}

	out, closeOut, err := openOutput(cmd.OutOrStdout(), opts.out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	vp := cfg.Viewport.Viewport()
	sketch := scene.NewSketch(vp)
	exporter := export.NewFileExporter(sketch)
	exporter.JPEGQuality = cfg.Export.JPEGQuality

	m := metrics.New()
	s := session.New(session.Options{
		Params:         cfg.Capture.Params(),
		ScreenCenter:   vp.Center(),
		PoseBuffer:     cfg.Session.PoseBuffer,
		SnapshotBuffer: cfg.Session.SnapshotBuffer,
		Locator:        scene.PlaneLocator{Viewport: vp, FloorY: cfg.Capture.FloorY},
		Projector:      scene.PinholeProjector{Viewport: vp},
		Exporter:       exporter,
		Logger:         logger.Named("session"),
		Metrics:        m,
	})
	// Subscribe before the loop starts so no snapshot is missed.
	_, snaps := s.Snapshots().Subscribe()

	logger.Info("replaying trace",
		zap.String("trace", tr.Name),
		zap.String("path", path),
		zap.Int("frames", len(steps)),
	)

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(gctx)
	defer stopServe()

	g.Go(func() error {
		return ignoreCanceled(s.Run(gctx))
	})

	if cfg.Metrics.Listen != "" {
		g.Go(func() error {
			logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Listen))
			return m.Serve(serveCtx, cfg.Metrics.Listen)
		})
	}

	var res trace.Result
	g.Go(func() error {
		defer stopServe()
		defer s.Close()

		r := trace.NewReplayer(s, snaps, logger.Named("replay"))
		enc := json.NewEncoder(out)
		r.OnSnapshot = func(snap session.Snapshot) error {
			sketch.Update(snap)
			if opts.quiet {
				return nil
			}
			return enc.Encode(snap)
		}

		var err error
		res, err = r.Run(gctx, steps)
		return ignoreCanceled(err)
	})

	if err := multierr.Combine(g.Wait(), closeOut()); err != nil {
		return err
	}

	printSummary(cmd.ErrOrStderr(), res, m)
	return nil
}

func printSummary(w io.Writer, res trace.Result, m *metrics.Metrics) {
	fmt.Fprintf(w, "Frames: %d  Commands: %d  Stage: %s\n", res.Frames, res.Commands, res.Last.Stage)
	fmt.Fprintf(w, "Commits: %d  Undos: %d  Clears: %d  Exports: %d ok / %d failed\n",
		m.Commits.Load(), m.Undos.Load(), m.Clears.Load(),
		m.ExportsSucceeded.Load(), m.ExportsFailed.Load())

	if d := res.Last.Dimensions; d != nil {
		fmt.Fprintf(w, "Width: %.3f  Depth: %.3f  Height: %.3f  Volume: %.3f\n", d.Width, d.Depth, d.Height, d.Volume)
	}
}

// openOutput returns the snapshot writer and a function closing it.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, f.Close, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
