// Package session runs one cuboid capture: it serializes camera poses and
// host commands onto a single goroutine, applies them to the capture store
// and publishes a snapshot for every pose.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/internal/capture"
	"github.com/Faultbox/arbox/internal/metrics"
	"github.com/Faultbox/arbox/internal/solver"
	"github.com/Faultbox/arbox/pkg/math"
)

// ErrClosed is returned for poses and commands delivered after teardown.
var ErrClosed = errors.New("session closed")

// Options configures a Session.
type Options struct {
	Params solver.Params
	// ScreenCenter is where the surface locator looks for the first vertex.
	ScreenCenter math.Vec2
	// PoseBuffer is how many poses may queue ahead of the run loop.
	PoseBuffer int
	// SnapshotBuffer is each subscriber's channel capacity.
	SnapshotBuffer int

	Locator   SurfaceLocator
	Projector ScreenProjector
	Exporter  ImageExporter

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type commandKind int

const (
	cmdCommit commandKind = iota
	cmdUndo
	cmdClear
	cmdExport
)

func (k commandKind) String() string {
	switch k {
	case cmdCommit:
		return "commit"
	case cmdUndo:
		return "undo"
	case cmdClear:
		return "clear"
	case cmdExport:
		return "export"
	default:
		return "unknown"
	}
}

type command struct {
	kind  commandKind
	path  string
	reply chan error
}

// Session owns one capture store. All state changes happen on the goroutine
// running Run, so the store needs no locking.
type Session struct {
	store    *capture.Store
	emitter  *Emitter
	exporter ImageExporter
	log      *zap.Logger
	metrics  *metrics.Metrics

	poses chan camera.Pose
	cmds  chan command

	snapshots *Broadcaster[Snapshot]
	notices   *Broadcaster[Notice]

	exports   sync.WaitGroup
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session. Call Run to start processing.
func New(opts Options) *Session {
	if opts.PoseBuffer < 1 {
		opts.PoseBuffer = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	store := capture.NewStore(opts.Params)
	return &Session{
		store:     store,
		emitter:   NewEmitter(store, opts.Locator, opts.Projector, opts.ScreenCenter),
		exporter:  opts.Exporter,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		poses:     make(chan camera.Pose, opts.PoseBuffer),
		cmds:      make(chan command),
		snapshots: NewBroadcaster[Snapshot](opts.SnapshotBuffer),
		notices:   NewBroadcaster[Notice](opts.SnapshotBuffer),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Snapshots returns the snapshot broadcaster.
func (s *Session) Snapshots() *Broadcaster[Snapshot] {
	return s.snapshots
}

// Notices returns the broadcaster for export results and other log events.
func (s *Session) Notices() *Broadcaster[Notice] {
	return s.notices
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run processes poses and commands until ctx is cancelled or Close is
// called. It returns nil after Close and ctx.Err() after cancellation.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.teardown()

	s.log.Info("capture session started")
	for {
		// select picks among ready cases at random, so a pending quit must
		// win over queued poses and commands.
		if s.stopping(ctx) {
			if s.isClosed() {
				return nil
			}
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
		case <-s.quit:
		case pose := <-s.poses:
			if !s.stopping(ctx) {
				s.handlePose(pose)
			}
		case cmd := <-s.cmds:
			if s.stopping(ctx) {
				s.metrics.CommandsRejected.Add(1)
				cmd.reply <- ErrClosed
				continue
			}
			cmd.reply <- s.handleCommand(ctx, cmd)
		}
	}
}

// Close tears the session down. Poses and commands that arrive afterwards
// are rejected with ErrClosed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
}

// DeliverPose queues the next camera pose. Poses are processed strictly in
// delivery order.
func (s *Session) DeliverPose(ctx context.Context, pose camera.Pose) error {
	if s.isClosed() {
		return ErrClosed
	}
	select {
	case s.poses <- pose:
		return nil
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Commit accepts the current candidate. Having no candidate is not an error.
func (s *Session) Commit(ctx context.Context) error {
	return s.send(ctx, command{kind: cmdCommit})
}

// Undo rolls back one step.
func (s *Session) Undo(ctx context.Context) error {
	return s.send(ctx, command{kind: cmdUndo})
}

// Clear discards the whole capture.
func (s *Session) Clear(ctx context.Context) error {
	return s.send(ctx, command{kind: cmdClear})
}

// ExportView asks the exporter to write the current view to path. It is
// acknowledged immediately; the outcome is logged and published as a Notice.
func (s *Session) ExportView(ctx context.Context, path string) error {
	return s.send(ctx, command{kind: cmdExport, path: path})
}

func (s *Session) send(ctx context.Context, cmd command) error {
	if s.isClosed() {
		s.metrics.CommandsRejected.Add(1)
		s.log.Debug("command ignored after teardown", zap.Stringer("command", cmd.kind))
		return ErrClosed
	}

	cmd.reply = make(chan error, 1)
	select {
	case s.cmds <- cmd:
	case <-s.quit:
		s.metrics.CommandsRejected.Add(1)
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// The run loop always replies to a command it has received.
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopping reports whether Close was called or ctx is done.
func (s *Session) stopping(ctx context.Context) bool {
	return s.isClosed() || ctx.Err() != nil
}

func (s *Session) isClosed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

func (s *Session) handlePose(pose camera.Pose) {
	start := time.Now()

	snap := s.emitter.Update(pose)

	s.metrics.FramesProcessed.Add(1)
	if !pose.Tracked() {
		s.metrics.FramesUntracked.Add(1)
	}
	if snap.HasCandidate() {
		s.metrics.CandidatesOffered.Add(1)
	}
	if dropped := s.snapshots.Publish(snap); dropped > 0 {
		s.metrics.SnapshotsDropped.Add(uint64(dropped))
	}
	s.metrics.UpdateProcessLatency(time.Since(start))
}

func (s *Session) handleCommand(ctx context.Context, cmd command) error {
	switch cmd.kind {
	case cmdCommit:
		s.commit()
	case cmdUndo:
		if stage, ok := s.store.Undo(); ok {
			s.metrics.Undos.Add(1)
			s.log.Debug("undo", zap.Stringer("stage", stage))
		}
	case cmdClear:
		s.store.Clear()
		s.metrics.Clears.Add(1)
		s.log.Debug("capture cleared")
	case cmdExport:
		s.export(ctx, cmd.path)
	default:
		return fmt.Errorf("unknown command %d", cmd.kind)
	}
	s.metrics.Stage.Store(uint64(s.store.Stage()))
	return nil
}

func (s *Session) commit() {
	frame, ok := s.emitter.Frame()
	if !ok {
		s.metrics.CommitNoops.Add(1)
		s.log.Debug("commit before first pose")
		return
	}

	stage, ok := s.store.Commit(frame)
	if !ok {
		s.metrics.CommitNoops.Add(1)
		s.log.Debug("commit without candidate", zap.Stringer("stage", stage))
		return
	}

	s.metrics.Commits.Add(1)
	fields := []zap.Field{
		zap.Stringer("stage", stage),
		zap.Int("bottom", len(s.store.Bottom())),
		zap.Int("top", len(s.store.Top())),
	}
	if d, ok := s.store.Dimensions(); ok && stage == capture.StageDone {
		fields = append(fields,
			zap.Float32("width", d.Width),
			zap.Float32("depth", d.Depth),
			zap.Float32("height", d.Height),
		)
	}
	s.log.Info("vertex committed", fields...)
}

func (s *Session) export(ctx context.Context, path string) {
	if path == "" {
		s.notify(Notice{Level: NoticeWarn, Message: "missing path for view export"})
		return
	}
	if s.exporter == nil {
		s.notify(Notice{Level: NoticeWarn, Message: "view export unavailable", Path: path})
		return
	}

	ctx = context.WithoutCancel(ctx)
	exporter := s.exporter
	write := func(ctx context.Context) error {
		return exporter.Export(ctx, path)
	}
	if c, ok := exporter.(ViewCapturer); ok {
		w, err := c.CaptureView(ctx, path)
		if err != nil {
			s.exportFailed(path, err)
			return
		}
		write = w
	}

	s.exports.Add(1)
	go func() {
		defer s.exports.Done()
		if err := write(ctx); err != nil {
			s.exportFailed(path, err)
			return
		}
		s.metrics.ExportsSucceeded.Add(1)
		s.notify(Notice{Level: NoticeInfo, Message: "view saved", Path: path})
	}()
}

func (s *Session) exportFailed(path string, err error) {
	s.metrics.ExportsFailed.Add(1)
	s.notify(Notice{Level: NoticeWarn, Message: fmt.Sprintf("saving the view failed: %v", err), Path: path})
}

func (s *Session) notify(n Notice) {
	if n.Level == NoticeWarn {
		s.log.Warn(n.Message, zap.String("path", n.Path))
	} else {
		s.log.Info(n.Message, zap.String("path", n.Path))
	}
	s.notices.Publish(n)
}

// teardown runs on the loop goroutine when Run returns.
func (s *Session) teardown() {
	s.Close()
	s.store.Clear()
	s.metrics.Stage.Store(uint64(capture.StageEmpty))
	s.snapshots.Close()

	// Exports still in flight report before the notice channel closes.
	s.exports.Wait()
	s.notices.Close()
	s.log.Info("capture session stopped")
}
