package trace

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/internal/session"
)

// Target receives poses and commands. *session.Session implements it.
type Target interface {
	DeliverPose(ctx context.Context, pose camera.Pose) error
	Commit(ctx context.Context) error
	Undo(ctx context.Context) error
	Clear(ctx context.Context) error
	ExportView(ctx context.Context, path string) error
}

// Result summarizes a replay.
type Result struct {
	Frames   int
	Commands int
	// Last is the snapshot of the final pose.
	Last session.Snapshot
}

// Replayer drives a Target with trace steps. Commands are only sent once
// the snapshot of the preceding pose has arrived, so they always apply to
// the frame the snapshot describes.
type Replayer struct {
	target    Target
	snapshots <-chan session.Snapshot
	log       *zap.Logger

	// OnSnapshot, if set, is called with every snapshot. Returning an
	// error stops the replay.
	OnSnapshot func(session.Snapshot) error
}

// NewReplayer creates a replayer. snapshots must be a subscription on the
// target's snapshot stream taken before the first pose is delivered.
func NewReplayer(target Target, snapshots <-chan session.Snapshot, log *zap.Logger) *Replayer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Replayer{target: target, snapshots: snapshots, log: log}
}

// Run replays steps in order.
func (r *Replayer) Run(ctx context.Context, steps []Step) (Result, error) {
	var res Result
	for i, step := range steps {
		if err := r.target.DeliverPose(ctx, step.Pose); err != nil {
			return res, fmt.Errorf("frame %d: %w", i, err)
		}

		snap, err := r.await(ctx)
		if err != nil {
			return res, fmt.Errorf("frame %d: %w", i, err)
		}
		res.Frames++
		res.Last = snap

		if r.OnSnapshot != nil {
			if err := r.OnSnapshot(snap); err != nil {
				return res, err
			}
		}

		for _, cmd := range step.Commands {
			r.log.Debug("sending command",
				zap.Int("frame", i),
				zap.Stringer("command", cmd.Kind),
				zap.String("stage", snap.Stage),
			)
			if err := r.send(ctx, cmd); err != nil {
				return res, fmt.Errorf("frame %d: %s: %w", i, cmd.Kind, err)
			}
			res.Commands++
		}
	}
	return res, nil
}

func (r *Replayer) await(ctx context.Context) (session.Snapshot, error) {
	select {
	case snap, ok := <-r.snapshots:
		if !ok {
			return session.Snapshot{}, session.ErrClosed
		}
		return snap, nil
	case <-ctx.Done():
		return session.Snapshot{}, ctx.Err()
	}
}

func (r *Replayer) send(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CommandCommit:
		return r.target.Commit(ctx)
	case CommandUndo:
		return r.target.Undo(ctx)
	case CommandClear:
		return r.target.Clear(ctx)
	case CommandExport:
		return r.target.ExportView(ctx, cmd.Path)
	default:
		return fmt.Errorf("unknown command %d", cmd.Kind)
	}
}
