// Package trace loads recorded or hand-written camera pose traces from YAML
// and replays them against a capture session.
//
// A trace is a list of keyframes. Each keyframe places the camera, either
// looking at a target, by yaw/pitch in degrees or by a rotation quaternion,
// and may be reached over several interpolated frames. Commands listed on a
// keyframe are sent after its pose has been processed.
//
//	name: unit box
//	keyframes:
//	  - position: [-1, 1.5, 3]
//	    target: [0, 0, 0]
//	    commands: [commit]
//	  - position: [0, 1, 2]
//	    yaw: 0
//	    pitch: -45
//	    steps: 10
//	    commands: [commit, "export out/view.png"]
package trace

import (
	"errors"
	"fmt"
	gomath "math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/pkg/math"
)

// Trace is a parsed trace file.
type Trace struct {
	Name      string     `yaml:"name"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe is one camera placement.
type Keyframe struct {
	Position []float32 `yaml:"position"`
	Target   []float32 `yaml:"target,omitempty"`
	Yaw      float32   `yaml:"yaw,omitempty"`   // degrees about +Y
	Pitch    float32   `yaml:"pitch,omitempty"` // degrees, positive looks up
	Rotation []float32 `yaml:"rotation,omitempty"`
	Tracking string    `yaml:"tracking,omitempty"`
	Steps    int       `yaml:"steps,omitempty"`
	Commands []string  `yaml:"commands,omitempty"`
}

// CommandKind identifies a host command.
type CommandKind int

const (
	CommandCommit CommandKind = iota
	CommandUndo
	CommandClear
	CommandExport
)

func (k CommandKind) String() string {
	switch k {
	case CommandCommit:
		return "commit"
	case CommandUndo:
		return "undo"
	case CommandClear:
		return "clear"
	case CommandExport:
		return "export"
	default:
		return "unknown"
	}
}

// Command is one host command. Path is only used by export.
type Command struct {
	Kind CommandKind
	Path string
}

// ParseCommand parses "commit", "undo", "clear" or "export <path>".
func ParseCommand(s string) (Command, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(s), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "commit":
		return Command{Kind: CommandCommit}, nil
	case "undo":
		return Command{Kind: CommandUndo}, nil
	case "clear":
		return Command{Kind: CommandClear}, nil
	case "export":
		return Command{Kind: CommandExport, Path: arg}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q", s)
	}
}

// Step is one pose to deliver followed by the commands to send after it.
type Step struct {
	Pose     camera.Pose
	Commands []Command
}

// Load reads and parses a trace file.
func Load(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a trace from YAML.
func Parse(data []byte) (*Trace, error) {
	var t Trace
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if len(t.Keyframes) == 0 {
		return nil, errors.New("trace has no keyframes")
	}
	return &t, nil
}

type placement struct {
	position math.Vec3
	rotation math.Quat
	tracking camera.TrackingState
}

// Steps expands the keyframes into one step per frame.
func (t *Trace) Steps() ([]Step, error) {
	var steps []Step
	var prev placement

	for i, kf := range t.Keyframes {
		cur, err := kf.placement()
		if err != nil {
			return nil, fmt.Errorf("keyframe %d: %w", i, err)
		}
		cmds, err := kf.commands()
		if err != nil {
			return nil, fmt.Errorf("keyframe %d: %w", i, err)
		}

		n := kf.Steps
		if n < 1 || i == 0 {
			n = 1
		}
		for s := 1; s <= n; s++ {
			tt := float32(s) / float32(n)
			p := placement{
				position: prev.position.Lerp(cur.position, tt),
				rotation: prev.rotation.Slerp(cur.rotation, tt),
				tracking: cur.tracking,
			}
			if s == n {
				p = cur
			}

			pose, ok := p.pose()
			if !ok {
				return nil, fmt.Errorf("keyframe %d: degenerate camera transform", i)
			}
			step := Step{Pose: pose}
			if s == n {
				step.Commands = cmds
			}
			steps = append(steps, step)
		}
		prev = cur
	}
	return steps, nil
}

func (kf Keyframe) placement() (placement, error) {
	pos, err := vec3(kf.Position, "position")
	if err != nil {
		return placement{}, err
	}

	tracking, ok := camera.ParseTrackingState(kf.Tracking)
	if !ok {
		return placement{}, fmt.Errorf("unknown tracking state %q", kf.Tracking)
	}

	var rot math.Quat
	switch {
	case kf.Rotation != nil:
		if len(kf.Rotation) != 4 {
			return placement{}, fmt.Errorf("rotation needs 4 values, got %d", len(kf.Rotation))
		}
		rot = math.Quat{X: kf.Rotation[0], Y: kf.Rotation[1], Z: kf.Rotation[2], W: kf.Rotation[3]}.Normalize()
	case kf.Target != nil:
		target, err := vec3(kf.Target, "target")
		if err != nil {
			return placement{}, err
		}
		yaw, pitch, ok := aim(target.Sub(pos))
		if !ok {
			return placement{}, errors.New("target coincides with position")
		}
		rot = orientation(yaw, pitch)
	default:
		rot = orientation(radians(kf.Yaw), radians(kf.Pitch))
	}

	return placement{position: pos, rotation: rot, tracking: tracking}, nil
}

func (kf Keyframe) commands() ([]Command, error) {
	cmds := make([]Command, 0, len(kf.Commands))
	for _, s := range kf.Commands {
		c, err := ParseCommand(s)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

func (p placement) pose() (camera.Pose, bool) {
	world := math.Translate(p.position.X, p.position.Y, p.position.Z).Mul(p.rotation.ToMat4())
	pose, ok := camera.NewPose(world)
	if !ok {
		return camera.Pose{}, false
	}
	pose.Tracking = p.tracking
	return pose, true
}

// orientation turns a camera looking down -Z by pitch about X, then yaw
// about Y.
func orientation(yaw, pitch float32) math.Quat {
	qYaw := math.QuatFromAxisAngle(math.Vec3{Y: 1}, yaw)
	qPitch := math.QuatFromAxisAngle(math.Vec3{X: 1}, pitch)
	return qYaw.Mul(qPitch).Normalize()
}

// aim returns the yaw and pitch that point -Z along dir.
func aim(dir math.Vec3) (yaw, pitch float32, ok bool) {
	if dir.Length() < 1e-6 {
		return 0, 0, false
	}
	horizontal := gomath.Hypot(float64(dir.X), float64(dir.Z))
	yaw = float32(gomath.Atan2(float64(-dir.X), float64(-dir.Z)))
	pitch = float32(gomath.Atan2(float64(dir.Y), horizontal))
	return yaw, pitch, true
}

func radians(deg float32) float32 {
	return deg * gomath.Pi / 180
}

func vec3(v []float32, field string) (math.Vec3, error) {
	if len(v) != 3 {
		return math.Vec3{}, fmt.Errorf("%s needs 3 values, got %d", field, len(v))
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}
