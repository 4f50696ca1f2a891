package session

import (
	"github.com/Faultbox/arbox/internal/capture"
)

// Snapshot is the consolidated per-pose update sent to the host. Points are
// [x,y,z] world coordinates, screen points are [x,y]. Screen lists only hold
// the vertices that could be projected, in face order.
type Snapshot struct {
	Sequence             uint64              `json:"sequence"`
	Stage                string              `json:"stage"`
	BottomPoints         [][]float32         `json:"bottomPoints"`
	BottomPointsScreen   [][]float32         `json:"bottomPointsScreen"`
	TopPoints            [][]float32         `json:"topPoints"`
	TopPointsScreen      [][]float32         `json:"topPointsScreen"`
	CandidatePoint       []float32           `json:"candidatePoint,omitempty"`
	CandidatePointScreen []float32           `json:"candidatePointScreen,omitempty"`
	CameraPosition       []float32           `json:"cameraPosition"`
	FirstCameraPosition  []float32           `json:"firstCameraPosition"`
	ViewTransform        [][]float32         `json:"viewTransform"`
	AllPointsInFront     bool                `json:"allPointsInFront"`
	NearestIndex         *int                `json:"nearestIndex,omitempty"`
	Dimensions           *capture.Dimensions `json:"dimensions,omitempty"`
}

// HasCandidate reports whether the snapshot carries a candidate point.
func (s Snapshot) HasCandidate() bool {
	return len(s.CandidatePoint) == 3
}

// NoticeLevel classifies a Notice.
type NoticeLevel string

const (
	NoticeInfo NoticeLevel = "info"
	NoticeWarn NoticeLevel = "warn"
)

// Notice is an out-of-band log event for the host, such as the outcome of
// an export.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	Path    string      `json:"path,omitempty"`
}
