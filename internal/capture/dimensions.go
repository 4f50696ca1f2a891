package capture

// Dimensions summarizes the measured body. Fields are zero until the stage
// that determines them: Width from two floor vertices, Depth from four,
// Height and Volume once the top face exists.
type Dimensions struct {
	Width  float32 `json:"width"`
	Depth  float32 `json:"depth"`
	Height float32 `json:"height"`
	Volume float32 `json:"volume"`
}

// Dimensions measures the committed vertices.
func (s *Store) Dimensions() (Dimensions, bool) {
	var d Dimensions
	if len(s.bottom) < 2 {
		return d, false
	}
	d.Width = s.bottom[1].Distance(s.bottom[0])
	if len(s.bottom) == 4 {
		d.Depth = s.bottom[2].Distance(s.bottom[1])
	}
	if len(s.top) == 4 {
		d.Height = s.top[0].Y - s.bottom[0].Y
		d.Volume = d.Width * d.Depth * d.Height
	}
	return d, true
}
