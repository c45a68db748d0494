package domain

// ExecutionMode selects where a generation request runs. It is a binary
// branch chosen before submission; if the chosen path fails the other one is
// not tried automatically.
type ExecutionMode string

const (
	ModeLocal ExecutionMode = "local"
	ModeCloud ExecutionMode = "cloud"
)

// VideoStyle values understood by the prompt enrichment step.
const (
	StyleCinematic = "Cinematic"
	StyleAnime     = "Anime"
	StyleNormal    = "Normal"
)

// Settings is the snapshot of generation parameters taken at submission
// time. It is immutable once attached to a job.
type Settings struct {
	ModelID          string        `json:"model_id,omitempty"`
	Width            int           `json:"width"`
	Height           int           `json:"height"`
	NumFrames        int           `json:"num_frames"`
	FPS              int           `json:"fps"`
	NumSteps         int           `json:"num_steps"`
	Guidance         float64       `json:"guidance,omitempty"`
	VideoStyle       string        `json:"video_style,omitempty"`
	QualityPreset    string        `json:"quality_preset,omitempty"`
	EnableSubtitles  bool          `json:"enable_subtitles,omitempty"`
	EnableRefinement bool          `json:"enable_refinement,omitempty"`
	LowVRAM          bool          `json:"low_vram,omitempty"`
	Mode             ExecutionMode `json:"mode,omitempty"`

	// SourceLang hints the prompt's language; empty or "auto" means detect.
	SourceLang string `json:"source_lang,omitempty"`
}

// DefaultSettings mirrors the defaults the worker applies when a job carries
// a partial snapshot.
func DefaultSettings() Settings {
	return Settings{
		Width:      512,
		Height:     512,
		NumFrames:  32,
		FPS:        8,
		NumSteps:   40,
		Guidance:   9.0,
		VideoStyle: StyleCinematic,
		LowVRAM:    true,
		Mode:       ModeLocal,
	}
}

// Normalize fills zero fields with worker defaults.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.Width <= 0 {
		s.Width = d.Width
	}
	if s.Height <= 0 {
		s.Height = d.Height
	}
	if s.NumFrames <= 0 {
		s.NumFrames = d.NumFrames
	}
	if s.FPS <= 0 {
		s.FPS = d.FPS
	}
	if s.NumSteps <= 0 {
		s.NumSteps = d.NumSteps
	}
	if s.Guidance <= 0 {
		s.Guidance = d.Guidance
	}
	if s.VideoStyle == "" {
		s.VideoStyle = d.VideoStyle
	}
	if s.Mode == "" {
		s.Mode = d.Mode
	}
	return s
}

// StylePrefix returns the prompt fragment prepended for the configured video
// style. Unknown styles map to no prefix.
func (s Settings) StylePrefix() string {
	switch s.VideoStyle {
	case StyleCinematic:
		return "cinematic, film quality, dramatic lighting, "
	case StyleAnime:
		return "anime style, vibrant colors, japanese animation, "
	default:
		return ""
	}
}
