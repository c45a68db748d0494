// Package generator runs text-to-video generation on the local machine. The
// heavy diffusion pipeline lives in an external runner process; when no
// runner is installed a deterministic synthetic pipeline keeps the rest of
// the application usable.
package generator

import "context"

// Request carries the parameters for one local generation.
type Request struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	NumFrames      int     `json:"num_frames"`
	FPS            int     `json:"fps"`
	NumSteps       int     `json:"num_inference_steps"`
	Guidance       float64 `json:"guidance_scale"`
}

// Pipeline is a loaded text-to-video model. Load is idempotent for the same
// model id; Close releases whatever the model holds.
type Pipeline interface {
	Load(ctx context.Context, modelID string, lowVRAM bool) error
	Generate(ctx context.Context, req Request) ([]byte, error)
	Close() error
}
