package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// execPipeline drives an external runner binary that hosts the diffusion
// model. The runner reads a JSON request on stdin and writes the finished
// video to the path given with --output.
type execPipeline struct {
	bin     string
	modelID string
	lowVRAM bool
}

func newExecPipeline(bin string) *execPipeline {
	return &execPipeline{bin: bin}
}

func (p *execPipeline) Load(ctx context.Context, modelID string, lowVRAM bool) error {
	if strings.TrimSpace(modelID) == "" {
		return fmt.Errorf("generator: model id is required")
	}
	p.modelID = modelID
	p.lowVRAM = lowVRAM
	return nil
}

func (p *execPipeline) Generate(ctx context.Context, req Request) ([]byte, error) {
	if p.modelID == "" {
		return nil, fmt.Errorf("generator: pipeline not loaded")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("generator: marshal request: %w", err)
	}

	tmp, err := os.CreateTemp("", "videogen-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("generator: create temp output: %w", err)
	}
	outPath := tmp.Name()
	tmp.Close()
	defer os.Remove(outPath)

	args := []string{"--model", p.modelID, "--output", outPath}
	if p.lowVRAM {
		args = append(args, "--low-vram")
	}

	cmd := exec.CommandContext(ctx, p.bin, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		return nil, fmt.Errorf("generator: runner failed: %w: %s", err, msg)
	}

	data, err := os.ReadFile(filepath.Clean(outPath))
	if err != nil {
		return nil, fmt.Errorf("generator: read runner output: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("generator: runner produced no video")
	}
	return data, nil
}

func (p *execPipeline) Close() error {
	p.modelID = ""
	return nil
}
