// Package subtitle generates timed subtitle segments for a video from its
// prompt and renders them as SubRip files for burn-in.
package subtitle

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"videogen/internal/llm"
)

// Segment is one timed subtitle.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Completer is the slice of the llm client the generator needs.
type Completer interface {
	Complete(ctx context.Context, req llm.CompleteRequest) (string, error)
}

// Generator creates contextual subtitles with a hosted model, falling back
// to a deterministic split of the prompt when the model is unavailable.
type Generator struct {
	client Completer
}

func NewGenerator(client Completer) *Generator {
	return &Generator{client: client}
}

// segmentLine matches lines like "[0-2s] The scene opens with a vast ocean".
var segmentLine = regexp.MustCompile(`\[(\d+\.?\d*)\s*[-–]\s*(\d+\.?\d*)s?\]\s*(.+)`)

// Generate produces subtitle segments covering duration seconds. Any model
// failure falls back to splitting the prompt itself.
func (g *Generator) Generate(ctx context.Context, prompt string, duration float64, lang string, onProgress func(string)) []Segment {
	if onProgress != nil {
		onProgress("Generating subtitles...")
	}
	if g.client == nil {
		return Fallback(prompt, duration)
	}

	segments := max(2, int(duration/2))
	content := strings.Join([]string{
		"You are a subtitle generator. Given a video description, create short,",
		"descriptive subtitle segments that would appear in the video. Each segment should be 1-2 seconds.",
		"Make the subtitles descriptive and immersive, describing what the viewer would see.",
		"",
		"Video description: " + prompt,
		"Duration: " + strconv.FormatFloat(duration, 'f', -1, 64) + " seconds",
		"Language: " + lang,
		"",
		"Generate " + strconv.Itoa(segments) + " subtitle segments. Format each as:",
		"[TIME] Text",
		"",
		"Example:",
		"[0-2s] The scene opens with a vast ocean",
		"[2-4s] Waves gently crash on the shore",
	}, "\n")

	response, err := g.client.Complete(ctx, llm.CompleteRequest{
		Messages:    []llm.Message{{Role: "user", Content: content}},
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil {
		return Fallback(prompt, duration)
	}

	parsed := parseSegments(response, duration)
	if len(parsed) == 0 {
		return Fallback(prompt, duration)
	}
	return parsed
}

func parseSegments(response string, duration float64) []Segment {
	var out []Segment
	for _, line := range strings.Split(response, "\n") {
		m := segmentLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		start, err1 := strconv.ParseFloat(m[1], 64)
		end, err2 := strconv.ParseFloat(m[2], 64)
		text := strings.TrimSpace(m[3])
		if err1 != nil || err2 != nil || text == "" {
			continue
		}
		if end > duration+1 {
			continue
		}
		if end > duration {
			end = duration
		}
		out = append(out, Segment{Start: start, End: end, Text: text})
	}
	return out
}

// Fallback splits the prompt into evenly timed segments without a model.
func Fallback(prompt string, duration float64) []Segment {
	words := strings.Fields(prompt)
	if len(words) == 0 || duration <= 0 {
		return nil
	}

	count := max(2, int(duration/2))
	segmentDuration := duration / float64(count)
	perSegment := max(1, len(words)/count)

	var out []Segment
	for i := 0; i < count; i++ {
		startIdx := i * perSegment
		if startIdx >= len(words) {
			break
		}
		endIdx := startIdx + perSegment
		if i == count-1 || endIdx > len(words) {
			endIdx = len(words)
		}

		text := strings.Join(words[startIdx:endIdx], " ")
		text = capitalize(text)
		if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
			text += "..."
		}

		out = append(out, Segment{
			Start: round2(float64(i) * segmentDuration),
			End:   round2(float64(i+1) * segmentDuration),
			Text:  text,
		})
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
