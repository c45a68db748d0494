package subtitle

import (
	"fmt"
	"io"
	"os"
)

// WriteSRT renders segments in SubRip format: sequential blocks of
// index / start --> end / text, timestamps as HH:MM:SS,mmm.
func WriteSRT(w io.Writer, segments []Segment) error {
	for i, seg := range segments {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(seg.Start), srtTimestamp(seg.End), seg.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteSRTFile writes segments to an .srt file at path.
func WriteSRTFile(path string, segments []Segment) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("subtitle: create srt file: %w", err)
	}
	defer f.Close()
	if err := WriteSRT(f, segments); err != nil {
		return fmt.Errorf("subtitle: write srt file: %w", err)
	}
	return nil
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	hours := whole / 3600
	minutes := (whole % 3600) / 60
	secs := whole % 60
	millis := int((seconds - float64(whole)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
