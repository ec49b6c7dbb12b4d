package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Snapshots writes timestamped PNG files.
type Snapshots struct {
	outputDir string
	prefix    string
	now       func() time.Time
}

// NewSnapshots creates a writer for outputDir; an empty dir means the working directory.
func NewSnapshots(outputDir, prefix string) *Snapshots {
	return &Snapshots{outputDir: outputDir, prefix: prefix, now: time.Now}
}

// Filename returns the path the next snapshot would be written to.
func (s *Snapshots) Filename() string {
	name := fmt.Sprintf("%s_%s.png", s.prefix, s.now().Format("2006-01-02_15-04-05"))
	if s.outputDir != "" {
		name = filepath.Join(s.outputDir, name)
	}
	return name
}

// Save encodes img as PNG and returns the file path.
func (s *Snapshots) Save(img image.Image) (string, error) {
	if s.outputDir != "" {
		if err := os.MkdirAll(s.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := s.Filename()
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}
