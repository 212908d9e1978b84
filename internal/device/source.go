package device

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"roastbot-api/internal/helpers"
)

// FrameSource yields encoded JPEG frames for upload. Implementations are not
// safe for concurrent use; the agent reads from a single loop.
type FrameSource interface {
	Next() ([]byte, error)
}

// DirSource replays JPEG files from a directory in name order, looping
// forever. It stands in for the camera on machines without one.
type DirSource struct {
	files []string
	pos   int
}

func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no jpeg files in %s", dir)
	}
	return &DirSource{files: files}, nil
}

func (s *DirSource) Next() ([]byte, error) {
	path := s.files[s.pos]
	s.pos = (s.pos + 1) % len(s.files)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame %s: %w", path, err)
	}
	if !helpers.IsJPEGData(data) {
		return nil, fmt.Errorf("%s is not a jpeg", path)
	}
	return data, nil
}

// SyntheticSource renders a moving test pattern so the pipeline can be
// exercised without any camera hardware. Successive frames differ, which
// keeps downstream liveness and feed behavior honest.
type SyntheticSource struct {
	width   int
	height  int
	quality int
	frame   int
}

func NewSyntheticSource(width, height, quality int) *SyntheticSource {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	if quality <= 0 || quality > 100 {
		quality = 70
	}
	return &SyntheticSource{width: width, height: height, quality: quality}
}

func (s *SyntheticSource) Next() ([]byte, error) {
	s.frame++

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	background := color.RGBA{R: 24, G: 24, B: 32, A: 255}
	bar := color.RGBA{R: 220, G: 220, B: 80, A: 255}

	barWidth := s.width / 8
	if barWidth < 1 {
		barWidth = 1
	}
	barStart := (s.frame * 8) % s.width

	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			// Distance from the bar's left edge, wrapping at the frame border
			d := (x - barStart + s.width) % s.width
			if d < barWidth {
				img.SetRGBA(x, y, bar)
			} else {
				img.SetRGBA(x, y, background)
			}
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("encode synthetic frame: %w", err)
	}
	return buf.Bytes(), nil
}
