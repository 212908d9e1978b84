package stream

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
)

// placeholderJPEG renders the solid white card a viewer sees before the
// stream's first frame arrives.
func placeholderJPEG(width, height, quality int) []byte {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	if quality <= 0 || quality > 100 {
		quality = 75
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil
	}
	return buf.Bytes()
}
