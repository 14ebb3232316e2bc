package images

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
)

var (
	placeholderOnce sync.Once
	placeholder     Image
)

// Placeholder returns the solid white stand-in used when no thumbnail can be
// fetched. Its pixel dimensions match the optimized fetch target. The image
// is encoded once and shared; callers must treat the bytes as read-only.
func Placeholder() Image {
	placeholderOnce.Do(func() {
		canvas := image.NewRGBA(image.Rect(0, 0, TargetWidth, TargetHeight))
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

		var buf bytes.Buffer
		if err := png.Encode(&buf, canvas); err != nil {
			// Encoding a valid in-memory RGBA to a buffer cannot fail.
			panic(err)
		}
		placeholder = Image{
			Bytes:  buf.Bytes(),
			Width:  TargetWidth,
			Height: TargetHeight,
			Format: "png",
		}
	})
	return placeholder
}
