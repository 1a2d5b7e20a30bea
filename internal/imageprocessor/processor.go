package imageprocessor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// DefaultThumbnailWidth - ширина превью в ленте снов
const DefaultThumbnailWidth = 400

// Processor handles image processing operations
type Processor struct {
	quality int // JPEG quality (1-100)
}

// NewProcessor creates a new image processor
func NewProcessor(quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85 // Default quality
	}
	return &Processor{
		quality: quality,
	}
}

// Thumbnail уменьшает изображение до ширины width с сохранением пропорций и кодирует в JPEG.
// Изображения уже не шире width только перекодируются.
func (p *Processor) Thumbnail(data []byte, width int) ([]byte, error) {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	var out image.Image = img
	if bounds.Dx() > width {
		out = p.resize(img, width)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// resize масштабирует по ширине, сохраняя пропорции
func (p *Processor) resize(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// Dimensions returns the dimensions of an encoded image
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
