// Package imaging приводит входные изображения к тензору фиксированной формы,
// ожидаемому моделью энкодера.
package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"golang.org/x/image/draw"
)

const (
	// TargetSize — сторона входа модели (MobileNetV2, 224×224×3)
	TargetSize = 224
	Channels   = 3
)

// Normalizer декодирует и нормализует изображения. Поддерживаются JPEG, PNG и WebP.
type Normalizer struct {
	height int
	width  int
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		height: TargetSize,
		width:  TargetSize,
	}
}

// Normalize декодирует байты изображения и возвращает тензор height×width×3
// со значениями пикселей в диапазоне [-1, 1] (соглашение препроцессинга MobileNetV2;
// должно совпадать с препроцессингом, на котором обучалась модель энкодера).
func (n *Normalizer) Normalize(data []byte) (*domain.Tensor, error) {
	const op = "Normalizer.Normalize"

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, e.Wrap(op, e.ErrUnsupportedMediaType)
		}
		return nil, e.Wrap(op, e.ErrDecodeFailed)
	}

	switch format {
	case "jpeg", "png", "webp":
	default:
		return nil, e.Wrap(op, e.ErrUnsupportedMediaType)
	}

	return n.toTensor(n.fit(img)), nil
}

// fit масштабирует изображение с сохранением пропорций и центрирует его
// на белом холсте height×width (поля добавляются, а не обрезаются).
func (n *Normalizer) fit(img image.Image) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, n.width, n.height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return canvas
	}

	scale := min(float64(n.width)/float64(origW), float64(n.height)/float64(origH))
	newW := int(float64(origW) * scale)
	newH := int(float64(origH) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	left := (n.width - newW) / 2
	top := (n.height - newH) / 2
	target := image.Rect(left, top, left+newW, top+newH)

	draw.CatmullRom.Scale(canvas, target, img, bounds, draw.Over, nil)

	return canvas
}

// toTensor переводит RGBA-холст в HWC-тензор float32 в диапазоне [-1, 1].
func (n *Normalizer) toTensor(canvas *image.RGBA) *domain.Tensor {
	data := make([]float32, n.height*n.width*Channels)

	idx := 0
	for y := 0; y < n.height; y++ {
		row := canvas.Pix[y*canvas.Stride : y*canvas.Stride+n.width*4]
		for x := 0; x < n.width; x++ {
			data[idx] = float32(row[x*4])/127.5 - 1
			data[idx+1] = float32(row[x*4+1])/127.5 - 1
			data[idx+2] = float32(row[x*4+2])/127.5 - 1
			idx += Channels
		}
	}

	return domain.NewTensor(data, n.height, n.width, Channels)
}
