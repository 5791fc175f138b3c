package domain

// Tensor — нормализованное изображение в формате HWC (height × width × channels).
// Значения пикселей приведены к диапазону, ожидаемому моделью энкодера.
type Tensor struct {
	Data     []float32
	Height   int
	Width    int
	Channels int
}

func NewTensor(data []float32, height, width, channels int) *Tensor {
	return &Tensor{
		Data:     data,
		Height:   height,
		Width:    width,
		Channels: channels,
	}
}

// Len возвращает ожидаемое количество элементов тензора.
func (t *Tensor) Len() int {
	return t.Height * t.Width * t.Channels
}
