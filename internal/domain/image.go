package domain

// QueryImage описывает изображение-запрос, которое сохраняется в S3 для аудита
type QueryImage struct {
	ID        string // uuid запроса
	ObjectKey string
	Data      []byte
	Size      int64
	MimeType  string
}

func NewQueryImage(id string, objectKey string, data []byte, mimeType string) *QueryImage {
	return &QueryImage{
		ID:        id,
		ObjectKey: objectKey,
		Data:      data,
		Size:      int64(len(data)),
		MimeType:  mimeType,
	}
}
