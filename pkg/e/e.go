package e

import "fmt"

var (
	// Внутренние ошибки с векторами и артефактами индекса
	ErrEmptyVector        = fmt.Errorf("vector is empty")
	ErrDimensionMismatch  = fmt.Errorf("vector dimension mismatch")
	ErrVectorTableInvalid = fmt.Errorf("vector table is corrupted")
	ErrVectorProductDrift = fmt.Errorf("vector table and product table do not match")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrNoImageProvided      = fmt.Errorf("either file or image_url must be provided")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported image format")
	ErrDecodeFailed         = fmt.Errorf("could not decode image")
	ErrInvalidURL           = fmt.Errorf("invalid image url")
	ErrInvalidTopK          = fmt.Errorf("top_k must be a positive integer")
	ErrInvalidThreshold     = fmt.Errorf("threshold must be a number")
	ErrFileTooLarge         = fmt.Errorf("file is too large")

	// 422 Unprocessable Entity
	ErrFetchFailed = fmt.Errorf("could not reach image url")

	// 503 Service Unavailable
	ErrStoreUnavailable = fmt.Errorf("embedding store is not loaded")
	ErrEncodingFailed   = fmt.Errorf("image encoding failed")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
