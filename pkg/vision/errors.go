package vision

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidImage  = errors.New("Could not decode the uploaded image. Please upload a valid image file.")
	ErrImageTooLarge = errors.New("image too large")
	ErrUnavailable   = errors.New("object detection unavailable: binary built without the gocv tag")
)

// SizeError reports an image above the upload limit. It matches ErrImageTooLarge.
type SizeError struct {
	Size int
	Max  int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("Image size (%.1f MB) exceeds maximum allowed size of %.0f MB.", megabytes(e.Size), megabytes(e.Max))
}

func (e *SizeError) Is(target error) bool {
	return target == ErrImageTooLarge
}

func megabytes(n int) float64 {
	return float64(n) / 1024 / 1024
}

// CheckSize rejects images larger than max bytes.
func CheckSize(data []byte, max int) error {
	if len(data) > max {
		return &SizeError{Size: len(data), Max: max}
	}
	return nil
}

// InvalidInputMessage returns the client-facing message when err is caused by the
// uploaded image rather than the detector.
func InvalidInputMessage(err error) (string, bool) {
	var sizeErr *SizeError
	switch {
	case errors.As(err, &sizeErr):
		return sizeErr.Error(), true
	case errors.Is(err, ErrInvalidImage):
		return ErrInvalidImage.Error(), true
	default:
		return "", false
	}
}
