package entity

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownModel        = errors.New("unknown model")
	ErrInvalidImage        = errors.New("invalid image")
	ErrUnsupportedCategory = errors.New("unsupported category")
)

const (
	CodeNotFound        = "not_found"
	CodeDecode          = "decode_error"
	CodeFetch           = "fetch_error"
	CodeRemoteInference = "remote_inference_error"
	CodeInvalidImage    = "invalid_image"
	CodeUnknownModel    = "unknown_model"
	CodeUnsupported     = "unsupported_category"
	CodeValidation      = "validation_error"
	CodeInternal        = "internal_error"
)

// NotFoundError is returned when a local image path does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Image not found: %s", e.Path)
}

// DecodeError is returned for a malformed data URI or base64 payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid data URI: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FetchError is returned when a remote image cannot be downloaded. Status is
// zero when no response was received.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RemoteInferenceError carries the provider's message verbatim.
type RemoteInferenceError struct {
	Model string
	Err   error
}

func (e *RemoteInferenceError) Error() string {
	return e.Err.Error()
}

func (e *RemoteInferenceError) Unwrap() error { return e.Err }

// ErrorCode classifies err into one of the Code* constants.
func ErrorCode(err error) string {
	var (
		notFound *NotFoundError
		decode   *DecodeError
		fetch    *FetchError
		remote   *RemoteInferenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &notFound):
		return CodeNotFound
	case errors.As(err, &decode):
		return CodeDecode
	case errors.As(err, &fetch):
		return CodeFetch
	case errors.As(err, &remote):
		return CodeRemoteInference
	case errors.Is(err, ErrInvalidImage):
		return CodeInvalidImage
	case errors.Is(err, ErrUnknownModel):
		return CodeUnknownModel
	case errors.Is(err, ErrUnsupportedCategory):
		return CodeUnsupported
	}
	return CodeInternal
}
