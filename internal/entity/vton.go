package entity

import (
	"mime/multipart"
	"time"
)

const (
	CategoryUpperBody = "upper_body"
	CategoryLowerBody = "lower_body"
	CategoryDresses   = "dresses"

	DefaultGarmentDescription = "shirt"
	DefaultCategory           = CategoryUpperBody
	DefaultDenoiseSteps       = 30
)

// Categories lists the garment categories accepted by every model.
var Categories = []string{CategoryUpperBody, CategoryLowerBody, CategoryDresses}

// TryOnRequest is the JSON body of POST /api/vton/try-on. Images may be an
// http(s) URL, a data URI or a local path.
type TryOnRequest struct {
	PersonImage        string `json:"person_image" binding:"required"`
	GarmentImage       string `json:"garment_image" binding:"required"`
	GarmentDescription string `json:"garment_description"`
	Category           string `json:"category" binding:"omitempty,oneof=upper_body lower_body dresses"`
	DenoiseSteps       *int   `json:"denoise_steps" binding:"omitempty,min=1,max=100"`
	Model              string `json:"model"`
	RequestID          string `json:"-"`
}

// TryOnUploadForm is the multipart body of POST /api/vton/try-on/upload.
type TryOnUploadForm struct {
	PersonImage        *multipart.FileHeader `form:"person_image" binding:"required"`
	GarmentImage       *multipart.FileHeader `form:"garment_image" binding:"required"`
	GarmentDescription string                `form:"garment_description"`
	Category           string                `form:"category" binding:"omitempty,oneof=upper_body lower_body dresses"`
	DenoiseSteps       *int                  `form:"denoise_steps" binding:"omitempty,min=1,max=100"`
	Model              string                `form:"model"`
}

// ApplyDefaults fills the optional fields the caller left empty. An explicit
// denoise_steps is kept as sent.
func (r *TryOnRequest) ApplyDefaults(defaultModel string) {
	if r.GarmentDescription == "" {
		r.GarmentDescription = DefaultGarmentDescription
	}
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	if r.DenoiseSteps == nil {
		steps := DefaultDenoiseSteps
		r.DenoiseSteps = &steps
	}
	if r.Model == "" {
		r.Model = defaultModel
	}
}

type InputSize struct {
	PersonKB  int `json:"person_kb"`
	GarmentKB int `json:"garment_kb"`
}

// TryOnResult is the outcome of one pipeline run. ElapsedTime is always set;
// exactly one of OutputURL and Error is set.
type TryOnResult struct {
	Success     bool       `json:"success"`
	OutputURL   string     `json:"output_url,omitempty"`
	ElapsedTime float64    `json:"elapsed_time"`
	InputSize   *InputSize `json:"input_size,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorCode   string     `json:"-"`
	Model       string     `json:"-"`
}

type TryOnResponse struct {
	Success     bool       `json:"success"`
	OutputURL   *string    `json:"output_url"`
	ElapsedTime float64    `json:"elapsed_time"`
	InputSize   *InputSize `json:"input_size"`
	Error       *string    `json:"error"`
}

func NewTryOnResponse(r TryOnResult) TryOnResponse {
	resp := TryOnResponse{
		Success:     r.Success,
		ElapsedTime: r.ElapsedTime,
		InputSize:   r.InputSize,
	}
	if r.OutputURL != "" {
		resp.OutputURL = &r.OutputURL
	}
	if r.Error != "" {
		resp.Error = &r.Error
	}
	return resp
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// TryOnEvent is published once per completed pipeline run.
type TryOnEvent struct {
	RequestID   string     `json:"request_id"`
	Model       string     `json:"model"`
	Success     bool       `json:"success"`
	ErrorCode   string     `json:"error_code,omitempty"`
	ElapsedTime float64    `json:"elapsed_time"`
	InputSize   *InputSize `json:"input_size,omitempty"`
	OutputURL   string     `json:"output_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
