package transport

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ds124wfegd/vton/internal/entity"
	"github.com/ds124wfegd/vton/internal/pkg/imageprep"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *VTONHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     serviceName,
		"version":     serviceVersion,
		"status":      "ok",
		"description": "High-quality virtual try-on using IDM-VTON (ECCV2024)",
		"endpoints": gin.H{
			"health":        "/health",
			"info":          "/api/vton/info",
			"try_on":        "/api/vton/try-on",
			"try_on_upload": "/api/vton/try-on/upload",
		},
	})
}

func (h *VTONHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":               "healthy",
		"replicate_configured": h.service.ReplicateConfigured(),
		"model":                "IDM-VTON",
	})
}

func (h *VTONHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"model":            "IDM-VTON",
		"description":      "High-quality virtual try-on model (ECCV2024)",
		"paper":            "https://idm-vton.github.io/",
		"categories":       entity.Categories,
		"available_models": h.service.Models(),
		"default_model":    h.service.DefaultModel(),
		"parameters": gin.H{
			"denoise_steps": gin.H{
				"type":        "integer",
				"min":         10,
				"max":         50,
				"default":     entity.DefaultDenoiseSteps,
				"description": "Higher values = better quality but slower",
			},
			"garment_description": gin.H{
				"type":        "string",
				"description": "Text description of the garment",
				"examples":    []string{"shirt", "dress", "blue cotton t-shirt"},
			},
		},
		"optimal_image_size": "768x768 or smaller",
		"supported_formats":  []string{"JPG", "PNG", "WEBP"},
	})
}

func (h *VTONHandler) TryOn(c *gin.Context) {
	var req entity.TryOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, entity.ErrorResponse{Detail: err.Error(), Code: entity.CodeValidation})
		return
	}
	req.RequestID = c.GetString(requestIDKey)

	h.respond(c, h.service.TryOn(c.Request.Context(), req))
}

func (h *VTONHandler) TryOnUpload(c *gin.Context) {
	var form entity.TryOnUploadForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusUnprocessableEntity, entity.ErrorResponse{Detail: err.Error(), Code: entity.CodeValidation})
		return
	}

	log := logrus.WithField("request_id", c.GetString(requestIDKey))
	log.WithFields(logrus.Fields{
		"person":  form.PersonImage.Filename,
		"garment": form.GarmentImage.Filename,
	}).Info("received upload request")

	personURI, err := fileToDataURI(form.PersonImage)
	if err != nil {
		internalError(c, log, err)
		return
	}
	garmentURI, err := fileToDataURI(form.GarmentImage)
	if err != nil {
		internalError(c, log, err)
		return
	}
	log.WithFields(logrus.Fields{
		"person_bytes":  form.PersonImage.Size,
		"garment_bytes": form.GarmentImage.Size,
	}).Info("calling VTON service")

	h.respond(c, h.service.TryOn(c.Request.Context(), entity.TryOnRequest{
		PersonImage:        personURI,
		GarmentImage:       garmentURI,
		GarmentDescription: form.GarmentDescription,
		Category:           form.Category,
		DenoiseSteps:       form.DenoiseSteps,
		Model:              form.Model,
		RequestID:          c.GetString(requestIDKey),
	}))
}

func (h *VTONHandler) respond(c *gin.Context, result entity.TryOnResult) {
	if !result.Success {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Detail: result.Error, Code: result.ErrorCode})
		return
	}
	c.JSON(http.StatusOK, entity.NewTryOnResponse(result))
}

func internalError(c *gin.Context, log *logrus.Entry, err error) {
	log.WithError(err).Error("unexpected error in try-on upload")
	c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
		Detail: fmt.Sprintf("Internal error: %v", err),
		Code:   entity.CodeInternal,
	})
}

// fileToDataURI wraps an uploaded part as a data URI under its declared
// content type, sniffing one only when the client sent none.
func fileToDataURI(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = mimetype.Detect(data).String()
	}
	return imageprep.DataURI(mime, base64.StdEncoding.EncodeToString(data)), nil
}
