package transport

import (
	"github.com/ds124wfegd/vton/internal/service"
)

const (
	serviceName    = "IDM-VTON API"
	serviceVersion = "1.0.0"
)

type VTONHandler struct {
	service service.TryOnService
}

func NewVTONHandler(service service.TryOnService) *VTONHandler {
	return &VTONHandler{service: service}
}
