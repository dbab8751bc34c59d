package service

import (
	"context"

	"github.com/ds124wfegd/vton/config"
	"github.com/ds124wfegd/vton/internal/entity"
	"github.com/ds124wfegd/vton/internal/pkg/imageprep"
	"github.com/ds124wfegd/vton/internal/pkg/inference"
	"github.com/ds124wfegd/vton/internal/pkg/kafka"
)

type TryOnService interface {
	// TryOn never fails with a Go error; failures are reported in the result.
	TryOn(ctx context.Context, req entity.TryOnRequest) entity.TryOnResult
	ReplicateConfigured() bool
	Models() []string
	DefaultModel() string
}

type tryOnService struct {
	cfg        config.ReplicateConfig
	registry   *inference.Registry
	normalizer imageprep.Normalizer
	dispatcher inference.Dispatcher
	publisher  kafka.Publisher
}

func NewTryOnService(cfg config.ReplicateConfig, normalizer imageprep.Normalizer, dispatcher inference.Dispatcher, publisher kafka.Publisher) TryOnService {
	return &tryOnService{
		cfg:        cfg,
		registry:   inference.NewRegistry(cfg.Models),
		normalizer: normalizer,
		dispatcher: dispatcher,
		publisher:  publisher,
	}
}
