package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/vton/internal/entity"
	"github.com/ds124wfegd/vton/internal/pkg/imageprep"
	"github.com/ds124wfegd/vton/internal/pkg/inference"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func (s *tryOnService) TryOn(ctx context.Context, req entity.TryOnRequest) entity.TryOnResult {
	start := time.Now()
	req.ApplyDefaults(s.cfg.DefaultModel)
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	log := logrus.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"model":      req.Model,
		"category":   req.Category,
	})

	result := s.run(ctx, req, log)
	result.ElapsedTime = time.Since(start).Seconds()
	result.Model = req.Model

	if result.Success {
		log.WithFields(logrus.Fields{
			"elapsed":    result.ElapsedTime,
			"person_kb":  result.InputSize.PersonKB,
			"garment_kb": result.InputSize.GarmentKB,
		}).Info("try-on completed")
	} else {
		log.WithFields(logrus.Fields{
			"elapsed": result.ElapsedTime,
			"code":    result.ErrorCode,
		}).Errorf("try-on failed: %s", result.Error)
	}

	s.publish(ctx, req.RequestID, result)
	return result
}

func (s *tryOnService) run(ctx context.Context, req entity.TryOnRequest, log *logrus.Entry) entity.TryOnResult {
	model, err := s.registry.Lookup(req.Model)
	if err != nil {
		return failed(err)
	}

	personIn := imageprep.ParseImageInput(req.PersonImage)
	garmentIn := imageprep.ParseImageInput(req.GarmentImage)
	log.WithFields(logrus.Fields{
		"person_input":  personIn.Kind.String(),
		"garment_input": garmentIn.Kind.String(),
	}).Info("try-on started")

	person, err := s.normalizer.Normalize(ctx, personIn)
	if err != nil {
		return failed(err)
	}
	garment, err := s.normalizer.Normalize(ctx, garmentIn)
	if err != nil {
		return failed(err)
	}

	input, err := model.Input(inference.Params{
		PersonImage:        person.DataURI,
		GarmentImage:       garment.DataURI,
		GarmentDescription: req.GarmentDescription,
		Category:           req.Category,
		DenoiseSteps:       *req.DenoiseSteps,
	})
	if err != nil {
		return failed(err)
	}

	out, err := s.dispatcher.Dispatch(ctx, model.Identifier, input)
	if err != nil {
		return failed(err)
	}

	return entity.TryOnResult{
		Success:   true,
		OutputURL: out.URL(),
		InputSize: &entity.InputSize{PersonKB: person.SizeKB, GarmentKB: garment.SizeKB},
	}
}

func failed(err error) entity.TryOnResult {
	return entity.TryOnResult{
		Success:   false,
		Error:     err.Error(),
		ErrorCode: entity.ErrorCode(err),
	}
}

func (s *tryOnService) publish(ctx context.Context, requestID string, result entity.TryOnResult) {
	event := entity.TryOnEvent{
		RequestID:   requestID,
		Model:       result.Model,
		Success:     result.Success,
		ErrorCode:   result.ErrorCode,
		ElapsedTime: result.ElapsedTime,
		InputSize:   result.InputSize,
		OutputURL:   result.OutputURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logrus.WithError(err).WithField("request_id", requestID).Warn("failed to publish result event")
	}
}

func (s *tryOnService) ReplicateConfigured() bool {
	return s.cfg.Configured()
}

func (s *tryOnService) Models() []string {
	return s.registry.Names()
}

func (s *tryOnService) DefaultModel() string {
	return s.cfg.DefaultModel
}
