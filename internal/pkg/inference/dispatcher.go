package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/vton/internal/entity"
	"github.com/replicate/replicate-go"
	"github.com/sirupsen/logrus"
)

const pollInterval = time.Second

var (
	errNoToken     = errors.New("REPLICATE_API_TOKEN is not configured")
	errEmptyOutput = errors.New("model returned no output")
)

// Predictor runs one prediction on a hosted model and returns its raw,
// undecoded output.
type Predictor interface {
	Run(ctx context.Context, model string, input map[string]any) (any, error)
}

type replicateClient struct {
	client       *replicate.Client
	pollInterval time.Duration
}

// NewPredictor returns a Replicate-backed predictor. Without a token every
// call fails with the configuration error instead of reaching the provider.
func NewPredictor(token string) Predictor {
	if token == "" {
		return failingPredictor{err: errNoToken}
	}
	client, err := replicate.NewClient(replicate.WithToken(token))
	if err != nil {
		logrus.WithError(err).Error("replicate client init failed")
		return failingPredictor{err: err}
	}
	return &replicateClient{client: client, pollInterval: pollInterval}
}

// Run creates a prediction and polls it until it terminates. Only a
// succeeded prediction yields output: failed and canceled ones come back as
// errors carrying the provider's message.
func (r *replicateClient) Run(ctx context.Context, model string, input map[string]any) (any, error) {
	prediction, err := r.create(ctx, model, replicate.PredictionInput(input))
	if err != nil {
		return nil, err
	}

	if err := r.client.Wait(ctx, prediction, replicate.WithPollingInterval(r.pollInterval)); err != nil {
		return nil, err
	}
	if prediction.Status != replicate.Succeeded {
		return nil, predictionError(prediction)
	}
	return prediction.Output, nil
}

// create accepts owner/name:version as well as a bare owner/name, which runs
// the model's latest version.
func (r *replicateClient) create(ctx context.Context, model string, input replicate.PredictionInput) (*replicate.Prediction, error) {
	id, err := replicate.ParseIdentifier(model)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", model, err)
	}
	if id.Version == nil {
		return r.client.CreatePredictionWithModel(ctx, id.Owner, id.Name, input, nil, false)
	}
	return r.client.CreatePrediction(ctx, *id.Version, input, nil, false)
}

func predictionError(p *replicate.Prediction) error {
	if p.Error != nil {
		if msg := fmt.Sprint(p.Error); msg != "" {
			return errors.New(msg)
		}
	}
	return fmt.Errorf("prediction %s %s", p.ID, p.Status)
}

type failingPredictor struct {
	err error
}

func (f failingPredictor) Run(context.Context, string, map[string]any) (any, error) {
	return nil, f.err
}

type Dispatcher interface {
	Dispatch(ctx context.Context, model string, input map[string]any) (Output, error)
}

type dispatcher struct {
	predictor Predictor
}

func NewDispatcher(predictor Predictor) Dispatcher {
	return &dispatcher{predictor: predictor}
}

type runResult struct {
	out any
	err error
}

// Dispatch runs the prediction on its own goroutine and waits for it. The
// call is detached from ctx cancellation and has no deadline of its own: a
// client that disconnects does not abort a prediction already submitted, and
// a provider that never answers holds the request open.
func (d *dispatcher) Dispatch(ctx context.Context, model string, input map[string]any) (Output, error) {
	done := make(chan runResult, 1)
	go func() {
		out, err := d.predictor.Run(context.WithoutCancel(ctx), model, input)
		done <- runResult{out: out, err: err}
	}()

	res := <-done
	if res.err != nil {
		return Output{}, &entity.RemoteInferenceError{Model: model, Err: res.err}
	}

	out := DecodeOutput(res.out)
	logrus.WithFields(logrus.Fields{
		"model": model,
		"shape": out.Kind.String(),
	}).Debug("prediction output decoded")

	// a success must carry a location
	if out.URL() == "" {
		return Output{}, &entity.RemoteInferenceError{Model: model, Err: errEmptyOutput}
	}
	return out, nil
}
