package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ds124wfegd/vton/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher_NoBrokers(t *testing.T) {
	p := NewPublisher(nil, "vton-results")

	_, ok := p.(*mockPublisher)
	require.True(t, ok)
	assert.NoError(t, p.Publish(context.Background(), entity.TryOnEvent{RequestID: "r1"}))
	assert.NoError(t, p.Close())
}

func TestNewMessage(t *testing.T) {
	created := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	event := entity.TryOnEvent{
		RequestID:   "3f2b",
		Model:       "idm_vton",
		Success:     true,
		ElapsedTime: 21.5,
		InputSize:   &entity.InputSize{PersonKB: 120, GarmentKB: 85},
		OutputURL:   "https://replicate.delivery/out.png",
		CreatedAt:   created,
	}

	msg, err := newMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("3f2b"), msg.Key)
	assert.Equal(t, created, msg.Time)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "idm_vton", body["model"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 21.5, body["elapsed_time"])
	assert.NotContains(t, body, "error_code")
}

func TestNewWriter_Async(t *testing.T) {
	w := newWriter([]string{"localhost:9092"}, "vton-results")

	assert.True(t, w.Async)
	assert.NotNil(t, w.Completion)
	assert.Equal(t, "vton-results", w.Topic)
}

func TestKafkaPublisher_UnreachableBrokerDoesNotBlock(t *testing.T) {
	p := &kafkaPublisher{writer: newWriter([]string{"127.0.0.1:1"}, "vton-results")}

	start := time.Now()
	err := p.Publish(context.Background(), entity.TryOnEvent{RequestID: "r1", CreatedAt: time.Now()})

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
