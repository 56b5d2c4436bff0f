//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/kafka"
	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/memory"
	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/npy"
	"github.com/couchcryptid/ocean-sample-etl/internal/config"
	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/couchcryptid/ocean-sample-etl/internal/observability"
	"github.com/couchcryptid/ocean-sample-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNotifyTopic = "test-runs"

// rampOcean is a 1x5x5 grid whose temperature is 10y + x + t²/2, so every
// forecast cell warms by t + 0.5 between t and t+1.
func rampOcean(t *testing.T, timesteps int) *memory.Source {
	t.Helper()
	grid := domain.Grid{Nz: 1, Ny: 5, Nx: 5, Lat: make([]float64, 5), Lon: make([]float64, 5), Depth: []float64{5}}
	frames := make([]domain.Field3D, timesteps)
	for ts := range frames {
		f := domain.NewField3D(1, 5, 5)
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				f.Set(0, y, x, float64(10*y+x)+float64(ts*ts)/2)
			}
		}
		frames[ts] = f
	}
	src := memory.NewSource(grid)
	require.NoError(t, src.AddSeries(domain.FieldTemp, frames))
	return src
}

func rowLayout() *domain.Layout {
	return &domain.Layout{
		Interior: domain.Region{Name: domain.RegionInterior, Z: domain.Bounds{Lower: 0, Upper: 1}, Y: domain.Bounds{Lower: 1, Upper: 2}, X: domain.Bounds{Lower: 1, Upper: 3}},
		West:     domain.Region{Name: domain.RegionWest, Z: domain.Bounds{Lower: 0, Upper: 1}, Y: domain.Bounds{Lower: 1, Upper: 2}, X: domain.Bounds{Lower: 1, Upper: 2}, Shift: 1},
		East:     domain.Region{Name: domain.RegionEast, Z: domain.Bounds{Lower: 0, Upper: 1}, Y: domain.Bounds{Lower: 1, Upper: 2}, X: domain.Bounds{Lower: 2, Upper: 4}, Shift: -1},
	}
}

// TestRunPublishesCompletion runs the pipeline with the file store and the
// Kafka notifier, then checks the event against the artefacts on disk.
func TestRunPublishesCompletion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testNotifyTopic)

	dir := t.TempDir()
	cfg := &config.Config{
		OutputDir:        dir,
		KafkaBrokers:     []string{broker},
		KafkaNotifyTopic: testNotifyTopic,
	}
	notifier := kafka.NewNotifier(cfg, discardLogger())
	t.Cleanup(func() { _ = notifier.Close() })

	const name = "it_2dPolyDeg1_Step1_PredictDelT"
	p := pipeline.New(rampOcean(t, 11), pipeline.Options{
		Name:       name,
		Run:        domain.RunConfig{Dimension: 2, PolyDegree: 1, StepSize: 1},
		Layout:     rowLayout(),
		Total:      10,
		Stride:     1,
		TrainRatio: 0.6,
		ValRatio:   0.8,
		Seed:       5,
	}, discardLogger(), observability.NewMetricsForTesting(),
		npy.NewStore(dir, true, discardLogger()), notifier)

	res, err := p.Run(ctx)
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testNotifyTopic,
		GroupID:     fmt.Sprintf("test-runs-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read completion event")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, name, string(msg.Key))
	assert.Equal(t, "run_completed", headers["event_type"])
	_, err = time.Parse(time.RFC3339, headers["finished_at"])
	assert.NoError(t, err, "finished_at should be valid RFC3339")

	var ev kafka.RunCompleted
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, name, ev.Name)
	assert.Equal(t, dir, ev.OutputDir)
	assert.Equal(t, 9, ev.Features)
	assert.Equal(t, 30, ev.TrainRows)
	assert.Equal(t, 10, ev.ValRows)
	assert.Equal(t, 10, ev.TestRows)
	assert.InDelta(t, 9.5, float64(ev.MaxDeltaT), 1e-9)
	assert.InDelta(t, 0.5, float64(ev.MinDeltaT), 1e-9)

	// The event describes what the store wrote.
	paths := npy.Paths{Dir: dir, Name: name}
	inputs, err := npy.ReadMatrix(paths.Inputs(domain.SplitTest))
	require.NoError(t, err)
	rows, cols := inputs.Dims()
	assert.Equal(t, ev.TestRows, rows)
	assert.Equal(t, ev.Features, cols)

	stats, err := npy.ReadStatistics(paths.MeanStd())
	require.NoError(t, err)
	assert.Equal(t, res.Statistics, stats)
}
