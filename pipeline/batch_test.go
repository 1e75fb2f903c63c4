package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"proteinagent/vision"
	"proteinagent/vision/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// concurrencyGauge records the peak number of in-flight analyses.
type concurrencyGauge struct {
	inner    MealAnalyzer
	inFlight atomic.Int32
	mu       sync.Mutex
	peak     int32
}

func (p *concurrencyGauge) Analyze(ctx context.Context, img vision.Image) Analysis {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	p.mu.Lock()
	p.peak = max(p.peak, n)
	p.mu.Unlock()
	return p.inner.Analyze(ctx, img)
}

func TestAnalyzeBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	items := []BatchItem{
		{Filename: "a.jpg", Image: vision.Image{Data: []byte("one")}},
		{Filename: "b.heic", Err: errors.New("unsupported image format")},
		{Filename: "c.jpg", Image: vision.Image{Data: []byte("three")}},
		{Filename: "empty.jpg", Image: vision.Image{}},
		{Filename: "d.jpg", Image: vision.Image{Data: []byte("four")}},
	}

	gauge := &concurrencyGauge{inner: newMockAnalyzer(mock.Scenarios[0], nil)}
	got := AnalyzeBatch(context.Background(), gauge, items, 2)

	assert.Equal(t, 5, got.Total)
	assert.Equal(t, 3, got.Successful)
	assert.Equal(t, 2, got.Failed)
	require.Len(t, got.Results, 3)
	require.Len(t, got.Errors, 2)

	assert.Equal(t, []int{0, 2, 4}, []int{got.Results[0].Index, got.Results[1].Index, got.Results[2].Index})
	for _, r := range got.Results {
		assert.True(t, r.Analysis.Success)
		assert.Len(t, r.Analysis.PortionSuggestions, 3)
	}

	assert.Equal(t, "b.heic", got.Errors[0].Filename)
	assert.Equal(t, "unsupported image format", got.Errors[0].Error)
	assert.Equal(t, "empty.jpg", got.Errors[1].Filename)
	assert.Equal(t, "empty image", got.Errors[1].Error)

	assert.LessOrEqual(t, gauge.peak, int32(2))
}

func TestAnalyzeBatch_Empty(t *testing.T) {
	defer goleak.VerifyNone(t)

	got := AnalyzeBatch(context.Background(), newMockAnalyzer(`[]`, nil), nil, 0)
	assert.Zero(t, got.Total)
	assert.NotNil(t, got.Results)
	assert.NotNil(t, got.Errors)
}

func TestAnalyzeBatch_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []BatchItem{
		{Filename: "a.jpg", Image: vision.Image{Data: []byte("one")}},
		{Filename: "b.jpg", Image: vision.Image{Data: []byte("two")}},
	}
	got := AnalyzeBatch(ctx, newMockAnalyzer(mock.Scenarios[0], nil), items, 1)

	assert.Equal(t, 2, got.Failed)
	for _, e := range got.Errors {
		assert.Contains(t, e.Error, "analysis aborted")
	}
}
