package serializer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fairagro/m4.2-inspire-to-arc/internal/arc"
)

func mapOK() (*arc.Investigation, error) {
	return &arc.Investigation{ID: "1", Title: "t", Description: "d"}, nil
}

func TestInProcessWorkerBuildsJSONLD(t *testing.T) {
	w := InProcessWorker{}
	out, err := w.Build(context.Background(), BuildInput{Map: mapOK})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"schema:identifier":"1"`)
}

func TestInProcessWorkerPropagatesMapError(t *testing.T) {
	w := InProcessWorker{}
	_, err := w.Build(context.Background(), BuildInput{Map: func() (*arc.Investigation, error) {
		return nil, errors.New("boom")
	}})
	assert.Error(t, err)
}

func TestInProcessWorkerRespectsCancelledContext(t *testing.T) {
	w := InProcessWorker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Build(ctx, BuildInput{Map: mapOK})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolWorkerBuildsConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewPoolWorker(2, 4, nil)
	defer p.Close()

	results := make(chan []byte, 4)
	for i := 0; i < 4; i++ {
		go func() {
			out, err := p.Build(context.Background(), BuildInput{Map: mapOK})
			require.NoError(t, err)
			results <- out
		}()
	}
	for i := 0; i < 4; i++ {
		<-results
	}
}

func TestPoolWorkerBuildTimesOutOnSlowMapper(t *testing.T) {
	p := NewPoolWorker(1, 1, nil)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Build(ctx, BuildInput{Map: func() (*arc.Investigation, error) {
		time.Sleep(200 * time.Millisecond)
		return mapOK()
	}})
	assert.Error(t, err)
}
