package scenario_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"simulation-server/internal/models"
	"simulation-server/internal/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingSource считает обращения и может блокировать первую загрузку.
type countingSource struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	fail    atomic.Bool
}

func (s *countingSource) Load(ctx context.Context, id string) (*models.Scenario, error) {
	n := s.calls.Add(1)
	if n == 1 && s.entered != nil {
		close(s.entered)
		<-s.release
	}
	if s.fail.Load() {
		return nil, models.ErrScenarioNotFound
	}
	return &models.Scenario{ID: id, InitialState: models.State{}}, nil
}

func (s *countingSource) List(ctx context.Context) ([]models.ScenarioSummary, error) {
	return []models.ScenarioSummary{{ID: "tech_pm"}}, nil
}

func TestCachedLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("Second load is served from cache", func(t *testing.T) {
		src := &countingSource{}
		loader := scenario.NewCachedLoader(src, zap.NewNop())

		first, err := loader.Load(ctx, "tech_pm")
		require.NoError(t, err)
		second, err := loader.Load(ctx, "tech_pm")
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("Concurrent loads are coalesced", func(t *testing.T) {
		src := &countingSource{entered: make(chan struct{}), release: make(chan struct{})}
		loader := scenario.NewCachedLoader(src, zap.NewNop())

		const n = 16
		results := make([]*models.Scenario, n)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[0], _ = loader.Load(ctx, "tech_pm")
		}()
		<-src.entered // первая загрузка висит в источнике

		for i := 1; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = loader.Load(ctx, "tech_pm")
			}(i)
		}
		close(src.release)
		wg.Wait()

		assert.Equal(t, int32(1), src.calls.Load())
		for i := 1; i < n; i++ {
			assert.Same(t, results[0], results[i])
		}
	})

	t.Run("Errors are not cached", func(t *testing.T) {
		src := &countingSource{}
		src.fail.Store(true)
		loader := scenario.NewCachedLoader(src, zap.NewNop())

		_, err := loader.Load(ctx, "tech_pm")
		assert.True(t, errors.Is(err, models.ErrNotFound))

		src.fail.Store(false)
		sc, err := loader.Load(ctx, "tech_pm")
		require.NoError(t, err)
		assert.Equal(t, "tech_pm", sc.ID)
		assert.Equal(t, int32(2), src.calls.Load())
	})

	t.Run("Cancelled caller returns promptly", func(t *testing.T) {
		src := &countingSource{entered: make(chan struct{}), release: make(chan struct{})}
		loader := scenario.NewCachedLoader(src, zap.NewNop())

		cctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			_, err := loader.Load(cctx, "tech_pm")
			done <- err
		}()
		<-src.entered
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)

		// Загрузка завершается в фоне и попадает в кэш
		close(src.release)
		sc, err := loader.Load(ctx, "tech_pm")
		require.NoError(t, err)
		assert.Equal(t, "tech_pm", sc.ID)
	})
}
