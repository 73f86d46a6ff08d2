package scenario

import (
	"context"
	"sync"

	"simulation-server/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedLoader кэширует успешно загруженные сценарии по идентификатору.
// Параллельные загрузки одного id объединяются в один запрос к источнику.
type CachedLoader struct {
	next   Source
	group  singleflight.Group
	mu     sync.RWMutex
	cache  map[string]*models.Scenario
	logger *zap.Logger
}

// NewCachedLoader оборачивает источник сценариев кэшем.
func NewCachedLoader(next Source, logger *zap.Logger) *CachedLoader {
	return &CachedLoader{
		next:   next,
		cache:  make(map[string]*models.Scenario),
		logger: logger.Named("CachedScenarioLoader"),
	}
}

// Load возвращает сценарий из кэша или загружает его из источника.
// Ошибки не кэшируются.
func (c *CachedLoader) Load(ctx context.Context, id string) (*models.Scenario, error) {
	c.mu.RLock()
	sc, ok := c.cache[id]
	c.mu.RUnlock()
	if ok {
		return sc, nil
	}

	// Отмена одного вызывающего не должна прерывать загрузку для остальных
	ch := c.group.DoChan(id, func() (any, error) {
		loaded, err := c.next.Load(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[id] = loaded
		c.mu.Unlock()
		c.logger.Debug("Scenario cached", zap.String("scenario_id", id))
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Scenario), nil
	}
}

// List не кэшируется: каталог может пополняться.
func (c *CachedLoader) List(ctx context.Context) ([]models.ScenarioSummary, error) {
	return c.next.List(ctx)
}

