package scenario

import (
	"context"

	"simulation-server/internal/models"
)

// Loader разрешает идентификатор сценария в его описание.
// Отсутствующий сценарий дает models.ErrScenarioNotFound,
// некорректное содержимое дает *models.MalformedScenarioError.
type Loader interface {
	Load(ctx context.Context, id string) (*models.Scenario, error)
}

// Catalog перечисляет доступные сценарии.
type Catalog interface {
	List(ctx context.Context) ([]models.ScenarioSummary, error)
}

// Source объединяет загрузку и перечисление сценариев.
type Source interface {
	Loader
	Catalog
}
