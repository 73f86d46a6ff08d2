package models

// Choice - один вариант решения внутри действия: изменения атрибутов и текст обратной связи.
type Choice struct {
	Label    string             `json:"label,omitempty" yaml:"label"`
	Effects  map[string]float64 `json:"effects" yaml:"effects"`
	Feedback string             `json:"feedback" yaml:"feedback"`
}

// Action - точка принятия решения в сценарии.
type Action struct {
	Choices map[string]Choice `json:"choices" yaml:"choices"`
}

// Scenario - статическое описание одной симуляции.
// После загрузки содержимое не изменяется, экземпляр может разделяться между сессиями.
type Scenario struct {
	ID           string            `json:"id" yaml:"id"`
	Version      int               `json:"version,omitempty" yaml:"version"`
	Meta         map[string]any    `json:"meta,omitempty" yaml:"meta"`       // Передается клиенту без изменений
	Context      map[string]any    `json:"context,omitempty" yaml:"context"` // Бриф проекта, тоже без изменений
	InitialState State             `json:"initial_state" yaml:"initial_state"`
	Actions      map[string]Action `json:"actions" yaml:"actions"`
}

// ScenarioSummary - краткая запись для каталога сценариев.
type ScenarioSummary struct {
	ID      string         `json:"id" db:"id"`
	Version int            `json:"version" db:"version"`
	Meta    map[string]any `json:"meta,omitempty" db:"meta"`
}

// Choice возвращает вариант решения по идентификаторам действия и выбора.
func (s *Scenario) Choice(actionID, choiceID string) (Choice, error) {
	action, ok := s.Actions[actionID]
	if !ok {
		return Choice{}, ErrInvalidAction
	}
	choice, ok := action.Choices[choiceID]
	if !ok {
		return Choice{}, ErrInvalidChoice
	}
	return choice, nil
}

// Summary возвращает краткое описание сценария.
func (s *Scenario) Summary() ScenarioSummary {
	return ScenarioSummary{ID: s.ID, Version: s.Version, Meta: s.Meta}
}
