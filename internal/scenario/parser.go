// Package scenario загружает описания симуляций из файлов и других источников,
// проверяет их структуру и кэширует результат.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"simulation-server/internal/models"

	"gopkg.in/yaml.v3"
)

// Format определяет формат документа сценария.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var idPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidateID проверяет, что идентификатор сценария безопасен для использования в путях и ключах.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: '%s'", models.ErrInvalidScenarioID, id)
	}
	return nil
}

// IDForRole возвращает идентификатор сценария для пары отрасль/роль.
func IDForRole(industry, role string) string {
	normalize := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	}
	return normalize(industry) + "_" + normalize(role)
}

// FormatFromExt определяет формат по расширению файла.
func FormatFromExt(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Parse разбирает документ сценария и проверяет его структуру.
// Если в документе не указан id, используется переданный. Другой id в документе считается ошибкой.
func Parse(id string, data []byte, format Format) (*models.Scenario, error) {
	var sc models.Scenario
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&sc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &sc)
	default:
		return nil, fmt.Errorf("unsupported scenario format '%s'", format)
	}
	if err != nil {
		return nil, &models.MalformedScenarioError{ScenarioID: id, Err: err}
	}

	reasons := nullValues(data, format)
	if sc.ID != "" && sc.ID != id {
		reasons = append(reasons, fmt.Sprintf("document id '%s' does not match scenario id '%s'", sc.ID, id))
	}
	sc.ID = id
	if err := validate(&sc, reasons); err != nil {
		return nil, err
	}
	return &sc, nil
}

// nullableDoc повторяет числовые поля сценария указателями, чтобы отличить null от нуля.
type nullableDoc struct {
	InitialState map[string]*float64 `json:"initial_state" yaml:"initial_state"`
	Actions      map[string]struct {
		Choices map[string]struct {
			Effects map[string]*float64 `json:"effects" yaml:"effects"`
		} `json:"choices" yaml:"choices"`
	} `json:"actions" yaml:"actions"`
}

// nullValues находит числовые поля со значением null (в YAML также ~).
// Вызывается только для документа, который уже успешно разобран.
func nullValues(data []byte, format Format) []string {
	var doc nullableDoc
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil
	}

	var reasons []string
	for _, attr := range sortedKeys(doc.InitialState) {
		if doc.InitialState[attr] == nil {
			reasons = append(reasons, fmt.Sprintf("initial_state.%s is not a number", attr))
		}
	}
	for _, actionID := range sortedKeys(doc.Actions) {
		choices := doc.Actions[actionID].Choices
		for _, choiceID := range sortedKeys(choices) {
			effects := choices[choiceID].Effects
			for _, attr := range sortedKeys(effects) {
				if effects[attr] == nil {
					reasons = append(reasons, fmt.Sprintf("actions.%s.%s effect '%s' is not a number", actionID, choiceID, attr))
				}
			}
		}
	}
	return reasons
}

// Validate проверяет структурные требования к сценарию:
// наличие initial_state, хотя бы один выбор в каждом действии и конечные числовые значения.
func Validate(sc *models.Scenario) error {
	return validate(sc, nil)
}

func validate(sc *models.Scenario, reasons []string) error {
	if sc.InitialState == nil {
		reasons = append(reasons, "missing initial_state")
	}
	for _, attr := range sortedKeys(sc.InitialState) {
		if !finite(sc.InitialState[attr]) {
			reasons = append(reasons, fmt.Sprintf("initial_state.%s is not a finite number", attr))
		}
	}

	for _, actionID := range sortedKeys(sc.Actions) {
		action := sc.Actions[actionID]
		if len(action.Choices) == 0 {
			reasons = append(reasons, fmt.Sprintf("action '%s' has no choices", actionID))
			continue
		}
		for _, choiceID := range sortedKeys(action.Choices) {
			effects := action.Choices[choiceID].Effects
			for _, attr := range sortedKeys(effects) {
				if !finite(effects[attr]) {
					reasons = append(reasons, fmt.Sprintf("actions.%s.%s effect '%s' is not a finite number", actionID, choiceID, attr))
				}
			}
		}
	}

	if len(reasons) > 0 {
		return &models.MalformedScenarioError{ScenarioID: sc.ID, Reasons: reasons}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
