package models

// State - вектор состояния симуляции: имя атрибута -> значение.
// Отсутствующий атрибут читается как 0.
type State map[string]float64

// Get возвращает значение атрибута или 0, если его нет.
func (s State) Get(attribute string) float64 {
	return s[attribute]
}

// Clone возвращает независимую копию состояния. Для nil возвращается пустое состояние.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
