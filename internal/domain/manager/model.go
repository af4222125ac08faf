package manager

// Manager is a sales manager selectable when placing an order.
type Manager struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Defaults are seeded whenever the manager collection is empty or unreadable.
func Defaults() []Manager {
	return []Manager{
		{ID: "m1", Name: "Айгерім"},
		{ID: "m2", Name: "Мақпал"},
	}
}
