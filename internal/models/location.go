package models

// Location is a secret place with the civilian roles it can hand out
type Location struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// Capacity is the largest roster the location can seat (one impostor plus one civilian per role)
func (l Location) Capacity() int {
	return len(l.Roles) + 1
}

// LocationOption is a location without its role list
type LocationOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Question is a prompt tagged with categories
type Question struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
}

// AskedQuestion is an archived question with the player who asked it
type AskedQuestion struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
	AskedBy    string   `json:"asked_by"`
	AskedAtMs  int64    `json:"asked_at_ms"`
}
