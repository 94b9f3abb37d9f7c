package models

import "time"

// Point is a 2-D board coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoardMod is one placed mod on the authoring canvas (§3).
type BoardMod struct {
	SourceID     string `json:"source_id"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Version      string `json:"version,omitempty"`
	IconURL      string `json:"icon_url,omitempty"`
	Description  string `json:"description,omitempty"`
	UniqueID     string `json:"unique_id"`
	Position     Point  `json:"position"`
	CategoryID   string `json:"category_id"`
	CategoryIndex int   `json:"category_index"`
	IsDisabled   bool   `json:"is_disabled"`
	CachedDependencies []string `json:"cached_dependencies,omitempty"`
}

// BoardCategory is one category rectangle on the canvas (§3).
type BoardCategory struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Position Point   `json:"position"`
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// Camera is the saved viewport of the board.
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// BoardState is the full serializable board for a project (§3).
type BoardState struct {
	ProjectID  string          `json:"project_id"`
	Camera     Camera          `json:"camera"`
	Mods       []BoardMod      `json:"mods"`
	Categories []BoardCategory `json:"categories"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Clone returns a deep copy, used by the Crash Pipeline's Board Patcher
// (§4.L.6) which must never mutate the caller's snapshot in place.
func (b BoardState) Clone() BoardState {
	out := b
	out.Mods = make([]BoardMod, len(b.Mods))
	for i, m := range b.Mods {
		mc := m
		if m.CachedDependencies != nil {
			mc.CachedDependencies = append([]string(nil), m.CachedDependencies...)
		}
		out.Mods[i] = mc
	}
	out.Categories = make([]BoardCategory, len(b.Categories))
	copy(out.Categories, b.Categories)
	return out
}

// CategoryByID returns the category with the given id, if present.
func (b BoardState) CategoryByID(id string) (BoardCategory, bool) {
	for _, c := range b.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return BoardCategory{}, false
}
