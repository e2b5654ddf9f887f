package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// FallbackIDPrefix marks synthetic items produced when search cannot return
// real content. Selection logic never schedules them.
const FallbackIDPrefix = "fallback_"

const descriptionLimit = 300

// ErrNotFound is returned when an item does not exist.
var ErrNotFound = errors.New("catalog item not found")

// Item is a workout in the catalog. Vectors are stored separately.
type Item struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	DisplayTitle      string   `json:"display_title,omitempty"`
	Focus             []string `json:"focus"`
	DurationMins      *int     `json:"duration_mins"`
	Difficulty        string   `json:"difficulty,omitempty"`
	DifficultyScore   *int     `json:"difficulty_score,omitempty"`
	DifficultyReasons []string `json:"difficulty_reasons,omitempty"`
	Equipment         []string `json:"equipment,omitempty"`
	Description       string   `json:"description,omitempty"`
	Thumbnail         string   `json:"thumbnail,omitempty"`
	URL               string   `json:"url,omitempty"`
	Trainer           string   `json:"trainer,omitempty"`
	SourceProgram     string   `json:"source_program,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}

// Minutes returns a duration pointer.
func Minutes(n int) *int {
	return &n
}

// IsPlaceholder reports whether the item is a synthetic fallback.
func (i Item) IsPlaceholder() bool {
	return strings.HasPrefix(i.ID, FallbackIDPrefix)
}

// Name is the title shown to users.
func (i Item) Name() string {
	if i.DisplayTitle != "" {
		return i.DisplayTitle
	}
	return i.Title
}

// Projection returns the stable field set handed to the planner, with the
// description truncated.
func (i Item) Projection() Item {
	p := i
	p.UpdatedAt = ""
	p.Focus = append([]string(nil), i.Focus...)
	p.Equipment = append([]string(nil), i.Equipment...)
	p.DifficultyReasons = append([]string(nil), i.DifficultyReasons...)
	if r := []rune(i.Description); len(r) > descriptionLimit {
		p.Description = string(r[:descriptionLimit]) + "..."
	}
	return p
}

// ToEmbeddingText builds the text the item's vector is computed from.
func (i Item) ToEmbeddingText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", i.Name())
	if len(i.Focus) > 0 {
		fmt.Fprintf(&sb, "Focus: %s\n", strings.Join(i.Focus, ", "))
	}
	if i.DurationMins != nil {
		fmt.Fprintf(&sb, "Duration: %d minutes\n", *i.DurationMins)
	}
	if i.Difficulty != "" {
		fmt.Fprintf(&sb, "Difficulty: %s\n", i.Difficulty)
	}
	if len(i.Equipment) > 0 {
		fmt.Fprintf(&sb, "Equipment: %s\n", strings.Join(i.Equipment, ", "))
	}
	if i.SourceProgram != "" {
		fmt.Fprintf(&sb, "Program: %s\n", i.SourceProgram)
	}
	if i.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", i.Description)
	}
	return sb.String()
}

// RestPlaceholder is returned when a search finds nothing.
func RestPlaceholder() Item {
	return Item{
		ID:          FallbackIDPrefix + "rest",
		Title:       "Rest & Recovery",
		Focus:       []string{"Recovery"},
		Description: "No matching workout found. Take an active recovery day.",
	}
}

// ErrorPlaceholder is returned when embedding or search infrastructure fails.
func ErrorPlaceholder(reason string) Item {
	return Item{
		ID:          FallbackIDPrefix + "error",
		Title:       "Rest & Recovery",
		Focus:       []string{"Recovery"},
		Description: "Workout search unavailable: " + reason,
	}
}

// InferFocus derives focus tags from a title by keyword. Used when
// extraction returns no focus.
func InferFocus(title string) []string {
	t := strings.ToLower(title)
	var focus []string
	add := func(tags ...string) {
		for _, tag := range tags {
			if !containsFold(focus, tag) {
				focus = append(focus, tag)
			}
		}
	}

	if strings.Contains(t, "leg") || strings.Contains(t, "glute") {
		add("Legs", "Glutes")
	}
	if strings.Contains(t, "arm") || strings.Contains(t, "upper") || strings.Contains(t, "shoulder") {
		add("Upper Body", "Arms")
	}
	if strings.Contains(t, "abs") || strings.Contains(t, "core") {
		add("Abs", "Core")
	}
	if strings.Contains(t, "hiit") || strings.Contains(t, "cardio") {
		add("Cardio", "HIIT")
	}
	if strings.Contains(t, "full body") {
		add("Full Body")
	}
	if strings.Contains(t, "stretch") || strings.Contains(t, "mobility") || strings.Contains(t, "yoga") {
		add("Mobility")
	}
	if len(focus) == 0 {
		add("General Fitness")
	}
	return focus
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
