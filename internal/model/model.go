package model

import (
	"errors"
	"fmt"
	"strings"
)

// AllDayLabel is the time range stored for personal tasks created without one.
const AllDayLabel = "All Day"

// Category is the closed set of event kinds shown on the dashboard.
type Category string

const (
	CategoryQuiz     Category = "Quiz"
	CategoryMidsem   Category = "Midsem"
	CategoryLab      Category = "Lab"
	CategoryDeadline Category = "Deadline"
	CategoryCompre   Category = "Compre"
	CategoryPersonal Category = "Personal"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryQuiz,
	CategoryMidsem,
	CategoryLab,
	CategoryDeadline,
	CategoryCompre,
	CategoryPersonal,
}

var ErrUnknownCategory = errors.New("unknown category")

// ParseCategory matches s against the closed set, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// Event is the single entity of the dashboard. Remote events are read-only;
// personal events (IsPersonal) are owned by the local task store.
type Event struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	EventDate   Date     `json:"event_date"`
	TimeRange   string   `json:"time_range,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category"`
	IsPersonal  bool     `json:"is_personal,omitempty"`
}

// HasDetails reports whether the event carries a description worth expanding.
func (e Event) HasDetails() bool {
	return strings.TrimSpace(e.Description) != ""
}

// Deletable reports whether the user may remove the event.
func (e Event) Deletable() bool {
	return e.IsPersonal
}

// Validate checks the entity invariants.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("event id is empty")
	}
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("event title is empty")
	}
	if e.EventDate.IsZero() {
		return errors.New("event date is zero")
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, e.Category)
	}
	if e.IsPersonal && e.Category != CategoryPersonal {
		return errors.New("personal event must have category Personal")
	}
	return nil
}
