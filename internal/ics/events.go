package ics

import (
	"strings"
	"time"
	"unicode"

	"agendash/internal/model"
)

// keywordCategories maps title words to categories, checked in order.
var keywordCategories = []struct {
	words    []string
	category model.Category
}{
	{[]string{"midsem", "mid-sem", "midterm"}, model.CategoryMidsem},
	{[]string{"compre", "comprehensive", "endsem", "end-sem"}, model.CategoryCompre},
	{[]string{"quiz"}, model.CategoryQuiz},
	{[]string{"lab"}, model.CategoryLab},
	{[]string{"deadline", "due", "submission"}, model.CategoryDeadline},
}

// CategoryFor picks a category for a VEVENT: an explicit CATEGORIES value
// wins, then a keyword in the summary, then the feed default, then Deadline.
// Personal is never assigned to feed events.
func CategoryFor(ev ParsedEvent) model.Category {
	for _, c := range ev.Categories {
		if cat, err := model.ParseCategory(c); err == nil && cat != model.CategoryPersonal {
			return cat
		}
	}

	words := strings.FieldsFunc(strings.ToLower(ev.Summary), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	for _, kc := range keywordCategories {
		for _, w := range words {
			for _, k := range kc.words {
				if w == k {
					return kc.category
				}
			}
		}
	}

	if cat, err := model.ParseCategory(ev.Feed.Category); err == nil && cat != model.CategoryPersonal {
		return cat
	}
	return model.CategoryDeadline
}

// ToEvents converts expanded occurrences into read-only dashboard events.
func ToEvents(occs []Occurrence, loc *time.Location) []model.Event {
	if loc == nil {
		loc = time.Local
	}
	out := make([]model.Event, 0, len(occs))
	for _, occ := range occs {
		ev := occ.Event
		id := ev.UID
		if occ.Recurring {
			id = ev.UID + "@" + occ.Date.String()
		}
		if ev.Feed.ID != "" {
			id = ev.Feed.ID + ":" + id
		}
		out = append(out, model.Event{
			ID:          id,
			Title:       ev.Summary,
			EventDate:   occ.Date,
			TimeRange:   timeRange(ev, occ, loc),
			Description: strings.TrimSpace(ev.Description),
			Category:    CategoryFor(ev),
		})
	}
	return out
}

func timeRange(ev ParsedEvent, occ Occurrence, loc *time.Location) string {
	if ev.AllDay {
		return model.AllDayLabel
	}
	start := occ.Start.In(loc)
	dur := ev.End.Sub(ev.Start)
	if dur <= 0 {
		return start.Format("15:04")
	}
	return start.Format("15:04") + " - " + start.Add(dur).Format("15:04")
}
