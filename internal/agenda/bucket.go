package agenda

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"agendash/internal/model"
)

// Daily view window, in days relative to the reference date. Upcoming is
// exclusive on both ends: days 2 through 13 inclusive.
const (
	tomorrowOffset    = 1
	upcomingEndOffset = 14
)

// Bucket names used in computed results.
const (
	BucketToday    = "today"
	BucketTomorrow = "tomorrow"
	BucketUpcoming = "upcoming"
	BucketWeek     = "week"
	BucketMonth    = "month"
)

var ErrUnknownMonth = errors.New("unknown month label")

// Bucket is one named group of events. Events is never nil.
type Bucket struct {
	Name   string        `json:"name"`
	Label  string        `json:"label"`
	Events []model.Event `json:"events"`
}

func newBucket(name, label string) Bucket {
	return Bucket{Name: name, Label: label, Events: []model.Event{}}
}

// DailyBuckets is the Daily view: Today, Tomorrow and Upcoming.
type DailyBuckets struct {
	Today    Bucket
	Tomorrow Bucket
	Upcoming Bucket
}

// Daily classifies events relative to ref. Every event lands in at most one
// bucket; events outside all three windows are dropped.
func Daily(events []model.Event, ref model.Date) DailyBuckets {
	out := DailyBuckets{
		Today:    newBucket(BucketToday, "Today"),
		Tomorrow: newBucket(BucketTomorrow, "Tomorrow"),
		Upcoming: newBucket(BucketUpcoming, "Upcoming"),
	}

	tomorrow := ref.AddDays(tomorrowOffset)
	horizon := ref.AddDays(upcomingEndOffset)

	for _, ev := range events {
		d := ev.EventDate
		switch {
		case d.Equal(ref):
			out.Today.Events = append(out.Today.Events, ev)
		case d.Equal(tomorrow):
			out.Tomorrow.Events = append(out.Tomorrow.Events, ev)
		case d.After(tomorrow) && d.Before(horizon):
			out.Upcoming.Events = append(out.Upcoming.Events, ev)
		}
	}
	return out
}

// WeekBounds returns the inclusive [start, end] of the week containing ref,
// shifted by offset whole weeks. weekStart is the first day of every week.
func WeekBounds(ref model.Date, offset int, weekStart time.Weekday) (model.Date, model.Date) {
	back := (int(ref.Weekday()) - int(weekStart) + 7) % 7
	start := ref.AddDays(-back + 7*offset)
	return start, start.AddDays(6)
}

// WeekBucket is the Weekly view.
type WeekBucket struct {
	Bucket
	Start model.Date `json:"start"`
	End   model.Date `json:"end"`
}

func Weekly(events []model.Event, ref model.Date, offset int, weekStart time.Weekday) WeekBucket {
	start, end := WeekBounds(ref, offset, weekStart)
	out := WeekBucket{
		Bucket: newBucket(BucketWeek, weekLabel(start, end)),
		Start:  start,
		End:    end,
	}
	for _, ev := range events {
		d := ev.EventDate
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Events = append(out.Events, ev)
	}
	return out
}

func weekLabel(start, end model.Date) string {
	return fmt.Sprintf("%s %d - %s %d",
		start.Month.String()[:3], start.Day,
		end.Month.String()[:3], end.Day)
}

// Monthly collects every event in the given calendar month regardless of year.
// Matching by month name only is intentional: the data covers a single
// academic term.
func Monthly(events []model.Event, month time.Month) Bucket {
	out := newBucket(BucketMonth, month.String())
	for _, ev := range events {
		if ev.EventDate.Month == month {
			out.Events = append(out.Events, ev)
		}
	}
	return out
}

// ParseMonth accepts a full English month name or its three-letter
// abbreviation, case-insensitively.
func ParseMonth(label string) (time.Month, error) {
	label = strings.TrimSpace(label)
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(label, name) || strings.EqualFold(label, name[:3]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMonth, label)
}
