package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "agendash/internal/log"
	"agendash/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location is the zone in which timed events are assigned a calendar day.
	Location *time.Location
	// From and To are the inclusive range of calendar days to emit.
	From model.Date
	To   model.Date
	// MaxOccurrencesPerEvent caps runaway RRULEs.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete day of a (possibly recurring) VEVENT.
type Occurrence struct {
	Event ParsedEvent
	Date  model.Date
	// Start is the instance start in the configured location.
	Start time.Time
	// Recurring is set for instances produced by an RRULE.
	Recurring bool
}

// ExpandDates turns parsed VEVENTs into per-day occurrences within
// [cfg.From, cfg.To]. RECURRENCE-ID overrides replace the matching instance
// and EXDATEs remove instances. The output is not sorted.
func ExpandDates(events []ParsedEvent, cfg ExpandConfig) ([]Occurrence, error) {
	if cfg.To.Before(cfg.From) {
		return nil, errors.New("expand: To is before From")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	var order []string
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	out := make([]Occurrence, 0)
	for _, uid := range order {
		for _, ev := range bases[uid] {
			if ev.RawRRule == "" {
				out = appendInRange(out, occurrenceFor(ev, overrides[uid], ev.Start, false, cfg.Location), cfg)
				continue
			}
			occ, capped := expandRecurring(ev, overrides[uid], cfg)
			if capped {
				appLog.Error("expand: occurrences truncated", errors.New("max occurrences reached"),
					"uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
			}
			out = append(out, occ...)
		}
	}
	return out, nil
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen by a day on each side so zone shifts cannot drop edge instances;
	// appendInRange applies the exact calendar-day filter.
	from := cfg.From.AddDays(-1).Time(ev.Start.Location())
	to := cfg.To.AddDays(2).Time(ev.Start.Location())
	starts := set.Between(from, to, true)

	capped := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		capped = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		out = appendInRange(out, occurrenceFor(ev, overrides, s, true, cfg.Location), cfg)
	}
	return out, capped
}

// occurrenceFor applies a matching override and assigns the calendar day.
// All-day events keep their own date; timed events take the day of their
// start in loc.
func occurrenceFor(ev ParsedEvent, overrides []ParsedEvent, start time.Time, recurring bool, loc *time.Location) Occurrence {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			ev = ov
			start = ov.Start
			break
		}
	}

	occ := Occurrence{Event: ev, Recurring: recurring}
	if ev.AllDay {
		occ.Date = model.DateOf(start)
		occ.Start = occ.Date.Time(loc)
	} else {
		occ.Start = start.In(loc)
		occ.Date = model.DateOf(occ.Start)
	}
	return occ
}

func appendInRange(out []Occurrence, occ Occurrence, cfg ExpandConfig) []Occurrence {
	if occ.Date.Before(cfg.From) || occ.Date.After(cfg.To) {
		return out
	}
	return append(out, occ)
}
