package source

import (
	"context"
	"errors"
	"time"

	"agendash/internal/ics"
	appLog "agendash/internal/log"
	"agendash/internal/model"
)

// DefaultHorizonDays is how far ahead ICS recurrences are expanded.
const DefaultHorizonDays = 180

// ICS serves events from one or more subscribed iCalendar feeds.
type ICS struct {
	fetcher *ics.Fetcher
	feeds   []ics.Feed
	loc     *time.Location
	horizon int
}

// NewICS builds an ICS source. A non-positive horizon uses
// DefaultHorizonDays.
func NewICS(fetcher *ics.Fetcher, feeds []ics.Feed, loc *time.Location, horizonDays int) *ICS {
	if loc == nil {
		loc = time.Local
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return &ICS{fetcher: fetcher, feeds: feeds, loc: loc, horizon: horizonDays}
}

func (s *ICS) Name() string { return "ics" }

// Upcoming fetches every feed, expands recurrences over
// [from, from+horizon] and returns the converted events ascending by date.
// Feeds that fail are skipped; the call fails only when none produced a body.
func (s *ICS) Upcoming(ctx context.Context, from model.Date) ([]model.Event, error) {
	if len(s.feeds) == 0 {
		return []model.Event{}, nil
	}

	results, errs := s.fetcher.FetchAll(ctx, s.feeds)
	if len(results) == 0 {
		return nil, errors.Join(append([]error{ErrUnavailable}, errs...)...)
	}

	var parsed []ics.ParsedEvent
	for _, res := range results {
		events, err := ics.ParseICS(res.Feed, res.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "feed", res.Feed.ID)
			continue
		}
		parsed = append(parsed, events...)
	}

	occs, err := ics.ExpandDates(parsed, ics.ExpandConfig{
		Location: s.loc,
		From:     from,
		To:       from.AddDays(s.horizon),
	})
	if err != nil {
		return nil, err
	}

	events := filterFrom(ics.ToEvents(occs, s.loc), from)
	appLog.Debug("ics events expanded", "feeds", len(results), "events", len(events))
	return events, nil
}
