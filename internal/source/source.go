// Package source provides the read-only remote event sources. Every source
// answers the same question: all events dated on or after a given day,
// ascending by date.
package source

import (
	"context"
	"errors"
	"slices"

	appLog "agendash/internal/log"
	"agendash/internal/model"
)

// Source yields remote events with EventDate >= from, ascending by date.
type Source interface {
	Name() string
	Upcoming(ctx context.Context, from model.Date) ([]model.Event, error)
}

var ErrUnavailable = errors.New("remote events unavailable")

// Empty is a source with no events, used when no remote source is configured.
type Empty struct{}

func (Empty) Name() string { return "none" }

func (Empty) Upcoming(context.Context, model.Date) ([]model.Event, error) {
	return []model.Event{}, nil
}

// Static serves a fixed list, filtered and sorted like a real query.
type Static struct {
	Events []model.Event
}

func (s Static) Name() string { return "static" }

func (s Static) Upcoming(_ context.Context, from model.Date) ([]model.Event, error) {
	return filterFrom(s.Events, from), nil
}

// Multi concatenates several sources. A failing member is logged and
// skipped; Multi only fails when every member failed.
type Multi []Source

func (m Multi) Name() string { return "multi" }

func (m Multi) Upcoming(ctx context.Context, from model.Date) ([]model.Event, error) {
	out := make([]model.Event, 0)
	var errs []error
	for _, s := range m {
		events, err := s.Upcoming(ctx, from)
		if err != nil {
			appLog.Error("remote source failed", err, "source", s.Name())
			errs = append(errs, err)
			continue
		}
		out = append(out, events...)
	}
	if len(m) > 0 && len(errs) == len(m) {
		return nil, errors.Join(append([]error{ErrUnavailable}, errs...)...)
	}
	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.EventDate.Compare(b.EventDate)
	})
	return out, nil
}

// filterFrom keeps events on or after from, sorted stably by date, with
// IsPersonal forced off since remote events are never personal.
func filterFrom(events []model.Event, from model.Date) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.EventDate.Before(from) {
			continue
		}
		ev.IsPersonal = false
		out = append(out, ev)
	}
	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.EventDate.Compare(b.EventDate)
	})
	return out
}
