package agenda

import (
	"slices"

	"agendash/internal/model"
)

// Merge concatenates remote and personal events and orders the result by
// event date. The sort is stable and there is no secondary key, so for equal
// dates remote events keep preceding personal events, each in input order.
// Nil inputs are treated as empty; the result is never nil.
func Merge(remote, personal []model.Event) []model.Event {
	out := make([]model.Event, 0, len(remote)+len(personal))
	out = append(out, remote...)
	out = append(out, personal...)

	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.EventDate.Compare(b.EventDate)
	})
	return out
}
