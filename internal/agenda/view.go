package agenda

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"agendash/internal/model"
)

// Mode selects which grouping of the merged events is shown.
type Mode int

const (
	ModeDaily Mode = iota
	ModeWeekly
	ModeMonthly
)

var ErrUnknownMode = errors.New("unknown view mode")

func (m Mode) String() string {
	switch m {
	case ModeDaily:
		return "daily"
	case ModeWeekly:
		return "weekly"
	case ModeMonthly:
		return "monthly"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "":
		return ModeDaily, nil
	case "weekly", "week":
		return ModeWeekly, nil
	case "monthly", "month":
		return ModeMonthly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// State is the user-controlled part of the view.
type State struct {
	Mode       Mode       `json:"mode"`
	WeekOffset int        `json:"week_offset"`
	Month      time.Month `json:"-"`
	MonthLabel string     `json:"month"`
}

// View is the view-mode state machine. It starts in Daily, and every
// transition is an explicit user action. View is not safe for concurrent use.
type View struct {
	state State
	tabs  []time.Month
}

// NewView starts in Daily mode with the selected month set to the month of
// ref. tabs is the fixed set of months the user can pick from afterwards.
func NewView(ref model.Date, tabs []time.Month) *View {
	v := &View{tabs: append([]time.Month(nil), tabs...)}
	v.state = State{Mode: ModeDaily, Month: ref.Month, MonthLabel: ref.Month.String()}
	return v
}

func (v *View) State() State {
	return v.state
}

// Tabs returns the selectable month labels.
func (v *View) Tabs() []string {
	out := make([]string, 0, len(v.tabs))
	for _, m := range v.tabs {
		out = append(out, m.String())
	}
	return out
}

// SetMode switches modes. Entering Weekly from another mode resets the week
// offset to zero; re-selecting the current mode changes nothing.
func (v *View) SetMode(m Mode) error {
	switch m {
	case ModeDaily, ModeWeekly, ModeMonthly:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	if m == ModeWeekly && v.state.Mode != ModeWeekly {
		v.state.WeekOffset = 0
	}
	v.state.Mode = m
	return nil
}

func (v *View) NextWeek() {
	v.state.WeekOffset++
}

func (v *View) PrevWeek() {
	v.state.WeekOffset--
}

// SelectMonth selects one of the configured month tabs.
func (v *View) SelectMonth(label string) error {
	m, err := ParseMonth(label)
	if err != nil {
		return err
	}
	for _, tab := range v.tabs {
		if tab == m {
			v.state.Month = m
			v.state.MonthLabel = m.String()
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not a selectable month", ErrUnknownMonth, label)
}

// Result is a computed view, ready for rendering.
type Result struct {
	Mode      Mode       `json:"mode"`
	Reference model.Date `json:"reference_date"`
	Buckets   []Bucket   `json:"buckets"`
	Week      *WeekRange `json:"week,omitempty"`
}

// WeekRange is the inclusive span of a Weekly result.
type WeekRange struct {
	Start model.Date `json:"start"`
	End   model.Date `json:"end"`
}

// Total counts events across all buckets.
func (r Result) Total() int {
	n := 0
	for _, b := range r.Buckets {
		n += len(b.Events)
	}
	return n
}

// Bucket returns the bucket with the given name.
func (r Result) Bucket(name string) (Bucket, bool) {
	for _, b := range r.Buckets {
		if b.Name == name {
			return b, true
		}
	}
	return Bucket{}, false
}

// Compute derives the buckets for state from the merged event sequence. It is
// a pure function and is recomputed from scratch on every call.
func Compute(events []model.Event, state State, ref model.Date, weekStart time.Weekday) Result {
	res := Result{Mode: state.Mode, Reference: ref}

	switch state.Mode {
	case ModeWeekly:
		wb := Weekly(events, ref, state.WeekOffset, weekStart)
		res.Buckets = []Bucket{wb.Bucket}
		res.Week = &WeekRange{Start: wb.Start, End: wb.End}
	case ModeMonthly:
		month := state.Month
		if month == 0 {
			month = ref.Month
		}
		res.Buckets = []Bucket{Monthly(events, month)}
	default:
		d := Daily(events, ref)
		res.Buckets = []Bucket{d.Today, d.Tomorrow, d.Upcoming}
	}
	return res
}
