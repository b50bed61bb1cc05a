package agenda

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendash/internal/model"
)

// ref is a Sunday.
var ref = model.NewDate(2024, time.March, 10)

func ev(id string, d model.Date) model.Event {
	return model.Event{ID: id, Title: "event " + id, EventDate: d, Category: model.CategoryQuiz}
}

func personal(id string, d model.Date) model.Event {
	return model.Event{ID: id, Title: "task " + id, EventDate: d, Category: model.CategoryPersonal, IsPersonal: true}
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("orders by date", func(t *testing.T) {
		t.Parallel()

		remote := []model.Event{ev("r2", ref.AddDays(2)), ev("r0", ref)}
		tasks := []model.Event{personal("p1", ref.AddDays(1))}
		assert.Equal(t, []string{"r0", "p1", "r2"}, ids(Merge(remote, tasks)))
	})

	t.Run("remote precedes personal on equal dates", func(t *testing.T) {
		t.Parallel()

		remote := []model.Event{ev("remote", ref)}
		tasks := []model.Event{personal("personal", ref)}
		assert.Equal(t, []string{"remote", "personal"}, ids(Merge(remote, tasks)))
	})

	t.Run("stable within a source", func(t *testing.T) {
		t.Parallel()

		remote := []model.Event{ev("a", ref), ev("b", ref), ev("c", ref)}
		assert.Equal(t, []string{"a", "b", "c"}, ids(Merge(remote, nil)))
	})

	t.Run("nil sources", func(t *testing.T) {
		t.Parallel()

		got := Merge(nil, nil)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestDaily(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		offset int
		bucket string
	}{
		{name: "yesterday", offset: -1, bucket: ""},
		{name: "today", offset: 0, bucket: BucketToday},
		{name: "tomorrow", offset: 1, bucket: BucketTomorrow},
		{name: "day 2", offset: 2, bucket: BucketUpcoming},
		{name: "day 13", offset: 13, bucket: BucketUpcoming},
		{name: "day 14", offset: 14, bucket: ""},
		{name: "day 20", offset: 20, bucket: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := ev("x", ref.AddDays(tt.offset))
			d := Daily([]model.Event{e}, ref)

			got := map[string]int{
				BucketToday:    len(d.Today.Events),
				BucketTomorrow: len(d.Tomorrow.Events),
				BucketUpcoming: len(d.Upcoming.Events),
			}
			total := 0
			for name, n := range got {
				total += n
				if name == tt.bucket {
					assert.Equal(t, 1, n, name)
				} else {
					assert.Zero(t, n, name)
				}
			}
			assert.LessOrEqual(t, total, 1)
		})
	}
}

func TestDailyMutuallyExclusive(t *testing.T) {
	t.Parallel()

	var events []model.Event
	for i := -3; i < 30; i++ {
		events = append(events, ev(strconv.Itoa(i), ref.AddDays(i)))
	}
	d := Daily(events, ref)

	seen := map[string]int{}
	for _, b := range []Bucket{d.Today, d.Tomorrow, d.Upcoming} {
		for _, e := range b.Events {
			seen[e.ID]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
	assert.Len(t, d.Today.Events, 1)
	assert.Len(t, d.Tomorrow.Events, 1)
	assert.Len(t, d.Upcoming.Events, 12)
}

func TestWeekBounds(t *testing.T) {
	t.Parallel()

	wed := model.NewDate(2024, time.March, 13)

	start, end := WeekBounds(wed, 0, time.Sunday)
	assert.Equal(t, model.NewDate(2024, time.March, 10), start)
	assert.Equal(t, model.NewDate(2024, time.March, 16), end)

	start, end = WeekBounds(wed, 0, time.Monday)
	assert.Equal(t, model.NewDate(2024, time.March, 11), start)
	assert.Equal(t, model.NewDate(2024, time.March, 17), end)

	start, end = WeekBounds(wed, -1, time.Sunday)
	assert.Equal(t, model.NewDate(2024, time.March, 3), start)
	assert.Equal(t, model.NewDate(2024, time.March, 9), end)

	start, _ = WeekBounds(wed, 3, time.Sunday)
	assert.Equal(t, model.NewDate(2024, time.March, 31), start)

	// A Sunday reference with Monday-start weeks belongs to the week before.
	start, end = WeekBounds(ref, 0, time.Monday)
	assert.Equal(t, model.NewDate(2024, time.March, 4), start)
	assert.Equal(t, ref, end)
}

func TestWeekly(t *testing.T) {
	t.Parallel()

	start, end := WeekBounds(ref, 0, time.Sunday)
	events := []model.Event{
		ev("before", start.AddDays(-1)),
		ev("start", start),
		ev("mid", start.AddDays(3)),
		ev("end", end),
		ev("after", end.AddDays(1)),
	}

	wb := Weekly(events, ref, 0, time.Sunday)
	assert.Equal(t, []string{"start", "mid", "end"}, ids(wb.Events))
	assert.Equal(t, start, wb.Start)
	assert.Equal(t, "Mar 10 - Mar 16", wb.Label)

	next := Weekly(events, ref, 1, time.Sunday)
	assert.Equal(t, []string{"after"}, ids(next.Events))

	prev := Weekly(events, ref, -1, time.Sunday)
	assert.Equal(t, []string{"before"}, ids(prev.Events))
}

func TestMonthlyIgnoresYear(t *testing.T) {
	t.Parallel()

	events := []model.Event{
		ev("mar24", model.NewDate(2024, time.March, 1)),
		ev("apr24", model.NewDate(2024, time.April, 1)),
		ev("mar25", model.NewDate(2025, time.March, 31)),
	}

	b := Monthly(events, time.March)
	assert.Equal(t, []string{"mar24", "mar25"}, ids(b.Events))
	assert.Equal(t, "March", b.Label)

	empty := Monthly(events, time.May)
	require.NotNil(t, empty.Events)
	assert.Empty(t, empty.Events)
}

func TestParseMonth(t *testing.T) {
	t.Parallel()

	m, err := ParseMonth("february")
	require.NoError(t, err)
	assert.Equal(t, time.February, m)

	m, err = ParseMonth("Mar")
	require.NoError(t, err)
	assert.Equal(t, time.March, m)

	_, err = ParseMonth("Smarch")
	require.ErrorIs(t, err, ErrUnknownMonth)
}

func TestViewStateMachine(t *testing.T) {
	t.Parallel()

	tabs := []time.Month{time.January, time.February, time.March, time.April, time.May}
	v := NewView(ref, tabs)

	st := v.State()
	assert.Equal(t, ModeDaily, st.Mode)
	assert.Equal(t, time.March, st.Month)
	assert.Equal(t, []string{"January", "February", "March", "April", "May"}, v.Tabs())

	require.NoError(t, v.SetMode(ModeWeekly))
	v.NextWeek()
	v.NextWeek()
	v.PrevWeek()
	assert.Equal(t, 1, v.State().WeekOffset)

	// Re-selecting Weekly keeps the offset.
	require.NoError(t, v.SetMode(ModeWeekly))
	assert.Equal(t, 1, v.State().WeekOffset)

	// Leaving and re-entering Weekly resets it.
	require.NoError(t, v.SetMode(ModeMonthly))
	require.NoError(t, v.SetMode(ModeWeekly))
	assert.Equal(t, 0, v.State().WeekOffset)

	require.NoError(t, v.SelectMonth("jan"))
	assert.Equal(t, time.January, v.State().Month)
	assert.Equal(t, "January", v.State().MonthLabel)

	require.ErrorIs(t, v.SelectMonth("October"), ErrUnknownMonth)
	assert.Equal(t, time.January, v.State().Month)

	require.ErrorIs(t, v.SetMode(Mode(9)), ErrUnknownMode)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{"": ModeDaily, "Daily": ModeDaily, "week": ModeWeekly, "MONTHLY": ModeMonthly} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("yearly")
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestComputeEndToEnd(t *testing.T) {
	t.Parallel()

	remote := []model.Event{
		ev("1", ref),
		ev("2", ref.AddDays(1)),
		ev("3", ref.AddDays(20)),
	}
	merged := Merge(remote, nil)

	res := Compute(merged, State{Mode: ModeDaily}, ref, time.Sunday)
	require.Len(t, res.Buckets, 3)

	today, ok := res.Bucket(BucketToday)
	require.True(t, ok)
	tomorrow, _ := res.Bucket(BucketTomorrow)
	upcoming, _ := res.Bucket(BucketUpcoming)
	assert.Len(t, today.Events, 1)
	assert.Len(t, tomorrow.Events, 1)
	assert.Empty(t, upcoming.Events)
	assert.Equal(t, 2, res.Total())
}

func TestComputeEmptyInputs(t *testing.T) {
	t.Parallel()

	merged := Merge(nil, nil)
	for _, st := range []State{
		{Mode: ModeDaily},
		{Mode: ModeWeekly, WeekOffset: 2},
		{Mode: ModeMonthly, Month: time.April},
	} {
		res := Compute(merged, st, ref, time.Sunday)
		require.NotEmpty(t, res.Buckets, st.Mode.String())
		for _, b := range res.Buckets {
			require.NotNil(t, b.Events, b.Name)
			assert.Empty(t, b.Events, b.Name)
		}
	}
}

func TestComputeWeeklyCarriesRange(t *testing.T) {
	t.Parallel()

	res := Compute(nil, State{Mode: ModeWeekly}, ref, time.Sunday)
	require.NotNil(t, res.Week)
	assert.Equal(t, ref, res.Week.Start)
	assert.Equal(t, ref.AddDays(6), res.Week.End)
}
