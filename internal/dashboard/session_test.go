package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendash/internal/agenda"
	"agendash/internal/model"
	"agendash/internal/source"
	"agendash/internal/store"
	"agendash/internal/tasks"
)

var (
	ist     = time.FixedZone("IST", 5*3600+1800)
	fixedAt = time.Date(2024, time.March, 10, 9, 0, 0, 0, ist)
	today   = model.NewDate(2024, time.March, 10)
)

func clock() time.Time { return fixedAt }

type countingSource struct {
	calls  atomic.Int32
	events []model.Event
	err    error
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) Upcoming(_ context.Context, from model.Date) ([]model.Event, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return source.Static{Events: c.events}.Upcoming(context.Background(), from)
}

func newSession(t *testing.T, src source.Source) (*Session, *store.MemoryStore) {
	t.Helper()

	st := store.NewMemoryStore()
	mgr := tasks.NewManager(st, tasks.WithLocation(ist), tasks.WithClock(clock))
	s := NewSession(Options{
		Source:    src,
		Tasks:     mgr,
		Location:  ist,
		WeekStart: time.Sunday,
		MonthTabs: []time.Month{time.January, time.February, time.March, time.April, time.May},
		Now:       clock,
	})
	return s, st
}

func TestSessionEndToEnd(t *testing.T) {
	t.Parallel()

	src := &countingSource{events: []model.Event{
		{ID: "1", Title: "Quiz", EventDate: today, Category: model.CategoryQuiz},
		{ID: "2", Title: "Lab", EventDate: today.AddDays(1), Category: model.CategoryLab},
		{ID: "3", Title: "Compre", EventDate: today.AddDays(20), Category: model.CategoryCompre},
		{ID: "old", Title: "Past", EventDate: today.AddDays(-2), Category: model.CategoryQuiz},
	}}
	s, _ := newSession(t, src)
	ctx := context.Background()

	assert.True(t, s.Loading())
	require.NoError(t, s.Start(ctx))
	assert.False(t, s.Loading())
	assert.Equal(t, int32(1), src.calls.Load())

	snap := s.Snapshot(ctx, fixedAt)
	require.Len(t, snap.Agenda.Buckets, 3)
	todayB, _ := snap.Agenda.Bucket("today")
	tomorrowB, _ := snap.Agenda.Bucket("tomorrow")
	upcomingB, _ := snap.Agenda.Bucket("upcoming")
	assert.Len(t, todayB.Events, 1)
	assert.Len(t, tomorrowB.Events, 1)
	assert.Empty(t, upcomingB.Events)
	assert.Len(t, snap.Events, 3)
	assert.Equal(t, "March", snap.State.MonthLabel)
	require.NotNil(t, snap.RefreshedAt)
}

func TestSessionFetchFailureIsEmpty(t *testing.T) {
	t.Parallel()

	s, _ := newSession(t, &countingSource{err: errors.New("offline")})
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	snap := s.Snapshot(ctx, fixedAt)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Events)
	assert.Equal(t, 0, snap.Agenda.Total())
	for _, b := range snap.Agenda.Buckets {
		assert.NotNil(t, b.Events)
	}
}

func TestSessionTasksMergeAfterRemote(t *testing.T) {
	t.Parallel()

	src := &countingSource{events: []model.Event{
		{ID: "r1", Title: "Quiz", EventDate: today, Category: model.CategoryQuiz},
	}}
	s, st := newSession(t, src)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	ev, created, err := s.CreateTask(ctx, "  Gym  ", "")
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, "Gym", ev.Title)
	assert.Equal(t, model.AllDayLabel, ev.TimeRange)
	assert.Equal(t, today, ev.EventDate)

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "r1", events[0].ID)
	assert.Equal(t, ev.ID, events[1].ID)
	assert.True(t, events[1].IsPersonal)

	_, created, err = s.CreateTask(ctx, "   ", "10:00")
	require.NoError(t, err)
	assert.False(t, created)

	deleted, err := s.DeleteTask(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteTask(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, s.Tasks())

	raw, ok, err := st.Get(ctx, tasks.DefaultKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestSessionViewTransitions(t *testing.T) {
	t.Parallel()

	src := &countingSource{events: []model.Event{
		{ID: "w", Title: "Next week", EventDate: today.AddDays(7), Category: model.CategoryLab},
		{ID: "a", Title: "April", EventDate: model.NewDate(2024, time.April, 2), Category: model.CategoryMidsem},
	}}
	s, _ := newSession(t, src)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.SetMode(agenda.ModeWeekly))
	assert.Equal(t, 0, s.Snapshot(ctx, fixedAt).Agenda.Total())

	s.NextWeek()
	snap := s.Snapshot(ctx, fixedAt)
	assert.Equal(t, 1, snap.State.WeekOffset)
	require.NotNil(t, snap.Agenda.Week)
	assert.Equal(t, today.AddDays(7), snap.Agenda.Week.Start)
	assert.Equal(t, 1, snap.Agenda.Total())

	require.NoError(t, s.SetMode(agenda.ModeMonthly))
	require.NoError(t, s.SelectMonth("Apr"))
	snap = s.Snapshot(ctx, fixedAt)
	assert.Equal(t, "April", snap.State.MonthLabel)
	assert.Equal(t, 1, snap.Agenda.Total())

	require.Error(t, s.SelectMonth("December"))

	require.NoError(t, s.SetMode(agenda.ModeWeekly))
	assert.Equal(t, 0, s.Snapshot(ctx, fixedAt).State.WeekOffset)

	s.PrevWeek()
	assert.Equal(t, -1, s.Snapshot(ctx, fixedAt).State.WeekOffset)
}

func TestSessionComputeIsStateless(t *testing.T) {
	t.Parallel()

	s, _ := newSession(t, &countingSource{events: []model.Event{
		{ID: "1", Title: "Quiz", EventDate: today, Category: model.CategoryQuiz},
	}})
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	res := s.Compute(agenda.State{Mode: agenda.ModeMonthly, Month: time.March}, fixedAt)
	assert.Equal(t, 1, res.Total())
	assert.Equal(t, agenda.ModeDaily, s.Snapshot(ctx, fixedAt).State.Mode)
}

func TestScheduler(t *testing.T) {
	t.Parallel()

	s, _ := newSession(t, source.Empty{})

	_, err := NewScheduler(s, "not a schedule", ist)
	require.Error(t, err)

	disabled, err := NewScheduler(s, "", ist)
	require.NoError(t, err)
	require.NoError(t, disabled.Start(context.Background()))
	assert.True(t, disabled.Next().IsZero())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched, err := NewScheduler(s, "@every 1h", ist)
	require.NoError(t, err)
	require.NoError(t, sched.Start(ctx))
	assert.Eventually(t, func() bool { return !sched.Next().IsZero() }, time.Second, 10*time.Millisecond)
}

// gatedSource holds its first call until release is closed.
type gatedSource struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	first   []model.Event
	later   []model.Event
}

func (g *gatedSource) Name() string { return "gated" }

func (g *gatedSource) Upcoming(_ context.Context, _ model.Date) ([]model.Event, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		<-g.release
		return g.first, nil
	}
	return g.later, nil
}

func TestSessionRefreshKeepsNewestResult(t *testing.T) {
	t.Parallel()

	src := &gatedSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
		first:   []model.Event{{ID: "old", Title: "Old", EventDate: today, Category: model.CategoryQuiz}},
		later:   []model.Event{{ID: "new", Title: "New", EventDate: today, Category: model.CategoryLab}},
	}
	s, _ := newSession(t, src)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Refresh(ctx)
	}()
	<-src.started

	s.Refresh(ctx)
	close(src.release)
	<-done

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].ID)
	assert.False(t, s.Loading())
}
