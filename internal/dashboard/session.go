// Package dashboard holds the running dashboard session: remote events
// fetched for the current load, the personal task list and the view state.
package dashboard

import (
	"context"
	"sync"
	"time"

	"agendash/internal/agenda"
	"agendash/internal/instrumentation"
	appLog "agendash/internal/log"
	"agendash/internal/model"
	"agendash/internal/source"
	"agendash/internal/tasks"
)

// Options configures a Session.
type Options struct {
	Source    source.Source
	Tasks     *tasks.Manager
	Location  *time.Location
	WeekStart time.Weekday
	MonthTabs []time.Month
	Metrics   *instrumentation.Metrics
	// Now is the session clock; defaults to time.Now.
	Now func() time.Time
}

// Snapshot is a consistent, render-ready copy of the session.
type Snapshot struct {
	Loading     bool          `json:"loading"`
	State       agenda.State  `json:"state"`
	MonthTabs   []string      `json:"month_tabs"`
	Agenda      agenda.Result `json:"agenda"`
	Events      []model.Event `json:"events"`
	RefreshedAt *time.Time    `json:"refreshed_at,omitempty"`
}

// Session serializes every state transition behind one mutex, so handlers
// observe whole steps only.
type Session struct {
	mu        sync.Mutex
	src       source.Source
	tasks     *tasks.Manager
	view      *agenda.View
	loc       *time.Location
	weekStart time.Weekday
	metrics   *instrumentation.Metrics
	now       func() time.Time

	remote      []model.Event
	loading     bool
	refreshedAt time.Time

	// fetchSeq numbers refreshes as they start; appliedSeq is the newest one
	// whose result was stored.
	fetchSeq   uint64
	appliedSeq uint64
}

func NewSession(opts Options) *Session {
	if opts.Source == nil {
		opts.Source = source.Empty{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = &instrumentation.Metrics{}
	}
	today := model.DateOf(opts.Now().In(opts.Location))
	return &Session{
		src:       opts.Source,
		tasks:     opts.Tasks,
		view:      agenda.NewView(today, opts.MonthTabs),
		loc:       opts.Location,
		weekStart: opts.WeekStart,
		metrics:   opts.Metrics,
		now:       opts.Now,
		remote:    []model.Event{},
		loading:   true,
	}
}

// Start loads personal tasks and performs the initial remote fetch.
func (s *Session) Start(ctx context.Context) error {
	if err := s.tasks.Load(ctx); err != nil {
		return err
	}
	s.Refresh(ctx)
	return nil
}

// Refresh re-queries the remote source for events from today on. A failed
// fetch is logged and leaves an empty remote list; it is never surfaced as a
// distinct state. The source is queried without holding the lock, and a
// result that arrives after a later-started refresh has been stored is
// dropped.
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	from := model.DateOf(s.now().In(s.loc))
	start := time.Now()

	events, err := s.src.Upcoming(ctx, from)
	s.metrics.RecordRefresh(ctx, s.src.Name(), time.Since(start), len(events), err)
	if err != nil {
		appLog.Error("remote fetch failed", err, "source", s.src.Name(), "from", from)
		events = []model.Event{}
	}
	if events == nil {
		events = []model.Event{}
	}

	s.mu.Lock()
	if seq < s.appliedSeq {
		s.mu.Unlock()
		appLog.Debug("discarding stale refresh", "source", s.src.Name(), "seq", seq)
		return
	}
	s.appliedSeq = seq
	s.remote = events
	s.loading = false
	s.refreshedAt = s.now()
	s.mu.Unlock()

	appLog.Info("remote events refreshed", "source", s.src.Name(), "count", len(events))
}

// Loading reports whether the first remote fetch is still outstanding.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Events returns the merged sequence: remote events then personal ones,
// stably sorted by date.
func (s *Session) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergedLocked()
}

func (s *Session) mergedLocked() []model.Event {
	return agenda.Merge(s.remote, s.tasks.List())
}

// Snapshot computes the current view relative to now.
func (s *Session) Snapshot(ctx context.Context, now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.mergedLocked()
	state := s.view.State()
	res := agenda.Compute(events, state, model.DateOf(now.In(s.loc)), s.weekStart)
	for _, b := range res.Buckets {
		s.metrics.RecordBucket(ctx, b.Name, len(b.Events))
	}

	snap := Snapshot{
		Loading:   s.loading,
		State:     state,
		MonthTabs: s.view.Tabs(),
		Agenda:    res,
		Events:    events,
	}
	if !s.refreshedAt.IsZero() {
		t := s.refreshedAt
		snap.RefreshedAt = &t
	}
	return snap
}

// Compute evaluates an arbitrary state against the merged events without
// touching the session's own view state.
func (s *Session) Compute(state agenda.State, now time.Time) agenda.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return agenda.Compute(s.mergedLocked(), state, model.DateOf(now.In(s.loc)), s.weekStart)
}

// Now returns the session clock's current time.
func (s *Session) Now() time.Time { return s.now() }

func (s *Session) SetMode(m agenda.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.SetMode(m)
}

func (s *Session) NextWeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.NextWeek()
}

func (s *Session) PrevWeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.PrevWeek()
}

func (s *Session) SelectMonth(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.SelectMonth(label)
}

// Tasks returns the personal task list.
func (s *Session) Tasks() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.List()
}

// CreateTask adds a personal task dated today. A blank title is a no-op.
func (s *Session) CreateTask(ctx context.Context, title, timeLabel string) (model.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, created, err := s.tasks.Create(ctx, title, timeLabel)
	s.metrics.RecordTaskOp(ctx, "create", opResult(created, err))
	return ev, created, err
}

// DeleteTask removes a personal task. Unknown ids are a no-op.
func (s *Session) DeleteTask(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.tasks.Delete(ctx, id)
	s.metrics.RecordTaskOp(ctx, "delete", opResult(deleted, err))
	return deleted, err
}

func opResult(changed bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case changed:
		return "ok"
	default:
		return "noop"
	}
}
