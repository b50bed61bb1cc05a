package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	appLog "agendash/internal/log"
)

// Scheduler re-runs Session.Refresh on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	session *Session
	spec    string
}

// NewScheduler parses spec (standard 5-field cron, or descriptors such as
// "@hourly"). An empty spec yields a Scheduler that never fires.
func NewScheduler(session *Session, spec string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		session: session,
		spec:    strings.TrimSpace(spec),
	}
	if s.spec == "" {
		return s, nil
	}
	if _, err := cron.ParseStandard(s.spec); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", s.spec, err)
	}
	return s, nil
}

// Start registers the refresh job and runs the scheduler until ctx is done.
// Refreshes run with ctx so they are cancelled on shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		appLog.Info("periodic refresh disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.session.Refresh(ctx) }); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.cron.Start()
	appLog.Info("periodic refresh scheduled", "schedule", s.spec)

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		appLog.Debug("refresh scheduler stopped")
	}()
	return nil
}

// Next reports when the next refresh fires; zero when disabled or not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
