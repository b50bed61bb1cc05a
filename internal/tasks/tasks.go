package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "agendash/internal/log"
	"agendash/internal/model"
	"agendash/internal/store"
)

// DefaultKey is the store slot holding the serialized personal task list.
const DefaultKey = "personal_events"

// Manager owns the personal task list. Every mutation rewrites the whole
// list into the store slot, so the slot always holds the complete set.
type Manager struct {
	mu    sync.Mutex
	store store.Store
	key   string
	loc   *time.Location
	now   func() time.Time
	newID func() string
	tasks []model.Event
}

type Option func(*Manager)

// WithKey overrides the store slot name.
func WithKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.key = key
		}
	}
}

// WithLocation sets the zone used to derive "today" for new tasks.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

func NewManager(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store: s,
		key:   DefaultKey,
		loc:   time.Local,
		now:   time.Now,
		newID: newUUIDv7,
		tasks: []model.Event{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// newUUIDv7 returns a time-ordered identifier.
func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Load reads the persisted list. A missing slot is an empty list. Content
// that does not decode is logged and treated as an empty list as well; the
// slot is left untouched until the next mutation overwrites it.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks = []model.Event{}

	data, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		return fmt.Errorf("read personal tasks: %w", err)
	}
	if !ok || len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var stored []model.Event
	if err := json.Unmarshal(data, &stored); err != nil {
		appLog.Error("personal tasks slot is corrupt; starting empty", err, "key", m.key)
		return nil
	}

	for _, ev := range stored {
		ev.IsPersonal = true
		ev.Category = model.CategoryPersonal
		if err := ev.Validate(); err != nil {
			appLog.Error("skipping invalid personal task", err, "key", m.key, "id", ev.ID)
			continue
		}
		m.tasks = append(m.tasks, ev)
	}
	appLog.Debug("personal tasks loaded", "key", m.key, "count", len(m.tasks))
	return nil
}

// List returns a copy of the current personal tasks in creation order.
func (m *Manager) List() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tasks)
}

// Create appends a personal task dated today. An empty title is a silent
// no-op (created=false, err=nil). A blank timeLabel becomes model.AllDayLabel.
func (m *Manager) Create(ctx context.Context, title, timeLabel string) (model.Event, bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Event{}, false, nil
	}
	timeLabel = strings.TrimSpace(timeLabel)
	if timeLabel == "" {
		timeLabel = model.AllDayLabel
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ev := model.Event{
		ID:         m.freshID(),
		Title:      title,
		EventDate:  model.DateOf(m.now().In(m.loc)),
		TimeRange:  timeLabel,
		Category:   model.CategoryPersonal,
		IsPersonal: true,
	}

	next := append(slices.Clone(m.tasks), ev)
	if err := m.persist(ctx, next); err != nil {
		return model.Event{}, false, err
	}
	m.tasks = next

	appLog.Info("personal task created", "id", ev.ID, "date", ev.EventDate)
	return ev, true, nil
}

// Delete removes the task with the given id. Unknown ids are a no-op and
// leave the store untouched.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := slices.IndexFunc(m.tasks, func(ev model.Event) bool { return ev.ID == id })
	if idx < 0 {
		return false, nil
	}

	next := slices.Delete(slices.Clone(m.tasks), idx, idx+1)
	if err := m.persist(ctx, next); err != nil {
		return false, err
	}
	m.tasks = next

	appLog.Info("personal task deleted", "id", id)
	return true, nil
}

// freshID draws ids until one does not collide with the current list.
func (m *Manager) freshID() string {
	for {
		id := m.newID()
		if id == "" {
			continue
		}
		if !slices.ContainsFunc(m.tasks, func(ev model.Event) bool { return ev.ID == id }) {
			return id
		}
	}
}

func (m *Manager) persist(ctx context.Context, list []model.Event) error {
	if list == nil {
		list = []model.Event{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode personal tasks: %w", err)
	}
	if err := m.store.Put(ctx, m.key, data); err != nil {
		return fmt.Errorf("write personal tasks: %w", err)
	}
	return nil
}
