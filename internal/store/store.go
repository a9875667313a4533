// Package store owns the canonical in-memory calendar. Every mutation
// funnels through a single mutex so command handlers and the reminder
// scheduler never observe partial effects, and each successful mutation
// is written through to the persistence collaborator before it becomes
// visible.
package store

import (
	"sync"

	"gracecal/internal/lifecycle"
	appLog "gracecal/internal/log"
	"gracecal/internal/model"
)

// Persister is the external persistence capability. Load returns the
// last saved snapshot (empty slice when nothing was ever saved); Save
// replaces it.
type Persister interface {
	Load() ([]*model.Event, error)
	Save(events []*model.Event) error
}

// Ref addresses an event or one of its tasks for reminder marking.
// Task == 0 addresses the event itself; indices are 1-based.
type Ref struct {
	Event int
	Task  int
}

// AreaTask pairs a task with its owning event for per-area listings.
type AreaTask struct {
	Event *model.Event
	Task  *model.Task
}

// Store is the single source of truth for events and tasks.
type Store struct {
	mu      sync.Mutex
	persist Persister
	events  []*model.Event
}

// Open loads the snapshot from the persister and, when the loaded
// collection is empty, writes the seed calendar. The emptiness check is
// the only seeding guard, so a store instance seeds at most once. The
// returned bool reports whether seeding happened.
func Open(persist Persister) (*Store, bool, error) {
	events, err := persist.Load()
	if err != nil {
		return nil, false, err
	}
	seeded := false
	if len(events) == 0 {
		events = SeedEvents()
		if err := persist.Save(events); err != nil {
			return nil, false, err
		}
		seeded = true
	}
	normalize(events)
	return &Store{persist: persist, events: events}, seeded, nil
}

// normalize repairs optional fields a hand-edited or older snapshot may
// omit, and reasserts ordinal indices from position.
func normalize(events []*model.Event) {
	for i, ev := range events {
		ev.Index = i + 1
		if ev.Reminded == nil {
			ev.Reminded = model.MarkerSet{}
		}
		for j, t := range ev.Tasks {
			t.Index = j + 1
			if t.Reminded == nil {
				t.Reminded = model.MarkerSet{}
			}
			if t.State == "" {
				t.State = model.StatePending
			}
		}
	}
}

// AddEvent appends the event, assigns the next ordinal index, and
// persists. The event's Index field is overwritten.
func (s *Store) AddEvent(ev *model.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev = ev.Clone()
	ev.Index = len(s.events) + 1
	if ev.Reminded == nil {
		ev.Reminded = model.MarkerSet{}
	}
	s.events = append(s.events, ev)
	if err := s.persist.Save(s.events); err != nil {
		s.events = s.events[:len(s.events)-1]
		return 0, err
	}
	return ev.Index, nil
}

// AddTask appends the task to the referenced event, assigns the next
// task ordinal within that event, and persists.
func (s *Store) AddTask(eventIndex int, t *model.Task) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.eventAt(eventIndex)
	if err != nil {
		return 0, err
	}
	t = t.Clone()
	t.Index = len(ev.Tasks) + 1
	if t.Reminded == nil {
		t.Reminded = model.MarkerSet{}
	}
	ev.Tasks = append(ev.Tasks, t)
	if err := s.persist.Save(s.events); err != nil {
		ev.Tasks = ev.Tasks[:len(ev.Tasks)-1]
		return 0, err
	}
	return t.Index, nil
}

// ListEvents returns a deep-copied view of every event in index order.
func (s *Store) ListEvents() []*model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.events)
}

// EventByIndex returns a deep copy of one event.
func (s *Store) EventByIndex(eventIndex int) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, err := s.eventAt(eventIndex)
	if err != nil {
		return nil, err
	}
	return ev.Clone(), nil
}

// TasksForArea returns every non-terminal task in the given area,
// paired with its event, in calendar order. Returned values are copies.
func (s *Store) TasksForArea(area model.Area) []AreaTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []AreaTask
	for _, ev := range s.events {
		for _, t := range ev.Tasks {
			if t.Area == area && !t.State.Terminal() {
				out = append(out, AreaTask{Event: ev.Clone(), Task: t.Clone()})
			}
		}
	}
	return out
}

// ApplyTransition runs a lifecycle transition against the referenced
// task and persists the result. The transition is applied to a copy
// that replaces the stored task only after both the state machine and
// the save succeed.
func (s *Store) ApplyTransition(eventIndex, taskIndex int, tr lifecycle.Transition, auth lifecycle.Authorizer) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.eventAt(eventIndex)
	if err != nil {
		return model.Task{}, err
	}
	if taskIndex < 1 || taskIndex > len(ev.Tasks) {
		return model.Task{}, &model.NotFoundError{Kind: "task", Index: taskIndex}
	}
	updated := ev.Tasks[taskIndex-1].Clone()
	if err := tr.Apply(updated, auth); err != nil {
		return model.Task{}, err
	}
	previous := ev.Tasks[taskIndex-1]
	ev.Tasks[taskIndex-1] = updated
	if err := s.persist.Save(s.events); err != nil {
		ev.Tasks[taskIndex-1] = previous
		return model.Task{}, err
	}
	appLog.Info("task transition applied",
		"event", eventIndex, "task", taskIndex,
		"transition", tr.Name(), "state", string(updated.State), "progress", updated.Progress,
	)
	return *updated.Clone(), nil
}

// MarkReminded records a reminder dedup marker for the referenced
// entity. Recording an already-present marker is a no-op that skips the
// save entirely.
func (s *Store) MarkReminded(ref Ref, threshold model.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.eventAt(ref.Event)
	if err != nil {
		return err
	}
	set := ev.Reminded
	if ref.Task != 0 {
		if ref.Task < 1 || ref.Task > len(ev.Tasks) {
			return &model.NotFoundError{Kind: "task", Index: ref.Task}
		}
		set = ev.Tasks[ref.Task-1].Reminded
	}
	if !set.Add(threshold) {
		return nil
	}
	if err := s.persist.Save(s.events); err != nil {
		delete(set, threshold.String())
		return err
	}
	return nil
}

// Snapshot returns a deep copy of the full collection for read-side
// consumers (scheduler scans, feed export).
func (s *Store) Snapshot() []*model.Event {
	return s.ListEvents()
}

// Flush writes the current state through the persister. Mutations
// already save eagerly; this exists for the shutdown path.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist.Save(s.events)
}

func (s *Store) eventAt(eventIndex int) (*model.Event, error) {
	if eventIndex < 1 || eventIndex > len(s.events) {
		return nil, &model.NotFoundError{Kind: "event", Index: eventIndex}
	}
	return s.events[eventIndex-1], nil
}

func cloneAll(events []*model.Event) []*model.Event {
	out := make([]*model.Event, len(events))
	for i, ev := range events {
		out[i] = ev.Clone()
	}
	return out
}
