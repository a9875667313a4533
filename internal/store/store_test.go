package store

import (
	"errors"
	"testing"

	"gracecal/internal/lifecycle"
	"gracecal/internal/model"
)

// memPersister keeps the snapshot in memory and counts saves. failNext
// makes the next Save fail once.
type memPersister struct {
	events   []*model.Event
	saves    int
	failNext bool
}

func (p *memPersister) Load() ([]*model.Event, error) { return p.events, nil }

func (p *memPersister) Save(events []*model.Event) error {
	if p.failNext {
		p.failNext = false
		return errors.New("disk full")
	}
	p.saves++
	cloned := make([]*model.Event, len(events))
	for i, ev := range events {
		cloned[i] = ev.Clone()
	}
	p.events = cloned
	return nil
}

type staticAuth map[string]bool

func (a staticAuth) IsManager(identity string) bool { return a[identity] }

var managers = staticAuth{"lead": true}

func openEmpty(t *testing.T) (*Store, *memPersister) {
	t.Helper()
	p := &memPersister{}
	st, seeded, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	if !seeded {
		t.Fatal("empty persister should trigger seeding")
	}
	return st, p
}

func mustEvent(t *testing.T) *model.Event {
	t.Helper()
	ev, err := model.NewEvent("Hackathon", "2026-09-01", "2026-09-02", "")
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func mustTask(t *testing.T, responsibles ...string) *model.Task {
	t.Helper()
	if len(responsibles) == 0 {
		responsibles = []string{"alice"}
	}
	task, err := model.NewTask("marketing", "Divulgar", "2026-08-20", responsibles, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	return task
}

func TestOpenSeedsOnlyWhenEmpty(t *testing.T) {
	st, p := openEmpty(t)
	if got := len(st.ListEvents()); got != len(SeedEvents()) {
		t.Fatalf("seeded %d events, want %d", got, len(SeedEvents()))
	}
	if p.saves != 1 {
		t.Fatalf("seeding should save once, saved %d times", p.saves)
	}

	// Reopening over the seeded snapshot must not seed again.
	st2, seeded, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	if seeded {
		t.Fatal("non-empty persister must not seed")
	}
	if len(st2.ListEvents()) != len(SeedEvents()) {
		t.Fatal("reopen changed the event count")
	}
}

func TestAddEventAssignsStableIndices(t *testing.T) {
	st, _ := openEmpty(t)
	base := len(st.ListEvents())

	idx, err := st.AddEvent(mustEvent(t))
	if err != nil {
		t.Fatal(err)
	}
	if idx != base+1 {
		t.Fatalf("index = %d, want %d", idx, base+1)
	}
	idx2, err := st.AddEvent(mustEvent(t))
	if err != nil {
		t.Fatal(err)
	}
	if idx2 != base+2 {
		t.Fatalf("second index = %d, want %d", idx2, base+2)
	}
	events := st.ListEvents()
	if events[idx-1].Index != idx || events[idx2-1].Index != idx2 {
		t.Fatal("stored indices disagree with returned ones")
	}
}

func TestAddEventRollsBackOnSaveFailure(t *testing.T) {
	st, p := openEmpty(t)
	before := len(st.ListEvents())
	p.failNext = true
	if _, err := st.AddEvent(mustEvent(t)); err == nil {
		t.Fatal("expected save error")
	}
	if len(st.ListEvents()) != before {
		t.Fatal("failed AddEvent left the event in memory")
	}
}

func TestAddTask(t *testing.T) {
	st, _ := openEmpty(t)
	evIdx, err := st.AddEvent(mustEvent(t))
	if err != nil {
		t.Fatal(err)
	}
	taskIdx, err := st.AddTask(evIdx, mustTask(t))
	if err != nil {
		t.Fatal(err)
	}
	if taskIdx != 1 {
		t.Fatalf("task index = %d, want 1", taskIdx)
	}

	var notFound *model.NotFoundError
	if _, err := st.AddTask(999, mustTask(t)); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown event, got %v", err)
	}
}

func TestTasksForAreaSkipsTerminal(t *testing.T) {
	st, _ := openEmpty(t)
	evIdx, _ := st.AddEvent(mustEvent(t))
	if _, err := st.AddTask(evIdx, mustTask(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddTask(evIdx, mustTask(t)); err != nil {
		t.Fatal(err)
	}

	before := len(st.TasksForArea(model.AreaMarketing))

	// Drive the first task to Approved; it must drop out of the listing.
	steps := []lifecycle.Transition{
		lifecycle.UpdateProgress{Actor: "alice", Percent: 80},
		lifecycle.Submit{Actor: "alice", Link: "http://x", Reviewer: "lead"},
		lifecycle.Review{Actor: "lead", Approve: true},
	}
	for _, tr := range steps {
		if _, err := st.ApplyTransition(evIdx, 1, tr, managers); err != nil {
			t.Fatalf("%s: %v", tr.Name(), err)
		}
	}

	after := len(st.TasksForArea(model.AreaMarketing))
	if after != before-1 {
		t.Fatalf("area listing went %d -> %d, want one fewer", before, after)
	}
}

func TestApplyTransitionScenario(t *testing.T) {
	st, _ := openEmpty(t)
	evIdx, _ := st.AddEvent(mustEvent(t))
	if _, err := st.AddTask(evIdx, mustTask(t, "alice")); err != nil {
		t.Fatal(err)
	}

	var authErr *model.AuthorizationError
	_, err := st.ApplyTransition(evIdx, 1, lifecycle.UpdateProgress{Actor: "bob", Percent: 50}, managers)
	if !errors.As(err, &authErr) {
		t.Fatalf("bob updating alice's task: expected AuthorizationError, got %v", err)
	}

	task, err := st.ApplyTransition(evIdx, 1, lifecycle.UpdateProgress{Actor: "alice", Percent: 50}, managers)
	if err != nil {
		t.Fatal(err)
	}
	if task.State != model.StateInProgress || task.Progress != 50 {
		t.Fatalf("state=%q progress=%d", task.State, task.Progress)
	}

	var notFound *model.NotFoundError
	if _, err := st.ApplyTransition(evIdx, 9, lifecycle.UpdateProgress{Actor: "alice", Percent: 50}, managers); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown task, got %v", err)
	}
}

func TestApplyTransitionNoPartialEffects(t *testing.T) {
	st, p := openEmpty(t)
	evIdx, _ := st.AddEvent(mustEvent(t))
	if _, err := st.AddTask(evIdx, mustTask(t, "alice")); err != nil {
		t.Fatal(err)
	}

	// Save failure must leave the in-memory task untouched.
	p.failNext = true
	if _, err := st.ApplyTransition(evIdx, 1, lifecycle.UpdateProgress{Actor: "alice", Percent: 75}, managers); err == nil {
		t.Fatal("expected save error")
	}
	ev, err := st.EventByIndex(evIdx)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Tasks[0].State != model.StatePending || ev.Tasks[0].Progress != 0 {
		t.Fatalf("failed transition leaked: %+v", ev.Tasks[0])
	}
}

func TestMarkRemindedIdempotent(t *testing.T) {
	st, p := openEmpty(t)
	evIdx, _ := st.AddEvent(mustEvent(t))
	threshold, _ := model.ParseDate("2026-09-01")

	saves := p.saves
	if err := st.MarkReminded(Ref{Event: evIdx}, threshold); err != nil {
		t.Fatal(err)
	}
	if p.saves != saves+1 {
		t.Fatalf("first marker should persist, saves=%d", p.saves)
	}
	if err := st.MarkReminded(Ref{Event: evIdx}, threshold); err != nil {
		t.Fatal(err)
	}
	if p.saves != saves+1 {
		t.Fatal("repeated marker must not save again")
	}

	ev, _ := st.EventByIndex(evIdx)
	if !ev.Reminded.Has(threshold) || len(ev.Reminded) != 1 {
		t.Fatalf("marker set = %v", ev.Reminded)
	}
}

func TestMarkRemindedTaskLevel(t *testing.T) {
	st, _ := openEmpty(t)
	evIdx, _ := st.AddEvent(mustEvent(t))
	if _, err := st.AddTask(evIdx, mustTask(t)); err != nil {
		t.Fatal(err)
	}
	deadline, _ := model.ParseDate("2026-08-20")
	if err := st.MarkReminded(Ref{Event: evIdx, Task: 1}, deadline); err != nil {
		t.Fatal(err)
	}
	ev, _ := st.EventByIndex(evIdx)
	if !ev.Tasks[0].Reminded.Has(deadline) {
		t.Fatal("task marker not recorded")
	}
	if len(ev.Reminded) != 0 {
		t.Fatal("event marker set should be untouched")
	}

	var notFound *model.NotFoundError
	if err := st.MarkReminded(Ref{Event: evIdx, Task: 9}, deadline); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListEventsReturnsCopies(t *testing.T) {
	st, _ := openEmpty(t)
	events := st.ListEvents()
	events[0].Title = "tampered"
	if st.ListEvents()[0].Title == "tampered" {
		t.Fatal("ListEvents leaked internal state")
	}
}
