package model

import (
	"fmt"
	"strings"
)

// Area is the organizational category a task belongs to. The set is
// closed; ParseArea rejects anything else.
type Area string

const (
	AreaMarketing  Area = "marketing"
	AreaDiretoria  Area = "diretoria"
	AreaRH         Area = "rh"
	AreaFinanceiro Area = "financeiro"
	AreaEnsino     Area = "ensino"
)

// Areas lists every valid area in display order.
var Areas = []Area{AreaMarketing, AreaDiretoria, AreaRH, AreaFinanceiro, AreaEnsino}

// ParseArea normalizes and validates an area name.
func ParseArea(s string) (Area, error) {
	a := Area(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Areas {
		if a == known {
			return a, nil
		}
	}
	return "", &ValidationError{Reason: fmt.Sprintf("unknown area %q (valid: marketing, diretoria, rh, financeiro, ensino)", s)}
}

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	StatePending    TaskState = "pending"
	StateInProgress TaskState = "in_progress"
	StateSubmitted  TaskState = "submitted"
	StateApproved   TaskState = "approved"
	StateRejected   TaskState = "rejected"
)

// Terminal reports whether no further transitions are allowed from s.
// Rejected is terminal: a rejected task is not reopened, retried work
// gets a fresh task.
func (s TaskState) Terminal() bool {
	return s == StateApproved || s == StateRejected
}

// Event is a scheduled occurrence on the annual calendar. Events are
// appended, never deleted; the Index is assigned once by the store and
// never reused.
type Event struct {
	Index       int       `json:"index"`
	Title       string    `json:"title"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
	Description string    `json:"description,omitempty"`
	Tasks       []*Task   `json:"tasks"`
	Reminded    MarkerSet `json:"reminded,omitempty"`
}

// Task is a unit of work belonging to exactly one event and one area.
type Task struct {
	Index        int       `json:"index"`
	Title        string    `json:"title"`
	Area         Area      `json:"area"`
	Deadline     Date      `json:"deadline"`
	Details      string    `json:"details,omitempty"`
	Tools        []string  `json:"tools,omitempty"`
	Responsibles []string  `json:"responsibles"`
	Progress     int       `json:"progress"`
	State        TaskState `json:"state"`
	DeliveryLink string    `json:"delivery_link,omitempty"`
	Reviewer     string    `json:"reviewer,omitempty"`
	Reminded     MarkerSet `json:"reminded,omitempty"`
}

// NewEvent validates and constructs an event. The index is zero until
// the store assigns one. End date may equal the start date for
// single-day events; an empty end date defaults to the start date.
func NewEvent(title, start, end, description string) (*Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Reason: "event title must not be empty"}
	}
	startDate, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	endDate := startDate
	if strings.TrimSpace(end) != "" {
		endDate, err = ParseDate(end)
		if err != nil {
			return nil, err
		}
	}
	if endDate.Before(startDate) {
		return nil, &ValidationError{Reason: "event end date precedes start date"}
	}
	return &Event{
		Title:       title,
		StartDate:   startDate,
		EndDate:     endDate,
		Description: strings.TrimSpace(description),
		Reminded:    MarkerSet{},
	}, nil
}

// NewTask validates and constructs a task in the Pending state with
// zero progress. At least one responsible identity is required; tools
// may be empty.
func NewTask(area, title, deadline string, responsibles, tools []string, details string) (*Task, error) {
	parsedArea, err := ParseArea(area)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Reason: "task title must not be empty"}
	}
	due, err := ParseDate(deadline)
	if err != nil {
		return nil, err
	}
	cleaned := cleanIdentities(responsibles)
	if len(cleaned) == 0 {
		return nil, &ValidationError{Reason: "task requires at least one responsible identity"}
	}
	return &Task{
		Title:        title,
		Area:         parsedArea,
		Deadline:     due,
		Details:      strings.TrimSpace(details),
		Tools:        cleanStrings(tools),
		Responsibles: cleaned,
		Progress:     0,
		State:        StatePending,
		Reminded:     MarkerSet{},
	}, nil
}

// IsResponsible reports whether identity is listed on the task.
func (t *Task) IsResponsible(identity string) bool {
	for _, r := range t.Responsibles {
		if r == identity {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	out := *t
	out.Tools = append([]string(nil), t.Tools...)
	out.Responsibles = append([]string(nil), t.Responsibles...)
	out.Reminded = t.Reminded.Clone()
	return &out
}

// Clone returns a deep copy of the event and its tasks.
func (e *Event) Clone() *Event {
	out := *e
	out.Reminded = e.Reminded.Clone()
	out.Tasks = make([]*Task, len(e.Tasks))
	for i, t := range e.Tasks {
		out.Tasks[i] = t.Clone()
	}
	return &out
}

// cleanIdentities trims, drops empties, and de-duplicates while
// preserving order.
func cleanIdentities(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
