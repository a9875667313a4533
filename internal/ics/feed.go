// Package ics builds the published iCalendar feed: one all-day VEVENT
// per calendar event and one per open task deadline, so the team can
// subscribe from any calendar client.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"gracecal/internal/model"
)

// feedNamespace seeds the deterministic per-entity UIDs. Stable UIDs
// keep calendar clients from duplicating entries on every refresh.
var feedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gracecal/feed"))

// Feed serializes the event collection as an iCalendar document.
// Terminal tasks are omitted; their deadlines are no longer actionable.
func Feed(events []*model.Event, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.UTC
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//gracecal//calendar feed//PT")

	for _, ev := range events {
		ve := cal.AddEvent(entityUID(fmt.Sprintf("event/%d", ev.Index)))
		ve.SetDtStampTime(now)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		ve.SetAllDayStartAt(ev.StartDate.Time(loc))
		// DTEND is exclusive in iCalendar, hence the extra day.
		ve.SetAllDayEndAt(ev.EndDate.AddDays(1).Time(loc))

		for _, t := range ev.Tasks {
			if t.State.Terminal() {
				continue
			}
			vt := cal.AddEvent(entityUID(fmt.Sprintf("event/%d/task/%d", ev.Index, t.Index)))
			vt.SetDtStampTime(now)
			vt.SetSummary(fmt.Sprintf("[%s] %s", t.Area, t.Title))
			vt.SetDescription(taskDescription(ev, t))
			vt.SetAllDayStartAt(t.Deadline.Time(loc))
			vt.SetAllDayEndAt(t.Deadline.AddDays(1).Time(loc))
		}
	}
	return cal.Serialize()
}

func entityUID(path string) string {
	return uuid.NewSHA1(feedNamespace, []byte(path)).String() + "@gracecal"
}

func taskDescription(ev *model.Event, t *model.Task) string {
	parts := []string{
		"Evento: " + ev.Title,
		"Responsáveis: " + strings.Join(t.Responsibles, ", "),
		fmt.Sprintf("Progresso: %d%%", t.Progress),
	}
	if t.Details != "" {
		parts = append(parts, t.Details)
	}
	return strings.Join(parts, "\n")
}
