package ics

import (
	"strings"
	"testing"
	"time"

	"gracecal/internal/model"
)

func feedEvents(t *testing.T) []*model.Event {
	t.Helper()
	ev, err := model.NewEvent("Pint of Science", "2026-05-18", "2026-05-20", "extensão")
	if err != nil {
		t.Fatal(err)
	}
	ev.Index = 1
	open, err := model.NewTask("rh", "Escalar voluntárias", "2026-05-08", []string{"alice"}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	open.Index = 1
	done, err := model.NewTask("financeiro", "Mapear empresas", "2026-05-04", []string{"bob"}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	done.Index = 2
	done.State = model.StateApproved
	ev.Tasks = []*model.Task{open, done}
	return []*model.Event{ev}
}

func TestFeedContainsEventAndOpenTask(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	feed := Feed(feedEvents(t), time.UTC, now)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"METHOD:PUBLISH",
		"SUMMARY:Pint of Science",
		"SUMMARY:[rh] Escalar voluntárias",
		"END:VCALENDAR",
	} {
		if !strings.Contains(feed, want) {
			t.Fatalf("feed missing %q:\n%s", want, feed)
		}
	}
	if strings.Contains(feed, "Mapear empresas") {
		t.Fatal("terminal task leaked into the feed")
	}
}

func TestFeedUIDsAreStable(t *testing.T) {
	events := feedEvents(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	first := Feed(events, time.UTC, now)
	second := Feed(events, time.UTC, now.Add(time.Hour))

	uid := func(feed string) string {
		for _, line := range strings.Split(feed, "\r\n") {
			if strings.HasPrefix(line, "UID:") {
				return line
			}
		}
		return ""
	}
	if uid(first) == "" || uid(first) != uid(second) {
		t.Fatalf("UIDs not stable across serializations:\n%q\n%q", uid(first), uid(second))
	}
}

func TestFeedEventSpansFullRange(t *testing.T) {
	feed := Feed(feedEvents(t), time.UTC, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	if !strings.Contains(feed, "20260518") {
		t.Fatalf("feed missing start date:\n%s", feed)
	}
	// DTEND is exclusive: a May 18-20 event ends on the 21st.
	if !strings.Contains(feed, "20260521") {
		t.Fatalf("feed missing exclusive end date:\n%s", feed)
	}
}
