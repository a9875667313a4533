// Package scheduler runs the periodic reminder scan. On every tick it
// reads the calendar, finds events and non-terminal tasks whose target
// date is exactly the configured number of days away, delivers one
// reminder per entity, and records a dedup marker so the same
// (entity, date) pair never fires twice. Ticks are independent: a
// boundary that falls entirely inside process downtime is skipped, not
// backfilled.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	appLog "gracecal/internal/log"
	"gracecal/internal/model"
	"gracecal/internal/notify"
	"gracecal/internal/store"
)

// displayDate is the Brazilian day-first format used in messages.
const displayDate = "02/01/2006"

// Scheduler evaluates reminder thresholds against the calendar store.
type Scheduler struct {
	store    *store.Store
	notifier notify.Notifier
	clock    Clock
	loc      *time.Location
	days     int
	dryRun   bool
}

// New builds a Scheduler. days is the advance-notice window (14 in the
// reference behavior); loc determines what "today" means.
func New(st *store.Store, n notify.Notifier, clock Clock, loc *time.Location, days int) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if days <= 0 {
		days = 14
	}
	return &Scheduler{store: st, notifier: n, clock: clock, loc: loc, days: days}
}

// SetDryRun makes Tick log due reminders instead of delivering and
// marking them, so a dry run never suppresses a later real delivery.
func (s *Scheduler) SetDryRun(v bool) { s.dryRun = v }

// Run schedules Tick on the given cron expression and blocks until ctx
// is canceled. A tick already in flight is allowed to finish before
// Run returns.
func (s *Scheduler) Run(ctx context.Context, cronSpec string) error {
	c := cron.New()
	if _, err := c.AddFunc(cronSpec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("scheduler: bad cron spec %q: %w", cronSpec, err)
	}
	c.Start()
	appLog.Info("reminder scheduler started", "cron", cronSpec, "days", s.days, "tz", s.loc.String())

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

// Tick performs one reminder scan. Safe to call concurrently with
// store mutations: the scan works on a snapshot and the dedup markers
// are written back through the store's own serialization point, where
// re-adding a present marker is a no-op.
func (s *Scheduler) Tick(ctx context.Context) {
	today := model.DateOf(s.clock.Now().In(s.loc))
	sent := 0

	for _, ev := range s.store.Snapshot() {
		if today.DaysUntil(ev.StartDate) == s.days && !ev.Reminded.Has(ev.StartDate) {
			if s.remind(ctx, store.Ref{Event: ev.Index}, ev.StartDate, s.eventMessage(ev)) {
				sent++
			}
		}
		for _, t := range ev.Tasks {
			if t.State.Terminal() {
				continue
			}
			if today.DaysUntil(t.Deadline) == s.days && !t.Reminded.Has(t.Deadline) {
				if s.remind(ctx, store.Ref{Event: ev.Index, Task: t.Index}, t.Deadline, s.taskMessage(ev, t)) {
					sent++
				}
			}
		}
	}

	if sent > 0 {
		appLog.Info("reminder tick completed", "today", today.String(), "sent", sent)
	} else {
		appLog.Debug("reminder tick completed", "today", today.String(), "sent", 0)
	}
}

// remind delivers one reminder and, only on success, records the dedup
// marker. A failed delivery is logged and left unmarked so the next
// tick on the same day retries it.
func (s *Scheduler) remind(ctx context.Context, ref store.Ref, threshold model.Date, text string) bool {
	if s.dryRun {
		appLog.Info("dry run: reminder due", "event", ref.Event, "task", ref.Task, "date", threshold.String())
		return false
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		appLog.Error("reminder delivery failed", err, "event", ref.Event, "task", ref.Task, "date", threshold.String())
		return false
	}
	if err := s.store.MarkReminded(ref, threshold); err != nil {
		appLog.Error("reminder marker write failed", err, "event", ref.Event, "task", ref.Task, "date", threshold.String())
		return false
	}
	return true
}

func (s *Scheduler) eventMessage(ev *model.Event) string {
	return fmt.Sprintf("⏰ **Lembrete (%d dias):** `%s` em %s.",
		s.days, ev.Title, ev.StartDate.Time(s.loc).Format(displayDate))
}

func (s *Scheduler) taskMessage(ev *model.Event, t *model.Task) string {
	mentions := make([]string, len(t.Responsibles))
	for i, r := range t.Responsibles {
		mentions[i] = "@" + r
	}
	return fmt.Sprintf("📌 **Tarefa vencendo em %d dias**\nEvento: `%s`\nÁrea: `%s`\nTarefa: %s\nResponsáveis: %s\nPrazo: %s",
		s.days, ev.Title, t.Area, t.Title,
		strings.Join(mentions, " "),
		t.Deadline.Time(s.loc).Format(displayDate))
}
