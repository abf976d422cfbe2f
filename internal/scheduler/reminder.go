package scheduler

import (
	"context"
	"fmt"
	"time"

	"wheres-my-lunch/internal/orders"
	"wheres-my-lunch/internal/week"
	"wheres-my-lunch/pkg/logger"
)

// reminder fires on the deadline weekday at this local time.
const (
	reminderHour   = 8
	reminderMinute = 0
)

// Notifier pushes a plain text message to one chat.
type Notifier interface {
	SendText(userID int64, text string) error
}

// Reminder is a minute-resolution polling loop that pings the
// administrator on deadline day morning. Best-effort: a failed send is
// logged and retried next week, not queued.
type Reminder struct {
	notifier Notifier
	svc      *orders.Service
	adminID  int64
	deadline week.Deadline
	location *time.Location
	clock    func() time.Time
	log      *logger.Logger
}

func NewReminder(notifier Notifier, svc *orders.Service, adminID int64, deadline week.Deadline, loc *time.Location, log *logger.Logger) *Reminder {
	return &Reminder{
		notifier: notifier,
		svc:      svc,
		adminID:  adminID,
		deadline: deadline,
		location: loc,
		clock:    time.Now,
		log:      log,
	}
}

// Run polls once a minute until the context is cancelled.
func (r *Reminder) Run(ctx context.Context) {
	r.log.Info("startup", "scheduler_started", "Reminder scheduler running")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastSent string
	for {
		select {
		case <-ctx.Done():
			r.log.Info("", "scheduler_stopped", "Reminder scheduler stopped")
			return
		case <-ticker.C:
			now := r.clock().In(r.location)
			today := now.Format(week.KeyLayout)
			if now.Weekday() != r.deadline.Weekday || now.Hour() != reminderHour || now.Minute() != reminderMinute {
				continue
			}
			if today == lastSent {
				continue
			}
			if err := r.send(); err != nil {
				r.log.Error("", "reminder_failed", "Failed to send reminder", err)
				continue
			}
			lastSent = today
			r.log.Info("", "reminder_sent", "Deadline reminder delivered")
		}
	}
}

func (r *Reminder) send() error {
	tw := r.svc.CurrentWeek()
	text := fmt.Sprintf(
		"⏰ *НАПОМИНАНИЕ О ЗАКАЗЕ ОБЕДОВ*\n\n"+
			"🍽️ *Нужно заказать обеды на следующую неделю:*\n"+
			"└ Период: `%s`\n\n"+
			"⏳ *Дедлайн:* сегодня до %02d:%02d\n\n"+
			"👇 Нажми «📝 Новый заказ» чтобы сделать заказ",
		tw.Range(), r.deadline.Hour, r.deadline.Minute)
	return r.notifier.SendText(r.adminID, text)
}
