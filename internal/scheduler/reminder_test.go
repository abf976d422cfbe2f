package scheduler

import (
	"strings"
	"testing"
	"time"

	"wheres-my-lunch/internal/orders"
	"wheres-my-lunch/internal/week"
	"wheres-my-lunch/pkg/logger"
)

type fakeNotifier struct {
	sentTo []int64
	texts  []string
	err    error
}

func (f *fakeNotifier) SendText(userID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sentTo = append(f.sentTo, userID)
	f.texts = append(f.texts, text)
	return nil
}

func TestReminderTextNamesPeriodAndCutoff(t *testing.T) {
	deadline := week.Deadline{Weekday: time.Friday, Hour: 16, Minute: 0}
	svc := orders.NewService(nil, nil, deadline, time.UTC, logger.NewLogger("test")).
		WithClock(func() time.Time {
			// Friday morning, before the cutoff.
			return time.Date(2026, time.January, 9, 8, 0, 0, 0, time.UTC)
		})

	notifier := &fakeNotifier{}
	r := NewReminder(notifier, svc, 100, deadline, time.UTC, logger.NewLogger("test"))

	if err := r.send(); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(notifier.sentTo) != 1 || notifier.sentTo[0] != 100 {
		t.Fatalf("sent to %v, want admin 100", notifier.sentTo)
	}
	text := notifier.texts[0]
	if !strings.Contains(text, "12.01 - 18.01.2026") {
		t.Fatalf("reminder misses the target period: %q", text)
	}
	if !strings.Contains(text, "16:00") {
		t.Fatalf("reminder misses the cutoff time: %q", text)
	}
}
