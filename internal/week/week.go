package week

import (
	"fmt"
	"time"
)

// KeyLayout is the canonical date key format stored in the orders table.
const KeyLayout = "20060102"

// DayNames are the short weekday captions shown to users and in the
// report header, indexed Monday..Sunday.
var DayNames = [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// Deadline is the weekly cutoff after which ordering rolls over to the
// week after next. The boundary is inclusive: exactly at Hour:Minute on
// Weekday the deadline counts as passed.
type Deadline struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

type Label string

const (
	NextWeek  Label = "next_week"
	WeekAfter Label = "week_after"
)

// TargetWeek is the Monday-start 7-day period currently open for
// ordering. It is derived from wall-clock time, never persisted.
type TargetWeek struct {
	Monday time.Time
	Days   [7]time.Time
	Keys   [7]string
	Label  Label
}

// Range renders the week as "DD.MM - DD.MM.YYYY" for user-facing text.
func (tw TargetWeek) Range() string {
	return fmt.Sprintf("%s - %s", tw.Days[0].Format("02.01"), tw.Days[6].Format("02.01.2006"))
}

// isoWeekday maps Go's Sunday-based weekday to Monday=0..Sunday=6, the
// numbering the deadline arithmetic is written in.
func isoWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// PastDeadline reports whether the cutoff has already passed this week.
// Status must use this exact predicate so the UI and the resolver agree
// on the minute the window flips.
func PastDeadline(now time.Time, d Deadline) bool {
	nowDay := isoWeekday(now.Weekday())
	deadlineDay := isoWeekday(d.Weekday)
	if nowDay > deadlineDay {
		return true
	}
	if nowDay < deadlineDay {
		return false
	}
	return now.Hour()*60+now.Minute() >= d.Hour*60+d.Minute
}

// Resolve computes the target week for an order placed at now. Before
// the deadline the target is the upcoming Monday-start week; at or after
// the deadline it is the week after that. On a Monday the "upcoming"
// Monday is today.
func Resolve(now time.Time, d Deadline) TargetWeek {
	daysToMonday := (7 - isoWeekday(now.Weekday())) % 7
	monday := truncateToDate(now).AddDate(0, 0, daysToMonday)

	label := NextWeek
	if PastDeadline(now, d) {
		monday = monday.AddDate(0, 0, 7)
		label = WeekAfter
	}

	tw := TargetWeek{Monday: monday, Label: label}
	for i := 0; i < 7; i++ {
		tw.Days[i] = monday.AddDate(0, 0, i)
		tw.Keys[i] = tw.Days[i].Format(KeyLayout)
	}
	return tw
}

// Status classifies the time remaining until the cutoff, for display.
type Status struct {
	// Passed means the cutoff is behind us and orders now target the
	// week after next.
	Passed bool
	// OnDeadlineDay is set when now falls on the deadline weekday but
	// before the cutoff; HoursLeft/MinutesLeft are valid then.
	OnDeadlineDay bool
	DaysLeft      int
	HoursLeft     int
	MinutesLeft   int
}

// StatusAt reports how much time is left before the deadline. Its
// boundary arithmetic is PastDeadline's, so it can never report time
// remaining while Resolve already targets the week after next.
func StatusAt(now time.Time, d Deadline) Status {
	if PastDeadline(now, d) {
		return Status{Passed: true}
	}

	nowDay := isoWeekday(now.Weekday())
	deadlineDay := isoWeekday(d.Weekday)
	if nowDay < deadlineDay {
		return Status{DaysLeft: deadlineDay - nowDay}
	}

	remaining := d.Hour*60 + d.Minute - now.Hour()*60 - now.Minute()
	return Status{
		OnDeadlineDay: true,
		HoursLeft:     remaining / 60,
		MinutesLeft:   remaining % 60,
	}
}

// DayLabel renders a stored date key as "Пн 02.01" for the orders
// view. Unparseable keys come back unchanged.
func DayLabel(key string) string {
	t, err := time.Parse(KeyLayout, key)
	if err != nil {
		return key
	}
	return DayNames[isoWeekday(t.Weekday())] + " " + t.Format("02.01")
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
