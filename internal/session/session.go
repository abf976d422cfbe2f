package session

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"wheres-my-lunch/internal/week"
)

// Validation failures are recovered locally by re-prompting; they never
// escalate past the current prompt.
var (
	ErrInstructorTooShort = errors.New("instructor name is too short")
	ErrInvalidQuantity    = errors.New("quantity must be 0, 1 or 2")
	ErrWrongStage         = errors.New("input does not match the current stage")
	ErrExpired            = errors.New("session expired or already committed")
)

const (
	minInstructorLen = 5
	daysInWeek       = 7
	maxQuantity      = 2
)

type Stage int

const (
	StageAwaitingInstructor Stage = iota
	StageAwaitingQuantity
	StageAwaitingConfirmation
)

// OrderSession is the per-user conversational state for one order walk.
// The target week's date keys and display labels are snapshotted at
// creation so a walk that crosses midnight keeps the days it started
// with. Only the owning user's messages ever mutate a session.
type OrderSession struct {
	UserID     int64
	Instructor string
	Week       week.TargetWeek
	Formats    *week.Formats
	CurrentDay int            // 0..7, 7 means all days answered
	Meals      map[string]int // date key -> quantity, only answered days
	Total      int            // snapshotted when day 6 is answered
	DaysCount  int            // ditto, number of days with quantity > 0
	Stage      Stage
}

// New starts a fresh session for the week open at the time of the call.
func New(userID int64, tw week.TargetWeek) *OrderSession {
	return &OrderSession{
		UserID:  userID,
		Week:    tw,
		Formats: week.BuildFormats(tw),
		Meals:   make(map[string]int, daysInWeek),
		Stage:   StageAwaitingInstructor,
	}
}

// SubmitInstructor records the instructor name and advances to the first
// day prompt. A rejected name leaves the session untouched.
func (s *OrderSession) SubmitInstructor(text string) error {
	if s.Stage != StageAwaitingInstructor {
		return ErrWrongStage
	}
	name := strings.TrimSpace(text)
	if utf8.RuneCountInString(name) < minInstructorLen {
		return ErrInstructorTooShort
	}
	s.Instructor = name
	s.Stage = StageAwaitingQuantity
	s.CurrentDay = 0
	return nil
}

// QuantityResult tells the chat layer what just happened: which day was
// recorded, and either the next day to prompt or that the walk is
// complete and the confirmation summary is due.
type QuantityResult struct {
	Day       week.DayFormats
	Quantity  int
	Completed bool
	NextDay   week.DayFormats
	NextIndex int
}

// SubmitQuantity records one day's answer and advances the cursor.
// Invalid input is fully inert: no cursor advance, no map write.
func (s *OrderSession) SubmitQuantity(text string) (QuantityResult, error) {
	if s.Stage != StageAwaitingQuantity {
		return QuantityResult{}, ErrWrongStage
	}

	qty, err := parseQuantity(text)
	if err != nil {
		return QuantityResult{}, err
	}

	day := s.Formats.Days[s.CurrentDay]
	s.Meals[s.Week.Keys[s.CurrentDay]] = qty
	s.CurrentDay++

	res := QuantityResult{Day: day, Quantity: qty}
	if s.CurrentDay >= daysInWeek {
		s.snapshotTotals()
		s.Stage = StageAwaitingConfirmation
		res.Completed = true
		return res, nil
	}

	res.NextDay = s.Formats.Days[s.CurrentDay]
	res.NextIndex = s.CurrentDay
	return res, nil
}

// ResetAnswers implements "fill in again": quantities and the cursor are
// discarded, the instructor and the snapshotted week are kept.
func (s *OrderSession) ResetAnswers() error {
	if s.Stage != StageAwaitingConfirmation {
		return ErrWrongStage
	}
	s.Meals = make(map[string]int, daysInWeek)
	s.CurrentDay = 0
	s.Total = 0
	s.DaysCount = 0
	s.Stage = StageAwaitingQuantity
	return nil
}

// PositiveLines returns the write set for a commit: one line per
// answered day with quantity > 0, in week order.
func (s *OrderSession) PositiveLines() []Line {
	lines := make([]Line, 0, daysInWeek)
	for i, key := range s.Week.Keys {
		if qty, ok := s.Meals[key]; ok && qty > 0 {
			lines = append(lines, Line{DayIndex: i, DateKey: key, Quantity: qty})
		}
	}
	return lines
}

// Line is one positive-quantity answer ready to be persisted.
type Line struct {
	DayIndex int
	DateKey  string
	Quantity int
}

func (s *OrderSession) snapshotTotals() {
	s.Total = 0
	s.DaysCount = 0
	for _, qty := range s.Meals {
		s.Total += qty
		if qty > 0 {
			s.DaysCount++
		}
	}
}

func parseQuantity(text string) (int, error) {
	text = strings.TrimSpace(text)
	qty, err := strconv.Atoi(text)
	if err != nil || qty < 0 || qty > maxQuantity || len(text) != 1 {
		return 0, ErrInvalidQuantity
	}
	return qty, nil
}
