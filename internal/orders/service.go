package orders

import (
	"context"
	"time"

	"wheres-my-lunch/internal/session"
	"wheres-my-lunch/internal/week"
	"wheres-my-lunch/pkg/logger"
	"wheres-my-lunch/pkg/models"
)

// Store is the persistence boundary the service writes through. The
// concrete implementation lives in internal/storage.
type Store interface {
	SaveOrderBatch(ctx context.Context, userID int64, instructor string, weekKeys []string, lines []models.OrderWrite) error
	GetUserOrders(ctx context.Context, userID int64) ([]models.UserOrder, error)
	GetAllOrders(ctx context.Context) ([]models.ExportRow, error)
	RegisterEmployeeIfAbsent(ctx context.Context, userID int64, username, fullName string) error
	DeleteAllOrdersForUser(ctx context.Context, userID int64) error
}

// Publisher announces committed orders to the message broker. It is
// optional: without a broker the commit path just skips the event.
type Publisher interface {
	PublishCommit(ctx context.Context, msg models.OrderCommittedMessage) error
}

// Service drives the ordering workflow: it owns the live sessions,
// resolves the target week against the configured deadline, and runs
// the commit protocol.
type Service struct {
	store     Store
	publisher Publisher
	sessions  *session.Store
	deadline  week.Deadline
	location  *time.Location
	clock     func() time.Time
	log       *logger.Logger
}

func NewService(store Store, publisher Publisher, deadline week.Deadline, loc *time.Location, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		sessions:  session.NewStore(),
		deadline:  deadline,
		location:  loc,
		clock:     time.Now,
		log:       log,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) now() time.Time {
	return s.clock().In(s.location)
}

// CurrentWeek resolves the week currently open for ordering.
func (s *Service) CurrentWeek() week.TargetWeek {
	return week.Resolve(s.now(), s.deadline)
}

// DeadlineStatus classifies the time left before the cutoff.
func (s *Service) DeadlineStatus() week.Status {
	return week.StatusAt(s.now(), s.deadline)
}

// StartOrder opens a fresh session for the user, silently discarding
// any unconfirmed one.
func (s *Service) StartOrder(userID int64) *session.OrderSession {
	sess := session.New(userID, s.CurrentWeek())
	s.sessions.Begin(sess)
	return sess
}

// Session returns the user's live session, if any.
func (s *Service) Session(userID int64) (*session.OrderSession, bool) {
	return s.sessions.Get(userID)
}

// Cancel discards the user's session without writing anything.
func (s *Service) Cancel(userID int64) {
	s.sessions.End(userID)
}

// CommitResult carries the figures the user saw at the summary; they
// were snapshotted when the last day was answered and are reported
// as-is, never recomputed here.
type CommitResult struct {
	Instructor string
	WeekRange  string
	DaysCount  int
	Total      int
}

// Commit persists a confirmed walk. The write set is exactly the
// positive-quantity answers; within the same transaction the user's
// previous lines for this instructor across the week are cleared, so a
// day answered with 0 overrides older data. On storage failure the
// session is kept so the user can re-confirm without re-entering
// answers. A confirm signal with no session in the confirmation stage
// is stale and commits nothing.
func (s *Service) Commit(ctx context.Context, userID int64) (CommitResult, error) {
	sess, ok := s.sessions.Get(userID)
	if !ok || sess.Stage != session.StageAwaitingConfirmation {
		return CommitResult{}, session.ErrExpired
	}

	lines := make([]models.OrderWrite, 0, len(sess.Meals))
	for _, line := range sess.PositiveLines() {
		lines = append(lines, models.OrderWrite{DateKey: line.DateKey, Quantity: line.Quantity})
	}

	err := s.store.SaveOrderBatch(ctx, userID, sess.Instructor, sess.Week.Keys[:], lines)
	if err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{
		Instructor: sess.Instructor,
		WeekRange:  sess.Week.Range(),
		DaysCount:  sess.DaysCount,
		Total:      sess.Total,
	}
	// The session and its per-week format table go away together; the
	// next walk rebuilds both from a fresh Resolve.
	s.sessions.End(userID)

	s.publishCommit(userID, result)
	return result, nil
}

// publishCommit is best-effort: the order is already durable, so a
// broker failure only costs the admin notification and is logged.
func (s *Service) publishCommit(userID int64, result CommitResult) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.publisher.PublishCommit(ctx, models.OrderCommittedMessage{
			UserID:         userID,
			InstructorName: result.Instructor,
			WeekRange:      result.WeekRange,
			DaysCount:      result.DaysCount,
			Total:          result.Total,
			CommittedAt:    s.now(),
		})
		if err != nil {
			s.log.WithUser(userID).Error("", "commit_publish_failed", "Failed to publish commit event", err)
		}
	}()
}

// Restart implements "fill in again" from the confirmation screen.
func (s *Service) Restart(userID int64) (*session.OrderSession, error) {
	sess, ok := s.sessions.Get(userID)
	if !ok {
		return nil, session.ErrExpired
	}
	if err := sess.ResetAnswers(); err != nil {
		return nil, session.ErrExpired
	}
	return sess, nil
}

// RegisterEmployee records the user in the background. Registration is
// deliberately best-effort: a failure is logged, never shown, and never
// delays the greeting. First write wins on the storage side.
func (s *Service) RegisterEmployee(userID int64, username, fullName string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.store.RegisterEmployeeIfAbsent(ctx, userID, username, fullName); err != nil {
			s.log.WithUser(userID).Error("", "registration_failed", "Background registration failed", err)
		}
	}()
}

// UserOrders returns the user's stored positive lines, newest first.
func (s *Service) UserOrders(ctx context.Context, userID int64) ([]models.UserOrder, error) {
	return s.store.GetUserOrders(ctx, userID)
}

// AllOrders returns the export read model for the report.
func (s *Service) AllOrders(ctx context.Context) ([]models.ExportRow, error) {
	return s.store.GetAllOrders(ctx)
}

// ClearUserOrders removes every stored line for the user.
func (s *Service) ClearUserOrders(ctx context.Context, userID int64) error {
	return s.store.DeleteAllOrdersForUser(ctx, userID)
}
