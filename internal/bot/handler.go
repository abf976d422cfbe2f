package bot

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"

	"wheres-my-lunch/internal/orders"
	"wheres-my-lunch/internal/report"
	"wheres-my-lunch/internal/session"
	"wheres-my-lunch/internal/week"
	"wheres-my-lunch/pkg/logger"
)

// TextMessage and CallbackSignal are the two inbound event shapes. The
// handler dispatches on the session's current stage, not on free-form
// string matching.
type TextMessage struct {
	UserID    int64
	Username  string
	FullName  string
	FirstName string
	Text      string
}

type CallbackSignal struct {
	UserID    int64
	MessageID int
	Token     string
}

// Keyboard selects which reply markup accompanies an outgoing message;
// the transport adapter maps it to the wire format.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardRemove
	KeyboardMain
	KeyboardMainAdmin
	KeyboardConfirm
)

type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Sender is the outgoing half of the chat transport.
type Sender interface {
	Send(userID int64, reply Reply) error
	Edit(userID int64, messageID int, text string) error
	SendDocument(userID int64, filePath, caption string) error
}

// Handler is the conversational core: one inbound event in, one or more
// replies out. Each user's events arrive sequentially, so no locking
// happens here beyond the session store's own.
type Handler struct {
	svc      *orders.Service
	renderer *report.Renderer
	sender   Sender
	adminID  int64
	log      *logger.Logger
}

func NewHandler(svc *orders.Service, renderer *report.Renderer, sender Sender, adminID int64, log *logger.Logger) *Handler {
	return &Handler{
		svc:      svc,
		renderer: renderer,
		sender:   sender,
		adminID:  adminID,
		log:      log,
	}
}

func (h *Handler) mainMenu(userID int64) Keyboard {
	if userID == h.adminID {
		return KeyboardMainAdmin
	}
	return KeyboardMain
}

// HandleText routes a plain text message: commands and menu buttons
// first, then whatever the live session's stage expects.
func (h *Handler) HandleText(ctx context.Context, msg TextMessage) {
	requestID := uuid.NewString()
	log := h.log.WithUser(msg.UserID)

	switch msg.Text {
	case "/start":
		h.handleStart(msg, requestID, log)
		return
	case ButtonNewOrder:
		h.handleNewOrder(msg, requestID, log)
		return
	case ButtonMyOrders:
		h.handleMyOrders(ctx, msg, requestID, log)
		return
	case ButtonExport:
		h.handleExport(ctx, msg, requestID, log)
		return
	}

	sess, ok := h.svc.Session(msg.UserID)
	if !ok {
		h.send(msg.UserID, Reply{Text: unknownInputText, Keyboard: h.mainMenu(msg.UserID)}, log)
		return
	}

	switch sess.Stage {
	case session.StageAwaitingInstructor:
		h.handleInstructorInput(sess, msg, log)
	case session.StageAwaitingQuantity:
		h.handleQuantityInput(sess, msg, log)
	case session.StageAwaitingConfirmation:
		// Free text while the inline keyboard is up: repeat the summary
		// rather than silently advancing.
		h.send(msg.UserID, Reply{Text: summaryText(sess), Keyboard: KeyboardConfirm}, log)
	}
}

func (h *Handler) handleStart(msg TextMessage, requestID string, log *logger.Logger) {
	h.svc.RegisterEmployee(msg.UserID, msg.Username, msg.FullName)

	tw := h.svc.CurrentWeek()
	text := greetingText(msg.FirstName, tw.Range(), tw.Label, h.svc.DeadlineStatus())
	h.send(msg.UserID, Reply{Text: text, Keyboard: h.mainMenu(msg.UserID)}, log)
	log.Debug(requestID, "start_handled", "Greeted user")
}

func (h *Handler) handleNewOrder(msg TextMessage, requestID string, log *logger.Logger) {
	sess := h.svc.StartOrder(msg.UserID)
	text := orderIntroText(sess.Week.Range(), sess.Week.Label)
	h.send(msg.UserID, Reply{Text: text, Keyboard: KeyboardRemove}, log)
	log.Debug(requestID, "order_started", "New order session opened")
}

func (h *Handler) handleInstructorInput(sess *session.OrderSession, msg TextMessage, log *logger.Logger) {
	if err := sess.SubmitInstructor(msg.Text); err != nil {
		h.send(msg.UserID, Reply{Text: instructorTooShortText}, log)
		return
	}
	day := sess.Formats.Days[0]
	h.send(msg.UserID, Reply{Text: dayPromptText(sess.Instructor, sess.Week.Range(), 0, day)}, log)
}

func (h *Handler) handleQuantityInput(sess *session.OrderSession, msg TextMessage, log *logger.Logger) {
	res, err := sess.SubmitQuantity(msg.Text)
	if err != nil {
		h.send(msg.UserID, Reply{Text: invalidQuantityText}, log)
		return
	}

	h.send(msg.UserID, Reply{Text: dayRecordedText(res.Day, res.Quantity)}, log)

	if res.Completed {
		h.send(msg.UserID, Reply{Text: summaryText(sess), Keyboard: KeyboardConfirm}, log)
		return
	}
	h.send(msg.UserID, Reply{Text: dayPromptText(sess.Instructor, sess.Week.Range(), res.NextIndex, res.NextDay)}, log)
}

// HandleCallback reacts to the inline confirmation keyboard. Stale
// signals (the session is gone or not awaiting confirmation) edit the
// message into an expiry note and write nothing.
func (h *Handler) HandleCallback(ctx context.Context, cb CallbackSignal) {
	requestID := uuid.NewString()
	log := h.log.WithUser(cb.UserID)

	switch cb.Token {
	case TokenConfirmYes:
		h.handleConfirm(ctx, cb, requestID, log)
	case TokenConfirmNo:
		h.handleRestart(cb, requestID, log)
	case TokenCancel:
		h.svc.Cancel(cb.UserID)
		h.edit(cb, cancelledText, log)
		log.Info(requestID, "order_cancelled", "Order cancelled from confirmation screen")
	default:
		log.Warn(requestID, "unknown_callback", "Unknown callback token: "+cb.Token)
		return
	}

	h.send(cb.UserID, Reply{Text: mainMenuText, Keyboard: h.mainMenu(cb.UserID)}, log)
}

func (h *Handler) handleConfirm(ctx context.Context, cb CallbackSignal, requestID string, log *logger.Logger) {
	result, err := h.svc.Commit(ctx, cb.UserID)
	switch {
	case errors.Is(err, session.ErrExpired):
		h.edit(cb, expiredText, log)
		log.Warn(requestID, "stale_confirm", "Confirm signal for a missing or spent session")
	case err != nil:
		// The session survives a storage failure; the user re-confirms
		// instead of re-entering seven answers.
		h.edit(cb, commitFailedText, log)
		log.Error(requestID, "commit_failed", "Failed to persist confirmed order", err)
	default:
		h.edit(cb, committedText(result.Instructor, result.WeekRange, result.DaysCount, result.Total), log)
		log.Info(requestID, "order_committed", "Order committed")
	}
}

func (h *Handler) handleRestart(cb CallbackSignal, requestID string, log *logger.Logger) {
	sess, err := h.svc.Restart(cb.UserID)
	if err != nil {
		h.edit(cb, expiredText, log)
		log.Warn(requestID, "stale_restart", "Restart signal for a missing or spent session")
		return
	}
	h.edit(cb, restartText(sess), log)
	log.Info(requestID, "order_restarted", "Answers reset, instructor kept")
}

func (h *Handler) handleMyOrders(ctx context.Context, msg TextMessage, requestID string, log *logger.Logger) {
	userOrders, err := h.svc.UserOrders(ctx, msg.UserID)
	if err != nil {
		h.send(msg.UserID, Reply{Text: commitFailedText, Keyboard: h.mainMenu(msg.UserID)}, log)
		log.Error(requestID, "my_orders_failed", "Failed to read user orders", err)
		return
	}
	if len(userOrders) == 0 {
		h.send(msg.UserID, Reply{Text: noOrdersText, Keyboard: h.mainMenu(msg.UserID)}, log)
		return
	}
	text := myOrdersText(userOrders, week.DayLabel)
	h.send(msg.UserID, Reply{Text: text, Keyboard: h.mainMenu(msg.UserID)}, log)
}

// handleExport is admin-only. Rendering touches the filesystem, so it
// runs on its own goroutine; the reply waits for it to finish before
// attaching the file.
func (h *Handler) handleExport(ctx context.Context, msg TextMessage, requestID string, log *logger.Logger) {
	if msg.UserID != h.adminID {
		h.send(msg.UserID, Reply{Text: accessDeniedText}, log)
		log.Warn(requestID, "export_denied", "Non-admin export attempt")
		return
	}

	rows, err := h.svc.AllOrders(ctx)
	if err != nil {
		h.send(msg.UserID, Reply{Text: commitFailedText, Keyboard: KeyboardMainAdmin}, log)
		log.Error(requestID, "export_read_failed", "Failed to read orders for export", err)
		return
	}
	if len(rows) == 0 {
		h.send(msg.UserID, Reply{Text: "📭 *Нет заказов для выгрузки*", Keyboard: KeyboardMainAdmin}, log)
		return
	}

	tw := h.svc.CurrentWeek()

	type renderResult struct {
		tempPath  string
		savedPath string
		err       error
	}
	done := make(chan renderResult, 1)
	go func() {
		tempPath, savedPath, err := h.renderer.CreateWeekReport(rows, tw)
		done <- renderResult{tempPath: tempPath, savedPath: savedPath, err: err}
	}()
	res := <-done

	if res.err != nil {
		h.send(msg.UserID, Reply{Text: "❌ *Ошибка при формировании отчёта*", Keyboard: KeyboardMainAdmin}, log)
		log.Error(requestID, "export_render_failed", "Failed to render report", res.err)
		return
	}

	caption := "📊 Отчёт по заказам готов\n💾 Сохранён: " + res.savedPath
	if err := h.sender.SendDocument(msg.UserID, res.tempPath, caption); err != nil {
		log.Error(requestID, "export_send_failed", "Failed to send report file", err)
	}
	os.Remove(res.tempPath)
	log.Info(requestID, "export_completed", "Report exported")
}

func (h *Handler) send(userID int64, reply Reply, log *logger.Logger) {
	if err := h.sender.Send(userID, reply); err != nil {
		log.Error("", "send_failed", "Failed to send message", err)
	}
}

func (h *Handler) edit(cb CallbackSignal, text string, log *logger.Logger) {
	if err := h.sender.Edit(cb.UserID, cb.MessageID, text); err != nil {
		log.Error("", "edit_failed", "Failed to edit message", err)
	}
}
