package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"wheres-my-lunch/internal/orders"
	"wheres-my-lunch/internal/report"
	"wheres-my-lunch/internal/week"
	"wheres-my-lunch/pkg/logger"
	"wheres-my-lunch/pkg/models"
)

type sentMessage struct {
	userID   int64
	text     string
	keyboard Keyboard
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	edits []sentMessage
	docs  []string
}

func (f *fakeSender) Send(userID int64, reply Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{userID: userID, text: reply.Text, keyboard: reply.Keyboard})
	return nil
}

func (f *fakeSender) Edit(userID int64, _ int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentMessage{userID: userID, text: text})
	return nil
}

func (f *fakeSender) SendDocument(_ int64, filePath, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, filePath)
	return nil
}

func (f *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) lastEdit(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		t.Fatal("no messages edited")
	}
	return f.edits[len(f.edits)-1]
}

type memStore struct {
	mu      sync.Mutex
	lines   map[string]models.OrderWrite // user|instructor|date -> write
	batches int
}

func newMemStore() *memStore {
	return &memStore{lines: make(map[string]models.OrderWrite)}
}

func (m *memStore) SaveOrderBatch(_ context.Context, userID int64, instructor string, weekKeys []string, lines []models.OrderWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	for _, l := range lines {
		m.lines[instructor+"|"+l.DateKey] = l
	}
	return nil
}

func (m *memStore) GetUserOrders(context.Context, int64) ([]models.UserOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserOrder
	for key, l := range m.lines {
		instructor := key[:strings.Index(key, "|")]
		out = append(out, models.UserOrder{InstructorName: instructor, DateKey: l.DateKey, Quantity: l.Quantity})
	}
	return out, nil
}

func (m *memStore) GetAllOrders(context.Context) ([]models.ExportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExportRow
	for key, l := range m.lines {
		instructor := key[:strings.Index(key, "|")]
		out = append(out, models.ExportRow{
			UserID:         42,
			EmployeeName:   "Иван Иванов",
			InstructorName: instructor,
			DateKey:        l.DateKey,
			Quantity:       l.Quantity,
		})
	}
	return out, nil
}

func (m *memStore) RegisterEmployeeIfAbsent(context.Context, int64, string, string) error {
	return nil
}

func (m *memStore) DeleteAllOrdersForUser(context.Context, int64) error { return nil }

const adminID = int64(100)

func newTestHandler(t *testing.T, store orders.Store) (*Handler, *fakeSender) {
	t.Helper()
	log := logger.NewLogger("test")
	deadline := week.Deadline{Weekday: time.Friday, Hour: 16, Minute: 0}
	svc := orders.NewService(store, nil, deadline, time.UTC, log).WithClock(func() time.Time {
		return time.Date(2026, time.January, 7, 10, 0, 0, 0, time.UTC)
	})
	sender := &fakeSender{}
	renderer := report.NewRenderer("GORA", t.TempDir(), log)
	return NewHandler(svc, renderer, sender, adminID, log), sender
}

func text(userID int64, text string) TextMessage {
	return TextMessage{UserID: userID, Username: "ivan", FullName: "Иван Иванов", FirstName: "Иван", Text: text}
}

func TestEndToEndOrderWalk(t *testing.T) {
	store := newMemStore()
	h, sender := newTestHandler(t, store)
	ctx := context.Background()

	h.HandleText(ctx, text(42, "/start"))
	if !strings.Contains(sender.last(t).text, "Добрый день") {
		t.Fatalf("greeting missing: %q", sender.last(t).text)
	}

	h.HandleText(ctx, text(42, ButtonNewOrder))
	if sender.last(t).keyboard != KeyboardRemove {
		t.Fatal("order intro should drop the reply keyboard")
	}

	h.HandleText(ctx, text(42, "Ivanov Ivan"))
	if !strings.Contains(sender.last(t).text, "День 1") {
		t.Fatalf("first day prompt missing: %q", sender.last(t).text)
	}

	for _, qty := range []string{"1", "0", "2", "0", "0", "0"} {
		h.HandleText(ctx, text(42, qty))
	}
	h.HandleText(ctx, text(42, "1"))

	summary := sender.last(t)
	if summary.keyboard != KeyboardConfirm {
		t.Fatal("summary must carry the confirmation keyboard")
	}
	if !strings.Contains(summary.text, "3 дней, 4 обедов") {
		t.Fatalf("summary totals wrong: %q", summary.text)
	}

	h.HandleCallback(ctx, CallbackSignal{UserID: 42, MessageID: 7, Token: TokenConfirmYes})
	if !strings.Contains(sender.lastEdit(t).text, "успешно подтверждён") {
		t.Fatalf("commit confirmation missing: %q", sender.lastEdit(t).text)
	}

	store.mu.Lock()
	if store.batches != 1 || len(store.lines) != 3 {
		t.Fatalf("batches=%d lines=%v, want 1 batch with 3 lines", store.batches, store.lines)
	}
	for key, want := range map[string]int{"20260112": 1, "20260114": 2, "20260118": 1} {
		if got := store.lines["Ivanov Ivan|"+key].Quantity; got != want {
			t.Fatalf("stored qty for %s = %d, want %d", key, got, want)
		}
	}
	store.mu.Unlock()

	// A duplicate press on the spent keyboard is rejected as stale.
	h.HandleCallback(ctx, CallbackSignal{UserID: 42, MessageID: 7, Token: TokenConfirmYes})
	if !strings.Contains(sender.lastEdit(t).text, "устарела") {
		t.Fatalf("stale confirm not reported: %q", sender.lastEdit(t).text)
	}
	store.mu.Lock()
	if store.batches != 1 {
		t.Fatal("stale confirm must not write")
	}
	store.mu.Unlock()
}

func TestInvalidQuantityRepromptsSameDay(t *testing.T) {
	h, sender := newTestHandler(t, newMemStore())
	ctx := context.Background()

	h.HandleText(ctx, text(42, ButtonNewOrder))
	h.HandleText(ctx, text(42, "Ivanov Ivan"))
	h.HandleText(ctx, text(42, "1")) // day 1 answered, day 2 prompted

	h.HandleText(ctx, text(42, "3"))
	if !strings.Contains(sender.last(t).text, "Неверный ввод") {
		t.Fatalf("expected validation message, got %q", sender.last(t).text)
	}

	// The next valid answer still lands on day 2.
	h.HandleText(ctx, text(42, "2"))
	if !strings.Contains(sender.last(t).text, "День 3") {
		t.Fatalf("cursor advanced wrongly: %q", sender.last(t).text)
	}
}

func TestShortInstructorNameReprompts(t *testing.T) {
	h, sender := newTestHandler(t, newMemStore())
	ctx := context.Background()

	h.HandleText(ctx, text(42, ButtonNewOrder))
	h.HandleText(ctx, text(42, "Ив"))
	if !strings.Contains(sender.last(t).text, "короткое ФИО") {
		t.Fatalf("expected name validation, got %q", sender.last(t).text)
	}
}

func TestConfirmNoResetsWalk(t *testing.T) {
	h, sender := newTestHandler(t, newMemStore())
	ctx := context.Background()

	h.HandleText(ctx, text(42, ButtonNewOrder))
	h.HandleText(ctx, text(42, "Ivanov Ivan"))
	for _, qty := range []string{"1", "1", "1", "1", "1", "1", "1"} {
		h.HandleText(ctx, text(42, qty))
	}

	h.HandleCallback(ctx, CallbackSignal{UserID: 42, MessageID: 7, Token: TokenConfirmNo})
	if !strings.Contains(sender.lastEdit(t).text, "Начинаем заново") {
		t.Fatalf("restart text missing: %q", sender.lastEdit(t).text)
	}
	// Instructor survives; day 1 is asked again and a full walk works.
	h.HandleText(ctx, text(42, "2"))
	if !strings.Contains(sender.last(t).text, "День 2") {
		t.Fatalf("walk did not restart from day 1: %q", sender.last(t).text)
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	store := newMemStore()
	h, sender := newTestHandler(t, store)
	ctx := context.Background()

	h.HandleText(ctx, text(42, ButtonNewOrder))
	h.HandleText(ctx, text(42, "Ivanov Ivan"))
	for _, qty := range []string{"1", "1", "1", "1", "1", "1", "1"} {
		h.HandleText(ctx, text(42, qty))
	}

	h.HandleCallback(ctx, CallbackSignal{UserID: 42, MessageID: 7, Token: TokenCancel})
	if !strings.Contains(sender.lastEdit(t).text, "отменён") {
		t.Fatalf("cancel text missing: %q", sender.lastEdit(t).text)
	}
	store.mu.Lock()
	if store.batches != 0 {
		t.Fatal("cancel must not write")
	}
	store.mu.Unlock()
}

func TestExportRequiresAdmin(t *testing.T) {
	h, sender := newTestHandler(t, newMemStore())
	ctx := context.Background()

	h.HandleText(ctx, text(42, ButtonExport))
	if !strings.Contains(sender.last(t).text, "Доступ запрещён") {
		t.Fatalf("expected access denied, got %q", sender.last(t).text)
	}
	if len(sender.docs) != 0 {
		t.Fatal("no document may be sent to a non-admin")
	}
}

func TestExportSendsReport(t *testing.T) {
	store := newMemStore()
	store.lines["Ivanov Ivan|20260112"] = models.OrderWrite{DateKey: "20260112", Quantity: 2}
	h, sender := newTestHandler(t, store)
	ctx := context.Background()

	h.HandleText(ctx, text(adminID, ButtonExport))
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.docs) != 1 {
		t.Fatalf("docs sent = %d, want 1", len(sender.docs))
	}
	if !strings.Contains(sender.docs[0], ".xlsx") {
		t.Fatalf("unexpected attachment: %q", sender.docs[0])
	}
}

func TestFreeTextWithoutSessionGetsHint(t *testing.T) {
	h, sender := newTestHandler(t, newMemStore())
	h.HandleText(context.Background(), text(42, "привет"))
	if !strings.Contains(sender.last(t).text, "Не понимаю") {
		t.Fatalf("expected hint, got %q", sender.last(t).text)
	}
}
