package report

import (
	"os"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"wheres-my-lunch/internal/week"
	"wheres-my-lunch/pkg/logger"
	"wheres-my-lunch/pkg/models"
)

func testWeek() week.TargetWeek {
	now := time.Date(2026, time.January, 7, 10, 0, 0, 0, time.UTC)
	return week.Resolve(now, week.Deadline{Weekday: time.Friday, Hour: 16, Minute: 0})
}

func testRows() []models.ExportRow {
	return []models.ExportRow{
		{UserID: 1, EmployeeName: "Иванов Иван", InstructorName: "Петров Пётр", DateKey: "20260112", Quantity: 1},
		{UserID: 1, EmployeeName: "Иванов Иван", InstructorName: "Петров Пётр", DateKey: "20260114", Quantity: 2},
		{UserID: 2, EmployeeName: "Сидорова Анна", InstructorName: "Петров Пётр", DateKey: "20260112", Quantity: 2},
	}
}

func cell(t *testing.T, f *excelize.File, sheet, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, ref)
	if err != nil {
		t.Fatalf("GetCellValue(%s): %v", ref, err)
	}
	return v
}

func TestCreateWeekReportLayout(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer("GORA", dir, logger.NewLogger("test"))

	tempPath, savedPath, err := r.CreateWeekReport(testRows(), testWeek())
	if err != nil {
		t.Fatalf("CreateWeekReport: %v", err)
	}
	if _, err := os.Stat(tempPath); err != nil {
		t.Fatalf("temp file missing: %v", err)
	}
	if _, err := os.Stat(savedPath); err != nil {
		t.Fatalf("saved copy missing: %v", err)
	}

	f, err := excelize.OpenFile(savedPath)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	const sheet = "Заказы на неделю"

	if got := cell(t, f, sheet, "A1"); got != "Заказы обедов • GORA" {
		t.Fatalf("title = %q", got)
	}
	if got := cell(t, f, sheet, "A2"); got != "Период заказа: 12.01.2026 - 18.01.2026" {
		t.Fatalf("period = %q", got)
	}

	// Header row: fixed columns, then Monday, then the total column.
	if got := cell(t, f, sheet, "B4"); got != "Сотрудник" {
		t.Fatalf("header B4 = %q", got)
	}
	if got := cell(t, f, sheet, "D4"); got != "Пн\n12.01" {
		t.Fatalf("header D4 = %q", got)
	}
	if got := cell(t, f, sheet, "K4"); got != "Всего" {
		t.Fatalf("header K4 = %q", got)
	}

	// Employees sorted alphabetically; Иванов first.
	if got := cell(t, f, sheet, "B5"); got != "Иванов Иван" {
		t.Fatalf("B5 = %q", got)
	}
	if got := cell(t, f, sheet, "C5"); got != "Петров Пётр" {
		t.Fatalf("C5 = %q", got)
	}
	if got := cell(t, f, sheet, "D5"); got != "1" {
		t.Fatalf("monday qty = %q", got)
	}
	// Tuesday has no line: explicit absence marker, not zero.
	if got := cell(t, f, sheet, "E5"); got != "-" {
		t.Fatalf("absent day marker = %q", got)
	}
	if got := cell(t, f, sheet, "F5"); got != "2" {
		t.Fatalf("wednesday qty = %q", got)
	}
	if got := cell(t, f, sheet, "K5"); got != "3" {
		t.Fatalf("row total = %q", got)
	}

	// Second employee after the blank separator row.
	if got := cell(t, f, sheet, "B7"); got != "Сидорова Анна" {
		t.Fatalf("B7 = %q", got)
	}

	// Totals row: label, Monday 1+2, Wednesday 2, grand total 5.
	if got := cell(t, f, sheet, "B9"); got != "ИТОГО ПО ДНЯМ:" {
		t.Fatalf("totals label = %q", got)
	}
	if got := cell(t, f, sheet, "D9"); got != "3" {
		t.Fatalf("monday total = %q", got)
	}
	if got := cell(t, f, sheet, "F9"); got != "2" {
		t.Fatalf("wednesday total = %q", got)
	}
	if got := cell(t, f, sheet, "K9"); got != "5" {
		t.Fatalf("grand total = %q", got)
	}
}

func TestColumnWidthsAreCapped(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer("GORA", dir, logger.NewLogger("test"))

	rows := []models.ExportRow{{
		UserID:         1,
		EmployeeName:   "Очень Длинное Имя Сотрудника Которое Не Помещается",
		InstructorName: "Петров Пётр",
		DateKey:        "20260112",
		Quantity:       1,
	}}
	_, savedPath, err := r.CreateWeekReport(rows, testWeek())
	if err != nil {
		t.Fatalf("CreateWeekReport: %v", err)
	}

	f, err := excelize.OpenFile(savedPath)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	width, err := f.GetColWidth("Заказы на неделю", "B")
	if err != nil {
		t.Fatalf("GetColWidth: %v", err)
	}
	if width > 30 {
		t.Fatalf("width = %f, want capped at 30", width)
	}
}

func TestAppendToArchiveAddsSheets(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer("GORA", dir, logger.NewLogger("test"))
	tw := testWeek()

	path, err := r.AppendToArchive(testRows(), tw)
	if err != nil {
		t.Fatalf("first AppendToArchive: %v", err)
	}
	// Same period again: the sheet name gets a numeric suffix.
	if _, err := r.AppendToArchive(testRows(), tw); err != nil {
		t.Fatalf("second AppendToArchive: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := map[string]bool{
		"12.01-18.01.2026":     false,
		"12.01-18.01.2026 (2)": false,
	}
	for _, s := range sheets {
		if _, ok := want[s]; ok {
			want[s] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("sheet %q missing, have %v", name, sheets)
		}
	}
}
