package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"wheres-my-lunch/internal/week"
	"wheres-my-lunch/pkg/logger"
	"wheres-my-lunch/pkg/models"
)

// ErrRender wraps spreadsheet failures; callers surface a short message
// and no partial file stays attached.
var ErrRender = errors.New("report rendering failed")

const (
	archiveFileName = "orders_archive.xlsx"
	minColumnWidth  = 10
	maxColumnWidth  = 30
	// 3 fixed columns + 7 days + total
	columnCount = 11
	headerRow   = 4
)

// Renderer turns the full order set into a styled workbook: one row per
// employee x instructor, one column per target-week day plus a total,
// and a totals row at the bottom. Days with no stored line render as
// "-" so absence reads differently from an explicit zero.
type Renderer struct {
	company   string
	exportDir string
	log       *logger.Logger
}

func NewRenderer(company, exportDir string, log *logger.Logger) *Renderer {
	return &Renderer{company: company, exportDir: exportDir, log: log}
}

// CreateWeekReport writes the report to a temp file and a saved copy in
// the export directory, returning both paths. The temp file is what
// gets attached to the chat; the copy stays on disk.
func (r *Renderer) CreateWeekReport(rows []models.ExportRow, tw week.TargetWeek) (tempPath, savedPath string, err error) {
	if err := os.MkdirAll(r.exportDir, 0o755); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("заказы_%s_%s.xlsx", r.company, timestamp)
	tempPath = filepath.Join(r.exportDir, "temp_"+filename)
	savedPath = filepath.Join(r.exportDir, filename)

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Заказы на неделю"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	if err := r.fillSheet(f, sheet, rows, tw); err != nil {
		return "", "", err
	}

	if err := f.SaveAs(tempPath); err != nil {
		return "", "", fmt.Errorf("%w: save: %v", ErrRender, err)
	}
	if err := copyFile(tempPath, savedPath); err != nil {
		os.Remove(tempPath)
		return "", "", fmt.Errorf("%w: save copy: %v", ErrRender, err)
	}

	r.log.Info("", "report_created", "Report written to "+savedPath)
	return tempPath, savedPath, nil
}

// AppendToArchive adds the period as a new sheet in the cumulative
// archive workbook instead of overwriting it. Sheet names come from the
// date range and get a numeric suffix when the period repeats.
func (r *Renderer) AppendToArchive(rows []models.ExportRow, tw week.TargetWeek) (string, error) {
	if err := os.MkdirAll(r.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	archivePath := filepath.Join(r.exportDir, archiveFileName)

	var f *excelize.File
	var err error
	fresh := false
	if _, statErr := os.Stat(archivePath); statErr == nil {
		f, err = excelize.OpenFile(archivePath)
		if err != nil {
			return "", fmt.Errorf("%w: open archive: %v", ErrRender, err)
		}
	} else {
		f = excelize.NewFile()
		fresh = true
	}
	defer f.Close()

	sheet := r.archiveSheetName(f, tw)
	if _, err := f.NewSheet(sheet); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	if fresh {
		f.DeleteSheet("Sheet1")
	}

	if err := r.fillSheet(f, sheet, rows, tw); err != nil {
		return "", err
	}
	if err := f.SaveAs(archivePath); err != nil {
		return "", fmt.Errorf("%w: save archive: %v", ErrRender, err)
	}

	r.log.Info("", "archive_updated", "Archive sheet added: "+sheet)
	return archivePath, nil
}

func (r *Renderer) archiveSheetName(f *excelize.File, tw week.TargetWeek) string {
	base := fmt.Sprintf("%s-%s", tw.Days[0].Format("02.01"), tw.Days[6].Format("02.01.2006"))
	name := base
	for n := 2; sheetExists(f, name); n++ {
		name = fmt.Sprintf("%s (%d)", base, n)
	}
	return name
}

func sheetExists(f *excelize.File, name string) bool {
	for _, s := range f.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

// fillSheet renders the full report layout onto one worksheet.
func (r *Renderer) fillSheet(f *excelize.File, sheet string, rows []models.ExportRow, tw week.TargetWeek) error {
	styles, err := newSheetStyles(f)
	if err != nil {
		return fmt.Errorf("%w: styles: %v", ErrRender, err)
	}

	// Title block.
	if err := setMergedTitle(f, sheet, 1, fmt.Sprintf("Заказы обедов • %s", r.company), styles.title); err != nil {
		return err
	}
	period := fmt.Sprintf("Период заказа: %s - %s", tw.Days[0].Format("02.01.2006"), tw.Days[6].Format("02.01.2006"))
	if err := setMergedTitle(f, sheet, 2, period, styles.subtitle); err != nil {
		return err
	}
	created := fmt.Sprintf("Отчёт создан: %s", time.Now().Format("02.01.2006 15:04"))
	if err := setMergedTitle(f, sheet, 3, created, styles.subtitle); err != nil {
		return err
	}

	// Header row.
	headers := []string{"№", "Сотрудник", "Инструктор"}
	for i, day := range tw.Days {
		headers = append(headers, fmt.Sprintf("%s\n%s", week.DayNames[i], day.Format("02.01")))
	}
	headers = append(headers, "Всего")
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("%w: %v", ErrRender, err)
		}
		f.SetCellStyle(sheet, cell, cell, styles.header)
	}

	grouped := groupRows(rows)
	employees := sortedKeys(grouped)

	row := headerRow + 1
	dayTotals := make([]int, 7)

	for counter, employee := range employees {
		instructors := sortedKeys(grouped[employee])
		firstRow := true

		for _, instructor := range instructors {
			byDate := grouped[employee][instructor]

			if firstRow {
				setCell(f, sheet, 1, row, counter+1, styles.cell)
				firstRow = false
			}
			setCell(f, sheet, 2, row, employee, styles.cell)
			setCell(f, sheet, 3, row, instructor, styles.cell)

			rowTotal := 0
			for i, key := range tw.Keys {
				qty := byDate[key]
				if qty > 0 {
					setCell(f, sheet, 4+i, row, qty, styles.centered)
					rowTotal += qty
					dayTotals[i] += qty
				} else {
					setCell(f, sheet, 4+i, row, "-", styles.centered)
				}
			}
			setCell(f, sheet, columnCount, row, rowTotal, styles.rowTotal)
			row++
		}
		// Blank separator between employees.
		row++
	}

	// Totals row.
	setCell(f, sheet, 2, row, "ИТОГО ПО ДНЯМ:", styles.total)
	grandTotal := 0
	for i, t := range dayTotals {
		setCell(f, sheet, 4+i, row, t, styles.total)
		grandTotal += t
	}
	setCell(f, sheet, columnCount, row, grandTotal, styles.total)

	return autoSizeColumns(f, sheet, row)
}

type sheetStyles struct {
	title    int
	subtitle int
	header   int
	cell     int
	centered int
	rowTotal int
	total    int
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	var s sheetStyles
	var err error

	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	thin := []excelize.Border{
		{Type: "left", Style: 1}, {Type: "right", Style: 1},
		{Type: "top", Style: 1}, {Type: "bottom", Style: 1},
	}

	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: center,
	}); err != nil {
		return s, err
	}
	if s.subtitle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 11},
		Alignment: center,
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: center,
		Border:    thin,
	}); err != nil {
		return s, err
	}
	if s.cell, err = f.NewStyle(&excelize.Style{Border: thin}); err != nil {
		return s, err
	}
	if s.centered, err = f.NewStyle(&excelize.Style{
		Alignment: center,
		Border:    thin,
	}); err != nil {
		return s, err
	}
	if s.rowTotal, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: center,
		Border:    thin,
	}); err != nil {
		return s, err
	}
	if s.total, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
		Alignment: center,
		Border:    thin,
	}); err != nil {
		return s, err
	}
	return s, nil
}

func setMergedTitle(f *excelize.File, sheet string, row int, value string, style int) error {
	start, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(columnCount, row)
	if err := f.MergeCell(sheet, start, end); err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	if err := f.SetCellValue(sheet, start, value); err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	f.SetCellStyle(sheet, start, end, style)
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}, style int) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	f.SetCellValue(sheet, cell, value)
	f.SetCellStyle(sheet, cell, cell, style)
}

// groupRows builds employee -> instructor -> date key -> quantity.
func groupRows(rows []models.ExportRow) map[string]map[string]map[string]int {
	grouped := make(map[string]map[string]map[string]int)
	for _, row := range rows {
		byInstructor, ok := grouped[row.EmployeeName]
		if !ok {
			byInstructor = make(map[string]map[string]int)
			grouped[row.EmployeeName] = byInstructor
		}
		byDate, ok := byInstructor[row.InstructorName]
		if !ok {
			byDate = make(map[string]int)
			byInstructor[row.InstructorName] = byDate
		}
		byDate[row.DateKey] = row.Quantity
	}
	return grouped
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func autoSizeColumns(f *excelize.File, sheet string, lastRow int) error {
	for col := 1; col <= columnCount; col++ {
		width := minColumnWidth
		for row := 1; row <= lastRow; row++ {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			value, err := f.GetCellValue(sheet, cell)
			if err != nil {
				continue
			}
			if l := len([]rune(value)); l > width {
				width = l
			}
		}
		if width+4 < maxColumnWidth {
			width += 4
		} else {
			width = maxColumnWidth
		}
		name, _ := excelize.ColumnNumberToName(col)
		if err := f.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return fmt.Errorf("%w: %v", ErrRender, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
