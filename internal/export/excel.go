package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spacebook/internal/domain"
	"spacebook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Заявки"

// ExcelExporter выгружает заявки за период в xlsx файл
type ExcelExporter struct {
	service domain.ReservationService
	path    string
	logger  *zerolog.Logger
}

func NewExcelExporter(service domain.ReservationService, path string, logger *zerolog.Logger) *ExcelExporter {
	return &ExcelExporter{
		service: service,
		path:    path,
		logger:  logger,
	}
}

// ExportReservations writes all reservations whose open time falls inside
// [startDate, endDate] into a new xlsx file and returns its path.
func (e *ExcelExporter) ExportReservations(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	reservations, err := e.service.GetReservations(ctx, models.ReservationFilter{
		Start: startDate,
		End:   endDate,
	})
	if err != nil {
		return "", fmt.Errorf("error getting reservations: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Период: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))
	_ = f.MergeCell(sheetName, "A1", "J1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	e.writeHeaders(f)
	e.writeRows(f, reservations)

	widths := []float64{8, 12, 20, 20, 10, 12, 30, 30, 14, 20}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, col, col, w)
	}

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("reservations_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(reservations)).Msg("Excel file created")
	return filePath, nil
}

func (e *ExcelExporter) writeHeaders(f *excelize.File) {
	headers := []string{
		"ID", "Пользователь", "Начало", "Окончание", "Гостей",
		"Оплата", "Группа", "Комментарий", "Статус", "Создана",
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
}

func (e *ExcelExporter) writeRows(f *excelize.File, reservations []*models.Reservation) {
	for i, r := range reservations {
		row := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.UserID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.OpenTime.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.CloseTime.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.NumberOfPeople)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.Payment)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), r.GroupDescription)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), r.ManagerComment)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), statusLabel(r.Status))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), r.CreatedAt.Format("02.01.2006 15:04"))

		if styleID, err := e.rowStyle(f, r.Status); err == nil {
			first := fmt.Sprintf("A%d", row)
			last := fmt.Sprintf("J%d", row)
			_ = f.SetCellStyle(sheetName, first, last, styleID)
		}
	}
}

func statusLabel(status string) string {
	switch status {
	case models.StatusPending:
		return "⏳ ожидает"
	case models.StatusApproved:
		return "✅ подтверждена"
	case models.StatusRejected:
		return "❌ отклонена"
	case models.StatusCancelled:
		return "🚫 отменена"
	default:
		return status
	}
}

func (e *ExcelExporter) rowStyle(f *excelize.File, status string) (int, error) {
	var fill string
	switch status {
	case models.StatusApproved:
		fill = "#C6EFCE"
	case models.StatusPending:
		fill = "#FFEB9C"
	case models.StatusRejected, models.StatusCancelled:
		fill = "#FFC7CE"
	default:
		fill = "#FFFFFF"
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}
