package activity

import (
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// pageSize caps every ledger query.
const pageSize = 100

type LedgerService struct {
	DB *gorm.DB
}

// Record appends one ledger row. Pass the open transaction handle so the
// row commits or rolls back together with the state transition it describes;
// pass nil to append outside any transaction (e.g. downloads).
func (ls *LedgerService) Record(tx *gorm.DB, entry ActivityLog, metadata interface{}) error {
	db := tx
	if db == nil {
		db = ls.DB
	}

	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			entry.Metadata = b
		}
	}

	return db.Create(&entry).Error
}

func (ls *LedgerService) Query(filter LogFilter) ([]LogRow, error) {
	base := ls.DB.
		Table("activity_logs").
		Select(`activity_logs.*,
			u.full_name AS user_name,
			u.email AS user_email,
			m.name AS model_name,
			mv.version AS version_number`).
		Joins("LEFT JOIN users u ON activity_logs.user_id = u.id").
		Joins("LEFT JOIN models m ON activity_logs.model_id = m.id").
		Joins("LEFT JOIN model_versions mv ON activity_logs.version_id = mv.id")

	if filter.ModelID != nil {
		base = base.Where("activity_logs.model_id = ?", *filter.ModelID)
	}
	if filter.UserID != nil {
		base = base.Where("activity_logs.user_id = ?", *filter.UserID)
	}

	var rows []LogRow
	if err := base.
		Order("activity_logs.created_at DESC, activity_logs.id DESC").
		Limit(pageSize).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

// ExportXLSX renders the filtered ledger to a single-sheet workbook.
func (ls *LedgerService) ExportXLSX(filter LogFilter) (*excelize.File, error) {
	rows, err := ls.Query(filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"ID", "Time", "Action", "User", "Email", "Model", "Version", "Message"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	for i, row := range rows {
		values := []interface{}{
			row.ID,
			row.CreatedAt.Format("2006-01-02 15:04:05"),
			row.Action,
			deref(row.UserName),
			deref(row.UserEmail),
			deref(row.ModelName),
			deref(row.VersionNumber),
			row.Message,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(sheet, "B", "B", 20); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	return f, nil
}
