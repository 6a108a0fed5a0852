// Package report builds spreadsheet exports for the admin surface.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/acampov/mealpass/internal/domain/entity"
)

const sheetName = "Vouchers"

var headers = []string{
	"Attendee", "External ID", "Email", "Meal Type", "Token", "Used", "Created At", "Redeemed At",
}

// BuildVoucherWorkbook renders the voucher list as an .xlsx workbook with a
// summary row and one line per voucher.
func BuildVoucherWorkbook(vouchers []*entity.Voucher, generatedAt time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	redeemed := 0
	for _, v := range vouchers {
		if v.Used {
			redeemed++
		}
	}
	summary := fmt.Sprintf("Vouchers: %d total, %d redeemed (generated %s)",
		len(vouchers), redeemed, generatedAt.UTC().Format(time.RFC3339))
	if err := f.SetCellValue(sheetName, "A1", summary); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, v := range vouchers {
		redeemedAt := ""
		if v.RedeemedAt != nil {
			redeemedAt = v.RedeemedAt.UTC().Format(time.RFC3339)
		}
		row := []interface{}{
			v.AttendeeName,
			v.AttendeeExternalID,
			v.AttendeeEmail,
			string(v.MealType),
			v.Token.String(),
			v.Used,
			v.CreatedAt.UTC().Format(time.RFC3339),
			redeemedAt,
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+3)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}
