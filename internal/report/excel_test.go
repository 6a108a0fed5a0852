package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/acampov/mealpass/internal/domain/entity"
)

func TestBuildVoucherWorkbook(t *testing.T) {
	redeemedAt := time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC)
	vouchers := []*entity.Voucher{
		{
			ID:                 1,
			AttendeeName:       "Ana Gomez",
			AttendeeExternalID: "CC-1001",
			AttendeeEmail:      "ana@example.com",
			MealType:           entity.MealBreakfast,
			Token:              entity.NewToken(),
			Used:               true,
			CreatedAt:          time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
			RedeemedAt:         &redeemedAt,
		},
		{
			ID:                 2,
			AttendeeName:       "Ana Gomez",
			AttendeeExternalID: "CC-1001",
			AttendeeEmail:      "ana@example.com",
			MealType:           entity.MealLunch,
			Token:              entity.NewToken(),
			CreatedAt:          time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
		},
	}

	buf, err := BuildVoucherWorkbook(vouchers, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Vouchers"}, f.GetSheetList())

	summary, err := f.GetCellValue("Vouchers", "A1")
	require.NoError(t, err)
	assert.Contains(t, summary, "2 total")
	assert.Contains(t, summary, "1 redeemed")

	header, err := f.GetCellValue("Vouchers", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Attendee", header)

	name, err := f.GetCellValue("Vouchers", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Ana Gomez", name)

	meal, err := f.GetCellValue("Vouchers", "D3")
	require.NoError(t, err)
	assert.Equal(t, "BREAKFAST", meal)

	token, err := f.GetCellValue("Vouchers", "E4")
	require.NoError(t, err)
	assert.Equal(t, vouchers[1].Token.String(), token)

	redeemed, err := f.GetCellValue("Vouchers", "H4")
	require.NoError(t, err)
	assert.Empty(t, redeemed, "unredeemed voucher has no redemption time")
}

func TestBuildVoucherWorkbook_Empty(t *testing.T) {
	buf, err := BuildVoucherWorkbook(nil, time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetCellValue("Vouchers", "A1")
	require.NoError(t, err)
	assert.Contains(t, summary, "0 total")
}
