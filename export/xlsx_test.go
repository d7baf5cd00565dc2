package export

import (
	"bytes"
	"testing"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteInventory(t *testing.T) {
	spools := []models.Filament{
		{
			ID: "a", Brand: "Bambu Lab", Type: "PLA Basic", Color: "#000000", ColorName: "Black",
			Weight: 1000, Remaining: 640.5, Price: 19.99, TempMin: 190, TempMax: 230, FlowRatio: 0.98,
			DefaultPlate: models.PlateTextured, BedSettings: models.DefaultBedSettings(),
			History: []models.PrintHistory{{ID: "j", Name: "Benchy", Weight: 15}},
		},
		{ID: "b", Brand: "eSUN", Type: "PETG"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteInventory(&buf, spools))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "Bambu Lab", rows[1][1])
	assert.Equal(t, "640.5", rows[1][6])
	assert.Equal(t, "textured", rows[1][13])
	assert.Equal(t, "65", rows[1][14])
	assert.Equal(t, "1", rows[1][16])
	assert.Equal(t, "eSUN", rows[2][1])
}

func TestWriteInventory_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInventory(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
