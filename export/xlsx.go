// Package export renders the spool inventory as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the inventory
const SheetName = "Inventory"

// Headers are the column titles, in column order
var Headers = []string{
	"ID", "Brand", "Type", "Color", "Color Name",
	"Weight (g)", "Remaining (g)", "Price",
	"Nozzle Min", "Nozzle Max", "Flow Ratio", "Pressure Advance", "Max Vol. Speed",
	"Default Plate", "Plate Initial", "Plate Other",
	"Prints", "Created At", "Updated At",
}

func row(f models.Filament) []any {
	plate, _ := f.BedSettings.Get(f.DefaultPlate)
	return []any{
		f.ID, f.Brand, f.Type, f.Color, f.ColorName,
		f.Weight, f.Remaining, f.Price,
		f.TempMin, f.TempMax, f.FlowRatio, f.PressureAdvance, f.MaxVolumetricSpeed,
		string(f.DefaultPlate), plate.Initial, plate.Other,
		len(f.History), f.CreatedAt, f.UpdatedAt,
	}
}

// WriteInventory writes filaments as an XLSX workbook to w
func WriteInventory(w io.Writer, filaments []models.Filament) error {
	f := excelize.NewFile()
	defer f.Close()

	// A new workbook starts with a single "Sheet1"
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &Headers); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, fil := range filaments {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := row(fil)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	for i := range Headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(SheetName, col, col, 15)
	}

	return f.Write(w)
}
