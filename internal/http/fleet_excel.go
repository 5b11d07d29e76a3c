package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"wisefleet-dashboard/internal/domain"
	"wisefleet-dashboard/internal/service"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// FleetExportHeader 导出表头（存储字段 + 派生块）
var FleetExportHeader = []string{
	"Vehicle ID",
	"Make",
	"Model",
	"Year",
	"VIN",
	"Mileage",
	"Next Service Mileage",
	"Fuel Type",
	"Status",
	"Derived Status",
	"Mileage Remaining",
	"Urgency",
}

// FleetImportHeader 导入模板表头（只含可提交的草稿字段）
var FleetImportHeader = []string{
	"Make",
	"Model",
	"Year",
	"VIN",
	"Mileage",
	"Next Service Mileage",
	"Fuel Type",
	"Status",
}

const fleetSheetName = "Fleet"

// GenerateFleetExport 生成当前视图的 Excel 导出
func GenerateFleetExport(vehicles []service.VehicleView) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能 Close

	index, err := f.NewSheet(fleetSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range FleetExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(fleetSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(fleetSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	columnWidths := []float64{
		38, // Vehicle ID
		15, // Make
		20, // Model
		8,  // Year
		22, // VIN
		12, // Mileage
		20, // Next Service Mileage
		12, // Fuel Type
		16, // Status
		16, // Derived Status
		18, // Mileage Remaining
		10, // Urgency
	}
	for i := range FleetExportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if i < len(columnWidths) {
			if err := f.SetColWidth(fleetSheetName, col, col, columnWidths[i]); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for rowIdx, v := range vehicles {
		row := rowIdx + 2 // 第1行是表头
		values := []any{
			v.ID,
			v.Make,
			v.Model,
			yearValue(v.Year),
			v.VIN,
			v.Mileage,
			v.NextServiceMileage,
			v.FuelType,
			v.Status,
			v.Derived.Status,
			v.Derived.MileageRemaining,
			v.Derived.UrgencyTier,
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(fleetSheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(fleetSheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}

func yearValue(year *int) any {
	if year == nil {
		return ""
	}
	return *year
}

// ExportVehicles 导出当前视图为 xlsx
func (h *FleetHandler) ExportVehicles(w http.ResponseWriter, r *http.Request) {
	view := h.engine.View()
	if view == nil {
		writeJSON(w, http.StatusOK, Fail("fleet view not ready"))
		return
	}

	excelData, err := GenerateFleetExport(view.Vehicles)
	if err != nil {
		h.logger.Error("GenerateFleetExport failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate export: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=fleet-export.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(excelData)
}

// ImportVehicles 上传 xlsx，按行转换为草稿后走批量播种路径
func (h *FleetHandler) ImportVehicles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB max
		writeJSON(w, http.StatusOK, Fail("failed to parse form"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("file not found in request"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to read file"))
		return
	}

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to parse Excel file: %v", err)))
		return
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		writeJSON(w, http.StatusOK, Fail("Excel file has no sheets"))
		return
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to read rows: %v", err)))
		return
	}
	if len(rows) < 2 {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"inserted": 0, "total": 0}))
		return
	}

	headerMap := make(map[string]int)
	for i, name := range rows[0] {
		headerMap[strings.TrimSpace(name)] = i
	}

	drafts := make([]domain.VehicleDraft, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		draft, ok := rowToDraft(headerMap, rows[rowIdx])
		if !ok {
			continue // 全空行跳过
		}
		drafts = append(drafts, draft)
	}
	if len(drafts) == 0 {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"inserted": 0, "total": 0}))
		return
	}

	inserted, err := h.engine.Seed(r.Context(), drafts)
	if err != nil {
		h.logger.Error("import aborted",
			zap.Int("inserted", inserted),
			zap.Int("total", len(drafts)),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, FailWith(err.Error(), map[string]any{
			"inserted": inserted,
			"total":    len(drafts),
		}))
		return
	}

	h.logger.Info("fleet imported from Excel",
		zap.Int("inserted", inserted),
		zap.String("sheet", sheetName),
	)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"inserted": inserted,
		"total":    len(drafts),
	}))
}

// rowToDraft 一行转草稿；数值列走宽容解析，空的枚举列取默认值
func rowToDraft(headerMap map[string]int, row []string) (domain.VehicleDraft, bool) {
	get := func(name string) string {
		idx, ok := headerMap[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	draft := domain.VehicleDraft{
		Make:               get("Make"),
		Model:              get("Model"),
		Year:               domain.FlexInt(domain.CoerceInt(get("Year"))),
		VIN:                get("VIN"),
		Mileage:            domain.FlexInt(domain.CoerceInt(get("Mileage"))),
		NextServiceMileage: domain.FlexInt(domain.CoerceInt(get("Next Service Mileage"))),
		FuelType:           get("Fuel Type"),
		Status:             get("Status"),
	}
	if draft.Make == "" && draft.Model == "" && draft.VIN == "" {
		return domain.VehicleDraft{}, false
	}

	if draft.NextServiceMileage == 0 {
		draft.NextServiceMileage = domain.DefaultNextServiceMileage
	}
	if draft.FuelType == "" {
		draft.FuelType = domain.DefaultFuelType
	}
	if draft.Status == "" {
		draft.Status = domain.DefaultStatus
	}
	return draft, true
}
