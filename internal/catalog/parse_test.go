package catalog

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes rows to a single-sheet xlsx buffer.
func buildWorkbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

var workbookHeader = []any{"Carro", "Tipo Chassi", "Amarela", "Verde", "Ouro", "Tanque"}

func TestParse_Workbook(t *testing.T) {
	data := buildWorkbook(t, "PARAMETROS", [][]any{
		workbookHeader,
		{"101", "CONVENCIONAL", "2,0", "2,4", "2,8", "275"},
		{"205", "padrao", "1.8", "2.1", "2.5", ""},
		{"", "ARTICULADO", "9", "9", "9", ""}, // blank id: dropped
	})

	cat, err := Parse("parametros.xlsx", data, "PARAMETROS")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(cat) != 2 {
		t.Fatalf("catalog size = %d, want 2", len(cat))
	}
	if cat["101"].ChassisType != ChassisConvencional {
		t.Errorf("101 chassis = %q, want CONVENCIONAL", cat["101"].ChassisType)
	}
	if cat["205"].ChassisType != ChassisPadrao {
		t.Errorf("205 chassis = %q, want PADRÃO tier", cat["205"].ChassisType)
	}
	if cat["101"].ContentHash == "" || cat["205"].ContentHash == "" {
		t.Error("parsed records must carry a content hash")
	}
}

func TestParse_SheetSelection(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	// First sheet holds unrelated data, second holds the parameters.
	if _, err := f.NewSheet("Parametros"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	row := workbookHeader
	if err := f.SetSheetRow("Parametros", "A1", &row); err != nil {
		t.Fatalf("write header: %v", err)
	}
	data := []any{"101", "CONVENCIONAL", "2", "2.4", "2.8", ""}
	if err := f.SetSheetRow("Parametros", "A2", &data); err != nil {
		t.Fatalf("write row: %v", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	// Preferred name matches ignoring case and padding.
	cat, err := Parse("upload.xlsx", buf.Bytes(), " PARAMETROS ")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := cat["101"]; !ok {
		t.Error("preferred sheet was not selected")
	}
}

func TestParse_FallsBackToFirstSheet(t *testing.T) {
	data := buildWorkbook(t, "Plan1", [][]any{
		workbookHeader,
		{"330", "ARTICULADO", "1,9", "2,2", "2,6", "300"},
	})

	cat, err := Parse("upload.xlsx", data, "NAO_EXISTE")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := cat["330"]; !ok {
		t.Error("parser did not fall back to the first sheet")
	}
}

func TestParse_NoValidVehicles(t *testing.T) {
	data := buildWorkbook(t, "PARAMETROS", [][]any{
		workbookHeader,
		{"", "CONVENCIONAL", "2", "2", "2", ""},
		{"sem-digitos", "PADRAO", "1", "1", "1", ""},
	})

	_, err := Parse("upload.xlsx", data, "")
	if !errors.Is(err, ErrNoValidVehicles) {
		t.Errorf("Parse() error = %v, want ErrNoValidVehicles", err)
	}
}

func TestParse_CorruptBuffer(t *testing.T) {
	if _, err := Parse("upload.xlsx", []byte("not a workbook"), ""); err == nil {
		t.Error("Parse() accepted a corrupt buffer")
	}
}

func TestParse_CSV(t *testing.T) {
	csvData := []byte("CARRO,TIPO,AMARELA,VERDE,OURO,TANQUE\n" +
		"101,CONVENCIONAL,\"2,0\",\"2,4\",\"2,8\",275\n" +
		"205,padrao,1.8,2.1,2.5,\n")

	cat, err := Parse("parametros.csv", csvData, "")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(cat) != 2 {
		t.Fatalf("catalog size = %d, want 2", len(cat))
	}
	if cat["101"].Yellow != 2.0 {
		t.Errorf("101 yellow = %v, want 2.0", cat["101"].Yellow)
	}
}

// Excel "CSV UTF-8" exports start with a byte-order mark; the header must
// still match so the rows keep their vehicle identifiers.
func TestParse_BOMPrefixedCSV(t *testing.T) {
	csvData := []byte("\xef\xbb\xbf" +
		"CARRO,TIPO,AMARELA,VERDE,OURO,TANQUE\n" +
		"101,CONVENCIONAL,2,\"2,4\",\"2,8\",275\n")

	cat, err := Parse("parametros.csv", csvData, "")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	rec, ok := cat["101"]
	if !ok {
		t.Fatal("vehicle 101 missing: BOM broke header matching")
	}
	if rec.Green != 2.4 {
		t.Errorf("101 green = %v, want 2.4", rec.Green)
	}
}

// Re-parsing an export of the same logical data yields an empty diff.
func TestParse_RoundTrip(t *testing.T) {
	csvData := []byte("CARRO,TIPO,AMARELA,VERDE,OURO\n101,CONVENCIONAL,2,2.4,2.8\n")

	first, err := Parse("a.csv", csvData, "")
	if err != nil {
		t.Fatalf("first Parse() error = %v", err)
	}
	second, err := Parse("b.csv", csvData, "")
	if err != nil {
		t.Fatalf("second Parse() error = %v", err)
	}

	d := DiffCatalogs(first, second)
	if d.HasChanges() {
		t.Errorf("round-trip diff not empty: added=%d removed=%d changed=%d",
			len(d.Added), len(d.Removed), len(d.Changed))
	}
}
