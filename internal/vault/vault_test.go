package vault

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/annotations"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/errdefs"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/roster"
)

var eventHeaders = []interface{}{
	"Seizure_Classification", "Seizure_count", "Seizure_Date",
	"Electric_Onset", "Clinical_Onset", "Generalization", "Motor_Onset", "End",
}

type sheetDef struct {
	rows     [][]interface{}
	noHeader bool
}

func writeWorkbook(t *testing.T, sheets map[string]sheetDef) *annotations.Workbook {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Legend"))
	for patient, def := range sheets {
		_, err := f.NewSheet(patient)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(patient, "B1", "2021-01-01"))
		require.NoError(t, f.SetCellValue(patient, "B2", "2021-01-15"))
		if !def.noHeader {
			require.NoError(t, f.SetSheetRow(patient, "A5", &eventHeaders))
		}
		for i, row := range def.rows {
			cell, err := excelize.CoordinatesToCellName(1, 6+i)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(patient, cell, &row))
		}
	}
	path := filepath.Join(t.TempDir(), "annotations.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := annotations.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { wb.Close() })
	return wb
}

func newerRoster(t *testing.T, rows [][]interface{}) *roster.Table {
	t.Helper()

	f := excelize.NewFile()
	header := make([]interface{}, 0, 24)
	for _, c := range []string{
		"ID du patient", "Sex", "Nom, Prénom", "Âge", "Numéro de dossier CHUM",
		"Salle à l'UME", "Embrace2 / Emfit", "Oui ou non",
		"Hexoskin / BioPoint / Nose / Cometa", "Oui / Non", "Éligible?",
		"Accepte de participer?", "Date de signature du FIC jj/mmm/aaaa",
		"Date and time of seizures jj/mm/aaaa",
		"Date and time of seizures jj/mm/aaaa.1", "No.",
		"Number of false alarms",
		"Début de la participation          Visite initiale jj/mmm/aaaa",
		"Fin de la participation jj/mmm/aaaa", "Comments on false alarms",
		"Nom", "Date jj/mmm/aaaa", "nom d'infirmiére", "Commentaires",
	} {
		header = append(header, c)
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, 3+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "log23.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := roster.Load(path, roster.Kind2023, "")
	require.NoError(t, err)
	return table
}

func twoPatientSheets() map[string]sheetDef {
	return map[string]sheetDef{
		"p1": {rows: [][]interface{}{
			{"FIAS", 1, "2021-01-02", "10:00:00", "", "", "", "10:02:00"},
			{"FBTC", 2, "2021-01-03", "11:00:00", "", "", "", ""},
		}},
		"p2": {rows: [][]interface{}{
			{"FIAS", 1, "2021-01-05", "09:00:00", "", "", "", ""},
		}},
	}
}

func TestBuildPatientTable_RequiresARoster(t *testing.T) {
	b := NewBuilder(writeWorkbook(t, twoPatientSheets()), zap.NewNop())

	_, _, err := b.BuildPatientTable([]string{"p1"}, nil, nil, nil)
	assert.ErrorIs(t, err, errdefs.ErrConfiguration)
}

func TestBuildPatientTable(t *testing.T) {
	wb := writeWorkbook(t, twoPatientSheets())
	newer := newerRoster(t, [][]interface{}{
		{"p1", "F", "Doe, Jane", 34, "100234"},
	})
	b := NewBuilder(wb, zap.NewNop())

	records, diags, err := b.BuildPatientTable([]string{"p1", "p2"}, nil, newer, nil)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, records, 2)

	p1 := records[0]
	assert.Equal(t, "p1", p1.PatientNum)
	require.NotNil(t, p1.PatientID)
	assert.Equal(t, "100234", *p1.PatientID)
	require.NotNil(t, p1.PatientName)
	assert.Equal(t, "Doe, Jane", *p1.PatientName)
	assert.Equal(t, 2, p1.NumSeizures)
	assert.Equal(t, map[string]int{"FIAS": 1, "FBTC": 1}, p1.SeizureCounts)
	require.NotNil(t, p1.StartDate)
	assert.Equal(t, 1, p1.StartDate.Day())
	require.NotNil(t, p1.EndDate)
	assert.Equal(t, 15, p1.EndDate.Day())

	p2 := records[1]
	assert.Nil(t, p2.PatientID, "p2 is not in the roster")
	assert.Equal(t, 1, p2.NumSeizures)
}

func TestBuildPatientTable_DropsUnmatchedFilter(t *testing.T) {
	wb := writeWorkbook(t, twoPatientSheets())
	newer := newerRoster(t, nil)
	b := NewBuilder(wb, zap.NewNop())

	// p2 has no FBTC events: its filtered count resolves to "no qualifying
	// events" and the patient is excluded.
	records, _, err := b.BuildPatientTable([]string{"p1", "p2"}, []string{"FBTC"}, newer, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p1", records[0].PatientNum)
	assert.Equal(t, 1, records[0].NumSeizures)
}

func TestBuildPatientTable_KeepsGenuineZero(t *testing.T) {
	sheets := twoPatientSheets()
	sheets["p3"] = sheetDef{} // header only, no events
	wb := writeWorkbook(t, sheets)
	b := NewBuilder(wb, zap.NewNop())

	records, _, err := b.BuildPatientTable([]string{"p3"}, nil, newerRoster(t, nil), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].NumSeizures)
}

func TestBuildEventTable(t *testing.T) {
	b := NewBuilder(writeWorkbook(t, twoPatientSheets()), zap.NewNop())

	events, diags := b.BuildEventTable([]string{"p1", "p2"}, nil)
	assert.Empty(t, diags)
	require.Len(t, events, 3)

	var patients []string
	for _, e := range events {
		patients = append(patients, e.PatientNum)
	}
	assert.ElementsMatch(t, []string{"p1", "p1", "p2"}, patients)
}

func TestBuildEventTable_MalformedSheetIsSkipped(t *testing.T) {
	sheets := twoPatientSheets()
	sheets["p9"] = sheetDef{noHeader: true} // no header row at the offset
	b := NewBuilder(writeWorkbook(t, sheets), zap.NewNop())

	events, diags := b.BuildEventTable([]string{"p1", "p9", "p2"}, nil)

	// The malformed patient is diagnosed; the other two survive intact.
	require.Len(t, diags, 1)
	assert.Equal(t, "p9", diags[0].Patient)
	assert.Error(t, diags[0].Err)
	assert.NotEmpty(t, diags[0].Stack)
	require.Len(t, events, 3)
	for _, e := range events {
		assert.NotEqual(t, "p9", e.PatientNum)
	}
}

func TestBuildEventTable_MissingSheetIsSkipped(t *testing.T) {
	b := NewBuilder(writeWorkbook(t, twoPatientSheets()), zap.NewNop())

	events, diags := b.BuildEventTable([]string{"p1", "p404"}, nil)
	require.Len(t, diags, 1)
	assert.Equal(t, "p404", diags[0].Patient)
	assert.Len(t, events, 2)
}
