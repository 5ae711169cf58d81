package roster

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/errdefs"
)

// writeRoster writes a roster file whose header row holds the given columns
// and whose data rows follow.
func writeRoster(t *testing.T, columns []string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, 3+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestLoad_ValidSchema(t *testing.T) {
	path := writeRoster(t, requiredColumns[Kind2023], [][]interface{}{
		{"p1", "F", "Doe, Jane"},
	})

	table, err := Load(path, Kind2023, "")
	require.NoError(t, err)
	assert.Equal(t, Kind2023, table.Kind())
	assert.Equal(t, 1, table.Rows())
}

func TestLoad_SchemaMismatch(t *testing.T) {
	columns := append([]string{"Surprise"}, requiredColumns[Kind2023][1:]...)
	path := writeRoster(t, columns, nil)

	_, err := Load(path, Kind2023, "")
	var schemaErr *errdefs.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"ID du patient"}, schemaErr.Missing)
	assert.Equal(t, []string{"Surprise"}, schemaErr.Unexpected)
}

func TestLoad_UnknownKind(t *testing.T) {
	path := writeRoster(t, requiredColumns[Kind2023], nil)

	_, err := Load(path, Kind("log99"), "")
	assert.ErrorIs(t, err, errdefs.ErrConfiguration)
}

func TestLoad_WrongPassword(t *testing.T) {
	// A plain workbook opened with a password set: any open failure while a
	// password is in play reports as a decryption failure.
	_, err := Load(filepath.Join(t.TempDir(), "missing.xlsx"), Kind2018, "s3cret")
	assert.ErrorIs(t, err, errdefs.ErrDecryption)
}

// table builds an in-memory roster for identity tests.
func table(kind Kind, columns []string, rows [][]string) *Table {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return &Table{kind: kind, columns: idx, rows: rows}
}

func newerRoster(rows [][]string) *Table {
	return table(Kind2023, []string{col23Code, col23ID, col23Name, col23Sex}, rows)
}

func olderRoster(rows [][]string) *Table {
	return table(Kind2018, []string{col18Code, col18ID, col18Name, col18Sex}, rows)
}

func TestResolveIdentity_NewerRosterWins(t *testing.T) {
	newer := newerRoster([][]string{{"P12", "100234", "Doe, Jane", "F"}})
	older := olderRoster([][]string{{"C-12", "999", "Old Name", "M"}})

	id := ResolveIdentity("p12", newer, older, zap.NewNop())

	require.NotNil(t, id.ID)
	assert.Equal(t, "100234", *id.ID)
	require.NotNil(t, id.Name)
	assert.Equal(t, "Doe, Jane", *id.Name)
	require.NotNil(t, id.Sex)
	assert.Equal(t, "F", *id.Sex)
}

func TestResolveIdentity_OlderFillsRemaining(t *testing.T) {
	// Newer roster knows the id but has an empty name cell; the older roster
	// fills only what is still missing.
	newer := newerRoster([][]string{{"p12", "100234", "", "F"}})
	older := olderRoster([][]string{{"Cometa-12", "999", "Doe, Jane", "M"}})

	id := ResolveIdentity("p12", newer, older, zap.NewNop())

	require.NotNil(t, id.ID)
	assert.Equal(t, "100234", *id.ID)
	require.NotNil(t, id.Name)
	assert.Equal(t, "Doe, Jane", *id.Name)
	require.NotNil(t, id.Sex)
	assert.Equal(t, "F", *id.Sex, "already resolved fields are not overwritten")
}

func TestResolveIdentity_OlderOnly(t *testing.T) {
	older := olderRoster([][]string{{"EMG-07", "555", "Roe, Rick", "M"}})

	id := ResolveIdentity("p07", nil, older, zap.NewNop())

	require.NotNil(t, id.ID)
	assert.Equal(t, "555", *id.ID)
	require.NotNil(t, id.Name)
	assert.Equal(t, "Roe, Rick", *id.Name)
}

func TestResolveIdentity_NanIsAbsent(t *testing.T) {
	newer := newerRoster([][]string{{"p12", "nan", "nan", "F"}})

	id := ResolveIdentity("p12", newer, nil, zap.NewNop())

	assert.Nil(t, id.ID)
	assert.Nil(t, id.Name)
}

func TestResolveIdentity_NoMatchIsSoft(t *testing.T) {
	newer := newerRoster(nil)
	older := olderRoster(nil)

	id := ResolveIdentity("p99", newer, older, zap.NewNop())

	assert.Nil(t, id.ID)
	assert.Nil(t, id.Name)
	assert.Nil(t, id.Sex)
}
