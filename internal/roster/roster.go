// Package roster loads the two patient registry spreadsheets and resolves a
// patient code to a canonical identity. The registries are incompatible: the
// 2023 roster keys on the full patient code, the 2018 one buries the numeric
// part of the code in a free-text column, and they disagree on every column
// name. Each kind carries a declared schema checked once at load time.
package roster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/errdefs"
)

// Kind names a roster revision.
type Kind string

const (
	// Kind2018 is the older registry, usually password-protected.
	Kind2018 Kind = "log18"
	// Kind2023 is the newer registry.
	Kind2023 Kind = "log23"
)

// headerRow is the 0-based row index holding the column names in both
// roster revisions.
const headerRow = 1

// Columns consulted during identity resolution, per roster kind.
const (
	col18Code = "# Code"
	col18Name = "Nom participant"
	col18Sex  = "Sexe du participant"
	col18ID   = "# Dossier médical"

	col23Code = "ID du patient"
	col23Name = "Nom, Prénom"
	col23Sex  = "Sex"
	col23ID   = "Numéro de dossier CHUM"
)

// requiredColumns is the declared schema of each roster kind. Load rejects a
// file whose header set differs, naming the exact mismatch.
var requiredColumns = map[Kind][]string{
	Kind2018: {
		"# Code",
		"Nom participant",
		"Sexe du participant",
		"# Dossier médical",
		"Date début de la participation",
		"exclu",
		"Date de fin",
		"Commentaires",
		"MD",
		"Chambre",
		"Foyer de la crise",
		"Latéralisation",
		"Sémiologie (a réviser)",
		"Nombre de crise",
		"Date de crise",
		"Annoter",
	},
	Kind2023: {
		"ID du patient",
		"Sex",
		"Nom, Prénom",
		"Âge",
		"Numéro de dossier CHUM",
		"Salle à l'UME",
		"Embrace2 / Emfit",
		"Oui ou non",
		"Hexoskin / BioPoint / Nose / Cometa",
		"Oui / Non",
		"Éligible?",
		"Accepte de participer?",
		"Date de signature du FIC jj/mmm/aaaa",
		"Date and time of seizures jj/mm/aaaa",
		"Date and time of seizures jj/mm/aaaa.1",
		"No.",
		"Number of false alarms",
		"Début de la participation          Visite initiale jj/mmm/aaaa",
		"Fin de la participation jj/mmm/aaaa",
		"Comments on false alarms",
		"Nom",
		"Date jj/mmm/aaaa",
		"nom d'infirmiére",
		"Commentaires",
	},
}

// Table is a loaded, schema-validated roster.
type Table struct {
	kind    Kind
	columns map[string]int
	rows    [][]string
}

// Kind returns the roster revision of the table.
func (t *Table) Kind() Kind { return t.kind }

// Rows returns the number of data rows.
func (t *Table) Rows() int { return len(t.rows) }

// value reads the named column of a row, "" when out of range.
func (t *Table) value(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Load reads a roster spreadsheet of the given kind. A non-empty password
// decrypts a protected file; a failure to open under a password maps to the
// decryption error. The header set must match the declared schema exactly.
func Load(path string, kind Kind, password string) (*Table, error) {
	if _, ok := requiredColumns[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown roster kind %q, use %q or %q",
			errdefs.ErrConfiguration, kind, Kind2018, Kind2023)
	}

	f, err := excelize.OpenFile(path, excelize.Options{Password: password})
	if err != nil {
		if password != "" {
			return nil, fmt.Errorf("%w: wrong password or corrupted file %s: %v",
				errdefs.ErrDecryption, path, err)
		}
		return nil, fmt.Errorf("failed to open roster %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read roster %s: %w", path, err)
	}
	if len(rows) <= headerRow {
		return nil, fmt.Errorf("roster %s has no header row at offset %d", path, headerRow)
	}

	table := &Table{
		kind:    kind,
		columns: make(map[string]int),
		rows:    rows[headerRow+1:],
	}
	for i, header := range rows[headerRow] {
		table.columns[strings.TrimSpace(header)] = i
	}

	if err := validateColumns(table.columns, kind); err != nil {
		return nil, err
	}
	return table, nil
}

// validateColumns checks the header set against the declared schema for the
// kind, reporting the precise missing and unexpected column sets.
func validateColumns(columns map[string]int, kind Kind) error {
	expected := make(map[string]bool, len(requiredColumns[kind]))
	for _, name := range requiredColumns[kind] {
		expected[name] = true
	}

	var missing, unexpected []string
	for name := range expected {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range columns {
		if !expected[name] {
			unexpected = append(unexpected, name)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unexpected)
	return &errdefs.SchemaError{Kind: string(kind), Missing: missing, Unexpected: unexpected}
}
