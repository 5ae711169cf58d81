package roster

import (
	"strings"

	"go.uber.org/zap"
)

// Identity is the canonical identity resolved for a patient code. Fields stay
// nil when neither roster could supply them.
type Identity struct {
	ID   *string
	Name *string
	Sex  *string
}

// absent reports cell values that stand for "no data": empty cells and the
// literal "nan" the 2018 roster's string coercion leaves behind.
func absent(v string) bool {
	return v == "" || strings.EqualFold(v, "nan")
}

func cellPtr(v string) *string {
	if absent(v) {
		return nil
	}
	return &v
}

// ResolveIdentity cross-references a patient code against both rosters: the
// newer one first on an exact case-insensitive code match, then the older one
// on a substring match of the code's numeric suffix, filling only the fields
// still unresolved. An unmatched patient keeps nil fields and gets a
// diagnostic; resolution never fails.
func ResolveIdentity(code string, newer, older *Table, logger *zap.Logger) Identity {
	var identity Identity

	if newer != nil {
		for _, row := range newer.rows {
			if !strings.EqualFold(newer.value(row, col23Code), code) {
				continue
			}
			identity.ID = cellPtr(newer.value(row, col23ID))
			identity.Name = cellPtr(newer.value(row, col23Name))
			identity.Sex = cellPtr(newer.value(row, col23Sex))
			break
		}
	}

	if older != nil && (identity.ID == nil || identity.Name == nil) {
		suffix := strings.ToLower(strings.TrimPrefix(strings.ToLower(code), "p"))
		for _, row := range older.rows {
			if !strings.Contains(strings.ToLower(older.value(row, col18Code)), suffix) {
				continue
			}
			if identity.ID == nil {
				identity.ID = cellPtr(older.value(row, col18ID))
			}
			if identity.Name == nil {
				identity.Name = cellPtr(older.value(row, col18Name))
			}
			if identity.Sex == nil {
				identity.Sex = cellPtr(older.value(row, col18Sex))
			}
			break
		}
	}

	if identity.ID == nil {
		logger.Warn("no roster match for patient ID", zap.String("patient", code))
	}
	if identity.Name == nil {
		logger.Warn("no roster match for patient name", zap.String("patient", code))
	}
	return identity
}
