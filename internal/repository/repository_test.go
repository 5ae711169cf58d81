package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/annotations"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/vault"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *VaultRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewVaultRepository(db, logger)

	return db, mock, repo
}

func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }
func intPtr(n int) *int              { return &n }

func TestSavePatients_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []vault.PatientRecord{
		{
			PatientNum:  "p1",
			PatientID:   strPtr("100234"),
			PatientName: strPtr("Doe, Jane"),
			PatientSex:  strPtr("F"),
			StartDate:   timePtr(start),
			NumSeizures: 2,
		},
		{
			PatientNum:  "p2",
			NumSeizures: 0,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO patients`).
		WithArgs("p1", records[0].PatientID, records[0].PatientName,
			records[0].PatientSex, records[0].StartDate, nil, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO patients`).
		WithArgs("p2", nil, nil, nil, nil, nil, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SavePatients(context.Background(), records)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePatients_RollsBackOnFailure(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	records := []vault.PatientRecord{
		{PatientNum: "p1"},
		{PatientNum: "p2"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO patients`).
		WithArgs("p1", nil, nil, nil, nil, nil, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO patients`).
		WithArgs("p2", nil, nil, nil, nil, nil, 0).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SavePatients(context.Background(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p2")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSeizures_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	date := time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	onset := time.Date(2021, 1, 2, 10, 0, 0, 0, time.UTC)
	events := []annotations.Event{
		{
			PatientNum:    "p1",
			SeizureID:     intPtr(1),
			Type:          "FIAS",
			Date:          timePtr(date),
			ElectricOnset: timePtr(onset),
		},
		{
			PatientNum: "p1",
			SeizureID:  intPtr(2),
			Type:       "FBTC",
		},
		{
			PatientNum: "p2",
			Type:       "FIAS",
		},
	}

	mock.ExpectBegin()
	// Each covered patient is cleared exactly once before the inserts.
	mock.ExpectExec(`DELETE FROM seizures`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM seizures`).
		WithArgs("p2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO seizures`).
		WithArgs("p1", events[0].SeizureID, "FIAS", events[0].Date,
			events[0].ElectricOnset, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO seizures`).
		WithArgs("p1", events[1].SeizureID, "FBTC", nil, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO seizures`).
		WithArgs("p2", nil, "FIAS", nil, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SaveSeizures(context.Background(), events)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSeizures_Empty(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := repo.SaveSeizures(context.Background(), nil)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
