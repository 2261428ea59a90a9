package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/postgres"
)

func setupMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return postgres.NewFromDB(mockDB), mock
}

func ptr(v float64) *float64 { return &v }
