package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSettingsMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSettingsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresSettingsRepository(db)
}

func TestGetSetting_Success(t *testing.T) {
	db, mock, repo := setupSettingsMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT setting_value FROM tenant_settings`).
		WithArgs("tenant-1", "solumArticleFormat").
		WillReturnRows(sqlmock.NewRows([]string{"setting_value"}).
			AddRow([]byte(`{"1":"articleId"}`)))

	value, err := repo.GetSetting(context.Background(), "tenant-1", "solumArticleFormat")
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":"articleId"}`, string(value))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSetting_NotFound(t *testing.T) {
	db, mock, repo := setupSettingsMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT setting_value FROM tenant_settings`).
		WithArgs("tenant-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSetting(context.Background(), "tenant-1", "missing")
	require.Error(t, err)
	// format 三层查找靠 errors.Is 区分"没存过"和"库故障"
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSetting_Upsert(t *testing.T) {
	db, mock, repo := setupSettingsMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO tenant_settings`).
		WithArgs("tenant-1", "solumArticleFormat", `{"1":"articleId"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveSetting(context.Background(), "tenant-1", "solumArticleFormat", json.RawMessage(`{"1":"articleId"}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSetting_RejectsEmptyValue(t *testing.T) {
	db, _, repo := setupSettingsMockDB(t)
	defer db.Close()

	err := repo.SaveSetting(context.Background(), "tenant-1", "solumArticleFormat", nil)
	assert.Error(t, err)
}
