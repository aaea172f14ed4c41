package migration

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnistore/internal/logging"
)

func TestEnsureMigrated(t *testing.T) {
	logging.SetOutput(io.Discard)
	defer logging.SetOutput(os.Stdout)

	ctx := context.Background()

	t.Run("skips when schema exists", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").
			WithArgs(sentinelTable).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		assert.NoError(t, EnsureMigrated(ctx, db, time.UTC, "localhost"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("runs every step under the lock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").
			WithArgs(sentinelTable).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(lockID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT to_regclass").
			WithArgs(sentinelTable).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		for range steps {
			mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.ExpectCommit()

		assert.NoError(t, EnsureMigrated(ctx, db, time.UTC, "localhost"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("another instance migrated while waiting for the lock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectCommit()

		assert.NoError(t, EnsureMigrated(ctx, db, time.UTC, "localhost"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failing step rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE EXTENSION").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))
		mock.ExpectRollback()

		err = EnsureMigrated(ctx, db, time.UTC, "localhost")
		assert.ErrorContains(t, err, "migration step create_table_users failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		err = EnsureMigrated(ctx, db, time.UTC, "localhost")
		assert.ErrorContains(t, err, "acquire migration lock: lock timeout")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sentinel check error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").WillReturnError(errors.New("conn reset"))

		err = EnsureMigrated(ctx, db, time.UTC, "localhost")
		assert.ErrorContains(t, err, "failed to check sentinel table")
	})
}
