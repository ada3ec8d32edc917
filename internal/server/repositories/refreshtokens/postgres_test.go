package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQuery = `(?s)^INSERT\s+INTO\s+refresh_tokens\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`
	findQuery   = `(?s)^SELECT\s+id,\s*user_id,\s*expires_at,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s*$`
	deleteQuery = `(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s*$`
	purgeQuery  = `(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+expires_at\s*<\s*\$1\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	expires := time.Now().Add(30 * time.Minute)

	mock.ExpectExec(insertQuery).
		WithArgs("u1", "tok123", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertQuery).
		WithArgs("u1", "tok456", expires).
		WillReturnError(errors.New("db down"))

	require.NoError(t, repo.Create(context.Background(), "u1", "tok123", expires))

	err := repo.Create(context.Background(), "u1", "tok456", expires)
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFind(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	expires := time.Now().Add(10 * time.Minute)
	created := time.Now()

	mock.ExpectQuery(findQuery).WithArgs("tok123").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "created_at"}).
			AddRow("rt-1", "u1", expires, created))
	mock.ExpectQuery(findQuery).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(findQuery).WithArgs("broken").WillReturnError(errors.New("db err"))

	got, err := repo.Find(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "tok123", got.Token)
	assert.True(t, got.Expires.Equal(expires))

	_, err = repo.Find(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.Find(context.Background(), "broken")
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db err`, err.Error())
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(deleteQuery).WithArgs("tok123").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteQuery).WithArgs("tok123").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(deleteQuery).WithArgs("tok999").WillReturnError(errors.New("db err"))

	require.NoError(t, repo.Delete(context.Background(), "tok123"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "tok123"), common.ErrorNotFound)

	err := repo.Delete(context.Background(), "tok999")
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db err`, err.Error())
}

func TestDeleteExpired(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectExec(purgeQuery).WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
