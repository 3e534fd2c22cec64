package sqlxrepos

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
)

func TestTrapNoRowsErr(t *testing.T) {
	assert.Nil(t, trapNoRowsErr(nil, attendance.ErrNotFound))
	assert.Equal(t, attendance.ErrNotFound, trapNoRowsErr(sql.ErrNoRows, attendance.ErrNotFound))
	assert.Equal(t, calendar.ErrNotFound, trapNoRowsErr(errors.Wrap(sql.ErrNoRows, "get"), calendar.ErrNotFound))

	other := errors.New("connection refused")
	assert.Equal(t, other, trapNoRowsErr(other, attendance.ErrNotFound))
}

func TestIn(t *testing.T) {
	db := sqlx.NewDb(nil, "postgres")

	q, args, err := in(db, "SELECT id FROM t WHERE a IN (?) AND b >= ?", []int64{1, 2, 3}, calendar.MustParseDate("2025-03-03"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE a IN ($1, $2, $3) AND b >= $4", q)
	assert.Len(t, args, 4)
}

func TestCalendarRepository_WithinTx_nested(t *testing.T) {
	inTx := &calendarRepository{ext: sqlx.NewDb(nil, "postgres")}

	var called calendar.Repository
	err := inTx.WithinTx(context.Background(), func(repo calendar.Repository) error {
		called = repo
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, inTx, called)

	failed := errors.New("insert failed")
	err = inTx.WithinTx(context.Background(), func(calendar.Repository) error { return failed })
	assert.Equal(t, failed, err)
}
