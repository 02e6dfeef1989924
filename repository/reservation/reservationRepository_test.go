package reservation

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemreserve/model"
)

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := New(db)

	cases := [][2]model.ReservationStatus{
		{model.ReservationUsed, model.ReservationActive},
		{model.ReservationExpired, model.ReservationScheduled},
		{model.ReservationCancelled, model.ReservationCancelled},
		{model.ReservationConflicted, model.ReservationUsed},
	}
	for _, c := range cases {
		ok, err := r.UpdateStatus(context.Background(), db, 1, c[0], c[1])
		assert.Error(t, err, "%s -> %s must be rejected", c[0], c[1])
		assert.False(t, ok)
	}

	// None of the rejected moves may reach the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusExecutesLegalTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := New(db)

	mock.ExpectExec("UPDATE reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := r.UpdateStatus(context.Background(), db, 1,
		model.ReservationScheduled, model.ReservationUsed)
	require.NoError(t, err)
	assert.True(t, ok)

	// CAS miss: row no longer in the expected status.
	mock.ExpectExec("UPDATE reservations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = r.UpdateStatus(context.Background(), db, 1,
		model.ReservationActive, model.ReservationExpired)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
