package controllers

import (
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

// A second intake of the same unit_id trips the unique index and maps to a
// conflict, not a server error.
func TestAddStockDuplicateUnitID(t *testing.T) {
	mock := setupMockDB(t)
	w, c := newTestContext(`{"unit_id":"VIN-001","unit_name":"Hilux G"}`)

	mock.ExpectQuery(`INSERT INTO "vehicles"`).
		WillReturnError(&pgconn.PgError{
			Code:    "23505",
			Message: `duplicate key value violates unique constraint "uni_vehicles_unit_id"`,
		})

	AddStock(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "unit_id already registered")
	assert.NoError(t, mock.ExpectationsWereMet())
}
