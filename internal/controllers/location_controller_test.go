package controllers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fleet_allocator/internal/config"
	"fleet_allocator/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupMockDB points the global handle at a sqlmock-backed gorm connection.
func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	config.DB = gormDB
	return mock
}

func newTestContext(body string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/", rd)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func TestIngestSampleAdvancesSnapshot(t *testing.T) {
	mock := setupMockDB(t)
	w, c := newTestContext("")

	alloc := &models.Allocation{Model: gorm.Model{ID: 7}, VehicleID: 3, UnitID: "VIN-001"}
	payload := locationPayload{
		DriverID:  2,
		Latitude:  14.5995,
		Longitude: 120.9842,
		Timestamp: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery(`INSERT INTO "location_samples"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "allocations" SET .+ WHERE .*last_fix_at IS NULL OR last_fix_at <= `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "vehicles" SET .+ WHERE .*last_fix_at IS NULL OR last_fix_at <= `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ingestSample(c, alloc, payload)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A late sample lands in the history, but the timestamp-guarded UPDATE
// matches no row so the snapshot (and the vehicle mirror) stay put.
func TestIngestOutOfOrderSampleKeepsSnapshot(t *testing.T) {
	mock := setupMockDB(t)
	w, c := newTestContext("")

	alloc := &models.Allocation{Model: gorm.Model{ID: 7}, VehicleID: 3, UnitID: "VIN-001"}
	payload := locationPayload{
		Latitude:  14.5995,
		Longitude: 120.9842,
		Timestamp: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery(`INSERT INTO "location_samples"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(`UPDATE "allocations" SET .+ WHERE .*last_fix_at IS NULL OR last_fix_at <= `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ingestSample(c, alloc, payload)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Re-delivery of a fix the history already holds trips the composite unique
// index; the pgx driver reports that as *pgconn.PgError 23505 and the ingest
// answers success without touching the snapshot.
func TestIngestDuplicateSampleIsNoOp(t *testing.T) {
	mock := setupMockDB(t)
	w, c := newTestContext("")

	alloc := &models.Allocation{Model: gorm.Model{ID: 7}, VehicleID: 3, UnitID: "VIN-001"}
	payload := locationPayload{
		Latitude:  14.5995,
		Longitude: 120.9842,
		Timestamp: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery(`INSERT INTO "location_samples"`).
		WillReturnError(&pgconn.PgError{
			Code:    "23505",
			Message: `duplicate key value violates unique constraint "idx_allocation_fix"`,
		})

	ingestSample(c, alloc, payload)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"duplicate":true`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestRejectsInvalidCoordinate(t *testing.T) {
	mock := setupMockDB(t)
	w, c := newTestContext("")

	alloc := &models.Allocation{Model: gorm.Model{ID: 7}, VehicleID: 3}
	payload := locationPayload{Latitude: 91, Longitude: 0, Timestamp: time.Now()}

	ingestSample(c, alloc, payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
