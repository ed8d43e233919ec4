package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutordesk/tutordesk-api/internal/middleware"
	"github.com/tutordesk/tutordesk-api/internal/models"
	"github.com/tutordesk/tutordesk-api/internal/service"
)

type fakeAttendanceSrv struct {
	sheet     *models.AttendanceSheet
	sheetErr  error
	result    *models.AttendanceSaveResult
	saveErr   error
	lastBuild struct {
		tutorID  string
		classID  string
		month    string
		override []string
	}
	lastSave service.SaveAttendanceSheetRequest
}

func (f *fakeAttendanceSrv) BuildSheet(_ context.Context, tutorID, classID, monthLabel string, override []string) (*models.AttendanceSheet, error) {
	f.lastBuild.tutorID = tutorID
	f.lastBuild.classID = classID
	f.lastBuild.month = monthLabel
	f.lastBuild.override = override
	return f.sheet, f.sheetErr
}

func (f *fakeAttendanceSrv) SaveSheet(_ context.Context, tutorID string, req service.SaveAttendanceSheetRequest) (*models.AttendanceSaveResult, error) {
	f.lastSave = req
	return f.result, f.saveErr
}

func authedContext(t *testing.T, rec *httptest.ResponseRecorder) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(rec)
	c.Set(middleware.ContextUserKey, &models.TutorClaims{TutorID: "tutor-1"})
	return c
}

func TestAttendanceSheetRequiresMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{}, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/classes/class-1/attendance", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	handler.Sheet(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendanceSheetRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{}, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/classes/class-1/attendance?month=Aug+2025", nil)

	handler.Sheet(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttendanceSheetPassesOverrideDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttendanceSrv{sheet: &models.AttendanceSheet{
		ClassID: "class-1",
		Month:   "Aug 2025",
		Dates:   []string{"2025-08-05"},
		Source:  models.DateSourceOverride,
	}}
	handler := NewAttendanceHandler(srv, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/classes/class-1/attendance?month=Aug+2025&dates=2025-08-05&dates=2025-08-12", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	handler.Sheet(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tutor-1", srv.lastBuild.tutorID)
	assert.Equal(t, "class-1", srv.lastBuild.classID)
	assert.Equal(t, "Aug 2025", srv.lastBuild.month)
	assert.Equal(t, []string{"2025-08-05", "2025-08-12"}, srv.lastBuild.override)
}

func TestAttendanceSaveReturnsResult(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttendanceSrv{result: &models.AttendanceSaveResult{Updated: 3, Month: "Aug 2025"}}
	handler := NewAttendanceHandler(srv, service.NewMetricsService())

	body, _ := json.Marshal(service.SaveAttendanceSheetRequest{
		ClassID: "class-1",
		Month:   "Aug 2025",
		Students: []service.SheetStudentInput{
			{ID: "student-1", Days: map[string]bool{"2025-08-05": true}},
		},
	})
	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/attendance", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Save(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.AttendanceSaveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.Updated)
	assert.Equal(t, "Aug 2025", envelope.Data.Month)
	assert.Equal(t, "class-1", srv.lastSave.ClassID)
}

func TestAttendanceSaveRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{}, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/attendance", bytes.NewReader([]byte("{")))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Save(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
