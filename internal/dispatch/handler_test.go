package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/logger"
	"relay/internal/tenant"
	apperrors "relay/pkg/errors"
)

func newTestRouter(f *serviceFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(f.service, logger.NopLogger()).RegisterRoutes(router)
	return router
}

func postDispatch(t *testing.T, router *gin.Engine, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	return recorder, response
}

func dispatchPayload() map[string]interface{} {
	return map[string]interface{}{
		"type": "asset.changed",
		"data": map[string]interface{}{
			"host": "content.example.com",
			"path": "/docs/report.pdf",
		},
	}
}

func TestHandler_MissingRequiredInput(t *testing.T) {
	router := newTestRouter(newServiceFixture(eligibleRecord(nil), nil))

	recorder, response := postDispatch(t, router, map[string]interface{}{
		"type": "asset.changed",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "missing required input", response["error"])
	assert.Equal(t, apperrors.ErrValidation.Code, response["error_code"])
}

func TestHandler_SubscriberFormatErrorIsBadRequest(t *testing.T) {
	record := eligibleRecord(map[string]interface{}{
		MetadataKeySubscribers: map[string]interface{}{"tenant-1": true},
	})
	router := newTestRouter(newServiceFixture(record, nil))

	recorder, response := postDispatch(t, router, dispatchPayload())

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, apperrors.ErrTenantFormat.Code, response["error_code"])
}

func TestHandler_NoopResponse(t *testing.T) {
	record := eligibleRecord(nil)
	record.Metadata[MetadataKeySyncFlag] = false
	router := newTestRouter(newServiceFixture(record, nil))

	recorder, response := postDispatch(t, router, dispatchPayload())

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "asset change not eligible for sync", response["message"])
	assert.Equal(t, string(StatusNoop), response["status"])
}

func TestHandler_CompletedResponse(t *testing.T) {
	f := newServiceFixture(eligibleRecord(nil), map[string]*tenant.Record{
		"tenant-1": enabledTenant("tenant-1"),
		"tenant-2": enabledTenant("tenant-2"),
	})
	router := newTestRouter(f)

	recorder, response := postDispatch(t, router, dispatchPayload())

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "dispatch completed", response["message"])
	assert.Equal(t, string(StatusCompleted), response["status"])
	assert.Equal(t, string(ClassificationNew), response["classification"])
	assert.Equal(t, float64(2), response["delivered"])

	outcomes, ok := response["outcomes"].([]interface{})
	require.True(t, ok)
	assert.Len(t, outcomes, 2)
}

func TestHandler_WrongEventTypeIsError(t *testing.T) {
	router := newTestRouter(newServiceFixture(eligibleRecord(nil), nil))

	payload := dispatchPayload()
	payload["type"] = "user.created"
	recorder, response := postDispatch(t, router, payload)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, apperrors.ErrWrongEventType.Code, response["error_code"])
}
