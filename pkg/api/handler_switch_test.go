package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detrin/sentinel/pkg/models"
)

const createSwitchBody = `{
	"name": "db-backup",
	"description": "nightly pg_dump watchdog",
	"timeout_seconds": 86400,
	"trigger_count_max": 3,
	"trigger_interval_seconds": 3600,
	"warning_stages": [3600, 7200],
	"warning_actions": [
		{"action_type": "email", "config": {"bcc": ["ops@example.com"], "subject": "check in", "body": "deadline approaching"}}
	],
	"final_actions": [
		{"action_type": "webhook", "config": {"url": "https://hooks.example.com/fire", "method": "POST"}}
	]
}`

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateSwitchHandler(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/switches", createSwitchBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.CreateSwitchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	_, err := uuid.Parse(resp.SwitchID)
	assert.NoError(t, err)
	assert.Len(t, resp.APIToken, 64)

	// The detail endpoint returns the full aggregate but never the token.
	detailRec := doRequest(e, http.MethodGet, "/switches/"+resp.SwitchID, "")
	require.Equal(t, http.StatusOK, detailRec.Code)

	var detail models.SwitchDetail
	require.NoError(t, json.Unmarshal(detailRec.Body.Bytes(), &detail))
	assert.Equal(t, "db-backup", detail.Switch.Name)
	assert.Equal(t, models.SwitchStatusActive, detail.Switch.Status)
	assert.Len(t, detail.WarningStages, 2)
	assert.Len(t, detail.WarningActions, 1)
	assert.Len(t, detail.FinalActions, 1)
	assert.Empty(t, detail.ExecutionHistory)

	assert.NotContains(t, detailRec.Body.String(), "api_token")
	assert.NotContains(t, detailRec.Body.String(), resp.APIToken)
}

func TestCreateSwitchHandler_InvalidBody(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/switches", `{"name": "broken"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, rec.Body.String())
}

func TestCreateSwitchHandler_Validation(t *testing.T) {
	e, _ := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		errField string
	}{
		{
			"zero trigger interval",
			`{"name": "x", "timeout_seconds": 60, "trigger_count_max": 0, "trigger_interval_seconds": 0}`,
			"trigger_interval_seconds",
		},
		{
			"negative trigger count max",
			`{"name": "x", "timeout_seconds": 60, "trigger_count_max": -1, "trigger_interval_seconds": 60}`,
			"trigger_count_max",
		},
		{
			"missing name",
			`{"timeout_seconds": 60, "trigger_count_max": 0, "trigger_interval_seconds": 60}`,
			"name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodPost, "/switches", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.errField)
		})
	}
}

func TestListSwitchesHandler(t *testing.T) {
	e, s := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/switches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	created := createTestSwitch(t, s)

	rec = doRequest(e, http.MethodGet, "/switches", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var switches []*models.Switch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &switches))
	require.Len(t, switches, 1)
	assert.Equal(t, created.SwitchID, switches[0].ID)
	assert.NotContains(t, rec.Body.String(), "api_token")
}

func TestGetSwitchHandler_NotFound(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/switches/no-such-switch", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Switch not found"}`, rec.Body.String())
}

func TestDeleteSwitchHandler(t *testing.T) {
	e, s := newTestServer(t)
	created := createTestSwitch(t, s)

	rec := doRequest(e, http.MethodDelete, "/switches/"+created.SwitchID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = doRequest(e, http.MethodDelete, "/switches/"+created.SwitchID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Switch not found"}`, rec.Body.String())

	rec = doRequest(e, http.MethodGet, "/switches/"+created.SwitchID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
