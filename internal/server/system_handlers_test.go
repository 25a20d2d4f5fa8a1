package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct{ connected bool }

func (s stubFeed) IsConnected() bool { return s.connected }

func TestHandleSystemStatus(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "ledger.db"), make([]byte, 2048), 0644))

	h := NewSystemHandlers(zerolog.New(nil).Level(zerolog.Disabled), dataDir, nil, nil, stubFeed{connected: true})

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status        string  `json:"status"`
		DataDir       string  `json:"data_dir"`
		DataSizeMB    float64 `json:"data_size_mb"`
		FeedConnected bool    `json:"feed_connected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, dataDir, resp.DataDir)
	assert.Greater(t, resp.DataSizeMB, 0.0)
	assert.True(t, resp.FeedConnected)
}

func TestHandleSystemStatus_NoFeed(t *testing.T) {
	h := NewSystemHandlers(zerolog.New(nil).Level(zerolog.Disabled), t.TempDir(), nil, nil, nil)

	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["feed_connected"])
}

func TestGetDirSize_MissingDir(t *testing.T) {
	h := NewSystemHandlers(zerolog.New(nil).Level(zerolog.Disabled), "/nonexistent", nil, nil, nil)
	assert.Equal(t, 0.0, h.getDirSize("/nonexistent/path"))
}
