package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"teslacam/database"
	"teslacam/services"
)

func TestErrorLeak_SearchIndex(t *testing.T) {
	db, err := database.Open()
	require.NoError(t, err)

	lib := services.NewLibraryService("", db)
	r := setupTestServer(t, lib)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/index?city=oslo", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	if rows[0]["event_id"] != "SavedClips-2024-01-01_10-00-05" {
		t.Errorf("Unexpected row: %v", rows[0])
	}

	// Close DB to force error
	db.Close()

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/index", nil)
	r.ServeHTTP(w, req)

	if w.Code != 500 {
		t.Errorf("Expected 500, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	errMsg := resp["error"]
	if errMsg == "sql: database is closed" {
		t.Error("Vulnerability DETECTED: SQL error leaked in searchIndex")
	} else if errMsg != "Internal Server Error" {
		t.Errorf("Unexpected error message: %s", errMsg)
	}
}

func TestSearchIndex_Unavailable(t *testing.T) {
	r := setupTestServer(t, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/index", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestSearchIndex_InvalidLimit(t *testing.T) {
	db, err := database.Open()
	require.NoError(t, err)
	defer db.Close()

	r := setupTestServer(t, services.NewLibraryService("", db))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/index?limit=abc", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}
