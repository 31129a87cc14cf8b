package respond

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"verisight-backend/internal/shared/telemetry"
)

func TestFieldErrorBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	nextRan := false
	r := gin.New()
	r.POST("/upload", func(c *gin.Context) {
		FieldError(c, http.StatusBadRequest, "fileName", "File name is required")
	}, func(c *gin.Context) {
		nextRan = true
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/upload", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if nextRan {
		t.Fatalf("expected the chain to stop after FieldError")
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "File name is required" || body["field"] != "fileName" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestErrorOmitsField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	r := gin.New()
	r.GET("/missing", func(c *gin.Context) {
		Error(c, http.StatusNotFound, "not_found", "Analysis not found")
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["field"]; ok {
		t.Fatalf("field must be omitted: %v", body)
	}
	if body["code"] != "not_found" {
		t.Fatalf("unexpected code: %v", body["code"])
	}
}
