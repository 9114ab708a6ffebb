package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantKey    string
	}{
		{
			name:       "success",
			write:      func(w http.ResponseWriter) { RespondSuccess(w, "ok") },
			wantStatus: http.StatusOK,
			wantKey:    "data",
		},
		{
			name:       "created",
			write:      func(w http.ResponseWriter) { RespondCreated(w, "ok") },
			wantStatus: http.StatusCreated,
			wantKey:    "data",
		},
		{
			name:       "error",
			write:      func(w http.ResponseWriter) { RespondError(w, http.StatusBadRequest, "bad") },
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
		{
			name:       "message",
			write:      func(w http.ResponseWriter) { RespondMessage(w, http.StatusOK, "done") },
			wantStatus: http.StatusOK,
			wantKey:    "message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("cannot decode body: %v", err)
			}
			if _, ok := body[tt.wantKey]; !ok {
				t.Errorf("body %v missing key %q", body, tt.wantKey)
			}
		})
	}
}
