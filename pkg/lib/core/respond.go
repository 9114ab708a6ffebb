package core

import (
	"encoding/json"
	"net/http"
)

func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondSuccess wraps data in a {"data": ...} envelope with status 200.
func RespondSuccess(w http.ResponseWriter, data interface{}) {
	RespondJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func RespondCreated(w http.ResponseWriter, data interface{}) {
	RespondJSON(w, http.StatusCreated, map[string]interface{}{"data": data})
}

func RespondError(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, map[string]string{"error": msg})
}

// RespondMessage is used by endpoints whose contract is a bare {"message": ...} body.
func RespondMessage(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, map[string]string{"message": msg})
}
