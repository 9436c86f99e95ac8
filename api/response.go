package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pablobfonseca/go-room-qa/errs"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err to its http status. Causes are never sent to the client.
func writeError(w http.ResponseWriter, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal server error"})
		return
	}

	writeJSON(w, errs.HttpStatusOf(e), errorResponse{Error: string(e.Category), Message: e.Message})
}
