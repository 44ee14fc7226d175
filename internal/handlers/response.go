package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// errorResponse is the JSON body WriteError sends.
type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes data as a JSON response body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("write json response: %v", err)
	}
}

// WriteError writes a JSON error envelope with the given status code and
// message.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}
