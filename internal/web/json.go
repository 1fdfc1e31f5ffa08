package web

import (
	"encoding/json"
	"log"
	"net/http"
)

type message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("http: encode response: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, message{Message: msg})
}
