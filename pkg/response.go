package pkg

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const ContentTypeJSON = "application/json"

// WriteJSONResponseOK writes an already encoded JSON body with status 200.
func WriteJSONResponseOK(w http.ResponseWriter, body string) {
	writeBody(w, []byte(body), http.StatusOK)
}

// WriteJSON encodes v and writes it with statusCode. An unencodable value
// results in a 500 and is logged.
func WriteJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Errorf("failed to marshal %T response: %s", v, err)
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	writeBody(w, body, statusCode)
}

func writeBody(w http.ResponseWriter, body []byte, statusCode int) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Errorf("failed to write response (%d bytes): %s", len(body), err)
	}
}
