package http

import (
	"encoding/json"
	"net/http"

	"github.com/campus-music/campus-music-sub001/internal/application"
)

// settlementOutcomeHeader lets provider dashboards show the outcome without parsing the body.
const settlementOutcomeHeader = "X-Settlement-Outcome"

type successEnvelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorEnvelope struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, successEnvelope{Status: "success", Data: data})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, successEnvelope{Status: "success", Message: message})
}

// writeWebhookAck answers the provider with 200 for every definitive outcome.
// Settled, duplicate, ignored and dropped all stop redelivery.
func writeWebhookAck(w http.ResponseWriter, res application.WebhookResult) {
	res.Received = true
	w.Header().Set(settlementOutcomeHeader, string(res.Outcome))
	writeSuccess(w, http.StatusOK, res)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorEnvelope{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
