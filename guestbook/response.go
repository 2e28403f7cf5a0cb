package guestbook

import (
	"encoding/json"
	"net/http"

	"guestbook-gateway/guestbook/application"
	"guestbook-gateway/guestbook/domain"
)

// Valores do discriminador "type" no corpo de resposta.
const (
	TypeValidationError    = "validation_error"
	TypeModerationFailed   = "moderation_failed"
	TypeRateLimitExceeded  = "rate_limit_exceeded"
	TypeDatabaseError      = "database_error"
	TypeConfigurationError = "configuration_error"
	TypeServerError        = "server_error"
)

// Response é o único formato de corpo devolvido pelas rotas do mural.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Type    string `json:"type,omitempty"`
}

func wireType(k domain.Kind) string {
	switch k {
	case domain.KindValidation:
		return TypeValidationError
	case domain.KindModerationFailed:
		return TypeModerationFailed
	case domain.KindRateLimitExceeded:
		return TypeRateLimitExceeded
	case domain.KindDatabaseError:
		return TypeDatabaseError
	case domain.KindConfigurationError:
		return TypeConfigurationError
	default:
		return TypeServerError
	}
}

// outcomeResponse traduz um Outcome em (status, corpo).
// Rejeições e database_error usam 200; configuration_error e server_error
// usam 500 com texto genérico.
func outcomeResponse(out domain.Outcome) (int, Response) {
	if out.IsAccepted() {
		return http.StatusOK, Response{Success: true, Data: out.Entry}
	}

	resp := Response{Success: false, Error: out.Reason, Type: wireType(out.Kind)}
	switch resp.Type {
	case TypeConfigurationError:
		resp.Error = application.ReasonConfigurationError
		return http.StatusInternalServerError, resp
	case TypeServerError:
		resp.Error = application.ReasonServerError
		return http.StatusInternalServerError, resp
	}
	return http.StatusOK, resp
}

func writeOutcome(w http.ResponseWriter, out domain.Outcome) {
	status, resp := outcomeResponse(out)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
