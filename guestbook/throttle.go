package guestbook

import (
	"net/http"
	"time"

	"guestbook-gateway/guestbook/domain"
)

// Respostas das proteções de transporte. Têm tipo próprio: não são resultados
// do gateway e nunca atingem envelopes autenticados (throttle).
const (
	TypeThrottled  = "throttled"
	TypeServerBusy = "server_busy"

	msgThrottled  = "Too many requests. Please slow down."
	msgServerBusy = "Server is busy. Please try again."
)

// ThrottleOptions configura o throttle de rajada das submissões anônimas.
// Limiter nil desliga o throttle.
type ThrottleOptions struct {
	Limiter       domain.BurstLimiter
	MinRetryAfter time.Duration
	// AddHeaders expõe X-Throttle-RPS / X-Throttle-Burst quando o limiter souber informar.
	AddHeaders bool
}

// SlotOptions limita submissões simultâneas. Pool nil desliga o limite.
type SlotOptions struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// throttled responde 429 se a origem anônima estourou a rajada.
func (h *handler) throttled(w http.ResponseWriter, r *http.Request, env domain.Envelope) bool {
	if h.addThrottleHeaders && env.IsAnonymous {
		if ri, ok := h.throttle.Limiter.(rateInfo); ok {
			w.Header().Set("X-Throttle-RPS", formatFloat(ri.RPS()))
			w.Header().Set("X-Throttle-Burst", formatInt(ri.Burst()))
		}
	}

	dec := h.throttle.Decide(r.Context(), env)
	if dec.Allowed {
		return false
	}
	w.Header().Set("Retry-After", formatInt(int(dec.RetryAfter/time.Second)))
	writeJSON(w, http.StatusTooManyRequests, Response{Error: msgThrottled, Type: TypeThrottled})
	return true
}

// acquireSlot responde 503 se não houver vaga dentro do timeout.
func (h *handler) acquireSlot(w http.ResponseWriter, r *http.Request, env domain.Envelope) (func(), bool) {
	release, ok := h.slots.Acquire(r.Context(), env)
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, Response{Error: msgServerBusy, Type: TypeServerBusy})
		return nil, false
	}
	return release, true
}
