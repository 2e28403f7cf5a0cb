package guestbook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"guestbook-gateway/guestbook/application"
	"guestbook-gateway/guestbook/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 16 << 10

// Gateway é o que o handler consome de application.Gateway.
type Gateway interface {
	ConfigErr() error
	Submit(ctx context.Context, env domain.Envelope) domain.Outcome
	Recent(ctx context.Context, limit int) ([]domain.Entry, error)
}

type Options struct {
	Gateway Gateway
	// Identity nil: campos de identidade do corpo são confiáveis (verificados antes do gateway).
	Identity *IdentityVerifier
	SourceFn SourceFunc
	// TrustClientSource aceita o ip_address enviado no corpo para anônimos.
	TrustClientSource bool

	Throttle ThrottleOptions
	Slots    SlotOptions
	// Stats recebe os bloqueios de throttle e vagas.
	Stats domain.OutcomeStats
	// StatsView, se definido, é servido em GET /stats.
	StatsView func() any

	Logger *slog.Logger
}

type handler struct {
	gw                Gateway
	identity          *IdentityVerifier
	sourceFn          SourceFunc
	trustClientSource bool

	throttle           application.ThrottleService
	addThrottleHeaders bool
	slots              application.SlotService

	logger *slog.Logger
}

// NewRouter monta as rotas do mural.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SourceFn == nil {
		opts.SourceFn = DefaultSourceFunc("", false)
	}

	h := &handler{
		gw:                opts.Gateway,
		identity:          opts.Identity,
		sourceFn:          opts.SourceFn,
		trustClientSource: opts.TrustClientSource,
		throttle: application.ThrottleService{
			Limiter:       opts.Throttle.Limiter,
			MinRetryAfter: opts.Throttle.MinRetryAfter,
			Stats:         opts.Stats,
			Logger:        opts.Logger,
		},
		addThrottleHeaders: opts.Throttle.AddHeaders,
		slots: application.SlotService{
			Pool:           opts.Slots.Pool,
			AcquireTimeout: opts.Slots.AcquireTimeout,
			Stats:          opts.Stats,
			Logger:         opts.Logger,
		},
		logger: opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverJSON(opts.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Post("/entries", h.submit)
	r.Post("/functions/v1/moderate-and-insert", h.submit)
	r.Get("/entries", h.list)

	if opts.StatsView != nil {
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, Response{Success: true, Data: opts.StatsView()})
		})
	}
	return r
}

type submissionRequest struct {
	Message      string  `json:"message"`
	AuthorName   *string `json:"author_name"`
	AuthorAvatar *string `json:"author_avatar"`
	IsAnonymous  bool    `json:"is_anonymous"`
	IPAddress    *string `json:"ip_address"`
	UserID       *string `json:"user_id"`
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	if h.gw.ConfigErr() != nil {
		writeOutcome(w, h.gw.Submit(r.Context(), domain.Envelope{}))
		return
	}

	var req submissionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.logger.InfoContext(r.Context(), "submission body rejected", "error", err)
		writeOutcome(w, domain.Rejected(domain.KindValidation, domain.ErrInvalidRequestBody.Error()))
		return
	}

	env, err := h.envelope(r, req)
	if err != nil {
		h.logger.InfoContext(r.Context(), "identity rejected", "error", err)
		writeOutcome(w, domain.Rejected(domain.KindValidation, ErrInvalidIdentity.Error()))
		return
	}

	if h.throttled(w, r, env) {
		return
	}
	release, ok := h.acquireSlot(w, r, env)
	if !ok {
		return
	}
	defer release()

	writeOutcome(w, h.gw.Submit(r.Context(), env))
}

// envelope monta o domain.Envelope a partir do corpo, da identidade e da origem.
func (h *handler) envelope(r *http.Request, req submissionRequest) (domain.Envelope, error) {
	env := domain.Envelope{Message: req.Message}

	if h.identity != nil {
		id, err := h.identity.FromRequest(r)
		switch {
		case err == nil:
			env.IdentityID = domain.StringPtr(id.ID)
			env.AuthorName = optional(id.DisplayName)
			env.AuthorAvatar = optional(id.AvatarRef)
		case errors.Is(err, ErrNoIdentity):
			env.IsAnonymous = true
		default:
			return domain.Envelope{}, err
		}
	} else {
		env.IsAnonymous = req.IsAnonymous
		env.IdentityID = req.UserID
		env.AuthorName = req.AuthorName
		env.AuthorAvatar = req.AuthorAvatar
	}

	if env.IsAnonymous {
		source := ""
		if h.trustClientSource && req.IPAddress != nil {
			source = normalizeAddr(*req.IPAddress)
		}
		if source == "" {
			source = h.sourceFn(r)
		}
		env.SourceAddress = domain.StringPtr(source)
	}
	return env, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusOK, Response{Error: "invalid limit", Type: TypeValidationError})
			return
		}
		limit = n
	}

	entries, err := h.gw.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			h.logger.ErrorContext(r.Context(), "feed refused", "error", err)
			writeJSON(w, http.StatusInternalServerError, Response{
				Error: application.ReasonConfigurationError,
				Type:  TypeConfigurationError,
			})
			return
		}
		h.logger.ErrorContext(r.Context(), "feed read failed", "error", err)
		writeJSON(w, http.StatusOK, Response{Error: "Failed to load messages", Type: TypeDatabaseError})
		return
	}

	public := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		public = append(public, e.Public())
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: public})
}

// recoverJSON converte panics em server_error no contrato JSON.
func recoverJSON(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "handler panic",
					"panic", rec,
					"request_id", middleware.GetReqID(r.Context()),
				)
				writeOutcome(w, domain.Failed(domain.KindServerError, application.ReasonServerError))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
