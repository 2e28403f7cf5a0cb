package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guestbook-gateway/guestbook/domain"
)

// Textos devolvidos ao usuário. Falhas de infraestrutura nunca expõem detalhe operacional.
const (
	ReasonDatabaseError      = "Failed to save message"
	ReasonConfigurationError = "Service configuration error. Please try again later."
	ReasonServerError        = "Server error occurred. Please try again."
	ReasonRequestCanceled    = "Request canceled before the message was saved."
)

// Credentials são os segredos que o gateway exige para operar.
type Credentials struct {
	ModerationAPIKey string
	StoreDSN         string
}

// GatewayConfig é a configuração explícita do gateway. Nada é lido do ambiente aqui.
type GatewayConfig struct {
	Credentials Credentials

	Classifier domain.Classifier
	Store      domain.EntryStore
	// Quota usa Store como contador quando Counter não é informado.
	Quota QuotaService
	Stats domain.OutcomeStats

	Logger *slog.Logger
	// LogAcceptedEntries loga a entrada completa ao aceitar (inclui mensagem e origem).
	// Desligado, loga apenas o id.
	LogAcceptedEntries bool
}

// Gateway orquestra validação -> classificação -> cota -> persistência e
// traduz cada caminho em um único domain.Outcome.
//
// Não guarda estado entre requisições: a cota é consultada no store a cada chamada.
type Gateway struct {
	classifier  domain.Classifier
	store       domain.EntryStore
	quota       QuotaService
	stats       domain.OutcomeStats
	logger      *slog.Logger
	logAccepted bool

	configErr error
}

func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	quota := cfg.Quota
	if quota.Counter == nil && cfg.Store != nil {
		quota.Counter = cfg.Store
	}
	if quota.Logger == nil {
		quota.Logger = logger
	}

	return &Gateway{
		classifier:  cfg.Classifier,
		store:       cfg.Store,
		quota:       quota.withDefaults(),
		stats:       cfg.Stats,
		logger:      logger,
		logAccepted: cfg.LogAcceptedEntries,
		configErr:   checkConfig(cfg),
	}
}

func checkConfig(cfg GatewayConfig) error {
	var missing []string
	if strings.TrimSpace(cfg.Credentials.ModerationAPIKey) == "" {
		missing = append(missing, "moderation api key")
	}
	if strings.TrimSpace(cfg.Credentials.StoreDSN) == "" {
		missing = append(missing, "store dsn")
	}
	if cfg.Classifier == nil {
		missing = append(missing, "classifier")
	}
	if cfg.Store == nil {
		missing = append(missing, "store")
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing %s", domain.ErrNotConfigured, strings.Join(missing, ", "))
}

// ConfigErr devolve o erro de configuração detectado na construção, se houver.
func (g *Gateway) ConfigErr() error { return g.configErr }

// Submit processa um envelope e devolve exatamente um Outcome.
func (g *Gateway) Submit(ctx context.Context, env domain.Envelope) domain.Outcome {
	out := g.submit(ctx, env)
	g.record(ctx, env, out)
	return out
}

func (g *Gateway) submit(ctx context.Context, env domain.Envelope) domain.Outcome {
	if g.configErr != nil {
		g.logger.ErrorContext(ctx, "submission refused", "error", g.configErr)
		return domain.Failed(domain.KindConfigurationError, ReasonConfigurationError)
	}

	// 1. receive
	if err := env.Validate(); err != nil {
		g.logger.InfoContext(ctx, "submission rejected", "kind", domain.KindValidation, "reason", err.Error())
		return domain.Rejected(domain.KindValidation, err.Error())
	}

	// 2. classify
	verdict := g.classifier.Classify(ctx, env.TrimmedMessage())
	if !verdict.Appropriate {
		reason := verdict.Reason
		if reason == "" {
			reason = domain.Deny("").Reason
		}
		g.logger.InfoContext(ctx, "submission rejected", "kind", domain.KindModerationFailed, "categories", verdict.Categories)
		return domain.Rejected(domain.KindModerationFailed, reason)
	}

	fields := env.NewEntry()

	// 3. rate-check, somente anônimos
	if fields.IsAnonymous && !g.quota.MayPost(ctx, *fields.SourceAddress) {
		g.logger.InfoContext(ctx, "submission rejected", "kind", domain.KindRateLimitExceeded)
		return domain.Rejected(domain.KindRateLimitExceeded, g.quota.ExceededReason())
	}

	if err := ctx.Err(); err != nil {
		g.logger.WarnContext(ctx, "submission abandoned before persist", "error", err)
		return domain.Failed(domain.KindServerError, ReasonRequestCanceled)
	}

	// 4. persist
	entry, err := g.store.Insert(ctx, fields)
	if err != nil {
		g.logger.ErrorContext(ctx, "submission insert failed", "error", err)
		return domain.Failed(domain.KindDatabaseError, ReasonDatabaseError)
	}

	// 5. accepted
	if g.logAccepted {
		g.logger.InfoContext(ctx, "submission accepted", "entry", entry)
	} else {
		g.logger.InfoContext(ctx, "submission accepted", "id", entry.ID)
	}
	return domain.Accepted(entry)
}

func (g *Gateway) record(ctx context.Context, env domain.Envelope, out domain.Outcome) {
	if g.stats == nil {
		return
	}
	err := g.stats.Record(ctx, domain.StatsEvent{
		Status:    out.Status,
		Kind:      out.Kind,
		Anonymous: env.IsAnonymous,
		At:        time.Now(),
	})
	if err != nil {
		g.logger.WarnContext(ctx, "stats record failed", "error", err)
	}
}

// Recent lista as entradas mais recentes do mural, mais novas primeiro.
// Sem configuração completa devolve o mesmo erro de Submit (ErrNotConfigured).
func (g *Gateway) Recent(ctx context.Context, limit int) ([]domain.Entry, error) {
	if g.configErr != nil {
		return nil, g.configErr
	}
	entries, err := g.store.ListRecent(ctx, limit)
	if err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return nil, err
	}
	return entries, nil
}
