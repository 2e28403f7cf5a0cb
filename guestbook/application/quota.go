package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"guestbook-gateway/guestbook/domain"
)

const (
	DefaultQuotaLimit  = 5
	DefaultQuotaWindow = 60 * time.Minute
)

// QuotaService decide se uma origem anônima pode postar mais uma mensagem.
//
// A janela é deslizante (agora - Window), e a contagem é refeita a cada
// chamada direto no store. Em erro de consulta, nega (fail closed).
type QuotaService struct {
	Counter domain.QuotaCounter
	Limit   int
	Window  time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

func (s QuotaService) withDefaults() QuotaService {
	if s.Limit <= 0 {
		s.Limit = DefaultQuotaLimit
	}
	if s.Window <= 0 {
		s.Window = DefaultQuotaWindow
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	return s
}

// MayPost devolve true se a origem tem menos de Limit entradas anônimas na janela.
func (s QuotaService) MayPost(ctx context.Context, sourceAddress string) bool {
	s = s.withDefaults()
	if s.Counter == nil {
		s.Logger.ErrorContext(ctx, "quota check without counter")
		return false
	}

	since := s.Now().Add(-s.Window)
	count, err := s.Counter.CountAnonymousSince(ctx, sourceAddress, since)
	if err != nil {
		s.Logger.ErrorContext(ctx, "quota check failed", "error", err)
		return false
	}
	return count < s.Limit
}

// ExceededReason é o texto devolvido ao usuário quando a cota estoura.
func (s QuotaService) ExceededReason() string {
	s = s.withDefaults()
	if s.Window == time.Hour {
		return fmt.Sprintf("Rate limit exceeded. Anonymous users can post %d messages per hour.", s.Limit)
	}
	return fmt.Sprintf("Rate limit exceeded. Anonymous users can post %d messages every %s.", s.Limit, s.Window)
}
