package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable envolve qualquer erro de driver/conexão do store.
	ErrStoreUnavailable = errors.New("entry store unavailable")
	// ErrNotConfigured indica credenciais ou colaboradores ausentes.
	ErrNotConfigured = errors.New("gateway not configured")
)

// Classifier avalia o texto de uma mensagem.
//
// Contrato: sempre devolve um Verdict; falhas do serviço externo são tratadas
// dentro da implementação.
type Classifier interface {
	Classify(ctx context.Context, text string) Verdict
}

// QuotaCounter conta entradas anônimas de uma origem criadas em ou após since.
type QuotaCounter interface {
	CountAnonymousSince(ctx context.Context, sourceAddress string, since time.Time) (int, error)
}

// EntryStore é o colaborador durável do mural.
type EntryStore interface {
	QuotaCounter
	// Insert faz exatamente uma inserção, sem retry.
	Insert(ctx context.Context, e NewEntry) (Entry, error)
	// ListRecent lista as entradas mais recentes primeiro.
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// EntryPublisher propaga uma entrada recém inserida para quem acompanha o mural ao vivo.
type EntryPublisher interface {
	Publish(ctx context.Context, e Entry) error
}
