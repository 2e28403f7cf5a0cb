package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength é o limite de caracteres (runes) de uma mensagem, já sem espaços nas bordas.
const MaxMessageLength = 500

var (
	ErrMessageRequired    = errors.New("message required")
	ErrMessageTooLong     = errors.New("message is too long (max 500 characters)")
	ErrIdentityMismatch   = errors.New("anonymous submissions cannot carry an identity")
	ErrIdentityRequired   = errors.New("authenticated submissions require an identity")
	ErrSourceRequired     = errors.New("anonymous submissions require a source address")
	ErrInvalidRequestBody = errors.New("invalid request body")
)

// Envelope é o payload de submissão montado pelo chamador, antes de moderação
// e persistência.
//
// Invariantes: IsAnonymous == (IdentityID == nil) e SourceAddress só é
// considerado quando anônimo.
type Envelope struct {
	Message       string
	AuthorName    *string
	AuthorAvatar  *string
	IsAnonymous   bool
	SourceAddress *string
	IdentityID    *string
}

// TrimmedMessage devolve a mensagem sem espaços nas bordas.
func (e Envelope) TrimmedMessage() string {
	return strings.TrimSpace(e.Message)
}

// Validate aplica a validação estática do envelope.
func (e Envelope) Validate() error {
	msg := e.TrimmedMessage()
	if msg == "" {
		return ErrMessageRequired
	}
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return ErrMessageTooLong
	}

	if e.IsAnonymous {
		if nonEmpty(e.IdentityID) != nil {
			return ErrIdentityMismatch
		}
		if e.SourceAddress == nil || strings.TrimSpace(*e.SourceAddress) == "" {
			return ErrSourceRequired
		}
		return nil
	}

	// endereço informado em envelope autenticado é descartado em NewEntry, não rejeitado
	if e.IdentityID == nil || strings.TrimSpace(*e.IdentityID) == "" {
		return ErrIdentityRequired
	}
	return nil
}

// NewEntry converte o envelope nos seis campos persistidos.
// O endereço de origem só acompanha envelopes anônimos.
func (e Envelope) NewEntry() NewEntry {
	ne := NewEntry{
		Message:      e.TrimmedMessage(),
		AuthorName:   nonEmpty(e.AuthorName),
		AuthorAvatar: nonEmpty(e.AuthorAvatar),
		IsAnonymous:  e.IsAnonymous,
		IdentityID:   nonEmpty(e.IdentityID),
	}
	if e.IsAnonymous {
		ne.SourceAddress = nonEmpty(e.SourceAddress)
	}
	return ne
}

func nonEmpty(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// StringPtr é um atalho para campos opcionais.
func StringPtr(s string) *string { return &s }
