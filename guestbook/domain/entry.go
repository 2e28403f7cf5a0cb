package domain

import "time"

// NewEntry são os campos que o gateway entrega ao store para inserção.
// ID e CreatedAt são atribuídos pelo store.
type NewEntry struct {
	Message       string
	AuthorName    *string
	AuthorAvatar  *string
	IsAnonymous   bool
	SourceAddress *string
	IdentityID    *string
}

// ForStorage aplica a regra de privacidade: entradas autenticadas nunca
// guardam endereço de origem, independente do que veio de cima.
func (n NewEntry) ForStorage() NewEntry {
	if !n.IsAnonymous {
		n.SourceAddress = nil
	}
	return n
}

// Entry é uma mensagem persistida no mural. Nunca é alterada nem removida pelo gateway.
type Entry struct {
	ID            string    `json:"id"`
	Message       string    `json:"message"`
	AuthorName    *string   `json:"author_name"`
	AuthorAvatar  *string   `json:"author_avatar"`
	IsAnonymous   bool      `json:"is_anonymous"`
	SourceAddress *string   `json:"ip_address"`
	IdentityID    *string   `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Public devolve a entrada sem o endereço de origem, para o feed e notificações.
func (e Entry) Public() Entry {
	e.SourceAddress = nil
	return e
}
