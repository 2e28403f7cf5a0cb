package domain

// Verdict é a decisão do classificador de conteúdo.
//
// Se Appropriate for false, Reason nunca é vazio.
type Verdict struct {
	Appropriate bool
	Reason      string
	Categories  []string
}

const defaultDenyReason = "Message violates content guidelines"

// Allow devolve um veredito de aprovação sem motivo.
func Allow() Verdict {
	return Verdict{Appropriate: true}
}

// Deny devolve um veredito de reprovação; motivo vazio vira o texto padrão.
func Deny(reason string, categories ...string) Verdict {
	if reason == "" {
		reason = defaultDenyReason
	}
	return Verdict{Appropriate: false, Reason: reason, Categories: categories}
}
