package domain

// OutcomeStatus distingue os três formatos de resposta do gateway.
type OutcomeStatus string

const (
	StatusAccepted OutcomeStatus = "accepted"
	StatusRejected OutcomeStatus = "rejected"
	StatusFailed   OutcomeStatus = "failed"
)

// Kind é o subtipo de uma rejeição (política) ou falha (infraestrutura).
type Kind string

const (
	KindValidation         Kind = "validation"
	KindModerationFailed   Kind = "moderation_failed"
	KindRateLimitExceeded  Kind = "rate_limit_exceeded"
	KindDatabaseError      Kind = "database_error"
	KindConfigurationError Kind = "configuration_error"
	KindServerError        Kind = "server_error"
)

// IsRejection indica se o kind é um resultado de política (esperado).
func (k Kind) IsRejection() bool {
	switch k {
	case KindValidation, KindModerationFailed, KindRateLimitExceeded:
		return true
	}
	return false
}

// Outcome é o único formato devolvido pelo gateway: Accepted{entry},
// Rejected{kind, reason} ou Failed{kind, reason}.
//
// Use os construtores; um Outcome nunca tem Entry e Reason ao mesmo tempo.
type Outcome struct {
	Status OutcomeStatus
	Kind   Kind
	Reason string
	Entry  *Entry
}

func Accepted(entry Entry) Outcome {
	return Outcome{Status: StatusAccepted, Entry: &entry}
}

func Rejected(kind Kind, reason string) Outcome {
	return Outcome{Status: StatusRejected, Kind: kind, Reason: reason}
}

func Failed(kind Kind, reason string) Outcome {
	return Outcome{Status: StatusFailed, Kind: kind, Reason: reason}
}

func (o Outcome) IsAccepted() bool { return o.Status == StatusAccepted }
