package relay

import (
	"fmt"
	"time"
)

// Kind classifica as falhas do relay. Toda falha que sai de Analyze é um
// *Error com um destes tipos.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindRateLimited
	KindUpstreamUnavailable
	KindMalformedUpstreamReply
	KindIncompleteUpstreamReply
	KindMisconfiguration
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindMalformedUpstreamReply:
		return "malformed_upstream_reply"
	case KindIncompleteUpstreamReply:
		return "incomplete_upstream_reply"
	case KindMisconfiguration:
		return "misconfiguration"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mensagens públicas: é o que o cliente vê no campo "error".
const (
	MsgMissingDomain      = "Missing or invalid domain"
	MsgInvalidDomain      = "Invalid domain format"
	MsgRateLimited        = "Rate limit exceeded. Try again later."
	MsgNotConfigured      = "API key not configured"
	MsgUnavailable        = "Analysis service unavailable"
	MsgAnalysisFailed     = "Analysis failed. Please try again."
	MsgIncompleteReceived = "Incomplete analysis received"
)

type Error struct {
	Kind Kind
	// Msg é a mensagem segura para o cliente.
	Msg string
	// Err é a causa interna, só para logs.
	Err error
	// RetryAfter é preenchido em KindRateLimited.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("relay %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("relay %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is compara apenas o Kind, assim errors.Is(err, ErrRateLimited) funciona
// para qualquer *Error daquele tipo.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput            = &Error{Kind: KindInvalidInput}
	ErrRateLimited             = &Error{Kind: KindRateLimited}
	ErrUpstreamUnavailable     = &Error{Kind: KindUpstreamUnavailable}
	ErrMalformedUpstreamReply  = &Error{Kind: KindMalformedUpstreamReply}
	ErrIncompleteUpstreamReply = &Error{Kind: KindIncompleteUpstreamReply}
	ErrMisconfiguration        = &Error{Kind: KindMisconfiguration}
)
