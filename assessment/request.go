package assessment

import (
	"errors"
	"strings"
)

// MaxDomainLength é o limite de um hostname (RFC 1035).
const MaxDomainLength = 253

// DefaultRegion é usada quando o chamador não informa região.
const DefaultRegion = "US"

var (
	ErrMissingDomain = errors.New("missing or invalid domain")
	ErrInvalidDomain = errors.New("invalid domain format")
)

// Audience é a classe de público para a qual o resumo é escrito.
type Audience string

const (
	AudienceAdult Audience = "adult"
	AudienceTeen  Audience = "teen"
	AudienceChild Audience = "child"
)

// ParseAudience aceita qualquer string; valores desconhecidos viram adult.
func ParseAudience(s string) Audience {
	switch Audience(strings.ToLower(strings.TrimSpace(s))) {
	case AudienceTeen:
		return AudienceTeen
	case AudienceChild:
		return AudienceChild
	default:
		return AudienceAdult
	}
}

// Label é o rótulo legível embutido na mensagem enviada ao motor.
func (a Audience) Label() string {
	switch a {
	case AudienceTeen:
		return "Teen (13–17)"
	case AudienceChild:
		return "Child (under 13) — address the parent as the audience"
	default:
		return "Adult"
	}
}

// Request é o pedido de análise já normalizado.
type Request struct {
	Domain   string
	Audience Audience
	Region   string

	// ForceRefresh ignora o cache do lado servidor (se houver).
	ForceRefresh bool
}

// CacheKey identifica o resultado para este trio domínio/público/região.
func (r Request) CacheKey() string {
	return r.Domain + "|" + string(r.Audience) + "|" + r.Region
}

// NormalizeDomain remove tudo que não é [a-zA-Z0-9.-] e converte para minúsculas.
func NormalizeDomain(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-':
			b.WriteRune(c)
		case c >= 'A' && c <= 'Z':
			b.WriteRune(c + ('a' - 'A'))
		}
	}
	return strings.TrimRight(b.String(), ".")
}

// ValidateDomain verifica um domínio já normalizado.
func ValidateDomain(domain string) error {
	if domain == "" || len(domain) > MaxDomainLength {
		return ErrInvalidDomain
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" || len(label) > 63 {
			return ErrInvalidDomain
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return ErrInvalidDomain
		}
	}
	return nil
}

// NewRequest normaliza e valida os campos vindos do chamador.
// Região vazia vira DefaultRegion.
func NewRequest(rawDomain, userType, region string) (Request, error) {
	if strings.TrimSpace(rawDomain) == "" {
		return Request{}, ErrMissingDomain
	}
	domain := NormalizeDomain(rawDomain)
	if err := ValidateDomain(domain); err != nil {
		return Request{}, err
	}
	region = strings.TrimSpace(region)
	if region == "" {
		region = DefaultRegion
	}
	return Request{
		Domain:   domain,
		Audience: ParseAudience(userType),
		Region:   region,
	}, nil
}
