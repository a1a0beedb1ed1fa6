package advisor

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DomainFromURL extrai o hostname de uma URL e remove um "www." inicial.
// Com registrable, reduz ao domínio registrável (eTLD+1), por exemplo
// "mail.google.co.uk" vira "google.co.uk".
func DomainFromURL(raw string, registrable bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoDomain
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("unable to read URL: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrNoDomain
	}
	host = strings.TrimPrefix(host, "www.")

	if registrable {
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			host = etld1
		}
	}
	return host, nil
}
