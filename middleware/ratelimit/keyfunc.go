package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownKey é a identidade usada quando nada identifica o cliente.
// Todos os clientes sem identificação dividem o mesmo orçamento.
const UnknownKey = "unknown"

type KeyFunc func(r *http.Request) string

type KeyOptions struct {
	// Header opcional com a identidade do cliente (ex: CF-Connecting-IP).
	Header string
	// TrustXForwardedFor usa o primeiro IP do X-Forwarded-For.
	TrustXForwardedFor bool
	// UseRemoteAddr usa o host de r.RemoteAddr como último recurso.
	// Atrás de um proxy isso colapsa todos os clientes no IP do proxy.
	UseRemoteAddr bool
}

func DefaultKeyFunc(opts KeyOptions) KeyFunc {
	return func(r *http.Request) string {
		if opts.Header != "" {
			if v := strings.TrimSpace(r.Header.Get(opts.Header)); v != "" {
				return v
			}
		}

		if opts.TrustXForwardedFor {
			if ip := firstForwarded(r.Header.Get("X-Forwarded-For")); ip != "" {
				return ip
			}
		}

		if opts.UseRemoteAddr {
			host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
			if err == nil && host != "" {
				return host
			}
			if r.RemoteAddr != "" {
				return r.RemoteAddr
			}
		}
		return UnknownKey
	}
}

// firstForwarded pega o primeiro IP do X-Forwarded-For (cliente original).
func firstForwarded(xff string) string {
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
