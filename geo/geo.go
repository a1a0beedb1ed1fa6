// Package geo infere a região padrão do cliente a partir do IP, usando uma
// base MaxMind (GeoLite2-Country ou City).
package geo

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Resolver devolve o código ISO do país de um IP.
type Resolver interface {
	Country(ip string) (string, bool)
}

type MaxMind struct {
	reader *geoip2.Reader
}

// Open abre a base .mmdb em path.
func Open(path string) (*MaxMind, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MaxMind{reader: r}, nil
}

func (m *MaxMind) Close() error {
	if m == nil || m.reader == nil {
		return nil
	}
	return m.reader.Close()
}

// Country devolve ("", false) para IP inválido, sem registro ou resolver nil.
func (m *MaxMind) Country(ipAddress string) (string, bool) {
	if m == nil || m.reader == nil {
		return "", false
	}
	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		return "", false
	}
	rec, err := m.reader.Country(ip)
	if err != nil || rec.Country.IsoCode == "" {
		return "", false
	}
	return rec.Country.IsoCode, true
}

// Static resolve tudo a partir de um mapa fixo; útil em testes.
type Static map[string]string

func (s Static) Country(ip string) (string, bool) {
	c, ok := s[ip]
	return c, ok && c != ""
}

// RegionFor devolve a região do IP, ou fallback se não houver resolver ou
// o IP não for encontrado.
func RegionFor(r Resolver, ip, fallback string) string {
	if r == nil {
		return fallback
	}
	if c, ok := r.Country(ip); ok {
		return c
	}
	return fallback
}
