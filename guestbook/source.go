package guestbook

import (
	"net"
	"net/http"
	"strings"
)

// SourceFunc extrai o endereço de origem de uma requisição.
type SourceFunc func(r *http.Request) string

// DefaultSourceFunc usa, nesta ordem: o header informado, o primeiro IP do
// X-Forwarded-For (se trustXFF) e o host do RemoteAddr.
//
// Endereços IP são normalizados para que variações de escrita do mesmo IPv6
// caiam na mesma cota.
func DefaultSourceFunc(sourceHeader string, trustXFF bool) SourceFunc {
	return func(r *http.Request) string {
		if sourceHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(sourceHeader)); v != "" {
				return normalizeAddr(v)
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return normalizeAddr(ip)
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return normalizeAddr(host)
		}
		if r.RemoteAddr != "" {
			return normalizeAddr(r.RemoteAddr)
		}
		return "unknown"
	}
}

func normalizeAddr(v string) string {
	v = strings.TrimSpace(v)
	if ip := net.ParseIP(v); ip != nil {
		return ip.String()
	}
	return v
}
