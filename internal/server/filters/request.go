package filters

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// TokenFromRequest ищет токен: cookie access_token, заголовок Authorization: Bearer, параметр token.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie("access_token"); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
	}
	return r.URL.Query().Get("token")
}

// ClientIP — первый адрес X-Forwarded-For, X-Real-IP или RemoteAddr.
// С trustQuery приоритет у параметра ip_address.
func ClientIP(r *http.Request, trustQuery bool) string {
	if trustQuery {
		if ip := r.URL.Query().Get("ip_address"); ip != "" {
			return ip
		}
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Fingerprint — sha256 от JSON заголовков клиента (ключи отсортированы, отпечаток стабилен).
// С trustQuery приоритет у параметра device_fingerprint.
func Fingerprint(r *http.Request, trustQuery bool) string {
	if trustQuery {
		if fp := r.URL.Query().Get("device_fingerprint"); fp != "" {
			return fp
		}
	}
	raw, _ := json.Marshal(map[string]string{
		"user_agent":      r.Header.Get("User-Agent"),
		"accept_language": r.Header.Get("Accept-Language"),
		"accept_encoding": r.Header.Get("Accept-Encoding"),
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
