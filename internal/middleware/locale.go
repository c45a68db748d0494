package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"videogen/internal/infra/geoip"
)

const localeKey contextKey = "source_language"

// countryLanguages maps ISO country codes to the language most prompts from
// there arrive in. Unlisted countries get no hint and fall back to detection.
var countryLanguages = map[string]string{
	"ID": "id", "MY": "ms", "TH": "th", "VN": "vi",
	"JP": "ja", "KR": "ko", "CN": "zh", "TW": "zh",
	"FR": "fr", "DE": "de", "ES": "es", "MX": "es",
	"BR": "pt", "PT": "pt", "IT": "it", "RU": "ru",
	"IN": "hi", "SA": "ar", "AE": "ar", "TR": "tr",
}

// Locale annotates requests with a source-language hint derived from the
// client's country. Lookup failures leave the request untouched.
func Locale(resolver geoip.CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				next.ServeHTTP(w, r)
				return
			}
			country, err := resolver.CountryCode(clientIP(r))
			if err != nil || country == "" {
				next.ServeHTTP(w, r)
				return
			}
			lang, ok := countryLanguages[country]
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), localeKey, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SourceLanguageFromContext returns the language hint, or "" when none.
func SourceLanguageFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeKey).(string); ok {
		return v
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
