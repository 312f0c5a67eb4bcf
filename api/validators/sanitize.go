package validators

import (
	"net/http"
	"strings"
)

const maxQueryValueLen = 64

// QueryValue returns the trimmed query value, cut to a sane length.
func QueryValue(r *http.Request, key string) string {
	trimmed := strings.TrimSpace(r.URL.Query().Get(key))
	if len(trimmed) > maxQueryValueLen {
		return trimmed[:maxQueryValueLen]
	}
	return trimmed
}

// QueryCode is QueryValue upper-cased, for tickers, list codes and currencies.
func QueryCode(r *http.Request, key string) string {
	return strings.ToUpper(QueryValue(r, key))
}
