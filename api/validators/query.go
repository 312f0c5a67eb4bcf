package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
)

// ParsePathID reads a positive int64 chi URL parameter.
func ParsePathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a positive integer").
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// ParseIDList reads a comma separated list of positive ids. Both
// ?ids=1,2 and ?ids=1&ids=2 are accepted; blanks are ignored. Repeated ids
// collapse to their first occurrence and max bounds the distinct count.
func ParseIDList(r *http.Request, key string, max int) ([]int64, error) {
	var ids []int64
	seen := map[int64]struct{}{}
	for _, value := range r.URL.Query()[key] {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "ids must be positive integers").
					WithDetails(map[string]any{"field": key, "value": part})
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one id is required").
			WithDetails(map[string]any{"field": key})
	}
	if max > 0 && len(ids) > max {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many ids").
			WithDetails(map[string]any{"field": key, "max": max})
	}
	return ids, nil
}

func ParseQueryBool(r *http.Request, key string, defaultVal bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a boolean").
			WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
