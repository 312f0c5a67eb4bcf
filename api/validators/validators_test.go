package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParsePathID(t *testing.T) {
	r := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "42")
	id, err := ParsePathID(r, "orderId")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-3", "abc", "9223372036854775808"} {
		r := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", raw)
		_, err := ParsePathID(r, "orderId")
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %q", raw)
	}
}

func TestParseIDList(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?ids=3,1,%20,2&ids=7", nil)
	ids, err := ParseIDList(r, "ids", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2, 7}, ids)

	_, err = ParseIDList(httptest.NewRequest(http.MethodGet, "/", nil), "ids", 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseIDList(httptest.NewRequest(http.MethodGet, "/?ids=1,x", nil), "ids", 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseIDList(httptest.NewRequest(http.MethodGet, "/?ids=1,2,3", nil), "ids", 2)
	require.Error(t, err)
	assert.Equal(t, map[string]any{"field": "ids", "max": 2}, pkgerrors.As(err).Details())

	ids, err = ParseIDList(httptest.NewRequest(http.MethodGet, "/?ids=2,1,2,2,1&ids=2", nil), "ids", 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids)
}

func TestParseQueryBool(t *testing.T) {
	v, err := ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?fallback=true", nil), "fallback", false)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ParseQueryBool(httptest.NewRequest(http.MethodGet, "/", nil), "fallback", true)
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?fallback=maybe", nil), "fallback", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQueryValueTrimsAndCaps(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?location=%20Ant%20&ticker=rat&long="+strings.Repeat("a", 100), nil)
	assert.Equal(t, "Ant", QueryValue(r, "location"))
	assert.Equal(t, "RAT", QueryCode(r, "ticker"))
	assert.Len(t, QueryValue(r, "long"), maxQueryValueLen)
}

func TestParseEffectivePriceQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?price_list=ci1&ticker=rat&location=ANT-a&currency=cis", nil)
	q, err := ParseEffectivePriceQuery(r)
	require.NoError(t, err)
	assert.Equal(t, EffectivePriceQuery{PriceListCode: "CI1", Ticker: "RAT", LocationID: "ANT-a", Currency: enums.CurrencyCIS}, q)

	r = httptest.NewRequest(http.MethodGet, "/?price_list=CI1&ticker=RAT&location=ANT&fallback=true", nil)
	q, err = ParseEffectivePriceQuery(r)
	require.NoError(t, err, "currency is optional with fallback")
	assert.True(t, q.Fallback)
}

func TestParseEffectivePriceQueryRejects(t *testing.T) {
	cases := map[string]string{
		"/?ticker=RAT&location=ANT&currency=CIS":                "price_list",
		"/?price_list=CI1&ticker=RAT&location=ANT":              "currency",
		"/?price_list=CI1&ticker=RAT&location=ANT&currency=USD": "currency",
		"/?price_list=CI1&ticker=R-T&location=ANT&currency=CIS": "ticker",
		"/?price_list=CI1&ticker=RAT&currency=CIS":              "location",
	}
	for target, field := range cases {
		_, err := ParseEffectivePriceQuery(httptest.NewRequest(http.MethodGet, target, nil))
		require.Error(t, err, target)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		details, ok := typed.Details().(map[string]string)
		require.True(t, ok, target)
		assert.Contains(t, details, field, target)
	}
}
