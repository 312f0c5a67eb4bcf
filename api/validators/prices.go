package validators

import (
	"net/http"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// EffectivePriceQuery is the input of the effective price lookup. Location
// ids are case-sensitive and kept verbatim.
type EffectivePriceQuery struct {
	PriceListCode string         `query:"price_list" validate:"required,max=32"`
	Ticker        string         `query:"ticker" validate:"required,alphanum,max=8"`
	LocationID    string         `query:"location" validate:"required,max=32"`
	Currency      enums.Currency `query:"currency" validate:"required_unless=Fallback true,currency"`
	Fallback      bool           `query:"fallback"`
}

func ParseEffectivePriceQuery(r *http.Request) (EffectivePriceQuery, error) {
	fallback, err := ParseQueryBool(r, "fallback", false)
	if err != nil {
		return EffectivePriceQuery{}, err
	}
	q := EffectivePriceQuery{
		PriceListCode: QueryCode(r, "price_list"),
		Ticker:        QueryCode(r, "ticker"),
		LocationID:    QueryValue(r, "location"),
		Currency:      enums.Currency(QueryCode(r, "currency")),
		Fallback:      fallback,
	}
	if err := Struct(q); err != nil {
		return EffectivePriceQuery{}, err
	}
	return q, nil
}
