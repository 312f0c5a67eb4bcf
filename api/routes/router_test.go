package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/api/controllers"
	"github.com/tradepost/tradepost-backend/internal/availability"
	"github.com/tradepost/tradepost-backend/internal/pricing"
	"github.com/tradepost/tradepost-backend/internal/quotes"
	"github.com/tradepost/tradepost-backend/internal/sellorders"
	"github.com/tradepost/tradepost-backend/pkg/config"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	"github.com/tradepost/tradepost-backend/pkg/logger"
	"github.com/tradepost/tradepost-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memoryRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryRateStore) RateLimitKey(scope, subject string) string {
	return scope + ":" + subject
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  json.RawMessage `json:"meta"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func strPtr(v string) *string { return &v }

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Env: "test", RequestTimeout: 5 * time.Second},
		Quotes: config.QuotesConfig{StaleAfter: 6 * time.Hour, MaxBatchSize: 10},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

// seedMarket builds one seller with three orders: a fixed price, a dynamic
// price that falls back to the list's default location, and a dynamic price
// with no row anywhere.
func seedMarket(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.InventoryRecord{}, &models.SellOrder{}, &models.Reservation{},
		&models.PriceList{}, &models.Price{}, &models.PriceAdjustment{},
		&models.Commodity{}, &models.Location{},
	))

	seller := uuid.New()
	synced := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Create(&models.PriceList{Code: "CI1", Name: "Castillo", Currency: enums.CurrencyCIS, DefaultLocationID: strPtr("ANT"), IsActive: true}).Error)
	require.NoError(t, db.Create(&models.Price{PriceListCode: "CI1", CommodityTicker: "RAT", LocationID: "ANT", Price: dec("100"), Source: enums.PriceSourceManual}).Error)
	require.NoError(t, db.Create(&models.PriceAdjustment{PriceListCode: strPtr("CI1"), AdjustmentType: enums.AdjustmentTypePercentage, Value: dec("10"), IsActive: true}).Error)
	require.NoError(t, db.Create(&models.Location{ID: "ANT", Name: "Antares Station"}).Error)

	orders := []models.SellOrder{
		{UserID: seller, CommodityTicker: "RAT", LocationID: "ANT", LimitMode: enums.LimitModeNone, Price: dec("12.00"), Currency: enums.CurrencyICA, IsActive: true},
		{UserID: seller, CommodityTicker: "RAT", LocationID: "BEN", LimitMode: enums.LimitModeNone, Currency: enums.CurrencyCIS, PriceListCode: strPtr("CI1"), IsActive: true},
		{UserID: seller, CommodityTicker: "DW", LocationID: "ANT", LimitMode: enums.LimitModeNone, Currency: enums.CurrencyCIS, PriceListCode: strPtr("CI1"), IsActive: true},
	}
	require.NoError(t, db.Create(&orders).Error)
	require.NoError(t, db.Create(&models.InventoryRecord{UserID: seller, CommodityTicker: "RAT", LocationID: "ANT", StorageID: "wh", Quantity: 50, LastSyncedAt: &synced}).Error)
	require.NoError(t, db.Create(&models.Reservation{SellOrderID: orders[0].ID, BuyerUserID: uuid.New(), Quantity: 5, Status: enums.ReservationStatusPending, StatusChangedAt: synced}).Error)
	return db
}

func newTestRouter(t *testing.T, db *gorm.DB, mutate func(*Params)) http.Handler {
	t.Helper()
	cfg := testConfig()
	avail, err := availability.NewService(availability.NewRepository(db), nil, cfg.Quotes.StaleAfter)
	require.NoError(t, err)
	prices, err := pricing.NewService(pricing.NewRepository(db), logger.Nop(), nil)
	require.NoError(t, err)
	quoteSvc, err := quotes.NewService(quotes.ServiceParams{
		Orders:       sellorders.NewRepository(db),
		Availability: avail,
		Pricing:      prices,
		MaxBatchSize: cfg.Quotes.MaxBatchSize,
	})
	require.NoError(t, err)

	params := Params{
		Config:  cfg,
		Logger:  logger.Nop(),
		DB:      stubPinger{},
		Quotes:  quoteSvc,
		Pricing: prices,
	}
	if mutate != nil {
		mutate(&params)
	}
	return NewRouter(params)
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "203.0.113.7:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(t, seedMarket(t), nil)

	rec, _ := get(t, h, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Tradepost-Env"))

	rec, body := get(t, h, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"db":"ok","redis":"skipped"}}`, string(body.Data))

	down := newTestRouter(t, seedMarket(t), func(p *Params) {
		p.Redis = stubPinger{err: errors.New("connection refused")}
	})
	rec, body = get(t, down, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DEPENDENCY_ERROR", body.Error.Code)
}

func TestBatchQuotesEndToEnd(t *testing.T) {
	h := newTestRouter(t, seedMarket(t), nil)

	rec, body := get(t, h, "/api/v1/sell-orders/quotes?ids=1,2,3,99")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data []quotes.SellOrderQuote
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data, 3)
	assert.JSONEq(t, `{"requested":4,"returned":3,"missingIds":[99]}`, string(body.Meta))

	fixed := data[0]
	assert.Equal(t, enums.PricingModeFixed, fixed.PricingMode)
	assert.Equal(t, 50, fixed.Quantity.FIOQuantity)
	assert.Equal(t, 5, fixed.Quantity.ReservedQuantity)
	assert.Equal(t, 45, fixed.Quantity.RemainingQuantity)
	assert.False(t, fixed.Quantity.IsStale)
	require.NotNil(t, fixed.DisplayPrice)
	assert.True(t, fixed.DisplayPrice.Amount.Equal(dec("12")))
	assert.Nil(t, fixed.EffectivePrice)

	fallback := data[1]
	assert.Equal(t, enums.PricingModeDynamic, fallback.PricingMode)
	assert.Zero(t, fallback.Quantity.FIOQuantity, "no inventory at BEN")
	assert.True(t, fallback.Quantity.IsStale, "missing sync is stale")
	require.NotNil(t, fallback.DisplayPrice)
	assert.True(t, fallback.DisplayPrice.Amount.Equal(dec("110")), fallback.DisplayPrice.Amount.String())
	require.NotNil(t, fallback.EffectivePrice)
	assert.True(t, fallback.EffectivePrice.IsFallback)
	require.NotNil(t, fallback.EffectivePrice.LocationName)
	assert.Equal(t, "Antares Station", *fallback.EffectivePrice.LocationName)

	unpriced := data[2]
	assert.Equal(t, enums.PricingModeDynamic, unpriced.PricingMode)
	assert.Nil(t, unpriced.DisplayPrice)
	assert.Nil(t, unpriced.EffectivePrice)
}

func TestBatchQuotesValidation(t *testing.T) {
	h := newTestRouter(t, seedMarket(t), nil)

	rec, body := get(t, h, "/api/v1/sell-orders/quotes")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)

	rec, _ = get(t, h, "/api/v1/sell-orders/quotes?ids=1,2,3,4,5,6,7,8,9,10,11")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchQuotesCountsDistinctIDs(t *testing.T) {
	h := newTestRouter(t, seedMarket(t), nil)

	rec, body := get(t, h, "/api/v1/sell-orders/quotes?ids=1,1,1,1,1,1,1,1,1,1,1,99,99")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data []quotes.SellOrderQuote
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, int64(1), data[0].Order.ID)
	assert.JSONEq(t, `{"requested":2,"returned":1,"missingIds":[99]}`, string(body.Meta))
}

func TestSingleQuoteAndDisplayPrice(t *testing.T) {
	h := newTestRouter(t, seedMarket(t), nil)

	rec, body := get(t, h, "/api/v1/sell-orders/2/quote")
	require.Equal(t, http.StatusOK, rec.Code)
	var quote quotes.SellOrderQuote
	require.NoError(t, json.Unmarshal(body.Data, &quote))
	assert.Equal(t, int64(2), quote.Order.ID)

	rec, body = get(t, h, "/api/v1/sell-orders/99/quote")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	rec, _ = get(t, h, "/api/v1/sell-orders/abc/quote")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = get(t, h, "/api/v1/sell-orders/1/display-price")
	require.Equal(t, http.StatusOK, rec.Code)
	var price quotes.Price
	require.NoError(t, json.Unmarshal(body.Data, &price))
	assert.True(t, price.Amount.Equal(dec("12")))
	assert.Equal(t, enums.CurrencyICA, price.Currency)

	rec, body = get(t, h, "/api/v1/sell-orders/3/display-price")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PRICE_UNAVAILABLE", body.Error.Code)
}

func TestEffectivePriceEndpoint(t *testing.T) {
	h := newTestRouter(t, seedMarket(t), nil)

	rec, body := get(t, h, "/api/v1/prices/effective?price_list=ci1&ticker=rat&location=ANT&currency=cis")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var price pricing.EffectivePrice
	require.NoError(t, json.Unmarshal(body.Data, &price))
	assert.True(t, price.FinalPrice.Equal(dec("110")))
	require.Len(t, price.Adjustments, 1)
	assert.True(t, price.Adjustments[0].Delta.Equal(dec("10")))

	rec, body = get(t, h, "/api/v1/prices/effective?price_list=CI1&ticker=RAT&location=BEN&currency=CIS")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PRICE_UNAVAILABLE", body.Error.Code)

	rec, body = get(t, h, "/api/v1/prices/effective?price_list=CI1&ticker=RAT&location=BEN&fallback=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(body.Data, &price))
	assert.True(t, price.IsFallback)
	require.NotNil(t, price.RequestedLocationID)
	assert.Equal(t, "BEN", *price.RequestedLocationID)

	rec, body = get(t, h, "/api/v1/prices/effective?price_list=CI1&ticker=RAT&location=ANT&currency=USD")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestQuoteRoutesAreRateLimited(t *testing.T) {
	h := newTestRouter(t, seedMarket(t), func(p *Params) {
		p.Config.Quotes.RateLimitPerWindow = 1
		p.Config.Quotes.RateLimitWindow = time.Minute
		p.RateStore = &memoryRateStore{counts: map[string]int64{}}
	})

	rec, _ := get(t, h, "/api/v1/sell-orders/1/quote")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, body := get(t, h, "/api/v1/sell-orders/1/quote")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)

	rec, _ = get(t, h, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code, "health checks are not rate limited")
}

func TestMetricsEndpointExposesRequestLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newTestRouter(t, seedMarket(t), func(p *Params) {
		p.HTTPMetrics = metrics.NewHTTPMetrics(reg)
		p.Gatherer = reg
	})

	get(t, h, "/api/v1/sell-orders/1/quote")
	rec, _ := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tradepost_http_request_duration_seconds_count{method="GET",route="/api/v1/sell-orders/{orderId}/quote",status="200"} 1`)
}

var _ controllers.Pinger = stubPinger{}
