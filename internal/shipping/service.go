package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/pkg/config"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
	"github.com/minhtran-dev/cakemarket-backend/pkg/redis"
)

// Quote is the outcome of a fee lookup. Provider records whether the fee came
// from the live rate API or the fixed fallback.
type Quote struct {
	Fee      decimal.Decimal
	Provider enums.ShippingProvider
}

// Route identifies the origin/destination pair for a quote. Nil ids mean the
// party never registered rate-api location codes.
type Route struct {
	SenderProvinceID   *int
	SenderDistrictID   *int
	ReceiverProvinceID *int
	ReceiverDistrictID *int
}

// Quoter produces a shipping fee for one shop group at checkout.
type Quoter interface {
	QuoteFee(ctx context.Context, route Route, weightGram int, value decimal.Decimal) Quote
}

// Directory serves cached location listings from the rate provider.
type Directory interface {
	Provinces(ctx context.Context) (json.RawMessage, error)
	Districts(ctx context.Context, provinceID int) (json.RawMessage, error)
}

type rateFetcher interface {
	Quote(ctx context.Context, req QuoteRequest) (decimal.Decimal, error)
	Locations(ctx context.Context, path string) (json.RawMessage, error)
}

// Service wraps the rate client with the fixed-fee fallback and a TTL cache
// for location listings. QuoteFee never fails: any provider problem degrades
// to the fallback fee.
type Service struct {
	client      rateFetcher
	cache       redis.Cache
	logg        *logger.Logger
	fallbackFee decimal.Decimal
	cfg         config.ShippingConfig
}

// NewService wires the shipping service.
func NewService(client rateFetcher, cache redis.Cache, cfg config.ShippingConfig, logg *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("shipping rate client required")
	}
	if cache == nil {
		cache = redis.NopCache{}
	}
	return &Service{
		client:      client,
		cache:       cache,
		logg:        logg,
		fallbackFee: cfg.FallbackFeeAmount(),
		cfg:         cfg,
	}, nil
}

// QuoteFee returns the live fee when the route is fully addressed and the
// provider answers in time; otherwise the fixed fallback fee.
func (s *Service) QuoteFee(ctx context.Context, route Route, weightGram int, value decimal.Decimal) Quote {
	if route.SenderProvinceID == nil || route.SenderDistrictID == nil ||
		route.ReceiverProvinceID == nil || route.ReceiverDistrictID == nil {
		return s.fallback()
	}

	fee, err := s.client.Quote(ctx, QuoteRequest{
		SenderProvinceID:   *route.SenderProvinceID,
		SenderDistrictID:   *route.SenderDistrictID,
		ReceiverProvinceID: *route.ReceiverProvinceID,
		ReceiverDistrictID: *route.ReceiverDistrictID,
		WeightGram:         weightGram,
		Value:              value,
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("shipping rate lookup failed, using fallback fee: %v", err))
		}
		return s.fallback()
	}
	if fee.LessThanOrEqual(decimal.Zero) {
		return s.fallback()
	}
	return Quote{Fee: fee, Provider: enums.ShippingProviderFastShip}
}

func (s *Service) fallback() Quote {
	return Quote{Fee: s.fallbackFee, Provider: enums.ShippingProviderFixed}
}

// Provinces returns the provider's province listing, cached with a TTL.
func (s *Service) Provinces(ctx context.Context) (json.RawMessage, error) {
	return s.cachedLocations(ctx, s.cache.ShippingKey("provinces"), "categories/listProvinceById?provinceId=-1")
}

// Districts returns the district listing for one province, cached with a TTL.
func (s *Service) Districts(ctx context.Context, provinceID int) (json.RawMessage, error) {
	key := s.cache.ShippingKey("districts", strconv.Itoa(provinceID))
	path := fmt.Sprintf("categories/listDistrict?provinceId=%d", provinceID)
	return s.cachedLocations(ctx, key, path)
}

func (s *Service) cachedLocations(ctx context.Context, key, path string) (json.RawMessage, error) {
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		return json.RawMessage(cached), nil
	}

	data, err := s.client.Locations(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, string(data), s.cfg.LocationTTL); err != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("caching location listing failed: %v", err))
	}
	return data, nil
}
