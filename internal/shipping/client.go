package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/pkg/config"
)

// QuoteRequest carries the rate-api inputs for one shop group.
type QuoteRequest struct {
	SenderProvinceID   int
	SenderDistrictID   int
	ReceiverProvinceID int
	ReceiverDistrictID int
	WeightGram         int
	Value              decimal.Decimal
}

// RateClient calls the external rate-quote API. The http client carries the
// bounded timeout; callers additionally pass a context.
type RateClient struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewRateClient builds the rate client from config. An empty base URL is
// allowed: Quote then always errors and the caller falls back to the fixed fee.
func NewRateClient(cfg config.ShippingConfig) *RateClient {
	return &RateClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: cfg.Timeout},
	}
}

type ratePayload struct {
	SenderProvince   int    `json:"SENDER_PROVINCE"`
	SenderDistrict   int    `json:"SENDER_DISTRICT"`
	ReceiverProvince int    `json:"RECEIVER_PROVINCE"`
	ReceiverDistrict int    `json:"RECEIVER_DISTRICT"`
	ProductType      string `json:"PRODUCT_TYPE"`
	ProductWeight    int    `json:"PRODUCT_WEIGHT"`
	ProductPrice     string `json:"PRODUCT_PRICE"`
	MoneyCollection  int    `json:"MONEY_COLLECTION"`
	OrderService     string `json:"ORDER_SERVICE"`
}

type rateResponse struct {
	Data []struct {
		Fee decimal.Decimal `json:"GIA_CUOC"`
	} `json:"data"`
}

// Quote requests a shipping fee for the given route and parcel.
func (c *RateClient) Quote(ctx context.Context, req QuoteRequest) (decimal.Decimal, error) {
	if c.baseURL == "" {
		return decimal.Zero, fmt.Errorf("shipping rate api not configured")
	}

	payload := ratePayload{
		SenderProvince:   req.SenderProvinceID,
		SenderDistrict:   req.SenderDistrictID,
		ReceiverProvince: req.ReceiverProvinceID,
		ReceiverDistrict: req.ReceiverDistrictID,
		ProductType:      "HH",
		ProductWeight:    req.WeightGram,
		ProductPrice:     req.Value.String(),
		MoneyCollection:  0,
		OrderService:     "SGN",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return decimal.Zero, fmt.Errorf("marshal rate payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order/getPriceAll", bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Token", c.token)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate api status %d", resp.StatusCode)
	}

	var parsed rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return decimal.Zero, fmt.Errorf("rate api returned no options")
	}
	return parsed.Data[0].Fee, nil
}

type locationResponse struct {
	Data json.RawMessage `json:"data"`
}

// Locations fetches a raw location listing (provinces or districts) from the
// rate provider's category endpoints.
func (c *RateClient) Locations(ctx context.Context, path string) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("shipping rate api not configured")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("build location request: %w", err)
	}
	if c.token != "" {
		httpReq.Header.Set("Token", c.token)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("location api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("location api status %d", resp.StatusCode)
	}

	var parsed locationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode location response: %w", err)
	}
	return parsed.Data, nil
}
