package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/pkg/config"
)

const (
	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"
	paramResponseCode   = "vnp_ResponseCode"
	paramTxnRef         = "vnp_TxnRef"

	dateLayout = "20060102150405"
)

// ResponseCodeSuccess is the gateway's "payment approved" response code.
const ResponseCodeSuccess = "00"

var (
	errTmnCodeRequired    = errors.New("gateway tmn code is required")
	errHashSecretRequired = errors.New("gateway hash secret is required")
	errPaymentURLRequired = errors.New("gateway payment url is required")
	errReturnURLRequired  = errors.New("gateway return url is required")
)

// RedirectRequest carries everything needed to build a hosted-payment URL.
// TxnRef identifies the checkout on our side and comes back verbatim in
// callbacks.
type RedirectRequest struct {
	TxnRef    string
	Amount    decimal.Decimal
	OrderInfo string
	IPAddress string
}

// Client signs redirect URLs and verifies callback signatures for a
// VNPay-compatible hosted payment gateway.
type Client struct {
	tmnCode    string
	hashSecret string
	paymentURL string
	returnURL  string
	expiry     time.Duration
	now        func() time.Time
}

// New validates the gateway credentials and returns a signing client.
func New(cfg config.GatewayConfig) (*Client, error) {
	if strings.TrimSpace(cfg.TmnCode) == "" {
		return nil, errTmnCodeRequired
	}
	if strings.TrimSpace(cfg.HashSecret) == "" {
		return nil, errHashSecretRequired
	}
	if strings.TrimSpace(cfg.PaymentURL) == "" {
		return nil, errPaymentURLRequired
	}
	if strings.TrimSpace(cfg.ReturnURL) == "" {
		return nil, errReturnURLRequired
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Client{
		tmnCode:    cfg.TmnCode,
		hashSecret: cfg.HashSecret,
		paymentURL: cfg.PaymentURL,
		returnURL:  cfg.ReturnURL,
		expiry:     expiry,
		now:        time.Now,
	}, nil
}

// BuildRedirectURL returns the signed hosted-payment URL for the request.
// The gateway expects the amount multiplied by 100 with no decimals.
func (c *Client) BuildRedirectURL(req RedirectRequest) string {
	created := c.now().UTC()
	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    c.tmnCode,
		"vnp_Amount":     req.Amount.Mul(decimal.NewFromInt(100)).Truncate(0).String(),
		"vnp_CurrCode":   "VND",
		paramTxnRef:      req.TxnRef,
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  c.returnURL,
		"vnp_IpAddr":     req.IPAddress,
		"vnp_CreateDate": created.Format(dateLayout),
		"vnp_ExpireDate": created.Add(c.expiry).Format(dateLayout),
	}

	query := buildQueryString(params)
	hash := hmacSHA512(c.hashSecret, query)
	return c.paymentURL + "?" + query + "&" + paramSecureHash + "=" + hash
}

// ValidateSignature recomputes the HMAC over the sorted callback params and
// compares it against vnp_SecureHash. Hash params and empty values are
// excluded from the signed payload, matching what the gateway signs.
func (c *Client) ValidateSignature(params map[string]string) bool {
	received, ok := params[paramSecureHash]
	if !ok || received == "" {
		return false
	}

	filtered := make(map[string]string, len(params))
	for key, value := range params {
		if key == paramSecureHash || key == paramSecureHashType || value == "" {
			continue
		}
		filtered[key] = value
	}

	expected := hmacSHA512(c.hashSecret, buildQueryString(filtered))
	return strings.EqualFold(received, expected)
}

// ResponseCode extracts the gateway's decision code from callback params.
func (c *Client) ResponseCode(params map[string]string) string {
	return params[paramResponseCode]
}

// TxnRef extracts our checkout reference from callback params.
func (c *Client) TxnRef(params map[string]string) string {
	return params[paramTxnRef]
}

// ParseCallback flattens url.Values into the single-value map the signature
// check operates on. Repeated keys keep the first value.
func ParseCallback(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}
	return params
}

func buildQueryString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(params[key]))
	}
	return strings.Join(parts, "&")
}

func hmacSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
