// Package gateway implements the redirect/callback contract of a
// VNPay-compatible payment gateway: canonical parameter serialization,
// HMAC-SHA512 request signing, and callback signature verification.
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Gateway acknowledgment codes returned to the webhook caller so it stops
// retrying.
const (
	RspConfirmed     = "00"
	RspOrderNotFound = "01"
	RspBadChecksum   = "97"
	RspInternalError = "99"
)

// ResponseSuccess is the gateway outcome code for a settled payment.
const ResponseSuccess = "00"

const (
	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"
	paramResponseCode   = "vnp_ResponseCode"
	paramTxnRef         = "vnp_TxnRef"
)

// Config carries the merchant credentials and endpoints. Loaded once at
// startup and injected.
type Config struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// PaymentRequest is the gateway-facing view of one payment attempt.
type PaymentRequest struct {
	TxnRef    string
	Amount    int64 // minor units
	Currency  string
	OrderInfo string
	ClientIP  string
	CreatedAt time.Time
}

// BuildPaymentURL assembles the signed redirect URL the user is sent to.
// The signature covers every parameter except the hash fields themselves.
func (c *Client) BuildPaymentURL(req PaymentRequest) string {
	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    c.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(req.Amount*100, 10),
		"vnp_CurrCode":   req.Currency,
		paramTxnRef:      req.TxnRef,
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  "other",
		"vnp_ReturnUrl":  c.cfg.ReturnURL,
		"vnp_IpAddr":     req.ClientIP,
		"vnp_CreateDate": FormatDate(req.CreatedAt),
		"vnp_Locale":     "vn",
	}
	if params["vnp_OrderInfo"] == "" {
		params["vnp_OrderInfo"] = fmt.Sprintf("Thanh toan don hang %s", req.TxnRef)
	}

	secureHash := c.Sign(params)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set(paramSecureHash, secureHash)
	return c.cfg.PayURL + "?" + q.Encode()
}

// Sign computes the hex HMAC-SHA512 of the canonical serialization: keys
// sorted lexicographically, joined as k=v pairs with '&', values unescaped
// per the gateway convention.
func (c *Client) Sign(params map[string]string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(Canonicalize(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Canonicalize renders params in the gateway's signing form. The hash fields
// are always excluded.
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == paramSecureHash || k == paramSecureHashType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// VerifyCallback checks the supplied signature against a recomputation over
// the callback parameters. The comparison is constant time; a mismatch means
// the callback must be treated as forged, not retried.
func (c *Client) VerifyCallback(query url.Values) bool {
	supplied := query.Get(paramSecureHash)
	if supplied == "" {
		return false
	}
	params := make(map[string]string, len(query))
	for k := range query {
		params[k] = query.Get(k)
	}
	expected := c.Sign(params)
	return hmac.Equal([]byte(strings.ToLower(supplied)), []byte(expected))
}

// TxnRef extracts the transaction reference from callback parameters.
func TxnRef(query url.Values) string { return query.Get(paramTxnRef) }

// ResponseCode extracts the gateway outcome code from callback parameters.
func ResponseCode(query url.Values) string { return query.Get(paramResponseCode) }

// FormatDate renders a timestamp in the gateway's yyyyMMddHHmmss form.
func FormatDate(t time.Time) string {
	return t.Format("20060102150405")
}
