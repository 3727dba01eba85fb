package gateway

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return New(Config{
		TmnCode:    "EDUVIET1",
		HashSecret: "supersecrethashkey",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8080/api/payments/return",
	})
}

func signedQuery(c *Client, overrides map[string]string) url.Values {
	params := map[string]string{
		"vnp_TmnCode":      "EDUVIET1",
		"vnp_Amount":       "19900000",
		"vnp_TxnRef":       "1724900000000",
		"vnp_ResponseCode": "00",
		"vnp_BankCode":     "NCB",
	}
	for k, v := range overrides {
		params[k] = v
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("vnp_SecureHash", c.Sign(params))
	return q
}

func TestCanonicalizeSortsAndExcludesHash(t *testing.T) {
	got := Canonicalize(map[string]string{
		"vnp_TxnRef":         "123",
		"vnp_Amount":         "1000",
		"vnp_SecureHash":     "deadbeef",
		"vnp_SecureHashType": "HmacSHA512",
	})
	assert.Equal(t, "vnp_Amount=1000&vnp_TxnRef=123", got)
}

func TestSignDeterministicAndKeyed(t *testing.T) {
	c := testClient()
	params := map[string]string{"vnp_TxnRef": "1", "vnp_Amount": "100"}
	assert.Equal(t, c.Sign(params), c.Sign(params))

	other := New(Config{HashSecret: "differentkey"})
	assert.NotEqual(t, c.Sign(params), other.Sign(params))
}

func TestVerifyCallback(t *testing.T) {
	c := testClient()
	q := signedQuery(c, nil)
	assert.True(t, c.VerifyCallback(q))

	t.Run("uppercase hash accepted", func(t *testing.T) {
		q2 := signedQuery(c, nil)
		q2.Set("vnp_SecureHash", strings.ToUpper(q2.Get("vnp_SecureHash")))
		assert.True(t, c.VerifyCallback(q2))
	})

	t.Run("tampered amount rejected", func(t *testing.T) {
		q2 := signedQuery(c, nil)
		q2.Set("vnp_Amount", "100")
		assert.False(t, c.VerifyCallback(q2))
	})

	t.Run("tampered response code rejected", func(t *testing.T) {
		q2 := signedQuery(c, map[string]string{"vnp_ResponseCode": "24"})
		q2.Set("vnp_ResponseCode", "00")
		assert.False(t, c.VerifyCallback(q2))
	})

	t.Run("missing hash rejected", func(t *testing.T) {
		q2 := signedQuery(c, nil)
		q2.Del("vnp_SecureHash")
		assert.False(t, c.VerifyCallback(q2))
	})
}

func TestBuildPaymentURL(t *testing.T) {
	c := testClient()
	raw := c.BuildPaymentURL(PaymentRequest{
		TxnRef:    "1724900000000",
		Amount:    199000,
		Currency:  "VND",
		OrderInfo: "Purchase package Premium",
		ClientIP:  "203.0.113.7",
		CreatedAt: time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	// Amount is carried in minor units times 100 per the gateway convention.
	assert.Equal(t, "19900000", q.Get("vnp_Amount"))
	assert.Equal(t, "1724900000000", q.Get("vnp_TxnRef"))
	assert.Equal(t, "20260829103000", q.Get("vnp_CreateDate"))
	assert.NotEmpty(t, q.Get("vnp_SecureHash"))

	// The emitted URL must verify against its own signature.
	assert.True(t, c.VerifyCallback(q))
}

func TestExtractors(t *testing.T) {
	q := url.Values{}
	q.Set("vnp_TxnRef", "42")
	q.Set("vnp_ResponseCode", "00")
	assert.Equal(t, "42", TxnRef(q))
	assert.Equal(t, "00", ResponseCode(q))
}
