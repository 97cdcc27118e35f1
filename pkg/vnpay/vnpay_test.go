package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(Config{
		TmnCode:    "DEMO0001",
		HashSecret: "SECRETKEY123",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8080/api/v1/payments/vnpay/return",
	})
}

func parseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func TestBuildPaymentURL(t *testing.T) {
	c := newTestClient()
	createdAt := time.Date(2026, 3, 1, 2, 30, 15, 0, time.UTC)

	raw, err := c.BuildPaymentURL(PaymentRequest{
		TxnRef:    "BORROW_12_1700000000000",
		Amount:    25000,
		OrderInfo: "Thanh toan tra sach - Borrow 12",
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?"))

	q := parseQuery(t, raw)
	assert.Equal(t, "2500000", q.Get(ParamAmount), "金额需要乘以100")
	assert.Equal(t, "20260301093015", q.Get(ParamCreateDate), "日期按UTC+7格式化")
	assert.Equal(t, defaultIPAddr, q.Get(ParamIPAddr))
	assert.Equal(t, Version, q.Get(ParamVersion))
	assert.Equal(t, CommandPay, q.Get(ParamCommand))
	assert.Equal(t, "DEMO0001", q.Get(ParamTmnCode))
	assert.NotEmpty(t, q.Get(ParamSecureHash))

	// 生成的URL必须能通过自身的验签
	assert.NoError(t, c.Verify(q))
}

func TestBuildPaymentURL_Validation(t *testing.T) {
	_, err := NewClient(Config{}).BuildPaymentURL(PaymentRequest{TxnRef: "x", Amount: 1})
	assert.ErrorIs(t, err, ErrMissingConfig)

	_, err = newTestClient().BuildPaymentURL(PaymentRequest{TxnRef: "x", Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCanonical_SortedAndFormEncoded(t *testing.T) {
	params := url.Values{}
	params.Set("vnp_TxnRef", "T1")
	params.Set("vnp_Amount", "100")
	params.Set("vnp_OrderInfo", "tra sach")
	params.Set(ParamSecureHash, "abc")
	params.Set(ParamSecureHashType, "HmacSHA512")

	assert.Equal(t, "vnp_Amount=100&vnp_OrderInfo=tra+sach&vnp_TxnRef=T1", Canonical(params))
}

func TestCanonical_FormEncodingSet(t *testing.T) {
	params := url.Values{}
	params.Set("vnp_OrderInfo", "Sach *moi* ~ 50% & giam=gia")

	// "*"原样保留，"~"编码为%7E
	assert.Equal(t, "vnp_OrderInfo=Sach+*moi*+%7E+50%25+%26+giam%3Dgia", Canonical(params))

	c := newTestClient()
	raw, err := c.BuildPaymentURL(PaymentRequest{TxnRef: "T1", Amount: 1000, OrderInfo: "Tra sach *2*"})
	require.NoError(t, err)
	assert.Contains(t, raw, "vnp_OrderInfo=Tra+sach+*2*")
	assert.NoError(t, c.Verify(parseQuery(t, raw)))
}

func TestSign_MatchesIndependentHMAC(t *testing.T) {
	c := newTestClient()
	params := url.Values{}
	params.Set("vnp_TxnRef", "T1")
	params.Set("vnp_Amount", "100")

	mac := hmac.New(sha512.New, []byte("SECRETKEY123"))
	mac.Write([]byte("vnp_Amount=100&vnp_TxnRef=T1"))

	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), c.Sign(params))
}

func signedCallback(c *Client, code string) url.Values {
	params := url.Values{}
	params.Set(ParamTmnCode, "DEMO0001")
	params.Set(ParamTxnRef, "BORROW_7_1700000000000")
	params.Set(ParamAmount, "1500000")
	params.Set(ParamResponseCode, code)
	params.Set(ParamTransactionNo, "14000001")
	params.Set(ParamBankCode, "NCB")
	params.Set(ParamSecureHash, c.Sign(params))
	params.Set(ParamSecureHashType, "HmacSHA512")
	return params
}

func TestVerify(t *testing.T) {
	c := newTestClient()

	t.Run("合法回调", func(t *testing.T) {
		assert.NoError(t, c.Verify(signedCallback(c, ResponseCodeApproved)))
	})

	t.Run("大写hex签名被拒绝", func(t *testing.T) {
		params := signedCallback(c, ResponseCodeApproved)
		params.Set(ParamSecureHash, strings.ToUpper(params.Get(ParamSecureHash)))
		assert.ErrorIs(t, c.Verify(params), ErrInvalidSignature)
	})

	t.Run("篡改金额被拒绝", func(t *testing.T) {
		params := signedCallback(c, ResponseCodeApproved)
		params.Set(ParamAmount, "100")
		assert.ErrorIs(t, c.Verify(params), ErrInvalidSignature)
	})

	t.Run("缺少签名被拒绝", func(t *testing.T) {
		params := signedCallback(c, ResponseCodeApproved)
		params.Del(ParamSecureHash)
		assert.ErrorIs(t, c.Verify(params), ErrInvalidSignature)
	})

	t.Run("非hex签名被拒绝", func(t *testing.T) {
		params := signedCallback(c, ResponseCodeApproved)
		params.Set(ParamSecureHash, "not-hex")
		assert.ErrorIs(t, c.Verify(params), ErrInvalidSignature)
	})

	t.Run("其他商户密钥签名被拒绝", func(t *testing.T) {
		other := NewClient(Config{HashSecret: "another"})
		assert.ErrorIs(t, c.Verify(signedCallback(other, ResponseCodeApproved)), ErrInvalidSignature)
	})
}

func TestParseCallback(t *testing.T) {
	c := newTestClient()

	cb, err := c.ParseCallback(signedCallback(c, ResponseCodeApproved))
	require.NoError(t, err)
	assert.True(t, cb.Approved())
	assert.Equal(t, "BORROW_7_1700000000000", cb.TxnRef)
	assert.Equal(t, int64(15000), cb.Amount)

	cb, err = c.ParseCallback(signedCallback(c, "24"))
	require.NoError(t, err)
	assert.False(t, cb.Approved())

	params := signedCallback(c, ResponseCodeApproved)
	params.Set(ParamResponseCode, "24")
	_, err = c.ParseCallback(params)
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestParseCallback_AmountMustBeWholeVND(t *testing.T) {
	c := newTestClient()

	tests := []struct {
		name  string
		minor string
	}{
		{"带小数部分", "2500099"},
		{"负数", "-2500000"},
		{"非数字", "25k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := url.Values{}
			params.Set(ParamTxnRef, "BORROW_7_1700000000000")
			params.Set(ParamResponseCode, ResponseCodeApproved)
			params.Set(ParamAmount, tt.minor)
			params.Set(ParamSecureHash, c.Sign(params))

			cb, err := c.ParseCallback(params)
			assert.Nil(t, cb)
			assert.ErrorIs(t, err, ErrInvalidCallbackAmount)
		})
	}
}
