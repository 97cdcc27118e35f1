// Package vnpay 实现VNPAY风格的支付网关签名协议
//
// 协议要点：
// 1. 出站：参数按key字典序排序，做application/x-www-form-urlencoded编码，
//    对编码结果计算HMAC-SHA512（hex），作为vnp_SecureHash附加到跳转URL
// 2. 入站：去掉vnp_SecureHash/vnp_SecureHashType后按同样方式重新编码并计算，
//    与回调携带的签名逐字节比较，通过之前回调中的任何字段都不可信
// 3. 金额以网关最小货币单位传输（VND × 100）
//
// 回调时间戳不做时钟偏移校验，只有商户持有的密钥能区分真实回调。
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 协议常量
const (
	Version      = "2.1.0"
	CommandPay   = "pay"
	CurrencyVND  = "VND"
	LocaleVN     = "vn"
	OrderTypeAny = "other"

	// ResponseCodeApproved 网关约定的"交易成功"响应码
	ResponseCodeApproved = "00"

	// AmountMultiplier 金额换算：VND → 网关最小单位
	AmountMultiplier = 100

	defaultIPAddr  = "127.0.0.1"
	dateTimeLayout = "20060102150405"
)

// 参数名
const (
	ParamVersion        = "vnp_Version"
	ParamCommand        = "vnp_Command"
	ParamTmnCode        = "vnp_TmnCode"
	ParamLocale         = "vnp_Locale"
	ParamCurrCode       = "vnp_CurrCode"
	ParamTxnRef         = "vnp_TxnRef"
	ParamOrderInfo      = "vnp_OrderInfo"
	ParamOrderType      = "vnp_OrderType"
	ParamAmount         = "vnp_Amount"
	ParamReturnURL      = "vnp_ReturnUrl"
	ParamIPAddr         = "vnp_IpAddr"
	ParamCreateDate     = "vnp_CreateDate"
	ParamExpireDate     = "vnp_ExpireDate"
	ParamResponseCode   = "vnp_ResponseCode"
	ParamTransactionNo  = "vnp_TransactionNo"
	ParamBankCode       = "vnp_BankCode"
	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"
)

var (
	// ErrInvalidSignature 回调签名缺失或不匹配
	ErrInvalidSignature = apperrors.New(apperrors.ErrCodeInvalidSignature, "支付回调签名无效")

	// ErrMissingConfig 商户配置不完整
	ErrMissingConfig = apperrors.New(apperrors.ErrCodeInternal, "支付网关配置不完整")

	// ErrInvalidAmount 金额非法
	ErrInvalidAmount = apperrors.New(apperrors.ErrCodeInvalidParams, "支付金额必须大于0")

	// ErrInvalidCallbackAmount 回调金额不是VND×100的非负整数
	ErrInvalidCallbackAmount = apperrors.New(apperrors.ErrCodeInvalidParams, "回调金额格式错误")
)

// gatewayZone 网关使用越南时间（UTC+7）解析日期参数
var gatewayZone = time.FixedZone("ICT", 7*60*60)

// Config 商户配置
type Config struct {
	TmnCode    string // 商户号
	HashSecret string // 签名密钥
	PayURL     string // 网关支付页地址
	ReturnURL  string // 支付完成后的回调地址
}

// Client 签名/验签客户端（无状态，可并发使用）
type Client struct {
	cfg Config
}

// NewClient 创建网关客户端
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// PaymentRequest 一次支付跳转需要的业务参数
type PaymentRequest struct {
	TxnRef    string    // 商户侧交易号（回调关联键）
	Amount    int64     // 金额（VND）
	OrderInfo string    // 订单描述
	IPAddr    string    // 付款人IP
	CreatedAt time.Time // 创建时间
	ExpireAt  time.Time // 可选：过期时间
}

// BuildPaymentURL 生成带签名的跳转URL
func (c *Client) BuildPaymentURL(req PaymentRequest) (string, error) {
	if c.cfg.TmnCode == "" || c.cfg.HashSecret == "" || c.cfg.PayURL == "" || c.cfg.ReturnURL == "" {
		return "", ErrMissingConfig
	}
	if req.Amount <= 0 {
		return "", ErrInvalidAmount
	}

	ipAddr := req.IPAddr
	if ipAddr == "" {
		ipAddr = defaultIPAddr
	}
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	params := url.Values{}
	params.Set(ParamVersion, Version)
	params.Set(ParamCommand, CommandPay)
	params.Set(ParamTmnCode, c.cfg.TmnCode)
	params.Set(ParamLocale, LocaleVN)
	params.Set(ParamCurrCode, CurrencyVND)
	params.Set(ParamTxnRef, req.TxnRef)
	params.Set(ParamOrderInfo, req.OrderInfo)
	params.Set(ParamOrderType, OrderTypeAny)
	params.Set(ParamAmount, strconv.FormatInt(req.Amount*AmountMultiplier, 10))
	params.Set(ParamReturnURL, c.cfg.ReturnURL)
	params.Set(ParamIPAddr, ipAddr)
	params.Set(ParamCreateDate, FormatTime(createdAt))
	if !req.ExpireAt.IsZero() {
		params.Set(ParamExpireDate, FormatTime(req.ExpireAt))
	}

	params.Set(ParamSecureHash, c.Sign(params))
	return c.cfg.PayURL + "?" + formEncode(params), nil
}

// Sign 对参数集合计算签名（忽略已有的签名字段）
func (c *Client) Sign(params url.Values) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(Canonical(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 校验回调签名
// 与Sign输出的小写hex串逐字节比较，签名缺失或不一致都返回ErrInvalidSignature
func (c *Client) Verify(params url.Values) error {
	received := params.Get(ParamSecureHash)
	if received == "" {
		return ErrInvalidSignature
	}
	if !hmac.Equal([]byte(received), []byte(c.Sign(params))) {
		return ErrInvalidSignature
	}
	return nil
}

// Canonical 生成待签名字符串
// key字典序，值按WHATWG application/x-www-form-urlencoded编码：
// 空格为"+"，"*"保留原样，"~"编码为%7E（与url.QueryEscape相反）
func Canonical(params url.Values) string {
	signed := make(url.Values, len(params))
	for k, v := range params {
		if k == ParamSecureHash || k == ParamSecureHashType {
			continue
		}
		if len(v) == 0 {
			continue
		}
		signed[k] = v
	}
	return formEncode(signed)
}

var formEscaper = strings.NewReplacer("%2A", "*", "~", "%7E")

func formEscape(s string) string {
	return formEscaper.Replace(url.QueryEscape(s))
}

func formEncode(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf strings.Builder
	for _, k := range keys {
		for _, v := range params[k] {
			if buf.Len() > 0 {
				buf.WriteByte('&')
			}
			buf.WriteString(formEscape(k))
			buf.WriteByte('=')
			buf.WriteString(formEscape(v))
		}
	}
	return buf.String()
}

// Callback 验签通过后的回调字段
type Callback struct {
	TxnRef        string
	ResponseCode  string
	TransactionNo string
	BankCode      string
	Amount        int64 // 已换算回VND
}

// Approved 网关是否确认扣款成功
func (cb *Callback) Approved() bool {
	return cb.ResponseCode == ResponseCodeApproved
}

// ParseCallback 先验签再解析回调
func (c *Client) ParseCallback(params url.Values) (*Callback, error) {
	if err := c.Verify(params); err != nil {
		return nil, err
	}

	cb := &Callback{
		TxnRef:        strings.TrimSpace(params.Get(ParamTxnRef)),
		ResponseCode:  params.Get(ParamResponseCode),
		TransactionNo: params.Get(ParamTransactionNo),
		BankCode:      params.Get(ParamBankCode),
	}
	if raw := params.Get(ParamAmount); raw != "" {
		minor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || minor < 0 || minor%AmountMultiplier != 0 {
			return nil, ErrInvalidCallbackAmount
		}
		cb.Amount = minor / AmountMultiplier
	}
	return cb, nil
}

// FormatTime 按网关要求格式化时间（yyyyMMddHHmmss，UTC+7）
func FormatTime(t time.Time) string {
	return t.In(gatewayZone).Format(dateTimeLayout)
}
