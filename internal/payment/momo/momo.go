package momo

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const requestTypeCapture = "captureWallet"

// Config MoMo 网关配置
type Config struct {
	PartnerCode string // 合作方代码
	AccessKey   string // 访问密钥
	SecretKey   string // 签名密钥
	Endpoint    string // 下单接口地址
	RefundURL   string // 退款接口地址
	ReturnURL   string // 浏览器回跳地址
	NotifyURL   string // 异步通知地址
	TimeoutMS   int    // 出站请求超时
}

// Adapter MoMo 适配器
// 签名规则：固定顺序的 key=value 以 & 连接后 HMAC-SHA256。
// 金额以 VND 整数传输。
type Adapter struct {
	cfg    Config
	client *http.Client
	newID  func() string
}

// New 创建 MoMo 适配器
func New(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.PartnerCode) == "" {
		return nil, fmt.Errorf("%w: momo partner_code is required", payment.ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, fmt.Errorf("%w: momo access_key is required", payment.ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("%w: momo secret_key is required", payment.ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("%w: momo endpoint is required", payment.ErrConfigInvalid)
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// Name 网关标识
func (a *Adapter) Name() string {
	return constants.GatewayMoMo
}

// BuildPaymentURL 调用下单接口换取 payUrl
func (a *Adapter) BuildPaymentURL(ctx context.Context, input payment.PaymentURLInput) (string, error) {
	if strings.TrimSpace(input.OrderCode) == "" {
		return "", fmt.Errorf("%w: order code is required", payment.ErrConfigInvalid)
	}
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return "", fmt.Errorf("%w: amount must be positive", payment.ErrConfigInvalid)
	}
	orderInfo := strings.TrimSpace(input.OrderInfo)
	if orderInfo == "" {
		orderInfo = input.OrderCode
	}
	requestID := a.newID()
	amount := wireAmount(input.Amount)

	content := strings.Join([]string{
		"accessKey=" + a.cfg.AccessKey,
		"amount=" + amount,
		"extraData=",
		"ipnUrl=" + a.cfg.NotifyURL,
		"orderId=" + input.OrderCode,
		"orderInfo=" + orderInfo,
		"partnerCode=" + a.cfg.PartnerCode,
		"redirectUrl=" + a.cfg.ReturnURL,
		"requestId=" + requestID,
		"requestType=" + requestTypeCapture,
	}, "&")

	body := map[string]interface{}{
		"partnerCode": a.cfg.PartnerCode,
		"accessKey":   a.cfg.AccessKey,
		"requestId":   requestID,
		"amount":      amount,
		"orderId":     input.OrderCode,
		"orderInfo":   orderInfo,
		"redirectUrl": a.cfg.ReturnURL,
		"ipnUrl":      a.cfg.NotifyURL,
		"extraData":   "",
		"requestType": requestTypeCapture,
		"lang":        normalizeLang(input.Locale),
		"signature":   signHMAC256(content, a.cfg.SecretKey),
	}

	respBytes, err := a.postJSON(ctx, a.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrRequestFailed, err)
	}

	var resp struct {
		ResultCode int    `json:"resultCode"`
		Message    string `json:"message"`
		PayURL     string `json:"payUrl"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return "", payment.ErrResponseInvalid
	}
	if strconv.Itoa(resp.ResultCode) != constants.MoMoResultSuccess {
		return "", fmt.Errorf("%w: code=%d msg=%s", payment.ErrResponseInvalid, resp.ResultCode, resp.Message)
	}
	payURL := strings.TrimSpace(resp.PayURL)
	if payURL == "" {
		return "", fmt.Errorf("%w: empty payUrl", payment.ErrResponseInvalid)
	}
	return payURL, nil
}

// ipnSignKeys IPN 验签字段顺序，与 MoMo 文档一致
var ipnSignKeys = []string{
	"amount",
	"extraData",
	"message",
	"orderId",
	"orderInfo",
	"orderType",
	"partnerCode",
	"payType",
	"requestId",
	"responseTime",
	"resultCode",
	"transId",
}

// VerifyNotification 验证 IPN 参数并归一化
func (a *Adapter) VerifyNotification(params map[string]string) (*payment.Notification, error) {
	received := strings.TrimSpace(params["signature"])
	if received == "" {
		return nil, fmt.Errorf("%w: missing signature", payment.ErrSignatureInvalid)
	}
	pairs := make([]string, 0, len(ipnSignKeys)+1)
	pairs = append(pairs, "accessKey="+a.cfg.AccessKey)
	for _, key := range ipnSignKeys {
		pairs = append(pairs, key+"="+params[key])
	}
	expected := signHMAC256(strings.Join(pairs, "&"), a.cfg.SecretKey)
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return nil, payment.ErrSignatureInvalid
	}

	orderCode := strings.TrimSpace(params["orderId"])
	txnID := strings.TrimSpace(params["transId"])
	if orderCode == "" || txnID == "" {
		return nil, fmt.Errorf("%w: missing orderId or transId", payment.ErrNotificationInvalid)
	}
	amount, err := parseWireAmount(params["amount"])
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount", payment.ErrNotificationInvalid)
	}
	resultCode := strings.TrimSpace(params["resultCode"])

	return &payment.Notification{
		OrderCode:     orderCode,
		TransactionID: txnID,
		Amount:        amount,
		ResultCode:    resultCode,
		Success:       resultCode == constants.MoMoResultSuccess,
	}, nil
}

// IssueRefund 发起网关退款
func (a *Adapter) IssueRefund(ctx context.Context, input payment.RefundInput) (*payment.RefundResult, error) {
	if strings.TrimSpace(a.cfg.RefundURL) == "" {
		return nil, fmt.Errorf("%w: momo refund_url is required", payment.ErrConfigInvalid)
	}
	if strings.TrimSpace(input.OrderCode) == "" || strings.TrimSpace(input.GatewayTxnID) == "" {
		return nil, fmt.Errorf("%w: refund requires order code and gateway txn id", payment.ErrConfigInvalid)
	}
	requestID := input.RequestID
	if requestID == "" {
		requestID = a.newID()
	}
	amount := wireAmount(input.Amount)

	content := strings.Join([]string{
		"accessKey=" + a.cfg.AccessKey,
		"amount=" + amount,
		"description=" + input.Reason,
		"orderId=" + input.OrderCode,
		"partnerCode=" + a.cfg.PartnerCode,
		"requestId=" + requestID,
		"transId=" + input.GatewayTxnID,
	}, "&")

	body := map[string]interface{}{
		"partnerCode": a.cfg.PartnerCode,
		"orderId":     input.OrderCode,
		"requestId":   requestID,
		"amount":      amount,
		"transId":     input.GatewayTxnID,
		"lang":        "vi",
		"description": input.Reason,
		"signature":   signHMAC256(content, a.cfg.SecretKey),
	}

	respBytes, err := a.postJSON(ctx, a.cfg.RefundURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrRequestFailed, err)
	}

	var resp struct {
		ResultCode int    `json:"resultCode"`
		Message    string `json:"message"`
		TransID    int64  `json:"transId"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, payment.ErrResponseInvalid
	}
	if strconv.Itoa(resp.ResultCode) != constants.MoMoResultSuccess {
		return nil, fmt.Errorf("%w: code=%d msg=%s", payment.ErrRefundFailed, resp.ResultCode, resp.Message)
	}
	return &payment.RefundResult{
		RefundTxnID: strconv.FormatInt(resp.TransID, 10),
		ResultCode:  strconv.Itoa(resp.ResultCode),
	}, nil
}

func (a *Adapter) postJSON(ctx context.Context, endpoint string, body map[string]interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func normalizeLang(locale string) string {
	if strings.EqualFold(strings.TrimSpace(locale), "en") {
		return "en"
	}
	return "vi"
}

// wireAmount 线路金额，VND 整数字符串
func wireAmount(amount models.Money) string {
	return amount.Round(0).String()
}

func parseWireAmount(raw string) (models.Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return models.Money{}, err
	}
	return models.NewMoneyFromDecimal(d), nil
}

func signHMAC256(content, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	return strings.ToLower(hex.EncodeToString(mac.Sum(nil)))
}
