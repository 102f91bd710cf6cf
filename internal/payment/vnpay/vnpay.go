package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/payment"

	"github.com/shopspring/decimal"
)

const (
	apiVersion  = "2.1.0"
	commandPay  = "pay"
	currencyVND = "VND"
	dateLayout  = "20060102150405"
)

// Config VNPay 网关配置
type Config struct {
	TmnCode    string // 商户代码
	HashSecret string // 签名密钥
	PayURL     string // 收银台地址
	RefundURL  string // 退款接口地址
	ReturnURL  string // 浏览器回跳地址
	TimeoutMS  int    // 出站请求超时
}

// Adapter VNPay 适配器
// 签名规则：参数按键名升序、URL 编码后以 & 连接，再做 HMAC-SHA512。
// 金额在线路上以最小货币单位 ×100 传输。
type Adapter struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

// New 创建 VNPay 适配器
func New(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.TmnCode) == "" {
		return nil, fmt.Errorf("%w: vnpay tmn_code is required", payment.ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.HashSecret) == "" {
		return nil, fmt.Errorf("%w: vnpay hash_secret is required", payment.ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.PayURL) == "" {
		return nil, fmt.Errorf("%w: vnpay pay_url is required", payment.ErrConfigInvalid)
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}, nil
}

// Name 网关标识
func (a *Adapter) Name() string {
	return constants.GatewayVNPay
}

// BuildPaymentURL 构建收银台跳转链接
func (a *Adapter) BuildPaymentURL(_ context.Context, input payment.PaymentURLInput) (string, error) {
	if strings.TrimSpace(input.OrderCode) == "" {
		return "", fmt.Errorf("%w: order code is required", payment.ErrConfigInvalid)
	}
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return "", fmt.Errorf("%w: amount must be positive", payment.ErrConfigInvalid)
	}
	locale := strings.TrimSpace(input.Locale)
	if locale == "" {
		locale = "vn"
	}
	orderInfo := strings.TrimSpace(input.OrderInfo)
	if orderInfo == "" {
		orderInfo = input.OrderCode
	}
	now := a.now()

	params := map[string]string{
		"vnp_Version":    apiVersion,
		"vnp_Command":    commandPay,
		"vnp_TmnCode":    a.cfg.TmnCode,
		"vnp_Amount":     wireAmount(input.Amount),
		"vnp_CurrCode":   currencyVND,
		"vnp_TxnRef":     input.OrderCode,
		"vnp_OrderInfo":  orderInfo,
		"vnp_OrderType":  "other",
		"vnp_Locale":     locale,
		"vnp_ReturnUrl":  a.cfg.ReturnURL,
		"vnp_IpAddr":     input.ClientIP,
		"vnp_CreateDate": now.Format(dateLayout),
		"vnp_ExpireDate": now.Add(15 * time.Minute).Format(dateLayout),
	}
	query := buildSignContent(params)
	params["vnp_SecureHash"] = signHMAC512(query, a.cfg.HashSecret)

	return a.cfg.PayURL + "?" + buildSignContent(params), nil
}

// VerifyNotification 验证回调/webhook 参数并归一化
func (a *Adapter) VerifyNotification(params map[string]string) (*payment.Notification, error) {
	received := strings.TrimSpace(params["vnp_SecureHash"])
	if received == "" {
		return nil, fmt.Errorf("%w: missing vnp_SecureHash", payment.ErrSignatureInvalid)
	}
	filtered := make(map[string]string, len(params))
	for key, value := range params {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		filtered[key] = value
	}
	expected := signHMAC512(buildSignContent(filtered), a.cfg.HashSecret)
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return nil, payment.ErrSignatureInvalid
	}

	orderCode := strings.TrimSpace(params["vnp_TxnRef"])
	txnID := strings.TrimSpace(params["vnp_TransactionNo"])
	if orderCode == "" || txnID == "" {
		return nil, fmt.Errorf("%w: missing vnp_TxnRef or vnp_TransactionNo", payment.ErrNotificationInvalid)
	}
	amount, err := parseWireAmount(params["vnp_Amount"])
	if err != nil {
		return nil, fmt.Errorf("%w: bad vnp_Amount", payment.ErrNotificationInvalid)
	}
	resultCode := strings.TrimSpace(params["vnp_ResponseCode"])

	return &payment.Notification{
		OrderCode:     orderCode,
		TransactionID: txnID,
		Amount:        amount,
		ResultCode:    resultCode,
		Success:       resultCode == constants.VNPayResultSuccess,
	}, nil
}

// IssueRefund 发起网关退款
// 退款接口签名为固定顺序字段以 | 连接后 HMAC-SHA512。
func (a *Adapter) IssueRefund(ctx context.Context, input payment.RefundInput) (*payment.RefundResult, error) {
	if strings.TrimSpace(a.cfg.RefundURL) == "" {
		return nil, fmt.Errorf("%w: vnpay refund_url is required", payment.ErrConfigInvalid)
	}
	if strings.TrimSpace(input.OrderCode) == "" || strings.TrimSpace(input.GatewayTxnID) == "" {
		return nil, fmt.Errorf("%w: refund requires order code and gateway txn id", payment.ErrConfigInvalid)
	}
	now := a.now()
	body := map[string]string{
		"vnp_RequestId":       input.RequestID,
		"vnp_Version":         apiVersion,
		"vnp_Command":         "refund",
		"vnp_TmnCode":         a.cfg.TmnCode,
		"vnp_TransactionType": "02",
		"vnp_TxnRef":          input.OrderCode,
		"vnp_Amount":          wireAmount(input.Amount),
		"vnp_TransactionNo":   input.GatewayTxnID,
		"vnp_TransactionDate": now.Format(dateLayout),
		"vnp_CreateBy":        "system",
		"vnp_CreateDate":      now.Format(dateLayout),
		"vnp_IpAddr":          "127.0.0.1",
		"vnp_OrderInfo":       input.Reason,
	}
	content := strings.Join([]string{
		body["vnp_RequestId"],
		body["vnp_Version"],
		body["vnp_Command"],
		body["vnp_TmnCode"],
		body["vnp_TransactionType"],
		body["vnp_TxnRef"],
		body["vnp_Amount"],
		body["vnp_TransactionNo"],
		body["vnp_TransactionDate"],
		body["vnp_CreateBy"],
		body["vnp_CreateDate"],
		body["vnp_IpAddr"],
		body["vnp_OrderInfo"],
	}, "|")
	body["vnp_SecureHash"] = signHMAC512(content, a.cfg.HashSecret)

	respBytes, err := a.postJSON(ctx, a.cfg.RefundURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrRequestFailed, err)
	}

	var resp struct {
		ResponseCode  string `json:"vnp_ResponseCode"`
		Message       string `json:"vnp_Message"`
		TransactionNo string `json:"vnp_TransactionNo"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, payment.ErrResponseInvalid
	}
	if resp.ResponseCode != constants.VNPayResultSuccess {
		return nil, fmt.Errorf("%w: code=%s msg=%s", payment.ErrRefundFailed, resp.ResponseCode, resp.Message)
	}
	return &payment.RefundResult{
		RefundTxnID: strings.TrimSpace(resp.TransactionNo),
		ResultCode:  resp.ResponseCode,
	}, nil
}

func (a *Adapter) postJSON(ctx context.Context, endpoint string, body map[string]string) ([]byte, error) {
	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payloadBytes)))
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

// wireAmount 线路金额，VND × 100 的整数字符串
func wireAmount(amount models.Money) string {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).String()
}

func parseWireAmount(raw string) (models.Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return models.Money{}, err
	}
	return models.NewMoneyFromDecimal(d.Div(decimal.NewFromInt(100))), nil
}

func buildSignContent(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+url.QueryEscape(params[key]))
	}
	return strings.Join(pairs, "&")
}

func signHMAC512(content, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(content))
	return strings.ToLower(hex.EncodeToString(mac.Sum(nil)))
}
