package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/coursepay-next/internal/models"
)

var (
	ErrConfigInvalid       = errors.New("payment config invalid")
	ErrSignatureInvalid    = errors.New("payment signature invalid")
	ErrNotificationInvalid = errors.New("payment notification invalid")
	ErrRequestFailed       = errors.New("payment gateway request failed")
	ErrResponseInvalid     = errors.New("payment gateway response invalid")
	ErrRefundFailed        = errors.New("payment gateway refund failed")
	ErrGatewayUnsupported  = errors.New("payment gateway unsupported")
)

// PaymentURLInput 收银台跳转链接构建输入
type PaymentURLInput struct {
	OrderCode string
	Amount    models.Money
	OrderInfo string
	ClientIP  string
	Locale    string
}

// Notification 验签通过后的标准化网关通知
// 回调与 webhook 两条通道都归一到该结构再进入对账。
type Notification struct {
	OrderCode     string
	TransactionID string
	Amount        models.Money
	ResultCode    string
	Success       bool
}

// RefundInput 网关退款输入
type RefundInput struct {
	RequestID    string
	OrderCode    string
	GatewayTxnID string
	Amount       models.Money
	Reason       string
}

// RefundResult 网关退款结果
type RefundResult struct {
	RefundTxnID string
	ResultCode  string
}

// Adapter 支付网关适配器
type Adapter interface {
	Name() string
	BuildPaymentURL(ctx context.Context, input PaymentURLInput) (string, error)
	VerifyNotification(params map[string]string) (*Notification, error)
	IssueRefund(ctx context.Context, input RefundInput) (*RefundResult, error)
}

// Registry 按网关名注册适配器
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry 创建适配器注册表
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register 注册适配器
func (r *Registry) Register(adapter Adapter) {
	if adapter == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(adapter.Name()))
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = adapter
}

// Get 获取适配器，未注册时返回 ErrGatewayUnsupported
func (r *Registry) Get(name string) (Adapter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnsupported, name)
	}
	return adapter, nil
}

// Names 返回已注册的网关名
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
