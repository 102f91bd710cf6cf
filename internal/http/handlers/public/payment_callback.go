package public

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentCallback 网关浏览器回跳入口。
// 回跳只负责把用户带回订单状态页，订单状态推进在对账服务里完成，
// 与 webhook 共用同一条对账路径，先到者生效。
func (h *Handler) PaymentCallback(c *gin.Context) {
	gateway := c.Param("gateway")
	log := requestLog(c)
	log.Infow("payment_callback_received",
		"gateway", gateway,
		"method", c.Request.Method,
		"client_ip", c.ClientIP(),
		"content_type", strings.TrimSpace(c.ContentType()),
	)

	params, err := collectNotificationParams(c)
	if err != nil {
		log.Warnw("payment_callback_params_invalid", "gateway", gateway, "error", err)
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.ReconcileService.Reconcile(c.Request.Context(), gateway, params)
	if err != nil && (result == nil || result.Order == nil) {
		log.Warnw("payment_callback_reconcile_failed", "gateway", gateway, "error", err)
		respondReconcileError(c, err)
		return
	}
	if err != nil {
		// 金额不符、券超限这类结果已在对账侧落库并打了复核标记，
		// 对用户按失败订单展示即可
		log.Warnw("payment_callback_reconcile_degraded",
			"gateway", gateway,
			"order_code", result.Order.OrderCode,
			"error", err,
		)
	}

	h.redirectToOrderStatus(c, result.Order.OrderCode, result.Order.Status)
}

// redirectToOrderStatus 跳转到前台订单状态页；未配置状态页地址时降级为 JSON 响应
func (h *Handler) redirectToOrderStatus(c *gin.Context, orderCode, status string) {
	target := strings.TrimSpace(h.Config.Payment.OrderStatusURL)
	if target != "" {
		if parsed, err := url.Parse(target); err == nil {
			query := parsed.Query()
			query.Set("order_code", orderCode)
			query.Set("status", status)
			parsed.RawQuery = query.Encode()
			c.Redirect(http.StatusFound, parsed.String())
			return
		}
		requestLog(c).Warnw("payment_callback_status_url_invalid", "order_status_url", target)
	}
	response.Success(c, gin.H{
		"order_code": orderCode,
		"status":     status,
	})
}

func respondReconcileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		respondError(c, response.CodeBadRequest, "error.invalid_signature", err)
	case errors.Is(err, service.ErrGatewayUnavailable):
		respondError(c, response.CodeBadRequest, "error.gateway_unavailable", err)
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, "error.order_not_found", err)
	default:
		respondError(c, response.CodeInternal, "error.reconcile_failed", err)
	}
}

// collectNotificationParams 读取网关通知参数。
// VNPay 走查询串，MoMo IPN 走 JSON body，统一摊平成 map[string]string 再交给适配器验签。
func collectNotificationParams(c *gin.Context) (map[string]string, error) {
	if strings.HasPrefix(strings.TrimSpace(c.ContentType()), "application/json") {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}
		return flattenJSONParams(body)
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	params := make(map[string]string, len(c.Request.Form))
	for key, values := range c.Request.Form {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params, nil
}

// flattenJSONParams 把 JSON 通知体摊平为字符串表。
// 数字保留原始字面量，float 格式化会破坏验签串。
func flattenJSONParams(body []byte) (map[string]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var raw map[string]interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}

	params := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			params[key] = ""
		case string:
			params[key] = v
		case json.Number:
			params[key] = v.String()
		case bool:
			if v {
				params[key] = "true"
			} else {
				params[key] = "false"
			}
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			params[key] = string(encoded)
		}
	}
	return params, nil
}
