package public

import (
	"errors"
	"net/http"
	"strings"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentWebhook 网关服务端通知入口。
// 应答是给网关看的纯文本：ack 成功后网关停止重投，
// 所以只要这笔通知已经落了终态（包括重复投递）就应答成功。
func (h *Handler) PaymentWebhook(c *gin.Context) {
	gateway := c.Param("gateway")
	log := requestLog(c)
	log.Infow("payment_webhook_received",
		"gateway", gateway,
		"client_ip", c.ClientIP(),
		"content_type", strings.TrimSpace(c.ContentType()),
	)

	params, err := collectNotificationParams(c)
	if err != nil {
		log.Warnw("payment_webhook_params_invalid", "gateway", gateway, "error", err)
		c.String(http.StatusBadRequest, constants.CallbackAckFail)
		return
	}

	result, err := h.ReconcileService.Reconcile(c.Request.Context(), gateway, params)
	if err != nil {
		if result != nil && result.Order != nil {
			// 金额不符或券超限：失败状态和复核标记已落库，重投不会有新结果
			log.Warnw("payment_webhook_reconcile_degraded",
				"gateway", gateway,
				"order_code", result.Order.OrderCode,
				"error", err,
			)
			c.String(http.StatusOK, constants.CallbackAckSuccess)
			return
		}
		log.Warnw("payment_webhook_reconcile_failed", "gateway", gateway, "error", err)
		c.String(webhookFailStatus(err), constants.CallbackAckFail)
		return
	}

	if result.Duplicate {
		log.Infow("payment_webhook_duplicate_acked",
			"gateway", gateway,
			"order_code", result.Order.OrderCode,
		)
	} else {
		log.Infow("payment_webhook_processed",
			"gateway", gateway,
			"order_code", result.Order.OrderCode,
			"order_status", result.Order.Status,
		)
	}
	c.String(http.StatusOK, constants.CallbackAckSuccess)
}

func webhookFailStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrGatewayUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
