package service

import (
	"github.com/coursepay-next/internal/constants"
)

// 订单状态机：pending 只能走向 paid/failed/cancelled，
// paid 之后仅允许退款方向的两个迁移，failed/cancelled 为终态。
var allowedOrderTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusPaid:      true,
		constants.OrderStatusFailed:    true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusRefunded:          true,
		constants.OrderStatusPartiallyRefunded: true,
	},
	constants.OrderStatusPartiallyRefunded: {
		constants.OrderStatusRefunded: true,
	},
}

func isOrderTransitionAllowed(current, target string) bool {
	if current == target {
		return true
	}
	nexts, ok := allowedOrderTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// isOrderTerminal 判断订单是否已离开 pending 且不再接受支付通知
func isOrderTerminal(status string) bool {
	return status != constants.OrderStatusPending
}
