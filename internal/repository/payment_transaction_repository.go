package repository

import (
	"strings"

	"github.com/coursepay-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentTransactionRepository 网关交易流水数据访问接口，流水只增不改
type PaymentTransactionRepository interface {
	CreateIgnoreDuplicate(txn *models.PaymentTransaction) (bool, error)
	GetByGatewayTxn(gateway, gatewayTxnID string) (*models.PaymentTransaction, error)
	ListByOrderID(orderID uint) ([]models.PaymentTransaction, error)
	WithTx(tx *gorm.DB) *GormPaymentTransactionRepository
}

// GormPaymentTransactionRepository GORM 实现
type GormPaymentTransactionRepository struct {
	db *gorm.DB
}

// NewPaymentTransactionRepository 创建交易流水仓库
func NewPaymentTransactionRepository(db *gorm.DB) *GormPaymentTransactionRepository {
	return &GormPaymentTransactionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentTransactionRepository) WithTx(tx *gorm.DB) *GormPaymentTransactionRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentTransactionRepository{db: tx}
}

// CreateIgnoreDuplicate 插入交易流水，(gateway, gateway_txn_id) 冲突时忽略。
// 返回值表示本次是否真正插入，false 意味着同一笔网关交易已经处理过。
func (r *GormPaymentTransactionRepository) CreateIgnoreDuplicate(txn *models.PaymentTransaction) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gateway"}, {Name: "gateway_txn_id"}},
		DoNothing: true,
	}).Create(txn)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByGatewayTxn 根据网关交易号获取流水
func (r *GormPaymentTransactionRepository) GetByGatewayTxn(gateway, gatewayTxnID string) (*models.PaymentTransaction, error) {
	gatewayTxnID = strings.TrimSpace(gatewayTxnID)
	if gatewayTxnID == "" {
		return nil, nil
	}
	var txn models.PaymentTransaction
	result := r.db.
		Where("gateway = ? AND gateway_txn_id = ?", gateway, gatewayTxnID).
		Limit(1).Find(&txn)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &txn, nil
}

// ListByOrderID 获取订单全部交易流水
func (r *GormPaymentTransactionRepository) ListByOrderID(orderID uint) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
