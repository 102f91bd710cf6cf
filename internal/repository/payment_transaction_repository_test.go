package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPaymentTransactionRepositoryTest(t *testing.T) (*GormPaymentTransactionRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_txn_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.PaymentTransaction{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPaymentTransactionRepository(db), db
}

func TestPaymentTransactionCreateIgnoreDuplicate(t *testing.T) {
	repo, _ := setupPaymentTransactionRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	first := models.PaymentTransaction{
		OrderID:      1,
		Gateway:      constants.GatewayVNPay,
		GatewayTxnID: "14226112",
		Amount:       models.NewMoneyFromDecimal(decimal.NewFromInt(450000)),
		ResultCode:   constants.VNPayResultSuccess,
		ReceivedAt:   now,
	}
	inserted, err := repo.CreateIgnoreDuplicate(&first)
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if !inserted {
		t.Fatalf("first insert should report inserted")
	}

	duplicate := models.PaymentTransaction{
		OrderID:      1,
		Gateway:      constants.GatewayVNPay,
		GatewayTxnID: "14226112",
		Amount:       models.NewMoneyFromDecimal(decimal.NewFromInt(450000)),
		ResultCode:   constants.VNPayResultSuccess,
		ReceivedAt:   now.Add(time.Second),
	}
	inserted, err = repo.CreateIgnoreDuplicate(&duplicate)
	if err != nil {
		t.Fatalf("duplicate insert failed: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate gateway txn should be ignored")
	}

	txns, err := repo.ListByOrderID(1)
	if err != nil {
		t.Fatalf("list by order failed: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("txns len want 1 got %d", len(txns))
	}
}

func TestPaymentTransactionSameTxnIDDifferentGateway(t *testing.T) {
	repo, _ := setupPaymentTransactionRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	vnpay := models.PaymentTransaction{
		OrderID:      2,
		Gateway:      constants.GatewayVNPay,
		GatewayTxnID: "9900",
		Amount:       models.NewMoneyFromDecimal(decimal.NewFromInt(500000)),
		ResultCode:   constants.VNPayResultSuccess,
		ReceivedAt:   now,
	}
	if inserted, err := repo.CreateIgnoreDuplicate(&vnpay); err != nil || !inserted {
		t.Fatalf("vnpay insert failed: inserted=%v err=%v", inserted, err)
	}

	momo := models.PaymentTransaction{
		OrderID:      3,
		Gateway:      constants.GatewayMoMo,
		GatewayTxnID: "9900",
		Amount:       models.NewMoneyFromDecimal(decimal.NewFromInt(500000)),
		ResultCode:   constants.MoMoResultSuccess,
		ReceivedAt:   now,
	}
	inserted, err := repo.CreateIgnoreDuplicate(&momo)
	if err != nil {
		t.Fatalf("momo insert failed: %v", err)
	}
	if !inserted {
		t.Fatalf("same txn id from a different gateway should insert")
	}

	found, err := repo.GetByGatewayTxn(constants.GatewayMoMo, "9900")
	if err != nil {
		t.Fatalf("get by gateway txn failed: %v", err)
	}
	if found == nil || found.OrderID != 3 {
		t.Fatalf("get by gateway txn want order 3 got %+v", found)
	}
}
