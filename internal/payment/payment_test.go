package payment

import (
	"context"
	"errors"
	"testing"
)

type fakeAdapter struct {
	name string
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) BuildPaymentURL(context.Context, PaymentURLInput) (string, error) {
	return "", nil
}
func (f *fakeAdapter) VerifyNotification(map[string]string) (*Notification, error) {
	return nil, nil
}
func (f *fakeAdapter) IssueRefund(context.Context, RefundInput) (*RefundResult, error) {
	return nil, nil
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{name: "vnpay"})
	registry.Register(&fakeAdapter{name: "MoMo"})

	if _, err := registry.Get("vnpay"); err != nil {
		t.Fatalf("get vnpay failed: %v", err)
	}
	if _, err := registry.Get("momo"); err != nil {
		t.Fatalf("name lookup should be case insensitive: %v", err)
	}
	if _, err := registry.Get("stripe"); !errors.Is(err, ErrGatewayUnsupported) {
		t.Fatalf("unknown gateway want ErrGatewayUnsupported got %v", err)
	}

	names := registry.Names()
	if len(names) != 2 || names[0] != "momo" || names[1] != "vnpay" {
		t.Fatalf("names want [momo vnpay] got %v", names)
	}
}
