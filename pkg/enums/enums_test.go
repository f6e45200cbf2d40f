package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus(" in_transit ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != OrderStatusInTransit {
		t.Fatalf("expected IN_TRANSIT, got %s", status)
	}
	if _, err := ParseOrderStatus("LOST"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}

func TestOrderStatusDescriptionsCoverEveryStatus(t *testing.T) {
	for _, status := range validOrderStatuses {
		if status.DefaultDescription() == "" {
			t.Fatalf("missing default description for %s", status)
		}
	}
	if !OrderStatusCancelled.IsTerminal() || OrderStatusShipped.IsTerminal() {
		t.Fatalf("unexpected terminal classification")
	}
}

func TestCurrencyZeroDecimal(t *testing.T) {
	if !NormalizeCurrency("IDR").IsZeroDecimal() {
		t.Fatalf("expected idr to be zero decimal")
	}
	if NormalizeCurrency("usd").IsZeroDecimal() {
		t.Fatalf("usd has a minor unit")
	}
	if NormalizeCurrency("  ") != DefaultCurrency {
		t.Fatalf("expected blank currency to fall back to default")
	}
}

func TestParseRole(t *testing.T) {
	if role, err := ParseRole("admin"); err != nil || role != RoleAdmin {
		t.Fatalf("expected ADMIN, got %s err=%v", role, err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
}

func TestParsePaymentStatus(t *testing.T) {
	if _, err := ParsePaymentStatus("PAID"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParsePaymentStatus("settled"); err == nil {
		t.Fatalf("expected unknown payment status to fail")
	}
}
