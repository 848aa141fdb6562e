package mail_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vzubenko/npd-receipt-backend/internal/mail"
	"github.com/vzubenko/npd-receipt-backend/internal/receipt"
)

func testItems() []receipt.LineItem {
	return []receipt.LineItem{
		{ID: "1", Name: "Консультация", Price: decimal.RequireFromString("1500.50"), Quantity: 2},
		{ID: "2", Name: "Отчёт", Price: decimal.RequireFromString("500"), Quantity: 0}, // defaults to 1
	}
}

func TestReceiptHTML_Deterministic(t *testing.T) {
	items := testItems()
	total := receipt.Total(items)
	link := "https://lknpd.nalog.ru/api/v1/receipt/123/abc/print"

	a := mail.ReceiptHTML(items, total, link, "My App")
	b := mail.ReceiptHTML(items, total, link, "My App")
	if a != b {
		t.Fatal("receipt HTML must be deterministic for identical inputs")
	}
}

func TestReceiptHTML_Content(t *testing.T) {
	items := testItems()
	total := receipt.Total(items)
	link := "https://lknpd.nalog.ru/api/v1/receipt/123/abc/print"
	html := mail.ReceiptHTML(items, total, link, "My App")

	for _, want := range []string{
		"Консультация",
		"1500.50", // unit price, 2 decimals
		"3001.00", // line subtotal 1500.50×2
		"500.00",  // price with quantity defaulted to 1
		"3501.00", // grand total
		link,
		"My App",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("receipt HTML missing %q", want)
		}
	}
}

func TestReceiptHTML_EscapesUserInput(t *testing.T) {
	items := []receipt.LineItem{
		{ID: "1", Name: `<script>alert("x")</script>`, Price: decimal.NewFromInt(1)},
	}
	html := mail.ReceiptHTML(items, receipt.Total(items), "https://example.com", "App")
	if strings.Contains(html, "<script>") {
		t.Error("item name must be HTML-escaped")
	}
}

func TestAdminAlertHTML(t *testing.T) {
	p := mail.AdminAlertParams{
		CustomerEmail: "buyer@example.com",
		Items:         testItems(),
		Amount:        decimal.RequireFromString("3501.00"),
		ErrMessage:    "service unavailable",
		OccurredAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	html := mail.AdminAlertHTML(p)

	for _, want := range []string{
		"buyer@example.com",
		"3501.00",
		"service unavailable",
		"2026-03-01T12:00:00Z",
		"Консультация",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("admin alert missing %q", want)
		}
	}
}
