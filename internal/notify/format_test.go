package notify

import (
	"strings"
	"testing"
)

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	neg := -5.0
	zero := 0.0
	small := 500.0

	for _, tc := range []struct {
		name  string
		price *float64
		want  string
	}{
		{"nil", nil, "По запросу"},
		{"zero", &zero, "По запросу"},
		{"negative", &neg, "По запросу"},
		{"small", &small, "500 руб."},
	} {
		if got := FormatPrice(tc.price); got != tc.want {
			t.Errorf("%s: FormatPrice = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFormatPriceGroupsThousands(t *testing.T) {
	t.Parallel()

	price := 1500000.0
	got := FormatPrice(&price)
	if !strings.HasSuffix(got, " руб.") {
		t.Fatalf("missing currency suffix: %q", got)
	}
	// Russian locale groups digits; the raw run "1500000" must not appear.
	if strings.Contains(got, "1500000") {
		t.Fatalf("digits not grouped: %q", got)
	}
	if !strings.HasPrefix(got, "1") || !strings.Contains(got, "500") {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestRenderInquiryOptionalFields(t *testing.T) {
	t.Parallel()

	inq := Inquiry{
		WorkTitle: "Закат",
		Customer:  Customer{FullName: "Иван", Phone: "+7999"},
	}
	text := renderInquiry("Вася", inq)

	if strings.Contains(text, "Telegram:") {
		t.Errorf("empty customer telegram must be omitted:\n%s", text)
	}
	if strings.Contains(text, "Комментарий") {
		t.Errorf("empty comment must be omitted:\n%s", text)
	}
	if !strings.Contains(text, "По запросу") {
		t.Errorf("missing on-request price:\n%s", text)
	}

	inq.Customer.Telegram = "@ivan"
	inq.Customer.Comment = "до субботы"
	text = renderInquiry("Вася", inq)
	if !strings.Contains(text, "@ivan") || !strings.Contains(text, "до субботы") {
		t.Errorf("optional fields dropped:\n%s", text)
	}
}
