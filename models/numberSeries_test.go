package models

import "testing"

func TestFormatDocumentNumberFlatSeries(t *testing.T) {
	// Receipt numbers continue the shop's paper counter with no prefix.
	got := FormatDocumentNumber(SeriesSaleReceipt, 110001)
	if got != "110001" {
		t.Fatalf("receipt number = %q, want %q", got, "110001")
	}
	got = FormatDocumentNumber(SeriesQuotation, 300001)
	if got != "300001" {
		t.Fatalf("quotation number = %q, want %q", got, "300001")
	}
}

func TestFormatDocumentNumberPaddedSeries(t *testing.T) {
	cases := []struct {
		prefix string
		n      int64
		want   string
	}{
		{SeriesPurchase, 1, "PUR-001"},
		{SeriesReturn, 42, "RET-042"},
		{SeriesTransfer, 7, "TRF-007"},
		{SeriesPayment, 1000, "PAY-1000"},
	}
	for _, tc := range cases {
		if got := FormatDocumentNumber(tc.prefix, tc.n); got != tc.want {
			t.Errorf("FormatDocumentNumber(%s, %d) = %q, want %q", tc.prefix, tc.n, got, tc.want)
		}
	}
}

func TestPolicyBaselines(t *testing.T) {
	if got := policyForPrefix(SeriesSaleReceipt).Baseline; got != 110000 {
		t.Errorf("receipt baseline = %d, want 110000", got)
	}
	if got := policyForPrefix(SeriesQuotation).Baseline; got != 300000 {
		t.Errorf("quotation baseline = %d, want 300000", got)
	}
	// Unknown prefixes get the padded default so nothing ever formats bare.
	p := policyForPrefix("XYZ")
	if !p.Padded || p.PadWidth != 3 {
		t.Errorf("default policy = %+v, want padded width 3", p)
	}
}
