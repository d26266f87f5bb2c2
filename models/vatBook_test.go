package models_test

import (
	"testing"

	"bitbucket.org/sistematicapy/taller_backend/models"
	"github.com/shopspring/decimal"
)

// The gross-up divisors: a VAT-inclusive amount taxed at 10% carries
// amount/11 of IVA, at 5% it carries amount/21.
func TestComputeIvaGrossUp(t *testing.T) {
	cases := []struct {
		name    string
		gravada decimal.Decimal
		iva10   string
		iva5    string
	}{
		{"round numbers", decimal.NewFromInt(1100), "100", "52.381"},
		{"zero", decimal.Zero, "0", "0"},
		{"eleven", decimal.NewFromInt(11), "1", "0.5238"},
		{"typical invoice", decimal.NewFromInt(550000), "50000", "26190.4762"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := models.ComputeIva10(tc.gravada); got.Cmp(decimal.RequireFromString(tc.iva10)) != 0 {
				t.Errorf("ComputeIva10(%s) = %s, want %s", tc.gravada, got, tc.iva10)
			}
			if got := models.ComputeIva5(tc.gravada); got.Cmp(decimal.RequireFromString(tc.iva5)) != 0 {
				t.Errorf("ComputeIva5(%s) = %s, want %s", tc.gravada, got, tc.iva5)
			}
		})
	}
}

func TestVatBreakdownAccumulation(t *testing.T) {
	var b models.VatBreakdown
	b.AddAmount(models.VatRate10, decimal.NewFromInt(550))
	b.AddAmount(models.VatRate10, decimal.NewFromInt(550))
	b.AddAmount(models.VatRate5, decimal.NewFromInt(210))
	b.AddAmount(models.VatRateExempt, decimal.NewFromInt(40))

	if b.Gravada10.Cmp(decimal.NewFromInt(1100)) != 0 {
		t.Fatalf("gravada10 = %s, want 1100", b.Gravada10)
	}
	if b.Iva10.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("iva10 = %s, want 100", b.Iva10)
	}
	if b.Gravada5.Cmp(decimal.NewFromInt(210)) != 0 {
		t.Fatalf("gravada5 = %s, want 210", b.Gravada5)
	}
	if b.Iva5.Cmp(decimal.NewFromInt(10)) != 0 {
		t.Fatalf("iva5 = %s, want 10", b.Iva5)
	}
	if b.Exenta.Cmp(decimal.NewFromInt(40)) != 0 {
		t.Fatalf("exenta = %s, want 40", b.Exenta)
	}
	if b.Total().Cmp(decimal.NewFromInt(1350)) != 0 {
		t.Fatalf("total = %s, want 1350", b.Total())
	}

	// Unknown rates land in the 10% bucket, matching the column default.
	var d models.VatBreakdown
	d.AddAmount("", decimal.NewFromInt(11))
	if d.Gravada10.Cmp(decimal.NewFromInt(11)) != 0 || d.Iva10.Cmp(decimal.NewFromInt(1)) != 0 {
		t.Fatalf("default rate bucket wrong: gravada10=%s iva10=%s", d.Gravada10, d.Iva10)
	}
}
