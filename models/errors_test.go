package models_test

import (
	"errors"
	"fmt"
	"testing"

	"bitbucket.org/sistematicapy/taller_backend/models"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
)

func TestErrorKindClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind models.ErrorKind
	}{
		{"validation", models.NewValidationError("qty must be > 0"), models.ErrorKindValidation},
		{"insufficient stock", models.NewInsufficientStockError(decimal.NewFromInt(25), decimal.NewFromInt(20)), models.ErrorKindInsufficientStock},
		{"not found", models.NewNotFoundError("purchase invoice"), models.ErrorKindNotFound},
		{"state transition", models.NewInvalidStateTransitionError("item is %s", "PickedUp"), models.ErrorKindInvalidStateTransition},
		{"conflict", models.NewTransactionConflictError(), models.ErrorKindTransactionConflict},
		{"record not found sentinel", utils.ErrorRecordNotFound, models.ErrorKindNotFound},
		{"wrapped", fmt.Errorf("posting: %w", models.NewNotFoundError("warranty")), models.ErrorKindNotFound},
		{"plain error", errors.New("boom"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := models.KindOf(tc.err); got != tc.kind {
				t.Fatalf("KindOf = %q, want %q", got, tc.kind)
			}
			if !models.IsKind(tc.err, tc.kind) {
				t.Fatalf("IsKind(%q) = false", tc.kind)
			}
		})
	}
}

func TestInsufficientStockMessageCarriesAvailableQty(t *testing.T) {
	err := models.NewInsufficientStockError(decimal.NewFromInt(25), decimal.NewFromInt(20))
	want := "insufficient stock: requested 25, available 20"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}
