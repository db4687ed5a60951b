package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestWithf_KeepsCodeForErrorsIs(t *testing.T) {
	err := ErrAmountExceedsLimit.Withf("requested %d, limit %d", 350000, 300000)
	if !errors.Is(err, ErrAmountExceedsLimit) {
		t.Fatalf("errors.Is failed for %v", err)
	}
	if errors.Is(err, ErrTermExceedsLimit) {
		t.Fatalf("matched the wrong sentinel")
	}
	if want := "requested amount exceeds the borrowing limit: requested 350000, limit 300000"; err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
	if ErrAmountExceedsLimit.Message != "requested amount exceeds the borrowing limit" {
		t.Fatalf("sentinel mutated: %q", ErrAmountExceedsLimit.Message)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Invalid("amount must be positive"), KindValidation},
		{ErrDuplicateVote, KindPolicy},
		{fmt.Errorf("activate: %w", ErrInsufficientFunds), KindConflict},
		{ErrLoanNotFound, KindNotFound},
		{ErrBusy, KindInfrastructure},
		{errors.New("driver: bad connection"), KindInfrastructure},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestInfra(t *testing.T) {
	if Infra(nil) != nil {
		t.Fatal("Infra(nil) should be nil")
	}
	typed := ErrOverpayment.Withf("x")
	if got := Infra(typed); got != typed {
		t.Fatalf("typed error should pass through, got %v", got)
	}
	cause := errors.New("connection refused")
	got := Infra(cause)
	if !errors.Is(got, ErrUnavailable) || !errors.Is(got, cause) {
		t.Fatalf("expected unavailable wrapping cause, got %v", got)
	}
	if CodeOf(got) != "unavailable" {
		t.Fatalf("code = %q", CodeOf(got))
	}
}
