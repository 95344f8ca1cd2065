package entity

import "testing"

func TestCreditLimitAllows(t *testing.T) {
	l := CreditLimit{CeilingCents: 100000}

	if !l.Allows(99999) {
		t.Fatalf("under ceiling should pass")
	}
	if !l.Allows(100000) {
		t.Fatalf("exactly at ceiling should pass")
	}
	if l.Allows(100001) {
		t.Fatalf("over ceiling should block")
	}
}

func TestCreditLimitUnlimited(t *testing.T) {
	if !NoLimit.Allows(1 << 50) {
		t.Fatalf("no-limit customer should always pass")
	}
	if NoLimit.Excess(1<<50) != 0 {
		t.Fatalf("no-limit excess should be zero")
	}
}

func TestCreditLimitExcess(t *testing.T) {
	l := CreditLimit{CeilingCents: 100000}

	if got := l.Excess(112550); got != 12550 {
		t.Fatalf("expected excess 12550, got %d", got)
	}
	if got := l.Excess(100000); got != 0 {
		t.Fatalf("expected no excess at ceiling, got %d", got)
	}
	// zero ceiling blocks any non-zero total
	z := CreditLimit{CeilingCents: 0}
	if z.Allows(1) {
		t.Fatalf("zero ceiling should block")
	}
	if !z.Allows(0) {
		t.Fatalf("zero total passes a zero ceiling")
	}
}
