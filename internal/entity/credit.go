package entity

// CreditLimit is a customer's ceiling. The credit service answers 404 (or a
// null ceiling) for customers without one; that maps to Unlimited here instead
// of a float Inf sentinel.
type CreditLimit struct {
	CeilingCents int64
	Unlimited    bool
}

// Unlimited credit.
var NoLimit = CreditLimit{Unlimited: true}

// Allows reports whether a submission totalling newTotalCents passes the gate.
func (l CreditLimit) Allows(newTotalCents int64) bool {
	return l.Unlimited || newTotalCents <= l.CeilingCents
}

// Excess is the amount by which newTotalCents overshoots the ceiling.
// Zero when the gate passes.
func (l CreditLimit) Excess(newTotalCents int64) int64 {
	if l.Allows(newTotalCents) {
		return 0
	}
	return newTotalCents - l.CeilingCents
}

// CreditAccount mirrors the credit service's view of a customer: the ceiling
// plus the running amount-due counter. The gateway never mutates this struct
// directly; it is read state for gating and reporting.
type CreditAccount struct {
	CustomerID     string
	Limit          CreditLimit
	AmountDueCents int64
}
