package usecase

// ReconOutcomeMsg is published to RabbitMQ after every reconciliation run,
// successful or not. Downstream consumers (notifications, audit) replace the
// per-screen toasts of the old clients.
type ReconOutcomeMsg struct {
	SagaID        string `json:"sagaId"`
	Kind          string `json:"kind"` // reconcile | place | cancel | add_item | remove_item
	OrderID       string `json:"orderId"`
	CustomerID    string `json:"customerId"`
	OriginalCents int64  `json:"originalCents"`
	NewCents      int64  `json:"newCents"`
	DeltaCents    int64  `json:"deltaCents"`
	CreditOp      string `json:"creditOp"` // deduct | increase | none
	Succeeded     bool   `json:"succeeded"`
	Error         string `json:"error,omitempty"`
	At            int64  `json:"at"` // epoch seconds
}

// OrderStatusChangedMsg arrives on Kafka from fulfillment whenever an order's
// delivery status flips or a loading slip is generated.
type OrderStatusChangedMsg struct {
	OrderID        string `json:"orderId"`
	CustomerID     string `json:"customerId"`
	DeliveryStatus string `json:"deliveryStatus"`
	LoadingSlip    bool   `json:"loadingSlip"`
	Cancelled      bool   `json:"cancelled"`
}
