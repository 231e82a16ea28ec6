package payment

import "context"

type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type Order struct {
	ID          string            `json:"order_id"`
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	Notes       map[string]string `json:"-"`
}

// Gateway is the hosted payment-order service. Errors wrap domain.ErrPaymentGateway.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	// VerifyPaymentSignature checks the signature the client got back from checkout.
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	// KeyID is the public key the client checkout needs.
	KeyID() string
}
