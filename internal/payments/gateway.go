// Package payments: boundary ke payment gateway. Settlement & refund uang
// beneran terjadi di luar core ini.
package payments

import (
	"context"
	"log"
)

type Gateway interface {
	Refund(ctx context.Context, orderID string, amountCents int) error
}

// LogGateway: stub development — cuma log, selalu sukses.
type LogGateway struct{}

func (LogGateway) Refund(_ context.Context, orderID string, amountCents int) error {
	log.Printf("payments: refund order=%s amount_cents=%d", orderID, amountCents)
	return nil
}
