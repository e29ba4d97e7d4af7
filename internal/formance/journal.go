package formance

import (
	"context"
	"fmt"

	"resale-escrow-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Escrowed funds are captured by the card processor outside the ledger, so the
// per-order escrow account is allowed to go negative.
const numscriptEscrowReleased = `vars {
  asset $asset
  number $amount
  account $order_id
  account $seller_id
  string $buyer_id
  string $escrow_status
}

send [$asset $amount] (
  source = @escrow:orders:$order_id allowing unbounded overdraft
  destination = @sellers:$seller_id:payable
)

set_tx_meta("event_type", "escrow_released")
set_tx_meta("buyer_id", $buyer_id)
set_tx_meta("escrow_status", $escrow_status)
`

const numscriptSellerPaid = `vars {
  asset $asset
  number $amount
  account $seller_id
  account $rail
  string $order_id
  string $transfer_id
}

send [$asset $amount] (
  source = @sellers:$seller_id:payable
  destination = @payouts:$rail
)

set_tx_meta("event_type", "seller_paid")
set_tx_meta("order_id", $order_id)
set_tx_meta("transfer_id", $transfer_id)
`

// RecordRelease posts the escrow release and, when the payout completed, the
// payout leg. Both references are per order so replays are absorbed.
func (s *Service) RecordRelease(ctx context.Context, order models.Order, payout models.PayoutResult) models.Outcome {
	asset := formanceAsset(order.Currency)
	amount := minorUnits(order.SellerPayoutAmount, order.Currency)

	released := shared.V2PostTransaction{
		Reference: strPtr(order.Id + "-released"),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptEscrowReleased,
			Vars: map[string]string{
				"asset":         asset,
				"amount":        amount,
				"order_id":      order.Id,
				"seller_id":     order.SellerId,
				"buyer_id":      order.BuyerId,
				"escrow_status": string(models.EscrowReleased),
			},
		},
	}
	if err := s.post(ctx, released); err != nil {
		return models.FailedWith(journalEffect, fmt.Errorf("error recording escrow release for order %s: %w", order.Id, err))
	}

	if payout.Status == models.PayoutStatusCompleted {
		rail := string(payout.Rail)
		if rail == "" {
			rail = "unknown"
		}
		paid := shared.V2PostTransaction{
			Reference: strPtr(order.Id + "-paid"),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptSellerPaid,
				Vars: map[string]string{
					"asset":       asset,
					"amount":      amount,
					"seller_id":   order.SellerId,
					"rail":        rail,
					"order_id":    order.Id,
					"transfer_id": payout.TransferId,
				},
			},
		}
		if err := s.post(ctx, paid); err != nil {
			return models.FailedWith(journalEffect, fmt.Errorf("error recording payout for order %s: %w", order.Id, err))
		}
	}

	zap.L().Info("Escrow release journaled",
		zap.String("order_id", order.Id),
		zap.String("seller_id", order.SellerId),
		zap.String("amount", order.SellerPayoutAmount.String()),
		zap.String("payout_status", string(payout.Status)))
	return models.Succeeded(journalEffect)
}

func (s *Service) post(ctx context.Context, tx shared.V2PostTransaction) error {
	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: tx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Journal posting already recorded", zap.String("reference", *tx.Reference))
			return nil
		}
		return err
	}
	return nil
}

// minorUnits renders amount in the smallest unit of currency, e.g. 12.34 USD -> "1234".
func minorUnits(amount decimal.Decimal, currency string) string {
	return amount.Shift(int32(precisionFor(currency))).Truncate(0).BigInt().String()
}
