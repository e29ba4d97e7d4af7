package postgres

const (
	orderColumns = `
	id, listing_id, buyer_id, seller_id, amount, seller_payout_amount, currency, status,
	escrow_status, auto_release_scheduled_at, COALESCE(dispute_id, ''), seller_payout_status,
	COALESCE(payout_transfer_id, ''), buyer_confirmed_receipt, buyer_confirmed_at,
	escrow_released_at, seller_paid_at, created_at, updated_at`

	queryGetOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1`

	queryListAutoReleasable = `
SELECT ` + orderColumns + `
FROM orders
WHERE escrow_status = 'buyer_confirmation_pending'
  AND auto_release_scheduled_at < $1
  AND dispute_id IS NULL
ORDER BY auto_release_scheduled_at
LIMIT $2`

	queryInsertOrder = `
INSERT INTO orders (
	id, listing_id, buyer_id, seller_id, amount, seller_payout_amount, currency, status,
	escrow_status, auto_release_scheduled_at, dispute_id, seller_payout_status, payout_transfer_id,
	buyer_confirmed_receipt, buyer_confirmed_at, escrow_released_at, seller_paid_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11::text, ''), $12, NULLIF($13::text, ''), $14, $15, $16, $17, $18, $18)`

	queryTransitionOrder = `
UPDATE orders SET
	escrow_status = $1,
	status = COALESCE(NULLIF($2::text, ''), status),
	auto_release_scheduled_at = COALESCE($3, auto_release_scheduled_at),
	dispute_id = COALESCE(NULLIF($4::text, ''), dispute_id),
	buyer_confirmed_receipt = (buyer_confirmed_receipt OR $5),
	buyer_confirmed_at = CASE WHEN $5 THEN $11 ELSE buyer_confirmed_at END,
	escrow_released_at = CASE WHEN $1::text = 'released' THEN $11 ELSE escrow_released_at END,
	seller_payout_status = COALESCE(NULLIF($6::text, ''), seller_payout_status),
	payout_transfer_id = COALESCE(NULLIF($7::text, ''), payout_transfer_id),
	seller_paid_at = COALESCE($8, seller_paid_at),
	updated_at = $11
WHERE id = $9 AND escrow_status = $10`

	queryGetEscrow = `
SELECT id, order_id, status, amount, funds_released_at, created_at, updated_at
FROM escrows
WHERE order_id = $1`

	queryInsertEscrow = `
INSERT INTO escrows (id, order_id, status, amount, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`

	queryTransitionEscrow = `
UPDATE escrows SET
	status = $1,
	funds_released_at = CASE WHEN $1::text = 'released' THEN $2 ELSE funds_released_at END,
	updated_at = $2
WHERE order_id = $3`

	transferColumns = `
	t.id, t.order_id, o.seller_id, o.buyer_id, t.status, t.transfer_deadline, t.buyer_confirmed_at,
	t.reminder_12h_sent, t.reminder_2h_sent, t.notes, t.created_at`

	queryGetTransfer = `
SELECT ` + transferColumns + `
FROM ticket_transfers t
JOIN orders o ON o.id = t.order_id
WHERE t.order_id = $1`

	queryInsertTransfer = `
INSERT INTO ticket_transfers (id, order_id, status, transfer_deadline, created_at)
VALUES ($1, $2, $3, $4, $5)`

	queryUpdateTransfer = `
UPDATE ticket_transfers SET
	status = $1,
	notes = CASE WHEN $2::text = '' THEN notes ELSE $2 END,
	buyer_confirmed_at = COALESCE($3, buyer_confirmed_at)
WHERE order_id = $4`

	queryListReminder12hDue = `
SELECT ` + transferColumns + `
FROM ticket_transfers t
JOIN orders o ON o.id = t.order_id
WHERE t.status = 'pending'
  AND NOT t.reminder_12h_sent
  AND t.transfer_deadline > $1
  AND t.transfer_deadline <= $2
ORDER BY t.transfer_deadline
LIMIT $3`

	queryListReminder2hDue = `
SELECT ` + transferColumns + `
FROM ticket_transfers t
JOIN orders o ON o.id = t.order_id
WHERE t.status = 'pending'
  AND NOT t.reminder_2h_sent
  AND t.transfer_deadline > $1
  AND t.transfer_deadline <= $2
ORDER BY t.transfer_deadline
LIMIT $3`

	queryMarkReminder12hSent = `UPDATE ticket_transfers SET reminder_12h_sent = TRUE WHERE id = $1 AND NOT reminder_12h_sent`
	queryMarkReminder2hSent  = `UPDATE ticket_transfers SET reminder_2h_sent = TRUE WHERE id = $1 AND NOT reminder_2h_sent`

	queryListOverdueTransfers = `
SELECT ` + transferColumns + `
FROM ticket_transfers t
JOIN orders o ON o.id = t.order_id
WHERE t.status = 'pending'
  AND t.transfer_deadline < $1
  AND o.dispute_id IS NULL
ORDER BY t.transfer_deadline
LIMIT $2`

	queryInsertDispute = `
INSERT INTO disputes (id, order_id, buyer_id, seller_id, reason, description, status, opened_by, response_deadline, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	queryGetDispute = `
SELECT id, order_id, buyer_id, seller_id, reason, description, status, opened_by, response_deadline, created_at
FROM disputes
WHERE id = $1`

	queryGetListing = `
SELECT id, seller_id, event_name, event_date, asking_price, original_price, currency, status,
	COALESCE(fraud_check_id, ''), COALESCE(fraud_check_status, ''), created_at
FROM listings
WHERE id = $1`

	queryInsertListing = `
INSERT INTO listings (id, seller_id, event_name, event_date, asking_price, original_price, currency, status,
	fraud_check_id, fraud_check_status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9::text, ''), NULLIF($10::text, ''), $11)`

	queryExpireListings = `
UPDATE listings SET status = 'expired'
WHERE status IN ('active', 'pending_verification')
  AND event_date <= $1`

	queryCountListingsSince = `SELECT COUNT(*) FROM listings WHERE seller_id = $1 AND created_at >= $2`

	queryApplyFraudCheck = `
UPDATE listings SET
	fraud_check_id = $1,
	fraud_check_status = $2,
	status = COALESCE(NULLIF($3::text, ''), status)
WHERE id = $4`

	queryGetSellerProfile = `
SELECT seller_id, trust_score, total_sales, disputes_lost, joined_at
FROM seller_profiles
WHERE seller_id = $1`

	queryUpsertSellerProfile = `
INSERT INTO seller_profiles (seller_id, trust_score, total_sales, disputes_lost, joined_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (seller_id) DO UPDATE SET
	trust_score = EXCLUDED.trust_score,
	total_sales = EXCLUDED.total_sales,
	disputes_lost = EXCLUDED.disputes_lost,
	joined_at = EXCLUDED.joined_at`

	queryGetPayoutAccount = `
SELECT seller_id, rail, account_id, network, created_at
FROM payout_accounts
WHERE seller_id = $1`

	queryUpsertPayoutAccount = `
INSERT INTO payout_accounts (seller_id, rail, account_id, network, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (seller_id) DO UPDATE SET
	rail = EXCLUDED.rail,
	account_id = EXCLUDED.account_id,
	network = EXCLUDED.network`

	queryFindOrderReferenceUses = `
SELECT DISTINCT listing_id
FROM fraud_checks
WHERE order_reference = $1 AND listing_id <> $2
ORDER BY listing_id`

	queryMatchBlacklist = `
SELECT id, entry_type, value, reason
FROM fraud_blacklist
WHERE active
  AND ((entry_type = 'order_reference' AND UPPER(TRIM(value)) = $1)
    OR (entry_type = 'email_domain' AND LOWER(TRIM(value)) = $2))
ORDER BY entry_type`

	queryInsertBlacklistEntry = `
INSERT INTO fraud_blacklist (id, entry_type, value, reason)
VALUES ($1, $2, $3, $4)`

	queryInsertFraudCheck = `
INSERT INTO fraud_checks (
	id, listing_id, seller_id, risk_score, verdict, passed, requires_manual_review,
	checks, warnings, order_reference, ticketing_platform, purchaser_email_domain, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	queryInsertNotification = `
INSERT INTO notifications (id, user_id, type, title, body, order_id, data, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	queryListNotifications = `
SELECT id, user_id, type, title, body, order_id, data, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
)
