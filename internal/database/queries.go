/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

// Timestamps are stored as unix nanoseconds so range predicates compare numerically.
const (
	orderColumns = `
		id, listing_id, buyer_id, seller_id, amount, seller_payout_amount, currency, status,
		escrow_status, auto_release_scheduled_at, dispute_id, seller_payout_status, payout_transfer_id,
		buyer_confirmed_receipt, buyer_confirmed_at, escrow_released_at, seller_paid_at, created_at, updated_at`

	// Order queries
	queryGetOrder = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = ?`

	queryListAutoReleasable = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE escrow_status = 'buyer_confirmation_pending'
		  AND auto_release_scheduled_at IS NOT NULL
		  AND auto_release_scheduled_at < ?
		  AND dispute_id IS NULL
		ORDER BY auto_release_scheduled_at
		LIMIT ?`

	queryInsertOrder = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryTransitionOrder = `
		UPDATE orders SET
			escrow_status = ?,
			status = COALESCE(NULLIF(?, ''), status),
			auto_release_scheduled_at = COALESCE(?, auto_release_scheduled_at),
			dispute_id = COALESCE(?, dispute_id),
			buyer_confirmed_receipt = (buyer_confirmed_receipt OR ?),
			buyer_confirmed_at = COALESCE(?, buyer_confirmed_at),
			escrow_released_at = COALESCE(?, escrow_released_at),
			seller_payout_status = COALESCE(NULLIF(?, ''), seller_payout_status),
			payout_transfer_id = COALESCE(NULLIF(?, ''), payout_transfer_id),
			seller_paid_at = COALESCE(?, seller_paid_at),
			updated_at = ?
		WHERE id = ? AND escrow_status = ?`

	// Escrow queries
	queryGetEscrow = `
		SELECT id, order_id, status, amount, funds_released_at, created_at, updated_at
		FROM escrows
		WHERE order_id = ?`

	queryInsertEscrow = `
		INSERT INTO escrows (id, order_id, status, amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryTransitionEscrow = `
		UPDATE escrows SET
			status = ?,
			funds_released_at = COALESCE(?, funds_released_at),
			updated_at = ?
		WHERE order_id = ?`

	// Transfer queries
	transferColumns = `
		t.id, t.order_id, o.seller_id, o.buyer_id, t.status, t.transfer_deadline, t.buyer_confirmed_at,
		t.reminder_12h_sent, t.reminder_2h_sent, t.notes, t.created_at`

	queryGetTransfer = `
		SELECT ` + transferColumns + `
		FROM ticket_transfers t
		JOIN orders o ON o.id = t.order_id
		WHERE t.order_id = ?`

	queryInsertTransfer = `
		INSERT INTO ticket_transfers (id, order_id, status, transfer_deadline, created_at)
		VALUES (?, ?, ?, ?, ?)`

	queryUpdateTransfer = `
		UPDATE ticket_transfers SET
			status = ?,
			notes = CASE WHEN ? = '' THEN notes ELSE ? END,
			buyer_confirmed_at = COALESCE(?, buyer_confirmed_at)
		WHERE order_id = ?`

	queryListReminder12hDue = `
		SELECT ` + transferColumns + `
		FROM ticket_transfers t
		JOIN orders o ON o.id = t.order_id
		WHERE t.status = 'pending'
		  AND t.reminder_12h_sent = 0
		  AND t.transfer_deadline > ?
		  AND t.transfer_deadline <= ?
		ORDER BY t.transfer_deadline
		LIMIT ?`

	queryListReminder2hDue = `
		SELECT ` + transferColumns + `
		FROM ticket_transfers t
		JOIN orders o ON o.id = t.order_id
		WHERE t.status = 'pending'
		  AND t.reminder_2h_sent = 0
		  AND t.transfer_deadline > ?
		  AND t.transfer_deadline <= ?
		ORDER BY t.transfer_deadline
		LIMIT ?`

	queryMarkReminder12hSent = `
		UPDATE ticket_transfers SET reminder_12h_sent = 1
		WHERE id = ? AND reminder_12h_sent = 0`

	queryMarkReminder2hSent = `
		UPDATE ticket_transfers SET reminder_2h_sent = 1
		WHERE id = ? AND reminder_2h_sent = 0`

	queryListOverdueTransfers = `
		SELECT ` + transferColumns + `
		FROM ticket_transfers t
		JOIN orders o ON o.id = t.order_id
		WHERE t.status = 'pending'
		  AND t.transfer_deadline < ?
		  AND o.dispute_id IS NULL
		ORDER BY t.transfer_deadline
		LIMIT ?`

	// Dispute queries
	queryInsertDispute = `
		INSERT INTO disputes (id, order_id, buyer_id, seller_id, reason, description, status, opened_by, response_deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetDispute = `
		SELECT id, order_id, buyer_id, seller_id, reason, description, status, opened_by, response_deadline, created_at
		FROM disputes
		WHERE id = ?`

	// Listing queries
	listingColumns = `
		id, seller_id, event_name, event_date, asking_price, original_price, currency, status,
		fraud_check_id, fraud_check_status, created_at`

	queryGetListing = `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE id = ?`

	queryInsertListing = `
		INSERT INTO listings (` + listingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryExpireListings = `
		UPDATE listings SET status = 'expired'
		WHERE status IN ('active', 'pending_verification')
		  AND event_date <= ?`

	queryCountListingsSince = `
		SELECT COUNT(*)
		FROM listings
		WHERE seller_id = ? AND created_at >= ?`

	queryApplyFraudCheck = `
		UPDATE listings SET
			fraud_check_id = ?,
			fraud_check_status = ?,
			status = COALESCE(NULLIF(?, ''), status)
		WHERE id = ?`

	// Seller queries
	queryGetSellerProfile = `
		SELECT seller_id, trust_score, total_sales, disputes_lost, joined_at
		FROM seller_profiles
		WHERE seller_id = ?`

	queryUpsertSellerProfile = `
		INSERT INTO seller_profiles (seller_id, trust_score, total_sales, disputes_lost, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seller_id) DO UPDATE SET
			trust_score = excluded.trust_score,
			total_sales = excluded.total_sales,
			disputes_lost = excluded.disputes_lost,
			joined_at = excluded.joined_at`

	queryGetPayoutAccount = `
		SELECT seller_id, rail, account_id, network, created_at
		FROM payout_accounts
		WHERE seller_id = ?`

	queryUpsertPayoutAccount = `
		INSERT INTO payout_accounts (seller_id, rail, account_id, network, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seller_id) DO UPDATE SET
			rail = excluded.rail,
			account_id = excluded.account_id,
			network = excluded.network`

	// Fraud queries
	queryFindOrderReferenceUses = `
		SELECT DISTINCT listing_id
		FROM fraud_checks
		WHERE order_reference = ? AND listing_id <> ?
		ORDER BY listing_id`

	queryMatchBlacklist = `
		SELECT id, entry_type, value, reason
		FROM fraud_blacklist
		WHERE active = 1
		  AND ((entry_type = 'order_reference' AND UPPER(TRIM(value)) = ?)
		    OR (entry_type = 'email_domain' AND LOWER(TRIM(value)) = ?))
		ORDER BY entry_type`

	queryInsertBlacklistEntry = `
		INSERT INTO fraud_blacklist (id, entry_type, value, reason, active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`

	queryInsertFraudCheck = `
		INSERT INTO fraud_checks (
			id, listing_id, seller_id, risk_score, verdict, passed, requires_manual_review,
			checks, warnings, order_reference, ticketing_platform, purchaser_email_domain, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// Notification queries
	queryInsertNotification = `
		INSERT INTO notifications (id, user_id, type, title, body, order_id, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryListNotifications = `
		SELECT id, user_id, type, title, body, order_id, data, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`
)
