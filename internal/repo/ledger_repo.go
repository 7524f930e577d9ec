package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/model/refund"
	"github.com/bookon-app/bookon/internal/model/wallet"
	"github.com/bookon-app/bookon/internal/serviceerrs"
)

const sqlWalletBalance = `
SELECT COALESCE(SUM(amount), 0)
FROM wallet_credits
WHERE parent_id = $1 AND status = 'active' AND expires_at > $2`

const sqlListCreditsByParent = `
SELECT id, parent_id, COALESCE(provider_id, ''), booking_id, amount,
	expires_at, source, status, description, created_at
FROM wallet_credits
WHERE parent_id = $1
ORDER BY created_at DESC`

const sqlSelectSpendableCredits = `
SELECT id, amount
FROM wallet_credits
WHERE parent_id = $1 AND status = 'active' AND expires_at > $2
ORDER BY expires_at
FOR UPDATE`

const sqlMarkCreditUsed = `
UPDATE wallet_credits SET status = 'used' WHERE id = $1`

const sqlShrinkCredit = `
UPDATE wallet_credits SET amount = $2 WHERE id = $1`

const sqlExpireCredits = `
UPDATE wallet_credits
SET status = 'expired'
WHERE status = 'active' AND expires_at <= $1`

const sqlListRefundsByParent = `
SELECT r.id, r.booking_id, r.amount, r.method, r.fee, r.reason,
	r.status, r.created_at
FROM refund_transactions r
JOIN bookings b ON b.id = r.booking_id
WHERE b.parent_id = $1
ORDER BY r.created_at DESC`

type LedgerRepository struct {
	DB
}

func NewLedgerRepository(pool connectionPool, log *slog.Logger) *LedgerRepository {
	return &LedgerRepository{
		DB{
			pool: pool,
			log:  log,
		},
	}
}

// WalletBalance sums the parent's active, unexpired credits.
func (r *LedgerRepository) WalletBalance(ctx context.Context, parentID string,
) (model.Amount, error) {
	balanceLogic := func() (model.Amount, error) {
		var sum pgtype.Numeric
		err := r.pool.QueryRow(ctx, sqlWalletBalance, parentID,
			pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
		).Scan(&sum)
		if err != nil {
			return model.Amount{}, fmt.Errorf(
				"failed to get wallet balance for parent %s: %w", parentID, err)
		}
		return model.FromPGNumeric(sum) //nolint: wrapcheck // error from wrapped function
	}

	return WithRetry[model.Amount](balanceLogic, 0) //nolint: wrapcheck // error from wrapped function
}

func (r *LedgerRepository) ListCreditsByParent(ctx context.Context, parentID string,
) ([]wallet.Credit, error) {
	if len(parentID) == 0 {
		return nil, errors.New("failed to list credits for empty parentID")
	}

	listLogic := func() ([]wallet.Credit, error) {
		rows, err := r.pool.Query(ctx, sqlListCreditsByParent, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list credits by parentID %s: %w", parentID, err)
		}
		defer rows.Close()

		credits := make([]wallet.Credit, 0)
		for rows.Next() {
			var c wallet.Credit
			var amount pgtype.Numeric
			var source, status string
			var expiresAt, createdAt pgtype.Timestamptz

			if err := rows.Scan(&c.ID, &c.ParentID, &c.ProviderID, &c.BookingID,
				&amount, &expiresAt, &source, &status, &c.Description, &createdAt,
			); err != nil {
				return nil, fmt.Errorf("failed to scan wallet credit: %w", err)
			}

			c.Amount, err = model.FromPGNumeric(amount)
			if err != nil {
				r.log.LogAttrs(ctx,
					slog.LevelError,
					"invalid credit amount from DB",
					slog.String("credit_id", c.ID),
					slog.Any(model.KeyLoggerError, err),
				)
			}
			c.Source = wallet.Source(source)
			c.Status = wallet.Status(status)
			c.ExpiresAt = expiresAt.Time
			c.CreatedAt = createdAt.Time
			credits = append(credits, c)
		}
		return credits, rows.Err() //nolint: wrapcheck // error from pgx
	}

	return WithRetry[[]wallet.Credit](listLogic, 0) //nolint: wrapcheck // error from wrapped function
}

func (r *LedgerRepository) ListRefundsByParent(ctx context.Context, parentID string,
) ([]refund.Transaction, error) {
	if len(parentID) == 0 {
		return nil, errors.New("failed to list refunds for empty parentID")
	}

	listLogic := func() ([]refund.Transaction, error) {
		rows, err := r.pool.Query(ctx, sqlListRefundsByParent, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list refunds by parentID %s: %w", parentID, err)
		}
		defer rows.Close()

		refunds := make([]refund.Transaction, 0)
		for rows.Next() {
			var tr refund.Transaction
			var amount, fee pgtype.Numeric
			var reason, status string
			var createdAt pgtype.Timestamptz

			if err := rows.Scan(&tr.ID, &tr.BookingID, &amount, &tr.Method,
				&fee, &reason, &status, &createdAt,
			); err != nil {
				return nil, fmt.Errorf("failed to scan refund transaction: %w", err)
			}

			tr.Amount, err = model.FromPGNumeric(amount)
			if err != nil {
				return nil, fmt.Errorf("invalid refund amount from DB: %w", err)
			}
			tr.Fee, err = model.FromPGNumeric(fee)
			if err != nil {
				return nil, fmt.Errorf("invalid refund fee from DB: %w", err)
			}
			tr.Reason = refund.Reason(reason)
			tr.Status = refund.Status(status)
			tr.CreatedAt = createdAt.Time
			refunds = append(refunds, tr)
		}
		return refunds, rows.Err() //nolint: wrapcheck // error from pgx
	}

	return WithRetry[[]refund.Transaction](listLogic, 0) //nolint: wrapcheck // error from wrapped function
}

// ExpireCredits flips every overdue active credit to expired and
// returns how many rows changed.
func (r *LedgerRepository) ExpireCredits(ctx context.Context, now time.Time) (int64, error) {
	expireLogic := func() (int64, error) {
		tag, err := r.pool.Exec(ctx, sqlExpireCredits,
			pgtype.Timestamptz{Time: now.UTC(), Valid: true})
		if err != nil {
			return 0, fmt.Errorf("failed to expire wallet credits: %w", err)
		}
		return tag.RowsAffected(), nil
	}

	return WithRetry[int64](expireLogic, 0) //nolint: wrapcheck // error from wrapped function
}

// redeemCredits spends the parent's credits oldest-expiry-first until
// the amount is covered. Runs inside the caller's transaction; the row
// locks keep two bookings from spending the same credit.
func redeemCredits(ctx context.Context, tx connectionPool,
	parentID string, amount model.Amount,
) error {
	rows, err := tx.Query(ctx, sqlSelectSpendableCredits, parentID,
		pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true})
	if err != nil {
		return fmt.Errorf("failed to select spendable credits: %w", err)
	}

	type spendable struct {
		id    string
		pence int64
	}
	credits := make([]spendable, 0)
	for rows.Next() {
		var s spendable
		var n pgtype.Numeric
		if err := rows.Scan(&s.id, &n); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan spendable credit: %w", err)
		}
		a, err := model.FromPGNumeric(n)
		if err != nil {
			rows.Close()
			return fmt.Errorf("invalid credit amount from DB: %w", err)
		}
		s.pence = a.TotalPence()
		credits = append(credits, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err //nolint: wrapcheck // error from pgx
	}

	need := amount.TotalPence()
	for _, c := range credits {
		if need == 0 {
			break
		}
		if c.pence <= need {
			if _, err := tx.Exec(ctx, sqlMarkCreditUsed, c.id); err != nil {
				return fmt.Errorf("failed to mark credit used: %w", err)
			}
			need -= c.pence
			continue
		}
		remainder := model.FromPence(c.pence - need)
		if _, err := tx.Exec(ctx, sqlShrinkCredit, c.id, remainder.ToPGNumeric()); err != nil {
			return fmt.Errorf("failed to shrink credit: %w", err)
		}
		need = 0
	}

	if need > 0 {
		return serviceerrs.ErrInsufficientCredit
	}
	return nil
}
