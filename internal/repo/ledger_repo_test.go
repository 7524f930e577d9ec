package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/model/booking"
	"github.com/bookon-app/bookon/internal/model/wallet"
)

func TestLedgerRepository_WalletBalance_empty(t *testing.T) {
	repo, ctx, cancel, pool := setupRepo(t, NewLedgerRepository)
	defer cancel()
	parentID := mustCreateParent(t, ctx, pool)

	balance, err := repo.WalletBalance(ctx, parentID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", balance.String())
}

func TestLedgerRepository_WalletBalance_ignoresExpired(t *testing.T) {
	repo, ctx, cancel, pool := setupRepo(t, NewLedgerRepository)
	defer cancel()
	parentID := mustCreateParent(t, ctx, pool)

	now := time.Now().UTC()
	b := mustCreateBooking(t, ctx, pool,
		parentID, 20.00, booking.MethodCard, now.Add(48*time.Hour))

	insertTestCredit(t, ctx, pool, parentID, b.ID, 10.00, now.Add(time.Hour))
	insertTestCredit(t, ctx, pool, parentID, b.ID, 5.00, now.Add(-time.Hour))

	balance, err := repo.WalletBalance(ctx, parentID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", balance.String())
}

func TestLedgerRepository_ExpireCredits(t *testing.T) {
	repo, ctx, cancel, pool := setupRepo(t, NewLedgerRepository)
	defer cancel()
	parentID := mustCreateParent(t, ctx, pool)

	now := time.Now().UTC()
	b := mustCreateBooking(t, ctx, pool,
		parentID, 20.00, booking.MethodCard, now.Add(48*time.Hour))
	creditID := insertTestCredit(t, ctx, pool, parentID, b.ID, 10.00, now.Add(-time.Hour))

	affected, err := repo.ExpireCredits(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, affected, int64(1))

	credits, err := repo.ListCreditsByParent(ctx, parentID)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, creditID, credits[0].ID)
	assert.Equal(t, wallet.StatusExpired, credits[0].Status)

	// a second sweep finds nothing new for this parent
	_, err = repo.ExpireCredits(ctx, now)
	require.NoError(t, err)
}

func TestLedgerRepository_ListCreditsByParent(t *testing.T) {
	repo, ctx, cancel, pool := setupRepo(t, NewLedgerRepository)
	defer cancel()
	parentID := mustCreateParent(t, ctx, pool)

	credits, err := repo.ListCreditsByParent(ctx, parentID)
	require.NoError(t, err)
	assert.Empty(t, credits)

	now := time.Now().UTC()
	b := mustCreateBooking(t, ctx, pool,
		parentID, 20.00, booking.MethodCard, now.Add(48*time.Hour))
	insertTestCredit(t, ctx, pool, parentID, b.ID, 12.34, now.Add(time.Hour))

	credits, err = repo.ListCreditsByParent(ctx, parentID)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, "12.34", credits[0].Amount.String())
	assert.Equal(t, wallet.SourceCancellation, credits[0].Source)
	assert.Equal(t, b.ID, credits[0].BookingID)

	_, err = repo.ListCreditsByParent(ctx, "")
	assert.Error(t, err)
}

func TestLedgerRepository_ListRefundsByParent_emptyArgs(t *testing.T) {
	repo, ctx, cancel, _ := setupRepo(t, NewLedgerRepository)
	defer cancel()

	_, err := repo.ListRefundsByParent(ctx, "")
	assert.Error(t, err)

	refunds, err := repo.ListRefundsByParent(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, refunds)
}

func insertTestCredit(t *testing.T, ctx context.Context, pool *pgxpool.Pool,
	parentID, bookingID string, amount float64, expiresAt time.Time,
) string {
	t.Helper()

	a, err := model.FromFloat(amount)
	require.NoError(t, err)

	id := uuid.NewString()
	_, err = pool.Exec(ctx, sqlInsertCredit,
		id, parentID, nil, bookingID, a.ToPGNumeric(),
		pgtype.Timestamptz{Time: expiresAt, Valid: true},
		string(wallet.SourceCancellation), string(wallet.StatusActive), "",
		pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
	)
	require.NoError(t, err)
	return id
}
