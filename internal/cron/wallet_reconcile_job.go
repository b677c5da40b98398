package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/logger"
)

const defaultReconcileBatchSize = 100

// walletReconcileRepo is the slice of the wallet repository the job needs.
type walletReconcileRepo interface {
	ListAccountUserIDs(ctx context.Context, limit int, after *uuid.UUID) ([]uuid.UUID, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error)
	SumLedger(ctx context.Context, userID uuid.UUID) (int, error)
	UpdateAccountBalance(ctx context.Context, userID uuid.UUID, balanceCents int) error
}

// WalletReconcileJobParams configures the wallet balance reconcile job.
type WalletReconcileJobParams struct {
	Logger    *logger.Logger
	Repo      walletReconcileRepo
	BatchSize int
}

// NewWalletReconcileJob builds the job that walks every wallet account and
// repairs cached balances that have drifted from the ledger sum. The
// ledger is the system of record; the cached column is only a read
// optimization, so drift is corrected toward the ledger, never the
// other way around.
func NewWalletReconcileJob(params WalletReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReconcileBatchSize
	}
	return &walletReconcileJob{
		logg:      params.Logger,
		repo:      params.Repo,
		batchSize: batchSize,
	}, nil
}

type walletReconcileJob struct {
	logg      *logger.Logger
	repo      walletReconcileRepo
	batchSize int
}

func (j *walletReconcileJob) Name() string { return "wallet-reconcile" }

func (j *walletReconcileJob) Run(ctx context.Context) error {
	var (
		checked  int
		repaired int
		errs     error
		after    *uuid.UUID
	)
	for {
		ids, err := j.repo.ListAccountUserIDs(ctx, j.batchSize, after)
		if err != nil {
			return fmt.Errorf("list wallet accounts: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		for _, userID := range ids {
			checked++
			fixed, err := j.reconcileUser(ctx, userID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("user %s: %w", userID, err))
				continue
			}
			if fixed {
				repaired++
			}
		}
		last := ids[len(ids)-1]
		after = &last
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"accounts_checked":  checked,
		"balances_repaired": repaired,
	})
	j.logg.Info(logCtx, "wallet reconcile complete")
	return errs
}

func (j *walletReconcileJob) reconcileUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	ledger, err := j.repo.SumLedger(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("replay ledger: %w", err)
	}
	account, err := j.repo.GetAccount(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load account: %w", err)
	}
	if account.BalanceCents == ledger {
		return false, nil
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"user_id":        userID.String(),
		"cached_balance": account.BalanceCents,
		"ledger_balance": ledger,
	})
	j.logg.Warn(logCtx, "cached wallet balance drifted from ledger")

	if err := j.repo.UpdateAccountBalance(ctx, userID, ledger); err != nil {
		return false, fmt.Errorf("repair balance: %w", err)
	}
	return true, nil
}
