package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"
)

type stubWalletRepo struct {
	accounts map[uuid.UUID]*models.WalletAccount
	entries  []models.WalletLedgerEntry
}

func newStubWalletRepo() *stubWalletRepo {
	return &stubWalletRepo{accounts: make(map[uuid.UUID]*models.WalletAccount)}
}

func (s *stubWalletRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubWalletRepo) GetOrCreateAccountForUpdate(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	if account, ok := s.accounts[userID]; ok {
		return account, nil
	}
	account := &models.WalletAccount{UserID: userID}
	s.accounts[userID] = account
	return account, nil
}

func (s *stubWalletRepo) GetAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	account, ok := s.accounts[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return account, nil
}

func (s *stubWalletRepo) AppendEntry(ctx context.Context, entry *models.WalletLedgerEntry) (*models.WalletLedgerEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.entries = append(s.entries, *entry)
	return entry, nil
}

func (s *stubWalletRepo) UpdateAccountBalance(ctx context.Context, userID uuid.UUID, balanceCents int) error {
	account, ok := s.accounts[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	account.BalanceCents = balanceCents
	return nil
}

func (s *stubWalletRepo) SumLedger(ctx context.Context, userID uuid.UUID) (int, error) {
	sum := 0
	for _, entry := range s.entries {
		if entry.UserID == userID {
			sum += entry.AmountCents
		}
	}
	return sum, nil
}

func (s *stubWalletRepo) FindEntryByOrderAndType(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.WalletLedgerEntry, error) {
	for i := range s.entries {
		entry := s.entries[i]
		if entry.Type == entryType && entry.SourceOrderID != nil && *entry.SourceOrderID == orderID {
			return &entry, nil
		}
	}
	return nil, nil
}

func (s *stubWalletRepo) ListEntries(ctx context.Context, userID uuid.UUID, params pagination.Params) (*LedgerList, error) {
	entries := make([]models.WalletLedgerEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	return &LedgerList{Entries: entries}, nil
}

func (s *stubWalletRepo) ListAccountUserIDs(ctx context.Context, limit int, after *uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	return ids, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newTestWalletService(t *testing.T, repo Repository, pub *stubOutboxPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, pub, nil)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestCreditAppendsLedgerEntry(t *testing.T) {
	repo := newStubWalletRepo()
	pub := &stubOutboxPublisher{}
	svc := newTestWalletService(t, repo, pub)

	userID := uuid.New()
	entry, err := svc.Credit(context.Background(), CreditInput{
		UserID:      userID,
		Type:        enums.LedgerEntryTypeCredit,
		AmountCents: 5000,
		Remarks:     "top-up",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if entry.AmountCents != 5000 {
		t.Fatalf("expected +5000 got %d", entry.AmountCents)
	}
	balance, err := svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5000 {
		t.Fatalf("expected balance 5000 got %d", balance)
	}
	if repo.accounts[userID].BalanceCents != 5000 {
		t.Fatalf("expected cached balance 5000 got %d", repo.accounts[userID].BalanceCents)
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.EventWalletCredited {
		t.Fatalf("expected wallet credited event got %+v", pub.events)
	}
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestWalletService(t, newStubWalletRepo(), &stubOutboxPublisher{})

	_, err := svc.Credit(context.Background(), CreditInput{
		UserID:      uuid.New(),
		Type:        enums.LedgerEntryTypeCredit,
		AmountCents: 0,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestCreditRejectsDebitType(t *testing.T) {
	svc := newTestWalletService(t, newStubWalletRepo(), &stubOutboxPublisher{})

	_, err := svc.Credit(context.Background(), CreditInput{
		UserID:      uuid.New(),
		Type:        enums.LedgerEntryTypeDebit,
		AmountCents: 100,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestDebitStoresNegativeAmount(t *testing.T) {
	repo := newStubWalletRepo()
	pub := &stubOutboxPublisher{}
	svc := newTestWalletService(t, repo, pub)

	userID := uuid.New()
	if _, err := svc.Credit(context.Background(), CreditInput{
		UserID:      userID,
		Type:        enums.LedgerEntryTypeCredit,
		AmountCents: 10000,
	}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	entry, err := svc.Debit(context.Background(), DebitInput{
		UserID:      userID,
		AmountCents: 4000,
		Remarks:     "order payment",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if entry.AmountCents != -4000 {
		t.Fatalf("expected -4000 got %d", entry.AmountCents)
	}
	balance, _ := svc.Balance(context.Background(), userID)
	if balance != 6000 {
		t.Fatalf("expected balance 6000 got %d", balance)
	}
	if repo.accounts[userID].BalanceCents != 6000 {
		t.Fatalf("expected cached balance 6000 got %d", repo.accounts[userID].BalanceCents)
	}
}

func TestDebitRejectsOverdraw(t *testing.T) {
	repo := newStubWalletRepo()
	svc := newTestWalletService(t, repo, &stubOutboxPublisher{})

	userID := uuid.New()
	if _, err := svc.Credit(context.Background(), CreditInput{
		UserID:      userID,
		Type:        enums.LedgerEntryTypeCredit,
		AmountCents: 1000,
	}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	_, err := svc.Debit(context.Background(), DebitInput{
		UserID:      userID,
		AmountCents: 1001,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance got %v", err)
	}
	// The rejected debit must not append any ledger entry.
	if len(repo.entries) != 1 {
		t.Fatalf("expected ledger unchanged got %d entries", len(repo.entries))
	}
	balance, _ := svc.Balance(context.Background(), userID)
	if balance != 1000 {
		t.Fatalf("expected balance 1000 got %d", balance)
	}
}

func TestBalanceEqualsLedgerReplay(t *testing.T) {
	repo := newStubWalletRepo()
	svc := newTestWalletService(t, repo, &stubOutboxPublisher{})

	userID := uuid.New()
	amounts := []int{5000, 2500, 1500}
	for _, amount := range amounts {
		if _, err := svc.Credit(context.Background(), CreditInput{
			UserID:      userID,
			Type:        enums.LedgerEntryTypeCredit,
			AmountCents: amount,
		}); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	if _, err := svc.Debit(context.Background(), DebitInput{UserID: userID, AmountCents: 3000}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	balance, err := svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	replay := 0
	for _, entry := range repo.entries {
		replay += entry.AmountCents
	}
	if balance != replay || balance != 6000 {
		t.Fatalf("balance %d diverged from ledger replay %d", balance, replay)
	}
	if repo.accounts[userID].BalanceCents != replay {
		t.Fatalf("cached balance %d diverged from ledger replay %d", repo.accounts[userID].BalanceCents, replay)
	}
}
