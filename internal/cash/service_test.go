package cash

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/dishpatch-backend/internal/orders"
	"github.com/dishpatch/dishpatch-backend/internal/wallet"
	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox/payloads"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	order   *models.Order
	updates []map[string]any
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.FindByIDForUpdate(ctx, orderID)
}

func (s *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.updates = append(s.updates, updates)
	return nil
}

func (s *stubOrdersRepo) CreateItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error) {
	return item, nil
}

func (s *stubOrdersRepo) FindItem(ctx context.Context, orderID, itemID uuid.UUID) (*models.OrderItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return nil, nil
}

func (s *stubOrdersRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return nil
}

func (s *stubOrdersRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error { return nil }

func (s *stubOrdersRepo) ListOrders(ctx context.Context, params pagination.Params, filters orders.Filters) (*orders.List, error) {
	return &orders.List{}, nil
}

// stubLifecycle stands in for the order state machine; TransitionTx applies
// the target status directly so the cash service sees a delivered order.
type stubLifecycle struct {
	repo        *stubOrdersRepo
	transitions []orders.TransitionInput
	err         error
}

func (s *stubLifecycle) Create(ctx context.Context, input orders.CreateInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubLifecycle) Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubLifecycle) TransitionTx(ctx context.Context, tx *gorm.DB, input orders.TransitionInput) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.transitions = append(s.transitions, input)
	now := time.Now().UTC()
	s.repo.order.Status = input.Target
	if input.Target == enums.OrderStatusDelivered {
		s.repo.order.DeliveredAt = &now
	}
	return s.repo.order, nil
}

func (s *stubLifecycle) AssignAgent(ctx context.Context, input orders.AssignAgentInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubLifecycle) Get(ctx context.Context, orderID uuid.UUID) (*orders.Detail, error) {
	return nil, nil
}

func (s *stubLifecycle) List(ctx context.Context, params pagination.Params, filters orders.Filters) (*orders.List, error) {
	return nil, nil
}

type stubWalletService struct {
	credits []wallet.CreditInput
	entry   *models.WalletLedgerEntry
	err     error
}

func (s *stubWalletService) Credit(ctx context.Context, input wallet.CreditInput) (*models.WalletLedgerEntry, error) {
	return s.CreditTx(ctx, &gorm.DB{}, input)
}

func (s *stubWalletService) CreditTx(ctx context.Context, tx *gorm.DB, input wallet.CreditInput) (*models.WalletLedgerEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.credits = append(s.credits, input)
	entry := &models.WalletLedgerEntry{
		ID:            uuid.New(),
		UserID:        input.UserID,
		Type:          input.Type,
		AmountCents:   input.AmountCents,
		SourceOrderID: input.SourceOrderID,
		Remarks:       input.Remarks,
	}
	s.entry = entry
	return entry, nil
}

func (s *stubWalletService) Debit(ctx context.Context, input wallet.DebitInput) (*models.WalletLedgerEntry, error) {
	return nil, nil
}

func (s *stubWalletService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}

func (s *stubWalletService) Ledger(ctx context.Context, userID uuid.UUID, params pagination.Params) (*wallet.LedgerList, error) {
	return nil, nil
}

type stubWalletRepo struct {
	existing *models.WalletLedgerEntry
}

func (s *stubWalletRepo) WithTx(tx *gorm.DB) wallet.Repository { return s }

func (s *stubWalletRepo) GetOrCreateAccountForUpdate(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	return &models.WalletAccount{UserID: userID}, nil
}

func (s *stubWalletRepo) GetAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	return &models.WalletAccount{UserID: userID}, nil
}

func (s *stubWalletRepo) AppendEntry(ctx context.Context, entry *models.WalletLedgerEntry) (*models.WalletLedgerEntry, error) {
	return entry, nil
}

func (s *stubWalletRepo) UpdateAccountBalance(ctx context.Context, userID uuid.UUID, balanceCents int) error {
	return nil
}

func (s *stubWalletRepo) SumLedger(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}

func (s *stubWalletRepo) FindEntryByOrderAndType(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.WalletLedgerEntry, error) {
	return s.existing, nil
}

func (s *stubWalletRepo) ListEntries(ctx context.Context, userID uuid.UUID, params pagination.Params) (*wallet.LedgerList, error) {
	return &wallet.LedgerList{}, nil
}

func (s *stubWalletRepo) ListAccountUserIDs(ctx context.Context, limit int, after *uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type testDeps struct {
	ordersRepo *stubOrdersRepo
	lifecycle  *stubLifecycle
	walletSvc  *stubWalletService
	walletRepo *stubWalletRepo
	outbox     *stubOutboxPublisher
}

func newTestService(t *testing.T, order *models.Order) (Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		ordersRepo: &stubOrdersRepo{order: order},
		walletSvc:  &stubWalletService{},
		walletRepo: &stubWalletRepo{},
		outbox:     &stubOutboxPublisher{},
	}
	deps.lifecycle = &stubLifecycle{repo: deps.ordersRepo}
	svc, err := NewService(deps.ordersRepo, deps.lifecycle, deps.walletSvc, deps.walletRepo, stubTxRunner{}, deps.outbox, nil)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc, deps
}

func outForDeliveryOrder(finalCents int) *models.Order {
	agentID := uuid.New()
	agentStatus := enums.AgentStatusOutForDelivery
	return &models.Order{
		ID:               uuid.New(),
		OrderNumber:      101,
		TenantID:         uuid.New(),
		RestaurantID:     uuid.New(),
		CustomerID:       uuid.New(),
		PaymentMethod:    enums.PaymentMethodCash,
		Status:           enums.OrderStatusOutForDelivery,
		FinalAmountCents: finalCents,
		AssignedAgentID:  &agentID,
		AgentStatus:      &agentStatus,
		CreatedAt:        time.Now().UTC().Add(-time.Hour),
		UpdatedAt:        time.Now().UTC().Add(-time.Minute),
	}
}

func TestRecordCashCollectedComputesChangeDue(t *testing.T) {
	order := outForDeliveryOrder(25000)
	svc, deps := newTestService(t, order)

	receipt, err := svc.RecordCashCollected(context.Background(), RecordInput{
		OrderID:              order.ID,
		CollectedAmountCents: 30000,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if receipt.ChangeDueCents != 5000 {
		t.Fatalf("expected change due 5000 got %d", receipt.ChangeDueCents)
	}
	if receipt.Order.CollectedAmountCents == nil || *receipt.Order.CollectedAmountCents != 30000 {
		t.Fatalf("expected collected 30000 got %+v", receipt.Order.CollectedAmountCents)
	}
	if receipt.Order.CollectedAt == nil {
		t.Fatal("expected collected_at set")
	}
	if len(deps.ordersRepo.updates) != 1 {
		t.Fatalf("expected one order update got %d", len(deps.ordersRepo.updates))
	}
	if len(deps.outbox.events) != 1 || deps.outbox.events[0].EventType != enums.EventCashCollected {
		t.Fatalf("expected cash collected event got %+v", deps.outbox.events)
	}
	payload := deps.outbox.events[0].Data.(payloads.CashCollectedEvent)
	if payload.CollectedAmountCents != 30000 || payload.FinalAmountCents != 25000 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestRecordCashCollectedExactAmountOwesNoChange(t *testing.T) {
	order := outForDeliveryOrder(25000)
	svc, _ := newTestService(t, order)

	receipt, err := svc.RecordCashCollected(context.Background(), RecordInput{
		OrderID:              order.ID,
		CollectedAmountCents: 25000,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if receipt.ChangeDueCents != 0 {
		t.Fatalf("expected no change due got %d", receipt.ChangeDueCents)
	}
}

func TestRecordCashCollectedMarksDelivered(t *testing.T) {
	order := outForDeliveryOrder(25000)
	svc, deps := newTestService(t, order)

	receipt, err := svc.RecordCashCollected(context.Background(), RecordInput{
		OrderID:              order.ID,
		CollectedAmountCents: 25000,
		MarkDelivered:        true,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(deps.lifecycle.transitions) != 1 || deps.lifecycle.transitions[0].Target != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered transition got %+v", deps.lifecycle.transitions)
	}
	if receipt.Order.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered receipt got %s", receipt.Order.Status)
	}
}

func TestRecordCashCollectedDineInMarksDelivered(t *testing.T) {
	// dine-in settlement: cash changes hands at pickup, no agent bound
	order := outForDeliveryOrder(25000)
	order.Status = enums.OrderStatusPickedUp
	order.AssignedAgentID = nil
	order.AgentStatus = nil
	svc, deps := newTestService(t, order)

	receipt, err := svc.RecordCashCollected(context.Background(), RecordInput{
		OrderID:              order.ID,
		CollectedAmountCents: 25000,
		MarkDelivered:        true,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(deps.lifecycle.transitions) != 1 || deps.lifecycle.transitions[0].Target != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered transition got %+v", deps.lifecycle.transitions)
	}
	if receipt.Order.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered receipt got %s", receipt.Order.Status)
	}
	if receipt.Order.AssignedAgentID != nil {
		t.Fatal("agent fields must stay null on a dine-in order")
	}
}

func TestRecordCashCollectedTransitionFailureAborts(t *testing.T) {
	order := outForDeliveryOrder(25000)
	svc, deps := newTestService(t, order)
	deps.lifecycle.err = pkgerrors.New(pkgerrors.CodeStateConflict, "illegal transition")

	_, err := svc.RecordCashCollected(context.Background(), RecordInput{
		OrderID:              order.ID,
		CollectedAmountCents: 25000,
		MarkDelivered:        true,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestRecordCashCollectedRejectsCancelledOrder(t *testing.T) {
	order := outForDeliveryOrder(25000)
	order.Status = enums.OrderStatusCancelled
	svc, _ := newTestService(t, order)

	_, err := svc.RecordCashCollected(context.Background(), RecordInput{
		OrderID:              order.ID,
		CollectedAmountCents: 25000,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestRecordCashCollectedRejectsPrepaidOrder(t *testing.T) {
	order := outForDeliveryOrder(25000)
	order.PaymentMethod = enums.PaymentMethodOnline
	svc, _ := newTestService(t, order)

	_, err := svc.RecordCashCollected(context.Background(), RecordInput{
		OrderID:              order.ID,
		CollectedAmountCents: 25000,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestRecordCashCollectedRejectsAfterChangeCredited(t *testing.T) {
	order := outForDeliveryOrder(25000)
	change := 5000
	order.ChangeAmountCents = &change
	svc, _ := newTestService(t, order)

	_, err := svc.RecordCashCollected(context.Background(), RecordInput{
		OrderID:              order.ID,
		CollectedAmountCents: 30000,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestRecordCashCollectedRejectsNonPositiveAmount(t *testing.T) {
	order := outForDeliveryOrder(25000)
	svc, _ := newTestService(t, order)

	_, err := svc.RecordCashCollected(context.Background(), RecordInput{
		OrderID:              order.ID,
		CollectedAmountCents: 0,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func collectedOrder(finalCents, collectedCents int) *models.Order {
	order := outForDeliveryOrder(finalCents)
	now := time.Now().UTC()
	order.Status = enums.OrderStatusDelivered
	order.CollectedAmountCents = &collectedCents
	order.CollectedAt = &now
	return order
}

func TestCreditChangeToWalletHappyPath(t *testing.T) {
	order := collectedOrder(25000, 30000)
	svc, deps := newTestService(t, order)

	result, err := svc.CreditChangeToWallet(context.Background(), CreditChangeInput{
		OrderID:     order.ID,
		UserID:      order.CustomerID,
		AmountCents: 5000,
		Reason:      "no change available",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if len(deps.walletSvc.credits) != 1 {
		t.Fatalf("expected one wallet credit got %d", len(deps.walletSvc.credits))
	}
	credit := deps.walletSvc.credits[0]
	if credit.Type != enums.LedgerEntryTypeCashback || credit.AmountCents != 5000 {
		t.Fatalf("unexpected credit %+v", credit)
	}
	if credit.SourceOrderID == nil || *credit.SourceOrderID != order.ID {
		t.Fatalf("expected credit tied to order got %+v", credit.SourceOrderID)
	}

	if result.ChangeAmountCents == nil || *result.ChangeAmountCents != 5000 {
		t.Fatalf("expected change amount 5000 got %+v", result.ChangeAmountCents)
	}
	// After reconciliation the collected amount is clamped to the total.
	if result.CollectedAmountCents == nil || *result.CollectedAmountCents != 25000 {
		t.Fatalf("expected collected clamped to 25000 got %+v", result.CollectedAmountCents)
	}
	if result.ChangeReason == nil || *result.ChangeReason != "no change available" {
		t.Fatalf("expected reason stored got %+v", result.ChangeReason)
	}

	if len(deps.outbox.events) != 1 || deps.outbox.events[0].EventType != enums.EventChangeCredited {
		t.Fatalf("expected change credited event got %+v", deps.outbox.events)
	}
	payload := deps.outbox.events[0].Data.(payloads.ChangeCreditedEvent)
	if payload.ChangeAmountCents != 5000 || payload.OrderID != order.ID {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCreditChangeToWalletSecondCallIsRejected(t *testing.T) {
	order := collectedOrder(25000, 25000)
	change := 5000
	order.ChangeAmountCents = &change
	svc, deps := newTestService(t, order)

	_, err := svc.CreditChangeToWallet(context.Background(), CreditChangeInput{
		OrderID:     order.ID,
		UserID:      order.CustomerID,
		AmountCents: 5000,
		Reason:      "no change available",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeIdempotency {
		t.Fatalf("expected idempotency error got %v", err)
	}
	if len(deps.walletSvc.credits) != 0 {
		t.Fatal("second call must not credit the wallet again")
	}
}

func TestCreditChangeToWalletRecoversFromExistingLedgerEntry(t *testing.T) {
	order := collectedOrder(25000, 30000)
	svc, deps := newTestService(t, order)
	orderID := order.ID
	deps.walletRepo.existing = &models.WalletLedgerEntry{
		ID:            uuid.New(),
		UserID:        order.CustomerID,
		Type:          enums.LedgerEntryTypeCashback,
		AmountCents:   5000,
		SourceOrderID: &orderID,
	}

	result, err := svc.CreditChangeToWallet(context.Background(), CreditChangeInput{
		OrderID:     order.ID,
		UserID:      order.CustomerID,
		AmountCents: 5000,
		Reason:      "no change available",
	})
	if err != nil {
		t.Fatalf("expected recovery to succeed got %v", err)
	}
	if len(deps.walletSvc.credits) != 0 {
		t.Fatal("existing ledger entry must not be credited again")
	}
	if result.ChangeAmountCents == nil || *result.ChangeAmountCents != 5000 {
		t.Fatalf("expected bookkeeping finished with ledger amount got %+v", result.ChangeAmountCents)
	}
}

func TestCreditChangeToWalletUniqueViolationIsIdempotent(t *testing.T) {
	order := collectedOrder(25000, 30000)
	svc, deps := newTestService(t, order)
	deps.walletSvc.err = errors.New(`duplicate key value violates unique constraint "ux_wallet_ledger_cashback_once"`)

	_, err := svc.CreditChangeToWallet(context.Background(), CreditChangeInput{
		OrderID:     order.ID,
		UserID:      order.CustomerID,
		AmountCents: 5000,
		Reason:      "no change available",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeIdempotency {
		t.Fatalf("expected idempotency error got %v", err)
	}
}

func TestCreditChangeToWalletRejectsExcessAmount(t *testing.T) {
	order := collectedOrder(25000, 30000)
	svc, _ := newTestService(t, order)

	_, err := svc.CreditChangeToWallet(context.Background(), CreditChangeInput{
		OrderID:     order.ID,
		UserID:      order.CustomerID,
		AmountCents: 5001,
		Reason:      "no change available",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestCreditChangeToWalletRequiresRecordedCash(t *testing.T) {
	order := outForDeliveryOrder(25000)
	svc, _ := newTestService(t, order)

	_, err := svc.CreditChangeToWallet(context.Background(), CreditChangeInput{
		OrderID:     order.ID,
		UserID:      order.CustomerID,
		AmountCents: 5000,
		Reason:      "no change available",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestCreditChangeToWalletNotFound(t *testing.T) {
	svc, _ := newTestService(t, collectedOrder(25000, 30000))

	_, err := svc.CreditChangeToWallet(context.Background(), CreditChangeInput{
		OrderID:     uuid.New(),
		UserID:      uuid.New(),
		AmountCents: 5000,
		Reason:      "no change available",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}
