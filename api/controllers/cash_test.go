package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/internal/cash"
	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
)

type stubCashService struct {
	recordFn func(ctx context.Context, input cash.RecordInput) (*cash.Receipt, error)
	creditFn func(ctx context.Context, input cash.CreditChangeInput) (*models.Order, error)
}

func (s stubCashService) RecordCashCollected(ctx context.Context, input cash.RecordInput) (*cash.Receipt, error) {
	if s.recordFn != nil {
		return s.recordFn(ctx, input)
	}
	return &cash.Receipt{}, nil
}

func (s stubCashService) CreditChangeToWallet(ctx context.Context, input cash.CreditChangeInput) (*models.Order, error) {
	if s.creditFn != nil {
		return s.creditFn(ctx, input)
	}
	return &models.Order{}, nil
}

func withOrderID(req *http.Request, orderID uuid.UUID) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCollectCashReturnsReceipt(t *testing.T) {
	orderID := uuid.New()
	svc := stubCashService{
		recordFn: func(ctx context.Context, input cash.RecordInput) (*cash.Receipt, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if input.CollectedAmountCents != 30000 {
				t.Fatalf("unexpected amount %d", input.CollectedAmountCents)
			}
			if !input.MarkDelivered {
				t.Fatalf("expected mark_delivered to pass through")
			}
			return &cash.Receipt{ChangeDueCents: 5000}, nil
		},
	}

	handler := CollectCash(svc, nil)
	body := `{"collected_amount_cents":30000,"mark_delivered":true}`
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), orderID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data cash.Receipt `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ChangeDueCents != 5000 {
		t.Fatalf("unexpected change due %d", envelope.Data.ChangeDueCents)
	}
}

func TestCollectCashRejectsZeroAmount(t *testing.T) {
	handler := CollectCash(stubCashService{}, nil)
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"collected_amount_cents":0}`)), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCollectCashRejectsInvalidOrderID(t *testing.T) {
	handler := CollectCash(stubCashService{}, nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", "not-a-uuid")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"collected_amount_cents":100}`))
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreditChangePassesInputThrough(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()
	svc := stubCashService{
		creditFn: func(ctx context.Context, input cash.CreditChangeInput) (*models.Order, error) {
			if input.OrderID != orderID || input.UserID != userID {
				t.Fatalf("unexpected identifiers %s %s", input.OrderID, input.UserID)
			}
			if input.AmountCents != 5000 || input.Reason != "no change available" {
				t.Fatalf("unexpected input %+v", input)
			}
			return &models.Order{ID: orderID}, nil
		},
	}

	handler := CreditChange(svc, nil)
	body := `{"user_id":"` + userID.String() + `","amount_cents":5000,"reason":"no change available"}`
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), orderID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreditChangeSurfacesIdempotencyConflict(t *testing.T) {
	svc := stubCashService{
		creditFn: func(ctx context.Context, input cash.CreditChangeInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "change already credited for this order")
		},
	}

	handler := CreditChange(svc, nil)
	body := `{"user_id":"` + uuid.NewString() + `","amount_cents":5000,"reason":"retry"}`
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
