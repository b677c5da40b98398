package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/api/middleware"
	"github.com/dishpatch/dishpatch-backend/api/responses"
	"github.com/dishpatch/dishpatch-backend/api/validators"
	"github.com/dishpatch/dishpatch-backend/internal/cash"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/logger"
)

type collectCashRequest struct {
	CollectedAmountCents int  `json:"collected_amount_cents" validate:"required,min=1"`
	MarkDelivered        bool `json:"mark_delivered"`
}

// CollectCash records cash handed over on delivery and reports the change due.
func CollectCash(svc cash.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cash service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req collectCashRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.RecordCashCollected(r.Context(), cash.RecordInput{
			OrderID:              orderID,
			CollectedAmountCents: req.CollectedAmountCents,
			MarkDelivered:        req.MarkDelivered,
			ActorUserID:          middleware.ActorIDFromContext(r.Context()),
			ActorRole:            middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}

type creditChangeRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	AmountCents int       `json:"amount_cents" validate:"required,min=1"`
	Reason      string    `json:"reason" validate:"required"`
}

// CreditChange converts the change owed on an order into a wallet credit.
// The operation succeeds at most once per order.
func CreditChange(svc cash.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cash service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req creditChangeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreditChangeToWallet(r.Context(), cash.CreditChangeInput{
			OrderID:     orderID,
			UserID:      req.UserID,
			AmountCents: req.AmountCents,
			Reason:      validators.SanitizeString(req.Reason, 500),
			ActorUserID: middleware.ActorIDFromContext(r.Context()),
			ActorRole:   middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
