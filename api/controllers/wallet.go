package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/api/middleware"
	"github.com/dishpatch/dishpatch-backend/api/responses"
	"github.com/dishpatch/dishpatch-backend/api/validators"
	"github.com/dishpatch/dishpatch-backend/internal/wallet"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/logger"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"
	"github.com/dishpatch/dishpatch-backend/pkg/types"
)

// WalletBalance returns the user's authoritative ledger-derived balance.
func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID, err := parseWalletUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user_id":         userID,
			"balance_cents":   balance,
			"balance_display": types.DisplayAmount(balance),
		})
	}
}

// WalletLedger pages the user's ledger entries newest-first.
func WalletLedger(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID, err := parseWalletUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.Ledger(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.Page{
			Items:      list.Entries,
			NextCursor: pagination.NextToken(list.NextCursor),
		})
	}
}

type walletCreditRequest struct {
	Type          string     `json:"type" validate:"required"`
	AmountCents   int        `json:"amount_cents" validate:"required,min=1"`
	SourceOrderID *uuid.UUID `json:"source_order_id,omitempty"`
	Remarks       string     `json:"remarks"`
}

// WalletCredit appends an inflow entry to the user's ledger.
func WalletCredit(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID, err := parseWalletUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req walletCreditRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryType, err := enums.ParseLedgerEntryType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ledger entry type"))
			return
		}

		entry, err := svc.Credit(r.Context(), wallet.CreditInput{
			UserID:        userID,
			Type:          entryType,
			AmountCents:   req.AmountCents,
			SourceOrderID: req.SourceOrderID,
			Remarks:       req.Remarks,
			ActorUserID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole:     middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

type walletDebitRequest struct {
	AmountCents   int        `json:"amount_cents" validate:"required,min=1"`
	SourceOrderID *uuid.UUID `json:"source_order_id,omitempty"`
	Remarks       string     `json:"remarks"`
}

// WalletDebit spends from the user's wallet; overdraws are rejected.
func WalletDebit(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID, err := parseWalletUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req walletDebitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Debit(r.Context(), wallet.DebitInput{
			UserID:        userID,
			AmountCents:   req.AmountCents,
			SourceOrderID: req.SourceOrderID,
			Remarks:       req.Remarks,
			ActorUserID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole:     middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func parseWalletUserID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "userId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}
