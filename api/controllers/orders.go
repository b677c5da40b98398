package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/api/middleware"
	"github.com/dishpatch/dishpatch-backend/api/responses"
	"github.com/dishpatch/dishpatch-backend/api/validators"
	internalorders "github.com/dishpatch/dishpatch-backend/internal/orders"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/logger"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"
	"github.com/dishpatch/dishpatch-backend/pkg/types"
)

type createOrderItemRequest struct {
	MenuItemID uuid.UUID `json:"menu_item_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,min=1"`
	Notes      *string   `json:"notes,omitempty"`
}

type createOrderRequest struct {
	RestaurantID   uuid.UUID                `json:"restaurant_id" validate:"required"`
	CustomerID     uuid.UUID                `json:"customer_id" validate:"required"`
	PaymentMethod  string                   `json:"payment_method,omitempty" validate:"omitempty,oneof=cash wallet online"`
	Items          []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountCents  int                      `json:"discount_cents" validate:"min=0"`
	SurchargeCents int                      `json:"surcharge_cents" validate:"min=0"`
	Notes          *string                  `json:"notes,omitempty"`
}

// CreateOrder places a new order from catalog items.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]internalorders.NewItemSpec, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, internalorders.NewItemSpec{
				MenuItemID: item.MenuItemID,
				Quantity:   item.Quantity,
				Notes:      validators.SanitizeStringPtr(item.Notes, 500),
			})
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			RestaurantID:   req.RestaurantID,
			CustomerID:     req.CustomerID,
			PaymentMethod:  enums.PaymentMethod(req.PaymentMethod),
			Items:          items,
			DiscountCents:  req.DiscountCents,
			SurchargeCents: req.SurchargeCents,
			Notes:          validators.SanitizeStringPtr(req.Notes, 500),
			ActorUserID:    middleware.ActorIDFromContext(r.Context()),
			ActorRole:      middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListOrders pages orders newest-first with optional filters.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params, *filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.Page{
			Items:      list.Orders,
			NextCursor: pagination.NextToken(list.NextCursor),
		})
	}
}

// OrderDetail returns the order aggregate plus its reassignment history.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type transitionRequest struct {
	Target string `json:"target" validate:"required"`
}

// TransitionOrder advances the order one step along its lifecycle, or
// cancels it.
func TransitionOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID:     orderID,
			Target:      target,
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

type assignAgentRequest struct {
	AgentID uuid.UUID `json:"agent_id" validate:"required"`
	Reason  string    `json:"reason" validate:"required"`
	Note    *string   `json:"note,omitempty"`
}

// AssignAgent binds or re-binds the order's delivery agent.
func AssignAgent(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignAgentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.AssignAgent(r.Context(), internalorders.AssignAgentInput{
			OrderID:     orderID,
			AgentID:     req.AgentID,
			Reason:      validators.SanitizeString(req.Reason, 500),
			Note:        validators.SanitizeStringPtr(req.Note, 500),
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

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func buildOrderFilters(r *http.Request) (*internalorders.Filters, error) {
	filters := internalorders.Filters{}

	if raw := strings.TrimSpace(r.URL.Query().Get("tenant_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id")
		}
		filters.TenantID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("customer_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id")
		}
		filters.CustomerID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("agent_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agent id")
		}
		filters.AgentID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	return &filters, nil
}
