package controllers

import (
	"net/http"

	"github.com/dishpatch/dishpatch-backend/api/responses"
	internalorders "github.com/dishpatch/dishpatch-backend/internal/orders"
	"github.com/dishpatch/dishpatch-backend/internal/timeline"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/logger"
)

// OrderTimeline projects the order's history into a display-ready event list.
func OrderTimeline(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		events := timeline.Build(detail.Order, detail.Reassignments)
		responses.WriteSuccess(w, map[string]any{
			"order_id": orderID,
			"events":   events,
		})
	}
}
