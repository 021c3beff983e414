package handlers

import (
	"net/http"
	"strconv"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/middleware"
	"coffee-backend/internal/models"
	"coffee-backend/internal/services"
	"coffee-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type ReconciliationHandler struct {
	Service *services.ReconciliationService
}

func NewReconciliationHandler(s *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{Service: s}
}

// ListUnpaid returns unpaid deliveries in scope, with the same filters as
// the delivery listing
func (h *ReconciliationHandler) ListUnpaid(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	unpaid, err := h.Service.ListUnpaid(r.Context(), access, deliveryFilterFromQuery(r))
	if err != nil {
		utils.Error(w, err)
		return
	}
	if unpaid == nil {
		unpaid = []*models.UnpaidDelivery{}
	}
	utils.JSON(w, http.StatusOK, unpaid)
}

// FarmerUnpaidTotals returns a farmer's outstanding kilograms grouped by
// delivery type
func (h *ReconciliationHandler) FarmerUnpaidTotals(w http.ResponseWriter, r *http.Request) {
	farmerID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, apperrors.Validation("invalid farmer id"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())

	if deliveryType := r.URL.Query().Get("delivery_type"); deliveryType != "" {
		total, err := h.Service.UnpaidTotalForType(r.Context(), access, farmerID, deliveryType)
		if err != nil {
			utils.Error(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, total)
		return
	}

	totals, err := h.Service.UnpaidTotalsByType(r.Context(), access, farmerID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if totals == nil {
		totals = []*models.UnpaidTypeTotal{}
	}
	utils.JSON(w, http.StatusOK, totals)
}
