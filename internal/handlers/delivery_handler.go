package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/cache"
	"coffee-backend/internal/middleware"
	"coffee-backend/internal/models"
	"coffee-backend/internal/services"
	"coffee-backend/internal/timeutil"
	"coffee-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type DeliveryHandler struct {
	Service *services.DeliveryService
}

func NewDeliveryHandler(s *services.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{Service: s}
}

// deliveryFilterFromQuery parses the shared list/filter query parameters
func deliveryFilterFromQuery(r *http.Request) models.DeliveryFilter {
	q := r.URL.Query()
	filter := models.DeliveryFilter{
		DeliveryType: q.Get("delivery_type"),
		Region:       q.Get("region"),
	}
	if farmerID, err := strconv.Atoi(q.Get("farmer_id")); err == nil {
		filter.FarmerID = farmerID
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if from, err := timeutil.ParseInEAT(timeutil.DateLayout, q.Get("from")); err == nil {
		filter.From = &from
	}
	if to, err := timeutil.ParseInEAT(timeutil.DateLayout, q.Get("to")); err == nil {
		end := timeutil.EndOfDay(to)
		filter.To = &end
	}
	return filter
}

func (h *DeliveryHandler) CreateDelivery(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	delivery, err := h.Service.Create(r.Context(), access, req, access.UserID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	cache.InvalidateReports(r.Context())
	utils.JSON(w, http.StatusCreated, delivery)
}

func (h *DeliveryHandler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, apperrors.Validation("invalid delivery id"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	delivery, err := h.Service.Get(r.Context(), access, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, delivery)
}

func (h *DeliveryHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	deliveries, err := h.Service.List(r.Context(), access, deliveryFilterFromQuery(r))
	if err != nil {
		utils.Error(w, err)
		return
	}
	if deliveries == nil {
		deliveries = []*models.Delivery{}
	}
	utils.JSON(w, http.StatusOK, deliveries)
}

func (h *DeliveryHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, apperrors.Validation("invalid delivery id"))
		return
	}
	var req models.UpdateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	delivery, err := h.Service.Update(r.Context(), access, id, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	cache.InvalidateReports(r.Context())
	utils.JSON(w, http.StatusOK, delivery)
}
