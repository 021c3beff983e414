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

type PaymentHandler struct {
	Service *services.PaymentService
}

func NewPaymentHandler(s *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: s}
}

func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	payment, err := h.Service.Create(r.Context(), access, req, access.UserID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	cache.InvalidateReports(r.Context())
	utils.JSON(w, http.StatusCreated, payment)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, apperrors.Validation("invalid payment id"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	payment, err := h.Service.Get(r.Context(), access, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PaymentFilter{
		Status:       q.Get("status"),
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

	access, _ := middleware.GetAccessFromContext(r.Context())
	payments, err := h.Service.List(r.Context(), access, filter)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	utils.JSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) VoidPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, apperrors.Validation("invalid payment id"))
		return
	}
	var req models.VoidPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	payment, err := h.Service.Void(r.Context(), access, id, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	cache.InvalidateReports(r.Context())
	utils.JSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, apperrors.Validation("invalid payment id"))
		return
	}
	var req models.RetryPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	payment, err := h.Service.Retry(r.Context(), access, id, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	cache.InvalidateReports(r.Context())
	utils.JSON(w, http.StatusCreated, payment)
}
