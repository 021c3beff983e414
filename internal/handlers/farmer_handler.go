package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/middleware"
	"coffee-backend/internal/models"
	"coffee-backend/internal/services"
	"coffee-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type FarmerHandler struct {
	Service *services.FarmerService
}

func NewFarmerHandler(s *services.FarmerService) *FarmerHandler {
	return &FarmerHandler{Service: s}
}

func (h *FarmerHandler) CreateFarmer(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFarmerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	farmer, err := h.Service.Create(r.Context(), access, req, access.UserID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, farmer)
}

func (h *FarmerHandler) GetFarmer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, apperrors.Validation("invalid farmer id"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	farmer, err := h.Service.Get(r.Context(), access, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, farmer)
}

func (h *FarmerHandler) ListFarmers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.FarmerFilter{
		WeighStation: q.Get("weigh_station"),
		Season:       q.Get("season"),
		Search:       q.Get("search"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	farmers, err := h.Service.List(r.Context(), access, filter)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if farmers == nil {
		farmers = []*models.Farmer{}
	}
	utils.JSON(w, http.StatusOK, farmers)
}

func (h *FarmerHandler) UpdateFarmer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, apperrors.Validation("invalid farmer id"))
		return
	}
	var req models.UpdateFarmerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	farmer, err := h.Service.Update(r.Context(), access, id, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, farmer)
}
