package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"coffee-backend/internal/cache"
	"coffee-backend/internal/middleware"
	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
	"coffee-backend/internal/services"
	"coffee-backend/internal/timeutil"
	"coffee-backend/pkg/utils"
)

type AnalyticsHandler struct {
	Service *services.AnalyticsService
}

func NewAnalyticsHandler(s *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{Service: s}
}

// reportRangeFromQuery parses the optional from/to date bounds every
// analytics endpoint accepts. Unparsable values are ignored.
func reportRangeFromQuery(r *http.Request) models.ReportRange {
	q := r.URL.Query()
	var rng models.ReportRange
	if from, err := timeutil.ParseInEAT(timeutil.DateLayout, q.Get("from")); err == nil {
		rng.From = &from
	}
	if to, err := timeutil.ParseInEAT(timeutil.DateLayout, q.Get("to")); err == nil {
		end := timeutil.EndOfDay(to)
		rng.To = &end
	}
	return rng
}

// rangeKey makes the date bounds part of the cache key so a ranged report
// never shadows the unranged one
func rangeKey(rng models.ReportRange) string {
	if rng.From == nil && rng.To == nil {
		return ""
	}
	key := ":"
	if rng.From != nil {
		key += rng.From.Format(timeutil.DateLayout)
	}
	key += ":"
	if rng.To != nil {
		key += rng.To.Format(timeutil.DateLayout)
	}
	return key
}

// serveCached writes a cached report body if present, otherwise computes it
// and caches the rendered JSON. Cache keys are per caller region so a scoped
// agent never sees another region's numbers.
func serveCached(w http.ResponseWriter, r *http.Request, name string, access scope.Access, compute func() (interface{}, error)) {
	if body, ok := cache.GetCachedReport(r.Context(), name, access.Region); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
		return
	}

	report, err := compute()
	if err != nil {
		utils.Error(w, err)
		return
	}
	body, err := json.Marshal(report)
	if err != nil {
		utils.Error(w, err)
		return
	}
	cache.CacheReport(r.Context(), name, access.Region, body)
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	serveCached(w, r, "summary"+rangeKey(rng), access, func() (interface{}, error) {
		return h.Service.Summary(r.Context(), access, rng)
	})
}

func (h *AnalyticsHandler) Payments(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	serveCached(w, r, "payments"+rangeKey(rng), access, func() (interface{}, error) {
		return h.Service.PaymentAnalytics(r.Context(), access, rng)
	})
}

// Cashflow takes an optional days parameter for the forecast horizon.
func (h *AnalyticsHandler) Cashflow(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	name := "cashflow:" + strconv.Itoa(days) + rangeKey(rng)
	serveCached(w, r, name, access, func() (interface{}, error) {
		return h.Service.CashflowForecast(r.Context(), access, rng, days)
	})
}

// Scorecards takes sort=value|reliability|volume and an optional limit.
// Sorted variants are cached under distinct report names.
func (h *AnalyticsHandler) Scorecards(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	sortKey := r.URL.Query().Get("sort")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	name := "scorecards:" + sortKey + ":" + strconv.Itoa(limit) + rangeKey(rng)
	serveCached(w, r, name, access, func() (interface{}, error) {
		return h.Service.FarmerScorecards(r.Context(), access, rng, sortKey, limit)
	})
}

func (h *AnalyticsHandler) Comparative(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	serveCached(w, r, "comparative"+rangeKey(rng), access, func() (interface{}, error) {
		return h.Service.Comparative(r.Context(), access, rng)
	})
}

func (h *AnalyticsHandler) DeliveryTypes(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	serveCached(w, r, "delivery_types"+rangeKey(rng), access, func() (interface{}, error) {
		return h.Service.DeliveryTypeAnalytics(r.Context(), access, rng)
	})
}

func (h *AnalyticsHandler) Regions(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	serveCached(w, r, "regions"+rangeKey(rng), access, func() (interface{}, error) {
		return h.Service.RegionProfitability(r.Context(), access, rng)
	})
}

func (h *AnalyticsHandler) Operational(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	serveCached(w, r, "operational"+rangeKey(rng), access, func() (interface{}, error) {
		return h.Service.OperationalMetrics(r.Context(), access, rng)
	})
}

func (h *AnalyticsHandler) Seasons(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	serveCached(w, r, "seasons"+rangeKey(rng), access, func() (interface{}, error) {
		return h.Service.SeasonSummaries(r.Context(), access, rng)
	})
}

func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	rng := reportRangeFromQuery(r)
	serveCached(w, r, "dashboard"+rangeKey(rng), access, func() (interface{}, error) {
		return h.Service.Dashboard(r.Context(), access, rng)
	})
}
