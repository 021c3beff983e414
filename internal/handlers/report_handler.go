package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/middleware"
	"coffee-backend/internal/models"
	"coffee-backend/internal/services"
	"coffee-backend/internal/timeutil"
	"coffee-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

// FarmerStatement streams one farmer's statement as PDF. ?archive=true also
// uploads it when archiving is configured.
func (h *ReportHandler) FarmerStatement(w http.ResponseWriter, r *http.Request) {
	farmerID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, apperrors.Validation("invalid farmer id"))
		return
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	data, err := h.Service.GetFarmerStatementData(r.Context(), access, farmerID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	pdfData, err := h.Service.GenerateFarmerStatementPDF(data)
	if err != nil {
		utils.Error(w, apperrors.Store(err, "failed to render statement"))
		return
	}

	filename := fmt.Sprintf("statement_%d_%s.pdf", farmerID, timeutil.FormatEAT(timeutil.Now(), timeutil.DateLayout))
	if r.URL.Query().Get("archive") == "true" {
		if _, err := h.Service.ArchiveReport(r.Context(), filename, "application/pdf", pdfData); err != nil {
			utils.Error(w, apperrors.Store(err, "failed to archive statement"))
			return
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(pdfData)
}

// BulkStatements streams a ZIP of every farmer statement in scope
func (h *ReportHandler) BulkStatements(w http.ResponseWriter, r *http.Request) {
	access, _ := middleware.GetAccessFromContext(r.Context())
	pdfs, err := h.Service.GenerateBulkStatementPDFs(r.Context(), access)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if len(pdfs) == 0 {
		utils.Error(w, apperrors.NotFound("no farmers in scope"))
		return
	}
	zipData, err := h.Service.CreateBulkPDFZip(pdfs)
	if err != nil {
		utils.Error(w, apperrors.Store(err, "failed to build zip"))
		return
	}

	filename := fmt.Sprintf("statements_%s.zip", timeutil.FormatEAT(timeutil.Now(), timeutil.DateLayout))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(zipData)
}

// PaymentsCSV exports the payment ledger in scope
func (h *ReportHandler) PaymentsCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PaymentFilter{Status: q.Get("status"), DeliveryType: q.Get("delivery_type")}
	if from, err := timeutil.ParseInEAT(timeutil.DateLayout, q.Get("from")); err == nil {
		filter.From = &from
	}
	if to, err := timeutil.ParseInEAT(timeutil.DateLayout, q.Get("to")); err == nil {
		end := timeutil.EndOfDay(to)
		filter.To = &end
	}

	access, _ := middleware.GetAccessFromContext(r.Context())
	csvData, err := h.Service.ExportPaymentsCSV(r.Context(), access, filter)
	if err != nil {
		utils.Error(w, err)
		return
	}

	filename := fmt.Sprintf("payments_%s.csv", timeutil.FormatEAT(timeutil.Now(), timeutil.DateLayout))
	if r.URL.Query().Get("archive") == "true" {
		if _, err := h.Service.ArchiveReport(r.Context(), filename, "text/csv", csvData); err != nil {
			utils.Error(w, apperrors.Store(err, "failed to archive export"))
			return
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(csvData)
}

// ListArchived lists report files already uploaded to object storage
func (h *ReportHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Service.Archive.List(r.Context())
	if err != nil {
		utils.Error(w, apperrors.Store(err, "failed to list archive"))
		return
	}
	if keys == nil {
		keys = []string{}
	}
	utils.JSON(w, http.StatusOK, map[string][]string{"reports": keys})
}
