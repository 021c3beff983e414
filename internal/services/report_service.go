package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"sync"

	"coffee-backend/internal/archive"
	"coffee-backend/internal/config"
	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
	"coffee-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// FarmerStatementData holds everything that goes on one farmer's statement
type FarmerStatementData struct {
	Farmer      *models.Farmer
	Deliveries  []*models.Delivery
	Unpaid      []*models.UnpaidDelivery
	Payments    []*models.Payment
	TotalKgs    float64
	UnpaidKgs   float64
	TotalPaid   float64
	EstimatedOwed float64
}

// ReportService renders farmer statements as PDF and payment exports as CSV.
// The archive uploader is optional; nil means generated files are only
// returned to the caller.
type ReportService struct {
	Farmers    FarmerStore
	Deliveries DeliveryStore
	Payments   PaymentStore
	Archive    *archive.Uploader
	cfg        *config.Config
}

func NewReportService(farmers FarmerStore, deliveries DeliveryStore, payments PaymentStore, uploader *archive.Uploader, cfg *config.Config) *ReportService {
	return &ReportService{Farmers: farmers, Deliveries: deliveries, Payments: payments, Archive: uploader, cfg: cfg}
}

func (s *ReportService) fallbackPrice(deliveryType string) float64 {
	return configFallbackPrice(s.cfg, deliveryType)
}

// GetFarmerStatementData fetches all data for one farmer's statement
func (s *ReportService) GetFarmerStatementData(ctx context.Context, access scope.Access, farmerID int) (*FarmerStatementData, error) {
	farmer, err := s.Farmers.Get(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	deliveries, err := s.Deliveries.List(ctx, access.FilterDeliveries(models.DeliveryFilter{FarmerID: farmerID}))
	if err != nil {
		log.Printf("[Reports] Statement for farmer %d: listing deliveries failed: %v", farmerID, err)
		deliveries = []*models.Delivery{}
	}
	unpaid, err := s.Deliveries.ListUnpaid(ctx, access.FilterDeliveries(models.DeliveryFilter{FarmerID: farmerID}))
	if err != nil {
		log.Printf("[Reports] Statement for farmer %d: listing unpaid deliveries failed: %v", farmerID, err)
		unpaid = []*models.UnpaidDelivery{}
	}
	payments, err := s.Payments.List(ctx, access.FilterPayments(models.PaymentFilter{FarmerID: farmerID}))
	if err != nil {
		log.Printf("[Reports] Statement for farmer %d: listing payments failed: %v", farmerID, err)
		payments = []*models.Payment{}
	}

	data := &FarmerStatementData{
		Farmer:     farmer,
		Deliveries: deliveries,
		Unpaid:     unpaid,
		Payments:   payments,
	}
	for _, d := range deliveries {
		data.TotalKgs += d.KgsDelivered
	}
	for _, u := range unpaid {
		data.UnpaidKgs += u.KgsDelivered
		// Estimate at the configured fallback price; actual payout price is
		// fixed only when the payment is created
		data.EstimatedOwed += u.KgsDelivered * s.fallbackPrice(u.DeliveryType)
	}
	for _, p := range payments {
		if p.Status == models.PaymentStatusCompleted {
			data.TotalPaid += p.AmountPaid
		}
	}
	return data, nil
}

// GenerateFarmerStatementPDF renders one farmer's statement
func (s *ReportService) GenerateFarmerStatementPDF(data *FarmerStatementData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Coffee Deliveries - Farmer Statement", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.FormatEAT(timeutil.Now(), timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Farmer Info Box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Farmer Information", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Name: %s", data.Farmer.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Phone: %s", data.Farmer.Phone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Weigh Station: %s", data.Farmer.WeighStation), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Season: %s", data.Farmer.Season), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Unpaid deliveries table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Unpaid Deliveries", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(35, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Type", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Kgs", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Region", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Driver", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, u := range data.Unpaid {
		pdf.CellFormat(35, 6, timeutil.FormatEAT(u.Date, timeutil.DateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, u.DeliveryType, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.1f", u.KgsDelivered), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, u.Region, "1", 0, "C", false, 0, "")
		driver := u.Driver
		if len(driver) > 18 {
			driver = driver[:15] + "..."
		}
		pdf.CellFormat(40, 6, driver, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	// Totals
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Total Delivered: %.1f kg", data.TotalKgs), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Unpaid: %.1f kg", data.UnpaidKgs), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, fmt.Sprintf("Total Paid: %s %.2f", models.DefaultCurrency, data.TotalPaid), "1", 1, "C", false, 0, "")

	if data.UnpaidKgs > 0 {
		pdf.SetFillColor(255, 200, 200)
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(190, 10, fmt.Sprintf("Estimated Owed: %s %.2f", models.DefaultCurrency, data.EstimatedOwed), "1", 1, "C", true, 0, "")
	} else {
		pdf.SetFillColor(200, 255, 200)
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(190, 10, "NOTHING OUTSTANDING", "1", 1, "C", true, 0, "")
	}

	// Payment history
	if len(data.Payments) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(190, 8, "Payment History", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(35, 7, "Date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Type", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 7, "Kgs", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 7, "Price/Kg", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Amount", "1", 0, "C", true, 0, "")
		pdf.CellFormat(25, 7, "Status", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, p := range data.Payments {
			pdf.CellFormat(35, 6, timeutil.FormatEAT(p.Date, timeutil.DateLayout), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, p.DeliveryType, "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", p.KgsDelivered), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", p.PricePerKg), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", p.AmountPaid), "1", 0, "R", false, 0, "")
			pdf.CellFormat(25, 6, p.Status, "1", 1, "C", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateBulkStatementPDFs renders statements for every farmer in scope in
// parallel. Farmers whose statement fails are skipped rather than failing
// the batch.
func (s *ReportService) GenerateBulkStatementPDFs(ctx context.Context, access scope.Access) (map[string][]byte, error) {
	farmers, err := s.Farmers.List(ctx, access.FilterFarmers(models.FarmerFilter{}))
	if err != nil {
		return nil, err
	}

	type pdfResult struct {
		name string
		data []byte
		err  error
	}

	jobs := make(chan *models.Farmer, len(farmers))
	results := make(chan pdfResult, len(farmers))

	var wg sync.WaitGroup
	numWorkers := 5
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				data, err := s.GetFarmerStatementData(ctx, access, f.ID)
				if err != nil {
					results <- pdfResult{err: err}
					continue
				}
				pdfData, err := s.GenerateFarmerStatementPDF(data)
				results <- pdfResult{
					name: fmt.Sprintf("%d_%s", f.ID, f.Name),
					data: pdfData,
					err:  err,
				}
			}
		}()
	}

	for _, f := range farmers {
		jobs <- f
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	pdfs := make(map[string][]byte)
	for r := range results {
		if r.err == nil && r.data != nil {
			pdfs[r.name] = r.data
		}
	}
	return pdfs, nil
}

// CreateBulkPDFZip packs the statements into one ZIP
func (s *ReportService) CreateBulkPDFZip(pdfs map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for name, pdfData := range pdfs {
		fw, err := zw.Create(fmt.Sprintf("statement_%s.pdf", name))
		if err != nil {
			continue
		}
		fw.Write(pdfData)
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportPaymentsCSV renders the payment ledger in scope as CSV
func (s *ReportService) ExportPaymentsCSV(ctx context.Context, access scope.Access, filter models.PaymentFilter) ([]byte, error) {
	payments, err := s.Payments.List(ctx, access.FilterPayments(filter))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"id", "farmer", "delivery_type", "kgs", "price_per_kg", "amount", "currency", "status", "date", "void_reason"})
	for _, p := range payments {
		w.Write([]string{
			strconv.Itoa(p.ID),
			p.FarmerName,
			p.DeliveryType,
			strconv.FormatFloat(p.KgsDelivered, 'f', 1, 64),
			strconv.FormatFloat(p.PricePerKg, 'f', 2, 64),
			strconv.FormatFloat(p.AmountPaid, 'f', 2, 64),
			p.Currency,
			p.Status,
			timeutil.FormatEAT(p.Date, timeutil.DateLayout),
			p.VoidReason,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ArchiveReport uploads a generated report when archiving is configured.
// Returns the object key, or empty string when archiving is off.
func (s *ReportService) ArchiveReport(ctx context.Context, name, contentType string, data []byte) (string, error) {
	return s.Archive.Upload(ctx, name, contentType, data)
}
