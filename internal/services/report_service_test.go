package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
)

func newReportFixture() (*ReportService, *testLedger) {
	l := newTestLedger()
	return NewReportService(&fakeFarmerStore{l: l}, &fakeDeliveryStore{l: l}, &fakePaymentStore{l: l}, nil, testConfig()), l
}

func TestGetFarmerStatementData(t *testing.T) {
	svc, l := newReportFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	paid := l.addPayment(models.Payment{FarmerID: farmer.ID, Status: models.PaymentStatusCompleted, AmountPaid: 5000, Date: time.Now()})
	l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 100, Date: time.Now(), PaymentID: &paid.ID})
	l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 40, Date: time.Now()})
	l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeParchment, KgsDelivered: 10, Date: time.Now()})

	data, err := svc.GetFarmerStatementData(ctx, admin, farmer.ID)
	require.NoError(t, err)

	assert.Equal(t, 150.0, data.TotalKgs)
	assert.Equal(t, 50.0, data.UnpaidKgs)
	assert.Equal(t, 5000.0, data.TotalPaid)
	// 40 kgs cherry at 50 plus 10 kgs parchment at 80
	assert.Equal(t, 40*50.0+10*80.0, data.EstimatedOwed)
	assert.Len(t, data.Unpaid, 2)
}

func TestStatementDegradesAndLogsOnStoreFailure(t *testing.T) {
	l := newTestLedger()
	broken := &fakeDeliveryStore{l: l, err: errors.New("connection refused")}
	svc := NewReportService(&fakeFarmerStore{l: l}, broken, &fakePaymentStore{l: l}, nil, testConfig())
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	l.addPayment(models.Payment{FarmerID: farmer.ID, Status: models.PaymentStatusCompleted, AmountPaid: 5000, Date: time.Now()})

	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	data, err := svc.GetFarmerStatementData(context.Background(), admin, farmer.ID)
	require.NoError(t, err)

	// Delivery sections come back empty, payments still render
	assert.Equal(t, 0.0, data.TotalKgs)
	assert.Empty(t, data.Unpaid)
	assert.Equal(t, 5000.0, data.TotalPaid)
	assert.Contains(t, logged.String(), "listing deliveries failed")
	assert.Contains(t, logged.String(), "connection refused")
}

func TestGenerateFarmerStatementPDF(t *testing.T) {
	svc, l := newReportFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", Phone: "0712345678", WeighStation: "Nyeri"})
	l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 100, Date: time.Now()})

	data, err := svc.GetFarmerStatementData(ctx, admin, farmer.ID)
	require.NoError(t, err)

	pdf, err := svc.GenerateFarmerStatementPDF(data)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestBulkStatementsAndZip(t *testing.T) {
	svc, l := newReportFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	l.addFarmer(models.Farmer{Name: "Njoroge", WeighStation: "Embu"})

	pdfs, err := svc.GenerateBulkStatementPDFs(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pdfs, 2)

	zipped, err := svc.CreateBulkPDFZip(pdfs)
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(zipped), int64(len(zipped)))
	require.NoError(t, err)
	assert.Len(t, reader.File, 2)
}

func TestExportPaymentsCSV(t *testing.T) {
	svc, l := newReportFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	l.addPayment(models.Payment{FarmerID: farmer.ID, FarmerName: "Wanjiku", DeliveryType: models.DeliveryTypeCherry,
		KgsDelivered: 150, PricePerKg: 50, AmountPaid: 7500, Currency: "KES",
		Status: models.PaymentStatusCompleted, Date: time.Now()})

	out, err := svc.ExportPaymentsCSV(ctx, admin, models.PaymentFilter{})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, "Wanjiku", records[1][1])
	assert.Equal(t, "7500.00", records[1][5])
	assert.Equal(t, "Completed", records[1][7])
}

func TestArchiveReportWithNilUploader(t *testing.T) {
	svc, _ := newReportFixture()
	key, err := svc.ArchiveReport(context.Background(), "payments.csv", "text/csv", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, key)
}
