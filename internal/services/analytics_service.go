package services

import (
	"context"
	"log"
	"sort"
	"time"

	"coffee-backend/internal/config"
	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
	"coffee-backend/internal/timeutil"
)

// AnalyticsService derives every report from the delivery and payment
// ledgers at call time. Reports are read-only and deterministic: the same
// ledgers and clock always produce the same output, with explicit sort
// tiebreaks wherever map iteration could leak in.
type AnalyticsService struct {
	Farmers    FarmerStore
	Deliveries DeliveryStore
	Payments   PaymentStore
	cfg        *config.Config

	// now is swappable so tests can pin the clock
	now func() time.Time
}

func NewAnalyticsService(farmers FarmerStore, deliveries DeliveryStore, payments PaymentStore, cfg *config.Config) *AnalyticsService {
	return &AnalyticsService{
		Farmers:    farmers,
		Deliveries: deliveries,
		Payments:   payments,
		cfg:        cfg,
		now:        timeutil.Now,
	}
}

// ledger is a scope-filtered snapshot of the data every report reads
type ledger struct {
	farmers    []*models.Farmer
	deliveries []*models.Delivery
	payments   []*models.Payment

	farmerByID map[int]*models.Farmer
}

func (s *AnalyticsService) load(ctx context.Context, access scope.Access, rng models.ReportRange) (*ledger, error) {
	farmers, err := s.Farmers.List(ctx, access.FilterFarmers(models.FarmerFilter{}))
	if err != nil {
		return nil, err
	}
	deliveries, err := s.Deliveries.List(ctx, access.FilterDeliveries(models.DeliveryFilter{From: rng.From, To: rng.To}))
	if err != nil {
		return nil, err
	}
	payments, err := s.Payments.List(ctx, access.FilterPayments(models.PaymentFilter{From: rng.From, To: rng.To}))
	if err != nil {
		return nil, err
	}
	l := &ledger{farmers: farmers, deliveries: deliveries, payments: payments,
		farmerByID: make(map[int]*models.Farmer, len(farmers))}
	for _, f := range farmers {
		l.farmerByID[f.ID] = f
	}
	return l, nil
}

// Summary returns the headline dashboard counts.
func (s *AnalyticsService) Summary(ctx context.Context, access scope.Access, rng models.ReportRange) (*models.SummaryReport, error) {
	l, err := s.load(ctx, access, rng)
	if err != nil {
		return nil, err
	}
	return s.summaryFrom(l), nil
}

func (s *AnalyticsService) summaryFrom(l *ledger) *models.SummaryReport {
	pending := 0
	for _, p := range l.payments {
		if p.Status == models.PaymentStatusPending {
			pending++
		}
	}
	return &models.SummaryReport{
		TotalFarmers:    len(l.farmers),
		TotalDeliveries: len(l.deliveries),
		PendingPayments: pending,
	}
}

// PaymentAnalytics reports status totals, void breakdown, success rate,
// velocity and the pending-payment aging bands.
func (s *AnalyticsService) PaymentAnalytics(ctx context.Context, access scope.Access, rng models.ReportRange) (*models.PaymentAnalytics, error) {
	l, err := s.load(ctx, access, rng)
	if err != nil {
		return nil, err
	}
	return s.paymentAnalyticsFrom(l), nil
}

func (s *AnalyticsService) paymentAnalyticsFrom(l *ledger) *models.PaymentAnalytics {
	now := s.now()
	report := &models.PaymentAnalytics{}

	byStatus := map[string]*models.StatusBreakdown{}
	byReason := map[string]*models.VoidedByReason{}
	var firstDate, lastDate time.Time
	completed := 0

	for _, p := range l.payments {
		b, ok := byStatus[p.Status]
		if !ok {
			b = &models.StatusBreakdown{Status: p.Status}
			byStatus[p.Status] = b
		}
		b.Count++
		b.TotalAmount += p.AmountPaid

		if p.Status == models.PaymentStatusCompleted {
			completed++
		}
		if p.VoidedAt != nil {
			report.VoidedCount++
			report.VoidedAmount += p.AmountPaid
			reason := p.VoidReason
			if reason == "" {
				reason = "unspecified"
			}
			r, ok := byReason[reason]
			if !ok {
				r = &models.VoidedByReason{Reason: reason}
				byReason[reason] = r
			}
			r.Count++
			r.TotalAmount += p.AmountPaid
		}
		if p.Status == models.PaymentStatusPending {
			days := int(now.Sub(p.Date).Hours() / 24)
			switch {
			case days <= 30:
				report.Aging.Days0To30.Count++
				report.Aging.Days0To30.TotalAmount += p.AmountPaid
			case days <= 60:
				report.Aging.Days31To60.Count++
				report.Aging.Days31To60.TotalAmount += p.AmountPaid
			default:
				report.Aging.Over60Days.Count++
				report.Aging.Over60Days.TotalAmount += p.AmountPaid
			}
		}
		if firstDate.IsZero() || p.Date.Before(firstDate) {
			firstDate = p.Date
		}
		if p.Date.After(lastDate) {
			lastDate = p.Date
		}
	}

	for _, b := range byStatus {
		report.StatusBreakdown = append(report.StatusBreakdown, *b)
	}
	sort.Slice(report.StatusBreakdown, func(i, j int) bool {
		return report.StatusBreakdown[i].Status < report.StatusBreakdown[j].Status
	})
	for _, r := range byReason {
		report.VoidedByReason = append(report.VoidedByReason, *r)
	}
	sort.Slice(report.VoidedByReason, func(i, j int) bool {
		return report.VoidedByReason[i].Reason < report.VoidedByReason[j].Reason
	})

	if len(l.payments) > 0 {
		report.SuccessRate = float64(completed) / float64(len(l.payments)) * 100
		spanDays := lastDate.Sub(firstDate).Hours() / 24
		if spanDays < 1 {
			spanDays = 1
		}
		report.PaymentVelocity = float64(len(l.payments)) / spanDays
	}
	return report
}

// defaultForecastDays is the projection horizon when none is requested
const defaultForecastDays = 30

// CashflowForecast projects daily payouts for the requested number of days
// from the trailing 90 days of Completed payments.
func (s *AnalyticsService) CashflowForecast(ctx context.Context, access scope.Access, rng models.ReportRange, days int) (*models.CashflowForecast, error) {
	l, err := s.load(ctx, access, rng)
	if err != nil {
		return nil, err
	}
	return s.cashflowFrom(l, days), nil
}

func (s *AnalyticsService) cashflowFrom(l *ledger, days int) *models.CashflowForecast {
	now := s.now()
	cutoff := now.AddDate(0, 0, -90)
	if days <= 0 {
		days = defaultForecastDays
	}

	var trailing float64
	paidKgs := map[string]float64{}
	paidAmount := map[string]float64{}
	completedByID := make(map[int]bool, len(l.payments))
	for _, p := range l.payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		completedByID[p.ID] = true
		paidKgs[p.DeliveryType] += p.KgsDelivered
		paidAmount[p.DeliveryType] += p.AmountPaid
		if p.Date.After(cutoff) {
			trailing += p.AmountPaid
		}
	}

	// Money owed for work not yet settled: every unpaid delivery priced at
	// the type's realized average, or the configured price with no history
	var pending float64
	for _, d := range l.deliveries {
		if d.PaymentID != nil && completedByID[*d.PaymentID] {
			continue
		}
		price := configFallbackPrice(s.cfg, d.DeliveryType)
		if paidKgs[d.DeliveryType] > 0 {
			price = paidAmount[d.DeliveryType] / paidKgs[d.DeliveryType]
		}
		pending += d.KgsDelivered * price
	}

	forecast := &models.CashflowForecast{
		HistoricalDailyAverage: trailing / 90,
		PendingObligation:      pending,
	}
	start := timeutil.StartOfDay(now)
	var cumulative float64
	for i := 1; i <= days; i++ {
		cumulative += forecast.HistoricalDailyAverage
		forecast.Days = append(forecast.Days, models.ForecastDay{
			Day:              i,
			Date:             start.AddDate(0, 0, i),
			ExpectedPayout:   forecast.HistoricalDailyAverage,
			CumulativePayout: cumulative,
		})
	}
	return forecast
}

// inactivityDays is how long without a delivery before a farmer counts as inactive
const inactivityDays = 30

// FarmerScorecards ranks farmers by the requested sort key. Ties break on
// farmer id ascending so pagination stays stable.
func (s *AnalyticsService) FarmerScorecards(ctx context.Context, access scope.Access, rng models.ReportRange, sortKey string, limit int) ([]*models.FarmerScorecard, error) {
	l, err := s.load(ctx, access, rng)
	if err != nil {
		return nil, err
	}
	cards := s.scorecardsFrom(l)

	switch sortKey {
	case models.ScorecardSortReliability:
		sort.Slice(cards, func(i, j int) bool {
			if cards[i].ReliabilityScore != cards[j].ReliabilityScore {
				return cards[i].ReliabilityScore > cards[j].ReliabilityScore
			}
			return cards[i].FarmerID < cards[j].FarmerID
		})
	case models.ScorecardSortVolume:
		sort.Slice(cards, func(i, j int) bool {
			if cards[i].TotalKgs != cards[j].TotalKgs {
				return cards[i].TotalKgs > cards[j].TotalKgs
			}
			return cards[i].FarmerID < cards[j].FarmerID
		})
	default: // value
		sort.Slice(cards, func(i, j int) bool {
			if cards[i].TotalPaid != cards[j].TotalPaid {
				return cards[i].TotalPaid > cards[j].TotalPaid
			}
			return cards[i].FarmerID < cards[j].FarmerID
		})
	}
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

func (s *AnalyticsService) scorecardsFrom(l *ledger) []*models.FarmerScorecard {
	now := s.now()
	vipThreshold := 0.0
	if s.cfg != nil {
		vipThreshold = s.cfg.Payments.VIPThreshold
	}

	cards := make(map[int]*models.FarmerScorecard, len(l.farmers))
	for _, f := range l.farmers {
		cards[f.ID] = &models.FarmerScorecard{
			FarmerID:     f.ID,
			Name:         f.Name,
			WeighStation: f.WeighStation,
		}
	}
	for _, d := range l.deliveries {
		c, ok := cards[d.FarmerID]
		if !ok {
			continue
		}
		c.TotalDeliveries++
		c.TotalKgs += d.KgsDelivered
		date := d.Date
		if c.FirstDeliveryDate == nil || date.Before(*c.FirstDeliveryDate) {
			first := date
			c.FirstDeliveryDate = &first
		}
		if c.LastDeliveryDate == nil || date.After(*c.LastDeliveryDate) {
			last := date
			c.LastDeliveryDate = &last
		}
	}
	for _, p := range l.payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		c, ok := cards[p.FarmerID]
		if !ok {
			continue
		}
		c.TotalPaid += p.AmountPaid
		c.PaymentCount++
	}

	out := make([]*models.FarmerScorecard, 0, len(cards))
	for _, c := range cards {
		if c.TotalDeliveries > 0 {
			c.AvgKgsPerDelivery = c.TotalKgs / float64(c.TotalDeliveries)
		}
		if c.PaymentCount > 0 {
			c.AvgPayment = c.TotalPaid / float64(c.PaymentCount)
		}
		if c.LastDeliveryDate != nil {
			c.DaysSinceLastDelivery = int(now.Sub(*c.LastDeliveryDate).Hours() / 24)
		}
		if c.FirstDeliveryDate != nil {
			daysSinceFirst := now.Sub(*c.FirstDeliveryDate).Hours() / 24
			months := daysSinceFirst/30 + 1
			c.ReliabilityScore = float64(c.TotalDeliveries) / months * 10
		}
		if c.LastDeliveryDate != nil && c.DaysSinceLastDelivery <= inactivityDays {
			c.Status = "active"
		} else {
			c.Status = "inactive"
		}
		c.VIP = vipThreshold > 0 && c.TotalPaid > vipThreshold
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FarmerID < out[j].FarmerID })
	return out
}

// Comparative reports month-over-month and year-over-year growth. Growth
// against an empty previous period is reported as zero, not infinity.
func (s *AnalyticsService) Comparative(ctx context.Context, access scope.Access, rng models.ReportRange) (*models.ComparativeReport, error) {
	l, err := s.load(ctx, access, rng)
	if err != nil {
		return nil, err
	}
	now := s.now()

	monthStart := timeutil.StartOfMonth(now)
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	yearStart := timeutil.StartOfYear(now)
	prevYearStart := yearStart.AddDate(-1, 0, 0)

	report := &models.ComparativeReport{
		MonthOverMonth: s.comparePeriods(l, "month", monthStart, now, prevMonthStart, monthStart),
		YearOverYear:   s.comparePeriods(l, "year", yearStart, now, prevYearStart, yearStart),
	}
	return report, nil
}

func (s *AnalyticsService) comparePeriods(l *ledger, period string, curFrom, curTo, prevFrom, prevTo time.Time) models.PeriodComparison {
	c := models.PeriodComparison{Period: period}
	in := func(t, from, to time.Time) bool {
		return !t.Before(from) && t.Before(to)
	}
	for _, d := range l.deliveries {
		if in(d.Date, curFrom, curTo) {
			c.CurrentKgs += d.KgsDelivered
			c.CurrentDeliveries++
		} else if in(d.Date, prevFrom, prevTo) {
			c.PreviousKgs += d.KgsDelivered
			c.PreviousDeliveries++
		}
	}
	for _, p := range l.payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		if in(p.Date, curFrom, curTo) {
			c.CurrentPaidAmount += p.AmountPaid
			c.CurrentPaidCount++
		} else if in(p.Date, prevFrom, prevTo) {
			c.PreviousPaidAmount += p.AmountPaid
			c.PreviousPaidCount++
		}
	}
	c.KgsGrowth = growthPct(c.CurrentKgs, c.PreviousKgs)
	c.DeliveriesGrowth = growthPct(float64(c.CurrentDeliveries), float64(c.PreviousDeliveries))
	c.PaidAmountGrowth = growthPct(c.CurrentPaidAmount, c.PreviousPaidAmount)
	c.PaidCountGrowth = growthPct(float64(c.CurrentPaidCount), float64(c.PreviousPaidCount))
	return c
}

func growthPct(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// DeliveryTypeAnalytics breaks volumes down by delivery type, with the
// season matrix keyed on the farmer's registered season.
func (s *AnalyticsService) DeliveryTypeAnalytics(ctx context.Context, access scope.Access, rng models.ReportRange) (*models.DeliveryTypeAnalytics, error) {
	l, err := s.load(ctx, access, rng)
	if err != nil {
		return nil, err
	}

	byType := map[string]*models.DeliveryTypeStats{}
	type seasonKey struct{ season, dtype string }
	bySeason := map[seasonKey]*models.SeasonTypeBreakdown{}

	for _, d := range l.deliveries {
		t, ok := byType[d.DeliveryType]
		if !ok {
			t = &models.DeliveryTypeStats{DeliveryType: d.DeliveryType}
			byType[d.DeliveryType] = t
		}
		t.DeliveryCount++
		t.TotalKgs += d.KgsDelivered

		season := "unknown"
		if f, ok := l.farmerByID[d.FarmerID]; ok && f.Season != "" {
			season = f.Season
		}
		k := seasonKey{season, d.DeliveryType}
		sb, ok := bySeason[k]
		if !ok {
			sb = &models.SeasonTypeBreakdown{Season: season, DeliveryType: d.DeliveryType}
			bySeason[k] = sb
		}
		sb.DeliveryCount++
		sb.TotalKgs += d.KgsDelivered
	}

	// Average realized price comes from the payment ledger, not deliveries
	paidKgs := map[string]float64{}
	paidAmount := map[string]float64{}
	for _, p := range l.payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		paidKgs[p.DeliveryType] += p.KgsDelivered
		paidAmount[p.DeliveryType] += p.AmountPaid
	}

	report := &models.DeliveryTypeAnalytics{}
	for _, t := range byType {
		if t.DeliveryCount > 0 {
			t.AvgKgs = t.TotalKgs / float64(t.DeliveryCount)
		}
		if paidKgs[t.DeliveryType] > 0 {
			t.AvgPricePerKg = paidAmount[t.DeliveryType] / paidKgs[t.DeliveryType]
		}
		report.Types = append(report.Types, *t)
	}
	sort.Slice(report.Types, func(i, j int) bool {
		return report.Types[i].DeliveryType < report.Types[j].DeliveryType
	})
	for _, sb := range bySeason {
		report.BySeason = append(report.BySeason, *sb)
	}
	sort.Slice(report.BySeason, func(i, j int) bool {
		if report.BySeason[i].Season != report.BySeason[j].Season {
			return report.BySeason[i].Season < report.BySeason[j].Season
		}
		return report.BySeason[i].DeliveryType < report.BySeason[j].DeliveryType
	})
	return report, nil
}

// RegionProfitability aggregates payouts and volumes per weigh station.
func (s *AnalyticsService) RegionProfitability(ctx context.Context, access scope.Access, rng models.ReportRange) ([]*models.RegionProfitability, error) {
	l, err := s.load(ctx, access, rng)
	if err != nil {
		return nil, err
	}
	now := s.now()
	recentCutoff := now.AddDate(0, 0, -30)

	regions := map[string]*models.RegionProfitability{}
	get := func(region string) *models.RegionProfitability {
		if region == "" {
			region = "unknown"
		}
		r, ok := regions[region]
		if !ok {
			r = &models.RegionProfitability{Region: region}
			regions[region] = r
		}
		return r
	}

	// Everything comes from Completed payments, grouped by the farmer's
	// weigh station. Unpaid delivery volume never dilutes the price.
	farmersSeen := map[string]map[int]bool{}
	for _, p := range l.payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		region := ""
		if f, ok := l.farmerByID[p.FarmerID]; ok {
			region = f.WeighStation
		}
		r := get(region)
		r.TotalPaid += p.AmountPaid
		r.TotalKgs += p.KgsDelivered
		r.PaymentCount++
		if farmersSeen[r.Region] == nil {
			farmersSeen[r.Region] = map[int]bool{}
		}
		farmersSeen[r.Region][p.FarmerID] = true
		if p.Date.After(recentCutoff) {
			r.Recent30DayPaid += p.AmountPaid
		}
	}

	out := make([]*models.RegionProfitability, 0, len(regions))
	for _, r := range regions {
		r.FarmerCount = len(farmersSeen[r.Region])
		if r.TotalKgs > 0 {
			r.AvgPricePerKg = r.TotalPaid / r.TotalKgs
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out, nil
}

// topDriverCount caps the driver ranking length
const topDriverCount = 5

// OperationalMetrics reports process health: payment cycle time, transaction
// size and recent throughput.
func (s *AnalyticsService) OperationalMetrics(ctx context.Context, access scope.Access, rng models.ReportRange) (*models.OperationalMetrics, error) {
	l, err := s.load(ctx, access, rng)
	if err != nil {
		return nil, err
	}
	return s.operationalFrom(l), nil
}

func (s *AnalyticsService) operationalFrom(l *ledger) *models.OperationalMetrics {
	now := s.now()
	recentCutoff := now.AddDate(0, 0, -30)
	report := &models.OperationalMetrics{}

	deliveryDate := make(map[int]time.Time, len(l.deliveries))
	drivers := map[string]*models.DriverThroughput{}
	for _, d := range l.deliveries {
		deliveryDate[d.ID] = d.Date
		if d.Date.After(recentCutoff) {
			report.Deliveries30Days++
		}
		if d.Driver == "" {
			continue
		}
		t, ok := drivers[d.Driver]
		if !ok {
			t = &models.DriverThroughput{Driver: d.Driver}
			drivers[d.Driver] = t
		}
		t.DeliveryCount++
		t.TotalKgs += d.KgsDelivered
	}

	var cycleSum float64
	var cycleCount, completed int
	var amountSum float64
	for _, p := range l.payments {
		if p.Date.After(recentCutoff) {
			report.Payments30Days++
		}
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		completed++
		amountSum += p.AmountPaid
		// Cycle time runs from the oldest settled delivery to the payout
		var earliest time.Time
		for _, id := range p.DeliveryIDs {
			if d, ok := deliveryDate[id]; ok && (earliest.IsZero() || d.Before(earliest)) {
				earliest = d
			}
		}
		if !earliest.IsZero() {
			if span := p.Date.Sub(earliest).Hours() / 24; span >= 0 {
				cycleSum += span
				cycleCount++
			}
		}
	}
	if cycleCount > 0 {
		report.AvgPaymentCycleDays = cycleSum / float64(cycleCount)
	}
	if completed > 0 {
		report.AvgTransactionSize = amountSum / float64(completed)
	}

	top := make([]models.DriverThroughput, 0, len(drivers))
	for _, t := range drivers {
		top = append(top, *t)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalKgs != top[j].TotalKgs {
			return top[i].TotalKgs > top[j].TotalKgs
		}
		return top[i].Driver < top[j].Driver
	})
	if len(top) > topDriverCount {
		top = top[:topDriverCount]
	}
	report.TopDrivers = top
	return report
}

// SeasonSummaries rolls deliveries and payouts up by the farmer's season.
func (s *AnalyticsService) SeasonSummaries(ctx context.Context, access scope.Access, rng models.ReportRange) ([]*models.SeasonSummary, error) {
	l, err := s.load(ctx, access, rng)
	if err != nil {
		return nil, err
	}

	seasons := map[string]*models.SeasonSummary{}
	get := func(farmerID int) *models.SeasonSummary {
		season := "unknown"
		if f, ok := l.farmerByID[farmerID]; ok && f.Season != "" {
			season = f.Season
		}
		sum, ok := seasons[season]
		if !ok {
			sum = &models.SeasonSummary{Season: season}
			seasons[season] = sum
		}
		return sum
	}
	for _, d := range l.deliveries {
		sum := get(d.FarmerID)
		sum.DeliveryCount++
		sum.TotalKgs += d.KgsDelivered
	}
	for _, p := range l.payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		get(p.FarmerID).TotalPaid += p.AmountPaid
	}

	out := make([]*models.SeasonSummary, 0, len(seasons))
	for _, sum := range seasons {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out, nil
}

// Dashboard is the best-effort composite. Each section is computed
// independently; a failing section is zeroed and named in Degraded instead
// of sinking the whole response.
func (s *AnalyticsService) Dashboard(ctx context.Context, access scope.Access, rng models.ReportRange) (*models.DashboardReport, error) {
	report := &models.DashboardReport{}

	l, err := s.load(ctx, access, rng)
	if err != nil {
		// Nothing can be computed without the ledgers
		return nil, err
	}

	run := func(name string, fn func()) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Analytics] %s section panicked: %v", name, r)
				report.Degraded = append(report.Degraded, name)
			}
		}()
		fn()
	}
	run("summary", func() { report.Summary = *s.summaryFrom(l) })
	run("payments", func() { report.Payments = *s.paymentAnalyticsFrom(l) })
	run("cashflow", func() { report.Cashflow = *s.cashflowFrom(l, 0) })
	run("operational", func() { report.Operational = *s.operationalFrom(l) })
	return report, nil
}
