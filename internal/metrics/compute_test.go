package metrics

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/window"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// rec builds a record whose profit follows the settlement invariant.
func rec(id, date string, cat domain.Category, stake, odds string, outcome domain.Outcome) domain.TradeRecord {
	return domain.TradeRecord{
		ID:       id,
		Date:     day(date),
		Category: cat,
		Stake:    d(stake),
		Odds:     d(odds),
		Outcome:  outcome,
		Profit:   domain.SettleProfit(d(stake), d(odds), outcome),
	}
}

func curveValues(points []domain.EquityPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.CumulativeProfit.String()
	}
	return out
}

func TestCompute_SingleWin(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t1", "2024-05-01", domain.CategorySports, "100", "2.0", domain.OutcomeWin),
	}

	m := Compute(ledger, Options{})

	if !m.TotalProfit.Equal(d("100")) {
		t.Errorf("expected totalProfit 100, got %s", m.TotalProfit)
	}
	if !m.ROI.Equal(d("1")) {
		t.Errorf("expected roi 1.0, got %s", m.ROI)
	}
	if !m.Drawdown.CurrentDrawdown.IsZero() {
		t.Errorf("expected current drawdown 0, got %s", m.Drawdown.CurrentDrawdown)
	}
}

func TestCompute_LossThenRecovery(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t1", "2024-05-01", domain.CategorySports, "100", "2.0", domain.OutcomeLoss),
		rec("t2", "2024-05-02", domain.CategorySports, "50", "3.0", domain.OutcomeWin),
	}

	m := Compute(ledger, Options{Baseline: d("1000")})

	if got := curveValues(m.Equity); !reflect.DeepEqual(got, []string{"-100", "0"}) {
		t.Errorf("expected global curve [-100 0], got %v", got)
	}
	if !m.Drawdown.MaxDrawdown.Equal(d("100")) {
		t.Errorf("expected max drawdown 100, got %s", m.Drawdown.MaxDrawdown)
	}
	if !m.Drawdown.CurrentDrawdown.IsZero() {
		t.Errorf("expected current drawdown 0, got %s", m.Drawdown.CurrentDrawdown)
	}
	// 100 / (1000 + max(0, 0))
	if !m.Drawdown.MaxDrawdownPct.Equal(d("0.1")) {
		t.Errorf("expected max drawdown pct 0.1, got %s", m.Drawdown.MaxDrawdownPct)
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	m := Compute(nil, Options{})

	if m.ClosedCount != 0 || m.OpenCount != 0 {
		t.Errorf("expected zero counts, got closed=%d open=%d", m.ClosedCount, m.OpenCount)
	}
	if !m.ROI.IsZero() || !m.TotalProfit.IsZero() || !m.Exposure.IsZero() {
		t.Errorf("expected zeroed KPIs, got roi=%s profit=%s exposure=%s", m.ROI, m.TotalProfit, m.Exposure)
	}
	if !m.Drawdown.MaxDrawdown.IsZero() || !m.Drawdown.CurrentDrawdown.IsZero() {
		t.Errorf("expected zero drawdown, got %+v", m.Drawdown)
	}
	if len(m.Equity) != 0 {
		t.Errorf("expected empty curve, got %d points", len(m.Equity))
	}
	for _, c := range domain.Categories {
		if pts, ok := m.Category[c]; !ok || len(pts) != 0 {
			t.Errorf("expected empty curve for %s, got %v (present=%v)", c, pts, ok)
		}
	}
	if m.Leader != nil || m.Worst != nil {
		t.Errorf("expected no leader/worst without activity")
	}
}

func TestCompute_PendingOnlyDrivesExposure(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t1", "2024-05-01", domain.CategorySports, "100", "2.0", domain.OutcomePending),
		rec("t2", "2024-05-01", domain.CategoryCasino, "40", "1.5", domain.OutcomePending),
		rec("t3", "2024-05-01", domain.CategoryCasino, "10", "3", domain.OutcomeWin),
	}

	m := Compute(ledger, Options{})

	if m.OpenCount != 2 || m.ClosedCount != 1 {
		t.Errorf("expected open=2 closed=1, got open=%d closed=%d", m.OpenCount, m.ClosedCount)
	}
	if !m.Exposure.Equal(d("140")) {
		t.Errorf("expected exposure 140, got %s", m.Exposure)
	}
	if !m.TotalStake.Equal(d("10")) {
		t.Errorf("expected total stake 10, got %s", m.TotalStake)
	}
	if !m.ROI.Equal(d("2")) {
		t.Errorf("expected roi 2, got %s", m.ROI)
	}
}

func TestCompute_ROIZeroWithoutVolume(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t1", "2024-05-01", domain.CategorySports, "0", "2.0", domain.OutcomeWin),
	}

	m := Compute(ledger, Options{})
	if !m.ROI.IsZero() {
		t.Errorf("expected roi 0 with zero stake, got %s", m.ROI)
	}
}

func TestCompute_CategoryCurvesAligned(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t3", "2024-05-03", domain.CategoryCasino, "20", "2", domain.OutcomeLoss),
		rec("t1", "2024-05-01", domain.CategorySports, "100", "2", domain.OutcomeWin),
		rec("t2", "2024-05-01", domain.CategoryCasino, "10", "2", domain.OutcomeWin),
		rec("t4", "2024-05-02", domain.CategorySports, "50", "2", domain.OutcomeLoss),
	}

	m := Compute(ledger, Options{})

	if got := curveValues(m.Equity); !reflect.DeepEqual(got, []string{"110", "60", "40"}) {
		t.Errorf("global curve: got %v", got)
	}
	if got := curveValues(m.Category[domain.CategorySports]); !reflect.DeepEqual(got, []string{"100", "50", "50"}) {
		t.Errorf("sports curve: got %v", got)
	}
	if got := curveValues(m.Category[domain.CategoryCasino]); !reflect.DeepEqual(got, []string{"10", "10", "-10"}) {
		t.Errorf("casino curve: got %v", got)
	}
	if got := curveValues(m.Category[domain.CategoryEsports]); !reflect.DeepEqual(got, []string{"0", "0", "0"}) {
		t.Errorf("esports curve: got %v", got)
	}

	for c, pts := range m.Category {
		for i := range pts {
			if !pts[i].Date.Equal(m.Equity[i].Date) {
				t.Errorf("%s curve date %d = %s, want %s", c, i, pts[i].Date, m.Equity[i].Date)
			}
		}
	}
}

func TestCompute_CurveRecurrence(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t1", "2024-05-01", domain.CategorySports, "100", "1.9", domain.OutcomeWin),
		rec("t2", "2024-05-01", domain.CategoryEsports, "30", "2.2", domain.OutcomeLoss),
		rec("t3", "2024-05-04", domain.CategorySports, "80", "1.5", domain.OutcomeLoss),
		rec("t4", "2024-05-07", domain.CategoryCasino, "25", "4", domain.OutcomeWin),
		rec("t5", "2024-05-07", domain.CategoryCasino, "60", "2", domain.OutcomePending),
	}

	m := Compute(ledger, Options{})

	daily := make(map[time.Time]decimal.Decimal)
	for _, r := range ledger {
		if r.IsClosed() {
			daily[r.Date] = daily[r.Date].Add(r.Profit)
		}
	}

	prev := decimal.Zero
	for i, p := range m.Equity {
		if i > 0 && !p.Date.After(m.Equity[i-1].Date) {
			t.Errorf("dates not strictly increasing at %d", i)
		}
		want := prev.Add(daily[p.Date])
		if !p.CumulativeProfit.Equal(want) {
			t.Errorf("curve[%d] = %s, want %s", i, p.CumulativeProfit, want)
		}
		prev = p.CumulativeProfit
	}
}

func TestCompute_DrawdownOrdering(t *testing.T) {
	ledgers := map[string][]domain.TradeRecord{
		"empty": nil,
		"only losses": {
			rec("t1", "2024-05-01", domain.CategorySports, "10", "2", domain.OutcomeLoss),
			rec("t2", "2024-05-02", domain.CategorySports, "20", "2", domain.OutcomeLoss),
		},
		"peak then trough then partial recovery": {
			rec("t1", "2024-05-01", domain.CategorySports, "100", "2", domain.OutcomeWin),
			rec("t2", "2024-05-02", domain.CategorySports, "70", "2", domain.OutcomeLoss),
			rec("t3", "2024-05-03", domain.CategorySports, "20", "2", domain.OutcomeWin),
		},
		"only wins": {
			rec("t1", "2024-05-01", domain.CategoryCasino, "10", "3", domain.OutcomeWin),
			rec("t2", "2024-05-02", domain.CategoryCasino, "10", "3", domain.OutcomeWin),
		},
	}

	for name, ledger := range ledgers {
		t.Run(name, func(t *testing.T) {
			dd := Compute(ledger, Options{Baseline: d("500")}).Drawdown
			if dd.CurrentDrawdown.IsNegative() {
				t.Errorf("current drawdown negative: %s", dd.CurrentDrawdown)
			}
			if dd.MaxDrawdown.LessThan(dd.CurrentDrawdown) {
				t.Errorf("max drawdown %s < current %s", dd.MaxDrawdown, dd.CurrentDrawdown)
			}
			if dd.MaxDrawdownPct.LessThan(decimal.Zero) || dd.CurrentDrawdownPct.LessThan(decimal.Zero) {
				t.Errorf("negative percentage: %+v", dd)
			}
		})
	}
}

func TestCompute_DrawdownPeakTroughRecovery(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t1", "2024-05-01", domain.CategorySports, "100", "2", domain.OutcomeWin),
		rec("t2", "2024-05-02", domain.CategorySports, "70", "2", domain.OutcomeLoss),
		rec("t3", "2024-05-03", domain.CategorySports, "20", "2", domain.OutcomeWin),
	}

	m := Compute(ledger, Options{Baseline: d("900")})

	if !m.Drawdown.RunningPeak.Equal(d("100")) {
		t.Errorf("expected peak 100, got %s", m.Drawdown.RunningPeak)
	}
	if !m.Drawdown.MaxDrawdown.Equal(d("70")) {
		t.Errorf("expected max drawdown 70, got %s", m.Drawdown.MaxDrawdown)
	}
	if !m.Drawdown.CurrentDrawdown.Equal(d("50")) {
		t.Errorf("expected current drawdown 50, got %s", m.Drawdown.CurrentDrawdown)
	}
	// 70 / (900 + 100)
	if !m.Drawdown.MaxDrawdownPct.Equal(d("0.07")) {
		t.Errorf("expected max pct 0.07, got %s", m.Drawdown.MaxDrawdownPct)
	}
	if got := curveValues(m.DrawdownSeries); !reflect.DeepEqual(got, []string{"0", "70", "50"}) {
		t.Errorf("drawdown series: got %v", got)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t1", "2024-05-02", domain.CategorySports, "100", "1.9", domain.OutcomeWin),
		rec("t2", "2024-05-01", domain.CategoryEsports, "30", "2.2", domain.OutcomeLoss),
		rec("t3", "2024-05-02", domain.CategoryCasino, "80", "1.5", domain.OutcomeLoss),
	}

	first := Compute(ledger, Options{Baseline: d("100")})
	for run := 0; run < 5; run++ {
		again := Compute(ledger, Options{Baseline: d("100")})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: Compute not deterministic", run)
		}
	}
}

func TestCompute_LeaderAndWorst(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t1", "2024-05-01", domain.CategorySports, "100", "2", domain.OutcomeWin),
		rec("t2", "2024-05-01", domain.CategoryCasino, "40", "2", domain.OutcomeLoss),
		rec("t3", "2024-05-01", domain.CategoryEsports, "10", "2", domain.OutcomeWin),
	}

	m := Compute(ledger, Options{})

	if m.Leader == nil || m.Leader.Key != string(domain.CategorySports) {
		t.Errorf("expected leader SPORTS, got %+v", m.Leader)
	}
	if m.Worst == nil || m.Worst.Key != string(domain.CategoryCasino) {
		t.Errorf("expected worst CASINO, got %+v", m.Worst)
	}
}

func TestMovers(t *testing.T) {
	mk := func(id, counterpart string, stake string, outcome domain.Outcome) domain.TradeRecord {
		r := rec(id, "2024-05-01", domain.CategorySports, stake, "2", outcome)
		r.Counterpart = counterpart
		return r
	}
	ledger := []domain.TradeRecord{
		mk("t1", "alpha", "100", domain.OutcomeWin),
		mk("t2", "beta", "50", domain.OutcomeWin),
		mk("t3", "gamma", "80", domain.OutcomeLoss),
		mk("t4", "delta", "80", domain.OutcomeLoss),
		mk("t5", "eps", "30", domain.OutcomeWin),
		mk("t6", "eps", "30", domain.OutcomeLoss),
		mk("t7", "zeta", "500", domain.OutcomePending),
		mk("t8", "beta", "10", domain.OutcomeLoss),
	}

	set := Movers(ledger, DimensionCounterpart, 1)

	if len(set.Contributors) != 1 || set.Contributors[0].Key != "alpha" {
		t.Errorf("contributors: got %+v", set.Contributors)
	}
	// gamma and delta tie at -80; key ascending breaks the tie.
	if len(set.Drains) != 1 || set.Drains[0].Key != "delta" {
		t.Errorf("drains: got %+v", set.Drains)
	}

	all := Movers(ledger, DimensionCounterpart, 0)
	for _, g := range append(all.Contributors, all.Drains...) {
		if g.Key == "eps" {
			t.Errorf("zero-sum group should not appear: %+v", g)
		}
		if g.Key == "zeta" {
			t.Errorf("pending-only group should not appear: %+v", g)
		}
	}
	if len(all.Contributors) != 2 || all.Contributors[1].Key != "beta" || !all.Contributors[1].Profit.Equal(d("40")) {
		t.Errorf("expected beta second with 40, got %+v", all.Contributors)
	}
}

func TestComputeWindow_FiltersBeforeComputing(t *testing.T) {
	ledger := []domain.TradeRecord{
		rec("t1", "2024-04-30", domain.CategorySports, "100", "2", domain.OutcomeLoss),
		rec("t2", "2024-05-02", domain.CategorySports, "10", "2", domain.OutcomeWin),
	}
	now := time.Date(2024, time.May, 19, 15, 0, 0, 0, time.UTC)

	m := ComputeWindow(ledger, window.MonthToDate(), now, Options{})

	if m.ClosedCount != 1 || !m.TotalProfit.Equal(d("10")) {
		t.Errorf("expected only the May record, got closed=%d profit=%s", m.ClosedCount, m.TotalProfit)
	}
}

func TestParseDimension(t *testing.T) {
	tests := []struct {
		in      string
		want    Dimension
		wantErr bool
	}{
		{"", DimensionCategory, false},
		{"Market", DimensionMarket, false},
		{"counterpart", DimensionCounterpart, false},
		{"house", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDimension(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDimension(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseDimension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
