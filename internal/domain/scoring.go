package domain

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	BaseScore = 580
	MinScore  = 300
	MaxScore  = 900

	bandAThreshold = 680
	bandBThreshold = 630
)

// Band is a coarse creditworthiness tier.
type Band string

const (
	BandA Band = "A"
	BandB Band = "B"
	BandC Band = "C"
)

// BandForScore maps a score to its band.
func BandForScore(score int) Band {
	switch {
	case score >= bandAThreshold:
		return BandA
	case score >= bandBThreshold:
		return BandB
	default:
		return BandC
	}
}

// ReasonCode explains a triggered scoring rule.
type ReasonCode string

const (
	ReasonRemitHistory       ReasonCode = "R1_REM_HISTORY"
	ReasonStableIncome       ReasonCode = "R2_STABLE_INCOME"
	ReasonFirstLoanRepaid    ReasonCode = "R3_FIRST_LOAN_REPAID"
	ReasonDefaultRisk        ReasonCode = "R4_DEFAULT_RISK"
	ReasonRepeatCounterparty ReasonCode = "R5_REPEAT_COUNTERPARTY"
	ReasonTimelyRepay        ReasonCode = "R6_TIMELY_REPAY"
	ReasonBalanceStability   ReasonCode = "R7_BALANCE_STABILITY"
	ReasonLowRiskActivity    ReasonCode = "R8_LOW_RISK_ACTIVITY"
	ReasonDelayedRepay       ReasonCode = "R9_DELAYED_REPAY"
	ReasonOverdraftRisk      ReasonCode = "R10_OVERDRAFT_RISK"
	ReasonHighRiskActivity   ReasonCode = "R11_HIGH_RISK_ACTIVITY"
)

// Signals are the behavioural inputs to ComputeScore.
type Signals struct {
	MonthsRemitted2000Plus     int     `json:"months_remitted_2000_plus"`
	Last3MonthsMean            float64 `json:"last_3_months_mean"`
	Last3MonthsStdDev          float64 `json:"last_3_months_std_dev"`
	RepeatedCounterpartyMonths int     `json:"repeated_counterparty_months"`
	FirstLoanRepaid            bool    `json:"first_loan_repaid"`
	Defaulted                  bool    `json:"defaulted"`
	TimelyRepayments           int     `json:"timely_repayments"`
	DelayedRepayments          int     `json:"delayed_repayments"`
	AvgBalance                 float64 `json:"avg_balance"`
	BalanceStdDev              float64 `json:"balance_std_dev"`
	LowRiskTransactions        int     `json:"low_risk_transactions"`
	HighRiskTransactions       int     `json:"high_risk_transactions"`
	OverdraftAttempts          int     `json:"overdraft_attempts"`
}

// ScoreResult is the output of ComputeScore.
type ScoreResult struct {
	Score       int
	Band        Band
	ReasonCodes []ReasonCode
}

type scoreRule struct {
	code   ReasonCode
	points func(Signals) int // zero when the rule does not trigger
}

// Ordered by reason code number so the emitted codes are stable.
var scoreRules = []scoreRule{
	{ReasonRemitHistory, func(s Signals) int {
		return capPoints(10*s.MonthsRemitted2000Plus, 60)
	}},
	{ReasonStableIncome, func(s Signals) int {
		if s.Last3MonthsMean > 0 && s.Last3MonthsStdDev < 0.25*s.Last3MonthsMean {
			return 15
		}
		return 0
	}},
	{ReasonFirstLoanRepaid, func(s Signals) int {
		if s.FirstLoanRepaid {
			return 20
		}
		return 0
	}},
	{ReasonDefaultRisk, func(s Signals) int {
		if s.Defaulted {
			return -50
		}
		return 0
	}},
	{ReasonRepeatCounterparty, func(s Signals) int {
		if s.RepeatedCounterpartyMonths >= 3 {
			return 10
		}
		return 0
	}},
	{ReasonTimelyRepay, func(s Signals) int {
		return capPoints(12*s.TimelyRepayments, 48)
	}},
	{ReasonBalanceStability, func(s Signals) int {
		if s.AvgBalance >= 4000 && s.BalanceStdDev <= 0.15*s.AvgBalance {
			return 12
		}
		return 0
	}},
	{ReasonLowRiskActivity, func(s Signals) int {
		return capPoints(2*s.LowRiskTransactions, 20)
	}},
	{ReasonDelayedRepay, func(s Signals) int {
		return -capPoints(15*s.DelayedRepayments, 60)
	}},
	{ReasonOverdraftRisk, func(s Signals) int {
		return -capPoints(20*s.OverdraftAttempts, 60)
	}},
	{ReasonHighRiskActivity, func(s Signals) int {
		return -capPoints(10*s.HighRiskTransactions, 50)
	}},
}

func capPoints(points, ceiling int) int {
	if points < 0 {
		return 0
	}
	if points > ceiling {
		return ceiling
	}
	return points
}

// ComputeScore applies the point rules to signals.
func ComputeScore(s Signals) ScoreResult {
	score := BaseScore
	codes := make([]ReasonCode, 0, len(scoreRules))

	for _, rule := range scoreRules {
		if p := rule.points(s); p != 0 {
			score += p
			codes = append(codes, rule.code)
		}
	}

	score = max(MinScore, min(MaxScore, score))

	return ScoreResult{
		Score:       score,
		Band:        BandForScore(score),
		ReasonCodes: codes,
	}
}

// Score is an immutable snapshot of a computed score.
type Score struct {
	ID          string
	UserID      string
	Score       int
	Band        Band
	ReasonCodes []ReasonCode
	Signals     Signals
	StateCode   string
	CreatedAt   time.Time
}

// IsFresh reports whether the snapshot is younger than ttl at now.
func (s *Score) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) < ttl
}

// SignalInputs is the raw history a user's signals are derived from.
type SignalInputs struct {
	Remittances []*Transaction // successful remits in the 6-month window
	Loans       []*Loan
	History     []HistoryEntry
	Overdrafts  []OverdraftEvent
}

const minMonthlyRemit = 2000

// Rolling windows, in months, that signals are derived over.
const (
	SignalWindowMonths = 6
	RecentWindowMonths = 3
)

// BuildSignals derives Signals from raw inputs as of now.
func BuildSignals(now time.Time, in SignalInputs) Signals {
	sixMonthsAgo := now.AddDate(0, -SignalWindowMonths, 0)
	threeMonthsAgo := now.AddDate(0, -RecentWindowMonths, 0)

	var s Signals

	monthly := make(map[string]decimal.Decimal)
	recent := make(map[string]decimal.Decimal)
	counterpartyMonths := make(map[string]map[string]struct{})

	for _, tx := range in.Remittances {
		if tx.Type != TransactionTypeRemit || tx.Status != TransactionStatusSuccess {
			continue
		}
		if tx.CreatedAt.Before(sixMonthsAgo) || tx.CreatedAt.After(now) {
			continue
		}
		key := MonthKey(tx.CreatedAt)
		monthly[key] = monthly[key].Add(tx.Amount)
		if !tx.CreatedAt.Before(threeMonthsAgo) {
			recent[key] = recent[key].Add(tx.Amount)
		}
		if tx.Counterparty != "" {
			if counterpartyMonths[tx.Counterparty] == nil {
				counterpartyMonths[tx.Counterparty] = make(map[string]struct{})
			}
			counterpartyMonths[tx.Counterparty][key] = struct{}{}
		}
	}

	threshold := decimal.NewFromInt(minMonthlyRemit)
	for _, total := range monthly {
		if total.GreaterThanOrEqual(threshold) {
			s.MonthsRemitted2000Plus++
		}
	}

	recentTotals := make([]float64, 0, len(recent))
	for _, total := range sortedTotals(recent) {
		recentTotals = append(recentTotals, total.InexactFloat64())
	}
	s.Last3MonthsMean, s.Last3MonthsStdDev = meanStdDev(recentTotals)

	for _, months := range counterpartyMonths {
		s.RepeatedCounterpartyMonths = max(s.RepeatedCounterpartyMonths, len(months))
	}

	for _, loan := range in.Loans {
		switch loan.Status {
		case LoanStatusRepaid:
			s.FirstLoanRepaid = true
			if loan.RepaidOnTime() {
				s.TimelyRepayments++
			} else {
				s.DelayedRepayments++
			}
		case LoanStatusDefaulted:
			s.Defaulted = true
			s.DelayedRepayments++
		case LoanStatusDisbursed:
			if loan.IsOverdue(now) {
				s.DelayedRepayments++
			}
		}
	}

	balances := make([]float64, 0, len(in.History))
	for _, entry := range in.History {
		if entry.OccurredAt.Before(sixMonthsAgo) {
			continue
		}
		balances = append(balances, entry.BalanceAfter.InexactFloat64())
		switch entry.RiskLevel {
		case RiskLow:
			s.LowRiskTransactions++
		case RiskHigh:
			s.HighRiskTransactions++
		}
	}
	s.AvgBalance, s.BalanceStdDev = meanStdDev(balances)

	for _, od := range in.Overdrafts {
		if !od.OccurredAt.Before(sixMonthsAgo) {
			s.OverdraftAttempts++
		}
	}

	return s
}

func sortedTotals(m map[string]decimal.Decimal) []decimal.Decimal {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]decimal.Decimal, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// meanStdDev returns the mean and population standard deviation.
// The deviation is zero for fewer than two values.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// DistinctRemitMonths counts calendar months with at least one successful remit since since.
func DistinctRemitMonths(remits []*Transaction, since time.Time) int {
	months := make(map[string]struct{})
	for _, tx := range remits {
		if tx.Type != TransactionTypeRemit || tx.Status != TransactionStatusSuccess {
			continue
		}
		if tx.CreatedAt.Before(since) {
			continue
		}
		months[MonthKey(tx.CreatedAt)] = struct{}{}
	}
	return len(months)
}
