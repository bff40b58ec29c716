package models

// Split - результат расчёта раздела средств escrow. Отдельно не хранится.
type Split struct {
	RefundAmount          int64 `json:"refund_amount"`
	PayoutAmount          int64 `json:"payout_amount"`
	PlatformFee           int64 `json:"platform_fee"`
	InstallerCompensation int64 `json:"installer_compensation"`
	// InstallerDebt учитывается как обязательство, из escrow не списывается.
	InstallerDebt int64 `json:"installer_debt"`
	// PlatformRetained - остаток escrow, который остаётся у платформы.
	PlatformRetained int64  `json:"platform_retained"`
	Rule             string `json:"rule"`
}

// Правила, по которым получен раздел.
const (
	RuleNoShow         = "no_show"
	RuleGracePeriod    = "grace_period"
	RuleTierOver24h    = "tier_over_24h"
	RuleTier12To24h    = "tier_12_24h"
	RuleTier4To12h     = "tier_4_12h"
	RuleTierUnder4h    = "tier_under_4h"
	RuleUnscheduled    = "unscheduled"
	RuleDisputeRefund  = "dispute_refund"
	RuleDisputeRelease = "dispute_release"
	RuleDisputeSplit   = "dispute_split"
	RuleRelease        = "release"
)

// TotalPenalty - сколько из оплаченного заказчиком не вернулось ему.
func (s Split) TotalPenalty() int64 {
	return s.PayoutAmount + s.PlatformRetained
}
