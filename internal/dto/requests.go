package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

// AwardRequest represents the request to award a job to an installer.
// Installer accepts either a user id string or an expanded user object.
type AwardRequest struct {
	Installer models.PartyRef `json:"installer"`
	BidAmount int64           `json:"bid_amount" binding:"required,gt=0"`
	Tip       int64           `json:"tip" binding:"gte=0"`
	StartAt   *time.Time      `json:"start_at"`
}

// ConfirmFundingRequest carries the gateway order reported by the payment callback.
type ConfirmFundingRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
}

// RaiseDisputeRequest represents the request to freeze escrow with a dispute
type RaiseDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveDisputeRequest represents the admin decision on an open dispute.
// SplitPercentage is the installer share and is required for SPLIT.
type ResolveDisputeRequest struct {
	Resolution      models.DisputeResolutionType `json:"resolution" binding:"required"`
	SplitPercentage *float64                     `json:"split_percentage"`
}

// UpdateRatesRequest represents the platform rates update
type UpdateRatesRequest struct {
	CancellationFeePercent  decimal.Decimal `json:"cancellation_fee_percent"`
	InstallerCommissionRate decimal.Decimal `json:"installer_commission_rate"`
	GiverFeeRate            decimal.Decimal `json:"giver_fee_rate"`
}

// Rates converts the request to a snapshot
func (r UpdateRatesRequest) Rates() models.RatesSnapshot {
	return models.RatesSnapshot{
		CancellationFeePercent:  r.CancellationFeePercent,
		InstallerCommissionRate: r.InstallerCommissionRate,
		GiverFeeRate:            r.GiverFeeRate,
	}
}

// SetBeneficiaryRequest binds the installer to a Cashfree Payouts beneficiary
type SetBeneficiaryRequest struct {
	BeneficiaryID string `json:"beneficiary_id" binding:"required"`
}
