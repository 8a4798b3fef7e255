package reward

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"server-reward-engine/internal/dao"
	"server-reward-engine/internal/model"
)

var (
	// VatRate is the flat VAT/service charge taken from every settlement.
	VatRate = decimal.RequireFromString("0.125")

	serviceChargeRate = decimal.Zero
)

const transferPrefix = "TRANSFER_"

type TransferResult struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	VatAmount     decimal.Decimal `json:"vat_amount"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	TotalRewards  decimal.Decimal `json:"total_rewards"`
	Balance       decimal.Decimal `json:"balance"`
}

// SplitVat returns the deduction rounded to cents and the net amount. The two always
// add up to amount exactly.
func SplitVat(amount decimal.Decimal) (vat, net decimal.Decimal) {
	vat = amount.Mul(VatRate).Round(2)
	net = amount.Sub(vat)
	return
}

// TransferToBalance moves amount from unsettled rewards to the spendable balance net of VAT,
// recording the charge. Rewards, balance and the charge record change together or not at all.
func (e *Engine) TransferToBalance(ctx context.Context, customerID uint64, amount decimal.Decimal) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, &InvalidAmountError{Amount: amount, Reason: "transfer amount must be positive"}
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, &InvalidAmountError{Amount: amount, Reason: "at most two decimal places"}
	}
	if amount.GreaterThan(MaxAmount) {
		return nil, &InvalidAmountError{Amount: amount, Reason: "exceeds " + MaxAmount.String()}
	}

	var res TransferResult
	_, err := e.transaction(ctx, "transfer", func(c *cascade) error {
		if err := c.load(customerID, false); err != nil {
			return err
		}
		cu := c.customer
		if amount.GreaterThan(cu.TotalRewards) {
			return &InsufficientFundsError{CustomerID: cu.ID, Requested: amount, Available: cu.TotalRewards}
		}

		vat, net := SplitVat(amount)
		service := amount.Mul(serviceChargeRate).Round(2)
		cu.TotalRewards = cu.TotalRewards.Sub(amount)
		cu.Balance = cu.Balance.Add(net)
		c.customerDirty = true

		res = TransferResult{
			TransactionID: transferPrefix + uuid.NewString(),
			Amount:        amount,
			VatAmount:     vat,
			NetAmount:     net,
			TotalRewards:  cu.TotalRewards,
			Balance:       cu.Balance,
		}

		err := dao.VatServiceCharge.Append(c.tx, &model.VatServiceCharge{
			TransactionID:       res.TransactionID,
			TransactionType:     model.TxRewardPayout,
			CustomerID:          cu.ID,
			Amount:              amount,
			VatAmount:           vat,
			ServiceChargeAmount: service,
			TotalDeduction:      vat.Add(service),
			Rate:                VatRate.Shift(2),
			CountryID:           cu.CountryID,
			CreatedAt:           e.opts.Now(),
		})
		if err != nil {
			return errors.Wrap(err, "append vat record")
		}

		return c.appendTx(&model.PointTransaction{
			CustomerID:  uint64Ptr(cu.ID),
			Type:        model.TxRewardPayout,
			Points:      amount.Neg(),
			Description: fmt.Sprintf("Transfer to balance: %s (VAT %s, net %s)", amount.StringFixed(2), vat.StringFixed(2), net.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, err
	}

	f, _ := amount.Float64()
	e.opts.Metrics.ObserveSettlement(f)
	return &res, nil
}
