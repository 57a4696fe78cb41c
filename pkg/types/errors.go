package types

import "fmt"

// ErrorKind classifies expected trading failures. Every branch of the
// executor maps to exactly one kind; panics are reserved for invariant
// violations.
type ErrorKind string

const (
	// ErrKindInsufficientFunds means the quote-asset balance could not cover
	// any trade. No network submission was attempted.
	ErrKindInsufficientFunds ErrorKind = "insufficient_funds"

	// ErrKindExcessiveSlippage means a pre-trade quote fell short of the
	// spot-implied expectation by more than the configured maximum.
	ErrKindExcessiveSlippage ErrorKind = "excessive_slippage"

	// ErrKindBuyFailed means the buy-leg swap submission or confirmation
	// failed. The sell leg was never attempted.
	ErrKindBuyFailed ErrorKind = "buy_failed"

	// ErrKindSellFailed means the buy leg executed but the sell leg failed.
	// The buy result is retained for reconciliation.
	ErrKindSellFailed ErrorKind = "sell_failed"

	// ErrKindRealizedLoss means both legs executed but settled net negative.
	ErrKindRealizedLoss ErrorKind = "realized_loss"

	// ErrKindMissingAssetMapping means a token has no known mint address.
	// Fatal to the trade, not the process.
	ErrKindMissingAssetMapping ErrorKind = "missing_asset_mapping"

	// ErrKindTransientNetwork marks retryable read failures (quote fetch,
	// balance query). Retries are bounded and never applied to submissions.
	ErrKindTransientNetwork ErrorKind = "transient_network"
)

// TradeError is the structured failure returned by value from the executor.
// Fields beyond Kind and Message are populated per kind.
type TradeError struct {
	Kind    ErrorKind
	Message string

	// Excessive slippage detail.
	ObservedSlippagePct float64
	MaxSlippagePct      float64

	// Underlying chain/client error for buy_failed and sell_failed.
	ChainErr error

	// Buy-leg result retained on sell_failed: real assets were acquired and
	// the caller needs the signature and amount for reconciliation.
	BuyResult *SwapResult

	// Settled net result for realized_loss.
	RealizedProfit float64
}

func (e *TradeError) Error() string {
	switch e.Kind {
	case ErrKindExcessiveSlippage:
		return fmt.Sprintf("%s: %s (observed %.2f%%, max %.2f%%)", e.Kind, e.Message, e.ObservedSlippagePct, e.MaxSlippagePct)
	case ErrKindBuyFailed, ErrKindSellFailed:
		if e.ChainErr != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.ChainErr)
		}
	case ErrKindRealizedLoss:
		return fmt.Sprintf("%s: %s (realized %.4f)", e.Kind, e.Message, e.RealizedProfit)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying chain error for errors.Is/As chains.
func (e *TradeError) Unwrap() error {
	return e.ChainErr
}

// NewInsufficientFunds builds an insufficient_funds error.
func NewInsufficientFunds(token string, balance float64) *TradeError {
	return &TradeError{
		Kind:    ErrKindInsufficientFunds,
		Message: fmt.Sprintf("insufficient %s balance for arbitrage: %.4f", token, balance),
	}
}

// NewExcessiveSlippage builds an excessive_slippage error.
func NewExcessiveSlippage(leg string, observedPct, maxPct float64) *TradeError {
	return &TradeError{
		Kind:                ErrKindExcessiveSlippage,
		Message:             fmt.Sprintf("%s leg slippage above maximum", leg),
		ObservedSlippagePct: observedPct,
		MaxSlippagePct:      maxPct,
	}
}

// NewBuyFailed builds a buy_failed error wrapping the chain error.
func NewBuyFailed(chainErr error) *TradeError {
	return &TradeError{
		Kind:     ErrKindBuyFailed,
		Message:  "buy leg submission failed, sell leg not attempted",
		ChainErr: chainErr,
	}
}

// NewSellFailed builds a sell_failed error retaining the buy-leg result.
func NewSellFailed(chainErr error, buyResult *SwapResult) *TradeError {
	return &TradeError{
		Kind:      ErrKindSellFailed,
		Message:   "sell leg failed after buy leg executed",
		ChainErr:  chainErr,
		BuyResult: buyResult,
	}
}

// NewRealizedLoss builds a realized_loss error for a net-negative settlement.
func NewRealizedLoss(realized float64) *TradeError {
	return &TradeError{
		Kind:           ErrKindRealizedLoss,
		Message:        "trade executed but settled at a loss",
		RealizedProfit: realized,
	}
}

// NewMissingAssetMapping builds a missing_asset_mapping error.
func NewMissingAssetMapping(token string) *TradeError {
	return &TradeError{
		Kind:    ErrKindMissingAssetMapping,
		Message: fmt.Sprintf("no mint address configured for token %s", token),
	}
}
