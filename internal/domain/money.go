package domain

import "github.com/shopspring/decimal"

func init() {
	// The backend exchanges prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money is a decimal amount in the merchant currency.
type Money = decimal.Decimal

// Zero is the zero amount.
var Zero = decimal.Zero
