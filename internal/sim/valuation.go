package sim

// PortfolioValue is the market value of the held shares at the given price.
// A zero price yields a zero portfolio value regardless of share count.
func PortfolioValue(shares int, price float64) float64 {
	return float64(shares) * price
}

// TotalValue is cash plus the portfolio value at the given price.
func TotalValue(cash float64, shares int, price float64) float64 {
	return cash + PortfolioValue(shares, price)
}
