package solana

// TokenAccount is one parsed SPL token account from getTokenAccountsByOwner.
type TokenAccount struct {
	Pubkey string
	Mint   string
	Owner  string

	// UIAmount is the balance in UI units, already adjusted for the token's
	// decimals. Nil when the node omitted the parsed amount.
	UIAmount *float64

	// Amount is the raw balance in base units, as returned by the node.
	Amount   string
	Decimals int
}

// UIBalance returns the UI amount, or 0 when the node did not provide one.
func (a TokenAccount) UIBalance() float64 {
	if a.UIAmount == nil {
		return 0
	}
	return *a.UIAmount
}
