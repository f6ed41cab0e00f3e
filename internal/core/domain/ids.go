package domain

// IDPrefix is the leading segment of every generated identifier.
type IDPrefix string

const (
	PrefixWallet   IDPrefix = "wallet"
	PrefixPayment  IDPrefix = "payment"
	PrefixPayout   IDPrefix = "payout"
	PrefixTransfer IDPrefix = "transfer"
)

// PrefixFor returns the id prefix of a transaction type.
func PrefixFor(t TransactionType) IDPrefix {
	switch t {
	case TransactionTypeMint:
		return PrefixPayment
	case TransactionTypeBurn:
		return PrefixPayout
	default:
		return PrefixTransfer
	}
}
