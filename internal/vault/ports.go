package vault

import "github.com/terminal-bench/timevault/pkg/amount"

// Principal is an externally addressable identity able to initiate
// operations or receive value. The zero value is not a valid identity;
// assigning it to a role disables that role.
type Principal string

// NoPrincipal is the unset identity.
const NoPrincipal Principal = ""

// Clock exposes the host's monotonic time in seconds.
type Clock interface {
	Now() uint64
}

// Treasury is the host value-transfer primitive. Balance and Transfer are
// synchronous and atomic; a Transfer either fully moves the value or fails
// without moving anything.
type Treasury interface {
	Balance() amount.Amount
	Deposit(from Principal, amt amount.Amount) error
	Transfer(to Principal, amt amount.Amount) error
}
