package inheritchain

import (
	"errors"
	"fmt"

	"github.com/EnzoRoselli/InheritChain/schema"
)

var (
	ErrNotExist = schema.ErrNotExist
	ErrNotFound = errors.New("not_found")

	// wallet / node level failures, recoverable by retrying the same intent
	ErrUserDeclined    = errors.New("user_declined")
	ErrNetworkUnsynced = errors.New("network_unsynced")

	ErrInsufficientFunds   = errors.New("insufficient_funds")
	ErrInvalidNumericInput = errors.New("invalid_numeric_input")
	ErrUnknownTxFailure    = errors.New("unknown_tx_failure")

	ErrNoInheritance  = errors.New("no_inheritance_for_address")
	ErrTokenNotExist  = errors.New("token_id_not_exist")
	ErrWatchExist     = errors.New("watch_exist")
	ErrNullAddress    = errors.New("null_address")
	ErrInvalidAddress = errors.New("invalid_address")
)

// RevertError is a domain-rule violation surfaced by the ledger. Callers must
// re-read the precondition that caused it before retrying the intent.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("reverted: %s", e.Reason)
}

func Revert(reason string) error {
	return &RevertError{Reason: reason}
}

// RevertReason extracts the ledger reason when err is a revert.
func RevertReason(err error) (string, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// IsFatalInput reports reverts that retrying can never fix without different
// input: a full pending slot set or a share allocation past 100%.
func IsFatalInput(err error) bool {
	reason, ok := RevertReason(err)
	if !ok {
		return false
	}
	return reason == schema.ReasonPendingLimit || reason == schema.ReasonShareOverflow
}
