package schema

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// event names carried by write receipts
const (
	EventInheritanceCreated      = "LogInheritanceCreated"
	EventDeposit                 = "LogDeposit"
	EventDepositUSDC             = "LogDepositUSDC"
	EventWithdraw                = "LogWithdraw"
	EventWithdrawUSDC            = "LogWithdrawUSDC"
	EventAdministratorAlive      = "LogAdministratorAlive"
	EventRequestToBeHeir         = "LogRequestToBeHeir"
	EventHeirAccepted            = "LogHeirAccepted"
	EventHeirRejected            = "LogHeirRejected"
	EventHeirClaiming            = "LogHeirClaiming"
	EventNFTDeedAdded            = "LogNFTDeedAdded"
	EventNFTDeedRemoved          = "LogNFTDeedRemoved"
	EventPendingInheritanceAdded = "PendingInheritanceAdded"
	EventPendingInheritanceGone  = "PendingInheritanceRemoved"
	EventPendingUpdated          = "PendingInheritancesUpdated"
	EventInheritanceExecuted     = "LogInheritanceExecuted"
)

// Event is one structured log entry of a write receipt: a human readable
// description, the affected addresses and the resulting counts/balances, in
// emission order.
type Event struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Addrs       []common.Address `json:"addrs"`
	Values      []*big.Int       `json:"values"`
}

// Value returns the i-th numeric value or nil when the event carries fewer.
func (e Event) Value(i int) *big.Int {
	if i >= len(e.Values) {
		return nil
	}
	return e.Values[i]
}

// Receipt confirms one applied write. TxId identifies the submission, Time is
// the ledger time the write was applied at.
type Receipt struct {
	TxId   string  `json:"txId"`
	Time   int64   `json:"time"`
	Events []Event `json:"events"`
}

// Event returns the first event with the given name, or nil.
func (r *Receipt) Event(name string) *Event {
	for i := range r.Events {
		if r.Events[i].Name == name {
			return &r.Events[i]
		}
	}
	return nil
}
