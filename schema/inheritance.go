package schema

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// revert reasons emitted by the ledger, kept verbatim so the UI layer
	// can match on them
	ReasonNotAdministrator    = "caller is not the owner"
	ReasonDuplicateRequest    = "Address already exists in requests array."
	ReasonIndexOutOfRange     = "The index sent is bigger than the requests array length."
	ReasonAddressMismatch     = "Address sent doesn't match with the address stored in the requests array."
	ReasonDuplicateHeir       = "Address already exists in heirs array."
	ReasonShareOverflow       = "the amount of shares exceed the 100% of the Inheritance."
	ReasonNotYetDead          = "Administrator is still alive."
	ReasonAlreadyClaimed      = "Inheritance already claimed by this heir."
	ReasonNoMatchingHeir      = "Not heir address matched to the one sent."
	ReasonNotHeir             = "Caller is not a registered heir."
	ReasonPendingLimit        = "You can only request up to 3 inheritances."
	ReasonNotPending          = "Inheritance is not in the pending array."
	ReasonOwnerStillAlive     = "Owner still alive, you can't redeem the NFTs yet."
	ReasonInsufficientBalance = "Not enough balance in the contract."
	ReasonAlreadyDeployed     = "Administrator already has a deployed inheritance."

	MaxShares = 100

	// decimals of the two assets held by an inheritance
	EtherDecimals = 18
	USDCDecimals  = 6
)

type Administrator struct {
	Address      common.Address `json:"administratorAddress"`
	LastAlive    int64          `json:"lastAlive"`    // unix seconds, ledger time
	AliveTimeOut int64          `json:"aliveTimeOut"` // seconds
}

// IsDead is derived, never stored: true once now has passed the alive window.
func (a Administrator) IsDead(now int64) bool {
	return now-a.LastAlive > a.AliveTimeOut
}

type Heir struct {
	Address      common.Address `json:"heir"`
	Share        uint64         `json:"share"` // integer percent, 0-100
	EtherBalance *big.Int       `json:"etherBalance"`
	USDCBalance  *big.Int       `json:"usdcBalance"`
	NFTDeedIds   []uint64       `json:"NFTDeedIds"`
	Claimed      bool           `json:"claimed"`
}

// InheritanceState is the full readable state of one inheritance, used by the
// HTTP layer and the reconciler snapshots.
type InheritanceState struct {
	Address       common.Address   `json:"address"`
	Administrator Administrator    `json:"administrator"`
	Requests      []common.Address `json:"requests"`
	Heirs         []Heir           `json:"heirs"`
	TotalShares   uint64           `json:"totalShares"`
	EtherBalance  *big.Int         `json:"etherBalance"`
	USDCBalance   *big.Int         `json:"usdcBalance"`
	Dead          bool             `json:"dead"`
}
