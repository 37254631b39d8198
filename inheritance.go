package inheritchain

import (
	"math/big"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/ethereum/go-ethereum/common"
)

// request keeps a stable id next to the externally visible queue position.
// The public API stays positional; ids only make removals debuggable.
type request struct {
	id   uint64
	addr common.Address
}

// Inheritance is one inheritance contract instance: an administrator whose
// liveness gates claims, a request queue, a heir registry with shares, asset
// balances and NFT deed assignments. Methods are invoked under the ledger
// write lock, so one call fully applies before the next.
type Inheritance struct {
	address   common.Address
	admin     schema.Administrator
	usdcToken common.Address

	requests  []request
	nextReqId uint64

	heirs       []*schema.Heir
	totalShares uint64

	etherBalance *big.Int
	usdcBalance  *big.Int
}

func NewInheritance(address, admin common.Address, aliveTimeOut int64, usdcToken common.Address, now int64) *Inheritance {
	return &Inheritance{
		address: address,
		admin: schema.Administrator{
			Address:      admin,
			LastAlive:    now,
			AliveTimeOut: aliveTimeOut,
		},
		usdcToken:    usdcToken,
		etherBalance: new(big.Int),
		usdcBalance:  new(big.Int),
	}
}

func (i *Inheritance) Address() common.Address {
	return i.address
}

func (i *Inheritance) Administrator() schema.Administrator {
	return i.admin
}

func (i *Inheritance) onlyAdministrator(caller common.Address) error {
	if caller != i.admin.Address {
		return Revert(schema.ReasonNotAdministrator)
	}
	return nil
}

func (i *Inheritance) heirByAddress(addr common.Address) *schema.Heir {
	for _, h := range i.heirs {
		if h.Address == addr {
			return h
		}
	}
	return nil
}

// ---- deposits / withdrawals ----

func (i *Inheritance) Deposit(from common.Address, amount *big.Int) ([]schema.Event, error) {
	i.etherBalance.Add(i.etherBalance, amount)
	return []schema.Event{{
		Name:        schema.EventDeposit,
		Description: "Log all the values: Administrator address, Amount sent, Contract ether balance.",
		Addrs:       []common.Address{i.admin.Address, from},
		Values:      []*big.Int{new(big.Int).Set(amount), new(big.Int).Set(i.etherBalance)},
	}}, nil
}

func (i *Inheritance) DepositUSDC(from common.Address, amount *big.Int) ([]schema.Event, error) {
	i.usdcBalance.Add(i.usdcBalance, amount)
	return []schema.Event{{
		Name:        schema.EventDepositUSDC,
		Description: "Log all the values: Administrator address, Amount sent, Contract USDC balance.",
		Addrs:       []common.Address{i.admin.Address, from},
		Values:      []*big.Int{new(big.Int).Set(amount), new(big.Int).Set(i.usdcBalance)},
	}}, nil
}

func (i *Inheritance) Withdraw(caller common.Address, amount *big.Int) ([]schema.Event, error) {
	if err := i.onlyAdministrator(caller); err != nil {
		return nil, err
	}
	if i.etherBalance.Cmp(amount) < 0 {
		return nil, Revert(schema.ReasonInsufficientBalance)
	}
	i.etherBalance.Sub(i.etherBalance, amount)
	return []schema.Event{{
		Name:        schema.EventWithdraw,
		Description: "Administrator withdraws ether from the inheritance.",
		Addrs:       []common.Address{caller},
		Values:      []*big.Int{new(big.Int).Set(amount), new(big.Int).Set(i.etherBalance)},
	}}, nil
}

func (i *Inheritance) WithdrawUSDC(caller common.Address, amount *big.Int) ([]schema.Event, error) {
	if err := i.onlyAdministrator(caller); err != nil {
		return nil, err
	}
	if i.usdcBalance.Cmp(amount) < 0 {
		return nil, Revert(schema.ReasonInsufficientBalance)
	}
	i.usdcBalance.Sub(i.usdcBalance, amount)
	return []schema.Event{{
		Name:        schema.EventWithdrawUSDC,
		Description: "Administrator withdraws USDC from the inheritance.",
		Addrs:       []common.Address{caller},
		Values:      []*big.Int{new(big.Int).Set(amount), new(big.Int).Set(i.usdcBalance)},
	}}, nil
}

// ---- liveness ----

func (i *Inheritance) SignalAlive(caller common.Address, now int64) ([]schema.Event, error) {
	if err := i.onlyAdministrator(caller); err != nil {
		return nil, err
	}
	prev := i.admin.LastAlive
	i.admin.LastAlive = now
	return []schema.Event{{
		Name:        schema.EventAdministratorAlive,
		Description: "Administrator sends a signal to show he is alive.",
		Addrs:       []common.Address{caller},
		Values:      []*big.Int{big.NewInt(prev), big.NewInt(now), big.NewInt(i.admin.AliveTimeOut)},
	}}, nil
}

func (i *Inheritance) UpdateAliveTimeOut(caller common.Address, seconds int64) ([]schema.Event, error) {
	if err := i.onlyAdministrator(caller); err != nil {
		return nil, err
	}
	if seconds < 0 {
		return nil, ErrInvalidNumericInput
	}
	prev := i.admin.AliveTimeOut
	i.admin.AliveTimeOut = seconds
	return []schema.Event{{
		Name:        schema.EventAdministratorAlive,
		Description: "Administrator updates the alive timeout window.",
		Addrs:       []common.Address{caller},
		Values:      []*big.Int{big.NewInt(prev), big.NewInt(seconds)},
	}}, nil
}

// IsAdministratorDead is recomputed from stored timestamps on every read;
// the result is never stored, so a shortened window flips it immediately.
func (i *Inheritance) IsAdministratorDead(now int64) bool {
	return i.admin.IsDead(now)
}

func (i *Inheritance) LastAlive() int64 {
	return i.admin.LastAlive
}

func (i *Inheritance) AliveTimeOut(caller common.Address) (int64, error) {
	if err := i.onlyAdministrator(caller); err != nil {
		return 0, err
	}
	return i.admin.AliveTimeOut, nil
}

// ---- request queue ----

func (i *Inheritance) RequestInheritance(requester common.Address) ([]schema.Event, error) {
	for _, r := range i.requests {
		if r.addr == requester {
			return nil, Revert(schema.ReasonDuplicateRequest)
		}
	}
	i.nextReqId++
	i.requests = append(i.requests, request{id: i.nextReqId, addr: requester})
	return []schema.Event{{
		Name:        schema.EventRequestToBeHeir,
		Description: "User requests to be added as an heir.",
		Addrs:       []common.Address{requester},
		Values:      []*big.Int{big.NewInt(int64(len(i.requests))), big.NewInt(int64(len(i.heirs)))},
	}}, nil
}

// guardRequestAt validates the compare-and-swap style index/address pair that
// defends accept/reject against queue shifts between the caller's read and
// this write.
func (i *Inheritance) guardRequestAt(index int, requester common.Address) error {
	if index >= len(i.requests) {
		return Revert(schema.ReasonIndexOutOfRange)
	}
	if i.requests[index].addr != requester {
		return Revert(schema.ReasonAddressMismatch)
	}
	return nil
}

// removeRequestAt removes by swap-and-truncate; the order of the remaining
// requests is not stable after a removal.
func (i *Inheritance) removeRequestAt(index int) {
	last := len(i.requests) - 1
	i.requests[index] = i.requests[last]
	i.requests = i.requests[:last]
}

func (i *Inheritance) AcceptRequest(caller common.Address, index int, requester common.Address, share uint64) ([]schema.Event, error) {
	if err := i.onlyAdministrator(caller); err != nil {
		return nil, err
	}
	if err := i.guardRequestAt(index, requester); err != nil {
		return nil, err
	}
	if i.heirByAddress(requester) != nil {
		return nil, Revert(schema.ReasonDuplicateHeir)
	}
	if i.totalShares+share > schema.MaxShares {
		return nil, Revert(schema.ReasonShareOverflow)
	}

	i.removeRequestAt(index)
	i.heirs = append(i.heirs, &schema.Heir{
		Address:      requester,
		Share:        share,
		EtherBalance: new(big.Int),
		USDCBalance:  new(big.Int),
	})
	i.totalShares += share

	return []schema.Event{{
		Name:        schema.EventHeirAccepted,
		Description: "Administrator accepts user as an heir.",
		Addrs:       []common.Address{requester},
		Values: []*big.Int{
			new(big.Int).SetUint64(share),
			big.NewInt(int64(len(i.requests))),
			big.NewInt(int64(len(i.heirs))),
		},
	}}, nil
}

func (i *Inheritance) RejectRequest(caller common.Address, index int, requester common.Address) ([]schema.Event, error) {
	if err := i.onlyAdministrator(caller); err != nil {
		return nil, err
	}
	if err := i.guardRequestAt(index, requester); err != nil {
		return nil, err
	}
	i.removeRequestAt(index)
	return []schema.Event{{
		Name:        schema.EventHeirRejected,
		Description: "Administrator rejects user's request to be an heir.",
		Addrs:       []common.Address{requester},
		Values:      []*big.Int{big.NewInt(int64(len(i.requests))), big.NewInt(int64(len(i.heirs)))},
	}}, nil
}

// ---- claiming ----

// Claim pays out the caller's share of both pools, integer-truncated. The
// remainder of the division stays in the pool. The claimed flag makes the
// second call fail; share math alone would not be idempotent because the
// pools shrink after every claim.
func (i *Inheritance) Claim(caller common.Address, now int64) (events []schema.Event, etherAmount, usdcAmount *big.Int, err error) {
	heir := i.heirByAddress(caller)
	if heir == nil {
		return nil, nil, nil, Revert(schema.ReasonNotHeir)
	}
	if !i.admin.IsDead(now) {
		return nil, nil, nil, Revert(schema.ReasonNotYetDead)
	}
	if heir.Claimed {
		return nil, nil, nil, Revert(schema.ReasonAlreadyClaimed)
	}

	share := new(big.Int).SetUint64(heir.Share)
	hundred := big.NewInt(schema.MaxShares)
	etherAmount = new(big.Int).Div(new(big.Int).Mul(i.etherBalance, share), hundred)
	usdcAmount = new(big.Int).Div(new(big.Int).Mul(i.usdcBalance, share), hundred)

	i.etherBalance.Sub(i.etherBalance, etherAmount)
	i.usdcBalance.Sub(i.usdcBalance, usdcAmount)

	heir.EtherBalance = new(big.Int).Set(etherAmount)
	heir.USDCBalance = new(big.Int).Set(usdcAmount)
	heir.Claimed = true

	events = []schema.Event{{
		Name:        schema.EventHeirClaiming,
		Description: "Ether and USDC money sent to the heir.",
		Addrs:       []common.Address{caller},
		Values: []*big.Int{
			new(big.Int).SetUint64(heir.Share),
			new(big.Int).Set(etherAmount),
			new(big.Int).Set(usdcAmount),
			new(big.Int).Set(i.etherBalance),
			new(big.Int).Set(i.usdcBalance),
		},
	}}
	return events, etherAmount, usdcAmount, nil
}

// ---- NFT deed assignments ----

func (i *Inheritance) AddNFTDeed(caller common.Address, tokenId uint64, heirAddr common.Address) ([]schema.Event, error) {
	if err := i.onlyAdministrator(caller); err != nil {
		return nil, err
	}
	heir := i.heirByAddress(heirAddr)
	if heir == nil {
		return nil, Revert(schema.ReasonNoMatchingHeir)
	}
	// reassignable until execution: drop any previous assignment first
	for _, h := range i.heirs {
		h.NFTDeedIds = removeTokenId(h.NFTDeedIds, tokenId)
	}
	heir.NFTDeedIds = append(heir.NFTDeedIds, tokenId)
	return []schema.Event{{
		Name:        schema.EventNFTDeedAdded,
		Description: "Administrator assigns an NFT deed to an heir.",
		Addrs:       []common.Address{heirAddr},
		Values:      []*big.Int{new(big.Int).SetUint64(tokenId)},
	}}, nil
}

func (i *Inheritance) RemoveNFTDeed(caller common.Address, tokenId uint64, heirAddr common.Address) ([]schema.Event, error) {
	if err := i.onlyAdministrator(caller); err != nil {
		return nil, err
	}
	heir := i.heirByAddress(heirAddr)
	if heir == nil {
		return nil, Revert(schema.ReasonNoMatchingHeir)
	}
	heir.NFTDeedIds = removeTokenId(heir.NFTDeedIds, tokenId)
	return []schema.Event{{
		Name:        schema.EventNFTDeedRemoved,
		Description: "Administrator removes an NFT deed assignment.",
		Addrs:       []common.Address{heirAddr},
		Values:      []*big.Int{new(big.Int).SetUint64(tokenId)},
	}}, nil
}

func removeTokenId(ids []uint64, tokenId uint64) []uint64 {
	for idx, id := range ids {
		if id == tokenId {
			return append(ids[:idx], ids[idx+1:]...)
		}
	}
	return ids
}

// ---- reads ----

func (i *Inheritance) Requests() []common.Address {
	out := make([]common.Address, len(i.requests))
	for idx, r := range i.requests {
		out[idx] = r.addr
	}
	return out
}

func (i *Inheritance) HasRequestFrom(addr common.Address) bool {
	for _, r := range i.requests {
		if r.addr == addr {
			return true
		}
	}
	return false
}

func (i *Inheritance) Heirs() []schema.Heir {
	out := make([]schema.Heir, len(i.heirs))
	for idx, h := range i.heirs {
		out[idx] = copyHeir(h)
	}
	return out
}

func (i *Inheritance) HeirsAddresses() []common.Address {
	out := make([]common.Address, len(i.heirs))
	for idx, h := range i.heirs {
		out[idx] = h.Address
	}
	return out
}

func (i *Inheritance) HeirByAddress(addr common.Address) (schema.Heir, error) {
	h := i.heirByAddress(addr)
	if h == nil {
		return schema.Heir{}, Revert(schema.ReasonNoMatchingHeir)
	}
	return copyHeir(h), nil
}

func (i *Inheritance) IsHeir(addr common.Address) bool {
	return i.heirByAddress(addr) != nil
}

func (i *Inheritance) IsClaimedBy(addr common.Address) bool {
	h := i.heirByAddress(addr)
	return h != nil && h.Claimed
}

func (i *Inheritance) TotalShares() uint64 {
	return i.totalShares
}

func (i *Inheritance) EtherBalance() *big.Int {
	return new(big.Int).Set(i.etherBalance)
}

func (i *Inheritance) USDCBalance() *big.Int {
	return new(big.Int).Set(i.usdcBalance)
}

func (i *Inheritance) NFTDeedsByHeir(addr common.Address) ([]uint64, error) {
	h := i.heirByAddress(addr)
	if h == nil {
		return nil, Revert(schema.ReasonNoMatchingHeir)
	}
	out := make([]uint64, len(h.NFTDeedIds))
	copy(out, h.NFTDeedIds)
	return out, nil
}

func (i *Inheritance) State(now int64) schema.InheritanceState {
	return schema.InheritanceState{
		Address:       i.address,
		Administrator: i.admin,
		Requests:      i.Requests(),
		Heirs:         i.Heirs(),
		TotalShares:   i.totalShares,
		EtherBalance:  i.EtherBalance(),
		USDCBalance:   i.USDCBalance(),
		Dead:          i.admin.IsDead(now),
	}
}

func copyHeir(h *schema.Heir) schema.Heir {
	out := *h
	out.EtherBalance = new(big.Int).Set(h.EtherBalance)
	out.USDCBalance = new(big.Int).Set(h.USDCBalance)
	out.NFTDeedIds = append([]uint64(nil), h.NFTDeedIds...)
	return out
}
