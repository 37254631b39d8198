package inheritchain

import (
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// Clock supplies ledger time. Liveness is judged against this clock, not the
// observer's wall clock.
type Clock func() time.Time

// EventSink receives the JSON body of every committed receipt.
type EventSink interface {
	Write(body []byte) error
}

// Ledger is the authoritative store the whole system reconciles against. One
// write fully applies before the next is considered; reads may interleave
// freely and can observe pre- or post-write state relative to a concurrent
// writer. All operations carry an explicit caller identity.
type Ledger struct {
	mu    sync.RWMutex
	clock Clock
	sink  EventSink

	factory    *Factory
	deed       *TitleDeed
	heirsAdmin *HeirsAdministration

	// external account balances, smallest units
	ether map[common.Address]*big.Int
	usdc  map[common.Address]*big.Int
}

type LedgerOption func(*Ledger)

func WithClock(c Clock) LedgerOption {
	return func(l *Ledger) { l.clock = c }
}

func WithSink(s EventSink) LedgerOption {
	return func(l *Ledger) { l.sink = s }
}

func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		clock: time.Now,
		ether: make(map[common.Address]*big.Int),
		usdc:  make(map[common.Address]*big.Int),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.factory = NewFactory()
	l.deed = NewTitleDeed(crypto.CreateAddress(common.Address{}, 0))
	l.heirsAdmin = NewHeirsAdministration()
	return l
}

func (l *Ledger) now() int64 {
	return l.clock().Unix()
}

// write serializes one state-changing call and wraps its events in a receipt.
func (l *Ledger) write(fn func(now int64) ([]schema.Event, error)) (*schema.Receipt, error) {
	l.mu.Lock()
	now := l.now()
	events, err := fn(now)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	receipt := &schema.Receipt{
		TxId:   uuid.NewString(),
		Time:   now,
		Events: events,
	}
	l.publish(receipt)
	return receipt, nil
}

func (l *Ledger) publish(receipt *schema.Receipt) {
	if l.sink == nil {
		return
	}
	body, err := json.Marshal(receipt)
	if err != nil {
		log.Error("marshal receipt", "err", err)
		return
	}
	if err := l.sink.Write(body); err != nil {
		log.Error("publish receipt", "txId", receipt.TxId, "err", err)
	}
}

// balanceOf returns a copy; the stored value is never handed out.
func balanceOf(m map[common.Address]*big.Int, addr common.Address) *big.Int {
	if b, ok := m[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func credit(m map[common.Address]*big.Int, addr common.Address, amount *big.Int) {
	if b, ok := m[addr]; ok {
		b.Add(b, amount)
		return
	}
	m[addr] = new(big.Int).Set(amount)
}

func debit(m map[common.Address]*big.Int, addr common.Address, amount *big.Int) error {
	b, ok := m[addr]
	if !ok || b.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	b.Sub(b, amount)
	return nil
}

// Fund seeds an external account with ether, like a dev-chain faucet.
func (l *Ledger) Fund(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	credit(l.ether, addr, amount)
}

// MintUSDC seeds an external account with test-token units.
func (l *Ledger) MintUSDC(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	credit(l.usdc, addr, amount)
}

func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return balanceOf(l.ether, addr)
}

func (l *Ledger) USDCBalanceOf(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return balanceOf(l.usdc, addr)
}

// inheritanceAt resolves a contract address under an already-held lock.
func (l *Ledger) inheritanceAt(addr common.Address) (*Inheritance, error) {
	inh := l.factory.ByAddress(addr)
	if inh == nil {
		return nil, ErrNoInheritance
	}
	return inh, nil
}

// ---- factory operations ----

func (l *Ledger) CreateInheritance(caller common.Address, aliveTimeOut int64, usdcToken common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		return l.factory.Create(caller, aliveTimeOut, usdcToken, now)
	})
}

func (l *Ledger) InheritanceOf(admin common.Address) (common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh := l.factory.ByAdmin(admin)
	if inh == nil {
		return common.Address{}, ErrNoInheritance
	}
	return inh.Address(), nil
}

func (l *Ledger) IsAdmin(caller common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.factory.ByAdmin(caller) != nil
}

func (l *Ledger) DeployedInheritancesCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.factory.Count()
}

// ---- inheritance writes ----

func (l *Ledger) Deposit(caller, inheritance common.Address, amount *big.Int) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		if err := debit(l.ether, caller, amount); err != nil {
			return nil, err
		}
		return inh.Deposit(caller, amount)
	})
}

func (l *Ledger) DepositUSDC(caller, inheritance common.Address, amount *big.Int) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		if err := debit(l.usdc, caller, amount); err != nil {
			return nil, err
		}
		return inh.DepositUSDC(caller, amount)
	})
}

func (l *Ledger) Withdraw(caller, inheritance common.Address, amount *big.Int) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		events, err := inh.Withdraw(caller, amount)
		if err != nil {
			return nil, err
		}
		credit(l.ether, caller, amount)
		return events, nil
	})
}

func (l *Ledger) WithdrawUSDC(caller, inheritance common.Address, amount *big.Int) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		events, err := inh.WithdrawUSDC(caller, amount)
		if err != nil {
			return nil, err
		}
		credit(l.usdc, caller, amount)
		return events, nil
	})
}

func (l *Ledger) SignalAlive(caller, inheritance common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		return inh.SignalAlive(caller, now)
	})
}

func (l *Ledger) UpdateAliveTimeOut(caller, inheritance common.Address, seconds int64) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		return inh.UpdateAliveTimeOut(caller, seconds)
	})
}

func (l *Ledger) RequestInheritance(caller, inheritance common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		return inh.RequestInheritance(caller)
	})
}

func (l *Ledger) AcceptInheritanceRequest(caller, inheritance common.Address, index int, requester common.Address, share uint64) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		return inh.AcceptRequest(caller, index, requester, share)
	})
}

func (l *Ledger) RejectInheritanceRequest(caller, inheritance common.Address, index int, requester common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		return inh.RejectRequest(caller, index, requester)
	})
}

func (l *Ledger) ClaimInheritance(caller, inheritance common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		events, etherAmount, usdcAmount, err := inh.Claim(caller, now)
		if err != nil {
			return nil, err
		}
		credit(l.ether, caller, etherAmount)
		credit(l.usdc, caller, usdcAmount)
		return events, nil
	})
}

func (l *Ledger) AddNFTDeed(caller, inheritance common.Address, tokenId uint64, heir common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		return inh.AddNFTDeed(caller, tokenId, heir)
	})
}

func (l *Ledger) RemoveNFTDeed(caller, inheritance common.Address, tokenId uint64, heir common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		return inh.RemoveNFTDeed(caller, tokenId, heir)
	})
}

// ---- inheritance reads ----

func (l *Ledger) InheritanceState(addr common.Address) (schema.InheritanceState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(addr)
	if err != nil {
		return schema.InheritanceState{}, err
	}
	return inh.State(l.now()), nil
}

func (l *Ledger) IsAdministratorDead(inheritance common.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return false, err
	}
	return inh.IsAdministratorDead(l.now()), nil
}

func (l *Ledger) GetLastAlive(inheritance common.Address) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return 0, err
	}
	return inh.LastAlive(), nil
}

// GetAliveTimeOut keeps the owner-only guard of the source contract.
func (l *Ledger) GetAliveTimeOut(caller, inheritance common.Address) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return 0, err
	}
	return inh.AliveTimeOut(caller)
}

func (l *Ledger) GetInheritanceRequests(inheritance common.Address) ([]common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return nil, err
	}
	return inh.Requests(), nil
}

func (l *Ledger) GetHeirs(inheritance common.Address) ([]schema.Heir, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return nil, err
	}
	return inh.Heirs(), nil
}

func (l *Ledger) GetHeirsAddresses(inheritance common.Address) ([]common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return nil, err
	}
	return inh.HeirsAddresses(), nil
}

func (l *Ledger) GetHeirByAddress(inheritance, heir common.Address) (schema.Heir, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return schema.Heir{}, err
	}
	return inh.HeirByAddress(heir)
}

func (l *Ledger) GetTotalShares(inheritance common.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return 0, err
	}
	return inh.TotalShares(), nil
}

func (l *Ledger) GetEtherBalance(inheritance common.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return nil, err
	}
	return inh.EtherBalance(), nil
}

func (l *Ledger) GetUSDCBalance(inheritance common.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return nil, err
	}
	return inh.USDCBalance(), nil
}

func (l *Ledger) GetNFTDeedsByHeirAddress(inheritance, heir common.Address) ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return nil, err
	}
	return inh.NFTDeedsByHeir(heir)
}

func (l *Ledger) GetIsInheritanceClaimed(caller, inheritance common.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inh, err := l.inheritanceAt(inheritance)
	if err != nil {
		return false, err
	}
	return inh.IsClaimedBy(caller), nil
}
