package inheritchain

import (
	"math/big"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/ethereum/go-ethereum/common"
)

const MaxPendingInheritances = 3

// HeirsAdministration is the cross-inheritance registry: per requester it
// keeps the pending targets (capped), the approved ones and a retained
// rejection history. Reconciliation against each target's authoritative
// heir/request lists is pull-based, there is no push notification.
type HeirsAdministration struct {
	pending  map[common.Address][]common.Address
	rejected map[common.Address][]common.Address
	approved map[common.Address][]common.Address
}

func NewHeirsAdministration() *HeirsAdministration {
	return &HeirsAdministration{
		pending:  make(map[common.Address][]common.Address),
		rejected: make(map[common.Address][]common.Address),
		approved: make(map[common.Address][]common.Address),
	}
}

func (h *HeirsAdministration) addPending(caller, inheritance common.Address) error {
	if len(h.pending[caller]) >= MaxPendingInheritances {
		return Revert(schema.ReasonPendingLimit)
	}
	h.pending[caller] = append(h.pending[caller], inheritance)
	return nil
}

func (h *HeirsAdministration) removePending(caller, inheritance common.Address) bool {
	list := h.pending[caller]
	for idx, addr := range list {
		if addr == inheritance {
			last := len(list) - 1
			list[idx] = list[last]
			h.pending[caller] = list[:last]
			return true
		}
	}
	return false
}

// ---- ledger operations ----

// AddPendingInheritance records a fan-out target for the caller and forwards
// the heir request to the target inheritance when it exists. A request the
// target already holds is left as is, matching the silent no-op of the source
// chain when the forwarded call lands twice.
func (l *Ledger) AddPendingInheritance(caller, inheritance common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		if err := l.heirsAdmin.addPending(caller, inheritance); err != nil {
			return nil, err
		}
		events := []schema.Event{{
			Name:        schema.EventPendingInheritanceAdded,
			Description: "User adds an inheritance to his pending requests.",
			Addrs:       []common.Address{caller, inheritance},
			Values:      []*big.Int{big.NewInt(int64(len(l.heirsAdmin.pending[caller])))},
		}}
		inh := l.factory.ByAddress(inheritance)
		if inh == nil || inh.HasRequestFrom(caller) || inh.IsHeir(caller) {
			return events, nil
		}
		reqEvents, err := inh.RequestInheritance(caller)
		if err != nil {
			return nil, err
		}
		return append(events, reqEvents...), nil
	})
}

// RemovePendingInheritance withdraws a pending target; the entry moves to the
// retained rejection history and its slot frees up immediately.
func (l *Ledger) RemovePendingInheritance(caller, inheritance common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		if !l.heirsAdmin.removePending(caller, inheritance) {
			return nil, Revert(schema.ReasonNotPending)
		}
		l.heirsAdmin.rejected[caller] = append(l.heirsAdmin.rejected[caller], inheritance)
		return []schema.Event{{
			Name:        schema.EventPendingInheritanceGone,
			Description: "User removes an inheritance from his pending requests.",
			Addrs:       []common.Address{caller, inheritance},
		}}, nil
	})
}

// UpdatePendingInheritances is the batch reconciliation pass: every pending
// entry is checked against the target's heir and request lists. Present in
// heirs means approved, absent from both means rejected, still queued means
// pending. Targets the factory does not know stay pending; they cannot be
// judged yet.
func (l *Ledger) UpdatePendingInheritances(caller common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		var approved, rejected int64
		remaining := l.heirsAdmin.pending[caller][:0]
		for _, addr := range l.heirsAdmin.pending[caller] {
			inh := l.factory.ByAddress(addr)
			switch {
			case inh == nil:
				remaining = append(remaining, addr)
			case inh.IsHeir(caller):
				l.heirsAdmin.approved[caller] = append(l.heirsAdmin.approved[caller], addr)
				approved++
			case !inh.HasRequestFrom(caller):
				l.heirsAdmin.rejected[caller] = append(l.heirsAdmin.rejected[caller], addr)
				rejected++
			default:
				remaining = append(remaining, addr)
			}
		}
		l.heirsAdmin.pending[caller] = remaining
		return []schema.Event{{
			Name:        schema.EventPendingUpdated,
			Description: "User reconciles his pending requests against the target inheritances.",
			Addrs:       []common.Address{caller},
			Values:      []*big.Int{big.NewInt(approved), big.NewInt(rejected), big.NewInt(int64(len(remaining)))},
		}}, nil
	})
}

// ---- registry reads ----

func (l *Ledger) GetPendingInheritances(caller common.Address) []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]common.Address(nil), l.heirsAdmin.pending[caller]...)
}

// GetRejectedInheritances returns the full retained history; the API layer
// surfaces only the most recent entries.
func (l *Ledger) GetRejectedInheritances(caller common.Address) []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]common.Address(nil), l.heirsAdmin.rejected[caller]...)
}

func (l *Ledger) GetApprovedInheritances(caller common.Address) []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]common.Address(nil), l.heirsAdmin.approved[caller]...)
}

// RegistryHeirs lists every address that still has pending targets, for the
// background reconciliation sweep.
func (l *Ledger) RegistryHeirs() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res := make([]common.Address, 0, len(l.heirsAdmin.pending))
	for addr, targets := range l.heirsAdmin.pending {
		if len(targets) > 0 {
			res = append(res, addr)
		}
	}
	return res
}

func (l *Ledger) HasPendingInheritances(caller common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.heirsAdmin.pending[caller]) > 0
}

func (l *Ledger) HasRejectedInheritances(caller common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.heirsAdmin.rejected[caller]) > 0
}
