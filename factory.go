package inheritchain

import (
	"math/big"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Factory deploys at most one Inheritance per administrator address.
type Factory struct {
	byAdmin   map[common.Address]*Inheritance
	byAddress map[common.Address]*Inheritance
	deployed  []common.Address
}

func NewFactory() *Factory {
	return &Factory{
		byAdmin:   make(map[common.Address]*Inheritance),
		byAddress: make(map[common.Address]*Inheritance),
	}
}

func (f *Factory) Create(admin common.Address, aliveTimeOut int64, usdcToken common.Address, now int64) ([]schema.Event, error) {
	if _, ok := f.byAdmin[admin]; ok {
		return nil, Revert(schema.ReasonAlreadyDeployed)
	}
	addr := crypto.CreateAddress(admin, uint64(len(f.deployed)))
	inh := NewInheritance(addr, admin, aliveTimeOut, usdcToken, now)
	f.byAdmin[admin] = inh
	f.byAddress[addr] = inh
	f.deployed = append(f.deployed, addr)

	return []schema.Event{{
		Name:        schema.EventInheritanceCreated,
		Description: "Log all the values: Administrator address, Inheritance contract address, Number of inheritances deployed.",
		Addrs:       []common.Address{admin, addr},
		Values:      []*big.Int{big.NewInt(int64(len(f.deployed)))},
	}}, nil
}

func (f *Factory) ByAdmin(admin common.Address) *Inheritance {
	return f.byAdmin[admin]
}

func (f *Factory) ByAddress(addr common.Address) *Inheritance {
	return f.byAddress[addr]
}

func (f *Factory) Count() int {
	return len(f.deployed)
}
