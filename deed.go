package inheritchain

import (
	"math/big"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/ethereum/go-ethereum/common"
)

// TitleDeed is the NFT deed registry. Minted deeds stay in registry custody;
// the administrator field tracks the logical owner, which flips to the heirs
// when a dead administrator's inheritance is executed.
type TitleDeed struct {
	address     common.Address
	lastTokenId uint64
	deeds       map[uint64]*schema.DeedNFT
	order       []uint64
	owners      map[uint64]common.Address
}

func NewTitleDeed(address common.Address) *TitleDeed {
	return &TitleDeed{
		address: address,
		deeds:   make(map[uint64]*schema.DeedNFT),
		owners:  make(map[uint64]common.Address),
	}
}

func (t *TitleDeed) Address() common.Address {
	return t.address
}

func (t *TitleDeed) mint(caller common.Address, tokenURI string) uint64 {
	t.lastTokenId++
	id := t.lastTokenId
	t.deeds[id] = &schema.DeedNFT{
		TokenId:       id,
		Administrator: caller,
		TokenURI:      tokenURI,
	}
	t.owners[id] = t.address
	t.order = append(t.order, id)
	return id
}

// ---- ledger operations ----

// SafeMint mints a deed for the caller and leaves it in registry custody.
func (l *Ledger) SafeMint(caller common.Address, tokenURI string) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		id := l.deed.mint(caller, tokenURI)
		return []schema.Event{{
			Name:        "LogDeedMinted",
			Description: "New title deed minted into registry custody.",
			Addrs:       []common.Address{caller, l.deed.address},
			Values:      []*big.Int{new(big.Int).SetUint64(id)},
		}}, nil
	})
}

// ExecuteInheritance irrevocably hands every assigned deed of a dead
// administrator's inheritance over to its heir. Reassignment ends here.
func (l *Ledger) ExecuteInheritance(caller, inheritance common.Address) (*schema.Receipt, error) {
	return l.write(func(now int64) ([]schema.Event, error) {
		inh, err := l.inheritanceAt(inheritance)
		if err != nil {
			return nil, err
		}
		if !inh.IsAdministratorDead(now) {
			return nil, Revert(schema.ReasonOwnerStillAlive)
		}
		var transferred int64
		events := make([]schema.Event, 0, 1)
		for _, heir := range inh.Heirs() {
			for _, tokenId := range heir.NFTDeedIds {
				deed, ok := l.deed.deeds[tokenId]
				if !ok {
					continue
				}
				deed.Administrator = heir.Address
				l.deed.owners[tokenId] = heir.Address
				transferred++
			}
		}
		events = append(events, schema.Event{
			Name:        schema.EventInheritanceExecuted,
			Description: "All assigned NFT deeds transferred to the heirs.",
			Addrs:       []common.Address{caller, inheritance},
			Values:      []*big.Int{big.NewInt(transferred)},
		})
		return events, nil
	})
}

// ---- deed reads ----

func (l *Ledger) TokenURI(tokenId uint64) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	deed, ok := l.deed.deeds[tokenId]
	if !ok {
		return "", ErrTokenNotExist
	}
	return deed.TokenURI, nil
}

func (l *Ledger) GetLastTokenId() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.deed.lastTokenId
}

func (l *Ledger) GetLastElement() (schema.DeedNFT, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.deed.order) == 0 {
		return schema.DeedNFT{}, ErrTokenNotExist
	}
	return *l.deed.deeds[l.deed.order[len(l.deed.order)-1]], nil
}

func (l *Ledger) GetElementByTokenId(tokenId uint64) (schema.DeedNFT, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	deed, ok := l.deed.deeds[tokenId]
	if !ok {
		return schema.DeedNFT{}, ErrTokenNotExist
	}
	return *deed, nil
}

// GetAdministratorNFTs lists the deeds the caller logically owns, in mint
// order.
func (l *Ledger) GetAdministratorNFTs(caller common.Address) []schema.DeedNFT {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]schema.DeedNFT, 0, 4)
	for _, id := range l.deed.order {
		if deed := l.deed.deeds[id]; deed.Administrator == caller {
			out = append(out, *deed)
		}
	}
	return out
}

func (l *Ledger) OwnerOf(tokenId uint64) (common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.deed.owners[tokenId]
	if !ok {
		return common.Address{}, ErrTokenNotExist
	}
	return owner, nil
}
