package schema

import (
	"github.com/ethereum/go-ethereum/common"
)

// DeedNFT is one title deed held in custody by the deed registry until the
// linked inheritance is executed. Administrator is the current logical owner.
type DeedNFT struct {
	TokenId       uint64         `json:"tokenId"`
	Administrator common.Address `json:"administrator"`
	TokenURI      string         `json:"tokenURI"`
}

// DeedMetadata is the off-chain JSON document a deed tokenURI resolves to.
type DeedMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}
