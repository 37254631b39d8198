package inheritchain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/EnzoRoselli/InheritChain/common"
	"github.com/EnzoRoselli/InheritChain/schema"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Wallet stands in for the signing layer in front of the ledger. It can veto
// a submission (user declined, client out of sync) before the write is sent.
type Wallet interface {
	Approve(caller ethcommon.Address, op string) error
}

type autoApprove struct{}

func (autoApprove) Approve(ethcommon.Address, string) error { return nil }

// Client is the typed wrapper over ledger calls. Reads never fail for fee
// reasons; writes cost a submission and come back either as a receipt or as a
// classified error. The client guarantees at-most-once submission per
// invocation, not at-most-once effect: callers must re-read state before
// retrying anything that was actually submitted.
type Client struct {
	ledger *Ledger
	wallet Wallet
}

func NewClient(ledger *Ledger, wallet Wallet) *Client {
	if wallet == nil {
		wallet = autoApprove{}
	}
	return &Client{ledger: ledger, wallet: wallet}
}

// Classify maps a low-level failure onto the client error taxonomy. Reverts
// keep their ledger reason; everything unrecognized becomes an unknown
// transaction failure.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserDeclined),
		errors.Is(err, ErrNetworkUnsynced),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInvalidNumericInput),
		errors.Is(err, ErrNoInheritance),
		errors.Is(err, ErrTokenNotExist),
		errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrNullAddress):
		return err
	default:
		if _, ok := RevertReason(err); ok {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnknownTxFailure, err)
	}
}

// IsRetryable reports failures that can be retried with the exact same
// intent. Reverts are excluded: their precondition must be re-read first.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUserDeclined) || errors.Is(err, ErrNetworkUnsynced)
}

func (c *Client) send(caller ethcommon.Address, op string, fn func() (*schema.Receipt, error)) (*schema.Receipt, error) {
	if err := c.wallet.Approve(caller, op); err != nil {
		common.TxSubmitted.WithLabelValues(op, "failed").Inc()
		return nil, Classify(err)
	}
	receipt, err := fn()
	if err != nil {
		if reason, ok := RevertReason(err); ok {
			common.TxReverted.WithLabelValues(reason).Inc()
			common.TxSubmitted.WithLabelValues(op, "reverted").Inc()
			return nil, err
		}
		common.TxSubmitted.WithLabelValues(op, "failed").Inc()
		return nil, Classify(err)
	}
	common.TxSubmitted.WithLabelValues(op, "ok").Inc()
	return receipt, nil
}

// ---- unit conversion ----
// Amounts cross the ledger boundary as integers in the smallest unit; the
// conversion to and from human-decimal strings is exact, never floating
// point.

func ParseAmount(value string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, ErrInvalidNumericInput
	}
	if d.IsNegative() {
		return nil, ErrInvalidNumericInput
	}
	if d.Exponent() < -decimals {
		// more fractional digits than the asset can represent
		return nil, ErrInvalidNumericInput
	}
	return d.Shift(decimals).BigInt(), nil
}

func FormatAmount(units *big.Int, decimals int32) string {
	if units == nil {
		return "0"
	}
	return decimal.NewFromBigInt(units, -decimals).String()
}

func ParseEther(value string) (*big.Int, error) {
	return ParseAmount(value, schema.EtherDecimals)
}

func FormatEther(wei *big.Int) string {
	return FormatAmount(wei, schema.EtherDecimals)
}

func ParseUSDC(value string) (*big.Int, error) {
	return ParseAmount(value, schema.USDCDecimals)
}

func FormatUSDC(units *big.Int) string {
	return FormatAmount(units, schema.USDCDecimals)
}

func ParseAddress(value string) (ethcommon.Address, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return ethcommon.Address{}, ErrNullAddress
	}
	if !ethcommon.IsHexAddress(value) {
		return ethcommon.Address{}, ErrInvalidAddress
	}
	return ethcommon.HexToAddress(value), nil
}

// ---- writes ----

func (c *Client) CreateInheritance(caller ethcommon.Address, aliveTimeOut int64, usdcToken ethcommon.Address) (*schema.Receipt, error) {
	if aliveTimeOut < 0 {
		return nil, ErrInvalidNumericInput
	}
	return c.send(caller, "createInheritance", func() (*schema.Receipt, error) {
		return c.ledger.CreateInheritance(caller, aliveTimeOut, usdcToken)
	})
}

func (c *Client) Deposit(caller, inheritance ethcommon.Address, ether string) (*schema.Receipt, error) {
	wei, err := ParseEther(ether)
	if err != nil {
		return nil, err
	}
	return c.send(caller, "deposit", func() (*schema.Receipt, error) {
		return c.ledger.Deposit(caller, inheritance, wei)
	})
}

func (c *Client) DepositUSDC(caller, inheritance ethcommon.Address, usdc string) (*schema.Receipt, error) {
	units, err := ParseUSDC(usdc)
	if err != nil {
		return nil, err
	}
	return c.send(caller, "depositUSDC", func() (*schema.Receipt, error) {
		return c.ledger.DepositUSDC(caller, inheritance, units)
	})
}

func (c *Client) Withdraw(caller, inheritance ethcommon.Address, ether string) (*schema.Receipt, error) {
	wei, err := ParseEther(ether)
	if err != nil {
		return nil, err
	}
	return c.send(caller, "withdraw", func() (*schema.Receipt, error) {
		return c.ledger.Withdraw(caller, inheritance, wei)
	})
}

func (c *Client) WithdrawUSDC(caller, inheritance ethcommon.Address, usdc string) (*schema.Receipt, error) {
	units, err := ParseUSDC(usdc)
	if err != nil {
		return nil, err
	}
	return c.send(caller, "withdrawUSDC", func() (*schema.Receipt, error) {
		return c.ledger.WithdrawUSDC(caller, inheritance, units)
	})
}

func (c *Client) SignalAlive(caller, inheritance ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "signalAlive", func() (*schema.Receipt, error) {
		return c.ledger.SignalAlive(caller, inheritance)
	})
}

func (c *Client) UpdateAliveTimeOut(caller, inheritance ethcommon.Address, seconds int64) (*schema.Receipt, error) {
	if seconds < 0 {
		return nil, ErrInvalidNumericInput
	}
	return c.send(caller, "updateAliveTimeOut", func() (*schema.Receipt, error) {
		return c.ledger.UpdateAliveTimeOut(caller, inheritance, seconds)
	})
}

func (c *Client) RequestInheritance(caller, inheritance ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "requestInheritance", func() (*schema.Receipt, error) {
		return c.ledger.RequestInheritance(caller, inheritance)
	})
}

func (c *Client) AcceptInheritanceRequest(caller, inheritance ethcommon.Address, index int, requester ethcommon.Address, share uint64) (*schema.Receipt, error) {
	if share > schema.MaxShares {
		return nil, ErrInvalidNumericInput
	}
	return c.send(caller, "acceptInheritanceRequest", func() (*schema.Receipt, error) {
		return c.ledger.AcceptInheritanceRequest(caller, inheritance, index, requester, share)
	})
}

func (c *Client) RejectInheritanceRequest(caller, inheritance ethcommon.Address, index int, requester ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "rejectInheritanceRequest", func() (*schema.Receipt, error) {
		return c.ledger.RejectInheritanceRequest(caller, inheritance, index, requester)
	})
}

func (c *Client) ClaimInheritance(caller, inheritance ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "claimInheritance", func() (*schema.Receipt, error) {
		return c.ledger.ClaimInheritance(caller, inheritance)
	})
}

func (c *Client) AddNFTDeed(caller, inheritance ethcommon.Address, tokenId uint64, heir ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "addNFTDeed", func() (*schema.Receipt, error) {
		return c.ledger.AddNFTDeed(caller, inheritance, tokenId, heir)
	})
}

func (c *Client) RemoveNFTDeed(caller, inheritance ethcommon.Address, tokenId uint64, heir ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "removeNFTDeed", func() (*schema.Receipt, error) {
		return c.ledger.RemoveNFTDeed(caller, inheritance, tokenId, heir)
	})
}

func (c *Client) AddPendingInheritance(caller, inheritance ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "addPendingInheritance", func() (*schema.Receipt, error) {
		return c.ledger.AddPendingInheritance(caller, inheritance)
	})
}

func (c *Client) RemovePendingInheritance(caller, inheritance ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "removePendingInheritance", func() (*schema.Receipt, error) {
		return c.ledger.RemovePendingInheritance(caller, inheritance)
	})
}

func (c *Client) UpdatePendingInheritances(caller ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "updatePendingInheritances", func() (*schema.Receipt, error) {
		return c.ledger.UpdatePendingInheritances(caller)
	})
}

func (c *Client) SafeMint(caller ethcommon.Address, tokenURI string) (*schema.Receipt, error) {
	return c.send(caller, "safeMint", func() (*schema.Receipt, error) {
		return c.ledger.SafeMint(caller, tokenURI)
	})
}

func (c *Client) ExecuteInheritance(caller, inheritance ethcommon.Address) (*schema.Receipt, error) {
	return c.send(caller, "executeInheritance", func() (*schema.Receipt, error) {
		return c.ledger.ExecuteInheritance(caller, inheritance)
	})
}

// ---- reads ----
// Thin passthroughs; read calls carry no fee and no wallet round-trip.

func (c *Client) InheritanceOf(admin ethcommon.Address) (ethcommon.Address, error) {
	return c.ledger.InheritanceOf(admin)
}

func (c *Client) IsAdmin(caller ethcommon.Address) bool {
	return c.ledger.IsAdmin(caller)
}

func (c *Client) InheritanceState(inheritance ethcommon.Address) (schema.InheritanceState, error) {
	return c.ledger.InheritanceState(inheritance)
}

func (c *Client) IsAdministratorDead(inheritance ethcommon.Address) (bool, error) {
	return c.ledger.IsAdministratorDead(inheritance)
}

func (c *Client) GetLastAlive(inheritance ethcommon.Address) (int64, error) {
	return c.ledger.GetLastAlive(inheritance)
}

func (c *Client) GetAliveTimeOut(caller, inheritance ethcommon.Address) (int64, error) {
	return c.ledger.GetAliveTimeOut(caller, inheritance)
}

func (c *Client) GetInheritanceRequests(inheritance ethcommon.Address) ([]ethcommon.Address, error) {
	return c.ledger.GetInheritanceRequests(inheritance)
}

func (c *Client) GetHeirs(inheritance ethcommon.Address) ([]schema.Heir, error) {
	return c.ledger.GetHeirs(inheritance)
}

func (c *Client) GetHeirByAddress(inheritance, heir ethcommon.Address) (schema.Heir, error) {
	return c.ledger.GetHeirByAddress(inheritance, heir)
}

func (c *Client) GetTotalShares(inheritance ethcommon.Address) (uint64, error) {
	return c.ledger.GetTotalShares(inheritance)
}

func (c *Client) GetEtherBalance(inheritance ethcommon.Address) (*big.Int, error) {
	return c.ledger.GetEtherBalance(inheritance)
}

func (c *Client) GetUSDCBalance(inheritance ethcommon.Address) (*big.Int, error) {
	return c.ledger.GetUSDCBalance(inheritance)
}

func (c *Client) GetIsInheritanceClaimed(caller, inheritance ethcommon.Address) (bool, error) {
	return c.ledger.GetIsInheritanceClaimed(caller, inheritance)
}

func (c *Client) GetPendingInheritances(caller ethcommon.Address) []ethcommon.Address {
	return c.ledger.GetPendingInheritances(caller)
}

func (c *Client) GetRejectedInheritances(caller ethcommon.Address) []ethcommon.Address {
	return c.ledger.GetRejectedInheritances(caller)
}

func (c *Client) GetApprovedInheritances(caller ethcommon.Address) []ethcommon.Address {
	return c.ledger.GetApprovedInheritances(caller)
}

func (c *Client) GetHeirsAddresses(inheritance ethcommon.Address) ([]ethcommon.Address, error) {
	return c.ledger.GetHeirsAddresses(inheritance)
}

func (c *Client) GetNFTDeedsByHeirAddress(inheritance, heir ethcommon.Address) ([]uint64, error) {
	return c.ledger.GetNFTDeedsByHeirAddress(inheritance, heir)
}

func (c *Client) TokenURI(tokenId uint64) (string, error) {
	return c.ledger.TokenURI(tokenId)
}

func (c *Client) GetElementByTokenId(tokenId uint64) (schema.DeedNFT, error) {
	return c.ledger.GetElementByTokenId(tokenId)
}

func (c *Client) OwnerOf(tokenId uint64) (ethcommon.Address, error) {
	return c.ledger.OwnerOf(tokenId)
}

func (c *Client) GetAdministratorNFTs(caller ethcommon.Address) []schema.DeedNFT {
	return c.ledger.GetAdministratorNFTs(caller)
}
