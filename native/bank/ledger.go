package bank

import (
	"errors"
	"fmt"
	"math/big"

	"escrowmarket/core/types"
)

var (
	errNilState = errors.New("bank: account state not configured")

	// ErrInsufficientBalance is returned when the source account cannot cover
	// the transfer.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")

	// ErrNegativeAmount is returned for a transfer or mint of a negative
	// amount.
	ErrNegativeAmount = errors.New("bank: negative amount")
)

type accountState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Ledger moves balances between marketplace accounts. It is the transfer
// collaborator the escrow engine hands payout instructions to; swapping it out
// lets the state machine be tested without real fund movement.
type Ledger struct {
	state accountState
}

// NewLedger constructs a ledger over the supplied account state.
func NewLedger(state accountState) *Ledger {
	return &Ledger{state: state}
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// Transfer moves amount from one account to the other. A zero amount is a
// no-op; the source must hold at least the amount.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	fromAcc, err := l.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromAcc.Balance, amount)
	}
	// Debiting and crediting two clones of the same account would let the
	// credit win and grow the balance out of thin air.
	if from == to {
		return nil
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.state.PutAccount(to, toAcc)
}

// Mint credits an account out of thin air. It exists for seeding balances at
// bootstrap and in tests; nothing in the purchase lifecycle mints.
func (l *Ledger) Mint(addr [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return l.state.PutAccount(addr, acc)
}

// Balance reports the spendable balance held by the account.
func (l *Ledger) Balance(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	acc = ensureAccount(acc)
	return new(big.Int).Set(acc.Balance), nil
}
