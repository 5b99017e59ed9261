package bank

import (
	"errors"
	"math/big"
	"testing"

	"escrowmarket/core/types"
)

type mockAccounts struct {
	accounts map[[20]byte]*types.Account
}

func newMockAccounts() *mockAccounts {
	return &mockAccounts{accounts: make(map[[20]byte]*types.Account)}
}

func (m *mockAccounts) GetAccount(addr [20]byte) (*types.Account, error) {
	if acc, ok := m.accounts[addr]; ok {
		return acc.Clone(), nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

func (m *mockAccounts) PutAccount(addr [20]byte, account *types.Account) error {
	m.accounts[addr] = account.Clone()
	return nil
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestTransferMovesBalance(t *testing.T) {
	state := newMockAccounts()
	ledger := NewLedger(state)
	alice, bob := addr(0x01), addr(0x02)
	if err := ledger.Mint(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(alice, bob, big.NewInt(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	aliceBal, _ := ledger.Balance(alice)
	bobBal, _ := ledger.Balance(bob)
	if aliceBal.Cmp(big.NewInt(600)) != 0 || bobBal.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected balances: alice=%s bob=%s", aliceBal, bobBal)
	}
}

func TestTransferRejectsOverdraft(t *testing.T) {
	ledger := NewLedger(newMockAccounts())
	alice, bob := addr(0x01), addr(0x02)
	if err := ledger.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := ledger.Transfer(alice, bob, big.NewInt(101))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	aliceBal, _ := ledger.Balance(alice)
	if aliceBal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("failed transfer mutated balance: %s", aliceBal)
	}
}

func TestTransferRejectsNegativeAmount(t *testing.T) {
	ledger := NewLedger(newMockAccounts())
	if err := ledger.Transfer(addr(0x01), addr(0x02), big.NewInt(-5)); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestTransferToSelfIsNoop(t *testing.T) {
	ledger := NewLedger(newMockAccounts())
	alice := addr(0x01)
	if err := ledger.Mint(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(alice, alice, big.NewInt(600)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	bal, _ := ledger.Balance(alice)
	if bal.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("self transfer changed balance: %s", bal)
	}
	// Still subject to the balance check.
	if err := ledger.Transfer(alice, alice, big.NewInt(1001)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestTransferZeroIsNoop(t *testing.T) {
	ledger := NewLedger(newMockAccounts())
	if err := ledger.Transfer(addr(0x01), addr(0x02), big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
	if err := ledger.Transfer(addr(0x01), addr(0x02), nil); err != nil {
		t.Fatalf("nil transfer: %v", err)
	}
}
