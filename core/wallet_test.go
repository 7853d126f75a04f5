package core

import "testing"

func TestNewWalletAddressDerivation(t *testing.T) {
	w, err := NewWallet()
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}
	if len(w.Addr) != 42 {
		t.Fatalf("expected 42-char address (0x + 40 hex), got %d: %s", len(w.Addr), w.Addr)
	}
	if w.Addr[:2] != "0x" {
		t.Fatalf("address missing 0x prefix: %s", w.Addr)
	}
	if got := pubKeyToAddress(w.Public); got != w.Addr {
		t.Fatalf("pubKeyToAddress(w.Public) = %s, want %s", got, w.Addr)
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	w, err := NewWallet()
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}
	tx := NewTransaction(w.Addr, Address("0xrecipient0000000000000000000000000000"), 10)
	if err := w.Sign(tx); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(tx); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRejectsTamperedAmount(t *testing.T) {
	w, _ := NewWallet()
	tx := NewTransaction(w.Addr, Address("0xrecipient0000000000000000000000000000"), 10)
	if err := w.Sign(tx); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Amount = 1000
	if err := Verify(tx); KindOf(err) != ErrInvalidSignature {
		t.Fatalf("expected InvalidSignature after tampering, got %v", err)
	}
}

func TestVerifyRejectsAddressMismatch(t *testing.T) {
	signer, _ := NewWallet()
	claimed, _ := NewWallet()
	tx := NewTransaction(claimed.Addr, Address("0xrecipient0000000000000000000000000000"), 10)
	if err := signer.Sign(tx); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(tx); KindOf(err) != ErrAddressMismatch {
		t.Fatalf("expected AddressMismatch, got %v", err)
	}
}

func TestVerifySkipsSystemTransactions(t *testing.T) {
	tx := NewSystemTransaction(Address("0xminer00000000000000000000000000000000"), 50)
	if err := Verify(tx); err != nil {
		t.Fatalf("system transaction should verify without a signature: %v", err)
	}
}

func TestNewWalletFromMnemonicRoundTrip(t *testing.T) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		t.Fatalf("NewMnemonic: %v", err)
	}
	w1, err := NewWalletFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("NewWalletFromMnemonic: %v", err)
	}
	w2, err := NewWalletFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("NewWalletFromMnemonic: %v", err)
	}
	if w1.Addr != w2.Addr {
		t.Fatalf("restoring from the same mnemonic produced different addresses: %s vs %s", w1.Addr, w2.Addr)
	}
}

func TestNewWalletFromMnemonicRejectsBadChecksum(t *testing.T) {
	_, err := NewWalletFromMnemonic("not a valid mnemonic phrase at all", "")
	if err == nil {
		t.Fatal("expected error for invalid mnemonic")
	}
}
