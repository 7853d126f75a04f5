package core

import "testing"

func TestCanonicalHashDeterministic(t *testing.T) {
	tx := &Transaction{ID: "abc", Sender: "0xaaa", Recipient: "0xbbb", Amount: 5, Timestamp: 123}
	h1 := tx.CanonicalHash()
	h2 := tx.CanonicalHash()
	if h1 != h2 {
		t.Fatal("CanonicalHash is not deterministic for the same fields")
	}

	other := &Transaction{ID: "abc", Sender: "0xaaa", Recipient: "0xbbb", Amount: 6, Timestamp: 123}
	if tx.CanonicalHash() == other.CanonicalHash() {
		t.Fatal("CanonicalHash should differ when amount differs")
	}
}

func TestValidateStructureRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		tx   *Transaction
	}{
		{"missing id", &Transaction{Sender: "0xa", Recipient: "0xb"}},
		{"missing sender", &Transaction{ID: "1", Recipient: "0xb"}},
		{"missing recipient", &Transaction{ID: "1", Sender: "0xa"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.tx.validateStructure(); KindOf(err) != ErrMalformed {
				t.Fatalf("expected Malformed, got %v", err)
			}
		})
	}
}

func TestValidateStructureRejectsAmbiguousContractPayload(t *testing.T) {
	tx := &Transaction{
		ID: "1", Sender: "0xa", Recipient: "0xb",
		ContractPayload: &ContractPayload{},
	}
	if err := tx.validateStructure(); KindOf(err) != ErrMalformed {
		t.Fatalf("expected Malformed for empty contract_payload, got %v", err)
	}

	tx.ContractPayload = &ContractPayload{Deploy: "PUSH 1", Call: &CallPayload{Address: "0xc"}}
	if err := tx.validateStructure(); KindOf(err) != ErrMalformed {
		t.Fatalf("expected Malformed for deploy+call set together, got %v", err)
	}
}

func TestIsSystem(t *testing.T) {
	sysTx := NewSystemTransaction("0xminer", 50)
	if !sysTx.IsSystem() {
		t.Fatal("expected system transaction to report IsSystem true")
	}
	plain := NewTransaction("0xa", "0xb", 1)
	if plain.IsSystem() {
		t.Fatal("expected plain transaction to report IsSystem false")
	}
}
