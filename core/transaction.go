package core

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CallPayload is the {call: contract_address, args: [i64...]} transaction
// variant (spec §3).
type CallPayload struct {
	Address string  `json:"address"`
	Args    []int64 `json:"args"`
}

// ContractPayload is the tagged {deploy|call} variant a transaction may
// carry. Exactly one of Deploy/Call is set; a plain transfer carries
// neither.
type ContractPayload struct {
	Deploy string       `json:"deploy,omitempty"`
	Call   *CallPayload `json:"call,omitempty"`
}

// Transaction is the signed, structured payload defined in spec §3. Field
// names and JSON ordering are part of the wire format (spec §6) and must not
// be changed without breaking cross-node hash agreement.
type Transaction struct {
	ID              string           `json:"id"`
	Sender          string           `json:"sender"`
	Recipient       string           `json:"recipient"`
	Amount          uint64           `json:"amount"`
	Timestamp       int64            `json:"timestamp"`
	Signature       []byte           `json:"signature,omitempty"`
	PublicKey       []byte           `json:"public_key,omitempty"`
	ContractPayload *ContractPayload `json:"contract_payload,omitempty"`
}

// NewTransaction builds an unsigned plain transfer with a fresh 128-bit
// random id and the current wall-clock timestamp. Callers sign it with
// Wallet.Sign before submission.
func NewTransaction(sender, recipient Address, amount uint64) *Transaction {
	return &Transaction{
		ID:        uuid.NewString(),
		Sender:    string(sender),
		Recipient: string(recipient),
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewSystemTransaction builds the coinbase transaction the miner prepends to
// every mined block, paying MiningReward to the miner's address (spec §4.3).
func NewSystemTransaction(recipient Address, amount uint64) *Transaction {
	return &Transaction{
		ID:        uuid.NewString(),
		Sender:    SystemSender,
		Recipient: string(recipient),
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
	}
}

// CanonicalHash is SHA-256 over the UTF-8 concatenation
// id|sender|recipient|amount|timestamp (spec §3/GLOSSARY).
func (tx *Transaction) CanonicalHash() Hash {
	s := fmt.Sprintf("%s|%s|%s|%d|%d", tx.ID, tx.Sender, tx.Recipient, tx.Amount, tx.Timestamp)
	return sha256.Sum256([]byte(s))
}

// validateStructure checks the structural invariants submit() enforces
// before signature verification (spec §4.3): a present id, a present
// recipient, and a non-system sender. Amount is unsigned so amount >= 0 is
// guaranteed by the type.
func (tx *Transaction) validateStructure() error {
	if tx.ID == "" {
		return newErr(ErrMalformed, "missing id", nil)
	}
	if tx.Recipient == "" {
		return newErr(ErrMalformed, "missing recipient", nil)
	}
	if tx.Sender == "" {
		return newErr(ErrMalformed, "missing sender", nil)
	}
	if tx.IsSystem() {
		return newErr(ErrMalformed, "system transactions are created only by the miner", nil)
	}
	if tx.ContractPayload != nil {
		if tx.ContractPayload.Deploy == "" && tx.ContractPayload.Call == nil {
			return newErr(ErrMalformed, "contract_payload set but empty", nil)
		}
		if tx.ContractPayload.Deploy != "" && tx.ContractPayload.Call != nil {
			return newErr(ErrMalformed, "contract_payload carries both deploy and call", nil)
		}
	}
	return nil
}

// IsSystem reports whether tx is a coinbase-style system transaction.
func (tx *Transaction) IsSystem() bool { return tx.Sender == SystemSender }
