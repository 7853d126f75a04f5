package core

import "testing"

func TestContractRegistryDeployAndGet(t *testing.T) {
	r := NewContractRegistry()
	c, err := r.Deploy("0xdeployer", "PUSH 1\nHALT", 1000)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	got, ok := r.Get(c.Address)
	if !ok {
		t.Fatal("expected to find the deployed contract by address")
	}
	if len(got.Code) != 2 {
		t.Fatalf("expected 2 compiled instructions, got %d", len(got.Code))
	}
	if got.Storage == nil {
		t.Fatal("expected freshly deployed storage to be non-nil")
	}
}

func TestContractRegistryDeployRejectsBadSource(t *testing.T) {
	r := NewContractRegistry()
	if _, err := r.Deploy("0xdeployer", "NOTANOP", 1000); err == nil {
		t.Fatal("expected deploy to fail compiling invalid source")
	}
}

func TestDeriveContractAddressDeterministicAndUnique(t *testing.T) {
	a1 := deriveContractAddress("0xa", 1000)
	a2 := deriveContractAddress("0xa", 1000)
	if a1 != a2 {
		t.Fatal("deriveContractAddress should be deterministic for identical inputs")
	}
	if deriveContractAddress("0xa", 1001) == a1 {
		t.Fatal("expected a different timestamp to derive a different address")
	}
	if deriveContractAddress("0xb", 1000) == a1 {
		t.Fatal("expected a different deployer to derive a different address")
	}
}

func TestContractRegistryCloneIsIndependent(t *testing.T) {
	r := NewContractRegistry()
	c, err := r.Deploy("0xdeployer", "PUSH 1\nHALT", 1000)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	c.Storage[1] = 99

	clone := r.Clone()
	cloned, ok := clone.Get(c.Address)
	if !ok {
		t.Fatal("expected cloned registry to contain the contract")
	}
	cloned.Storage[1] = 7
	if c.Storage[1] != 99 {
		t.Fatal("mutating the clone's storage should not affect the original")
	}
}
