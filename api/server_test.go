package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ironledger/core"
)

// newTestServer builds a Server around a real Orchestrator bound to a
// loopback-only libp2p host, so handlers exercise the exact code path a
// running node would (no peers ever connect in these tests).
func newTestServer(t *testing.T) (*Server, *core.Orchestrator) {
	t.Helper()
	miner, err := core.NewWallet()
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}
	orch, err := core.NewOrchestrator(core.OrchestratorConfig{
		Difficulty:   0,
		MiningReward: 10,
		MinerAddress: miner.Addr,
		MempoolMax:   100,
		Net: core.NetConfig{
			ListenAddr:   "/ip4/127.0.0.1/tcp/0",
			DiscoveryTag: "ironledger-test",
		},
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	t.Cleanup(func() { _ = orch.Close() })
	return NewServer(orch, nil), orch
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, r)
	return w
}

func TestHandleNodeInfoAndChain(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/node/info", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/chain", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var blocks []*core.Block
	if err := json.Unmarshal(w.Body.Bytes(), &blocks); err != nil {
		t.Fatalf("decode chain: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected a fresh chain to hold just the genesis block, got %d", len(blocks))
	}
}

func TestHandleMineAndBalance(t *testing.T) {
	srv, orch := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/blocks/mine", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	info := orch.Info()
	if info.TipIndex != 1 {
		t.Fatalf("expected tip index 1 after mining, got %d", info.TipIndex)
	}

	var block core.Block
	if err := json.Unmarshal(w.Body.Bytes(), &block); err != nil {
		t.Fatalf("decode mined block: %v", err)
	}
	if len(block.Transactions) == 0 {
		t.Fatal("expected the mined block to carry the coinbase transaction")
	}
	w = doJSON(t, srv, http.MethodGet, "/api/balance/"+block.Transactions[0].Recipient, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var bal struct {
		Balance int64 `json:"balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &bal); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if bal.Balance != 10 {
		t.Fatalf("expected the miner's balance to be the reward 10, got %d", bal.Balance)
	}
}

func TestHandleSubmitTransactionRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestHandleSubmitTransactionRejectsBadSignature(t *testing.T) {
	srv, _ := newTestServer(t)
	wallet, err := core.NewWallet()
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}
	tx := core.NewTransaction(wallet.Addr, "0xb", 1)
	// Unsigned: Verify should reject it before it reaches the mempool.
	w := doJSON(t, srv, http.MethodPost, "/api/transactions", tx)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an unsigned transaction, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleBlockNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/blocks/99", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleNewWalletAndPeers(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/wallet/new", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["address"] == "" {
		t.Fatal("expected a non-empty generated address")
	}

	w = doJSON(t, srv, http.MethodGet, "/api/peers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleContractDeployCallAndProof(t *testing.T) {
	srv, _ := newTestServer(t)
	deployer, err := core.NewWallet()
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}

	deployTx := core.NewTransaction(deployer.Addr, deployer.Addr, 0)
	deployTx.ContractPayload = &core.ContractPayload{Deploy: "PUSH 1\nPUSH 2\nADD\nLOG\nHALT"}
	if err := deployer.Sign(deployTx); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	w := doJSON(t, srv, http.MethodPost, "/api/contracts/deploy", deployTx)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 deploying a valid contract, got %d: %s", w.Code, w.Body.String())
	}
	var deployResp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &deployResp); err != nil {
		t.Fatalf("decode deploy response: %v", err)
	}
	addr := deployResp["address"]
	if addr == "" {
		t.Fatal("expected a contract address in the deploy response")
	}

	callTx := core.NewTransaction(deployer.Addr, deployer.Addr, 0)
	callTx.ContractPayload = &core.ContractPayload{Call: &core.CallPayload{Address: addr}}
	if err := deployer.Sign(callTx); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	w = doJSON(t, srv, http.MethodPost, "/api/contracts/call", callTx)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 calling the deployed contract, got %d: %s", w.Code, w.Body.String())
	}
	var receipt core.Receipt
	if err := json.Unmarshal(w.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if !receipt.Success || len(receipt.Logs) != 1 || receipt.Logs[0] != 3 {
		t.Fatalf("expected successful receipt logging 3, got %+v", receipt)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/transactions/"+callTx.ID+"/proof", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for an included transaction's proof, got %d: %s", w.Code, w.Body.String())
	}
}
