package appchain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

const testPrivateKey = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"
const testAddress = "970e8128ab834e8eac17ab8e3812f010678cf791"

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type pendingReceipt struct {
	receipt   map[string]any
	remaining int
}

// fakeNode is a minimal json-rpc node good enough for the client's calls.
type fakeNode struct {
	t      *testing.T
	server *httptest.Server
	mu     sync.Mutex

	blockNumber uint64
	meta        map[string]any

	// receiptDelay is how many getTransactionReceipt calls return null before
	// the receipt appears. A negative delay never produces one.
	receiptDelay int
	errorMessage *string
	dropAbi      bool
	failMethod   string

	sent         []*Transaction
	receipts     map[string]*pendingReceipt
	abis         map[string]string
	receiptPolls int
	abiTags      []string
	calls        map[string]int
}

func newFakeNode(t *testing.T, version uint32) *fakeNode {
	n := &fakeNode{
		t:           t,
		blockNumber: 100,
		meta: map[string]any{
			"chainId":   1,
			"chainIdV1": "0x0000000000000000000000000000000000000000000000000000000000000001",
			"chainName": "test-chain",
			"version":   version,
			"validators": []string{
				"0x" + testAddress,
			},
			"blockInterval": 3000,
		},
		receipts: make(map[string]*pendingReceipt),
		abis:     make(map[string]string),
		calls:    make(map[string]int),
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.handle))
	t.Cleanup(n.server.Close)
	return n
}

func (n *fakeNode) URL() string {
	return n.server.URL
}

func (n *fakeNode) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	require.NoError(n.t, err)

	req := rpcRequest{}
	require.NoError(n.t, json.Unmarshal(body, &req))

	n.mu.Lock()
	result, rpcErr := n.dispatch(req)
	n.mu.Unlock()

	rsp := map[string]any{
		"jsonrpc": "2.0",
		"id":      req.ID,
	}
	if rpcErr != nil {
		rsp["error"] = rpcErr
	} else {
		rsp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	require.NoError(n.t, json.NewEncoder(w).Encode(rsp))
}

func (n *fakeNode) param(req rpcRequest, i int) string {
	var s string
	require.Greater(n.t, len(req.Params), i, "missing param %d for %s", i, req.Method)
	require.NoError(n.t, json.Unmarshal(req.Params[i], &s))
	return s
}

func (n *fakeNode) dispatch(req rpcRequest) (any, *rpcErrorObject) {
	n.calls[req.Method]++

	if req.Method == n.failMethod {
		return nil, &rpcErrorObject{Code: -32000, Message: "node unavailable"}
	}

	switch req.Method {
	case "blockNumber":
		return fmt.Sprintf("0x%x", n.blockNumber), nil
	case "getMetaData":
		return n.meta, nil
	case "sendRawTransaction":
		return n.sendRaw(n.param(req, 0)), nil
	case "getTransactionReceipt":
		n.receiptPolls++
		pending, ok := n.receipts[n.param(req, 0)]
		if !ok || pending.remaining < 0 {
			return nil, nil
		}
		if pending.remaining > 0 {
			pending.remaining--
			return nil, nil
		}
		return pending.receipt, nil
	case "getAbi":
		addr := n.param(req, 0)
		n.abiTags = append(n.abiTags, n.param(req, 1))
		if abi, ok := n.abis[addr]; ok {
			return "0x" + hex.EncodeToString([]byte(abi)), nil
		}
		return "0x", nil
	case "getCode":
		n.param(req, 1)
		return "0x6080", nil
	case "getTransactionCount":
		n.param(req, 1)
		return fmt.Sprintf("0x%x", len(n.sent)), nil
	}

	return nil, &rpcErrorObject{Code: -32601, Message: "method not found"}
}

func (n *fakeNode) sendRaw(raw string) map[string]any {
	data, err := hex.DecodeString(TrimHexPrefix(raw))
	require.NoError(n.t, err)

	tx, sig, err := ParseUnverifiedTransaction(data)
	require.NoError(n.t, err)
	require.Len(n.t, sig, 65)

	body, err := tx.Marshal()
	require.NoError(n.t, err)

	h := sha3.NewLegacyKeccak256()
	h.Write(body)
	hash := "0x" + hex.EncodeToString(h.Sum(nil))

	n.sent = append(n.sent, tx)

	receipt := map[string]any{
		"transactionHash":  hash,
		"transactionIndex": "0x0",
		"blockHash":        "0x" + hex.EncodeToString(make([]byte, 32)),
		"blockNumber":      fmt.Sprintf("0x%x", n.blockNumber+1),
		"quotaUsed":        "0x5208",
		"contractAddress":  nil,
		"logs":             []any{},
		"errorMessage":     n.errorMessage,
	}

	switch {
	case tx.To == nil:
		contract := BytesToAddress(h.Sum(nil))
		receipt["contractAddress"] = contract.Hex()
	case *tx.To == AbiAddress && n.errorMessage == nil && !n.dropAbi:
		contract := BytesToAddress(tx.Data[:AddressLength])
		n.abis[contract.Hex()] = string(tx.Data[AddressLength:])
	}

	remaining := n.receiptDelay
	n.receipts[hash] = &pendingReceipt{receipt: receipt, remaining: remaining}

	return map[string]any{"hash": hash, "status": "OK"}
}
