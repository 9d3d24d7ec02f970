package appchain

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type Receipt struct {
	TransactionHash     HexBytes       `json:"transactionHash"`
	TransactionIndex    hexutil.Uint64 `json:"transactionIndex"`
	BlockHash           HexBytes       `json:"blockHash"`
	BlockNumber         hexutil.Uint64 `json:"blockNumber"`
	CumulativeQuotaUsed hexutil.Big    `json:"cumulativeQuotaUsed"`
	QuotaUsed           hexutil.Big    `json:"quotaUsed"`
	ContractAddress     *Address       `json:"contractAddress"`
	Logs                []ReceiptLog   `json:"logs"`
	Root                *HexBytes      `json:"root"`
	LogsBloom           HexBytes       `json:"logsBloom"`
	ErrorMessage        *string        `json:"errorMessage"`
}

// Failed reports whether the node attached an execution error to the receipt.
func (r *Receipt) Failed() bool {
	return r.ErrorMessage != nil
}

type ReceiptLog struct {
	Address          Address        `json:"address"`
	Topics           []HexBytes     `json:"topics"`
	Data             HexBytes       `json:"data"`
	BlockNumber      hexutil.Uint64 `json:"blockNumber"`
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	LogIndex         hexutil.Uint64 `json:"logIndex"`
}

type SendTransactionResult struct {
	Hash   HexBytes `json:"hash"`
	Status string   `json:"status"`
}

// ReceiptRef is the persisted summary of a receipt the client has observed.
type ReceiptRef struct {
	Hash            string `json:"hash"`
	BlockNumber     uint64 `json:"blockNumber"`
	ContractAddress string `json:"contractAddress,omitempty"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
}

func (r *Receipt) Ref() ReceiptRef {
	ref := ReceiptRef{
		Hash:        r.TransactionHash.String(),
		BlockNumber: uint64(r.BlockNumber),
	}
	if r.ContractAddress != nil {
		ref.ContractAddress = r.ContractAddress.String()
	}
	if r.ErrorMessage != nil {
		ref.ErrorMessage = *r.ErrorMessage
	}
	return ref
}
