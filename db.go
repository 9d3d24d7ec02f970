package appchain

import (
	"time"
)

// Deployment records a contract created through the client.
type Deployment struct {
	Address     string    `json:"address"`
	TxHash      string    `json:"txHash"`
	BlockNumber uint64    `json:"blockNumber"`
	Deployer    string    `json:"deployer"`
	Abi         string    `json:"abi,omitempty"`
	AbiStored   bool      `json:"abiStored"`
	AbiTxHash   string    `json:"abiTxHash,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Database interface {
	AddDeployment(deployment Deployment) (err error)
	GetDeployment(address string) (deployment Deployment, err error)
	ListDeployments() (deployments []Deployment, err error)
	SetAbiStored(address, txHash string) (err error)

	AddReceipt(ref ReceiptRef) (err error)
	GetReceipt(hash string) (ref ReceiptRef, err error)

	Close() error
}
