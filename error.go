package appchain

import (
	"fmt"
)

var (
	ErrRpcFailed          = fmt.Errorf("rpc failed")
	ErrReceiptTimeout     = fmt.Errorf("fetch transaction receipt overtime")
	ErrReceiptNotFound    = fmt.Errorf("receipt not found")
	ErrStoreAbiFailed     = fmt.Errorf("store abi failure")
	ErrTransactionFailed  = fmt.Errorf("transaction failed")
	ErrInvalidAddress     = fmt.Errorf("invalid address")
	ErrInvalidPrivateKey  = fmt.Errorf("invalid private key")
	ErrInvalidAbi         = fmt.Errorf("invalid abi")
	ErrUnsupportedCrypto  = fmt.Errorf("unsupported crypto type")
	ErrNoContractAddress  = fmt.Errorf("receipt has no contract address")
	ErrDeploymentNotFound = fmt.Errorf("deployment not found")
	ErrAbiNotFound        = fmt.Errorf("abi not found")
)

// AllErrors is used to map an error string received over the wire back onto
// the matching sentinel.
var AllErrors = []error{
	ErrRpcFailed,
	ErrReceiptTimeout,
	ErrReceiptNotFound,
	ErrStoreAbiFailed,
	ErrTransactionFailed,
	ErrInvalidAddress,
	ErrInvalidPrivateKey,
	ErrInvalidAbi,
	ErrUnsupportedCrypto,
	ErrNoContractAddress,
	ErrDeploymentNotFound,
	ErrAbiNotFound,
}
