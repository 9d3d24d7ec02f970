package appchain

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type InMemoryDatabase struct {
	deployments map[string]Deployment
	receipts    map[string]ReceiptRef
	mu          sync.RWMutex
}

var _ Database = &InMemoryDatabase{}

func NewInMemoryDatabase() *InMemoryDatabase {
	return &InMemoryDatabase{
		deployments: make(map[string]Deployment),
		receipts:    make(map[string]ReceiptRef),
	}
}

func (db *InMemoryDatabase) Close() error { return nil }

func (db *InMemoryDatabase) AddDeployment(d Deployment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	d.Address = strings.ToLower(d.Address)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	db.deployments[d.Address] = d
	return nil
}

func (db *InMemoryDatabase) GetDeployment(address string) (Deployment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	d, ok := db.deployments[strings.ToLower(address)]
	if !ok {
		return Deployment{}, errors.Wrapf(ErrDeploymentNotFound, "no deployment at %s", address)
	}
	return d, nil
}

func (db *InMemoryDatabase) ListDeployments() ([]Deployment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]Deployment, 0, len(db.deployments))
	for _, d := range db.deployments {
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].Address < out[j].Address
	})

	return out, nil
}

func (db *InMemoryDatabase) SetAbiStored(address, txHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	address = strings.ToLower(address)

	d, ok := db.deployments[address]
	if !ok {
		d = Deployment{Address: address, CreatedAt: time.Now().UTC()}
	}
	d.AbiStored = true
	d.AbiTxHash = txHash
	db.deployments[address] = d

	return nil
}

func (db *InMemoryDatabase) AddReceipt(ref ReceiptRef) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ref.Hash = strings.ToLower(ref.Hash)
	db.receipts[ref.Hash] = ref
	return nil
}

func (db *InMemoryDatabase) GetReceipt(hash string) (ReceiptRef, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	ref, ok := db.receipts[strings.ToLower(hash)]
	if !ok {
		return ReceiptRef{}, errors.Wrapf(ErrReceiptNotFound, "receipt not found by hash %s", hash)
	}
	return ref, nil
}
