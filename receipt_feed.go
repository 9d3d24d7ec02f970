package appchain

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const receiptFeedBuffer = 64

// receiptFeed fans polled receipts out to subscribers. Each subscription has
// its own buffered channel and goroutine so a slow callback only delays its
// own deliveries.
type receiptFeed struct {
	mu       sync.RWMutex
	subs     map[uint64]*receiptSubscription
	nextID   uint64
	pending  sync.WaitGroup
	isClosed bool
}

type receiptSubscription struct {
	hash     string
	receipts chan *Receipt
	callback func(receipt *Receipt)
}

func newReceiptFeed() *receiptFeed {
	return &receiptFeed{subs: make(map[uint64]*receiptSubscription)}
}

// subscribe registers callback for receipts of the given tx hash, or for every
// receipt when hash is empty.
func (f *receiptFeed) subscribe(hash string, callback func(receipt *Receipt)) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isClosed {
		return func() {}
	}

	id := f.nextID
	f.nextID++

	if hash != "" {
		hash = normaliseHash(hash)
	}

	sub := &receiptSubscription{
		hash:     hash,
		receipts: make(chan *Receipt, receiptFeedBuffer),
		callback: callback,
	}
	f.subs[id] = sub

	go func() {
		for receipt := range sub.receipts {
			sub.callback(receipt)
			f.pending.Done()
		}
	}()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if s, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(s.receipts)
		}
	}
}

func (s *receiptSubscription) matches(receipt *Receipt) bool {
	return s.hash == "" || s.hash == strings.ToLower(receipt.TransactionHash.String())
}

func (f *receiptFeed) publish(receipt *Receipt) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.isClosed || receipt == nil {
		return
	}

	for _, sub := range f.subs {
		if !sub.matches(receipt) {
			continue
		}

		f.pending.Add(1)
		select {
		case sub.receipts <- receipt:
		default:
			go func(s *receiptSubscription) {
				s.callback(receipt)
				f.pending.Done()
			}(sub)
		}
	}
}

// drain waits for every receipt published so far to reach its subscribers.
func (f *receiptFeed) drain(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		f.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.Errorf("receipt subscribers still busy after %s", timeout)
	}
}

func (f *receiptFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isClosed {
		return
	}
	f.isClosed = true

	for id, sub := range f.subs {
		close(sub.receipts)
		delete(f.subs, id)
	}
}
