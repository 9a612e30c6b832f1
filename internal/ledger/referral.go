// internal/ledger/referral.go
package ledger

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// ReferralBook maps buyers to the referrer credited on their purchases.
// Recording is last-write-wins: a buyer's referrer is whoever was named on
// their most recent buy, not an accumulating set.
type ReferralBook struct {
	mu        sync.RWMutex
	referrers map[solana.PublicKey]solana.PublicKey
}

func NewReferralBook() *ReferralBook {
	return &ReferralBook{referrers: make(map[solana.PublicKey]solana.PublicKey)}
}

// Record remembers referrer as the buyer's current referrer.
func (b *ReferralBook) Record(buyer, referrer solana.PublicKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.referrers[buyer] = referrer
}

// ReferrerOf returns the buyer's recorded referrer, if any.
func (b *ReferralBook) ReferrerOf(buyer solana.PublicKey) (solana.PublicKey, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ref, ok := b.referrers[buyer]
	return ref, ok
}

// Len reports how many buyers have a recorded referrer.
func (b *ReferralBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.referrers)
}
