package credential

import "time"

// MaxLedgerSize is the maximum number of refresh records kept per account.
const MaxLedgerSize = 5

// RefreshRecord is one issued refresh token. Hash is a Secret Hasher digest
// of the full token; the plaintext is never stored.
type RefreshRecord struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	UserAgent string    `json:"user_agent,omitempty"`
	OriginIP  string    `json:"origin_ip,omitempty"`
}

// Live reports whether the record can still be exchanged at now.
func (r *RefreshRecord) Live(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}

// Ledger is an account's refresh-token history in insertion order.
// Its length never exceeds MaxLedgerSize.
type Ledger struct {
	Records []RefreshRecord `json:"records"`
}

// Len returns the number of records, revoked ones included.
func (l *Ledger) Len() int { return len(l.Records) }

// Insert appends rec and evicts the oldest records beyond MaxLedgerSize.
// It returns the evicted records.
func (l *Ledger) Insert(rec RefreshRecord) []RefreshRecord {
	l.Records = append(l.Records, rec)
	if over := len(l.Records) - MaxLedgerSize; over > 0 {
		evicted := append([]RefreshRecord(nil), l.Records[:over]...)
		l.Records = append(l.Records[:0:0], l.Records[over:]...)
		return evicted
	}
	return nil
}

// Find returns the record with the given id, or nil.
func (l *Ledger) Find(id string) *RefreshRecord {
	for i := range l.Records {
		if l.Records[i].ID == id {
			return &l.Records[i]
		}
	}
	return nil
}

// Revoke marks the record with the given id revoked. It reports whether the
// record existed and was not already revoked.
func (l *Ledger) Revoke(id string) bool {
	rec := l.Find(id)
	if rec == nil || rec.Revoked {
		return false
	}
	rec.Revoked = true
	return true
}

// RevokeAll marks every record revoked and returns how many changed.
func (l *Ledger) RevokeAll() int {
	n := 0
	for i := range l.Records {
		if !l.Records[i].Revoked {
			l.Records[i].Revoked = true
			n++
		}
	}
	return n
}

// LiveCount returns the number of records that are neither revoked nor expired.
func (l *Ledger) LiveCount(now time.Time) int {
	n := 0
	for i := range l.Records {
		if l.Records[i].Live(now) {
			n++
		}
	}
	return n
}

// PruneExpired removes unrevoked records whose expiry has passed.
func (l *Ledger) PruneExpired(now time.Time) int {
	return l.prune(func(r *RefreshRecord) bool { return !r.Revoked && !now.Before(r.ExpiresAt) })
}

// PruneRevoked removes every revoked record.
func (l *Ledger) PruneRevoked() int {
	return l.prune(func(r *RefreshRecord) bool { return r.Revoked })
}

// NextExpiry returns the earliest expiry among unrevoked records.
func (l *Ledger) NextExpiry() (time.Time, bool) {
	var (
		next  time.Time
		found bool
	)
	for i := range l.Records {
		r := &l.Records[i]
		if r.Revoked {
			continue
		}
		if !found || r.ExpiresAt.Before(next) {
			next, found = r.ExpiresAt, true
		}
	}
	return next, found
}

// HasRevoked reports whether any record is revoked.
func (l *Ledger) HasRevoked() bool {
	for i := range l.Records {
		if l.Records[i].Revoked {
			return true
		}
	}
	return false
}

func (l *Ledger) prune(drop func(*RefreshRecord) bool) int {
	kept := l.Records[:0]
	removed := 0
	for i := range l.Records {
		if drop(&l.Records[i]) {
			removed++
			continue
		}
		kept = append(kept, l.Records[i])
	}
	l.Records = kept
	return removed
}

func (l Ledger) clone() Ledger {
	if l.Records == nil {
		return Ledger{}
	}
	return Ledger{Records: append([]RefreshRecord(nil), l.Records...)}
}
