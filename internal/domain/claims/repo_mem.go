package claims

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryClaimRepo is a mutex-guarded claim store for tests and
// single-process development runs. Claims are kept newest-first.
type InMemoryClaimRepo struct {
	mu     sync.RWMutex
	claims map[string]*Claim
	order  []string // ids, newest first
	seqs   map[int]int
}

func NewInMemoryClaimRepo() *InMemoryClaimRepo {
	return &InMemoryClaimRepo{
		claims: make(map[string]*Claim),
		seqs:   make(map[int]int),
	}
}

func (r *InMemoryClaimRepo) Create(ctx context.Context, c *Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.claims[c.ID] = &cp
	r.order = append([]string{c.ID}, r.order...)
	return nil
}

func (r *InMemoryClaimRepo) GetByID(ctx context.Context, id string) (*Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *InMemoryClaimRepo) Update(ctx context.Context, c *Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.claims[c.ID]; !ok {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	r.claims[c.ID] = &cp
	return nil
}

func (r *InMemoryClaimRepo) List(ctx context.Context) ([]*Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Claim, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.claims[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *InMemoryClaimRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Claim
	for _, id := range r.order {
		if c := r.claims[id]; c.HospitalID == hospitalID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *InMemoryClaimRepo) ListByStatus(ctx context.Context, statuses ...ClaimStatus) ([]*Claim, error) {
	want := make(map[ClaimStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Claim
	for _, id := range r.order {
		if c := r.claims[id]; want[c.Status] {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *InMemoryClaimRepo) NextSequence(ctx context.Context, year int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs[year]++
	return r.seqs[year], nil
}

// InMemoryAuditRepo is an append-only in-memory audit log. Seq is assigned
// under the lock, so the total order matches append order.
type InMemoryAuditRepo struct {
	mu      sync.RWMutex
	entries []*AuditLogEntry
	nextSeq int64
}

func NewInMemoryAuditRepo() *InMemoryAuditRepo {
	return &InMemoryAuditRepo{nextSeq: 1}
}

func (r *InMemoryAuditRepo) Append(ctx context.Context, e *AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Seq = r.nextSeq
	r.nextSeq++
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *InMemoryAuditRepo) ListByClaim(ctx context.Context, claimID string) ([]*AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*AuditLogEntry
	for _, e := range r.entries {
		if e.ClaimID == claimID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sortAuditNewestFirst(out)
	return out, nil
}

func (r *InMemoryAuditRepo) List(ctx context.Context) ([]*AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*AuditLogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		cp := *e
		out = append(out, &cp)
	}
	sortAuditNewestFirst(out)
	return out, nil
}

func sortAuditNewestFirst(entries []*AuditLogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Seq > entries[j].Seq
	})
}
