package workflow

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"loomworks/internal/domain"
)

// In-memory stores keep the default wiring dependency-free and the tests
// fast. They intentionally favor clarity over performance.

// InMemoryEntityStore holds one map per entity domain. Records are stored as
// JSON so reads hand out independent copies, mirroring a real store's
// serialization boundary.
type InMemoryEntityStore struct {
	mu      sync.RWMutex
	records map[domain.EntityType]map[uuid.UUID][]byte
}

func NewInMemoryEntityStore() *InMemoryEntityStore {
	records := make(map[domain.EntityType]map[uuid.UUID][]byte, len(domain.EntityTypes))
	for _, t := range domain.EntityTypes {
		records[t] = make(map[uuid.UUID][]byte)
	}
	return &InMemoryEntityStore{records: records}
}

func (s *InMemoryEntityStore) Save(_ context.Context, record domain.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Type()][record.Workflow().ID] = data
	return nil
}

func (s *InMemoryEntityStore) Find(_ context.Context, entityType domain.EntityType, id uuid.UUID) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[entityType][id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.decode(entityType, data)
}

func (s *InMemoryEntityStore) List(_ context.Context, entityType domain.EntityType) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(entityType, func(domain.Record) bool { return true })
}

func (s *InMemoryEntityStore) ListByManager(_ context.Context, entityType domain.EntityType, managerID uuid.UUID) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(entityType, func(r domain.Record) bool {
		return r.Workflow().ManagerID == managerID
	})
}

func (s *InMemoryEntityStore) FindByUnique(_ context.Context, entityType domain.EntityType, key domain.UniqueKey) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, data := range s.records[entityType] {
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		if v, ok := fields[key.Field].(string); ok && v == key.Value {
			return s.decode(entityType, data)
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryEntityStore) decode(entityType domain.EntityType, data []byte) (domain.Record, error) {
	desc, _ := domain.Describe(entityType)
	return desc.Decode(data)
}

func (s *InMemoryEntityStore) collect(entityType domain.EntityType, match func(domain.Record) bool) ([]domain.Record, error) {
	var out []domain.Record
	for _, data := range s.records[entityType] {
		record, err := s.decode(entityType, data)
		if err != nil {
			return nil, err
		}
		if match(record) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Workflow().CreatedAt.Before(out[j].Workflow().CreatedAt)
	})
	return out, nil
}

// InMemorySubmissionStore is the append-only submission ledger.
type InMemorySubmissionStore struct {
	mu          sync.RWMutex
	submissions map[uuid.UUID]Submission
	order       []uuid.UUID
}

func NewInMemorySubmissionStore() *InMemorySubmissionStore {
	return &InMemorySubmissionStore{submissions: make(map[uuid.UUID]Submission)}
}

func (s *InMemorySubmissionStore) Append(_ context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = sub
	s.order = append(s.order, sub.ID)
	return nil
}

func (s *InMemorySubmissionStore) Find(_ context.Context, id uuid.UUID) (Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.submissions[id]; ok {
		return sub, nil
	}
	return Submission{}, ErrNotFound
}

func (s *InMemorySubmissionStore) UpdateStatus(_ context.Context, id uuid.UUID, status SubmissionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return ErrNotFound
	}
	sub.Status = status
	s.submissions[id] = sub
	return nil
}

func (s *InMemorySubmissionStore) ListByStatus(_ context.Context, status SubmissionStatus) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Submission
	// Oldest first so the review queue is first-come first-served.
	for _, id := range s.order {
		if sub := s.submissions[id]; sub.Status == status {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *InMemorySubmissionStore) ListResolved(_ context.Context, limit int) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Submission
	// Newest first for the resolved window on the governance feed.
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if sub := s.submissions[s.order[i]]; sub.Status != SubmissionPending {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *InMemorySubmissionStore) CountByStatus(_ context.Context) (map[SubmissionStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[SubmissionStatus]int)
	for _, sub := range s.submissions {
		counts[sub.Status]++
	}
	return counts, nil
}

// InMemoryApprovalStore is the append-only decision ledger.
type InMemoryApprovalStore struct {
	mu        sync.RWMutex
	approvals []Approval
}

func NewInMemoryApprovalStore() *InMemoryApprovalStore {
	return &InMemoryApprovalStore{}
}

func (s *InMemoryApprovalStore) Append(_ context.Context, approval Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals = append(s.approvals, approval)
	return nil
}

func (s *InMemoryApprovalStore) ListBySubmission(_ context.Context, submissionID uuid.UUID) ([]Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Approval
	for _, a := range s.approvals {
		if a.SubmissionID == submissionID {
			out = append(out, a)
		}
	}
	return out, nil
}
