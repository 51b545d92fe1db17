package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/feral-file/ff-flow/internal/domain"
)

type memoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*domain.Workflow
	users     map[string]*domain.User
	alerts    map[string]*domain.PortfolioAlert
	templates map[string]*domain.Template
	holdings  []domain.Holding
	now       func() time.Time
}

// NewMemoryStore creates a process local store
func NewMemoryStore() Store {
	return &memoryStore{
		workflows: make(map[string]*domain.Workflow),
		users:     make(map[string]*domain.User),
		alerts:    make(map[string]*domain.PortfolioAlert),
		templates: make(map[string]*domain.Template),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryStore) GetWorkflow(_ context.Context, id string) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
	}
	return w.Clone(), nil
}

func (s *memoryStore) ListWorkflows(_ context.Context, filter WorkflowFilter) ([]*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := domain.NormalizeAddress(filter.UserAddress)
	result := make([]*domain.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		if filter.ActiveOnly && !w.IsActive {
			continue
		}
		if user != "" && domain.NormalizeAddress(w.UserAddress) != user {
			continue
		}
		if filter.PortfolioAlertID != "" && w.PortfolioAlertID != filter.PortfolioAlertID {
			continue
		}
		result = append(result, w.Clone())
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *memoryStore) UpsertWorkflow(_ context.Context, w *domain.Workflow) error {
	if w == nil || w.ID == "" {
		return fmt.Errorf("workflow id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := w.Clone()
	c.UserAddress = domain.NormalizeAddress(c.UserAddress)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	s.workflows[c.ID] = c
	return nil
}

func (s *memoryStore) UpdateWorkflow(_ context.Context, id string, fn WorkflowMutator) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	s.workflows[id] = next
	return next.Clone(), nil
}

func (s *memoryStore) DeleteWorkflow(_ context.Context, id string) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
	}
	delete(s.workflows, id)
	return w, nil
}

func (s *memoryStore) GetUser(_ context.Context, address string) (*domain.User, error) {
	key := domain.NormalizeAddress(address)
	if key == "" {
		return nil, fmt.Errorf("%w: empty address", domain.ErrUserNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userLocked(key).Clone(), nil
}

// userLocked returns the stored user, creating it with defaults. Caller holds the write lock.
func (s *memoryStore) userLocked(key string) *domain.User {
	u, ok := s.users[key]
	if !ok {
		u = domain.NewUser(key, s.now())
		s.users[key] = u
	}
	return u
}

func (s *memoryStore) UpsertUser(_ context.Context, u *domain.User) error {
	if u == nil || domain.NormalizeAddress(u.Address) == "" {
		return fmt.Errorf("user address is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := u.Clone()
	c.Address = domain.NormalizeAddress(c.Address)
	s.users[c.Address] = c
	return nil
}

func (s *memoryStore) UpdateUser(_ context.Context, address string, fn UserMutator) (*domain.User, error) {
	key := domain.NormalizeAddress(address)
	if key == "" {
		return nil, fmt.Errorf("%w: empty address", domain.ErrUserNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.userLocked(key).Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Address = key
	next.UpdatedAt = s.now()
	s.users[key] = next
	return next.Clone(), nil
}

func (s *memoryStore) FindUserByAPIKey(_ context.Context, apiKey string) (*domain.User, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: empty api key", domain.ErrUserNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.APIKey == apiKey {
			return u.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown api key", domain.ErrUserNotFound)
}

func (s *memoryStore) GetAlert(_ context.Context, id string) (*domain.PortfolioAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
	}
	return a.Clone(), nil
}

func (s *memoryStore) ListAlerts(_ context.Context, filter AlertFilter) ([]*domain.PortfolioAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := domain.NormalizeAddress(filter.UserAddress)
	result := make([]*domain.PortfolioAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if user != "" && domain.NormalizeAddress(a.UserAddress) != user {
			continue
		}
		result = append(result, a.Clone())
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *memoryStore) UpsertAlert(_ context.Context, a *domain.PortfolioAlert) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("alert id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := a.Clone()
	c.UserAddress = domain.NormalizeAddress(c.UserAddress)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	s.alerts[c.ID] = c
	return nil
}

func (s *memoryStore) UpdateAlert(_ context.Context, id string, fn AlertMutator) (*domain.PortfolioAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	s.alerts[id] = next
	return next.Clone(), nil
}

func (s *memoryStore) DeleteAlert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerts[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
	}
	delete(s.alerts, id)
	return nil
}

func (s *memoryStore) GetTemplate(_ context.Context, id string) (*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	return t.Clone(), nil
}

func (s *memoryStore) ListTemplates(_ context.Context, filter TemplateFilter) ([]*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := domain.NormalizeAddress(filter.UserAddress)
	result := make([]*domain.Template, 0, len(s.templates))
	for _, t := range s.templates {
		if user != "" && t.UserAddress != user {
			continue
		}
		result = append(result, t.Clone())
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *memoryStore) UpsertTemplate(_ context.Context, t *domain.Template) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("template id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := t.Clone()
	c.UserAddress = domain.NormalizeAddress(c.UserAddress)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	s.templates[c.ID] = c
	return nil
}

func (s *memoryStore) UpdateTemplate(_ context.Context, id string, fn TemplateMutator) (*domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	next.UserAddress = cur.UserAddress
	s.templates[id] = next
	return next.Clone(), nil
}

func (s *memoryStore) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	delete(s.templates, id)
	return nil
}

func (s *memoryStore) GetHoldings(_ context.Context) ([]domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.holdings), nil
}

func (s *memoryStore) SetHoldings(_ context.Context, holdings []domain.Holding) error {
	normalized, err := normalizeHoldings(holdings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.holdings = normalized
	return nil
}

// normalizeHoldings upper-cases symbols, merges duplicates and sorts by symbol
func normalizeHoldings(holdings []domain.Holding) ([]domain.Holding, error) {
	bySymbol := make(map[string]domain.Holding, len(holdings))
	for _, h := range holdings {
		symbol := strings.ToUpper(strings.TrimSpace(h.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("holding symbol is required")
		}
		if h.Amount.IsNegative() {
			return nil, fmt.Errorf("holding amount for %s must not be negative", symbol)
		}
		existing, ok := bySymbol[symbol]
		if ok {
			existing.Amount = existing.Amount.Add(h.Amount)
			bySymbol[symbol] = existing
			continue
		}
		bySymbol[symbol] = domain.Holding{Symbol: symbol, Amount: h.Amount}
	}

	result := make([]domain.Holding, 0, len(bySymbol))
	for _, h := range bySymbol {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result, nil
}
