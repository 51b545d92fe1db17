package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/store/schema"
)

type pgStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates or updates the tables backing the store
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(schema.Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 10
//   - MaxIdleConns: 2
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 2
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Idle connections above the open limit are never used
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// GetWorkflow retrieves a workflow by id
func (s *pgStore) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	var row schema.Workflow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return fromWorkflowRow(&row)
}

// ListWorkflows retrieves workflows matching the filter
func (s *pgStore) ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]*domain.Workflow, error) {
	query := s.db.WithContext(ctx).Model(&schema.Workflow{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if user := domain.NormalizeAddress(filter.UserAddress); user != "" {
		query = query.Where("user_address = ?", user)
	}
	if filter.PortfolioAlertID != "" {
		query = query.Where("portfolio_alert_id = ?", filter.PortfolioAlertID)
	}

	var rows []schema.Workflow
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	result := make([]*domain.Workflow, 0, len(rows))
	for i := range rows {
		w, err := fromWorkflowRow(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, nil
}

// UpsertWorkflow creates or replaces a workflow
func (s *pgStore) UpsertWorkflow(ctx context.Context, w *domain.Workflow) error {
	if w == nil || w.ID == "" {
		return fmt.Errorf("workflow id is required")
	}

	c := w.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	row, err := toWorkflowRow(c)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert workflow: %w", err)
	}
	return nil
}

// UpdateWorkflow locks the row, applies fn and saves the result in one transaction
func (s *pgStore) UpdateWorkflow(ctx context.Context, id string, fn WorkflowMutator) (*domain.Workflow, error) {
	var updated *domain.Workflow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row schema.Workflow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
			}
			return fmt.Errorf("failed to lock workflow: %w", err)
		}

		w, err := fromWorkflowRow(&row)
		if err != nil {
			return err
		}
		if err := fn(w); err != nil {
			return err
		}
		w.ID = id

		next, err := toWorkflowRow(w)
		if err != nil {
			return err
		}
		if err := tx.Save(next).Error; err != nil {
			return fmt.Errorf("failed to save workflow: %w", err)
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteWorkflow removes a workflow and returns the deleted definition
func (s *pgStore) DeleteWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	var rows []schema.Workflow
	err := s.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Delete(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to delete workflow: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
	}
	return fromWorkflowRow(&rows[0])
}

// GetUser retrieves a user, inserting the default profile on first access
func (s *pgStore) GetUser(ctx context.Context, address string) (*domain.User, error) {
	key := domain.NormalizeAddress(address)
	if key == "" {
		return nil, fmt.Errorf("%w: empty address", domain.ErrUserNotFound)
	}

	if err := s.ensureUser(s.db.WithContext(ctx), key); err != nil {
		return nil, err
	}

	var row schema.User
	if err := s.db.WithContext(ctx).Where("address = ?", key).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return fromUserRow(&row)
}

// ensureUser inserts the default profile unless the user exists
func (s *pgStore) ensureUser(tx *gorm.DB, key string) error {
	row, err := toUserRow(domain.NewUser(key, s.now()))
	if err != nil {
		return err
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpsertUser creates or replaces a user
func (s *pgStore) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil || domain.NormalizeAddress(u.Address) == "" {
		return fmt.Errorf("user address is required")
	}

	c := u.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	row, err := toUserRow(c)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			UpdateAll: true,
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// UpdateUser locks the user row, applies fn and saves the result in one transaction
func (s *pgStore) UpdateUser(ctx context.Context, address string, fn UserMutator) (*domain.User, error) {
	key := domain.NormalizeAddress(address)
	if key == "" {
		return nil, fmt.Errorf("%w: empty address", domain.ErrUserNotFound)
	}

	var updated *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureUser(tx, key); err != nil {
			return err
		}

		var row schema.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("address = ?", key).First(&row).Error; err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		u, err := fromUserRow(&row)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
		u.Address = key
		u.UpdatedAt = s.now()

		next, err := toUserRow(u)
		if err != nil {
			return err
		}
		if err := tx.Save(next).Error; err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FindUserByAPIKey retrieves the user holding an api key
func (s *pgStore) FindUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: empty api key", domain.ErrUserNotFound)
	}

	var row schema.User
	err := s.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown api key", domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to find user by api key: %w", err)
	}
	return fromUserRow(&row)
}

// GetAlert retrieves a portfolio alert by id
func (s *pgStore) GetAlert(ctx context.Context, id string) (*domain.PortfolioAlert, error) {
	var row schema.PortfolioAlert
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return fromAlertRow(&row)
}

// ListAlerts retrieves alerts matching the filter
func (s *pgStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]*domain.PortfolioAlert, error) {
	query := s.db.WithContext(ctx).Model(&schema.PortfolioAlert{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if user := domain.NormalizeAddress(filter.UserAddress); user != "" {
		query = query.Where("user_address = ?", user)
	}

	var rows []schema.PortfolioAlert
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	result := make([]*domain.PortfolioAlert, 0, len(rows))
	for i := range rows {
		a, err := fromAlertRow(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// UpsertAlert creates or replaces a portfolio alert
func (s *pgStore) UpsertAlert(ctx context.Context, a *domain.PortfolioAlert) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("alert id is required")
	}

	c := a.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	row, err := toAlertRow(c)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}
	return nil
}

// UpdateAlert locks the alert row, applies fn and saves the result in one transaction
func (s *pgStore) UpdateAlert(ctx context.Context, id string, fn AlertMutator) (*domain.PortfolioAlert, error) {
	var updated *domain.PortfolioAlert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row schema.PortfolioAlert
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
			}
			return fmt.Errorf("failed to lock alert: %w", err)
		}

		a, err := fromAlertRow(&row)
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		a.ID = id

		next, err := toAlertRow(a)
		if err != nil {
			return err
		}
		if err := tx.Save(next).Error; err != nil {
			return fmt.Errorf("failed to save alert: %w", err)
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAlert removes a portfolio alert
func (s *pgStore) DeleteAlert(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&schema.PortfolioAlert{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
	}
	return nil
}

// GetTemplate retrieves a template by id
func (s *pgStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	var row schema.Template
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return fromTemplateRow(&row)
}

// ListTemplates retrieves templates matching the filter
func (s *pgStore) ListTemplates(ctx context.Context, filter TemplateFilter) ([]*domain.Template, error) {
	query := s.db.WithContext(ctx).Model(&schema.Template{})
	if user := domain.NormalizeAddress(filter.UserAddress); user != "" {
		query = query.Where("user_address = ?", user)
	}

	var rows []schema.Template
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	result := make([]*domain.Template, 0, len(rows))
	for i := range rows {
		t, err := fromTemplateRow(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

// UpsertTemplate creates or replaces a template
func (s *pgStore) UpsertTemplate(ctx context.Context, t *domain.Template) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("template id is required")
	}

	c := t.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	row, err := toTemplateRow(c)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}

// UpdateTemplate locks the template row, applies fn and saves the result in one transaction.
// The owner cannot be changed.
func (s *pgStore) UpdateTemplate(ctx context.Context, id string, fn TemplateMutator) (*domain.Template, error) {
	var updated *domain.Template
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row schema.Template
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
			}
			return fmt.Errorf("failed to lock template: %w", err)
		}

		t, err := fromTemplateRow(&row)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id
		t.UserAddress = row.UserAddress

		next, err := toTemplateRow(t)
		if err != nil {
			return err
		}
		if err := tx.Save(next).Error; err != nil {
			return fmt.Errorf("failed to save template: %w", err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTemplate removes a template
func (s *pgStore) DeleteTemplate(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&schema.Template{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	return nil
}

// GetHoldings retrieves the tracked holdings
func (s *pgStore) GetHoldings(ctx context.Context) ([]domain.Holding, error) {
	var rows []schema.Holding
	if err := s.db.WithContext(ctx).Order("symbol ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}

	result := make([]domain.Holding, 0, len(rows))
	for _, r := range rows {
		result = append(result, domain.Holding{Symbol: r.Symbol, Amount: r.Amount})
	}
	return result, nil
}

// SetHoldings replaces the tracked holdings
func (s *pgStore) SetHoldings(ctx context.Context, holdings []domain.Holding) error {
	normalized, err := normalizeHoldings(holdings)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&schema.Holding{}).Error; err != nil {
			return fmt.Errorf("failed to clear holdings: %w", err)
		}
		if len(normalized) == 0 {
			return nil
		}

		rows := make([]schema.Holding, 0, len(normalized))
		for _, h := range normalized {
			rows = append(rows, schema.Holding{Symbol: h.Symbol, Amount: h.Amount})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert holdings: %w", err)
		}
		return nil
	})
}
