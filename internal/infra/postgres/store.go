// Package postgres is the direct-database store backend. It reads and writes
// the same tables as the Supabase adapter through gorm, and listens for lead
// inserts with pgx LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var tracer = otel.Tracer("postgres")

// Store implements port.Store on a gorm connection.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to dsn.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// NewStore wraps an existing gorm handle.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

const leadNotifyTrigger = `
CREATE OR REPLACE FUNCTION notify_lead_inserted() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + LeadChannel + `', json_build_object(
		'company_id', NEW.company_id,
		'name', NEW.name,
		'email', NEW.email
	)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS leads_notify_insert ON leads;
CREATE TRIGGER leads_notify_insert AFTER INSERT ON leads
	FOR EACH ROW EXECUTE FUNCTION notify_lead_inserted();
`

// Migrate creates the tables and the lead insert notification trigger.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&companyRow{},
		&profileRow{},
		&layoutRow{},
		&cardRow{},
		&leadRow{},
		&eventRow{},
		&integrationRow{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(leadNotifyTrigger).Error; err != nil {
		return fmt.Errorf("install lead trigger: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database reachability for /healthz.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func wrapErr(service string, err error) error {
	return &domain.ErrExternalService{Service: service, Err: err}
}

// invalidKey reports whether err is Postgres rejecting a filter value that
// cannot be cast to the column type (22P02), such as a malformed uuid.
func invalidKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

// first loads one row into dest. gorm.ErrRecordNotFound and keys of the wrong
// type both map to ErrNotFound.
func (s *Store) first(ctx context.Context, dest any, resource, id string, query string, args ...any) error {
	err := s.db.WithContext(ctx).Where(query, args...).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || invalidKey(err) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	if err != nil {
		return wrapErr("postgres/"+resource, err)
	}
	return nil
}

// GetCardBySlug looks up exactly one card by its public slug.
func (s *Store) GetCardBySlug(ctx context.Context, slug string) (*domain.Card, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCardBySlug")
	defer span.End()
	span.SetAttributes(attribute.String("card.slug", slug))

	var row cardRow
	if err := s.first(ctx, &row, "card", slug, "slug = ?", slug); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCard")
	defer span.End()

	var row cardRow
	if err := s.first(ctx, &row, "card", id, "id = ?", id); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetPublishedProfile returns the profile only when published = true.
func (s *Store) GetPublishedProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetPublishedProfile")
	defer span.End()

	var row profileRow
	if err := s.first(ctx, &row, "profile", profileID, "id = ? AND published = ?", profileID, true); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetCompany fetches a company by ID.
func (s *Store) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCompany")
	defer span.End()

	var row companyRow
	if err := s.first(ctx, &row, "company", companyID, "id = ?", companyID); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetLayout fetches the company's layout; (nil, nil) when absent.
func (s *Store) GetLayout(ctx context.Context, companyID string) (*domain.ProfileLayout, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetLayout")
	defer span.End()

	var row layoutRow
	err := s.first(ctx, &row, "layout", companyID, "company_id = ?", companyID)
	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// InsertLead writes one lead row.
func (s *Store) InsertLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Postgres.InsertLead")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", lead.CompanyID))

	row := leadRowFrom(lead)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		s.logger.Warn("postgres: lead insert failed", zap.String("company_id", lead.CompanyID), zap.Error(err))
		return nil, wrapErr("postgres/leads", err)
	}
	return row.toDomain(), nil
}

// GetLead fetches a lead by ID.
func (s *Store) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetLead")
	defer span.End()

	var row leadRow
	if err := s.first(ctx, &row, "lead", leadID, "id = ?", leadID); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// InsertEvent appends one analytics event.
func (s *Store) InsertEvent(ctx context.Context, event *domain.Event) error {
	ctx, span := tracer.Start(ctx, "Postgres.InsertEvent")
	defer span.End()

	if err := s.db.WithContext(ctx).Create(eventRowFrom(event)).Error; err != nil {
		return wrapErr("postgres/events", err)
	}
	return nil
}

// ListActiveIntegrations returns the company's active integrations of a type.
func (s *Store) ListActiveIntegrations(ctx context.Context, companyID string, kind domain.IntegrationType) ([]domain.Integration, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListActiveIntegrations")
	defer span.End()

	var rows []integrationRow
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND type = ? AND active = ?", companyID, string(kind), true).
		Order("created_at ASC").
		Find(&rows).Error
	if invalidKey(err) {
		return []domain.Integration{}, nil
	}
	if err != nil {
		return nil, wrapErr("postgres/integrations", err)
	}

	out := make([]domain.Integration, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// GetIntegration fetches one integration scoped to its company.
func (s *Store) GetIntegration(ctx context.Context, companyID, integrationID string) (*domain.Integration, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetIntegration")
	defer span.End()

	var row integrationRow
	if err := s.first(ctx, &row, "integration", integrationID, "id = ? AND company_id = ?", integrationID, companyID); err != nil {
		return nil, err
	}
	in := row.toDomain()
	return &in, nil
}
