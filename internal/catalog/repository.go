package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

// ServiceFilter narrows a service listing.
type ServiceFilter struct {
	BusinessID string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type Repository interface {
	CreateService(ctx context.Context, s *GroomingService) error
	GetService(ctx context.Context, id string) (*GroomingService, error)
	GetServices(ctx context.Context, ids []string) ([]*GroomingService, error)
	ListServices(ctx context.Context, filter ServiceFilter) ([]*GroomingService, int, error)
	UpdateService(ctx context.Context, s *GroomingService) error

	CreateRule(ctx context.Context, r *DurationRule) error
	GetRule(ctx context.Context, id string) (*DurationRule, error)
	ListRules(ctx context.Context, serviceIDs []string) ([]*DurationRule, error)
	UpdateRule(ctx context.Context, r *DurationRule) error
	DeleteRule(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var serviceColumns = []string{
	"id", "business_id", "name", "description", "species_supported", "locations_supported",
	"is_active", "created_at", "updated_at",
}

var ruleColumns = []string{
	"id", "service_id", "species", "size", "breed", "base_duration_minutes",
	"is_default_for_species", "created_at", "updated_at",
}

func scanService(row pgx.Row) (*GroomingService, error) {
	var s GroomingService
	var species, locations []string
	err := row.Scan(
		&s.ID, &s.BusinessID, &s.Name, &s.Description, &species, &locations,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.SpeciesSupported = fromStrings[scheduling.Species](species)
	s.LocationsSupported = fromStrings[scheduling.LocationType](locations)
	return &s, nil
}

func scanRule(row pgx.Row) (*DurationRule, error) {
	var r DurationRule
	var species string
	var size *string
	err := row.Scan(
		&r.ID, &r.ServiceID, &species, &size, &r.Breed, &r.BaseDurationMinutes,
		&r.IsDefaultForSpecies, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Species = scheduling.Species(species)
	if size != nil {
		sz := scheduling.Size(*size)
		r.Size = &sz
	}
	return &r, nil
}

func sizeArg(s *scheduling.Size) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func (r *pgxRepository) CreateService(ctx context.Context, s *GroomingService) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.services").
		Columns("business_id", "name", "description", "species_supported", "locations_supported", "is_active").
		Values(s.BusinessID, s.Name, s.Description, toStrings(s.SpeciesSupported), toStrings(s.LocationsSupported), s.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create service query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("create service failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetService(ctx context.Context, id string) (*GroomingService, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(serviceColumns...).
		From("public.services").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get service query failed: %w", err)
	}

	s, err := scanService(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service failed: %w", err)
	}
	return s, nil
}

func (r *pgxRepository) GetServices(ctx context.Context, ids []string) ([]*GroomingService, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(serviceColumns...).
		From("public.services").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get services query failed: %w", err)
	}
	return r.queryServices(ctx, query, args)
}

func (r *pgxRepository) queryServices(ctx context.Context, query string, args []any) ([]*GroomingService, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query services failed: %w", err)
	}
	defer rows.Close()

	var out []*GroomingService
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service failed: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *pgxRepository) ListServices(ctx context.Context, filter ServiceFilter) ([]*GroomingService, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	where := squirrel.And{squirrel.Eq{"business_id": filter.BusinessID}}
	if filter.ActiveOnly {
		where = append(where, squirrel.Eq{"is_active": true})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("public.services").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count services query failed: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count services failed: %w", err)
	}

	query, args, err := psql.Select(serviceColumns...).
		From("public.services").
		Where(where).
		OrderBy("name ASC", "id ASC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list services query failed: %w", err)
	}

	items, err := r.queryServices(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *pgxRepository) UpdateService(ctx context.Context, s *GroomingService) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.services").
		Set("name", s.Name).
		Set("description", s.Description).
		Set("species_supported", toStrings(s.SpeciesSupported)).
		Set("locations_supported", toStrings(s.LocationsSupported)).
		Set("is_active", s.IsActive).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": s.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update service query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrServiceNotFound
		}
		return fmt.Errorf("update service failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) CreateRule(ctx context.Context, rule *DurationRule) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.service_duration_rules").
		Columns("service_id", "species", "size", "breed", "base_duration_minutes", "is_default_for_species").
		Values(rule.ServiceID, string(rule.Species), sizeArg(rule.Size), rule.Breed, rule.BaseDurationMinutes, rule.IsDefaultForSpecies).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create rule query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return fmt.Errorf("create rule failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetRule(ctx context.Context, id string) (*DurationRule, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(ruleColumns...).
		From("public.service_duration_rules").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get rule query failed: %w", err)
	}

	rule, err := scanRule(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("get rule failed: %w", err)
	}
	return rule, nil
}

func (r *pgxRepository) ListRules(ctx context.Context, serviceIDs []string) ([]*DurationRule, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(ruleColumns...).
		From("public.service_duration_rules").
		Where(squirrel.Eq{"service_id": serviceIDs}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list rules query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules failed: %w", err)
	}
	defer rows.Close()

	var out []*DurationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule failed: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *pgxRepository) UpdateRule(ctx context.Context, rule *DurationRule) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.service_duration_rules").
		Set("species", string(rule.Species)).
		Set("size", sizeArg(rule.Size)).
		Set("breed", rule.Breed).
		Set("base_duration_minutes", rule.BaseDurationMinutes).
		Set("is_default_for_species", rule.IsDefaultForSpecies).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": rule.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update rule query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rule.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRuleNotFound
		}
		return fmt.Errorf("update rule failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) DeleteRule(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM public.service_duration_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}
