package business

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Filter narrows a business listing.
type Filter struct {
	// Query matches the name case-insensitively when set.
	Query  string
	Limit  int
	Offset int
}

// Repository defines methods for accessing business data.
type Repository interface {
	Create(ctx context.Context, b *Business) error
	GetByID(ctx context.Context, id string) (*Business, error)
	GetBySlug(ctx context.Context, slug string) (*Business, error)
	GetByOwner(ctx context.Context, ownerID string) (*Business, error)
	List(ctx context.Context, filter Filter) ([]*Business, int, error)
	Update(ctx context.Context, b *Business) error
	ReplaceWorkingHours(ctx context.Context, businessID string, hours []WorkingHour) error
	SetMedia(ctx context.Context, businessID string, field MediaField, fileID string) error

	AddStaff(ctx context.Context, businessID, userID string) error
	GetStaff(ctx context.Context, businessID, userID string) (*StaffMember, error)
	ListStaff(ctx context.Context, businessID string) ([]*StaffMember, error)
	SetStaffActive(ctx context.Context, businessID, userID string, active bool) error
	SetStaffDisplayName(ctx context.Context, userID, name string) error
	HasActiveStaff(ctx context.Context, businessID string) (bool, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new business repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var businessColumns = []string{
	"id", "owner_user_id", "name", "slug", "description", "phone", "email", "address", "timezone",
	"logo_file_id", "cover_image_file_id", "offers_in_salon", "offers_at_home", "max_dogs_per_home_visit",
	"home_visit_setup_minutes", "home_visit_teardown_minutes", "default_transport_minutes",
	"min_hours_before_cancel_or_reschedule", "created_at", "updated_at",
}

func scanBusiness(row pgx.Row) (*Business, error) {
	var b Business
	err := row.Scan(
		&b.ID, &b.OwnerUserID, &b.Name, &b.Slug, &b.Description, &b.Phone, &b.Email, &b.Address, &b.Timezone,
		&b.LogoFileID, &b.CoverImageFileID, &b.OffersInSalon, &b.OffersAtHome, &b.MaxDogsPerHomeVisit,
		&b.HomeVisitSetupMinutes, &b.HomeVisitTeardownMinutes, &b.DefaultTransportMinutes,
		&b.MinHoursBeforeCancelOrReschedule, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		if pgErr.ConstraintName == "groomer_businesses_slug_key" {
			return ErrSlugTaken
		}
		return ErrAlreadyExists
	}
	return err
}

func (r *pgxRepository) Create(ctx context.Context, b *Business) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.groomer_businesses").
		Columns(
			"owner_user_id", "name", "slug", "description", "phone", "email", "address", "timezone",
			"offers_in_salon", "offers_at_home", "max_dogs_per_home_visit",
			"home_visit_setup_minutes", "home_visit_teardown_minutes", "default_transport_minutes",
			"min_hours_before_cancel_or_reschedule",
		).
		Values(
			b.OwnerUserID, b.Name, b.Slug, b.Description, b.Phone, b.Email, b.Address, b.Timezone,
			b.OffersInSalon, b.OffersAtHome, b.MaxDogsPerHomeVisit,
			b.HomeVisitSetupMinutes, b.HomeVisitTeardownMinutes, b.DefaultTransportMinutes,
			b.MinHoursBeforeCancelOrReschedule,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create business query failed: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			if mapped := mapWriteError(err); mapped != err {
				return mapped
			}
			return fmt.Errorf("create business failed: %w", err)
		}
		return insertWorkingHours(ctx, tx, b.ID, b.WorkingHours)
	})
}

func insertWorkingHours(ctx context.Context, tx pgx.Tx, businessID string, hours []WorkingHour) error {
	if len(hours) == 0 {
		return nil
	}
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	insert := psql.Insert("public.working_hours").Columns("business_id", "weekday", "start_time", "end_time")
	for _, h := range hours {
		insert = insert.Values(businessID, h.Weekday, h.StartTime, h.EndTime)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert working hours query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert working hours failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) get(ctx context.Context, where squirrel.Sqlizer) (*Business, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(businessColumns...).
		From("public.groomer_businesses").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get business query failed: %w", err)
	}

	b, err := scanBusiness(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get business failed: %w", err)
	}

	b.WorkingHours, err = r.listWorkingHours(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Business, error) {
	return r.get(ctx, squirrel.Eq{"id": id})
}

func (r *pgxRepository) GetBySlug(ctx context.Context, slug string) (*Business, error) {
	return r.get(ctx, squirrel.Eq{"slug": slug})
}

func (r *pgxRepository) GetByOwner(ctx context.Context, ownerID string) (*Business, error) {
	return r.get(ctx, squirrel.Eq{"owner_user_id": ownerID})
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Business, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	where := squirrel.And{}
	if filter.Query != "" {
		where = append(where, squirrel.ILike{"name": "%" + escapeLike(filter.Query) + "%"})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("public.groomer_businesses").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count businesses query failed: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count businesses failed: %w", err)
	}

	query, args, err := psql.Select(businessColumns...).
		From("public.groomer_businesses").
		Where(where).
		OrderBy("name ASC", "id ASC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list businesses query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list businesses failed: %w", err)
	}
	defer rows.Close()

	var items []*Business
	byID := map[string]*Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan business failed: %w", err)
		}
		items = append(items, b)
		byID[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list businesses failed: %w", err)
	}
	if len(items) == 0 {
		return items, total, nil
	}

	ids := make([]string, 0, len(items))
	for _, b := range items {
		ids = append(ids, b.ID)
	}
	hours, err := r.pool.Query(ctx,
		`SELECT business_id, weekday, start_time, end_time FROM public.working_hours
		 WHERE business_id = ANY($1) ORDER BY weekday, start_time`, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list working hours failed: %w", err)
	}
	defer hours.Close()
	for hours.Next() {
		var businessID string
		var h WorkingHour
		if err := hours.Scan(&businessID, &h.Weekday, &h.StartTime, &h.EndTime); err != nil {
			return nil, 0, fmt.Errorf("scan working hour failed: %w", err)
		}
		byID[businessID].WorkingHours = append(byID[businessID].WorkingHours, h)
	}
	return items, total, hours.Err()
}

// escapeLike quotes the LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func (r *pgxRepository) listWorkingHours(ctx context.Context, businessID string) ([]WorkingHour, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("weekday", "start_time", "end_time").
		From("public.working_hours").
		Where(squirrel.Eq{"business_id": businessID}).
		OrderBy("weekday", "start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list working hours query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list working hours failed: %w", err)
	}
	defer rows.Close()

	var hours []WorkingHour
	for rows.Next() {
		var h WorkingHour
		if err := rows.Scan(&h.Weekday, &h.StartTime, &h.EndTime); err != nil {
			return nil, fmt.Errorf("scan working hour failed: %w", err)
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

func (r *pgxRepository) Update(ctx context.Context, b *Business) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.groomer_businesses").
		Set("name", b.Name).
		Set("slug", b.Slug).
		Set("description", b.Description).
		Set("phone", b.Phone).
		Set("email", b.Email).
		Set("address", b.Address).
		Set("timezone", b.Timezone).
		Set("offers_in_salon", b.OffersInSalon).
		Set("offers_at_home", b.OffersAtHome).
		Set("max_dogs_per_home_visit", b.MaxDogsPerHomeVisit).
		Set("home_visit_setup_minutes", b.HomeVisitSetupMinutes).
		Set("home_visit_teardown_minutes", b.HomeVisitTeardownMinutes).
		Set("default_transport_minutes", b.DefaultTransportMinutes).
		Set("min_hours_before_cancel_or_reschedule", b.MinHoursBeforeCancelOrReschedule).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update business query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("update business failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ReplaceWorkingHours(ctx context.Context, businessID string, hours []WorkingHour) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM public.working_hours WHERE business_id = $1`, businessID); err != nil {
			return fmt.Errorf("clear working hours failed: %w", err)
		}
		return insertWorkingHours(ctx, tx, businessID, hours)
	})
}

func (r *pgxRepository) SetMedia(ctx context.Context, businessID string, field MediaField, fileID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.groomer_businesses").
		Set(string(field), fileID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": businessID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set media query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set business media failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ------------------------
//   Staff methods
// ------------------------

func (r *pgxRepository) AddStaff(ctx context.Context, businessID, userID string) error {
	const query = `
		INSERT INTO public.business_staff (business_id, user_id, is_active)
		VALUES ($1, $2, true)
		ON CONFLICT (business_id, user_id) DO UPDATE SET is_active = true
	`
	if _, err := r.pool.Exec(ctx, query, businessID, userID); err != nil {
		return fmt.Errorf("add staff failed: %w", err)
	}
	return nil
}

const selectStaff = `
	SELECT s.business_id, s.user_id, u.email, u.display_name, s.is_active, s.created_at
	FROM public.business_staff s
	JOIN public.users u ON u.id = s.user_id
`

func scanStaff(row pgx.Row) (*StaffMember, error) {
	var m StaffMember
	if err := row.Scan(&m.BusinessID, &m.UserID, &m.Email, &m.DisplayName, &m.IsActive, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *pgxRepository) GetStaff(ctx context.Context, businessID, userID string) (*StaffMember, error) {
	m, err := scanStaff(r.pool.QueryRow(ctx, selectStaff+" WHERE s.business_id = $1 AND s.user_id = $2", businessID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("get staff failed: %w", err)
	}
	return m, nil
}

func (r *pgxRepository) ListStaff(ctx context.Context, businessID string) ([]*StaffMember, error) {
	rows, err := r.pool.Query(ctx, selectStaff+" WHERE s.business_id = $1 ORDER BY s.created_at", businessID)
	if err != nil {
		return nil, fmt.Errorf("list staff failed: %w", err)
	}
	defer rows.Close()

	var staff []*StaffMember
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff failed: %w", err)
		}
		staff = append(staff, m)
	}
	return staff, rows.Err()
}

func (r *pgxRepository) SetStaffActive(ctx context.Context, businessID, userID string, active bool) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE public.business_staff SET is_active = $1 WHERE business_id = $2 AND user_id = $3`,
		active, businessID, userID,
	)
	if err != nil {
		return fmt.Errorf("update staff failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

// SetStaffDisplayName renames the staff account itself, so the new name shows everywhere.
func (r *pgxRepository) SetStaffDisplayName(ctx context.Context, userID, name string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE public.users SET display_name = $1 WHERE id = $2`,
		name, userID,
	)
	if err != nil {
		return fmt.Errorf("rename staff failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func (r *pgxRepository) HasActiveStaff(ctx context.Context, businessID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM public.business_staff WHERE business_id = $1 AND is_active)`,
		businessID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active staff failed: %w", err)
	}
	return exists, nil
}
