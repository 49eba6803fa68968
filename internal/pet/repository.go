package pet

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

type Repository interface {
	Create(ctx context.Context, p *Pet) error
	GetByID(ctx context.Context, id string) (*Pet, error)
	GetMany(ctx context.Context, ids []string) ([]*Pet, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Pet, int, error)
	Update(ctx context.Context, p *Pet) error
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var petColumns = []string{
	"id", "owner_user_id", "name", "species", "size", "breed", "notes", "created_at", "updated_at",
}

func scanPet(row pgx.Row) (*Pet, error) {
	var p Pet
	var species, size string
	err := row.Scan(&p.ID, &p.OwnerUserID, &p.Name, &species, &size, &p.Breed, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Species = scheduling.Species(species)
	p.Size = scheduling.Size(size)
	return &p, nil
}

func (r *pgxRepository) Create(ctx context.Context, p *Pet) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.pets").
		Columns("owner_user_id", "name", "species", "size", "breed", "notes").
		Values(p.OwnerUserID, p.Name, string(p.Species), string(p.Size), p.Breed, p.Notes).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create pet query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create pet failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Pet, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(petColumns...).
		From("public.pets").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get pet query failed: %w", err)
	}

	p, err := scanPet(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pet failed: %w", err)
	}
	return p, nil
}

func (r *pgxRepository) GetMany(ctx context.Context, ids []string) ([]*Pet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(petColumns...).
		From("public.pets").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get pets query failed: %w", err)
	}
	return r.query(ctx, query, args)
}

func (r *pgxRepository) query(ctx context.Context, query string, args []any) ([]*Pet, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pets failed: %w", err)
	}
	defer rows.Close()

	var pets []*Pet
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pet failed: %w", err)
		}
		pets = append(pets, p)
	}
	return pets, rows.Err()
}

func (r *pgxRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Pet, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	where := squirrel.Eq{"owner_user_id": ownerID}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("public.pets").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count pets query failed: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pets failed: %w", err)
	}

	query, args, err := psql.Select(petColumns...).
		From("public.pets").
		Where(where).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list pets query failed: %w", err)
	}

	pets, err := r.query(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return pets, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, p *Pet) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.pets").
		Set("name", p.Name).
		Set("species", string(p.Species)).
		Set("size", string(p.Size)).
		Set("breed", p.Breed).
		Set("notes", p.Notes).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": p.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update pet query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update pet failed: %w", err)
	}
	return nil
}

// Delete removes the pet. Pets referenced by an appointment are kept and reported as ErrInUse.
func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM public.pets WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrInUse
		}
		return fmt.Errorf("delete pet failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
