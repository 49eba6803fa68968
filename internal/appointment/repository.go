package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

const DefaultMaxTries = 3

type pgxRepository struct {
	pool     *pgxpool.Pool
	maxTries uint
}

// NewPgxRepository returns the Postgres ledger. maxTries bounds how often a
// booking transaction is attempted after a deadlock or a retryable connection error.
func NewPgxRepository(pool *pgxpool.Pool, maxTries int) Repository {
	if maxTries < 1 {
		maxTries = DefaultMaxTries
	}
	return &pgxRepository{pool: pool, maxTries: uint(maxTries)}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var appointmentColumns = []string{
	"id", "business_id", "client_id", "groomer_id", "location_type", "start_time", "end_time",
	"status", "cancel_reason", "home_address", "home_zone", "created_at", "updated_at",
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var location, status string
	err := row.Scan(
		&a.ID, &a.BusinessID, &a.ClientID, &a.GroomerID, &location, &a.StartTime, &a.EndTime,
		&status, &a.CancelReason, &a.HomeAddress, &a.HomeZone, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.LocationType = scheduling.LocationType(location)
	a.Status = scheduling.Status(status)
	return &a, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	return getAppointment(ctx, r.pool, id, "")
}

func getAppointment(ctx context.Context, q querier, id, suffix string) (*Appointment, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Select(appointmentColumns...).
		From("public.appointments").
		Where(squirrel.Eq{"id": id})
	if suffix != "" {
		builder = builder.Suffix(suffix)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get appointment query failed: %w", err)
	}

	a, err := scanAppointment(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment failed: %w", err)
	}

	items, err := loadItems(ctx, q, []string{a.ID})
	if err != nil {
		return nil, err
	}
	a.Items = items[a.ID]
	return a, nil
}

func loadItems(ctx context.Context, q querier, appointmentIDs []string) (map[string][]Item, error) {
	out := make(map[string][]Item, len(appointmentIDs))
	if len(appointmentIDs) == 0 {
		return out, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "appointment_id", "pet_id", "service_id", "calculated_duration_minutes", "extras").
		From("public.appointment_pets").
		Where(squirrel.Eq{"appointment_id": appointmentIDs}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list appointment items query failed: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointment items failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		var appointmentID string
		var extras []byte
		if err := rows.Scan(&it.ID, &appointmentID, &it.PetID, &it.ServiceID, &it.CalculatedDurationMinutes, &extras); err != nil {
			return nil, fmt.Errorf("scan appointment item failed: %w", err)
		}
		if len(extras) > 0 {
			if err := json.Unmarshal(extras, &it.Extras); err != nil {
				return nil, fmt.Errorf("decode extras of item %s failed: %w", it.ID, err)
			}
		}
		out[appointmentID] = append(out[appointmentID], it)
	}
	return out, rows.Err()
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Appointment, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	where := squirrel.And{}
	if filter.BusinessID != "" {
		where = append(where, squirrel.Eq{"business_id": filter.BusinessID})
	}
	if filter.ClientID != "" {
		where = append(where, squirrel.Eq{"client_id": filter.ClientID})
	}
	if filter.GroomerID != "" {
		where = append(where, squirrel.Eq{"groomer_id": filter.GroomerID})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"start_time": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.Lt{"start_time": *filter.To})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("public.appointments").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count appointments query failed: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments failed: %w", err)
	}

	query, args, err := psql.Select(appointmentColumns...).
		From("public.appointments").
		Where(where).
		OrderBy("start_time DESC", "id ASC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list appointments query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments failed: %w", err)
	}
	defer rows.Close()

	var list []*Appointment
	var ids []string
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan appointment failed: %w", err)
		}
		list = append(list, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list appointments failed: %w", err)
	}
	rows.Close()

	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, a := range list {
		a.Items = items[a.ID]
	}
	return list, total, nil
}

func (r *pgxRepository) ListIntersecting(ctx context.Context, res Resource, from, to time.Time) ([]scheduling.Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "start_time", "end_time", "status").
		From("public.appointments").
		Where(squirrel.Eq{"business_id": res.BusinessID, "groomer_id": res.GroomerID}).
		Where(squirrel.NotEq{"status": string(scheduling.StatusCancelled)}).
		Where(squirrel.Lt{"start_time": to}).
		Where(squirrel.Gt{"end_time": from}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list intersecting appointments query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list intersecting appointments failed: %w", err)
	}
	defer rows.Close()

	var booked []scheduling.Booking
	for rows.Next() {
		var b scheduling.Booking
		var status string
		if err := rows.Scan(&b.ID, &b.Start, &b.End, &status); err != nil {
			return nil, fmt.Errorf("scan appointment interval failed: %w", err)
		}
		b.Status = scheduling.Status(status)
		booked = append(booked, b)
	}
	return booked, rows.Err()
}

// InResourceTx runs fn under a per-resource advisory lock. The lock orders
// writers on one resource, so read committed is enough: every statement after
// the lock sees what earlier holders committed. Writers on other resources
// never wait on each other.
func (r *pgxRepository) InResourceTx(ctx context.Context, res Resource, fn func(ctx context.Context, ledger Ledger) error) error {
	return retryTx(ctx, r.maxTries, func() error {
		return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", res.Key()); err != nil {
				return fmt.Errorf("acquire resource lock failed: %w", err)
			}
			return fn(ctx, &txLedger{tx: tx, res: res})
		})
	})
}

// retryTx runs attempt until it succeeds, fails permanently or runs out of tries.
// Conflicts left after the last try are reported as ErrSlotUnavailable.
func retryTx(ctx context.Context, maxTries uint, attempt func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, classify(attempt())
	},
		backoff.WithMaxTries(maxTries),
		backoff.WithBackOff(newTxBackOff()),
	)
	if isConflict(err) {
		return ErrSlotUnavailable
	}
	return err
}

func newTxBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	return b
}

// classify marks which transaction failures are worth another attempt.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isExclusionViolation(err):
		return backoff.Permanent(ErrSlotUnavailable)
	case isConflict(err), pgconn.SafeToRetry(err):
		return err
	}
	return backoff.Permanent(err)
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ExclusionViolation
}

// txLedger is the Ledger of one resource inside one transaction.
type txLedger struct {
	tx  pgx.Tx
	res Resource
}

func (l *txLedger) HasOverlap(ctx context.Context, start, end time.Time, excludeID string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	subQuery := psql.Select("1").
		From("public.appointments").
		Where(squirrel.Eq{"business_id": l.res.BusinessID, "groomer_id": l.res.GroomerID}).
		Where(squirrel.NotEq{"status": string(scheduling.StatusCancelled)}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start})
	if excludeID != "" {
		subQuery = subQuery.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := subQuery.ToSql()
	if err != nil {
		return false, fmt.Errorf("build check overlap query failed: %w", err)
	}

	var exists bool
	if err := l.tx.QueryRow(ctx, "SELECT EXISTS ("+sql+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check overlap failed: %w", err)
	}
	return exists, nil
}

func (l *txLedger) Insert(ctx context.Context, a *Appointment) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.appointments").
		Columns("business_id", "client_id", "groomer_id", "location_type", "start_time", "end_time",
			"status", "home_address", "home_zone").
		Values(a.BusinessID, a.ClientID, a.GroomerID, string(a.LocationType), a.StartTime, a.EndTime,
			string(a.Status), a.HomeAddress, a.HomeZone).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create appointment query failed: %w", err)
	}
	if err := l.tx.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("create appointment failed: %w", err)
	}

	for i := range a.Items {
		it := &a.Items[i]
		extras := it.Extras
		if extras == nil {
			extras = map[string]any{}
		}
		raw, err := json.Marshal(extras)
		if err != nil {
			return fmt.Errorf("encode extras failed: %w", err)
		}

		query, args, err := psql.Insert("public.appointment_pets").
			Columns("appointment_id", "pet_id", "service_id", "calculated_duration_minutes", "extras").
			Values(a.ID, it.PetID, it.ServiceID, it.CalculatedDurationMinutes, raw).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build create appointment item query failed: %w", err)
		}
		if err := l.tx.QueryRow(ctx, query, args...).Scan(&it.ID); err != nil {
			return fmt.Errorf("create appointment item failed: %w", err)
		}
	}
	return nil
}

func (l *txLedger) GetForUpdate(ctx context.Context, id string) (*Appointment, error) {
	a, err := getAppointment(ctx, l.tx, id, "FOR UPDATE")
	if err != nil {
		return nil, err
	}
	if a.Resource() != l.res {
		return nil, fmt.Errorf("appointment %s does not belong to resource %s", id, l.res.Key())
	}
	return a, nil
}

func (l *txLedger) UpdateDetails(ctx context.Context, a *Appointment) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.appointments").
		Set("start_time", a.StartTime).
		Set("end_time", a.EndTime).
		Set("home_address", a.HomeAddress).
		Set("home_zone", a.HomeZone).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": a.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update appointment query failed: %w", err)
	}
	return l.exec(ctx, query, args, "update appointment")
}

func (l *txLedger) UpdateStatus(ctx context.Context, id string, status scheduling.Status, reason *string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Update("public.appointments").
		Set("status", string(status)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id})
	if reason != nil {
		builder = builder.Set("cancel_reason", *reason)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update appointment status query failed: %w", err)
	}
	return l.exec(ctx, query, args, "update appointment status")
}

func (l *txLedger) exec(ctx context.Context, query string, args []any, op string) error {
	ct, err := l.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
