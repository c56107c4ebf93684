package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sabuhakaya/Carties/pkg/models"
)

// ErrNotFound is returned when the projection has no row for an id.
var ErrNotFound = errors.New("projection not found")

const projectionColumns = `id, reserve_price, seller, winner, sold_amount, current_high_bid,
	created_at, updated_at, auction_end, status, make, model, year, color, mileage, image_url, version`

// A version of 0 marks an unversioned event and is applied unconditionally.
// Otherwise a write is skipped when a tombstone is newer, and an existing row is
// only overwritten by a snapshot at least as new as itself.
//
// An update that arrives before its create leaves a stub row (created_at is NULL)
// carrying only item fields. A stale snapshot may still complete such a row: it
// fills the columns updates never carry and item fields the stub left empty, while
// the stub keeps its newer item values and version.
var upsertSQL = buildUpsertSQL()

const (
	snapshotIsNewer = `(EXCLUDED.version = 0 OR auction_projections.version <= EXCLUDED.version)`
	rowIsStub       = `auction_projections.created_at IS NULL`
)

func buildUpsertSQL() string {
	var set []string
	// Columns no update event carries.
	for _, col := range []string{"reserve_price", "seller", "winner", "sold_amount", "current_high_bid",
		"created_at", "auction_end", "status", "image_url"} {
		set = append(set, fmt.Sprintf("%[1]s = CASE WHEN %[2]s OR %[3]s THEN EXCLUDED.%[1]s ELSE auction_projections.%[1]s END",
			col, snapshotIsNewer, rowIsStub))
	}
	// Item columns: a stub keeps what its update wrote unless that is empty.
	for _, col := range []struct{ name, empty string }{
		{"make", "''"}, {"model", "''"}, {"color", "''"}, {"year", "0"}, {"mileage", "0"},
	} {
		set = append(set, fmt.Sprintf("%[1]s = CASE WHEN %[2]s OR (%[3]s AND auction_projections.%[1]s = %[4]s) THEN EXCLUDED.%[1]s ELSE auction_projections.%[1]s END",
			col.name, snapshotIsNewer, rowIsStub, col.empty))
	}
	for _, col := range []string{"updated_at", "version"} {
		set = append(set, fmt.Sprintf("%[1]s = CASE WHEN %[2]s THEN EXCLUDED.%[1]s ELSE auction_projections.%[1]s END",
			col, snapshotIsNewer))
	}

	return `
INSERT INTO auction_projections (` + projectionColumns + `)
SELECT $1::varchar, $2::integer, $3::varchar, $4::varchar, $5::integer, $6::integer,
       $7::timestamptz, $8::timestamptz, $9::timestamptz, $10::varchar,
       $11::varchar, $12::varchar, $13::integer, $14::varchar, $15::integer, $16::text, $17::bigint
WHERE $17::bigint = 0
   OR NOT EXISTS (SELECT 1 FROM auction_tombstones t WHERE t.id = $1::varchar AND t.version >= $17::bigint)
ON CONFLICT (id) DO UPDATE SET
    ` + strings.Join(set, ",\n    ") + `
WHERE ` + snapshotIsNewer + ` OR ` + rowIsStub
}

// A patch on a missing row inserts what it carries; the remaining columns keep their defaults.
const patchSQL = `
INSERT INTO auction_projections (id, make, model, year, color, mileage, updated_at, version)
SELECT $1::varchar, COALESCE($2::varchar, ''), COALESCE($3::varchar, ''), COALESCE($4::integer, 0),
       COALESCE($5::varchar, ''), COALESCE($6::integer, 0), $7::timestamptz, $8::bigint
WHERE $8::bigint = 0
   OR NOT EXISTS (SELECT 1 FROM auction_tombstones t WHERE t.id = $1::varchar AND t.version >= $8::bigint)
ON CONFLICT (id) DO UPDATE SET
    make       = COALESCE($2::varchar, auction_projections.make),
    model      = COALESCE($3::varchar, auction_projections.model),
    year       = COALESCE($4::integer, auction_projections.year),
    color      = COALESCE($5::varchar, auction_projections.color),
    mileage    = COALESCE($6::integer, auction_projections.mileage),
    updated_at = COALESCE($7::timestamptz, auction_projections.updated_at),
    version    = GREATEST(auction_projections.version, EXCLUDED.version)
WHERE EXCLUDED.version = 0 OR auction_projections.version <= EXCLUDED.version`

const deleteSQL = `
WITH tombstone AS (
    INSERT INTO auction_tombstones (id, version, deleted_at)
    VALUES ($1::varchar, $2::bigint, NOW())
    ON CONFLICT (id) DO UPDATE SET
        version    = GREATEST(auction_tombstones.version, EXCLUDED.version),
        deleted_at = EXCLUDED.deleted_at
)
DELETE FROM auction_projections
WHERE id = $1::varchar AND ($2::bigint = 0 OR version <= $2::bigint)`

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Store is the Postgres-backed projection store. Every write is a single statement.
type Store struct {
	DB *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Upsert inserts or overwrites a projection. It reports whether a row was written.
func (s *Store) Upsert(ctx context.Context, p Projection) (bool, error) {
	return upsert(ctx, s.DB, p)
}

func upsert(ctx context.Context, db execer, p Projection) (bool, error) {
	res, err := db.ExecContext(ctx, upsertSQL,
		p.ID, p.ReservePrice, p.Seller, p.Winner, p.SoldAmount, p.CurrentHighBid,
		nullTime(p.CreatedAt), nullTime(p.UpdatedAt), nullTime(p.AuctionEnd), string(p.Status),
		p.Make, p.Model, p.Year, p.Color, p.Mileage, p.ImageURL, p.Version,
	)
	if err != nil {
		return false, fmt.Errorf("upsert projection %s: %w", p.ID, err)
	}
	return affected(res)
}

// Patch applies a partial update, inserting the row if it is missing.
func (s *Store) Patch(ctx context.Context, p Patch) (bool, error) {
	var updatedAt any
	if p.UpdatedAt != nil {
		updatedAt = p.UpdatedAt.UTC()
	}
	res, err := s.DB.ExecContext(ctx, patchSQL,
		p.ID, p.Make, p.Model, p.Year, p.Color, p.Mileage, updatedAt, p.Version,
	)
	if err != nil {
		return false, fmt.Errorf("patch projection %s: %w", p.ID, err)
	}
	return affected(res)
}

// Delete removes a projection and records a tombstone. A missing row is not an error.
func (s *Store) Delete(ctx context.Context, id string, version int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx, deleteSQL, id, version)
	if err != nil {
		return false, fmt.Errorf("delete projection %s: %w", id, err)
	}
	return affected(res)
}

// SeedAll upserts every projection in one transaction and returns how many rows were written.
func (s *Store) SeedAll(ctx context.Context, items []Projection) (int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	written := 0
	for _, p := range items {
		ok, err := upsert(ctx, tx, p)
		if err != nil {
			return 0, err
		}
		if ok {
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return written, nil
}

// Count returns the number of stored projections.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM auction_projections").Scan(&n); err != nil {
		return 0, fmt.Errorf("count projections: %w", err)
	}
	return n, nil
}

// LatestUpdate returns the newest updated_at in the store, or the zero time when there is none.
func (s *Store) LatestUpdate(ctx context.Context) (time.Time, error) {
	var latest sql.NullTime
	if err := s.DB.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM auction_projections").Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("latest projection update: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time.UTC(), nil
}

// Get returns one projection or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Projection, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+projectionColumns+" FROM auction_projections WHERE id = $1", id)
	p, err := scanProjection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Projection{}, ErrNotFound
	}
	if err != nil {
		return Projection{}, fmt.Errorf("get projection %s: %w", id, err)
	}
	return p, nil
}

// Search runs q against the projection and returns one page of results.
func (s *Store) Search(ctx context.Context, q Query) (Page, error) {
	q = q.normalize()
	where, args := q.where()

	var total int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM auction_projections"+where, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count search results: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM auction_projections%s ORDER BY %s LIMIT $%d OFFSET $%d",
		projectionColumns, where, q.order(), len(args)+1, len(args)+2)
	args = append(args, q.PageSize, (q.PageNumber-1)*q.PageSize)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("search projections: %w", err)
	}
	defer rows.Close()

	results := []Projection{}
	for rows.Next() {
		p, err := scanProjection(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan projection: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	return Page{
		Results:    results,
		PageCount:  (total + q.PageSize - 1) / q.PageSize,
		TotalCount: total,
	}, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProjection(row scanner) (Projection, error) {
	var (
		p                                Projection
		status                           string
		winner                           sql.NullString
		soldAmount, currentHighBid       sql.NullInt64
		createdAt, updatedAt, auctionEnd sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.ReservePrice, &p.Seller, &winner, &soldAmount, &currentHighBid,
		&createdAt, &updatedAt, &auctionEnd, &status,
		&p.Make, &p.Model, &p.Year, &p.Color, &p.Mileage, &p.ImageURL, &p.Version,
	)
	if err != nil {
		return Projection{}, err
	}
	p.Status = models.Status(status)
	if winner.Valid {
		p.Winner = &winner.String
	}
	if soldAmount.Valid {
		n := int(soldAmount.Int64)
		p.SoldAmount = &n
	}
	if currentHighBid.Valid {
		n := int(currentHighBid.Int64)
		p.CurrentHighBid = &n
	}
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	p.AuctionEnd = auctionEnd.Time
	return p, nil
}

// where builds the filter clause. Placeholders are numbered in args order.
func (q Query) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.SearchTerm != "" {
		p := arg("%" + likeEscaper.Replace(q.SearchTerm) + "%")
		clauses = append(clauses, fmt.Sprintf(`(make ILIKE %[1]s ESCAPE '\' OR model ILIKE %[1]s ESCAPE '\' OR color ILIKE %[1]s ESCAPE '\')`, p))
	}
	if q.Seller != "" {
		clauses = append(clauses, "seller = "+arg(q.Seller))
	}
	if q.Winner != "" {
		clauses = append(clauses, "winner = "+arg(q.Winner))
	}

	now := q.Now.UTC()
	switch q.FilterBy {
	case FilterFinished:
		clauses = append(clauses, "auction_end < "+arg(now))
	case FilterEndingSoon:
		clauses = append(clauses, fmt.Sprintf("auction_end > %s AND auction_end < %s", arg(now), arg(now.Add(EndingSoonWindow))))
	default:
		clauses = append(clauses, "auction_end > "+arg(now))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (q Query) order() string {
	switch q.OrderBy {
	case OrderMake:
		return "make ASC, model ASC"
	case OrderNew:
		return "created_at DESC"
	default:
		return "auction_end ASC"
	}
}
