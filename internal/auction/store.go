package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sabuhakaya/Carties/pkg/models"
)

// ErrNotFound is returned when no auction has the requested id.
var ErrNotFound = errors.New("auction not found")

const auctionColumns = `id, reserve_price, seller, winner, sold_amount, current_high_bid,
	created_at, updated_at, auction_end, status, version,
	make, model, year, color, mileage, image_url`

// Store reads auctions and opens units of work for mutations.
type Store struct {
	DB *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// List returns auctions ordered by make. A non-zero since keeps only auctions updated after it.
func (s *Store) List(ctx context.Context, since time.Time) ([]models.Auction, error) {
	query := "SELECT " + auctionColumns + " FROM auctions"
	var args []any
	if !since.IsZero() {
		query += " WHERE updated_at > $1"
		args = append(args, since.UTC())
	}
	query += " ORDER BY make"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	auctions := []models.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

// Get returns a single auction or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (models.Auction, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+auctionColumns+" FROM auctions WHERE id = $1", id)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Auction{}, ErrNotFound
	}
	if err != nil {
		return models.Auction{}, fmt.Errorf("get auction %s: %w", id, err)
	}
	return a, nil
}

// Begin opens a unit of work. Mutations staged on it are invisible to other readers until Commit.
func (s *Store) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// UnitOfWork stages auction mutations in a transaction.
type UnitOfWork struct {
	tx   *sql.Tx
	done bool
}

// Find loads an auction and locks its row for the rest of the unit of work.
func (u *UnitOfWork) Find(ctx context.Context, id string) (models.Auction, error) {
	row := u.tx.QueryRowContext(ctx, "SELECT "+auctionColumns+" FROM auctions WHERE id = $1 FOR UPDATE", id)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Auction{}, ErrNotFound
	}
	if err != nil {
		return models.Auction{}, fmt.Errorf("find auction %s: %w", id, err)
	}
	return a, nil
}

// Add stages an insert.
func (u *UnitOfWork) Add(ctx context.Context, a models.Auction) error {
	_, err := u.tx.ExecContext(ctx,
		`INSERT INTO auctions (`+auctionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		a.ID, a.ReservePrice, a.Seller, a.Winner, a.SoldAmount, a.CurrentHighBid,
		a.CreatedAt, a.UpdatedAt, a.AuctionEnd, string(a.Status), a.Version,
		a.Make, a.Model, a.Year, a.Color, a.Mileage, a.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("insert auction %s: %w", a.ID, err)
	}
	return nil
}

// Modify stages an update of the mutable item fields, timestamp and version.
func (u *UnitOfWork) Modify(ctx context.Context, a models.Auction) error {
	res, err := u.tx.ExecContext(ctx,
		`UPDATE auctions
		 SET make = $1, model = $2, year = $3, color = $4, mileage = $5, updated_at = $6, version = $7
		 WHERE id = $8`,
		a.Make, a.Model, a.Year, a.Color, a.Mileage, a.UpdatedAt, a.Version, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update auction %s: %w", a.ID, err)
	}
	return expectOneRow(res)
}

// Remove stages a delete.
func (u *UnitOfWork) Remove(ctx context.Context, id string) error {
	res, err := u.tx.ExecContext(ctx, "DELETE FROM auctions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete auction %s: %w", id, err)
	}
	return expectOneRow(res)
}

// Commit makes the staged mutations durable.
func (u *UnitOfWork) Commit() error {
	u.done = true
	return u.tx.Commit()
}

// Rollback discards staged mutations. It is a no-op after Commit.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuction(row scanner) (models.Auction, error) {
	var (
		a                          models.Auction
		status                     string
		winner                     sql.NullString
		soldAmount, currentHighBid sql.NullInt64
	)
	err := row.Scan(
		&a.ID, &a.ReservePrice, &a.Seller, &winner, &soldAmount, &currentHighBid,
		&a.CreatedAt, &a.UpdatedAt, &a.AuctionEnd, &status, &a.Version,
		&a.Make, &a.Model, &a.Year, &a.Color, &a.Mileage, &a.ImageURL,
	)
	if err != nil {
		return models.Auction{}, err
	}
	a.Status = models.Status(status)
	if winner.Valid {
		a.Winner = &winner.String
	}
	a.SoldAmount = nullInt(soldAmount)
	a.CurrentHighBid = nullInt(currentHighBid)
	return a, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
