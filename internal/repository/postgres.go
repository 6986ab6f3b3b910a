package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-ledger/internal/biddingerrors"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/repository/migrations"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const auctionColumns = `id, owner_id, title, description, category_id, starting_price, deadline, status, created_at`

// PostgresRepo is the PostgreSQL implementation of AuctionDB. Bid acceptance
// locks the auction row, so bids on one auction are serialized while bids on
// different auctions proceed independently.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo wraps an open database handle
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// OpenPostgres connects using the pgx driver, verifies the connection and
// applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, storageErr("ping database", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return db, nil
}

// RunMigrations applies the embedded schema migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// storageErr wraps err with op. Errors that did not come back from the server
// as SQL errors (connection loss, timeouts, closed pools) are marked
// ErrStorageUnavailable so callers can retry.
func storageErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, biddingerrors.ErrStorageUnavailable, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (model.Auction, error) {
	var a model.Auction
	var status string
	err := row.Scan(&a.AuctionID, &a.OwnerID, &a.Title, &a.Description, &a.CategoryID,
		&a.StartingPrice, &a.Deadline, &status, &a.CreatedAt)
	if err != nil {
		return model.Auction{}, err
	}
	a.Status = model.AuctionStatus(status)
	return a, nil
}

func scanBid(row rowScanner) (model.Bid, error) {
	var b model.Bid
	if err := row.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.PlacedAt); err != nil {
		return model.Bid{}, err
	}
	return b, nil
}

// CreateAuction stores a new auction
func (r *PostgresRepo) CreateAuction(ctx context.Context, a model.Auction) error {
	query := `INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		a.AuctionID, a.OwnerID, a.Title, a.Description, a.CategoryID,
		a.StartingPrice, a.Deadline, string(a.Status), a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create auction %s: %w - duplicate ID", a.AuctionID, biddingerrors.ErrInvalidAuction)
		}
		return storageErr("create auction", err)
	}
	return nil
}

func (r *PostgresRepo) getAuction(ctx context.Context, db DBTX, auctionID string, forUpdate bool) (model.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	a, err := scanAuction(db.QueryRowContext(ctx, query, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, storageErr("get auction", err)
	}
	return a, nil
}

func (r *PostgresRepo) auctionExists(ctx context.Context, auctionID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1)`, auctionID).Scan(&exists)
	if err != nil {
		return false, storageErr("check auction", err)
	}
	return exists, nil
}

// GetAuction returns the auction with the given ID
func (r *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	return r.getAuction(ctx, r.db, auctionID, false)
}

// ListAuctions returns auctions matching filter, newest first
func (r *PostgresRepo) ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}

	query := `SELECT ` + auctionColumns + ` FROM auctions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list auctions", err)
	}
	defer rows.Close()

	out := make([]model.Auction, 0)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, storageErr("scan auction", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list auctions", err)
	}
	return out, nil
}

// TransitionStatus performs a compare-and-swap on the auction's status
func (r *PostgresRepo) TransitionStatus(ctx context.Context, auctionID string, from, to model.AuctionStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("transition auction %s from %s to %s: %w", auctionID, from, to, biddingerrors.ErrInvalidTransition)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), auctionID, string(from))
	if err != nil {
		return storageErr("transition auction", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("transition auction", err)
	}
	if n == 1 {
		return nil
	}

	exists, err := r.auctionExists(ctx, auctionID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("transition auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return fmt.Errorf("transition auction %s: %w - expected %s", auctionID, biddingerrors.ErrStatusConflict, from)
}

// ListDueAuctions returns IDs of active auctions whose deadline is at or before now
func (r *PostgresRepo) ListDueAuctions(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM auctions WHERE status = $1 AND deadline <= $2 ORDER BY id`,
		string(model.StatusActive), now)
	if err != nil {
		return nil, storageErr("list due auctions", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan due auction", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list due auctions", err)
	}
	return ids, nil
}

const highestBidQuery = `SELECT id, auction_id, bidder_id, amount, placed_at FROM bids
	WHERE auction_id = $1
	ORDER BY amount DESC, placed_at ASC, seq ASC
	LIMIT 1`

func (r *PostgresRepo) currentHighest(ctx context.Context, db DBTX, auctionID string) (model.Bid, bool, error) {
	b, err := scanBid(db.QueryRowContext(ctx, highestBidQuery, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, false, nil
	}
	if err != nil {
		return model.Bid{}, false, storageErr("get highest bid", err)
	}
	return b, true, nil
}

// PlaceBid locks the auction row, checks the bid against the current state
// and inserts it in the same transaction.
func (r *PostgresRepo) PlaceBid(ctx context.Context, bid model.Bid) error {
	return withTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		auction, err := r.getAuction(ctx, tx, bid.AuctionID, true)
		if err != nil {
			if errors.Is(err, biddingerrors.ErrAuctionNotFound) {
				return fmt.Errorf("place bid on auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
			}
			return err
		}

		highest, hasBids, err := r.currentHighest(ctx, tx, bid.AuctionID)
		if err != nil {
			return err
		}

		if err := CheckBid(auction, highest, hasBids, bid); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO bids (id, auction_id, bidder_id, amount, placed_at) VALUES ($1, $2, $3, $4, $5)`,
			bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount, bid.PlacedAt)
		if err != nil {
			return storageErr("insert bid", err)
		}
		return nil
	})
}

// GetCurrentHighest returns the highest bid for an auction
func (r *PostgresRepo) GetCurrentHighest(ctx context.Context, auctionID string) (model.Bid, error) {
	b, ok, err := r.currentHighest(ctx, r.db, auctionID)
	if err != nil {
		return model.Bid{}, err
	}
	if ok {
		return b, nil
	}

	exists, err := r.auctionExists(ctx, auctionID)
	if err != nil {
		return model.Bid{}, err
	}
	if !exists {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
}

// ListBids returns all bids for an auction, highest first
func (r *PostgresRepo) ListBids(ctx context.Context, auctionID string) ([]model.Bid, error) {
	exists, err := r.auctionExists(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, auction_id, bidder_id, amount, placed_at FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, placed_at ASC, seq ASC`, auctionID)
	if err != nil {
		return nil, storageErr("list bids", err)
	}
	defer rows.Close()

	bids := make([]model.Bid, 0)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, storageErr("scan bid", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list bids", err)
	}
	return bids, nil
}

// GetAuctionsByBidder returns all auctions a user has bid on, in one query
func (r *PostgresRepo) GetAuctionsByBidder(ctx context.Context, userID string) ([]model.Auction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions a
		WHERE EXISTS (SELECT 1 FROM bids b WHERE b.auction_id = a.id AND b.bidder_id = $1)
		ORDER BY a.id`, userID)
	if err != nil {
		return nil, storageErr("get auctions by bidder", err)
	}
	defer rows.Close()

	var out []model.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, storageErr("scan auction", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get auctions by bidder", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}
	return out, nil
}
