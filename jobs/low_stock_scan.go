package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LowStockScanJob walks the whole catalog and flags products sitting at or
// below their low stock threshold. It runs across all owners, so it queries
// the pool directly instead of going through the owner-scoped repository.
type LowStockScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(pool *pgxpool.Pool, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("low stock scan: handler not configured")
	}
	start := j.clock()

	rows, err := j.Pool.Query(ctx, `
		SELECT owner_id, id, name, sku, stock, low_stock_threshold
		FROM products
		WHERE low_stock_threshold > 0 AND stock <= low_stock_threshold
		ORDER BY owner_id, stock`)
	if err != nil {
		return err
	}
	defer rows.Close()

	flagged := 0
	for rows.Next() {
		var (
			ownerID, id, stock, threshold int64
			name, sku                     string
		)
		if err := rows.Scan(&ownerID, &id, &name, &sku, &stock, &threshold); err != nil {
			return err
		}
		flagged++
		j.Logger.Warn("product low on stock",
			slog.Int64("owner_id", ownerID),
			slog.Int64("product_id", id),
			slog.String("sku", sku),
			slog.String("name", name),
			slog.Int64("stock", stock),
			slog.Int64("threshold", threshold))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	j.Logger.Info("low stock scan finished",
		slog.Int("flagged", flagged),
		slog.Duration("took", j.clock().Sub(start)))
	return nil
}
