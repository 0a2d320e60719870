package port

import (
	"context"
	"time"

	"tzweb/internal/domain/model"
)

// Repository journals what the portfolio view observed and what the
// cancellation workflow did.
type Repository interface {
	// Snapshot operations
	SavePositions(ctx context.Context, ts time.Time, positions []model.Position) error
	SaveActiveOrders(ctx context.Context, ts time.Time, orders []model.ActiveOrder) error

	// Cancellation journal
	SaveCancellation(ctx context.Context, rec model.CancelRecord) error
	ListCancellations(ctx context.Context, symbol string, limit int) ([]model.CancelRecord, error)

	// Connection management
	Close() error
}

// HistoryExporter writes closed-position history to durable files.
type HistoryExporter interface {
	ExportClosedPositions(ctx context.Context, day time.Time, rows []model.ClosedPosition) (string, error)
}
