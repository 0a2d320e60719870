package service

import (
	"context"
	"errors"
	"time"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"

	"github.com/google/uuid"
)

// ErrNoExporter is returned by ExportClosedPositions when no exporter is configured.
var ErrNoExporter = errors.New("history export is not configured")

// JournalService 记录持仓/委托快照与撤单结果
type JournalService struct {
	repo     port.Repository
	exporter port.HistoryExporter
	now      func() time.Time
}

func NewJournalService(repo port.Repository, exporter port.HistoryExporter) *JournalService {
	return &JournalService{repo: repo, exporter: exporter, now: time.Now}
}

func (s *JournalService) SnapshotPositions(ctx context.Context, snap model.PortfolioSnapshot) error {
	return s.repo.SavePositions(ctx, s.now(), snap.Sorted())
}

func (s *JournalService) SnapshotActiveOrders(ctx context.Context, orders []model.ActiveOrder) error {
	return s.repo.SaveActiveOrders(ctx, s.now(), orders)
}

func (s *JournalService) RecordCancel(ctx context.Context, symbol string, orderType model.OrderType, orderID, outcome, reason string) error {
	return s.repo.SaveCancellation(ctx, model.CancelRecord{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		OrderType: orderType.UIValue(),
		OrderID:   orderID,
		Outcome:   outcome,
		Reason:    reason,
		Ts:        s.now().UnixMilli(),
	})
}

// Cancellations lists journaled cancel attempts, newest first. An empty symbol lists all.
func (s *JournalService) Cancellations(ctx context.Context, symbol string, limit int) ([]model.CancelRecord, error) {
	return s.repo.ListCancellations(ctx, model.NormalizeSymbol(symbol), limit)
}

// ExportClosedPositions writes today's closed positions and returns the file path.
func (s *JournalService) ExportClosedPositions(ctx context.Context, rows []model.ClosedPosition) (string, error) {
	if s.exporter == nil {
		return "", ErrNoExporter
	}
	return s.exporter.ExportClosedPositions(ctx, s.now(), rows)
}
