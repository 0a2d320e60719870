package composite

import (
	"context"
	"errors"
	"time"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"
)

// ErrNoRepository is returned by reads when nothing is configured.
var ErrNoRepository = errors.New("no repository configured")

// Repo fans writes out to every backend; reads go to the first backend that answers.
type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

// Len 已配置的后端数量
func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) each(fn func(port.Repository) error) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := fn(repo); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) SavePositions(ctx context.Context, ts time.Time, positions []model.Position) error {
	return r.each(func(repo port.Repository) error { return repo.SavePositions(ctx, ts, positions) })
}

func (r *Repo) SaveActiveOrders(ctx context.Context, ts time.Time, orders []model.ActiveOrder) error {
	return r.each(func(repo port.Repository) error { return repo.SaveActiveOrders(ctx, ts, orders) })
}

func (r *Repo) SaveCancellation(ctx context.Context, rec model.CancelRecord) error {
	return r.each(func(repo port.Repository) error { return repo.SaveCancellation(ctx, rec) })
}

func (r *Repo) ListCancellations(ctx context.Context, symbol string, limit int) ([]model.CancelRecord, error) {
	firstErr := ErrNoRepository
	for i, repo := range r.repos {
		recs, err := repo.ListCancellations(ctx, symbol, limit)
		if err == nil {
			return recs, nil
		}
		if i == 0 {
			firstErr = err
		}
	}
	return nil, firstErr
}

// Close 关闭全部后端，返回第一个错误
func (r *Repo) Close() error {
	return r.each(func(repo port.Repository) error { return repo.Close() })
}

var _ port.Repository = (*Repo)(nil)
