package container

import (
	"time"

	"tzweb/internal/application/port"
	"tzweb/internal/application/service"
	"tzweb/internal/domain/model"
)

// Options tune the services built by the container.
type Options struct {
	Click  service.ClickOptions
	Quote  service.QuoteOptions
	Locate service.LocateOptions
	Schema model.SchemaVariant
	Settle time.Duration
}

func DefaultOptions() Options {
	return Options{
		Click:  service.DefaultClickOptions(),
		Quote:  service.DefaultQuoteOptions(),
		Locate: service.DefaultLocateOptions(),
		Schema: model.SchemaAuto,
		Settle: 2 * time.Second,
	}
}

// Container 按需创建并缓存应用服务，所有服务共享同一个页面会话
type Container struct {
	page     port.Page
	repo     port.Repository
	exporter port.HistoryExporter
	opts     Options

	clickDriver      *service.ClickDriver
	tableExtractor   *service.TableExtractor
	portfolioService *service.PortfolioService
	cancelService    *service.CancelService
	journalService   *service.JournalService
	quoteService     *service.QuoteService
	orderService     *service.OrderEntryService
	locateService    *service.LocateService
}

func New(page port.Page, repo port.Repository, exporter port.HistoryExporter, opts Options) *Container {
	return &Container{
		page:     page,
		repo:     repo,
		exporter: exporter,
		opts:     opts,
	}
}

func (c *Container) Repository() port.Repository {
	return c.repo
}

func (c *Container) ClickDriver() *service.ClickDriver {
	if c.clickDriver == nil {
		c.clickDriver = service.NewClickDriver(c.page, c.opts.Click)
	}
	return c.clickDriver
}

func (c *Container) TableExtractor() *service.TableExtractor {
	if c.tableExtractor == nil {
		c.tableExtractor = service.NewTableExtractor(c.page)
	}
	return c.tableExtractor
}

func (c *Container) PortfolioService() *service.PortfolioService {
	if c.portfolioService == nil {
		c.portfolioService = service.NewPortfolioService(c.ClickDriver(), c.TableExtractor(), c.opts.Schema)
	}
	return c.portfolioService
}

// JournalService is nil when no repository is configured.
func (c *Container) JournalService() *service.JournalService {
	if c.journalService == nil && c.repo != nil {
		c.journalService = service.NewJournalService(c.repo, c.exporter)
	}
	return c.journalService
}

func (c *Container) CancelService() *service.CancelService {
	if c.cancelService == nil {
		c.cancelService = service.NewCancelService(c.PortfolioService(), c.ClickDriver(), c.JournalService(), c.opts.Settle)
	}
	return c.cancelService
}

func (c *Container) QuoteService() *service.QuoteService {
	if c.quoteService == nil {
		c.quoteService = service.NewQuoteService(c.page, c.opts.Quote)
	}
	return c.quoteService
}

func (c *Container) OrderEntryService() *service.OrderEntryService {
	if c.orderService == nil {
		c.orderService = service.NewOrderEntryService(c.page, c.QuoteService(), c.ClickDriver())
	}
	return c.orderService
}

func (c *Container) LocateService() *service.LocateService {
	if c.locateService == nil {
		c.locateService = service.NewLocateService(c.page, c.ClickDriver(), c.PortfolioService(), c.opts.Locate)
	}
	return c.locateService
}

func (c *Container) Close() error {
	if c.repo == nil {
		return nil
	}
	return c.repo.Close()
}
