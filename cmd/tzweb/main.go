package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"tzweb/internal/application/container"
	"tzweb/internal/application/port"
	"tzweb/internal/application/report"
	"tzweb/internal/domain/model"
	"tzweb/internal/infrastructure/config"
	infracontainer "tzweb/internal/infrastructure/container"
	"tzweb/internal/infrastructure/logger"
	"tzweb/internal/interfaces/console"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const usage = `usage: tzweb [-config path] [-format table|map] [-journal] <command> [args]

commands:
  positions                 open positions keyed by symbol
  intraday                  positions opened today
  closed [-export]          closed positions (optionally written to parquet)
  inventory                 locate inventory
  orders [SYMBOL] [TYPE]    active orders, optionally filtered
  invested SYMBOL           whether SYMBOL is an open position
  pending SYMBOL            whether SYMBOL has active orders
  cancel SYMBOL [TYPE]      cancel active orders of SYMBOL (TYPE: MKT, LMT, Stop-MKT, ...)
  quote SYMBOL              level-1 quote from the order panel
  order SIDE SYMBOL QTY TYPE [-tif DAY] [-limit P] [-stop P]
  locate SYMBOL SHARES      request a short locate (SHARES in lots of 100)
  accept SYMBOL             accept the pending locate offer
  decline SYMBOL            decline the pending locate offer
  credit SYMBOL [SHARES]    sell located shares back (all when SHARES is omitted)
  size SYMBOL BUYING_POWER  whole shares buying power buys at the last price
  history [SYMBOL]          journaled cancel attempts
`

type app struct {
	svc     *container.Container
	sink    port.Sink
	format  report.Format
	journal bool
}

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	formatFlag := flag.String("format", "table", "output format: table or map")
	journal := flag.Bool("journal", false, "journal position/order snapshots to storage")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.Log.Level)

	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -format")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := infracontainer.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init infrastructure failed")
	}
	defer infra.Close()

	opts := container.DefaultOptions()
	opts.Click.Timeout = cfg.ClickTimeout()
	opts.Click.InterceptPause = cfg.InterceptPause()
	opts.Click.BareAttempts = cfg.Click.BareAttempts
	opts.Schema = cfg.SchemaVariant()
	opts.Settle = cfg.SettlePause()

	a := &app{
		svc:     container.New(infra.Page(), infra.Repository(), infra.Exporter(), opts),
		sink:    console.NewSink(),
		format:  format,
		journal: *journal,
	}

	if err := connectAndRun(ctx, infra.Page(), a, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Error().Err(err).Str("command", flag.Arg(0)).Str("cdp_url", cfg.Browser.CDPURL).Msg("command failed")
		infra.Close()
		os.Exit(1)
	}
}

type connector interface {
	Connect(ctx context.Context) error
}

// connectAndRun attaches to the trading tab, then runs cmd. Errors are
// returned so main can close the infrastructure before exiting.
func connectAndRun(ctx context.Context, page connector, a *app, cmd string, args []string) error {
	if err := page.Connect(ctx); err != nil {
		return fmt.Errorf("browser connect: %w", err)
	}
	return a.run(ctx, cmd, args)
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	portfolio := a.svc.PortfolioService()

	switch cmd {
	case "positions":
		snap, err := portfolio.Positions(ctx)
		if err != nil {
			return err
		}
		if a.journal {
			a.journalErr(a.svc.JournalService().SnapshotPositions(ctx, snap))
		}
		return write(a, "open positions", snap.Sorted())

	case "intraday":
		rows, err := portfolio.IntradayPositions(ctx)
		if err != nil {
			return err
		}
		return write(a, "intraday positions", rows)

	case "closed":
		fs := flag.NewFlagSet("closed", flag.ContinueOnError)
		export := fs.Bool("export", false, "write closed positions to parquet")
		if err := fs.Parse(args); err != nil {
			return err
		}
		rows, err := portfolio.ClosedPositions(ctx)
		if err != nil {
			return err
		}
		if *export {
			path, err := a.svc.JournalService().ExportClosedPositions(ctx, rows)
			if err != nil {
				return err
			}
			a.sink.Notice("exported " + strconv.Itoa(len(rows)) + " closed positions to " + path)
		}
		return write(a, "closed positions", rows)

	case "inventory":
		rows, err := portfolio.Inventory(ctx)
		if err != nil {
			return err
		}
		return write(a, "locate inventory", rows)

	case "orders":
		filter, err := orderFilter(args)
		if err != nil {
			return err
		}
		if err := portfolio.SwitchTab(ctx, model.TabActiveOrders); err != nil {
			return err
		}
		rows, err := portfolio.ActiveOrders(ctx, filter)
		if err != nil {
			return err
		}
		if a.journal && !filter.Active() {
			a.journalErr(a.svc.JournalService().SnapshotActiveOrders(ctx, rows))
		}
		return write(a, "active orders", rows)

	case "invested":
		symbol, err := symbolArg(args)
		if err != nil {
			return err
		}
		ok, err := portfolio.IsInvested(ctx, symbol)
		if err != nil {
			return err
		}
		return a.sink.Notice(fmt.Sprintf("%s invested: %t", model.NormalizeSymbol(symbol), ok))

	case "pending":
		symbol, err := symbolArg(args)
		if err != nil {
			return err
		}
		if err := portfolio.SwitchTab(ctx, model.TabActiveOrders); err != nil {
			return err
		}
		ok, err := portfolio.SymbolPresentInActiveOrders(ctx, symbol)
		if err != nil {
			return err
		}
		return a.sink.Notice(fmt.Sprintf("%s has active orders: %t", model.NormalizeSymbol(symbol), ok))

	case "cancel":
		filter, err := orderFilter(args)
		if err != nil {
			return err
		}
		rep, err := a.svc.CancelService().CancelActiveOrders(ctx, filter.Symbol, filter.Type)
		if err != nil {
			return err
		}
		for _, s := range rep.Skipped {
			a.sink.Notice("skipped " + s.Key + ": " + s.Reason)
		}
		return a.sink.Notice(fmt.Sprintf("%s: matched %d, clicked %d, skipped %d",
			rep.Symbol, len(rep.Matched), len(rep.Clicked), len(rep.Skipped)))

	case "quote":
		symbol, err := symbolArg(args)
		if err != nil {
			return err
		}
		q, err := a.svc.QuoteService().Quote(ctx, symbol)
		if err != nil {
			return err
		}
		return write(a, "quote", []quoteRecord{{q}})

	case "order":
		t, err := orderTicket(args)
		if err != nil {
			return err
		}
		if err := a.svc.OrderEntryService().Place(ctx, t); err != nil {
			return err
		}
		return a.sink.Notice(fmt.Sprintf("submitted %s %d %s %s", t.Side, t.Qty, t.Symbol, t.Type))

	case "locate":
		symbol, err := symbolArg(args)
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return errors.New("locate needs SYMBOL SHARES")
		}
		qty, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("shares: %w", err)
		}
		offer, err := a.svc.LocateService().Locate(ctx, symbol, qty)
		if err != nil {
			return err
		}
		return a.sink.Notice(fmt.Sprintf("%s %d: %s (pps %s, total %s)",
			offer.Symbol, offer.Shares, offer.Status, offer.PricePerShare, offer.Total))

	case "accept", "decline":
		symbol, err := symbolArg(args)
		if err != nil {
			return err
		}
		locate := a.svc.LocateService()
		decide := locate.Accept
		if cmd == "decline" {
			decide = locate.Decline
		}
		if err := decide(ctx, symbol); err != nil {
			return err
		}
		return a.sink.Notice(fmt.Sprintf("locate offer for %s: %sd", symbol, cmd))

	case "credit":
		symbol, err := symbolArg(args)
		if err != nil {
			return err
		}
		var qty int64
		if len(args) > 1 {
			if qty, err = strconv.ParseInt(args[1], 10, 64); err != nil {
				return fmt.Errorf("shares: %w", err)
			}
		}
		if err := a.svc.LocateService().Credit(ctx, symbol, qty); err != nil {
			return err
		}
		return a.sink.Notice(fmt.Sprintf("credited %s locates", symbol))

	case "size":
		symbol, err := symbolArg(args)
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return errors.New("size needs SYMBOL BUYING_POWER")
		}
		bp, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("buying power: %w", err)
		}
		n, err := a.svc.OrderEntryService().OrderQuantity(ctx, symbol, bp)
		if err != nil {
			return err
		}
		return a.sink.Notice(fmt.Sprintf("%s: %d shares for %s", symbol, n, bp))

	case "history":
		symbol := ""
		if len(args) > 0 {
			symbol = args[0]
		}
		recs, err := a.svc.JournalService().Cancellations(ctx, symbol, 50)
		if err != nil {
			return err
		}
		rows := make([]cancelRecord, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, cancelRecord{r})
		}
		return write(a, "cancel history", rows)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func write[R report.Record](a *app, title string, rows []R) error {
	t := report.BuildTable(rows)
	if a.format == report.FormatMap {
		return a.sink.WriteBlock(title, console.RenderMapping(report.BuildMapping(rows), t.Columns))
	}
	return a.sink.WriteBlock(title, console.RenderTable(t))
}

func (a *app) journalErr(err error) {
	if err != nil {
		log.Warn().Err(err).Msg("journal snapshot failed")
	}
}

func symbolArg(args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New("SYMBOL is required")
	}
	return model.NormalizeSymbol(args[0]), nil
}

func orderFilter(args []string) (model.ActiveOrderFilter, error) {
	var f model.ActiveOrderFilter
	if len(args) > 0 {
		f.Symbol = model.NormalizeSymbol(args[0])
	}
	if len(args) > 1 {
		t, err := model.ParseOrderType(args[1])
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	return f, nil
}

func orderTicket(args []string) (model.OrderTicket, error) {
	var t model.OrderTicket
	if len(args) < 4 {
		return t, errors.New("order needs SIDE SYMBOL QTY TYPE")
	}
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	tif := fs.String("tif", "DAY", "time in force: DAY, GTC, GTX")
	limit := fs.String("limit", "", "limit price")
	stopPx := fs.String("stop", "", "stop price")
	if err := fs.Parse(args[4:]); err != nil {
		return t, err
	}

	var err error
	if t.Side, err = model.ParseSide(args[0]); err != nil {
		return t, err
	}
	t.Symbol = model.NormalizeSymbol(args[1])
	if t.Qty, err = strconv.ParseInt(args[2], 10, 64); err != nil {
		return t, fmt.Errorf("quantity: %w", err)
	}
	if t.Type, err = model.ParseOrderType(args[3]); err != nil {
		return t, err
	}
	if t.TIF, err = model.ParseTIF(*tif); err != nil {
		return t, err
	}
	if *limit != "" {
		if t.Limit, err = decimal.NewFromString(*limit); err != nil {
			return t, fmt.Errorf("limit: %w", err)
		}
	}
	if *stopPx != "" {
		if t.Stop, err = decimal.NewFromString(*stopPx); err != nil {
			return t, fmt.Errorf("stop: %w", err)
		}
	}
	return t, t.Validate()
}

// quoteRecord and cancelRecord adapt non-table values to report.Record.
type quoteRecord struct{ model.Quote }

func (q quoteRecord) Key() string { return q.Symbol }

func (q quoteRecord) Columns() []string {
	return []string{"open", "high", "low", "close", "volume", "last", "ask", "bid"}
}

func (q quoteRecord) Values() []string {
	return []string{q.Open.String(), q.High.String(), q.Low.String(), q.Close.String(),
		q.Volume.String(), q.Last.String(), q.Ask.String(), q.Bid.String()}
}

type cancelRecord struct{ model.CancelRecord }

func (c cancelRecord) Key() string { return c.ID }

func (c cancelRecord) Columns() []string {
	return []string{"ts_ms", "symbol", "order_type", "order_id", "outcome", "reason"}
}

func (c cancelRecord) Values() []string {
	return []string{strconv.FormatInt(c.Ts, 10), c.Symbol, c.OrderType, c.OrderID, c.Outcome, c.Reason}
}
