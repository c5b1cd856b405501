// tpquery loads the whole item catalog and trading post and queries them.
// Usage: go run ./cmd/tpquery --config configs/tpwatch.yaml [flags]
//
// Examples:
//
//	tpquery -search "tiny snowflake"
//	tpquery -where "margin>0.2" -where "buy_volume>1000" -select id,name,max_buy,min_sell,margin
//	tpquery -secret -json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rickgao/tpwatch/internal/api"
	"github.com/rickgao/tpwatch/internal/config"
	"github.com/rickgao/tpwatch/internal/model"
	"github.com/rickgao/tpwatch/internal/query"
	"github.com/rickgao/tpwatch/internal/source"
)

const defaultSelect = "id,name,max_buy,min_sell,buy_volume,sell_volume"

// conditions collects repeated -where flags.
type conditions []string

func (c *conditions) String() string { return strings.Join(*c, " AND ") }

func (c *conditions) Set(v string) error {
	*c = append(*c, v)
	return nil
}

// options are the parsed query flags.
type options struct {
	From   string   // items or listings
	Search []string // item name terms, all must match
	Where  []string
	Select []string
	Secret bool
	Limit  int
	JSON   bool
}

func main() {
	configPath := flag.String("config", "configs/tpwatch.yaml", "path to config file")
	from := flag.String("from", "items", "rows to start from: items or listings")
	search := flag.String("search", "", "space-separated terms every item name must contain")
	selectFields := flag.String("select", defaultSelect, "comma-separated fields to print")
	secret := flag.Bool("secret", false, "only listings that have no catalog item")
	limit := flag.Int("limit", 0, "print at most this many rows")
	asJSON := flag.Bool("json", false, "print one JSON object per row")
	listFields := flag.Bool("fields", false, "list selectable fields and exit")
	var where conditions
	flag.Var(&where, "where", `condition such as "min_sell<500" or "name~snowflake" (repeatable)`)
	flag.Parse()

	if *listFields {
		fmt.Println(strings.Join(query.Fields(), "\n"))
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	apiClient := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryDelay),
		api.WithBatchSize(cfg.API.BatchSize),
		api.WithParallelism(cfg.API.Parallelism),
	)
	items := source.New[model.Item](apiClient.Items(), logger.With("source", "items"))
	listings := source.New[model.Listing](apiClient.Listings(), logger.With("source", "listings"))

	opts := options{
		From:   *from,
		Search: strings.Fields(*search),
		Where:  where,
		Select: splitList(*selectFields),
		Secret: *secret,
		Limit:  *limit,
		JSON:   *asJSON,
	}
	if err := run(ctx, opts, items, listings, os.Stdout, logger); err != nil {
		logger.Error("query failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadAndValidate(path)
}

// run primes both sources, builds the query described by opts and prints it.
func run(ctx context.Context, opts options, items *source.Source[model.Item], listings *source.Source[model.Listing], out io.Writer, logger *slog.Logger) error {
	q, err := build(ctx, opts, items, listings, logger)
	if err != nil {
		return err
	}

	rows, err := q.Select(opts.Select...).Evaluate()
	if err != nil {
		return err
	}
	if opts.JSON {
		return printJSON(out, rows)
	}
	return printTable(out, opts.Select, rows)
}

func build(ctx context.Context, opts options, items *source.Source[model.Item], listings *source.Source[model.Listing], logger *slog.Logger) (*query.Query, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Secret {
		opts.From = "listings"
	}
	if opts.From != "items" && opts.From != "listings" {
		return nil, fmt.Errorf("-from must be items or listings, got %q", opts.From)
	}
	if len(opts.Search) > 0 && opts.From != "items" {
		return nil, errors.New("-search applies to -from items only")
	}

	for _, f := range opts.Select {
		if !slices.Contains(query.Fields(), f) {
			return nil, fmt.Errorf("%w: %q", query.ErrUnknownField, f)
		}
	}

	preds := make([]query.Predicate, 0, len(opts.Where))
	for _, expr := range opts.Where {
		p, err := query.ParseCondition(expr)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}

	// A partially primed source still answers for what it holds.
	if _, err := items.Prime(ctx); err != nil {
		if items.Len() == 0 {
			return nil, fmt.Errorf("load items: %w", err)
		}
		logger.Warn("item catalog incomplete", "cached", items.Len(), "error", err)
	}
	if _, err := listings.Prime(ctx); err != nil {
		if listings.Len() == 0 {
			return nil, fmt.Errorf("load listings: %w", err)
		}
		logger.Warn("listings incomplete", "cached", listings.Len(), "error", err)
	}

	var q *query.Query
	switch {
	case opts.Secret:
		q = query.FromListings(listings.Filter(func(l model.Listing) bool {
			_, ok := items.Get(l.ID)
			return !ok
		}))
	case opts.From == "listings":
		q = query.FromListings(listings.Snapshot()).JoinItems(items.Get)
	default:
		catalog := items.Snapshot()
		if len(opts.Search) > 0 {
			catalog = model.SearchItemsByName(catalog, opts.Search...)
		}
		q = query.FromItems(catalog).JoinListings(listings.Get)
	}

	return q.SortByID().Where(preds...).Limit(opts.Limit), nil
}

func printTable(out io.Writer, fields []string, rows []query.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(fields, "\t")))
	for _, r := range rows {
		cells := make([]string, len(fields))
		for i, f := range fields {
			cells[i] = formatValue(r[f])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func printJSON(out io.Writer, rows []query.Result) error {
	enc := json.NewEncoder(out)
	for _, r := range rows {
		clean := make(query.Result, len(r))
		for k, v := range r {
			clean[k] = jsonValue(v)
		}
		if err := enc.Encode(clean); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%.4g", x)
	default:
		return fmt.Sprint(x)
	}
}

// jsonValue maps infinities, which JSON cannot carry, to null.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return nil
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
