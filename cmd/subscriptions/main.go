// subscriptions manages the subscriber store used by tpwatch.
// Usage: go run ./cmd/subscriptions --config configs/tpwatch.yaml <command> [args]
//
// Commands:
//
//	create-account <account>
//	unsubscribe <token>
//	add <category> <account>
//	remove <category> <account>
//	list <category>
//	add-threshold <account> <kind> <value> <item-id>...
//	list-thresholds [account]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rickgao/tpwatch/internal/config"
	"github.com/rickgao/tpwatch/internal/store"
)

var errUsage = errors.New("usage")

func main() {
	configPath := flag.String("config", "configs/tpwatch.yaml", "path to config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: subscriptions [-config path] <command> [args]\n\n%s\n", commandHelp)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Store.Backend == config.BackendMemory {
		logger.Warn("memory backend does not persist; changes are lost on exit")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subs, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer subs.Close()

	if err := run(ctx, subs, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

const commandHelp = `commands:
  create-account <account>
  unsubscribe <token>
  add <category> <account>
  remove <category> <account>
  list <category>
  add-threshold <account> <kind> <value> <item-id>...
  list-thresholds [account]`

// run executes one command against s.
func run(ctx context.Context, s store.Store, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "create-account":
		if len(args) != 1 {
			return fmt.Errorf("%w: create-account <account>", errUsage)
		}
		token, err := s.CreateAccount(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "account %s created, unsubscribe token %s\n", args[0], token)

	case "unsubscribe":
		if len(args) != 1 {
			return fmt.Errorf("%w: unsubscribe <token>", errUsage)
		}
		account, err := s.Unsubscribe(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "account %s unsubscribed\n", account)

	case "add", "remove":
		if len(args) != 2 {
			return fmt.Errorf("%w: %s <category> <account>", errUsage, cmd)
		}
		category, err := store.ParseCategory(args[0])
		if err != nil {
			return err
		}
		if cmd == "remove" {
			if err := s.RemoveWatcher(ctx, category, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s removed from %s\n", args[1], category)
			return nil
		}
		added, err := s.AddWatcher(ctx, category, args[1])
		if err != nil {
			return err
		}
		if !added {
			fmt.Fprintf(out, "%s already watches %s\n", args[1], category)
			return nil
		}
		fmt.Fprintf(out, "%s added to %s\n", args[1], category)

	case "list":
		if len(args) != 1 {
			return fmt.Errorf("%w: list <category>", errUsage)
		}
		category, err := store.ParseCategory(args[0])
		if err != nil {
			return err
		}
		accounts, err := s.ListWatchers(ctx, category)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			fmt.Fprintln(out, a)
		}

	case "add-threshold":
		if len(args) < 4 {
			return fmt.Errorf("%w: add-threshold <account> <kind> <value> <item-id>...", errUsage)
		}
		w, err := parseThreshold(args)
		if err != nil {
			return err
		}
		id, err := s.AddThreshold(ctx, w)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "threshold %d added\n", id)

	case "list-thresholds":
		if len(args) > 1 {
			return fmt.Errorf("%w: list-thresholds [account]", errUsage)
		}
		var account string
		if len(args) == 1 {
			account = args[0]
		}
		watches, err := s.ListThresholds(ctx, account)
		if err != nil {
			return err
		}
		printThresholds(out, watches)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return nil
}

func parseThreshold(args []string) (store.ThresholdWatch, error) {
	kind, err := store.ParseThresholdKind(args[1])
	if err != nil {
		return store.ThresholdWatch{}, err
	}
	value, err := strconv.Atoi(args[2])
	if err != nil {
		return store.ThresholdWatch{}, fmt.Errorf("parse value %q: %w", args[2], err)
	}

	ids := make([]int, 0, len(args)-3)
	for _, a := range args[3:] {
		id, err := strconv.Atoi(a)
		if err != nil {
			return store.ThresholdWatch{}, fmt.Errorf("parse item id %q: %w", a, err)
		}
		ids = append(ids, id)
	}

	return store.ThresholdWatch{
		Account: args[0],
		ItemIDs: ids,
		Kind:    kind,
		Value:   value,
	}, nil
}

func printThresholds(out io.Writer, watches []store.ThresholdWatch) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACCOUNT\tKIND\tVALUE\tITEMS")
	for _, w := range watches {
		ids := make([]string, len(w.ItemIDs))
		for i, id := range w.ItemIDs {
			ids[i] = strconv.Itoa(id)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", w.ID, w.Account, w.Kind, w.Value, strings.Join(ids, ","))
	}
	tw.Flush()
}
