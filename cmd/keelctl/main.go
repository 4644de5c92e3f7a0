// Command keelctl is the operator surface for the keel dead letter
// store: inspect, remove, and clear quarantined jobs.
//
// Usage:
//
//	keelctl count              number of jobs in the DLQ
//	keelctl list [--limit N]   list quarantined jobs, oldest first
//	keelctl stats              aggregate by function and error kind
//	keelctl get <job_key>      full record for one job
//	keelctl remove <job_key>   remove one job from the DLQ
//	keelctl clear              remove every job from the DLQ
//
// Connection settings come from the environment (KEEL_REDIS_ADDR,
// KEEL_REDIS_PASSWORD). Exits 0 on success, 1 on any error; a missing
// key on get/remove is reported and still exits 1.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/keel"
	redisbroker "github.com/xraph/keel/broker/redis"
	"github.com/xraph/keel/dlq"
)

const defaultListLimit = 100

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "keelctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: keelctl <command>

commands:
  count            number of jobs in the dead letter queue
  list [--limit N] list quarantined jobs, oldest first
  stats            aggregate statistics by function and error kind
  get <job_key>    full record for one job
  remove <job_key> remove one job from the queue
  clear            remove every job from the queue`)
}

func run(command string, args []string) error {
	cfg, err := keel.LoadConfig()
	if err != nil {
		return err
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer client.Close() //nolint:errcheck // process is exiting

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := dlq.NewStore(redisbroker.New(client), dlq.WithRetention(cfg.DLQRetention))

	switch command {
	case "count":
		return countCmd(ctx, store)
	case "list":
		return listCmd(ctx, store, args)
	case "stats":
		return statsCmd(ctx, store)
	case "get":
		if len(args) != 1 {
			return errors.New("usage: keelctl get <job_key>")
		}
		return getCmd(ctx, store, args[0])
	case "remove":
		if len(args) != 1 {
			return errors.New("usage: keelctl remove <job_key>")
		}
		return removeCmd(ctx, store, args[0])
	case "clear":
		return clearCmd(ctx, store)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func countCmd(ctx context.Context, store *dlq.Store) error {
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Jobs in DLQ: %d\n", n)
	return nil
}

func listCmd(ctx context.Context, store *dlq.Store, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int("limit", defaultListLimit, "maximum number of jobs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := store.List(ctx, *limit, 0)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No jobs in DLQ")
		return nil
	}
	for i, r := range records {
		fmt.Printf("\n%d. Job: %s\n", i+1, r.JobKey)
		fmt.Printf("   Function: %s\n", r.Function)
		fmt.Printf("   Error: %s - %s\n", r.ErrorKind, r.ErrorMessage)
		fmt.Printf("   First seen: %s\n", r.FirstSeenAt.Format(time.RFC3339))
	}
	return nil
}

func statsCmd(ctx context.Context, store *dlq.Store) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Println("\nDead Letter Queue Statistics")
	fmt.Printf("Total jobs: %d\n", stats.Total)
	fmt.Println("\nBy function:")
	printCounts(stats.ByFunction)
	fmt.Println("\nBy error kind:")
	printCounts(stats.ByErrorKind)
	return nil
}

// printCounts prints a count map in deterministic order.
func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %d\n", k, counts[k])
	}
}

func getCmd(ctx context.Context, store *dlq.Store, jobKey string) error {
	r, err := store.Get(ctx, jobKey)
	if errors.Is(err, keel.ErrRecordNotFound) {
		return fmt.Errorf("job %s not found in DLQ", jobKey)
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nJob details for %s:\n", r.JobKey)
	fmt.Printf("  function: %s\n", r.Function)
	fmt.Printf("  error_kind: %s\n", r.ErrorKind)
	fmt.Printf("  error_message: %s\n", r.ErrorMessage)
	fmt.Printf("  first_seen_at: %s\n", r.FirstSeenAt.Format(time.RFC3339))
	if len(r.Details) > 0 {
		fmt.Println("  details:")
		keys := make([]string, 0, len(r.Details))
		for k := range r.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %s: %s\n", k, r.Details[k])
		}
	}
	return nil
}

func removeCmd(ctx context.Context, store *dlq.Store, jobKey string) error {
	removed, err := store.Remove(ctx, jobKey)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("job %s not found in DLQ", jobKey)
	}
	fmt.Printf("Removed job %s from DLQ\n", jobKey)
	return nil
}

func clearCmd(ctx context.Context, store *dlq.Store) error {
	n, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Cleared %d jobs from DLQ\n", n)
	return nil
}
