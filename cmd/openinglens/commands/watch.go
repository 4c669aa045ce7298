package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"openinglens/internal/printer"
	"openinglens/internal/session"
	"openinglens/internal/watch"
)

var (
	watchOutputFormat string
	watchWait         time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor a mirrored session's line changes",
	Long: `Stream line change events published by an explorer running on the
session configured in openinglens.yml.

Output Formats:
  default - Human-readable output with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch the configured session
  openinglens watch

  # Wait up to a minute for the session to appear
  openinglens watch --wait 1m

  # Export events as JSON
  openinglens watch --output=json > events.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().DurationVar(&watchWait, "wait", 10*time.Second, "How long to wait for the session snapshot to appear")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var format watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		format = watch.OutputFormatDefault
	case "json":
		format = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}
	if cfg.Session == nil || cfg.Session.RedisAddr == "" {
		return printer.Error(
			"no session mirror configured",
			"watch needs a Redis session in openinglens.yml.",
			[]string{"Add to the config:\n  session:\n    redis_addr: \"localhost:6379\"\n    name: \"my-session\""},
		)
	}

	store, err := session.NewStore(&redis.Options{Addr: cfg.Session.RedisAddr}, cfg.Session.Name)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return printer.Error(
			"cannot connect to Redis",
			fmt.Sprintf("No Redis server reachable at %s.", cfg.Session.RedisAddr),
			[]string{"Check session.redis_addr in openinglens.yml"},
		)
	}

	snap, err := watch.PollForSnapshot(ctx, store, watchWait)
	if err != nil {
		return printer.Error(
			"no session activity",
			err.Error(),
			[]string{"Start an explorer on this session first:\n  openinglens explore"},
		)
	}

	if format == watch.OutputFormatDefault {
		printer.Step("watching session %q\n", cfg.Session.Name)
		printer.Printf("current line: ")
		printer.MoveLine(snap.Line)
		printer.Printf("filters: %s / %s / %s / %s\n\n", snap.TimeControl, snap.Elo, snap.Color, snap.Opening)
	}

	return watch.NewStreamer(store, format, os.Stdout).Run(ctx)
}
