package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/johnrichard23/connectedin/internal/bootstrap"
	"github.com/johnrichard23/connectedin/internal/data"
	"github.com/johnrichard23/connectedin/internal/domain/model"
	"github.com/johnrichard23/connectedin/internal/migrate"
)

const defaultQueryTimeout = 30 * time.Second

type listChurchesOptions struct {
	Timeout time.Duration
	Region  string
	JSON    bool
}

type clearCacheOptions struct {
	Timeout time.Duration
	DryRun  bool
}

func runMigrationStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags("migrate-status", args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		status, statusErr := migrate.Status(ctx, db)
		if statusErr != nil {
			return fmt.Errorf("migration status: %w", statusErr)
		}
		return printMigrationStatus(cmdCtx.Out, status)
	})
}

func printMigrationStatus(w io.Writer, status []migrate.Migration) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "VERSION\tSTATUS\tAPPLIED AT"); err != nil {
		return err
	}
	pending := 0
	for _, m := range status {
		state, at := "pending", "-"
		if m.Applied() {
			state, at = "applied", m.AppliedAt.UTC().Format(time.RFC3339)
		} else {
			pending++
		}
		if err := writef(tw, "%s\t%s\t%s\n", m.Version, state, at); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "\n%d migration(s), %d pending\n", len(status), pending)
}

func runListChurches(cmdCtx *commandContext, args []string) error {
	opts, err := parseListChurchesFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		churches, listErr := data.NewChurchRepo(db).List(ctx)
		if listErr != nil {
			return fmt.Errorf("list churches: %w", listErr)
		}
		churches = filterByRegion(churches, opts.Region)
		if opts.JSON {
			return printChurchesJSON(cmdCtx.Out, churches)
		}
		return renderChurchTable(cmdCtx.Out, churches)
	})
}

func filterByRegion(churches []*model.Church, region string) []*model.Church {
	region = strings.TrimSpace(region)
	if region == "" {
		return churches
	}
	out := churches[:0:0]
	for _, c := range churches {
		if strings.EqualFold(c.Region, region) {
			out = append(out, c)
		}
	}
	return out
}

func printChurchesJSON(w io.Writer, churches []*model.Church) error {
	if churches == nil {
		churches = []*model.Church{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(model.ChurchList{Churches: churches})
}

func renderChurchTable(w io.Writer, churches []*model.Church) error {
	if len(churches) == 0 {
		return writeln(w, "No churches found.")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "ID\tNAME\tREGION\tUPDATED"); err != nil {
		return err
	}
	for _, c := range churches {
		updated := time.UnixMilli(c.UpdatedAt).UTC().Format(time.RFC3339)
		if err := writef(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, dashIfEmpty(c.Region), updated); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "\n%d church(es)\n", len(churches))
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func runClearChurchCache(cmdCtx *commandContext, args []string) error {
	opts, err := parseClearCacheFlags(args)
	if err != nil {
		return err
	}
	if !cmdCtx.Config.Cache.Enabled {
		return writeln(cmdCtx.Out, "Church list cache is disabled (CACHE_ENABLED=false); nothing to clear.")
	}
	if opts.DryRun {
		return writef(cmdCtx.Out, "Would delete the cached church list under prefix %q.\n", cmdCtx.Config.Cache.KeyPrefix)
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	redisClient, err := maybeConnectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
	if err != nil {
		if errors.Is(err, errRedisNotConfigured) {
			return errors.New("redis is not configured; set REDIS_URI")
		}
		return err
	}
	defer func() {
		if closeErr := closeInfra(nil, redisClient); closeErr != nil {
			cmdCtx.Logger.WarnContext(ctx, "redis close failed", "error", closeErr)
		}
	}()

	// PurgeListCache never touches the repository, so no database is opened.
	svc := bootstrap.BuildChurchService(bootstrap.ChurchServiceDeps{
		RedisClient: redisClient,
		Cache:       cmdCtx.Config.Cache,
		Logger:      cmdCtx.Logger,
	})
	existed, err := svc.PurgeListCache(ctx)
	if err != nil {
		return fmt.Errorf("clear church cache: %w", err)
	}
	if !existed {
		return writeln(cmdCtx.Out, "No cached church list found.")
	}
	return writeln(cmdCtx.Out, "Cached church list deleted.")
}

func parseListChurchesFlags(args []string) (listChurchesOptions, error) {
	fs := flag.NewFlagSet("list-churches", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listChurchesOptions{Timeout: defaultQueryTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultQueryTimeout, "Maximum duration to wait for the query")
	fs.StringVar(&opts.Region, "region", "", "Only show churches in this region (case-insensitive)")
	fs.BoolVar(&opts.JSON, "json", false, "Print the records as JSON")

	if err := fs.Parse(args); err != nil {
		return listChurchesOptions{}, err
	}
	if opts.Timeout <= 0 {
		return listChurchesOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseClearCacheFlags(args []string) (clearCacheOptions, error) {
	fs := flag.NewFlagSet("clear-church-cache", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := clearCacheOptions{Timeout: defaultQueryTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultQueryTimeout, "Maximum duration to wait for Redis")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Show what would be deleted without deleting")

	if err := fs.Parse(args); err != nil {
		return clearCacheOptions{}, err
	}
	if opts.Timeout <= 0 {
		return clearCacheOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}
