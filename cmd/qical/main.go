// Command qical reads iCalendar sources (local files or HTTP feeds) and
// prints the agenda for a date window, expanding recurrence rules. It is
// glue around the internal/ical library; the library itself has no CLI
// surface.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"qical/internal/config"
	"qical/internal/ical"
	appLog "qical/internal/log"
	"qical/internal/model"
)

type flagConfig struct {
	configPath string
	file       string
	from       string
	to         string
	once       bool
	verbose    bool
}

func main() {
	flags := parseFlags()
	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}

	from, to, err := window(flags)
	if err != nil {
		appLog.Error("invalid date window", err, "from", flags.from, "to", flags.to)
		os.Exit(1)
	}

	// A single -file run needs no config at all.
	if flags.file != "" {
		parser := ical.NewParser()
		cal, err := parser.ParseFile(flags.file)
		if err != nil {
			appLog.Error("parse failed", err, "file", flags.file)
			os.Exit(1)
		}
		printAgenda(ical.EventsRange(cal, from, to))
		return
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.Info("effective config",
		"horizon_days", conf.HorizonDays,
		"refresh", conf.RefreshCron,
		"source_count", len(conf.Sources),
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := func() {
		w0, w1 := from, to
		if flags.from == "" {
			// Watch mode keeps the window anchored to the current refresh.
			w0 = time.Now().UTC().Truncate(24 * time.Hour)
			w1 = w0.AddDate(0, 0, conf.HorizonDays)
		}
		printAgenda(collect(ctx, conf, w0, w1))
	}

	run()
	if flags.once {
		return
	}

	sched := cron.New()
	if _, err := sched.AddFunc(conf.RefreshCron, run); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	appLog.Info("signal received, shutting down", "signal", sig.String())
	cancel()
}

// collect parses every configured source and merges the agendas of all of
// them into one chronologically sorted list.
func collect(ctx context.Context, conf *config.Config, from, to time.Time) []*model.Event {
	fetcher := ical.NewFetcher(conf.CacheDir)
	parser := ical.NewParser()

	var all []*model.Event
	for _, src := range conf.Sources {
		var cal *model.Calendar
		var err error
		switch {
		case src.Path != "":
			cal, err = parser.ParseFile(src.Path)
		case src.URL != "":
			var res ical.FetchResult
			res, err = fetcher.FetchOne(ctx, ical.Source{ID: src.ID, URL: src.URL})
			if err == nil {
				cal, err = parser.Parse(bytes.NewReader(res.Body))
			}
		default:
			appLog.Error("source skipped", errors.New("source has neither path nor url"), "id", src.ID)
			continue
		}
		if err != nil {
			appLog.Error("source skipped", err, "id", src.ID)
			continue
		}
		for _, d := range parser.Diagnostics() {
			appLog.Debug("malformed field", "id", src.ID, "diag", d.String())
		}
		all = append(all, ical.EventsRange(cal, from, to)...)
	}
	// Per-source agendas are already sorted; a stable sort merges them
	// without reordering equal instants.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].DtStart.Before(all[j].DtStart)
	})
	return all
}

func printAgenda(events []*model.Event) {
	for _, ev := range events {
		end := ""
		if !ev.DtEnd.IsZero() {
			end = " - " + ev.DtEnd.Format("15:04")
		}
		fmt.Printf("%s%s  %s", ev.DtStart.Format("2006-01-02 15:04"), end, ev.Summary)
		if ev.Location != "" {
			fmt.Printf(" (%s)", ev.Location)
		}
		fmt.Println()
	}
}

func window(flags flagConfig) (time.Time, time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	from, to := now, now.AddDate(0, 0, 7)
	if flags.from != "" {
		t, err := parseDay(flags.from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
		to = from.AddDate(0, 0, 7)
	}
	if flags.to != "" {
		t, err := parseDay(flags.to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}

func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseFlags() flagConfig {
	var cfg flagConfig
	flag.StringVar(&cfg.configPath, "config", "/etc/qical/config.yaml", "Path to config file")
	flag.StringVar(&cfg.file, "file", "", "Parse a single .ics file instead of the configured sources")
	flag.StringVar(&cfg.from, "from", "", "Window start (YYYY-MM-DD or RFC3339); default today")
	flag.StringVar(&cfg.to, "to", "", "Window end (YYYY-MM-DD or RFC3339); default from+7d")
	flag.BoolVar(&cfg.once, "once", false, "Print the agenda once and exit")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")
	flag.Parse()
	return cfg
}
