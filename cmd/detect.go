package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vhvplatform/go-marketplace-notifications/internal/detector"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/config"
	"go.uber.org/multierr"
)

var outputJSON bool

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <name>",
		Short: "Run one tick of a detector and print its stats",
		Long: `Run one tick of a detector against the configured database, whether or
not the detector is enabled, and print what it did.

Examples:
  # Send due rental reminders now
  marketplace-notifications detect rental_due_soon

  # Output as JSON
  marketplace-notifications detect rental_overdue --json`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: detector.Names(),
		RunE:      runDetect,
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Print the run record as JSON")
	return cmd
}

func runDetect(cmd *cobra.Command, args []string) (err error) {
	cfg, log, err := loadApp()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.close(context.Background()))
	}()

	run, err := a.scheduler.RunNow(ctx, args[0])
	if err != nil {
		return err
	}
	if err := printRun(cmd.OutOrStdout(), run, outputJSON); err != nil {
		return err
	}
	if run.Error != "" {
		return fmt.Errorf("detector %s failed: %s", run.Detector, run.Error)
	}
	return nil
}

func printRun(w io.Writer, run *domain.DetectorRun, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "DETECTOR\t%s\n", run.Detector)
	fmt.Fprintf(tw, "RUN\t%s\n", run.RunID)
	fmt.Fprintf(tw, "DURATION\t%s\n", run.FinishedAt.Sub(run.StartedAt))
	fmt.Fprintf(tw, "SCANNED\t%d\n", run.Scanned)
	fmt.Fprintf(tw, "EMITTED\t%d\n", run.Emitted)
	fmt.Fprintf(tw, "SKIPPED\t%d\n", run.Skipped)
	fmt.Fprintf(tw, "FAILED\t%d\n", run.Failed)
	fmt.Fprintf(tw, "TRANSITIONED\t%d\n", run.Transitioned)
	if run.Error != "" {
		fmt.Fprintf(tw, "ERROR\t%s\n", run.Error)
	}
	return tw.Flush()
}

func detectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detectors",
		Short: "List detectors with their effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			return printDetectors(os.Stdout, cfg)
		},
	}
}

func printDetectors(w io.Writer, cfg *config.Config) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENABLED\tSCHEDULE\tDEDUP\tLIMIT\tOPTIONS")
	for _, name := range detector.Names() {
		c, ok := cfg.Detector(name)
		if !ok {
			c = detector.DefaultConfigs()[name]
		}
		dedup := "forever"
		if c.DedupWindow > 0 {
			dedup = c.DedupWindow.String()
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%d\t%s\n", name, c.Enabled, c.Schedule, dedup, c.ResultLimit, options(c))
	}
	return tw.Flush()
}

// options renders the tuning fields a detector has set
func options(c detector.Config) string {
	var parts []string
	add := func(key string, set bool, value any) {
		if set {
			parts = append(parts, fmt.Sprintf("%s=%v", key, value))
		}
	}
	add("lookback", c.Lookback > 0, c.Lookback)
	add("threshold", c.Threshold > 0, c.Threshold)
	add("secondary", c.SecondaryThreshold > 0, c.SecondaryThreshold)
	add("min_age", c.MinAge > 0, c.MinAge)
	add("max_age", c.MaxAge > 0, c.MaxAge)
	add("days_before", c.DaysBefore > 0, c.DaysBefore)
	add("reminder_days", len(c.ReminderDays) > 0, c.ReminderDays)
	add("notify_admins", c.NotifyAdmins, true)
	add("notify_owner", c.NotifyOwner, true)
	add("warn_sender", c.WarnSender, true)
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
