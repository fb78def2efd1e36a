package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/student-map/internal/adapter/geojson"
	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/couchcryptid/student-map/internal/locator"
	"github.com/spf13/cobra"
)

const (
	formatSummary = "summary"
	formatJSON    = "json"
	formatGeoJSON = "geojson"
)

var locateFlags struct {
	school string
	format string
	output string
}

var locateCmd = &cobra.Command{
	Use:   "locate FILE",
	Short: "Geocode a roster and print the resulting map sites",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocate,
}

func init() {
	locateCmd.Flags().StringVar(&locateFlags.school, "school", "", "only show students from this high school")
	locateCmd.Flags().StringVar(&locateFlags.format, "format", formatSummary, "output format: summary, json or geojson")
	locateCmd.Flags().StringVarP(&locateFlags.output, "output", "o", "", "write the output to this file instead of stdout")
}

func runLocate(cmd *cobra.Command, args []string) error {
	switch locateFlags.format {
	case formatSummary, formatJSON, formatGeoJSON:
	default:
		return fmt.Errorf("unknown format %q", locateFlags.format)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, appMetrics())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	roster, err := a.extractor.ExtractFile(args[0])
	if err != nil {
		return fmt.Errorf("%s: %s", args[0], domain.ErrorMessage(err))
	}
	logger.Info("roster loaded",
		"file", args[0],
		"sheet", roster.Layout.Sheet,
		"rows", len(roster.Records),
		"empty_cities", roster.EmptyCities(),
	)

	progress := newProgressReporter(cmd.ErrOrStderr(), len(roster.Records), logger)
	report, err := a.locator.Locate(ctx, roster.Records, locator.Options{School: locateFlags.school}, progress.update)
	progress.finish()

	if err != nil {
		if errors.Is(err, domain.ErrZeroResolutions) {
			writeFailed(cmd.ErrOrStderr(), report.Result.Failed)
		}
		return errors.New(domain.ErrorMessage(err))
	}

	out := cmd.OutOrStdout()
	if locateFlags.output != "" {
		f, err := os.Create(locateFlags.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := writeReport(out, report, locateFlags.format); err != nil {
		return err
	}
	if locateFlags.format != formatSummary {
		writeFailed(cmd.ErrOrStderr(), report.Result.Failed)
	}
	return nil
}

func writeReport(w io.Writer, report locator.Report, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatGeoJSON:
		data, err := geojson.Marshal(report.Sites)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return writeSummary(w, report)
	}
}

func writeSummary(w io.Writer, report locator.Report) error {
	var b strings.Builder
	fmt.Fprintln(&b, report.Summary)
	fmt.Fprintf(&b, "Centre de la carte : %.4f, %.4f\n", report.Center.Latitude, report.Center.Longitude)

	if len(report.Sites) > 0 {
		fmt.Fprintln(&b)
		for _, site := range report.Sites {
			names := make([]string, len(site.Students))
			for i, st := range site.Students {
				names[i] = st.Name
			}
			fmt.Fprintf(&b, "  %-32s %3d  [%s]  %s\n", site.DisplayName, site.Count(), site.Tier(), strings.Join(names, ", "))
		}
	}
	if len(report.Attributes) > 0 {
		fmt.Fprintf(&b, "\nLycées : %s\n", strings.Join(report.Attributes, ", "))
	}
	writeFailed(&b, report.Result.Failed)

	_, err := io.WriteString(w, b.String())
	return err
}

// writeFailed lists lookups that need a manual check.
func writeFailed(w io.Writer, failed []domain.FailedLookup) {
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(w, "\nVilles non trouvées (%d) :\n", len(failed))
	for _, f := range failed {
		fmt.Fprintf(w, "  - %s : %q (%s)\n", f.Student, f.City, f.Reason)
	}
}
