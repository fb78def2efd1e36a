// Command studentmap geocodes a student roster spreadsheet and groups the
// students into map sites by home city.
//
// Usage:
//
//	studentmap check eleves.xlsx
//	studentmap locate eleves.xlsx --school "Lycée Thiers" --format geojson --output sites.geojson
//	studentmap serve
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/couchcryptid/student-map/internal/config"
	"github.com/couchcryptid/student-map/internal/observability"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	// Collectors register once per process, however many commands run.
	appMetrics = sync.OnceValue(observability.NewMetrics)
)

var rootCmd = &cobra.Command{
	Use:   "studentmap",
	Short: "Place a class roster on a map by home city",
	Long: `
studentmap reads a roster spreadsheet (one student per row with a home city
and, optionally, a high school), geocodes each city and groups students who
share coordinates into map sites.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		// stdout carries reports, so CLI logs go to stderr.
		logger = observability.NewLoggerTo(cmd.ErrOrStderr(), cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd, locateCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
