package main

import (
	"fmt"
	"io"

	"github.com/couchcryptid/student-map/internal/adapter/xlsx"
	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Show how a roster's columns are read, without geocoding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor, err := newExtractor(cfg, logger)
		if err != nil {
			return err
		}
		roster, err := extractor.ExtractFile(args[0])
		if err != nil {
			return fmt.Errorf("%s: %s", args[0], domain.ErrorMessage(err))
		}
		writeLayout(cmd.OutOrStdout(), args[0], roster)
		return nil
	},
}

func writeLayout(w io.Writer, path string, roster xlsx.Roster) {
	l := roster.Layout
	fmt.Fprintf(w, "%s (feuille %q)\n\n", path, l.Sheet)

	student := l.Student
	if student == "" {
		student = l.Surname
		if l.GivenName != "" {
			student += " + " + l.GivenName
		}
	}
	fmt.Fprintf(w, "  %-14s %s\n", "Étudiant", student)
	fmt.Fprintf(w, "  %-14s %s\n", "Ville", l.City)
	fmt.Fprintf(w, "  %-14s %s\n", "Lycée", orDash(l.HighSchool))

	fmt.Fprintf(w, "\n  %-14s %d\n", "Lignes", len(roster.Records))
	fmt.Fprintf(w, "  %-14s %d\n", "Sans ville", roster.EmptyCities())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
