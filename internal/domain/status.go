package domain

import (
	"errors"
	"fmt"
)

// User-facing strings are French: the rosters and the people reading the map are.

// ProgressMessage is the status line shown while a run is in flight.
func ProgressMessage(processed, total int) string {
	return fmt.Sprintf("Géocodage en cours... (%d/%d)", processed, total)
}

// StartMessage is the status line shown before the first lookup.
func StartMessage() string {
	return "Géocodage des villes..."
}

// SummaryMessage describes a run that placed at least one student.
func SummaryMessage(placed, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("%d étudiants ont été placés sur la carte", placed)
	}
	return fmt.Sprintf("%d étudiants ont été placés sur la carte, %d villes non trouvées", placed, failed)
}

// ErrorMessage renders a run-level error for end users.
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "Le fichier Excel est vide"
	case errors.Is(err, ErrZeroResolutions):
		return "Aucune ville n'a pu être géocodée"
	default:
		return err.Error()
	}
}
