package xlsx

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Columns lists the header aliases recognised for each roster field.
// Matching ignores case, accents and surrounding whitespace.
type Columns struct {
	Student    []string `yaml:"student"`
	Surname    []string `yaml:"surname"`
	GivenName  []string `yaml:"given_name"`
	City       []string `yaml:"city"`
	HighSchool []string `yaml:"high_school"`
}

// DefaultColumns returns the aliases used by French school rosters.
func DefaultColumns() Columns {
	return Columns{
		Student:    []string{"étudiant", "élève", "student", "nom complet"},
		Surname:    []string{"nom", "nom de famille", "surname", "last name"},
		GivenName:  []string{"prénom", "first name", "given name"},
		City:       []string{"ville", "commune", "city"},
		HighSchool: []string{"lycée", "lycée d'origine", "établissement", "high school"},
	}
}

// LoadColumns reads extra aliases from a YAML file and appends them to the
// defaults. An empty path returns the defaults.
func LoadColumns(path string) (Columns, error) {
	cols := DefaultColumns()
	if path == "" {
		return cols, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Columns{}, fmt.Errorf("read columns file: %w", err)
	}

	var extra Columns
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return Columns{}, fmt.Errorf("parse columns file %s: %w", path, err)
	}

	cols.Student = append(cols.Student, extra.Student...)
	cols.Surname = append(cols.Surname, extra.Surname...)
	cols.GivenName = append(cols.GivenName, extra.GivenName...)
	cols.City = append(cols.City, extra.City...)
	cols.HighSchool = append(cols.HighSchool, extra.HighSchool...)
	return cols, nil
}

// fold lowercases s, strips diacritics and collapses whitespace so that
// "Étudiant ", "etudiant" and "ÉTUDIANT" compare equal.
func fold(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.ToLower(s),
	)
	s = strings.ReplaceAll(s, "’", "'")
	return strings.Join(strings.Fields(s), " ")
}

// indexOf returns the position of the first header matching any alias, or -1.
func indexOf(header []string, aliases []string) int {
	want := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		want[fold(a)] = struct{}{}
	}
	for i, h := range header {
		if _, ok := want[fold(h)]; ok {
			return i
		}
	}
	return -1
}
