package curriculum

import (
	"fmt"
	"sort"
	"strings"
)

// Chapter describes one chapter of a subject in the NCTB curriculum.
type Chapter struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"` // Bengali title where known
	EnglishName string `json:"english_name"`
	Number      int    `json:"number"`
}

// structure maps class level -> subject -> ordered chapters.
// Mirrors the NCTB curriculum for classes 9-12.
var structure = map[int]map[string][]Chapter{
	9: {
		"Physics": chaptersFromNames("Motion", "Force and Pressure", "Work, Power and Energy", "Sound", "Light"),
		"Chemistry": chaptersFromNames("Matter and Its States", "Elements and Compounds", "Acids, Bases and Salts", "Chemical Reactions"),
		"Biology": chaptersFromNames("Cell and Its Structure", "Life Process", "Reproduction", "Heredity and Evolution"),
		"Mathematics": {
			{ID: "real_numbers", Name: "বাস্তব সংখ্যা", EnglishName: "Real Numbers", Number: 1},
			{ID: "sets_functions", Name: "সেট ও ফাংশন", EnglishName: "Sets and Functions", Number: 2},
			{ID: "algebraic_expressions", Name: "বীজগাণিতিক রাশি", EnglishName: "Algebraic Expressions", Number: 3},
			{ID: "indices_logarithms", Name: "সূচক ও লগারিদম", EnglishName: "Indices and Logarithms", Number: 4},
			{ID: "linear_equations", Name: "এক চলকবিশিষ্ট সমীকরণ", EnglishName: "Linear Equations in One Variable", Number: 5},
		},
	},
	10: {
		"Physics":     chaptersFromNames("Heat and Temperature", "Waves and Sound", "Light and Optics", "Electricity and Magnetism", "Modern Physics"),
		"Chemistry":   chaptersFromNames("Atomic Structure", "Periodic Table", "Chemical Bonding", "Metals and Non-metals", "Organic Chemistry"),
		"Biology":     chaptersFromNames("Nutrition", "Respiration", "Transportation", "Excretion", "Control and Coordination"),
		"Mathematics": chaptersFromNames("Trigonometry", "Geometry", "Coordinate Geometry", "Statistics", "Probability"),
	},
	11: {
		"Physics":     chaptersFromNames("Mechanics", "Thermal Physics", "Waves", "Electricity", "Magnetism"),
		"Chemistry":   chaptersFromNames("General Chemistry", "Organic Chemistry", "Physical Chemistry", "Inorganic Chemistry"),
		"Biology":     chaptersFromNames("Cell Biology", "Plant Biology", "Animal Biology", "Human Biology", "Ecology"),
		"Mathematics": chaptersFromNames("Calculus", "Algebra", "Geometry", "Trigonometry", "Statistics"),
	},
	12: {
		"Physics":     chaptersFromNames("Advanced Mechanics", "Thermodynamics", "Electromagnetic Waves", "Modern Physics", "Electronics"),
		"Chemistry":   chaptersFromNames("Advanced Organic Chemistry", "Physical Chemistry", "Inorganic Chemistry", "Environmental Chemistry"),
		"Biology":     chaptersFromNames("Advanced Cell Biology", "Genetics", "Evolution", "Biotechnology", "Environmental Biology"),
		"Mathematics": chaptersFromNames("Advanced Calculus", "Linear Algebra", "Differential Equations", "Probability", "Statistics"),
	},
}

func chaptersFromNames(names ...string) []Chapter {
	chapters := make([]Chapter, len(names))
	for i, name := range names {
		chapters[i] = Chapter{ID: slugify(name), EnglishName: name, Number: i + 1}
	}
	return chapters
}

func slugify(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	lastUnderscore := true
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ClassLevels returns the supported class levels in ascending order.
func ClassLevels() []int {
	levels := make([]int, 0, len(structure))
	for l := range structure {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels
}

// Subjects returns the subjects available for a class level, sorted.
func Subjects(classLevel int) []string {
	subjects := make([]string, 0, len(structure[classLevel]))
	for s := range structure[classLevel] {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects
}

// Chapters returns the ordered chapter list for a class/subject pair.
// Subject matching is case-insensitive.
func Chapters(classLevel int, subject string) []Chapter {
	for name, chapters := range structure[classLevel] {
		if strings.EqualFold(name, subject) {
			return chapters
		}
	}
	return nil
}

// FindChapter resolves a chapter by id or English name within a class/subject.
func FindChapter(classLevel int, subject, chapter string) (Chapter, bool) {
	for _, ch := range Chapters(classLevel, subject) {
		if ch.ID == chapter || strings.EqualFold(ch.EnglishName, chapter) {
			return ch, true
		}
	}
	return Chapter{}, false
}

// Validate checks a scope against the curriculum. Chapter may be empty; a
// non-empty chapter must exist under the class/subject pair.
func Validate(classLevel int, subject, chapter string) error {
	if _, ok := structure[classLevel]; !ok {
		return fmt.Errorf("unsupported class level %d", classLevel)
	}
	if subject == "" {
		return fmt.Errorf("subject required")
	}
	if len(Chapters(classLevel, subject)) == 0 {
		return fmt.Errorf("unknown subject %q for class %d", subject, classLevel)
	}
	if chapter == "" {
		return nil
	}
	if _, ok := FindChapter(classLevel, subject, chapter); !ok {
		return fmt.Errorf("unknown chapter %q for class %d %s", chapter, classLevel, subject)
	}
	return nil
}

// Structure returns the full curriculum map for capability listings.
func Structure() map[int]map[string][]Chapter {
	return structure
}
