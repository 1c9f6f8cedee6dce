package core

// Languages is the fixed set of target languages offered by the tutor.
var Languages = []string{
	"English", "French", "Spanish", "German",
	"Portuguese", "Thai", "Polish", "Russian",
}

// ValidLanguage reports whether language is one of the offered languages.
func ValidLanguage(language string) bool {
	for _, l := range Languages {
		if l == language {
			return true
		}
	}
	return false
}

// Level is a CEFR proficiency code (A1 through C1).
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
)

// Levels lists all supported CEFR codes in ascending order.
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1}

// levelLabels maps CEFR codes to the display labels persisted in profiles.
var levelLabels = map[Level]string{
	LevelA1: "A1 (Beginner)",
	LevelA2: "A2 (Elementary)",
	LevelB1: "B1 (Intermediate)",
	LevelB2: "B2 (Upper Intermediate)",
	LevelC1: "C1 (Advanced)",
}

// Valid reports whether l is a supported CEFR code.
func (l Level) Valid() bool {
	_, ok := levelLabels[l]
	return ok
}

// Label returns the display form, e.g. "B1 (Intermediate)".
func (l Level) Label() string {
	if label, ok := levelLabels[l]; ok {
		return label
	}
	return string(l)
}

// ParseLevel accepts either a bare code ("B1") or a display label
// ("B1 (Intermediate)") and returns the CEFR code.
func ParseLevel(s string) (Level, bool) {
	for code, label := range levelLabels {
		if s == string(code) || s == label {
			return code, true
		}
	}
	return "", false
}
