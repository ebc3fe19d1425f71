package assignment

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// koreanRanges is the code point allow-list applied to Korean output:
// tab, newlines, printable ASCII and the Hangul blocks.
var koreanRanges = [][2]rune{
	{0x0009, 0x000A},
	{0x000D, 0x000D},
	{0x0020, 0x007E},
	{0x1100, 0x11FF},
	{0x3130, 0x318F},
	{0xA960, 0xA97F},
	{0xAC00, 0xD7A3},
	{0xD7B0, 0xD7FF},
}

var languageNames = map[string]language.Tag{
	"korean":   language.Korean,
	"english":  language.English,
	"japanese": language.Japanese,
	"chinese":  language.Chinese,
	"german":   language.German,
	"french":   language.French,
	"spanish":  language.Spanish,
}

// LanguageTag resolves a language given by English name ("Korean") or
// BCP 47 code ("ko-KR"). Unknown input resolves to und.
func LanguageTag(name string) language.Tag {
	name = strings.TrimSpace(name)
	if tag, ok := languageNames[strings.ToLower(name)]; ok {
		return tag
	}
	tag, err := language.Parse(name)
	if err != nil {
		return language.Und
	}
	return tag
}

// IsKorean reports whether name resolves to Korean.
func IsKorean(name string) bool {
	base, _ := LanguageTag(name).Base()
	kb, _ := language.Korean.Base()
	return base == kb
}

// SanitizeText filters model output for the requested language. Korean
// text keeps only the allow-listed code points, which removes stray Han
// characters; other languages only lose control characters.
func SanitizeText(s, lang string) string {
	if IsKorean(lang) {
		return strings.Map(func(r rune) rune {
			for _, rg := range koreanRanges {
				if r >= rg[0] && r <= rg[1] {
					return r
				}
			}
			return -1
		}, s)
	}
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, s)
}

// Sanitize applies SanitizeText to every string in doc.
func Sanitize(doc *Document, lang string) {
	clean := func(s *string) { *s = SanitizeText(*s, lang) }
	cleanAll := func(ss []string) {
		for i := range ss {
			clean(&ss[i])
		}
	}
	clean(&doc.Company)
	clean(&doc.JobRole)
	clean(&doc.JobLevel)
	for i := range doc.Assignments {
		a := &doc.Assignments[i]
		for _, s := range []*string{&a.ID, &a.Title, &a.Mission, &a.Summary, &a.Timeline} {
			clean(s)
		}
		cleanAll(a.Requirements)
		cleanAll(a.Deliverables)
		cleanAll(a.AIGuidelines)
		cleanAll(a.Evaluation)
		cleanAll(a.DiscussionQuestions)
		for j := range a.Datasets {
			d := &a.Datasets[j]
			clean(&d.Name)
			clean(&d.Description)
			clean(&d.Format)
			clean(&d.Filename)
			for k := range d.Columns {
				c := &d.Columns[k]
				clean(&c.Name)
				clean(&c.Type)
				clean(&c.Description)
				cleanAll(c.Choices)
			}
		}
		clean(&a.StarterCode.Language)
		clean(&a.StarterCode.Description)
		clean(&a.StarterCode.Filename)
	}
}

// SanitizeFilename lower-cases stem, replaces anything but letters, digits,
// '_' and '-' with '_', and appends ext. An empty result becomes "dataset".
func SanitizeFilename(stem, ext string) string {
	stem = strings.ToLower(stem)
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, stem)
	safe = strings.Trim(safe, "_")
	if safe == "" {
		safe = "dataset"
	}
	return safe + "." + ext
}

// DefaultStarterLanguage is used when an assignment names no language.
const DefaultStarterLanguage = "kotlin"

var extensions = map[string]string{
	"kotlin":     "kt",
	"swift":      "swift",
	"python":     "py",
	"typescript": "ts",
	"javascript": "js",
	"java":       "java",
	"csharp":     "cs",
	"go":         "go",
	"dart":       "dart",
	"ruby":       "rb",
}

// Extension returns the source file extension for a language, "txt" when
// unknown.
func Extension(lang string) string {
	if ext, ok := extensions[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return ext
	}
	return "txt"
}

// StarterFile returns the starter code language and file name of the
// i-th (1-based) assignment. Both the portal and the starter code stage
// use it, so links agree with the files written.
func StarterFile(a Assignment, i int) (lang, filename string) {
	lang = strings.ToLower(strings.TrimSpace(a.StarterCode.Language))
	if lang == "" {
		lang = DefaultStarterLanguage
	}
	filename = path.Base(strings.ReplaceAll(strings.TrimSpace(a.StarterCode.Filename), `\`, "/"))
	if filename == "" || filename == "." || filename == "/" {
		filename = a.AssignmentID(i) + "_starter." + Extension(lang)
	}
	return lang, filename
}
