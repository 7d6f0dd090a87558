package repair

import (
	"regexp"
	"strings"
	"unicode"

	encunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"

	"github.com/haasonsaas/yamldoctor/internal/document"
)

// Transform is one named, pure text-to-text repair step.
type Transform struct {
	Name  string
	Apply func(string) string
}

// Transform names, in pipeline order.
const (
	StepOriginal         = "original"
	StepCleanCharacters  = "clean-characters"
	StepNormalizePunct   = "normalize-punctuation"
	StepTrailingCommas   = "trailing-commas"
	StepRealign          = "realign-indentation"
	StepJSONToYAML       = "json-to-yaml"
	StepQuoteColonValues = "quote-colon-values"
)

// DefaultTransforms returns the repair steps in the order they are tried.
func DefaultTransforms() []Transform {
	return []Transform{
		{Name: StepOriginal, Apply: func(s string) string { return s }},
		{Name: StepCleanCharacters, Apply: CleanCharacters},
		{Name: StepNormalizePunct, Apply: NormalizePunctuation},
		{Name: StepTrailingCommas, Apply: RemoveTrailingCommas},
		{Name: StepRealign, Apply: RealignText},
		{Name: StepJSONToYAML, Apply: JSONToYAML},
		{Name: StepQuoteColonValues, Apply: QuoteColonValues},
	}
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// CleanCharacters strips a byte-order mark, normalizes line endings to LF and
// expands tabs to two spaces. UTF-16 input carrying a BOM is decoded to UTF-8.
func CleanCharacters(s string) string {
	decoded, _, err := transform.String(encunicode.BOMOverride(transform.Nop), s)
	if err != nil {
		decoded = strings.TrimPrefix(s, "\uFEFF")
	}
	decoded = lineEndings.Replace(decoded)
	return strings.ReplaceAll(decoded, "\t", "  ")
}

var punctuation = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
	"：", ": ",
	"，", ", ",
	"；", "; ",
	"（", "(", "）", ")",
	"【", "[", "】", "]",
)

// NormalizePunctuation maps smart quotes and full-width punctuation to ASCII.
// The colon, comma and semicolon gain a trailing space so they keep working
// as YAML separators.
func NormalizePunctuation(s string) string {
	s = punctuation.Replace(s)
	narrowed, _, err := transform.String(runes.Map(narrowBracket), s)
	if err != nil {
		return s
	}
	return narrowed
}

// narrowBracket maps full-width opening and closing punctuation, such as
// ［ and ｛, to its ASCII form.
func narrowBracket(r rune) rune {
	if !unicode.In(r, unicode.Ps, unicode.Pe) {
		return r
	}
	p := width.LookupRune(r)
	if p.Kind() != width.EastAsianFullwidth {
		return r
	}
	if n := p.Narrow(); n != 0 {
		return n
	}
	return r
}

var trailingComma = regexp.MustCompile(`(?m):(.*?)[ \t]*,[ \t]*(#.*)?$`)

// RemoveTrailingCommas drops a comma that ends a "key: value," line, keeping
// any trailing comment. Commas inside a value are untouched.
func RemoveTrailingCommas(s string) string {
	return trailingComma.ReplaceAllStringFunc(s, func(m string) string {
		sub := trailingComma.FindStringSubmatch(m)
		out := ":" + sub[1]
		if sub[2] != "" {
			out += " " + sub[2]
		}
		return out
	})
}

// RealignText applies Realign to every line of s.
func RealignText(s string) string {
	return strings.Join(Realign(strings.Split(s, "\n")), "\n")
}

// JSONToYAML re-emits an object or array literal as YAML. Anything that is
// not a decodable literal passes through unchanged.
func JSONToYAML(s string) string {
	t := strings.TrimSpace(s)
	looksJSON := (strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}")) ||
		(strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"))
	if !looksJSON {
		return s
	}
	tree, err := document.FromJSON(t)
	if err != nil {
		return s
	}
	out, err := document.Print(tree)
	if err != nil {
		return s
	}
	return out
}

var keyPrefix = regexp.MustCompile(`^\s*[^:#\n]+:[ \t]*`)

// QuoteColonValues wraps "key: value" values that contain a colon in double
// quotes, so the parser does not read them as nested mappings. Values that
// already start with a quote or bracket are left alone.
func QuoteColonValues(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = quoteColonValue(line)
	}
	return strings.Join(lines, "\n")
}

func quoteColonValue(line string) string {
	loc := keyPrefix.FindStringIndex(line)
	if loc == nil {
		return line
	}
	head, rest := line[:loc[1]], line[loc[1]:]
	if rest == "" || strings.ContainsRune(`"'[{ `, rune(rest[0])) {
		return line
	}

	valueEnd := len(rest)
	if c := commentIndex(rest); c >= 0 {
		valueEnd = c
	}
	value := strings.TrimRight(rest[:valueEnd], " \t")
	if value == "" || !strings.Contains(value, ":") {
		return line
	}
	tail := rest[len(value):]
	return head + `"` + escapeDoubleQuoted(value) + `"` + tail
}

// commentIndex returns the index of a "#" that starts a comment, i.e. one
// preceded by whitespace.
func commentIndex(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] == '#' && (s[i-1] == ' ' || s[i-1] == '\t') {
			return i
		}
	}
	return -1
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeDoubleQuoted(s string) string {
	return doubleQuoteEscaper.Replace(s)
}
