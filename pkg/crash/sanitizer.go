package crash

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/modforge/assembly/pkg/models"
)

// maxSanitizedChars is the truncation ceiling the Analyzer prompt and stored
// record are held to (§4.L step 2).
const maxSanitizedChars = 20000

// errorNeighborhoodChars is how much of the log around the first detected
// exception/"Caused by" line is kept when truncating, in addition to the
// log's head.
const errorNeighborhoodChars = 12000

var (
	windowsHomeRe = regexp.MustCompile(`[A-Za-z]:\\Users\\[^\\]+`)
	unixHomeRe    = regexp.MustCompile(`/(?:home|Users)/[^/\s]+`)
	ipAddressRe   = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	uuidRe        = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	timestampRe   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?Z?\b`)
	logTimeTagRe  = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\]`)

	mcVersionRe = regexp.MustCompile(`(?i)minecraft\s*version[:\s]+([0-9]+\.[0-9]+(?:\.[0-9]+)?)`)
	modJarRe    = regexp.MustCompile(`(?i)\b([a-z][a-z0-9_-]{2,40})(?:-[0-9][\w.+-]*)?\.jar\b`)

	whitespaceRe = regexp.MustCompile(`\s+`)

	errorNeighborhoodRe = regexp.MustCompile(`(?i)(caused by|exception in thread|\bERROR\b)`)
)

var loaderMarkers = []struct {
	needle string
	loader string
}{
	{"fabric loader", "fabric"},
	{"fabricloader", "fabric"},
	{"neoforge", "neoforge"},
	{"minecraftforge", "forge"},
	{"forge mod loader", "forge"},
	{"quilt loader", "quilt"},
}

var errorKindMarkers = []struct {
	needle string
	kind   models.ErrorKind
}{
	{"noclassdeffounderror", models.ErrorClassNotFound},
	{"classnotfoundexception", models.ErrorClassNotFound},
	{"mixinapplicatorerror", models.ErrorMixinError},
	{"mixintransformererror", models.ErrorMixinError},
	{"mixinerror", models.ErrorMixinError},
	{"outofmemoryerror", models.ErrorMemory},
	{"java heap space", models.ErrorMemory},
	{"duplicate mod", models.ErrorModConflict},
	{"mod conflict", models.ErrorModConflict},
	{"requires", models.ErrorMissingDependency}, // "X requires Y" dependency-missing phrasing
	{"missing dependenc", models.ErrorMissingDependency},
	{"incompatible mod set", models.ErrorFabricOnForge},
}

// Sanitize strips PII-shaped substrings, extracts the structured fields the
// Analyzer needs, and truncates the text to maxSanitizedChars while keeping
// the log's head and the neighborhood of its first detected error (§4.L
// step 2).
func Sanitize(rawLog string) models.SanitizedCrash {
	scrubbed := scrub(rawLog)
	truncated := truncatePreservingErrorNeighborhood(scrubbed)

	return models.SanitizedCrash{
		MCVersion:      extractMCVersion(truncated),
		ModLoader:      extractModLoader(truncated),
		ErrorKind:      extractErrorKind(truncated),
		StackTrace:     truncated,
		ModListInLog:   extractModList(truncated),
		NormalizedText: normalize(truncated),
	}
}

// DedupHash returns the MD5 of the normalized (lowercased, whitespace-
// collapsed) log text (§4.L step 1).
func DedupHash(normalizedText string) string {
	sum := md5.Sum([]byte(normalizedText))
	return hex.EncodeToString(sum[:])
}

func scrub(s string) string {
	s = windowsHomeRe.ReplaceAllString(s, `C:\Users\[user]`)
	s = unixHomeRe.ReplaceAllString(s, "/home/[user]")
	s = uuidRe.ReplaceAllString(s, "[uuid]")
	s = ipAddressRe.ReplaceAllString(s, "[ip]")
	s = timestampRe.ReplaceAllString(s, "[timestamp]")
	s = logTimeTagRe.ReplaceAllString(s, "[time]")
	return s
}

func normalize(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

func truncatePreservingErrorNeighborhood(s string) string {
	if len(s) <= maxSanitizedChars {
		return s
	}

	loc := errorNeighborhoodRe.FindStringIndex(s)
	if loc == nil {
		return s[:maxSanitizedChars]
	}

	headBudget := maxSanitizedChars - errorNeighborhoodChars
	if headBudget < 0 {
		headBudget = 0
	}
	head := s[:min(headBudget, len(s))]

	start := loc[0] - errorNeighborhoodChars/4
	if start < headBudget {
		start = headBudget
	}
	end := start + errorNeighborhoodChars
	if end > len(s) {
		end = len(s)
		start = max(end-errorNeighborhoodChars, headBudget)
	}
	neighborhood := s[start:end]

	out := head + "\n...[truncated]...\n" + neighborhood
	if len(out) > maxSanitizedChars {
		out = out[:maxSanitizedChars]
	}
	return out
}

func extractMCVersion(s string) string {
	m := mcVersionRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

func extractModLoader(s string) string {
	lower := strings.ToLower(s)
	for _, marker := range loaderMarkers {
		if strings.Contains(lower, marker.needle) {
			return marker.loader
		}
	}
	return ""
}

func extractErrorKind(s string) models.ErrorKind {
	lower := strings.ToLower(s)
	for _, marker := range errorKindMarkers {
		if strings.Contains(lower, marker.needle) {
			return marker.kind
		}
	}
	return models.ErrorUnknown
}

func extractModList(s string) []string {
	matches := modJarRe.FindAllStringSubmatch(s, -1)
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		slug := strings.ToLower(m[1])
		if seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}
