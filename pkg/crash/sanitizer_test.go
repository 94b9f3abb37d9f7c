package crash_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modforge/assembly/pkg/crash"
	"github.com/modforge/assembly/pkg/models"
)

func TestSanitize_StripsHomePathsIPsUUIDsAndTimestamps(t *testing.T) {
	raw := `at C:\Users\alice\AppData\Roaming\.minecraft\crash.txt
Connected from 192.168.1.42
Session 123e4567-e89b-12d3-a456-426614174000
Logged at 2024-03-01T10:15:30Z
[14:22:01] thread died`

	sanitized := crash.Sanitize(raw)
	assert.NotContains(t, sanitized.StackTrace, "alice")
	assert.NotContains(t, sanitized.StackTrace, "192.168.1.42")
	assert.NotContains(t, sanitized.StackTrace, "123e4567-e89b-12d3-a456-426614174000")
	assert.NotContains(t, sanitized.StackTrace, "2024-03-01T10:15:30Z")
	assert.NotContains(t, sanitized.StackTrace, "[14:22:01]")
}

func TestSanitize_ExtractsMCVersionAndLoader(t *testing.T) {
	raw := "Minecraft Version: 1.20.1\nFabric Loader 0.15.7\nsome stack trace"
	sanitized := crash.Sanitize(raw)
	assert.Equal(t, "1.20.1", sanitized.MCVersion)
	assert.Equal(t, "fabric", sanitized.ModLoader)
}

func TestSanitize_ExtractsErrorKindFromKnownMarkers(t *testing.T) {
	raw := "java.lang.NoClassDefFoundError: com.example.Foo"
	sanitized := crash.Sanitize(raw)
	assert.Equal(t, models.ErrorClassNotFound, sanitized.ErrorKind)
}

func TestSanitize_UnknownErrorKindWhenNoMarkerMatches(t *testing.T) {
	sanitized := crash.Sanitize("totally generic log text with no recognizable exception")
	assert.Equal(t, models.ErrorUnknown, sanitized.ErrorKind)
}

func TestSanitize_ExtractsModListFromJarFilenames(t *testing.T) {
	raw := "Loading mods: sodium-0.5.3.jar, iris-1.6.jar, jei.jar"
	sanitized := crash.Sanitize(raw)
	assert.Contains(t, sanitized.ModListInLog, "sodium")
	assert.Contains(t, sanitized.ModListInLog, "iris")
	assert.Contains(t, sanitized.ModListInLog, "jei")
}

func TestSanitize_TruncatesToMaxCharsPreservingHeadAndErrorNeighborhood(t *testing.T) {
	head := strings.Repeat("a", 5000)
	filler := strings.Repeat("b", 30000)
	errorSection := "Caused by: java.lang.RuntimeException: boom " + strings.Repeat("c", 2000)
	raw := head + filler + errorSection + strings.Repeat("d", 30000)

	sanitized := crash.Sanitize(raw)
	assert.LessOrEqual(t, len(sanitized.StackTrace), 20000)
	assert.Contains(t, sanitized.StackTrace, "aaaa")
	assert.Contains(t, sanitized.StackTrace, "Caused by")
}

func TestSanitize_NormalizedTextIsLowercasedAndWhitespaceCollapsed(t *testing.T) {
	sanitized := crash.Sanitize("Some   Error\n\nHappened")
	assert.Equal(t, "some error happened", sanitized.NormalizedText)
}

func TestDedupHash_SameNormalizedTextProducesSameHash(t *testing.T) {
	a := crash.Sanitize("Some   Error\n\nHappened")
	b := crash.Sanitize("some error happened")
	assert.Equal(t, crash.DedupHash(a.NormalizedText), crash.DedupHash(b.NormalizedText))
}
