package stringutil

import (
	"regexp"

	"github.com/omnicli/omni/pkg/logger"
)

var sanitizeLog = logger.New("stringutil:sanitize")

// Regex patterns for detecting potential secret key names
var (
	// Match uppercase snake_case identifiers that look like secret names (e.g., MY_SECRET_KEY, GITHUB_TOKEN, API_KEY)
	// Matches any such identifier; names in commonEnvKeywords are kept by SanitizeErrorMessage
	secretNamePattern = regexp.MustCompile(`\b([A-Z][A-Z0-9]*_[A-Z0-9_]+)\b`)

	// Match PascalCase identifiers ending with security-related suffixes (e.g., GitHubToken, ApiKey, DeploySecret)
	pascalCaseSecretPattern = regexp.MustCompile(`\b([A-Z][a-z0-9]*(?:[A-Z][a-z0-9]*)*(?:Token|Key|Secret|Password|Credential|Auth))\b`)

	// Common non-sensitive identifiers to exclude from redaction, so that
	// ordinary Omni and XDG environment variable names survive untouched.
	commonEnvKeywords = map[string]bool{
		"OMNI_GIT":          true,
		"OMNI_ORG":          true,
		"OMNI_CONFIG":       true,
		"OMNI_PATH":         true,
		"OMNI_ENV":          true,
		"OMNI_DATA_HOME":    true,
		"OMNI_CACHE_HOME":   true,
		"OMNI_SUBCOMMAND":   true,
		"OMNI_RUN_FROM":     true,
		"OMNI_UUID":         true,
		"XDG_CONFIG_HOME":   true,
		"XDG_DATA_HOME":     true,
		"NO_COLOR":          true,
		"PATH":              true,
		"HOME":              true,
		"SHELL":             true,
	}
)

// SanitizeErrorMessage removes potential secret key names from error messages
// before they reach a log line. Custom operations declare arbitrary env-ops
// directives, and a misconfigured one can put a variable named like a
// credential straight into a validation error; this keeps that name from
// being echoed back verbatim.
func SanitizeErrorMessage(message string) string {
	if message == "" {
		return message
	}

	sanitizeLog.Printf("Sanitizing error message: length=%d", len(message))

	// Redact uppercase snake_case patterns (e.g., MY_SECRET_KEY, API_TOKEN)
	sanitized := secretNamePattern.ReplaceAllStringFunc(message, func(match string) string {
		// Don't redact common Omni, XDG and shell environment variable names
		if commonEnvKeywords[match] {
			return match
		}
		sanitizeLog.Printf("Redacted snake_case secret pattern: %s", match)
		return "[REDACTED]"
	})

	// Redact PascalCase patterns ending with security suffixes (e.g., GitHubToken, ApiKey)
	sanitized = pascalCaseSecretPattern.ReplaceAllString(sanitized, "[REDACTED]")

	if sanitized != message {
		sanitizeLog.Print("Error message sanitization applied redactions")
	}

	return sanitized
}
