package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateTemplatePath validates a template file path for safety and
// correctness before it is opened or used as a cache key.
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - No control characters or null bytes
//   - Maximum length of 500 characters
//   - Must end in .xml
func ValidateTemplatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "template path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "template path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "template path contains invalid characters")
		}
	}

	if !strings.HasSuffix(strings.ToLower(path), ".xml") {
		return New(ErrCodeInvalidInput, "template path must end in .xml: %q", path)
	}

	return nil
}

// ValidateOutputFilename validates an output filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateOutputFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidFilename, "output filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidFilename, "output filename cannot contain path separators")
	}

	if strings.Contains(filename, "..") {
		return New(ErrCodeInvalidFilename, "output filename cannot contain path traversal sequences (..)")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidFilename, "output filename cannot be a hidden file")
	}

	for _, r := range filename {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidFilename, "output filename contains invalid characters")
		}
	}

	return nil
}

// validFormats are the renderable output formats.
var validFormats = map[string]bool{
	"svg":  true,
	"png":  true,
	"json": true,
}

// ValidateFormat validates an output format string.
func ValidateFormat(format string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}

	if !validFormats[strings.ToLower(format)] {
		return New(ErrCodeInvalidFormat, "unsupported format %q (supported: svg, png, json)", format)
	}

	return nil
}

// identifierRegex matches valid XML NCName-style identifiers as used by
// model identifiers (id-xxxx and friends).
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

// ValidateIdentifier validates a model identifier.
// Identifiers must be valid XML NCNames: they appear as identifier and
// identifierRef attribute values in the exchange document.
func ValidateIdentifier(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "identifier cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "identifier too long (max 256 characters)")
	}

	if !identifierRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid identifier: %q", id)
	}

	return nil
}

// ValidateViewFilter validates a comma-separated view filter expression.
// Each entry must be non-empty after trimming.
func ValidateViewFilter(filter string) error {
	if filter == "" {
		return nil // empty filter means all views
	}

	for _, part := range strings.Split(filter, ",") {
		if strings.TrimSpace(part) == "" {
			return New(ErrCodeInvalidViewFilter, "view filter contains an empty entry: %q", filter)
		}
	}

	return nil
}
