package xsd

import (
	"bytes"
	"os"
	"os/exec"
	"strings"

	"github.com/archifact/archifact/pkg/errors"
)

// unavailableMessage is reported as the single finding when the validator
// backend is not installed. Availability is data, not a Go error: callers
// keep going and surface the hint alongside any other findings.
const unavailableMessage = "schema validation unavailable: xmllint (libxml2) not found; install with 'brew install libxml2' (macOS) or 'apt install libxml2-utils' (Linux)"

// Validate checks the XML document at xmlPath against the schema set in
// schemaDir, offline. It returns the validator's verdict plus its full
// error list; a schema violation is data, never a Go error. A missing
// xmllint binary is also data: ok=false with an install hint in the list.
// The returned error is non-nil only when validation could not run at all
// (missing document, missing schemas).
func Validate(xmlPath, schemaDir string) (bool, []string, error) {
	if _, err := os.Stat(xmlPath); err != nil {
		return false, nil, errors.Wrap(errors.ErrCodeNotFound, err, "document %s not found", xmlPath)
	}

	schemaPath, err := Localize(schemaDir)
	if err != nil {
		return false, nil, err
	}

	if _, err := exec.LookPath("xmllint"); err != nil {
		return false, []string{unavailableMessage}, nil
	}

	cmd := exec.Command("xmllint", "--noout", "--nonet", "--schema", schemaPath, xmlPath)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err == nil {
		return true, nil, nil
	}

	// xmllint reports one violation per stderr line, ending with a
	// "fails to validate" summary. The full list is returned untruncated.
	var violations []string
	for _, line := range strings.Split(errBuf.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		violations = append(violations, line)
	}
	if len(violations) == 0 {
		violations = []string{"document failed schema validation"}
	}
	return false, violations, nil
}
