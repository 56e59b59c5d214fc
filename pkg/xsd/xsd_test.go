package xsd

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/archifact/archifact/pkg/errors"
)

const modelSchema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://www.opengroup.org/xsd/archimate/3.0/"
           xmlns="http://www.opengroup.org/xsd/archimate/3.0/"
           elementFormDefault="qualified">
  <xs:import namespace="http://www.w3.org/XML/1998/namespace"
             schemaLocation="http://www.w3.org/2001/xml.xsd"/>
  <xs:element name="model"/>
</xs:schema>`

const diagramSchema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://www.opengroup.org/xsd/archimate/3.0/"
           elementFormDefault="qualified">
  <xs:import namespace="http://www.w3.org/XML/1998/namespace"
             schemaLocation="http://www.w3.org/2001/xml.xsd"/>
  <xs:redefine schemaLocation="archimate3_Model.xsd"/>
</xs:schema>`

func writeSchemaDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLocalizePrefersDiagramSchema(t *testing.T) {
	dir := writeSchemaDir(t, map[string]string{
		"archimate3_Model.xsd":   modelSchema,
		"archimate3_Diagram.xsd": diagramSchema,
	})

	preferred, err := Localize(dir)
	if err != nil {
		t.Fatalf("Localize() error = %v", err)
	}
	if filepath.Base(preferred) != "archimate3_Diagram_local.xsd" {
		t.Errorf("preferred = %s, want Diagram variant", preferred)
	}

	// A minimal xml.xsd was synthesized.
	if _, err := os.Stat(filepath.Join(dir, "xml.xsd")); err != nil {
		t.Errorf("xml.xsd not synthesized: %v", err)
	}

	// The localized copy points at local files only.
	data, err := os.ReadFile(preferred)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if strings.Contains(s, "www.w3.org/2001/xml.xsd") {
		t.Errorf("localized schema still references w3.org:\n%s", s)
	}
	if !strings.Contains(s, `schemaLocation="xml.xsd"`) {
		t.Errorf("xml.xsd import not rewritten:\n%s", s)
	}
	if !strings.Contains(s, `schemaLocation="archimate3_Model_local.xsd"`) {
		t.Errorf("redefine not pointed at localized sibling:\n%s", s)
	}
}

func TestLocalizeFallsBackToModelSchema(t *testing.T) {
	dir := writeSchemaDir(t, map[string]string{
		"archimate3_Model.xsd": modelSchema,
	})

	preferred, err := Localize(dir)
	if err != nil {
		t.Fatalf("Localize() error = %v", err)
	}
	if filepath.Base(preferred) != "archimate3_Model_local.xsd" {
		t.Errorf("preferred = %s, want Model variant", preferred)
	}
}

func TestLocalizeKeepsExistingXMLXSD(t *testing.T) {
	custom := "<!-- custom xml.xsd -->" + minimalXMLXSD
	dir := writeSchemaDir(t, map[string]string{
		"archimate3_Model.xsd": modelSchema,
		"xml.xsd":              custom,
	})

	if _, err := Localize(dir); err != nil {
		t.Fatalf("Localize() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "xml.xsd"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != custom {
		t.Error("existing xml.xsd was overwritten")
	}
}

func TestLocalizeErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Localize("/nonexistent/schemas")
		if !errors.Is(err, errors.ErrCodeSchemaNotFound) {
			t.Errorf("error = %v, want SCHEMA_NOT_FOUND", err)
		}
	})

	t.Run("no schema files", func(t *testing.T) {
		_, err := Localize(t.TempDir())
		if !errors.Is(err, errors.ErrCodeSchemaNotFound) {
			t.Errorf("error = %v, want SCHEMA_NOT_FOUND", err)
		}
	})
}

func TestValidateMissingDocument(t *testing.T) {
	dir := writeSchemaDir(t, map[string]string{
		"archimate3_Model.xsd": modelSchema,
	})
	_, _, err := Validate(filepath.Join(dir, "missing.xml"), dir)
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestValidateDeterministic(t *testing.T) {
	if _, err := exec.LookPath("xmllint"); err != nil {
		t.Skip("xmllint not installed")
	}

	dir := writeSchemaDir(t, map[string]string{
		"archimate3_Model.xsd": modelSchema,
	})
	xmlPath := filepath.Join(dir, "doc.xml")
	doc := `<model xmlns="http://www.opengroup.org/xsd/archimate/3.0/"/>`
	if err := os.WriteFile(xmlPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	ok1, errs1, err := Validate(xmlPath, dir)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	ok2, errs2, err := Validate(xmlPath, dir)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if ok1 != ok2 || len(errs1) != len(errs2) {
		t.Errorf("validation not deterministic: (%v,%v) vs (%v,%v)", ok1, errs1, ok2, errs2)
	}
}

func TestValidateBackendUnavailable(t *testing.T) {
	dir := writeSchemaDir(t, map[string]string{
		"archimate3_Model.xsd": modelSchema,
	})
	xmlPath := filepath.Join(dir, "doc.xml")
	doc := `<model xmlns="http://www.opengroup.org/xsd/archimate/3.0/"/>`
	if err := os.WriteFile(xmlPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	// An empty PATH hides xmllint even when it is installed.
	t.Setenv("PATH", t.TempDir())

	ok, findings, err := Validate(xmlPath, dir)
	if err != nil {
		t.Fatalf("Validate() error = %v, want nil (availability is data)", err)
	}
	if ok {
		t.Error("ok = true without a validator backend")
	}
	if len(findings) != 1 || !strings.Contains(findings[0], "xmllint") {
		t.Errorf("findings = %v, want a single xmllint install hint", findings)
	}
}
