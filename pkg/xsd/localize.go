// Package xsd validates generated exchange documents against the official
// ArchiMate schema set, fully offline. The official schemas import the
// generic XML-namespace schema and each other by URL; localization rewrites
// those references onto files in the schema directory so no network fetch
// ever happens.
package xsd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/archifact/archifact/pkg/errors"
)

// schemaCandidates lists schema variants in preference order. The Diagram
// schema redefines the base viewpoint type to permit rendering extensions,
// so it accepts everything the narrower variants accept and more.
var schemaCandidates = []string{
	"archimate3_Diagram.xsd",
	"archimate3_View.xsd",
	"archimate3_Model.xsd",
}

// localSuffix marks the rewritten copy of an official schema file.
const localSuffix = "_local.xsd"

// minimalXMLXSD is a self-contained XML-namespace schema defining the lang
// and space attributes, enough to satisfy the official schemas' xml.xsd
// import without fetching w3.org.
const minimalXMLXSD = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://www.w3.org/XML/1998/namespace"
           xmlns:xml="http://www.w3.org/XML/1998/namespace">
  <xs:attribute name="lang" type="xs:language"/>
  <xs:attribute name="space">
    <xs:simpleType>
      <xs:restriction base="xs:NCName">
        <xs:enumeration value="default"/>
        <xs:enumeration value="preserve"/>
      </xs:restriction>
    </xs:simpleType>
  </xs:attribute>
  <xs:attribute name="base" type="xs:anyURI"/>
  <xs:attribute name="id" type="xs:ID"/>
</xs:schema>
`

// Localize prepares the schema directory for offline validation and
// returns the path of the preferred localized schema variant. It writes a
// minimal xml.xsd when the directory lacks one, and for every official
// schema file present it writes a *_local.xsd copy whose schemaLocation
// references point at local files.
func Localize(schemaDir string) (string, error) {
	info, err := os.Stat(schemaDir)
	if err != nil || !info.IsDir() {
		return "", errors.New(errors.ErrCodeSchemaNotFound, "schema directory %s does not exist", schemaDir)
	}

	xmlXSD := filepath.Join(schemaDir, "xml.xsd")
	if _, err := os.Stat(xmlXSD); os.IsNotExist(err) {
		if err := os.WriteFile(xmlXSD, []byte(minimalXMLXSD), 0o644); err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "writing local xml.xsd")
		}
	}

	present := map[string]bool{}
	for _, name := range schemaCandidates {
		if _, err := os.Stat(filepath.Join(schemaDir, name)); err == nil {
			present[name] = true
		}
	}
	if len(present) == 0 {
		return "", errors.New(errors.ErrCodeSchemaNotFound,
			"no ArchiMate schema found in %s (expected one of %s)",
			schemaDir, strings.Join(schemaCandidates, ", "))
	}

	var preferred string
	for _, name := range schemaCandidates {
		if !present[name] {
			continue
		}
		localPath, err := localizeSchema(schemaDir, name, present)
		if err != nil {
			return "", err
		}
		if preferred == "" {
			preferred = localPath
		}
	}
	return preferred, nil
}

// localizeSchema rewrites one official schema's external references and
// writes the result as a sibling *_local.xsd file.
func localizeSchema(schemaDir, name string, present map[string]bool) (string, error) {
	src := filepath.Join(schemaDir, name)
	data, err := os.ReadFile(src)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeSchemaNotFound, err, "reading schema %s", src)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "schema %s is not well-formed XML", src)
	}

	rewriteLocations(doc.Root(), present)

	localPath := filepath.Join(schemaDir, strings.TrimSuffix(name, ".xsd")+localSuffix)
	out, err := doc.WriteToBytes()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "serializing localized schema")
	}
	if err := os.WriteFile(localPath, out, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "writing localized schema %s", localPath)
	}
	return localPath, nil
}

// rewriteLocations walks xs:import/xs:include/xs:redefine directives and
// points each schemaLocation at a local file: xml.xsd for the XML-namespace
// import, the *_local.xsd sibling for official schemas we also localize,
// and the bare basename otherwise.
func rewriteLocations(el *etree.Element, present map[string]bool) {
	if el == nil {
		return
	}
	switch el.Tag {
	case "import", "include", "redefine":
		if attr := el.SelectAttr("schemaLocation"); attr != nil {
			attr.Value = localLocation(attr.Value, present)
		}
	}
	for _, child := range el.ChildElements() {
		rewriteLocations(child, present)
	}
}

func localLocation(location string, present map[string]bool) string {
	base := filepath.Base(strings.TrimSpace(location))
	if base == "xml.xsd" || strings.Contains(location, "www.w3.org") {
		return "xml.xsd"
	}
	if present[base] {
		return strings.TrimSuffix(base, ".xsd") + localSuffix
	}
	return base
}
