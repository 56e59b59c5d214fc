package errors

import (
	"strings"
	"testing"
)

func TestValidateTemplatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid path", "templates/landscape.xml", false},
		{"valid absolute path", "/opt/templates/model.xml", false},
		{"uppercase extension", "templates/MODEL.XML", false},
		{"empty", "", true},
		{"wrong extension", "templates/model.json", true},
		{"no extension", "templates/model", true},
		{"null byte", "templates/mo\x00del.xml", true},
		{"control character", "templates/mo\tdel.xml", true},
		{"too long", strings.Repeat("a", 500) + ".xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemplatePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTemplatePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutputFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"valid", "model.xml", false},
		{"valid with dashes", "my-model-v2.xml", false},
		{"empty", "", true},
		{"path separator", "out/model.xml", true},
		{"backslash", "out\\model.xml", true},
		{"traversal", "..model.xml", true},
		{"hidden file", ".model.xml", true},
		{"null byte", "mo\x00del.xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFilename(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputFilename(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"json", false},
		{"SVG", false},
		{"", true},
		{"pdf", true},
		{"jpeg", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			err := ValidateFormat(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"typical", "id-4a2b9c", false},
		{"underscore start", "_internal", false},
		{"dots and dashes", "id-1.2-rev_3", false},
		{"empty", "", true},
		{"digit start", "4id", true},
		{"space", "id 1", true},
		{"colon", "ns:id", true},
		{"too long", "id-" + strings.Repeat("x", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateViewFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		wantErr bool
	}{
		{"empty means all", "", false},
		{"single", "id-view-1", false},
		{"multiple", "id-view-1,Landscape View", false},
		{"trailing comma", "id-view-1,", true},
		{"blank entry", "a,,b", true},
		{"whitespace entry", "a, ,b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateViewFilter(tt.filter)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateViewFilter(%q) error = %v, wantErr %v", tt.filter, err, tt.wantErr)
			}
		})
	}
}
