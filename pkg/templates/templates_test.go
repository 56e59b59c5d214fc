package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

const goodTemplate = `<model xmlns="http://www.opengroup.org/xsd/archimate/3.0/"
  xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" identifier="id-m1">
  <name>Good Model</name>
  <documentation>Docs.</documentation>
  <elements>
    <element identifier="id-a" xsi:type="ApplicationComponent"/>
  </elements>
  <views>
    <diagrams>
      <view identifier="id-v1" xsi:type="Diagram"><name>Main</name></view>
      <view identifier="id-v2" xsi:type="Diagram"/>
    </diagrams>
  </views>
</model>`

func quietLogger() *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel + 1)
	return logger
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "good.xml"):   goodTemplate,
		filepath.Join(sub, "nested.xml"): goodTemplate,
		filepath.Join(dir, "broken.xml"): "<model><unclosed>",
		filepath.Join(dir, "notes.txt"):  "not a template",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	infos, err := List(dir, quietLogger())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	// The broken file is skipped, the text file ignored, the nested file found.
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2: %+v", len(infos), infos)
	}
	if filepath.Base(infos[0].Path) != "good.xml" {
		t.Errorf("infos not sorted by path: %+v", infos)
	}
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.xml")
	if err := os.WriteFile(path, []byte(goodTemplate), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := Describe(path)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}

	if info.Identifier != "id-m1" || info.Name != "Good Model" {
		t.Errorf("info = %+v", info)
	}
	if info.Elements != 1 {
		t.Errorf("Elements = %d, want 1", info.Elements)
	}
	if len(info.Views) != 2 {
		t.Fatalf("len(Views) = %d, want 2", len(info.Views))
	}
	if info.Views[0].Name != "Main" || info.Views[0].Index != 0 {
		t.Errorf("view[0] = %+v", info.Views[0])
	}
	if info.Views[1].Name != "" || info.Views[1].Identifier != "id-v2" {
		t.Errorf("view[1] = %+v", info.Views[1])
	}
}

func TestDescribeMissing(t *testing.T) {
	if _, err := Describe("/nonexistent/model.xml"); err == nil {
		t.Fatal("expected error")
	}
}
