package service

import (
	"strings"
	"testing"

	"lms_content_backend/internal/model"
)

const manifest12 = `<?xml version="1.0"?>
<manifest identifier="course" version="1.0">
  <metadata>
    <schemaversion>1.2</schemaversion>
  </metadata>
  <organizations default="ORG-1">
    <organization identifier="ORG-1">
      <title>Golf Basics</title>
      <item identifier="ITEM-1" identifierref="RES-1">
        <title>Playing the Game</title>
        <masteryscore>80</masteryscore>
      </item>
      <item identifier="ITEM-2" identifierref="RES-2">
        <title>Etiquette</title>
      </item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="RES-1" type="webcontent" href="playing/index.html"/>
    <resource identifier="RES-2" type="webcontent" href="etiquette/index.html"/>
  </resources>
</manifest>`

func TestParseSCORMManifest12(t *testing.T) {
	parsed, err := ParseSCORMManifest(strings.NewReader(manifest12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Kind != model.PackageScorm12 {
		t.Errorf("kind = %s, want scorm12", parsed.Kind)
	}
	if parsed.Title != "Golf Basics" {
		t.Errorf("title = %q", parsed.Title)
	}
	if parsed.LaunchURL != "playing/index.html" {
		t.Errorf("launch = %q, want playing/index.html", parsed.LaunchURL)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(parsed.Items))
	}
	if parsed.MasteryScore == nil || *parsed.MasteryScore != 80 {
		t.Errorf("mastery score = %v, want 80", parsed.MasteryScore)
	}
}

func TestParseSCORMManifestSchemaDetection(t *testing.T) {
	tests := []struct {
		version string
		want    model.PackageKind
	}{
		{"1.2", model.PackageScorm12},
		{"2004 3rd Edition", model.PackageScorm2004},
		{"2004 4th Edition", model.PackageScorm2004},
		{"CAM 1.3", model.PackageScorm2004},
		{"2004", model.PackageScorm2004},
		{"", model.PackageScorm12},
		{"anything else", model.PackageScorm12},
	}
	for _, tt := range tests {
		if got := detectSchemaKind(tt.version); got != tt.want {
			t.Errorf("detectSchemaKind(%q) = %s, want %s", tt.version, got, tt.want)
		}
	}
}

func TestParseSCORMManifestNoMetadata(t *testing.T) {
	doc := `<manifest>
  <organizations>
    <organization identifier="ORG-1">
      <title>Bare</title>
      <item identifier="I1" identifierref="R1"><title>One</title></item>
    </organization>
  </organizations>
  <resources><resource identifier="R1" href="start.html"/></resources>
</manifest>`
	parsed, err := ParseSCORMManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Kind != model.PackageScorm12 {
		t.Errorf("absent schemaversion should mean scorm12, got %s", parsed.Kind)
	}
}

func TestParseSCORMManifestDefaultOrganization(t *testing.T) {
	doc := `<manifest>
  <organizations default="ORG-B">
    <organization identifier="ORG-A">
      <title>Wrong</title>
      <item identifier="IA" identifierref="RA"><title>A</title></item>
    </organization>
    <organization identifier="ORG-B">
      <title>Right</title>
      <item identifier="IB" identifierref="RB"><title>B</title></item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="RA" href="a.html"/>
    <resource identifier="RB" href="b.html"/>
  </resources>
</manifest>`
	parsed, err := ParseSCORMManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Title != "Right" || parsed.LaunchURL != "b.html" {
		t.Errorf("default organization not honored: title=%q launch=%q", parsed.Title, parsed.LaunchURL)
	}
}

func TestParseSCORMManifestBaseAndParameters(t *testing.T) {
	doc := `<manifest>
  <organizations>
    <organization identifier="O">
      <title>T</title>
      <item identifier="I" identifierref="R" parameters="?lang=en"><title>L</title></item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="R" href="index.html?v=2" base="content/"/>
  </resources>
</manifest>`
	parsed, err := ParseSCORMManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "content/index.html?v=2&lang=en"
	if parsed.LaunchURL != want {
		t.Errorf("launch = %q, want %q", parsed.LaunchURL, want)
	}
}

func TestParseSCORMManifestRejectsEscapingHref(t *testing.T) {
	doc := `<manifest>
  <organizations>
    <organization identifier="O">
      <title>T</title>
      <item identifier="I" identifierref="R"><title>L</title></item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="R" href="../../outside.html"/>
  </resources>
</manifest>`
	if _, err := ParseSCORMManifest(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for href escaping the package")
	}
}

func TestParseSCORMManifestResourceOnly(t *testing.T) {
	doc := `<manifest>
  <resources>
    <resource identifier="R" href="start.html"/>
  </resources>
</manifest>`
	parsed, err := ParseSCORMManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.LaunchURL != "start.html" {
		t.Errorf("launch = %q, want start.html", parsed.LaunchURL)
	}
}

func TestParseSCORMManifestMalformed(t *testing.T) {
	if _, err := ParseSCORMManifest(strings.NewReader("<manifest><resources>")); err == nil {
		t.Fatal("expected error for truncated XML")
	}
	if _, err := ParseSCORMManifest(strings.NewReader("<manifest></manifest>")); err == nil {
		t.Fatal("expected error for manifest with nothing launchable")
	}
}

func TestParseH5PDefinition(t *testing.T) {
	doc := `{
  "title": "Quiz Time",
  "mainLibrary": "H5P.QuestionSet",
  "language": "en",
  "preloadedDependencies": [
    {"machineName": "H5P.QuestionSet", "majorVersion": 1, "minorVersion": 17}
  ]
}`
	def, err := ParseH5PDefinition(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Title != "Quiz Time" || def.MainLibrary != "H5P.QuestionSet" {
		t.Errorf("parsed = %+v", def)
	}

	if _, err := ParseH5PDefinition(strings.NewReader(`{"title": "no library"}`)); err == nil {
		t.Fatal("expected error when mainLibrary is missing")
	}
	if _, err := ParseH5PDefinition(strings.NewReader(`{broken`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
