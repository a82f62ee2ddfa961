package service

import (
	"testing"

	"lms_content_backend/internal/model"
)

func TestCanonicalCMIKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"cmi.core.lesson_status", "cmi.core.lesson_status"},
		{"cmi.interactions.0.id", "cmi.interactions.n.id"},
		{"cmi.interactions.12.result", "cmi.interactions.n.result"},
		{"cmi.interactions.3.objectives.1.id", "cmi.interactions.n.objectives.n.id"},
		{"cmi.objectives.0.score.raw", "cmi.objectives.n.score.raw"},
	}
	for _, tt := range tests {
		if got := canonicalCMIKey(tt.in); got != tt.want {
			t.Errorf("canonicalCMIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCMILookup(t *testing.T) {
	if _, ok := cmiLookup(model.PackageScorm12, "cmi.core.lesson_status"); !ok {
		t.Error("cmi.core.lesson_status should exist in the 1.2 model")
	}
	if _, ok := cmiLookup(model.PackageScorm2004, "cmi.core.lesson_status"); ok {
		t.Error("cmi.core.lesson_status must not exist in the 2004 model")
	}
	if _, ok := cmiLookup(model.PackageScorm2004, "cmi.completion_status"); !ok {
		t.Error("cmi.completion_status should exist in the 2004 model")
	}
	if _, ok := cmiLookup(model.PackageScorm12, "cmi.interactions.5.result"); !ok {
		t.Error("indexed interaction elements should resolve via canonicalization")
	}
	if _, ok := cmiLookup(model.PackageScorm12, "cmi.bogus"); ok {
		t.Error("unknown element should not resolve")
	}
}

func TestCMIAccess(t *testing.T) {
	el, _ := cmiLookup(model.PackageScorm12, "cmi.core.student_id")
	if el.access != cmiReadOnly {
		t.Error("student_id should be read only")
	}
	el, _ = cmiLookup(model.PackageScorm12, "cmi.core.session_time")
	if el.access != cmiWriteOnly {
		t.Error("session_time should be write only")
	}
	el, _ = cmiLookup(model.PackageScorm12, "cmi.interactions.0.result")
	if el.access != cmiWriteOnly {
		t.Error("1.2 interaction result should be write only")
	}
	el, _ = cmiLookup(model.PackageScorm2004, "cmi.interactions.0.result")
	if el.access != cmiReadWrite {
		t.Error("2004 interaction result should be read write")
	}
}

func TestAccessViolationCodes(t *testing.T) {
	if readOnlyErrorCode(model.PackageScorm12) != "403" {
		t.Error("1.2 read-only violation should be 403")
	}
	if readOnlyErrorCode(model.PackageScorm2004) != "404" {
		t.Error("2004 read-only violation should be 404")
	}
	if writeOnlyErrorCode(model.PackageScorm12) != "404" {
		t.Error("1.2 write-only violation should be 404")
	}
	if writeOnlyErrorCode(model.PackageScorm2004) != "405" {
		t.Error("2004 write-only violation should be 405")
	}
}

func TestValidCMIKeyShape(t *testing.T) {
	valid := []string{"cmi.core.lesson_status", "cmi.suspend_data", "cmi"}
	for _, key := range valid {
		if !validCMIKeyShape(key) {
			t.Errorf("%q should be a valid shape", key)
		}
	}
	invalid := []string{"", "core.lesson_status", "cmi..status", "cmi.", "adl.nav.request "}
	for _, key := range invalid {
		if validCMIKeyShape(key) {
			t.Errorf("%q should be an invalid shape", key)
		}
	}
}

func TestScormErrorString(t *testing.T) {
	if ScormErrorString("0") != "No Error" {
		t.Error("code 0 should map to No Error")
	}
	if ScormErrorString("103") != "Already Initialized" {
		t.Error("code 103 mapping wrong")
	}
	if ScormErrorString("9999") != "" {
		t.Error("unknown code should map to empty string")
	}
}

func TestValidateCMIValue(t *testing.T) {
	tests := []struct {
		kind  model.PackageKind
		key   string
		value string
		want  string
	}{
		{model.PackageScorm12, "cmi.core.lesson_status", "passed", ""},
		{model.PackageScorm12, "cmi.core.lesson_status", "not attempted", ""},
		{model.PackageScorm12, "cmi.core.lesson_status", "victorious", "406"},
		{model.PackageScorm12, "cmi.core.score.raw", "85.5", ""},
		{model.PackageScorm12, "cmi.core.score.raw", "ninety", "406"},
		{model.PackageScorm12, "cmi.core.score.raw", "-1", "407"},
		{model.PackageScorm12, "cmi.core.score.max", "101", "407"},
		{model.PackageScorm12, "cmi.core.session_time", "0000:30:00.00", ""},
		{model.PackageScorm12, "cmi.core.session_time", "PT30M", "406"},
		{model.PackageScorm12, "cmi.core.exit", "suspend", ""},
		{model.PackageScorm12, "cmi.core.exit", "quit", "406"},
		{model.PackageScorm12, "cmi.interactions.3.weighting", "abc", "406"},
		{model.PackageScorm12, "cmi.suspend_data", "anything at all", ""},

		{model.PackageScorm2004, "cmi.completion_status", "incomplete", ""},
		{model.PackageScorm2004, "cmi.completion_status", "done", "406"},
		{model.PackageScorm2004, "cmi.success_status", "unknown", ""},
		{model.PackageScorm2004, "cmi.success_status", "winner", "406"},
		{model.PackageScorm2004, "cmi.score.scaled", "0.5", ""},
		{model.PackageScorm2004, "cmi.score.scaled", "1.5", "407"},
		{model.PackageScorm2004, "cmi.score.scaled", "abc", "406"},
		{model.PackageScorm2004, "cmi.objectives.0.score.scaled", "-1.5", "407"},
		{model.PackageScorm2004, "cmi.progress_measure", "0.25", ""},
		{model.PackageScorm2004, "cmi.progress_measure", "2", "407"},
		{model.PackageScorm2004, "cmi.session_time", "PT1H5M", ""},
		{model.PackageScorm2004, "cmi.session_time", "0000:30:00", "406"},
		{model.PackageScorm2004, "cmi.exit", "normal", ""},
		{model.PackageScorm2004, "cmi.exit", "quit", "406"},
		{model.PackageScorm2004, "cmi.suspend_data", "anything at all", ""},
	}
	for _, tt := range tests {
		if got := validateCMIValue(tt.kind, tt.key, tt.value); got != tt.want {
			t.Errorf("validateCMIValue(%s, %q, %q) = %q, want %q",
				tt.kind, tt.key, tt.value, got, tt.want)
		}
	}
}
