package service

import (
	"regexp"
	"strconv"
	"strings"

	"lms_content_backend/internal/model"
)

// SCORM API error codes. The runtime uses one state-machine code set for
// both protocol versions; only the data-access violation codes differ
// between 1.2 and 2004.
const (
	scormErrNone                = "0"
	scormErrGeneral             = "101"
	scormErrAlreadyInitialized  = "103"
	scormErrInstanceTerminated  = "104"
	scormErrTermBeforeInit      = "112"
	scormErrTermAfterTerm       = "113"
	scormErrGetBeforeInit       = "122"
	scormErrGetAfterTerm        = "123"
	scormErrSetBeforeInit       = "132"
	scormErrSetAfterTerm        = "133"
	scormErrCommitBeforeInit    = "142"
	scormErrCommitAfterTerm     = "143"
	scormErrInvalidArgument     = "201"
	scormErrGeneralGet          = "301"
	scormErrGeneralCommit       = "391"
	scormErrUndefinedElement    = "401"
	scormErrValueNotInitialized = "403"
	scormErrTypeMismatch        = "406"
	scormErrOutOfRange          = "407"
)

var scormErrorStrings = map[string]string{
	"0":   "No Error",
	"101": "General Exception",
	"103": "Already Initialized",
	"104": "Content Instance Terminated",
	"111": "General Termination Failure",
	"112": "Termination Before Initialization",
	"113": "Termination After Termination",
	"122": "Retrieve Data Before Initialization",
	"123": "Retrieve Data After Termination",
	"132": "Store Data Before Initialization",
	"133": "Store Data After Termination",
	"142": "Commit Before Initialization",
	"143": "Commit After Termination",
	"201": "General Argument Error",
	"301": "General Get Failure",
	"351": "General Set Failure",
	"391": "General Commit Failure",
	"401": "Undefined Data Model Element",
	"403": "Data Model Element Value Not Initialized",
	"404": "Data Model Element Is Read Only",
	"405": "Data Model Element Is Write Only",
	"406": "Data Model Element Type Mismatch",
	"407": "Data Model Element Value Out Of Range",
}

// ScormErrorString returns the diagnostic string for a code. Unknown codes
// map to the empty string, which is what players expect from GetErrorString.
func ScormErrorString(code string) string {
	return scormErrorStrings[code]
}

// readOnlyErrorCode and writeOnlyErrorCode differ between the protocol
// versions: 1.2 uses 403/404, 2004 uses 404/405.
func readOnlyErrorCode(kind model.PackageKind) string {
	if kind == model.PackageScorm2004 {
		return "404"
	}
	return "403"
}

func writeOnlyErrorCode(kind model.PackageKind) string {
	if kind == model.PackageScorm2004 {
		return "405"
	}
	return "404"
}

type cmiAccess int

const (
	cmiReadWrite cmiAccess = iota
	cmiReadOnly
	cmiWriteOnly
)

type cmiElement struct {
	access cmiAccess
	def    string
}

// SCORM 1.2 data model. Collection indices are canonicalized to "n"
// before lookup.
var cmi12Elements = map[string]cmiElement{
	"cmi.core._children":                             {cmiReadOnly, "student_id,student_name,lesson_location,credit,lesson_status,entry,score,total_time,lesson_mode,exit,session_time"},
	"cmi.core.student_id":                            {cmiReadOnly, ""},
	"cmi.core.student_name":                          {cmiReadOnly, ""},
	"cmi.core.lesson_location":                       {cmiReadWrite, ""},
	"cmi.core.credit":                                {cmiReadOnly, "credit"},
	"cmi.core.lesson_status":                         {cmiReadWrite, "not attempted"},
	"cmi.core.entry":                                 {cmiReadOnly, "ab-initio"},
	"cmi.core.score._children":                       {cmiReadOnly, "raw,min,max"},
	"cmi.core.score.raw":                             {cmiReadWrite, ""},
	"cmi.core.score.min":                             {cmiReadWrite, ""},
	"cmi.core.score.max":                             {cmiReadWrite, ""},
	"cmi.core.total_time":                            {cmiReadOnly, "0000:00:00.00"},
	"cmi.core.lesson_mode":                           {cmiReadOnly, "normal"},
	"cmi.core.exit":                                  {cmiWriteOnly, ""},
	"cmi.core.session_time":                          {cmiWriteOnly, ""},
	"cmi.suspend_data":                               {cmiReadWrite, ""},
	"cmi.launch_data":                                {cmiReadOnly, ""},
	"cmi.comments":                                   {cmiReadWrite, ""},
	"cmi.comments_from_lms":                          {cmiReadOnly, ""},
	"cmi.objectives._children":                       {cmiReadOnly, "id,score,status"},
	"cmi.objectives._count":                          {cmiReadOnly, "0"},
	"cmi.objectives.n.id":                            {cmiReadWrite, ""},
	"cmi.objectives.n.score._children":               {cmiReadOnly, "raw,min,max"},
	"cmi.objectives.n.score.raw":                     {cmiReadWrite, ""},
	"cmi.objectives.n.score.min":                     {cmiReadWrite, ""},
	"cmi.objectives.n.score.max":                     {cmiReadWrite, ""},
	"cmi.objectives.n.status":                        {cmiReadWrite, ""},
	"cmi.student_data._children":                     {cmiReadOnly, "mastery_score,max_time_allowed,time_limit_action"},
	"cmi.student_data.mastery_score":                 {cmiReadOnly, ""},
	"cmi.student_data.max_time_allowed":              {cmiReadOnly, ""},
	"cmi.student_data.time_limit_action":             {cmiReadOnly, ""},
	"cmi.student_preference._children":               {cmiReadOnly, "audio,language,speed,text"},
	"cmi.student_preference.audio":                   {cmiReadWrite, "0"},
	"cmi.student_preference.language":                {cmiReadWrite, ""},
	"cmi.student_preference.speed":                   {cmiReadWrite, "0"},
	"cmi.student_preference.text":                    {cmiReadWrite, "0"},
	"cmi.interactions._children":                     {cmiReadOnly, "id,objectives,time,type,correct_responses,weighting,student_response,result,latency"},
	"cmi.interactions._count":                        {cmiReadOnly, "0"},
	"cmi.interactions.n.id":                          {cmiWriteOnly, ""},
	"cmi.interactions.n.objectives._count":           {cmiReadOnly, "0"},
	"cmi.interactions.n.objectives.n.id":             {cmiWriteOnly, ""},
	"cmi.interactions.n.time":                        {cmiWriteOnly, ""},
	"cmi.interactions.n.type":                        {cmiWriteOnly, ""},
	"cmi.interactions.n.correct_responses._count":    {cmiReadOnly, "0"},
	"cmi.interactions.n.correct_responses.n.pattern": {cmiWriteOnly, ""},
	"cmi.interactions.n.weighting":                   {cmiWriteOnly, ""},
	"cmi.interactions.n.student_response":            {cmiWriteOnly, ""},
	"cmi.interactions.n.result":                      {cmiWriteOnly, ""},
	"cmi.interactions.n.latency":                     {cmiWriteOnly, ""},
}

// SCORM 2004 data model.
var cmi2004Elements = map[string]cmiElement{
	"cmi._version":                                   {cmiReadOnly, "1.0"},
	"cmi.comments_from_learner._children":            {cmiReadOnly, "comment,location,timestamp"},
	"cmi.comments_from_learner._count":               {cmiReadOnly, "0"},
	"cmi.comments_from_learner.n.comment":            {cmiReadWrite, ""},
	"cmi.comments_from_learner.n.location":           {cmiReadWrite, ""},
	"cmi.comments_from_learner.n.timestamp":          {cmiReadWrite, ""},
	"cmi.comments_from_lms._children":                {cmiReadOnly, "comment,location,timestamp"},
	"cmi.comments_from_lms._count":                   {cmiReadOnly, "0"},
	"cmi.comments_from_lms.n.comment":                {cmiReadOnly, ""},
	"cmi.comments_from_lms.n.location":               {cmiReadOnly, ""},
	"cmi.comments_from_lms.n.timestamp":              {cmiReadOnly, ""},
	"cmi.completion_status":                          {cmiReadWrite, "unknown"},
	"cmi.completion_threshold":                       {cmiReadOnly, ""},
	"cmi.credit":                                     {cmiReadOnly, "credit"},
	"cmi.entry":                                      {cmiReadOnly, "ab_initio"},
	"cmi.exit":                                       {cmiWriteOnly, ""},
	"cmi.interactions._children":                     {cmiReadOnly, "id,type,objectives,timestamp,correct_responses,weighting,learner_response,result,latency,description"},
	"cmi.interactions._count":                        {cmiReadOnly, "0"},
	"cmi.interactions.n.id":                          {cmiReadWrite, ""},
	"cmi.interactions.n.type":                        {cmiReadWrite, ""},
	"cmi.interactions.n.objectives._count":           {cmiReadOnly, "0"},
	"cmi.interactions.n.objectives.n.id":             {cmiReadWrite, ""},
	"cmi.interactions.n.timestamp":                   {cmiReadWrite, ""},
	"cmi.interactions.n.correct_responses._count":    {cmiReadOnly, "0"},
	"cmi.interactions.n.correct_responses.n.pattern": {cmiReadWrite, ""},
	"cmi.interactions.n.weighting":                   {cmiReadWrite, ""},
	"cmi.interactions.n.learner_response":            {cmiReadWrite, ""},
	"cmi.interactions.n.result":                      {cmiReadWrite, ""},
	"cmi.interactions.n.latency":                     {cmiReadWrite, ""},
	"cmi.interactions.n.description":                 {cmiReadWrite, ""},
	"cmi.launch_data":                                {cmiReadOnly, ""},
	"cmi.learner_id":                                 {cmiReadOnly, ""},
	"cmi.learner_name":                               {cmiReadOnly, ""},
	"cmi.learner_preference._children":               {cmiReadOnly, "audio_level,language,delivery_speed,audio_captioning"},
	"cmi.learner_preference.audio_level":             {cmiReadWrite, "1"},
	"cmi.learner_preference.language":                {cmiReadWrite, ""},
	"cmi.learner_preference.delivery_speed":          {cmiReadWrite, "1"},
	"cmi.learner_preference.audio_captioning":        {cmiReadWrite, "0"},
	"cmi.location":                                   {cmiReadWrite, ""},
	"cmi.max_time_allowed":                           {cmiReadOnly, ""},
	"cmi.mode":                                       {cmiReadOnly, "normal"},
	"cmi.objectives._children":                       {cmiReadOnly, "id,score,success_status,completion_status,progress_measure,description"},
	"cmi.objectives._count":                          {cmiReadOnly, "0"},
	"cmi.objectives.n.id":                            {cmiReadWrite, ""},
	"cmi.objectives.n.score._children":               {cmiReadOnly, "scaled,raw,min,max"},
	"cmi.objectives.n.score.scaled":                  {cmiReadWrite, ""},
	"cmi.objectives.n.score.raw":                     {cmiReadWrite, ""},
	"cmi.objectives.n.score.min":                     {cmiReadWrite, ""},
	"cmi.objectives.n.score.max":                     {cmiReadWrite, ""},
	"cmi.objectives.n.success_status":                {cmiReadWrite, "unknown"},
	"cmi.objectives.n.completion_status":             {cmiReadWrite, "unknown"},
	"cmi.objectives.n.progress_measure":              {cmiReadWrite, ""},
	"cmi.objectives.n.description":                   {cmiReadWrite, ""},
	"cmi.progress_measure":                           {cmiReadWrite, ""},
	"cmi.scaled_passing_score":                       {cmiReadOnly, ""},
	"cmi.score._children":                            {cmiReadOnly, "scaled,raw,min,max"},
	"cmi.score.scaled":                               {cmiReadWrite, ""},
	"cmi.score.raw":                                  {cmiReadWrite, ""},
	"cmi.score.min":                                  {cmiReadWrite, ""},
	"cmi.score.max":                                  {cmiReadWrite, ""},
	"cmi.session_time":                               {cmiWriteOnly, ""},
	"cmi.success_status":                             {cmiReadWrite, "unknown"},
	"cmi.suspend_data":                               {cmiReadWrite, ""},
	"cmi.time_limit_action":                          {cmiReadOnly, ""},
	"cmi.total_time":                                 {cmiReadOnly, "PT0H0M0S"},
}

var cmiIndexPattern = regexp.MustCompile(`\.\d+\.`)

// canonicalCMIKey rewrites collection indices to the placeholder segment
// used by the element tables, so cmi.interactions.3.result looks up
// cmi.interactions.n.result.
func canonicalCMIKey(key string) string {
	if !strings.ContainsAny(key, "0123456789") {
		return key
	}
	out := key
	for cmiIndexPattern.MatchString(out) {
		out = cmiIndexPattern.ReplaceAllString(out, ".n.")
	}
	return out
}

// cmiLookup resolves a raw element name against the data model for the
// package kind.
func cmiLookup(kind model.PackageKind, key string) (cmiElement, bool) {
	table := cmi12Elements
	if kind == model.PackageScorm2004 {
		table = cmi2004Elements
	}
	el, ok := table[canonicalCMIKey(key)]
	return el, ok
}

var cmi12StatusValues = map[string]bool{
	"passed": true, "completed": true, "failed": true,
	"incomplete": true, "browsed": true, "not attempted": true,
}

var cmiCompletionValues = map[string]bool{
	"completed": true, "incomplete": true, "not attempted": true, "unknown": true,
}

var cmiSuccessValues = map[string]bool{
	"passed": true, "failed": true, "unknown": true,
}

var cmi12ExitValues = map[string]bool{
	"time-out": true, "suspend": true, "logout": true, "": true,
}

var cmi2004ExitValues = map[string]bool{
	"time-out": true, "suspend": true, "logout": true, "normal": true, "": true,
}

func cmiDecimal(value string) (float64, bool) {
	f, err := strconv.ParseFloat(value, 64)
	return f, err == nil
}

// validateCMIValue checks a write against the data type the element
// implies: enumerated statuses, decimal scores with their ranges, and the
// version's session time grammar. Returns the error code to report, or
// the empty string when the value is acceptable. Elements without an
// implied type accept any string.
func validateCMIValue(kind model.PackageKind, key, value string) string {
	canonical := canonicalCMIKey(key)

	if kind == model.PackageScorm2004 {
		switch canonical {
		case "cmi.completion_status", "cmi.objectives.n.completion_status":
			if !cmiCompletionValues[value] {
				return scormErrTypeMismatch
			}
		case "cmi.success_status", "cmi.objectives.n.success_status":
			if !cmiSuccessValues[value] {
				return scormErrTypeMismatch
			}
		case "cmi.exit":
			if !cmi2004ExitValues[value] {
				return scormErrTypeMismatch
			}
		case "cmi.score.scaled", "cmi.objectives.n.score.scaled":
			f, ok := cmiDecimal(value)
			if !ok {
				return scormErrTypeMismatch
			}
			if f < -1 || f > 1 {
				return scormErrOutOfRange
			}
		case "cmi.progress_measure", "cmi.objectives.n.progress_measure":
			f, ok := cmiDecimal(value)
			if !ok {
				return scormErrTypeMismatch
			}
			if f < 0 || f > 1 {
				return scormErrOutOfRange
			}
		case "cmi.score.raw", "cmi.score.min", "cmi.score.max",
			"cmi.objectives.n.score.raw", "cmi.objectives.n.score.min",
			"cmi.objectives.n.score.max", "cmi.interactions.n.weighting":
			if _, ok := cmiDecimal(value); !ok {
				return scormErrTypeMismatch
			}
		case "cmi.session_time":
			if _, err := parseISO8601Duration(value); err != nil {
				return scormErrTypeMismatch
			}
		}
		return ""
	}

	switch canonical {
	case "cmi.core.lesson_status":
		if !cmi12StatusValues[value] {
			return scormErrTypeMismatch
		}
	case "cmi.core.exit":
		if !cmi12ExitValues[value] {
			return scormErrTypeMismatch
		}
	case "cmi.core.score.raw", "cmi.core.score.min", "cmi.core.score.max":
		f, ok := cmiDecimal(value)
		if !ok {
			return scormErrTypeMismatch
		}
		if f < 0 || f > 100 {
			return scormErrOutOfRange
		}
	case "cmi.objectives.n.score.raw", "cmi.objectives.n.score.min",
		"cmi.objectives.n.score.max", "cmi.interactions.n.weighting":
		if _, ok := cmiDecimal(value); !ok {
			return scormErrTypeMismatch
		}
	case "cmi.core.session_time":
		if _, err := parseScorm12Time(value); err != nil {
			return scormErrTypeMismatch
		}
	}
	return ""
}

// validCMIKeyShape rejects names that cannot be data model elements
// before any table lookup: empty, not rooted at cmi, or containing blank
// segments.
func validCMIKeyShape(key string) bool {
	if key == "" || key == "cmi" {
		return key == "cmi"
	}
	if !strings.HasPrefix(key, "cmi.") {
		return false
	}
	for _, seg := range strings.Split(key, ".") {
		if seg == "" {
			return false
		}
	}
	return true
}
