package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/model"
	"lms_content_backend/internal/repository"
	"lms_content_backend/internal/util"
	"lms_content_backend/pkg/logger"
	"lms_content_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LaunchInfo is what the player page needs to boot a SCORM attempt.
type LaunchInfo struct {
	AttemptID  uint              `json:"attemptId"`
	PackageID  uint              `json:"packageId"`
	Kind       model.PackageKind `json:"kind"`
	Title      string            `json:"title"`
	ContentURL string            `json:"contentUrl"`
	Entry      string            `json:"entry"`
}

// RuntimeService implements the SCORM API as a stateless protocol: the
// session state machine lives on the attempt row, so any process can
// service any call.
type RuntimeService struct {
	DB             *gorm.DB
	Config         *config.Config
	AttemptRepo    *repository.AttemptRepository
	CMIRepo        *repository.CMIRepository
	LessonRepo     *repository.LessonRepository
	EnrollmentRepo *repository.EnrollmentRepository
	PackageRepo    *repository.PackageRepository
	UserRepo       *repository.UserRepository
	Completion     *CompletionService
}

func NewRuntimeService(db *gorm.DB, cfg *config.Config, completion *CompletionService) *RuntimeService {
	return &RuntimeService{
		DB:             db,
		Config:         cfg,
		AttemptRepo:    repository.NewAttemptRepository(db),
		CMIRepo:        repository.NewCMIRepository(db),
		LessonRepo:     repository.NewLessonRepository(db),
		EnrollmentRepo: repository.NewEnrollmentRepository(db),
		PackageRepo:    repository.NewPackageRepository(db),
		UserRepo:       repository.NewUserRepository(db),
		Completion:     completion,
	}
}

// Launch resolves a lesson to its package, checks enrollment, and returns
// the attempt to run. The attempt is created on first launch.
func (s *RuntimeService) Launch(ctx context.Context, userID, lessonID uint) (*LaunchInfo, error) {
	lesson, err := s.LessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.Live {
		return nil, util.ErrLessonNotFound
	}
	if lesson.Kind != model.LessonScorm || lesson.PackageID == nil {
		return nil, util.ErrPackageNotFound
	}

	enrolled, err := s.EnrollmentRepo.IsEnrolled(ctx, userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, util.ErrNotEnrolled
	}

	pkg, err := s.PackageRepo.FindByID(ctx, *lesson.PackageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Kind.IsScorm() || pkg.ExtractedPath == "" || pkg.LaunchURL == "" {
		return nil, util.ErrPackageNotReady
	}

	attempt, err := s.AttemptRepo.GetOrCreate(ctx, userID, pkg.ID)
	if err != nil {
		return nil, err
	}

	entry := "ab-initio"
	if pkg.Kind == model.PackageScorm2004 {
		entry = "ab_initio"
	}
	if attempt.SuspendData != "" || attempt.Location != "" {
		entry = "resume"
	}

	return &LaunchInfo{
		AttemptID:  attempt.ID,
		PackageID:  pkg.ID,
		Kind:       pkg.Kind,
		Title:      pkg.Title,
		ContentURL: fmt.Sprintf("/api/content/%d/%s", pkg.ID, pkg.LaunchURL),
		Entry:      entry,
	}, nil
}

// Call dispatches one SCORM API invocation. The returned error covers
// resolution failures only (unknown attempt, wrong owner); protocol
// failures come back as a SCORM error code with result "false" or "".
func (s *RuntimeService) Call(ctx context.Context, userID, attemptID uint, method, param1, param2 string) (string, string, error) {
	attempt, err := s.AttemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		return "", "", err
	}
	if attempt.UserID != userID {
		return "", "", util.ErrPermissionDenied
	}
	pkg, err := s.PackageRepo.FindByID(ctx, attempt.PackageID)
	if err != nil {
		return "", "", err
	}

	var result, code string
	switch method {
	case "Initialize", "LMSInitialize":
		result, code = s.initialize(ctx, attempt, param1)
	case "Terminate", "LMSFinish":
		result, code = s.terminate(ctx, attempt, pkg, param1)
	case "GetValue", "LMSGetValue":
		result, code = s.getValue(ctx, attempt, pkg, param1)
	case "SetValue", "LMSSetValue":
		result, code = s.setValue(ctx, attempt, pkg, param1, param2)
	case "Commit", "LMSCommit":
		result, code = s.commit(ctx, attempt, pkg, param1)
	case "GetLastError", "LMSGetLastError":
		result, code = attempt.LastError, attempt.LastError
	case "GetErrorString", "LMSGetErrorString":
		result, code = ScormErrorString(param1), attempt.LastError
	case "GetDiagnostic", "LMSGetDiagnostic":
		target := param1
		if target == "" {
			target = attempt.LastError
		}
		result, code = ScormErrorString(target), attempt.LastError
	default:
		return "", "", util.ErrUnknownMethod
	}

	monitoring.RuntimeCallCounter.WithLabelValues(method, code).Inc()
	return result, code, nil
}

// setError durably records the last error code on the attempt.
func (s *RuntimeService) setError(ctx context.Context, attempt *model.Attempt, code string) {
	if attempt.LastError == code {
		return
	}
	attempt.LastError = code
	if err := s.AttemptRepo.Updates(ctx, attempt.ID, map[string]interface{}{"last_error": code}); err != nil {
		logger.Log.Warn("could not persist SCORM error code",
			zap.Uint("attempt_id", attempt.ID), zap.Error(err))
	}
}

func (s *RuntimeService) initialize(ctx context.Context, attempt *model.Attempt, param string) (string, string) {
	if param != "" {
		s.setError(ctx, attempt, scormErrInvalidArgument)
		return "false", scormErrInvalidArgument
	}
	switch attempt.SessionState {
	case model.SessionRunning:
		s.setError(ctx, attempt, scormErrAlreadyInitialized)
		return "false", scormErrAlreadyInitialized
	case model.SessionTerminated:
		s.setError(ctx, attempt, scormErrInstanceTerminated)
		return "false", scormErrInstanceTerminated
	}

	err := repository.WithRetry(s.Config.Database.Retry, func() error {
		return s.AttemptRepo.Updates(ctx, attempt.ID, map[string]interface{}{
			"session_state": model.SessionRunning,
			"last_error":    scormErrNone,
			"last_accessed": time.Now(),
		})
	})
	if err != nil {
		s.setError(ctx, attempt, scormErrGeneral)
		return "false", scormErrGeneral
	}
	attempt.SessionState = model.SessionRunning
	attempt.LastError = scormErrNone
	return "true", scormErrNone
}

func (s *RuntimeService) terminate(ctx context.Context, attempt *model.Attempt, pkg *model.Package, param string) (string, string) {
	if param != "" {
		s.setError(ctx, attempt, scormErrInvalidArgument)
		return "false", scormErrInvalidArgument
	}
	switch attempt.SessionState {
	case model.SessionNotInitialized:
		s.setError(ctx, attempt, scormErrTermBeforeInit)
		return "false", scormErrTermBeforeInit
	case model.SessionTerminated:
		s.setError(ctx, attempt, scormErrTermAfterTerm)
		return "false", scormErrTermAfterTerm
	}

	// Terminate carries an implicit Commit.
	if err := s.flushPending(ctx, attempt, pkg); err != nil {
		s.setError(ctx, attempt, "111")
		return "false", "111"
	}
	err := repository.WithRetry(s.Config.Database.Retry, func() error {
		return s.AttemptRepo.Updates(ctx, attempt.ID, map[string]interface{}{
			"session_state": model.SessionTerminated,
			"last_error":    scormErrNone,
		})
	})
	if err != nil {
		s.setError(ctx, attempt, "111")
		return "false", "111"
	}
	attempt.SessionState = model.SessionTerminated
	attempt.LastError = scormErrNone
	return "true", scormErrNone
}

func (s *RuntimeService) getValue(ctx context.Context, attempt *model.Attempt, pkg *model.Package, key string) (string, string) {
	switch attempt.SessionState {
	case model.SessionNotInitialized:
		s.setError(ctx, attempt, scormErrGetBeforeInit)
		return "", scormErrGetBeforeInit
	case model.SessionTerminated:
		s.setError(ctx, attempt, scormErrGetAfterTerm)
		return "", scormErrGetAfterTerm
	}
	if !validCMIKeyShape(key) {
		s.setError(ctx, attempt, scormErrInvalidArgument)
		return "", scormErrInvalidArgument
	}
	el, ok := cmiLookup(pkg.Kind, key)
	if !ok {
		s.setError(ctx, attempt, scormErrUndefinedElement)
		return "", scormErrUndefinedElement
	}
	if el.access == cmiWriteOnly {
		code := writeOnlyErrorCode(pkg.Kind)
		s.setError(ctx, attempt, code)
		return "", code
	}

	// Uncommitted writes from this session win over committed state.
	if raw, ok := attempt.PendingData[key]; ok {
		if v, ok := raw.(string); ok {
			s.setError(ctx, attempt, scormErrNone)
			return v, scormErrNone
		}
	}

	if strings.HasSuffix(key, "._count") {
		count, err := s.collectionCount(ctx, attempt, strings.TrimSuffix(key, "._count"))
		if err != nil {
			s.setError(ctx, attempt, scormErrGeneralGet)
			return "", scormErrGeneralGet
		}
		s.setError(ctx, attempt, scormErrNone)
		return strconv.Itoa(count), scormErrNone
	}

	entry, err := s.CMIRepo.Get(ctx, attempt.ID, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.setError(ctx, attempt, scormErrGeneralGet)
		return "", scormErrGeneralGet
	}
	if entry != nil {
		s.setError(ctx, attempt, scormErrNone)
		return entry.Value, scormErrNone
	}

	if v, ok := s.virtualValue(ctx, attempt, pkg, key); ok {
		s.setError(ctx, attempt, scormErrNone)
		return v, scormErrNone
	}
	if el.def != "" {
		s.setError(ctx, attempt, scormErrNone)
		return el.def, scormErrNone
	}

	// A 2004 element with no default and no stored value is an error; 1.2
	// just hands back the empty string.
	if pkg.Kind == model.PackageScorm2004 {
		s.setError(ctx, attempt, scormErrValueNotInitialized)
		return "", scormErrValueNotInitialized
	}
	s.setError(ctx, attempt, scormErrNone)
	return "", scormErrNone
}

// virtualValue serves elements whose value derives from the attempt or
// package rather than stored CMI data.
func (s *RuntimeService) virtualValue(ctx context.Context, attempt *model.Attempt, pkg *model.Package, key string) (string, bool) {
	switch key {
	case "cmi.core.student_id", "cmi.learner_id":
		return strconv.FormatUint(uint64(attempt.UserID), 10), true
	case "cmi.core.student_name", "cmi.learner_name":
		user, err := s.UserRepo.FindByID(ctx, attempt.UserID)
		if err != nil {
			return "", false
		}
		return user.Name, true
	case "cmi.core.entry", "cmi.entry":
		if attempt.SuspendData != "" || attempt.Location != "" {
			return "resume", true
		}
		return "", false
	case "cmi.core.total_time", "cmi.total_time":
		if attempt.TotalTime != "" {
			return attempt.TotalTime, true
		}
		return "", false
	case "cmi.core.lesson_location", "cmi.location":
		if attempt.Location != "" {
			return attempt.Location, true
		}
		return "", false
	case "cmi.suspend_data":
		if attempt.SuspendData != "" {
			return attempt.SuspendData, true
		}
		return "", false
	case "cmi.student_data.mastery_score", "cmi.scaled_passing_score":
		if score, ok := manifestMasteryScore(pkg); ok {
			return strconv.FormatFloat(score, 'f', -1, 64), true
		}
		return "", false
	}
	return "", false
}

func manifestMasteryScore(pkg *model.Package) (float64, bool) {
	if len(pkg.Manifest) == 0 {
		return 0, false
	}
	var digest struct {
		MasteryScore *float64 `json:"mastery_score"`
	}
	if err := json.Unmarshal(pkg.Manifest, &digest); err != nil || digest.MasteryScore == nil {
		return 0, false
	}
	return *digest.MasteryScore, true
}

// collectionCount counts distinct indices directly under prefix across
// committed entries and the pending buffer.
func (s *RuntimeService) collectionCount(ctx context.Context, attempt *model.Attempt, prefix string) (int, error) {
	entries, err := s.CMIRepo.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return 0, err
	}
	seen := map[int]bool{}
	collect := func(key string) {
		rest, ok := strings.CutPrefix(key, prefix+".")
		if !ok {
			return
		}
		head, _, _ := strings.Cut(rest, ".")
		if idx, err := strconv.Atoi(head); err == nil {
			seen[idx] = true
		}
	}
	for _, e := range entries {
		collect(e.Key)
	}
	for key := range attempt.PendingData {
		collect(key)
	}
	return len(seen), nil
}

func (s *RuntimeService) setValue(ctx context.Context, attempt *model.Attempt, pkg *model.Package, key, value string) (string, string) {
	switch attempt.SessionState {
	case model.SessionNotInitialized:
		s.setError(ctx, attempt, scormErrSetBeforeInit)
		return "false", scormErrSetBeforeInit
	case model.SessionTerminated:
		s.setError(ctx, attempt, scormErrSetAfterTerm)
		return "false", scormErrSetAfterTerm
	}
	if !validCMIKeyShape(key) {
		s.setError(ctx, attempt, scormErrInvalidArgument)
		return "false", scormErrInvalidArgument
	}
	el, ok := cmiLookup(pkg.Kind, key)
	if !ok {
		s.setError(ctx, attempt, scormErrUndefinedElement)
		return "false", scormErrUndefinedElement
	}
	if el.access == cmiReadOnly {
		code := readOnlyErrorCode(pkg.Kind)
		s.setError(ctx, attempt, code)
		return "false", code
	}
	if code := validateCMIValue(pkg.Kind, key, value); code != "" {
		s.setError(ctx, attempt, code)
		return "false", code
	}

	if attempt.PendingData == nil {
		attempt.PendingData = map[string]interface{}{}
	}
	attempt.PendingData[key] = value

	err := repository.WithRetry(s.Config.Database.Retry, func() error {
		return s.AttemptRepo.Updates(ctx, attempt.ID, map[string]interface{}{
			"pending_data":  attempt.PendingData,
			"last_error":    scormErrNone,
			"last_accessed": time.Now(),
		})
	})
	if err != nil {
		s.setError(ctx, attempt, scormErrGeneral)
		return "false", scormErrGeneral
	}
	attempt.LastError = scormErrNone
	return "true", scormErrNone
}

func (s *RuntimeService) commit(ctx context.Context, attempt *model.Attempt, pkg *model.Package, param string) (string, string) {
	if param != "" {
		s.setError(ctx, attempt, scormErrInvalidArgument)
		return "false", scormErrInvalidArgument
	}
	switch attempt.SessionState {
	case model.SessionNotInitialized:
		s.setError(ctx, attempt, scormErrCommitBeforeInit)
		return "false", scormErrCommitBeforeInit
	case model.SessionTerminated:
		s.setError(ctx, attempt, scormErrCommitAfterTerm)
		return "false", scormErrCommitAfterTerm
	}

	if err := s.flushPending(ctx, attempt, pkg); err != nil {
		s.setError(ctx, attempt, scormErrGeneralCommit)
		return "false", scormErrGeneralCommit
	}
	attempt.LastError = scormErrNone
	return "true", scormErrNone
}

// flushPending writes the buffered SetValue calls to the CMI store, syncs
// the derived progress columns, and clears the buffer, all in one
// transaction so a crash never half-applies a commit.
func (s *RuntimeService) flushPending(ctx context.Context, attempt *model.Attempt, pkg *model.Package) error {
	if len(attempt.PendingData) == 0 {
		return repository.WithRetry(s.Config.Database.Retry, func() error {
			return s.AttemptRepo.Updates(ctx, attempt.ID, map[string]interface{}{
				"last_error":    scormErrNone,
				"last_accessed": time.Now(),
			})
		})
	}

	values := make(map[string]string, len(attempt.PendingData))
	for k, v := range attempt.PendingData {
		if str, ok := v.(string); ok {
			values[k] = str
		}
	}

	updates := s.derivedUpdates(attempt, pkg, values)
	updates["pending_data"] = datatypes.JSONMap{}
	updates["last_error"] = scormErrNone
	updates["last_accessed"] = time.Now()

	wasDone := attempt.Done()
	err := repository.WithRetry(s.Config.Database.Retry, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.CMIRepo.UpsertAll(tx, attempt.ID, values); err != nil {
				return err
			}
			return tx.Model(&model.Attempt{}).Where("id = ?", attempt.ID).Updates(updates).Error
		})
	})
	if err != nil {
		return err
	}

	applyDerived(attempt, updates)
	attempt.PendingData = nil

	if !wasDone && attempt.Done() {
		if err := s.Completion.OnAttemptDone(ctx, attempt); err != nil {
			logger.Log.Error("completion propagation failed",
				zap.Uint("attempt_id", attempt.ID), zap.Error(err))
		}
	}
	return nil
}

// derivedUpdates maps freshly committed CMI values onto the attempt's
// progress columns. Completion is monotonic: a completed attempt never
// drops back to incomplete.
func (s *RuntimeService) derivedUpdates(attempt *model.Attempt, pkg *model.Package, values map[string]string) map[string]interface{} {
	updates := map[string]interface{}{}

	if pkg.Kind == model.PackageScorm2004 {
		if v, ok := values["cmi.location"]; ok {
			updates["location"] = v
		}
		if v, ok := values["cmi.completion_status"]; ok {
			if cs := completionFrom2004(v); cs != "" {
				if cs == model.CompletionCompleted || !attempt.Done() {
					updates["completion_status"] = cs
				}
			}
		}
		if v, ok := values["cmi.success_status"]; ok {
			switch v {
			case "passed":
				updates["success_status"] = model.SuccessPassed
			case "failed":
				updates["success_status"] = model.SuccessFailed
			}
		}
		setScore(updates, "score_scaled", values, "cmi.score.scaled")
		setScore(updates, "score_raw", values, "cmi.score.raw")
		setScore(updates, "score_min", values, "cmi.score.min")
		setScore(updates, "score_max", values, "cmi.score.max")
		if v, ok := values["cmi.session_time"]; ok {
			if total, err := accumulateTotalTime(pkg.Kind, attempt.TotalTime, v); err == nil {
				updates["total_time"] = total
			}
		}
	} else {
		if v, ok := values["cmi.core.lesson_location"]; ok {
			updates["location"] = v
		}
		if v, ok := values["cmi.core.lesson_status"]; ok {
			completion, success := statusFrom12(v)
			if completion != "" && (completion == model.CompletionCompleted || !attempt.Done()) {
				updates["completion_status"] = completion
			}
			if success != "" {
				updates["success_status"] = success
			}
		}
		setScore(updates, "score_raw", values, "cmi.core.score.raw")
		setScore(updates, "score_min", values, "cmi.core.score.min")
		setScore(updates, "score_max", values, "cmi.core.score.max")
		if v, ok := values["cmi.core.session_time"]; ok {
			if total, err := accumulateTotalTime(pkg.Kind, attempt.TotalTime, v); err == nil {
				updates["total_time"] = total
			}
		}
	}

	if v, ok := values["cmi.suspend_data"]; ok {
		updates["suspend_data"] = v
	}
	return updates
}

func completionFrom2004(v string) model.CompletionStatus {
	switch v {
	case "completed":
		return model.CompletionCompleted
	case "incomplete":
		return model.CompletionIncomplete
	case "not attempted":
		return model.CompletionNotAttempted
	case "unknown":
		return model.CompletionUnknown
	}
	return ""
}

// statusFrom12 splits the combined SCORM 1.2 lesson_status vocabulary
// into the completion and success dimensions.
func statusFrom12(v string) (model.CompletionStatus, model.SuccessStatus) {
	switch v {
	case "passed":
		return model.CompletionCompleted, model.SuccessPassed
	case "completed":
		return model.CompletionCompleted, ""
	case "failed":
		return model.CompletionIncomplete, model.SuccessFailed
	case "incomplete", "browsed":
		return model.CompletionIncomplete, ""
	case "not attempted":
		return model.CompletionNotAttempted, ""
	}
	return "", ""
}

func setScore(updates map[string]interface{}, column string, values map[string]string, key string) {
	v, ok := values[key]
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return
	}
	updates[column] = f
}

// applyDerived mirrors the committed column updates back onto the
// in-memory attempt so callers see the post-commit state.
func applyDerived(attempt *model.Attempt, updates map[string]interface{}) {
	for column, value := range updates {
		switch column {
		case "completion_status":
			attempt.CompletionStatus = value.(model.CompletionStatus)
		case "success_status":
			attempt.SuccessStatus = value.(model.SuccessStatus)
		case "location":
			attempt.Location = value.(string)
		case "suspend_data":
			attempt.SuspendData = value.(string)
		case "total_time":
			attempt.TotalTime = value.(string)
		case "score_raw":
			f := value.(float64)
			attempt.ScoreRaw = &f
		case "score_min":
			f := value.(float64)
			attempt.ScoreMin = &f
		case "score_max":
			f := value.(float64)
			attempt.ScoreMax = &f
		case "score_scaled":
			f := value.(float64)
			attempt.ScoreScaled = &f
		}
	}
}
