package service

import (
	"context"
	"encoding/json"
	"strings"

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

// xapiStatement is the subset of an xAPI statement the ingestor reads.
// The full statement is stored verbatim alongside the digest.
type xapiStatement struct {
	ID   string `json:"id"`
	Verb struct {
		ID      string            `json:"id"`
		Display map[string]string `json:"display"`
	} `json:"verb"`
	Result *struct {
		Score *struct {
			Scaled *float64 `json:"scaled"`
			Raw    *float64 `json:"raw"`
			Min    *float64 `json:"min"`
			Max    *float64 `json:"max"`
		} `json:"score"`
		Completion *bool  `json:"completion"`
		Success    *bool  `json:"success"`
		Duration   string `json:"duration"`
	} `json:"result"`
	Context *struct {
		ContextActivities *struct {
			Parent []json.RawMessage `json:"parent"`
		} `json:"contextActivities"`
	} `json:"context"`
}

func (st *xapiStatement) verbName() string {
	id := strings.TrimSuffix(st.Verb.ID, "/")
	if idx := strings.LastIndexAny(id, "/#"); idx >= 0 {
		return strings.ToLower(id[idx+1:])
	}
	return strings.ToLower(id)
}

// hasParentActivity reports whether the statement describes sub-content
// inside a larger activity.
func (st *xapiStatement) hasParentActivity() bool {
	return st.Context != nil &&
		st.Context.ContextActivities != nil &&
		len(st.Context.ContextActivities.Parent) > 0
}

// StatementService ingests xAPI statements from H5P content and folds
// them into attempt progress.
type StatementService struct {
	DB             *gorm.DB
	Config         *config.Config
	AttemptRepo    *repository.AttemptRepository
	StatementRepo  *repository.StatementRepository
	PackageRepo    *repository.PackageRepository
	LessonRepo     *repository.LessonRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Completion     *CompletionService
}

func NewStatementService(db *gorm.DB, cfg *config.Config, completion *CompletionService) *StatementService {
	return &StatementService{
		DB:             db,
		Config:         cfg,
		AttemptRepo:    repository.NewAttemptRepository(db),
		StatementRepo:  repository.NewStatementRepository(db),
		PackageRepo:    repository.NewPackageRepository(db),
		LessonRepo:     repository.NewLessonRepository(db),
		EnrollmentRepo: repository.NewEnrollmentRepository(db),
		Completion:     completion,
	}
}

// Ingest records one statement against the user's attempt on the package
// and applies its progress effects. The statement log is append-only;
// progress updates are monotonic, so replaying a statement is harmless.
func (s *StatementService) Ingest(ctx context.Context, userID, packageID uint, raw []byte) (*model.Attempt, error) {
	var st xapiStatement
	if err := json.Unmarshal(raw, &st); err != nil || st.Verb.ID == "" {
		return nil, util.ErrMalformedStatement
	}

	pkg, err := s.PackageRepo.FindByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg.Kind != model.PackageH5P {
		return nil, util.ErrPackageNotFound
	}

	// Statements are always accepted and logged. Enrollment gates only the
	// completion roll-up further down.
	enrolled, err := s.isEnrolled(ctx, userID, packageID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.AttemptRepo.GetOrCreate(ctx, userID, packageID)
	if err != nil {
		return nil, err
	}

	verb := st.verbName()
	record := &model.StatementRecord{
		AttemptID:   attempt.ID,
		Verb:        st.Verb.ID,
		VerbDisplay: displayName(st.Verb.Display),
		Statement:   datatypes.JSON(raw),
	}
	err = repository.WithRetry(s.Config.Database.Retry, func() error {
		return s.StatementRepo.Append(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	monitoring.StatementCounter.WithLabelValues(verb).Inc()

	if err := s.applyEffects(ctx, attempt, &st, verb, enrolled); err != nil {
		return nil, err
	}
	return attempt, nil
}

// isEnrolled reports whether the user is enrolled in at least one course
// whose live lessons embed the package.
func (s *StatementService) isEnrolled(ctx context.Context, userID, packageID uint) (bool, error) {
	lessons, err := s.LessonRepo.ContainingPackage(ctx, packageID)
	if err != nil {
		return false, err
	}
	for i := range lessons {
		if !lessons[i].Live {
			continue
		}
		enrolled, err := s.EnrollmentRepo.IsEnrolled(ctx, userID, lessons[i].CourseID)
		if err != nil {
			return false, err
		}
		if enrolled {
			return true, nil
		}
	}
	return false, nil
}

// applyEffects maps the verb and result onto the attempt. Completion and
// success only ever move forward; scores follow the latest statement that
// carries one. The roll-up fires when the attempt newly becomes done,
// which includes a failed outcome, but only for enrolled users.
func (s *StatementService) applyEffects(ctx context.Context, attempt *model.Attempt, st *xapiStatement, verb string, enrolled bool) error {
	wasDone := attempt.Done()
	updates := map[string]interface{}{}
	markCompleted := false
	var success model.SuccessStatus

	switch verb {
	case "completed", "consumed":
		markCompleted = true
	case "passed", "mastered":
		markCompleted = true
		success = model.SuccessPassed
	case "failed":
		success = model.SuccessFailed
	case "answered":
		// An answer for nested sub-content reports interaction detail, not
		// completion of the activity itself.
		if !st.hasParentActivity() {
			markCompleted = true
		}
	}

	if st.Result != nil {
		if st.Result.Completion != nil && *st.Result.Completion {
			markCompleted = true
		}
		if st.Result.Success != nil {
			if *st.Result.Success {
				success = model.SuccessPassed
			} else {
				success = model.SuccessFailed
			}
		}
		if score := st.Result.Score; score != nil {
			if score.Scaled != nil {
				updates["score_scaled"] = *score.Scaled
			}
			if score.Raw != nil {
				updates["score_raw"] = *score.Raw
			}
			if score.Min != nil {
				updates["score_min"] = *score.Min
			}
			if score.Max != nil {
				updates["score_max"] = *score.Max
			}
		}
	}

	if success != "" {
		updates["success_status"] = success
	}
	if !markCompleted && attempt.CompletionStatus == model.CompletionNotAttempted {
		updates["completion_status"] = model.CompletionIncomplete
	}

	if len(updates) > 0 {
		err := repository.WithRetry(s.Config.Database.Retry, func() error {
			return s.AttemptRepo.Updates(ctx, attempt.ID, updates)
		})
		if err != nil {
			return err
		}
		applyDerived(attempt, updates)
	}

	if markCompleted {
		err := repository.WithRetry(s.Config.Database.Retry, func() error {
			return s.AttemptRepo.MarkCompleted(ctx, attempt.ID)
		})
		if err != nil {
			return err
		}
		attempt.CompletionStatus = model.CompletionCompleted
	}

	if enrolled && !wasDone && attempt.Done() {
		if err := s.Completion.OnAttemptDone(ctx, attempt); err != nil {
			logger.Log.Error("completion propagation failed",
				zap.Uint("attempt_id", attempt.ID), zap.Error(err))
		}
	}
	return nil
}

func displayName(display map[string]string) string {
	if v, ok := display["en-US"]; ok {
		return v
	}
	if v, ok := display["en"]; ok {
		return v
	}
	for _, v := range display {
		return v
	}
	return ""
}
