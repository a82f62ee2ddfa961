package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lms_content_backend/internal/model"
	"lms_content_backend/internal/util"
)

func newUserDataFixture(t *testing.T) (*UserDataService, uint, *model.Package) {
	t.Helper()
	db := newTestDB(t)
	cfg := newTestConfig(t)

	pkg := &model.Package{Kind: model.PackageH5P, Title: "Quiz", MainLibrary: "H5P.QuestionSet"}
	user, _ := seedLearner(t, db, pkg)
	return NewUserDataService(db, cfg), user.ID, pkg
}

func TestUserDataRoundTrip(t *testing.T) {
	svc, userID, pkg := newUserDataFixture(t)
	ctx := context.Background()

	value, found, err := svc.Get(ctx, userID, pkg.ID, "state", 0)
	if err != nil {
		t.Fatal(err)
	}
	if found || value != "" {
		t.Fatalf("fresh slot: found=%v value=%q", found, value)
	}

	payload := `{"progress":3,"answers":[1,0,2]}`
	if err := svc.Save(ctx, userID, pkg.ID, "state", 0, payload); err != nil {
		t.Fatal(err)
	}

	value, found, err = svc.Get(ctx, userID, pkg.ID, "state", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !found || value != payload {
		t.Errorf("got found=%v value=%q", found, value)
	}

	// Overwrite wins.
	if err := svc.Save(ctx, userID, pkg.ID, "state", 0, `{"progress":4}`); err != nil {
		t.Fatal(err)
	}
	value, _, _ = svc.Get(ctx, userID, pkg.ID, "state", 0)
	if value != `{"progress":4}` {
		t.Errorf("after overwrite got %q", value)
	}
}

func TestUserDataSlotsAreIndependent(t *testing.T) {
	svc, userID, pkg := newUserDataFixture(t)
	ctx := context.Background()

	if err := svc.Save(ctx, userID, pkg.ID, "state", 0, "root"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Save(ctx, userID, pkg.ID, "state", 7, "sub"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Save(ctx, userID, pkg.ID, "answers", 0, "other"); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		dataType string
		sub      int
		want     string
	}{
		{"state", 0, "root"},
		{"state", 7, "sub"},
		{"answers", 0, "other"},
	} {
		value, found, err := svc.Get(ctx, userID, pkg.ID, tc.dataType, tc.sub)
		if err != nil || !found || value != tc.want {
			t.Errorf("(%s,%d) = %q,%v,%v; want %q", tc.dataType, tc.sub, value, found, err, tc.want)
		}
	}
}

func TestUserDataClearSentinel(t *testing.T) {
	svc, userID, pkg := newUserDataFixture(t)
	ctx := context.Background()

	if err := svc.Save(ctx, userID, pkg.ID, "state", 0, "something"); err != nil {
		t.Fatal(err)
	}
	// The H5P client clears a slot by posting the literal "0".
	if err := svc.Save(ctx, userID, pkg.ID, "state", 0, "0"); err != nil {
		t.Fatal(err)
	}

	_, found, err := svc.Get(ctx, userID, pkg.ID, "state", 0)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("slot still present after clear")
	}
}

func TestUserDataSizeLimit(t *testing.T) {
	svc, userID, pkg := newUserDataFixture(t)

	big := strings.Repeat("x", svc.Config.Runtime.UserDataMaxBytes+1)
	err := svc.Save(context.Background(), userID, pkg.ID, "state", 0, big)
	if !errors.Is(err, util.ErrPayloadTooLarge) {
		t.Fatalf("got %v, want ErrPayloadTooLarge", err)
	}
}

func TestUserDataGetNeverCreatesAttempt(t *testing.T) {
	svc, userID, pkg := newUserDataFixture(t)

	if _, _, err := svc.Get(context.Background(), userID, pkg.ID, "state", 0); err != nil {
		t.Fatal(err)
	}

	var count int64
	svc.DB.Model(&model.Attempt{}).Where("user_id = ?", userID).Count(&count)
	if count != 0 {
		t.Error("read created an attempt")
	}
}

func TestUserDataSaveCreatesAttempt(t *testing.T) {
	svc, userID, pkg := newUserDataFixture(t)

	if err := svc.Save(context.Background(), userID, pkg.ID, "state", 0, "x"); err != nil {
		t.Fatal(err)
	}

	var count int64
	svc.DB.Model(&model.Attempt{}).
		Where("user_id = ? AND package_id = ?", userID, pkg.ID).
		Count(&count)
	if count != 1 {
		t.Errorf("attempts = %d, want 1", count)
	}
}

func TestUserDataRequiresEnrollment(t *testing.T) {
	svc, _, pkg := newUserDataFixture(t)

	stranger := &model.User{Name: "Eve", Email: "eve@example.com"}
	if err := svc.DB.Create(stranger).Error; err != nil {
		t.Fatal(err)
	}

	_, _, err := svc.Get(context.Background(), stranger.ID, pkg.ID, "state", 0)
	if !errors.Is(err, util.ErrNotEnrolled) {
		t.Errorf("get: got %v, want ErrNotEnrolled", err)
	}
	err = svc.Save(context.Background(), stranger.ID, pkg.ID, "state", 0, "x")
	if !errors.Is(err, util.ErrNotEnrolled) {
		t.Errorf("save: got %v, want ErrNotEnrolled", err)
	}
}

func TestUserDataRejectsScormPackage(t *testing.T) {
	svc, userID, _ := newUserDataFixture(t)

	scorm := &model.Package{Kind: model.PackageScorm12, Title: "Course"}
	if err := svc.DB.Create(scorm).Error; err != nil {
		t.Fatal(err)
	}

	_, _, err := svc.Get(context.Background(), userID, scorm.ID, "state", 0)
	if !errors.Is(err, util.ErrPackageNotFound) {
		t.Errorf("got %v, want ErrPackageNotFound", err)
	}
}
