package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"lms_content_backend/internal/model"
	"lms_content_backend/internal/util"

	"github.com/go-redis/redis/v8"
)

func TestCacheControlFor(t *testing.T) {
	rules := map[string]string{
		"default":          "private, max-age=60",
		"text/html":        "no-cache",
		"image/*":          "public, max-age=604800",
		"application/*":    "private, max-age=300",
		"application/json": "no-store",
	}

	tests := []struct {
		contentType string
		want        string
	}{
		{"text/html", "no-cache"},
		{"text/html; charset=utf-8", "no-cache"},
		{"image/png", "public, max-age=604800"},
		{"application/json", "no-store"},
		{"application/javascript", "private, max-age=300"},
		{"audio/mpeg", "private, max-age=60"},
		{"", "private, max-age=60"},
	}
	for _, tt := range tests {
		if got := cacheControlFor(rules, tt.contentType); got != tt.want {
			t.Errorf("cacheControlFor(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestHasRedirectPrefix(t *testing.T) {
	prefixes := []string{"audio/", "video/"}
	if !hasRedirectPrefix(prefixes, "video/mp4") {
		t.Error("video/mp4 should match")
	}
	if !hasRedirectPrefix(prefixes, "audio/mpeg") {
		t.Error("audio/mpeg should match")
	}
	if hasRedirectPrefix(prefixes, "text/html") {
		t.Error("text/html should not match")
	}
	if hasRedirectPrefix(nil, "video/mp4") {
		t.Error("empty prefix list should never match")
	}
}

func newContentFixture(t *testing.T) (*ContentService, *model.User, *model.Package) {
	t.Helper()
	db := newTestDB(t)
	cfg := newTestConfig(t)
	cfg.Gateway.RedirectMedia = false
	storage := NewStorageService(cfg)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	pkg := &model.Package{
		Kind:          model.PackageScorm12,
		Title:         "Course",
		ExtractedPath: "lms_content/1",
		LaunchURL:     "index.html",
	}
	user, _ := seedLearner(t, db, pkg)

	svc := NewContentService(db, cfg, storage, rdb)

	// Stage a file where the extracted mirror would hold it.
	body := strings.NewReader("<html>lesson</html>")
	err := storage.Save(context.Background(), pkg.ExtractedPath+"/index.html", body, int64(body.Len()), "text/html")
	if err != nil {
		t.Fatal(err)
	}
	return svc, user, pkg
}

func TestResolveProxiesFile(t *testing.T) {
	svc, user, pkg := newContentFixture(t)

	res, err := svc.Resolve(context.Background(), user.ID, user.Role, pkg.ID, "index.html")
	if err != nil {
		t.Fatal(err)
	}
	if res.Redirect {
		t.Fatal("expected a proxied body, got a redirect")
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<html>lesson</html>" {
		t.Errorf("body = %q", data)
	}
	if !strings.HasPrefix(res.ContentType, "text/html") {
		t.Errorf("content type = %q", res.ContentType)
	}
	if res.CacheControl != "no-cache" {
		t.Errorf("cache control = %q", res.CacheControl)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	svc, user, pkg := newContentFixture(t)

	for _, raw := range []string{"../secret", "a/../../b", "/etc/passwd", `..\config`} {
		_, err := svc.Resolve(context.Background(), user.ID, user.Role, pkg.ID, raw)
		if !errors.Is(err, util.ErrPackageNotFound) {
			t.Errorf("path %q: got %v, want ErrPackageNotFound", raw, err)
		}
	}
}

func TestResolveMissingFileIsNotFound(t *testing.T) {
	svc, user, pkg := newContentFixture(t)

	_, err := svc.Resolve(context.Background(), user.ID, user.Role, pkg.ID, "nope.js")
	if !errors.Is(err, util.ErrPackageNotFound) {
		t.Errorf("got %v, want ErrPackageNotFound", err)
	}
}

func TestResolveRequiresEnrollment(t *testing.T) {
	svc, _, pkg := newContentFixture(t)

	stranger := &model.User{Name: "Eve", Email: "eve@example.com", Role: model.Student}
	if err := svc.DB.Create(stranger).Error; err != nil {
		t.Fatal(err)
	}

	_, err := svc.Resolve(context.Background(), stranger.ID, stranger.Role, pkg.ID, "index.html")
	if !errors.Is(err, util.ErrNotEnrolled) {
		t.Errorf("got %v, want ErrNotEnrolled", err)
	}
}

func TestResolveStaffBypassesEnrollment(t *testing.T) {
	svc, _, pkg := newContentFixture(t)

	teacher := &model.User{Name: "Tess", Email: "tess@example.com", Role: model.Teacher}
	if err := svc.DB.Create(teacher).Error; err != nil {
		t.Fatal(err)
	}

	res, err := svc.Resolve(context.Background(), teacher.ID, teacher.Role, pkg.ID, "index.html")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
}

func TestResolveUnextractedPackage(t *testing.T) {
	svc, user, _ := newContentFixture(t)

	raw := &model.Package{Kind: model.PackageScorm12, Title: "Pending"}
	if err := svc.DB.Create(raw).Error; err != nil {
		t.Fatal(err)
	}

	_, err := svc.Resolve(context.Background(), user.ID, user.Role, raw.ID, "index.html")
	if !errors.Is(err, util.ErrPackageNotFound) {
		t.Errorf("got %v, want ErrPackageNotFound", err)
	}
}

func TestUpdatePolicySwapsRules(t *testing.T) {
	svc, user, pkg := newContentFixture(t)

	updated := newTestConfig(t)
	updated.Gateway.CacheControl = map[string]string{"default": "no-store"}
	svc.UpdatePolicy(updated)

	res, err := svc.Resolve(context.Background(), user.ID, user.Role, pkg.ID, "index.html")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.CacheControl != "no-store" {
		t.Errorf("cache control = %q after reload", res.CacheControl)
	}
}
