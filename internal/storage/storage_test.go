package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelshare/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	return store
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, CreateUserParams{Email: "Alice@Example.com", Password: "secret-pass"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := store.CreateUser(ctx, CreateUserParams{Email: "alice@example.com", Password: "other-pass"})
	if !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("duplicate email err = %v, want ErrEmailInUse", err)
	}
}

func TestAuthenticateUserCollapsesFailures(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, CreateUserParams{Email: "alice@example.com", Password: "secret-pass"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "secret-pass"},
		{"wrong password", "alice@example.com", "wrong-pass"},
		{"missing email", "", "secret-pass"},
		{"missing password", "alice@example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.AuthenticateUser(context.Background(), tc.email, tc.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}

	user, err := store.AuthenticateUser(ctx, " ALICE@example.com ", "secret-pass")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email = %q, want %q", user.Email, "alice@example.com")
	}
}

func TestPasswordHashFormat(t *testing.T) {
	store := newTestStorage(t)
	user, err := store.CreateUser(context.Background(), CreateUserParams{Email: "a@b.c", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !strings.HasPrefix(user.PasswordHash, "pbkdf2$sha256$120000$") {
		t.Fatalf("hash = %q, want pbkdf2$sha256$120000$ prefix", user.PasswordHash)
	}
	if strings.Contains(user.PasswordHash, "secret-pass") {
		t.Fatalf("hash leaks the plaintext password")
	}
}

func TestCreateVideoAppliesDefaults(t *testing.T) {
	store := newTestStorage(t)
	video, err := store.CreateVideo(context.Background(), CreateVideoParams{
		Title:        "clip",
		Description:  "desc",
		VideoURL:     "/videos/clip.mp4",
		ThumbnailURL: "/videos/clip.jpg",
	})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	if !models.ValidID(video.ID) {
		t.Fatalf("id = %q, want 32-char hex", video.ID)
	}
	if !video.Controls {
		t.Fatalf("controls = false, want true by default")
	}
	tr := video.Transformation
	if tr.Video.Width != 1080 || tr.Video.Height != 1920 || tr.Video.Quality != 100 {
		t.Fatalf("video transformation = %+v, want 1080x1920 q100", tr.Video)
	}
	if tr.Thumbnail.Width != 320 || tr.Thumbnail.Height != 180 {
		t.Fatalf("thumbnail transformation = %+v, want 320x180", tr.Thumbnail)
	}
	if video.CreatedAt.IsZero() || !video.UpdatedAt.Equal(video.CreatedAt) {
		t.Fatalf("timestamps = %v/%v, want equal non-zero", video.CreatedAt, video.UpdatedAt)
	}
}

func TestCreateVideoHonorsExplicitFields(t *testing.T) {
	store := newTestStorage(t)
	controls := false
	video, err := store.CreateVideo(context.Background(), CreateVideoParams{
		Title:        "clip",
		Description:  "desc",
		VideoURL:     "/videos/clip.mp4",
		ThumbnailURL: "/videos/clip.jpg",
		Controls:     &controls,
		Quality:      55,
	})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	if video.Controls {
		t.Fatalf("controls = true, want explicit false preserved")
	}
	if video.Transformation.Video.Quality != 55 {
		t.Fatalf("quality = %d, want 55", video.Transformation.Video.Quality)
	}
}

func TestCreateVideoValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params CreateVideoParams
	}{
		{"missing title", CreateVideoParams{Description: "d", VideoURL: "/v", ThumbnailURL: "/t"}},
		{"missing description", CreateVideoParams{Title: "t", VideoURL: "/v", ThumbnailURL: "/t"}},
		{"missing videoUrl", CreateVideoParams{Title: "t", Description: "d", ThumbnailURL: "/t"}},
		{"missing thumbnailUrl", CreateVideoParams{Title: "t", Description: "d", VideoURL: "/v"}},
		{"blank title", CreateVideoParams{Title: "   ", Description: "d", VideoURL: "/v", ThumbnailURL: "/t"}},
		{"quality out of range", CreateVideoParams{Title: "t", Description: "d", VideoURL: "/v", ThumbnailURL: "/t", Quality: 101}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreateVideo(ctx, tc.params); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}

	videos, err := store.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 0 {
		t.Fatalf("len(videos) = %d, want 0 after rejected creates", len(videos))
	}
}

func TestListVideosNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for _, title := range []string{"first", "second", "third"} {
		video, err := store.CreateVideo(ctx, CreateVideoParams{
			Title:        title,
			Description:  "desc",
			VideoURL:     "/videos/" + title + ".mp4",
			ThumbnailURL: "/videos/" + title + ".jpg",
		})
		if err != nil {
			t.Fatalf("CreateVideo(%s): %v", title, err)
		}
		ids = append(ids, video.ID)
		time.Sleep(2 * time.Millisecond)
	}

	videos, err := store.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("len(videos) = %d, want 3", len(videos))
	}
	if videos[0].ID != ids[2] || videos[2].ID != ids[0] {
		t.Fatalf("order = [%s %s %s], want newest first", videos[0].Title, videos[1].Title, videos[2].Title)
	}
}

func TestFindVideoByURLIgnoresCase(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	created, err := store.CreateVideo(ctx, CreateVideoParams{
		Title:        "clip",
		Description:  "desc",
		VideoURL:     "/Videos/Clip.MP4",
		ThumbnailURL: "/videos/clip.jpg",
	})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	found, err := store.FindVideoByURL(ctx, "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("FindVideoByURL: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("id = %s, want %s", found.ID, created.ID)
	}

	if _, err := store.FindVideoByURL(ctx, "/videos/clip"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("partial match err = %v, want ErrNotFound", err)
	}
	if _, err := store.FindVideoByURL(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty url err = %v, want ErrNotFound", err)
	}
}

func TestUpdateVideoMergesFields(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	created, err := store.CreateVideo(ctx, CreateVideoParams{
		Title:        "clip",
		Description:  "desc",
		VideoURL:     "/videos/clip.mp4",
		ThumbnailURL: "/videos/clip.jpg",
	})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	title := "renamed"
	likes := 7
	updated, err := store.UpdateVideo(ctx, created.ID, VideoUpdate{Title: &title, LikesCount: &likes})
	if err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}
	if updated.Title != "renamed" || updated.LikesCount != 7 {
		t.Fatalf("updated = %q/%d, want renamed/7", updated.Title, updated.LikesCount)
	}
	if updated.Description != "desc" || updated.VideoURL != "/videos/clip.mp4" {
		t.Fatalf("untouched fields changed: %q %q", updated.Description, updated.VideoURL)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt changed on update")
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updatedAt = %v, want after %v", updated.UpdatedAt, created.UpdatedAt)
	}

	if _, err := store.UpdateVideo(ctx, strings.Repeat("0", 32), VideoUpdate{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id err = %v, want ErrNotFound", err)
	}

	blank := "  "
	if _, err := store.UpdateVideo(ctx, created.ID, VideoUpdate{Title: &blank}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank title err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateVideoRollsBackWhenPersistFails(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	created, err := store.CreateVideo(ctx, CreateVideoParams{
		Title:        "clip",
		Description:  "desc",
		VideoURL:     "/videos/clip.mp4",
		ThumbnailURL: "/videos/clip.jpg",
	})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	store.persistOverride = func(dataset) error { return errors.New("disk full") }
	title := "renamed"
	if _, err := store.UpdateVideo(ctx, created.ID, VideoUpdate{Title: &title}); err == nil {
		t.Fatalf("UpdateVideo succeeded despite persist failure")
	}
	store.persistOverride = nil

	current, err := store.GetVideo(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if current.Title != "clip" {
		t.Fatalf("title = %q, want original %q after rollback", current.Title, "clip")
	}
}

func TestDeleteVideo(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	created, err := store.CreateVideo(ctx, CreateVideoParams{
		Title:        "clip",
		Description:  "desc",
		VideoURL:     "/videos/clip.mp4",
		ThumbnailURL: "/videos/clip.jpg",
	})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	if err := store.DeleteVideo(ctx, created.ID); err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	if _, err := store.GetVideo(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetVideo after delete err = %v, want ErrNotFound", err)
	}
	if err := store.DeleteVideo(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestStorageReloadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	created, err := store.CreateVideo(ctx, CreateVideoParams{
		Title:        "clip",
		Description:  "desc",
		VideoURL:     "/videos/clip.mp4",
		ThumbnailURL: "/videos/clip.jpg",
	})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	reloaded, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopen storage: %v", err)
	}
	video, err := reloaded.GetVideo(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetVideo after reload: %v", err)
	}
	if video.Title != "clip" || video.Transformation.Video.Quality != 100 {
		t.Fatalf("reloaded video = %+v, want persisted fields intact", video)
	}
}
