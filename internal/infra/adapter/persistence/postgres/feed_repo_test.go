package postgres_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"rss-reader/internal/domain/entity"
	"rss-reader/internal/infra/adapter/persistence/postgres"
)

/* ──────────────────────────────── helpers ──────────────────────────────── */

var feedCols = []string{
	"id", "url", "title", "site_url", "enabled",
	"etag", "last_modified",
	"fetch_interval_minutes", "last_fetched_at",
	"last_fetch_status", "last_fetch_error",
	"created_at",
}

func feedRow(rows *sqlmock.Rows, f *entity.Feed) *sqlmock.Rows {
	var fetched driver.Value
	if f.LastFetchedAt != nil {
		fetched = *f.LastFetchedAt
	}
	return rows.AddRow(
		f.ID, f.URL, f.Title, f.SiteURL, f.Enabled,
		f.ETag, f.LastModified,
		f.FetchIntervalMinutes, fetched,
		f.LastFetchStatus, f.LastFetchError,
		f.CreatedAt,
	)
}

/* ──────────────────────────────── 1. Get ──────────────────────────────── */

func TestFeedRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 0, 0, 0, 0, time.UTC)
	want := &entity.Feed{
		ID: 1, URL: "https://go.dev/blog/feed.atom", Title: "The Go Blog",
		SiteURL: "https://go.dev/blog", Enabled: true,
		ETag: `"abc"`, LastModified: "Sat, 19 Jul 2025 00:00:00 GMT",
		FetchIntervalMinutes: 30, LastFetchedAt: &now,
		LastFetchStatus: 200, CreatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM feeds`)).
		WithArgs(int64(1)).
		WillReturnRows(feedRow(sqlmock.NewRows(feedCols), want))

	repo := postgres.NewFeedRepo(db)
	got, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM feeds`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(feedCols))

	got, err := postgres.NewFeedRepo(db).Get(context.Background(), 9)
	if err != nil || got != nil {
		t.Fatalf("Get got=%v err=%v, want nil,nil", got, err)
	}
}

/* ──────────────────────────────── 2. ListEnabled ──────────────────────────────── */

func TestFeedRepo_ListEnabled(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	rows := sqlmock.NewRows(feedCols)
	feedRow(rows, &entity.Feed{ID: 1, URL: "https://a.example/rss", Enabled: true, CreatedAt: now})
	feedRow(rows, &entity.Feed{ID: 2, URL: "https://b.example/rss", Enabled: true, LastFetchedAt: &now, CreatedAt: now})

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE enabled = TRUE`)).WillReturnRows(rows)

	got, err := postgres.NewFeedRepo(db).ListEnabled(context.Background())
	if err != nil || len(got) != 2 {
		t.Fatalf("ListEnabled err=%v len=%d", err, len(got))
	}
	if got[0].LastFetchedAt != nil {
		t.Fatalf("expected nil LastFetchedAt for never-fetched feed")
	}
	if got[1].LastFetchedAt == nil {
		t.Fatalf("expected LastFetchedAt to be set")
	}
}

/* ──────────────────────────────── 3. CreateIfAbsent ──────────────────────────────── */

func TestFeedRepo_CreateIfAbsent(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (url) DO NOTHING`)).
		WithArgs("https://a.example/rss", "A", "", true, 60).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (url) DO NOTHING`)).
		WithArgs("https://a.example/rss", "A", "", true, 60).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := postgres.NewFeedRepo(db)
	feed := &entity.Feed{URL: "https://a.example/rss", Title: "A", Enabled: true, FetchIntervalMinutes: 60}

	created, err := repo.CreateIfAbsent(context.Background(), feed)
	if err != nil || !created || feed.ID != 7 {
		t.Fatalf("first CreateIfAbsent created=%v id=%d err=%v", created, feed.ID, err)
	}

	again := &entity.Feed{URL: "https://a.example/rss", Title: "A", Enabled: true, FetchIntervalMinutes: 60}
	created, err = repo.CreateIfAbsent(context.Background(), again)
	if err != nil || created || again.ID != 0 {
		t.Fatalf("second CreateIfAbsent created=%v id=%d err=%v", created, again.ID, err)
	}
}

/* ──────────────────────────────── 4. RecordFetchResult ──────────────────────────────── */

func TestFeedRepo_RecordFetchResult(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE feeds SET`)).
		WithArgs(int64(3), `"v2"`, "", now, 503, "HTTP 503").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := postgres.NewFeedRepo(db).RecordFetchResult(context.Background(), 3, entity.FetchResult{
		FetchedAt: now, Status: 503, ETag: `"v2"`, Err: entity.NewHTTPStatusError(503),
	})
	if err != nil {
		t.Fatalf("RecordFetchResult err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_RecordFetchResult_SuccessClearsError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE feeds SET`)).
		WithArgs(int64(3), "", "", now, 304, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := postgres.NewFeedRepo(db).RecordFetchResult(context.Background(), 3, entity.FetchResult{
		FetchedAt: now, Status: 304,
	})
	if err != nil {
		t.Fatalf("RecordFetchResult err=%v", err)
	}
}

func TestFeedRepo_RecordFetchResult_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE feeds SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := postgres.NewFeedRepo(db).RecordFetchResult(context.Background(), 3, entity.FetchResult{FetchedAt: time.Now()})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

/* ──────────────────────────────── 5. UpdateMetadata ──────────────────────────────── */

func TestFeedRepo_UpdateMetadata(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`CASE WHEN title = ''`)).
		WithArgs(int64(4), "Blog", "https://blog.example").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := postgres.NewFeedRepo(db).UpdateMetadata(context.Background(), 4, "Blog", "https://blog.example"); err != nil {
		t.Fatalf("UpdateMetadata err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
