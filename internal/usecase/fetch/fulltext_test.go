package fetch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-reader/internal/domain/entity"
	"rss-reader/internal/domain/job"
	fetchUC "rss-reader/internal/usecase/fetch"
)

const articleLink = "https://news.example.com/story"

func newFullTextService(art *entity.Article, pages stubPages) (*fetchUC.Service, *stubArticleRepo, stubGuard) {
	repo := newStubArticleRepo(art)
	guard := stubGuard{unsafe: map[string]bool{}}
	return &fetchUC.Service{
		Articles:  repo,
		Guard:     guard,
		Pages:     pages,
		Sanitizer: &passSanitizer{},
		Queue:     &stubQueue{},
		Config:    fetchUC.DefaultConfig(),
		Now:       func() time.Time { return testNow },
	}, repo, guard
}

func TestFetchFullText_Stores(t *testing.T) {
	svc, repo, _ := newFullTextService(
		&entity.Article{ID: 1, FeedID: 1, Link: articleLink},
		stubPages{page: &fetchUC.Page{ContentHTML: "<p>body</p>", FinalURL: "https://news.example.com/story?amp=0"}},
	)

	require.NoError(t, svc.FetchFullText(context.Background(), 1))

	got, _ := repo.Get(context.Background(), 1)
	assert.Equal(t, "<p>body</p>", got.FullTextHTML)
	assert.Empty(t, got.FullTextError)
	assert.Equal(t, "https://news.example.com/story?amp=0", got.FullTextSourceURL)
	require.NotNil(t, got.FullTextFetchedAt)
}

func TestFetchFullText_RecordedFailures(t *testing.T) {
	tests := []struct {
		name       string
		pages      stubPages
		unsafe     bool
		wantError  string
		wantSource string
	}{
		{
			name:       "body over the byte cap",
			pages:      stubPages{err: fmt.Errorf("read body: %w", fetchUC.ErrBodyTooLarge)},
			wantError:  "Response too large",
			wantSource: articleLink,
		},
		{
			name:       "unsafe link",
			unsafe:     true,
			wantError:  "Unsafe URL",
			wantSource: articleLink,
		},
		{
			name: "unsafe redirect keeps last reached url",
			pages: stubPages{err: &fetchUC.SourceError{
				URL: "https://news.example.com/moved",
				Err: fetchUC.ErrUnsafeURL,
			}},
			wantError:  "Unsafe URL",
			wantSource: "https://news.example.com/moved",
		},
		{
			name:       "not html",
			pages:      stubPages{err: fetchUC.ErrNotHTML},
			wantError:  "Not HTML",
			wantSource: articleLink,
		},
		{
			name:       "http status",
			pages:      stubPages{err: &fetchUC.HTTPStatusError{Status: 404}},
			wantError:  "HTTP 404",
			wantSource: articleLink,
		},
		{
			name:       "nothing left after sanitizing",
			pages:      stubPages{page: &fetchUC.Page{ContentHTML: "", FinalURL: articleLink}},
			wantError:  "Extraction failed",
			wantSource: articleLink,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, guard := newFullTextService(&entity.Article{ID: 1, FeedID: 1, Link: articleLink}, tt.pages)
			if tt.unsafe {
				guard.unsafe[articleLink] = true
			}

			require.NoError(t, svc.FetchFullText(context.Background(), 1))

			got, _ := repo.Get(context.Background(), 1)
			assert.Equal(t, tt.wantError, got.FullTextError)
			assert.Equal(t, tt.wantSource, got.FullTextSourceURL)
			assert.Empty(t, got.FullTextHTML)
		})
	}
}

func TestFetchFullText_Skips(t *testing.T) {
	pagesErr := stubPages{err: errors.New("must not be called")}

	t.Run("already extracted", func(t *testing.T) {
		svc, repo, _ := newFullTextService(&entity.Article{ID: 1, Link: articleLink, FullTextHTML: "<p>x</p>"}, pagesErr)
		require.NoError(t, svc.FetchFullText(context.Background(), 1))
		got, _ := repo.Get(context.Background(), 1)
		assert.Empty(t, got.FullTextError)
	})

	t.Run("no link", func(t *testing.T) {
		svc, repo, _ := newFullTextService(&entity.Article{ID: 1}, pagesErr)
		require.NoError(t, svc.FetchFullText(context.Background(), 1))
		got, _ := repo.Get(context.Background(), 1)
		assert.Empty(t, got.FullTextError)
	})

	t.Run("missing article", func(t *testing.T) {
		svc, _, _ := newFullTextService(&entity.Article{ID: 1}, pagesErr)
		require.NoError(t, svc.FetchFullText(context.Background(), 42))
	})
}

func TestFetchFullText_SaveErrorIsReturned(t *testing.T) {
	svc, repo, _ := newFullTextService(
		&entity.Article{ID: 1, Link: articleLink},
		stubPages{page: &fetchUC.Page{ContentHTML: "<p>x</p>", FinalURL: articleLink}},
	)
	repo.saveErr = errors.New("db down")

	require.ErrorIs(t, svc.FetchFullText(context.Background(), 1), repo.saveErr)
}

func TestRequestFullText(t *testing.T) {
	queue := &stubQueue{}
	svc := &fetchUC.Service{Queue: queue, Config: fetchUC.DefaultConfig()}

	ok, err := svc.RequestFullText(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, job.FetchFullTextArgs{ArticleID: 5}, queue.jobs[0].args)
	assert.Equal(t, svc.Config.FullTextJob, queue.jobs[0].opts)

	_, err = svc.RequestFullText(context.Background(), 0)
	assert.ErrorIs(t, err, entity.ErrValidationFailed)
}
