package fetch_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rss-reader/internal/domain/entity"
	"rss-reader/internal/domain/job"
	fetchUC "rss-reader/internal/usecase/fetch"
)

/* ───────── stubs ───────── */

type stubFeedRepo struct {
	mu       sync.Mutex
	feeds    map[int64]*entity.Feed
	getErr   error
	listErr  error
	results  []entity.FetchResult
	metaSets int
}

func newStubFeedRepo(feeds ...*entity.Feed) *stubFeedRepo {
	r := &stubFeedRepo{feeds: make(map[int64]*entity.Feed)}
	for _, f := range feeds {
		r.feeds[f.ID] = f
	}
	return r
}

func (r *stubFeedRepo) Get(_ context.Context, id int64) (*entity.Feed, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (r *stubFeedRepo) ListEnabled(_ context.Context) ([]*entity.Feed, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Feed
	for _, f := range r.feeds {
		if f.Enabled {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubFeedRepo) CreateIfAbsent(_ context.Context, f *entity.Feed) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.feeds {
		if existing.URL == f.URL {
			return false, nil
		}
	}
	f.ID = int64(len(r.feeds) + 1)
	r.feeds[f.ID] = f
	return true, nil
}

func (r *stubFeedRepo) RecordFetchResult(_ context.Context, id int64, res entity.FetchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[id]
	if !ok {
		return entity.ErrNotFound
	}
	r.results = append(r.results, res)
	t := res.FetchedAt
	f.LastFetchedAt = &t
	f.LastFetchStatus = res.Status
	f.ETag = res.ETag
	f.LastModified = res.LastModified
	f.LastFetchError = ""
	if res.Err != nil {
		f.LastFetchError = res.Err.String()
	}
	return nil
}

func (r *stubFeedRepo) UpdateMetadata(_ context.Context, id int64, title, siteURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[id]
	if !ok {
		return entity.ErrNotFound
	}
	r.metaSets++
	if f.Title == "" {
		f.Title = title
	}
	if f.SiteURL == "" {
		f.SiteURL = siteURL
	}
	return nil
}

func (r *stubFeedRepo) feed(id int64) entity.Feed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.feeds[id]
}

type stubArticleRepo struct {
	mu        sync.Mutex
	byID      map[int64]*entity.Article
	keys      map[string]int64
	nextID    int64
	insertErr error
	saveErr   error
}

func newStubArticleRepo(articles ...*entity.Article) *stubArticleRepo {
	r := &stubArticleRepo{byID: make(map[int64]*entity.Article), keys: make(map[string]int64)}
	for _, a := range articles {
		r.byID[a.ID] = a
		if a.ID > r.nextID {
			r.nextID = a.ID
		}
	}
	return r
}

func (r *stubArticleRepo) Get(_ context.Context, id int64) (*entity.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *stubArticleRepo) InsertIgnoreDuplicate(_ context.Context, a *entity.Article) (bool, error) {
	if r.insertErr != nil {
		return false, r.insertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%d|%s", a.FeedID, a.DedupeKey)
	if _, ok := r.keys[key]; ok {
		return false, nil
	}
	r.nextID++
	a.ID = r.nextID
	cp := *a
	r.byID[a.ID] = &cp
	r.keys[key] = a.ID
	return true, nil
}

func (r *stubArticleRepo) SaveFullText(_ context.Context, id int64, html, sourceURL string, fetchedAt time.Time) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byID[id]
	a.FullTextHTML = html
	a.FullTextError = ""
	a.FullTextSourceURL = sourceURL
	a.FullTextFetchedAt = &fetchedAt
	return nil
}

func (r *stubArticleRepo) SaveFullTextError(_ context.Context, id int64, errMsg, sourceURL string, fetchedAt time.Time) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byID[id]
	a.FullTextError = errMsg
	a.FullTextSourceURL = sourceURL
	a.FullTextFetchedAt = &fetchedAt
	return nil
}

func (r *stubArticleRepo) SaveSummary(_ context.Context, id int64, summary, model string, at time.Time) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byID[id]
	a.AISummary = summary
	a.AISummaryModel = model
	a.AISummarizedAt = &at
	return nil
}

func (r *stubArticleRepo) all() []entity.Article {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Article, 0, len(r.byID))
	for id := int64(1); id <= r.nextID; id++ {
		if a, ok := r.byID[id]; ok {
			out = append(out, *a)
		}
	}
	return out
}

type stubGuard struct{ unsafe map[string]bool }

func (g stubGuard) IsSafeExternalURL(_ context.Context, u string) bool { return !g.unsafe[u] }

type stubFeedFetcher struct {
	resp  *fetchUC.FeedResponse
	err   error
	calls []fetchUC.FetchOptions
}

func (f *stubFeedFetcher) FetchFeedXML(_ context.Context, _ string, opts fetchUC.FetchOptions) (*fetchUC.FeedResponse, error) {
	f.calls = append(f.calls, opts)
	return f.resp, f.err
}

type stubParser struct {
	feed *fetchUC.ParsedFeed
	err  error
}

func (p stubParser) Parse(_ []byte, _ time.Time, _ string) (*fetchUC.ParsedFeed, error) {
	if p.err != nil {
		return nil, p.err
	}
	cp := *p.feed
	cp.Items = append([]fetchUC.ParsedItem(nil), p.feed.Items...)
	return &cp, nil
}

// passSanitizer returns input unchanged and records the base URLs it saw.
type passSanitizer struct{ bases []string }

func (s *passSanitizer) Sanitize(html, base string) (string, bool) {
	s.bases = append(s.bases, base)
	return html, html != ""
}

func (s *passSanitizer) PlainText(html string) string { return html }

type stubPages struct {
	page *fetchUC.Page
	err  error
}

func (p stubPages) FetchPage(_ context.Context, _ string) (*fetchUC.Page, error) {
	return p.page, p.err
}

type stubSummarizer struct {
	out   string
	err   error
	input string
}

func (s *stubSummarizer) Summarize(_ context.Context, text string) (string, error) {
	s.input = text
	return s.out, s.err
}

func (s *stubSummarizer) Model() string { return "stub-model" }

type enqueued struct {
	args job.Args
	opts job.Options
}

type stubQueue struct {
	mu    sync.Mutex
	jobs  []enqueued
	dupes map[int64]bool // feed ids reported as already enqueued
	err   error
}

func (q *stubQueue) Enqueue(_ context.Context, args job.Args, opts job.Options) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if a, ok := args.(job.FetchFeedArgs); ok && q.dupes[a.FeedID] {
		return job.ErrAlreadyEnqueued
	}
	q.jobs = append(q.jobs, enqueued{args: args, opts: opts})
	return nil
}
