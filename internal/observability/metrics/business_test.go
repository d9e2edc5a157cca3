package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFeedFetch(t *testing.T) {
	okBefore := testutil.ToFloat64(FeedFetchTotal.WithLabelValues(FeedResultOK))
	errBefore := testutil.ToFloat64(FeedFetchErrors.WithLabelValues("timeout"))

	RecordFeedFetch(FeedResultOK, "", 120*time.Millisecond)
	RecordFeedFetch(FeedResultError, "timeout", 20*time.Second)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(FeedFetchTotal.WithLabelValues(FeedResultOK)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(FeedFetchErrors.WithLabelValues("timeout")))
}

func TestRecordArticlesIngested(t *testing.T) {
	insBefore := testutil.ToFloat64(ArticlesIngestedTotal.WithLabelValues("inserted"))
	dupBefore := testutil.ToFloat64(ArticlesIngestedTotal.WithLabelValues("duplicate"))

	RecordArticlesIngested(3, 0)
	RecordArticlesIngested(0, 2)

	assert.Equal(t, insBefore+3, testutil.ToFloat64(ArticlesIngestedTotal.WithLabelValues("inserted")))
	assert.Equal(t, dupBefore+2, testutil.ToFloat64(ArticlesIngestedTotal.WithLabelValues("duplicate")))
}

func TestRecordFullText(t *testing.T) {
	successBefore := testutil.ToFloat64(FullTextFetchTotal.WithLabelValues("success"))
	errorBefore := testutil.ToFloat64(FullTextFetchTotal.WithLabelValues("error"))
	skippedBefore := testutil.ToFloat64(FullTextFetchTotal.WithLabelValues("skipped"))

	RecordFullTextSuccess(time.Second, 4096)
	RecordFullTextFailure("too_large", time.Second)
	RecordFullTextSkipped()

	assert.Equal(t, successBefore+1, testutil.ToFloat64(FullTextFetchTotal.WithLabelValues("success")))
	assert.Equal(t, errorBefore+1, testutil.ToFloat64(FullTextFetchTotal.WithLabelValues("error")))
	assert.Equal(t, skippedBefore+1, testutil.ToFloat64(FullTextFetchTotal.WithLabelValues("skipped")))
}

func TestRecordEnqueue(t *testing.T) {
	before := testutil.ToFloat64(JobsEnqueuedTotal.WithLabelValues("fetch-fulltext", "duplicate"))
	RecordEnqueue("fetch-fulltext", true)
	assert.Equal(t, before+1, testutil.ToFloat64(JobsEnqueuedTotal.WithLabelValues("fetch-fulltext", "duplicate")))
}

func TestRecordArticleSummarized(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordArticleSummarized(true, 2*time.Second)
		RecordArticleSummarized(false, 0)
		RecordFeedsScheduled(4)
	})
}
