package metrics

import "time"

// Feed fetch results.
const (
	FeedResultOK          = "ok"
	FeedResultNotModified = "not_modified"
	FeedResultSkipped     = "skipped"
	FeedResultError       = "error"
)

// RecordFeedFetch records one ingestion attempt. errKind is ignored unless
// result is FeedResultError.
func RecordFeedFetch(result, errKind string, duration time.Duration) {
	FeedFetchTotal.WithLabelValues(result).Inc()
	if result == FeedResultError {
		FeedFetchErrors.WithLabelValues(errKind).Inc()
	}
	if result != FeedResultSkipped {
		FeedFetchDuration.Observe(duration.Seconds())
	}
}

// RecordArticlesIngested records inserted and duplicate item counts of one feed.
func RecordArticlesIngested(inserted, duplicates int) {
	if inserted > 0 {
		ArticlesIngestedTotal.WithLabelValues("inserted").Add(float64(inserted))
	}
	if duplicates > 0 {
		ArticlesIngestedTotal.WithLabelValues("duplicate").Add(float64(duplicates))
	}
}

// RecordFeedsScheduled records how many feeds refresh-all selected.
func RecordFeedsScheduled(count int) {
	FeedsScheduledTotal.Add(float64(count))
}

// RecordFullTextSuccess records a stored extraction and its size.
func RecordFullTextSuccess(duration time.Duration, size int) {
	FullTextFetchTotal.WithLabelValues("success").Inc()
	FullTextFetchDuration.Observe(duration.Seconds())
	FullTextSize.Observe(float64(size))
}

// RecordFullTextFailure records a failed extraction by error kind.
func RecordFullTextFailure(errKind string, duration time.Duration) {
	FullTextFetchTotal.WithLabelValues("error").Inc()
	FullTextFetchErrors.WithLabelValues(errKind).Inc()
	FullTextFetchDuration.Observe(duration.Seconds())
}

// RecordFullTextSkipped records a job that found nothing to do.
func RecordFullTextSkipped() {
	FullTextFetchTotal.WithLabelValues("skipped").Inc()
}

// RecordArticleSummarized records the result of an article summarization operation.
func RecordArticleSummarized(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	ArticlesSummarizedTotal.WithLabelValues(status).Inc()
	SummarizationDuration.Observe(duration.Seconds())
}

// RecordEnqueue records an enqueue call; duplicate is true when the queue
// reported the job as already enqueued.
func RecordEnqueue(kind string, duplicate bool) {
	result := "enqueued"
	if duplicate {
		result = "duplicate"
	}
	JobsEnqueuedTotal.WithLabelValues(kind, result).Inc()
}
