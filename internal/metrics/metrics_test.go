package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/v1/books", "200", 0.042)

	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/books", "200"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordLogin(t *testing.T) {
	LoginsTotal.Reset()

	RecordLogin("password", "success")
	RecordLogin("password", "failure")
	RecordLogin("google", "success")
	RecordLogin("password", "success")

	success := testutil.ToFloat64(LoginsTotal.WithLabelValues("password", "success"))
	if success != 2.0 {
		t.Errorf("Expected password success counter to be 2.0, got %f", success)
	}

	google := testutil.ToFloat64(LoginsTotal.WithLabelValues("google", "success"))
	if google != 1.0 {
		t.Errorf("Expected google success counter to be 1.0, got %f", google)
	}
}

func TestRecordPlayAndCompletion(t *testing.T) {
	playsBefore := testutil.ToFloat64(PlaysTotal)
	completionsBefore := testutil.ToFloat64(CompletionsTotal)

	RecordPlay()
	RecordPlay()
	RecordCompletion()

	if got := testutil.ToFloat64(PlaysTotal); got != playsBefore+2 {
		t.Errorf("Expected plays counter to be %f, got %f", playsBefore+2, got)
	}
	if got := testutil.ToFloat64(CompletionsTotal); got != completionsBefore+1 {
		t.Errorf("Expected completions counter to be %f, got %f", completionsBefore+1, got)
	}
}

func TestRecordUpload(t *testing.T) {
	UploadsTotal.Reset()

	RecordUpload("audio", "success", 12*1024*1024)
	RecordUpload("cover", "failure", 0)

	audio := testutil.ToFloat64(UploadsTotal.WithLabelValues("audio", "success"))
	if audio != 1.0 {
		t.Errorf("Expected audio upload counter to be 1.0, got %f", audio)
	}

	cover := testutil.ToFloat64(UploadsTotal.WithLabelValues("cover", "failure"))
	if cover != 1.0 {
		t.Errorf("Expected cover upload counter to be 1.0, got %f", cover)
	}
}

func TestRecordEmailJobs(t *testing.T) {
	EmailJobsPublished.Reset()
	EmailJobsProcessed.Reset()

	RecordEmailPublished("welcome")
	RecordEmailProcessed("welcome", "sent")
	RecordEmailProcessed("password_reset", "failed")

	published := testutil.ToFloat64(EmailJobsPublished.WithLabelValues("welcome"))
	if published != 1.0 {
		t.Errorf("Expected published counter to be 1.0, got %f", published)
	}

	failed := testutil.ToFloat64(EmailJobsProcessed.WithLabelValues("password_reset", "failed"))
	if failed != 1.0 {
		t.Errorf("Expected failed counter to be 1.0, got %f", failed)
	}
}

func TestRecordCacheAccess(t *testing.T) {
	CacheHitsTotal.Reset()
	CacheMissesTotal.Reset()

	RecordCacheAccess("book", true)
	RecordCacheAccess("book", true)
	RecordCacheAccess("shelf", false)

	hits := testutil.ToFloat64(CacheHitsTotal.WithLabelValues("book"))
	if hits != 2.0 {
		t.Errorf("Expected hits counter to be 2.0, got %f", hits)
	}

	misses := testutil.ToFloat64(CacheMissesTotal.WithLabelValues("shelf"))
	if misses != 1.0 {
		t.Errorf("Expected misses counter to be 1.0, got %f", misses)
	}
}

func TestRecordError(t *testing.T) {
	ErrorsTotal.Reset()

	RecordError("storage", "upload_failed")
	RecordError("storage", "upload_failed")

	count := testutil.ToFloat64(ErrorsTotal.WithLabelValues("storage", "upload_failed"))
	if count != 2.0 {
		t.Errorf("Expected error counter to be 2.0, got %f", count)
	}
}
