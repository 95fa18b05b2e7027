package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/beaches", "200"))
	RecordAPIRequest("GET", "/api/beaches", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/beaches", "200"))
	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != start+1 {
		t.Errorf("active = %v, want %v", got, start+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("active = %v, want %v", got, start)
	}
}

func TestRecordImageOptimized(t *testing.T) {
	before := testutil.ToFloat64(ImageBytesSaved)
	RecordImageOptimized(time.Second, 2048)
	RecordImageOptimized(time.Second, 0)
	if got := testutil.ToFloat64(ImageBytesSaved) - before; got != 2048 {
		t.Errorf("bytes saved delta = %v, want 2048", got)
	}
}

func TestRecordImageOperation(t *testing.T) {
	c := ImageOperations.WithLabelValues("upload", "invalid")
	before := testutil.ToFloat64(c)
	RecordImageOperation("upload", "invalid")
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("operation delta = %v, want 1", got)
	}
}
