package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(jobTransitionsTotal.WithLabelValues("test", "running"))
	RecordTransition("test", "running")
	require.InDelta(t, before+1, testutil.ToFloat64(jobTransitionsTotal.WithLabelValues("test", "running")), 0)
}

func TestRecordLine(t *testing.T) {
	RecordLine("lines", 10)
	RecordLine("lines", 9)
	require.InDelta(t, 2, testutil.ToFloat64(linesDispatchedTotal.WithLabelValues("lines")), 0)
	require.InDelta(t, 19, testutil.ToFloat64(bytesConsumedTotal.WithLabelValues("lines")), 0)
}

func TestSetProgress(t *testing.T) {
	SetProgress("p", 0.5)
	require.InDelta(t, 0.5, testutil.ToFloat64(printProgress.WithLabelValues("p")), 0)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	ObserveCacheCopy("complete", 128, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "vsdcard_cache_copies_total"))
}
