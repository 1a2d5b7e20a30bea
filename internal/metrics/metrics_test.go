package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOracleCall(t *testing.T) {
	before := testutil.ToFloat64(oracleCalls.WithLabelValues("analysis", "ok"))
	RecordOracleCall("analysis", "ok", 250*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(oracleCalls.WithLabelValues("analysis", "ok")))
}

func TestHandler_ExposesNamespace(t *testing.T) {
	RecordDreamCreated()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dreamweaver_journal_dreams_created_total")
}
