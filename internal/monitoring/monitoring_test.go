package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvaluation(t *testing.T) {
	before := testutil.ToFloat64(evaluationsTotal.WithLabelValues(OutcomeValid))
	RecordEvaluation(OutcomeValid, 5*time.Millisecond)
	RecordEvaluation(OutcomeValid, 7*time.Millisecond)
	assert.Equal(t, before+2, testutil.ToFloat64(evaluationsTotal.WithLabelValues(OutcomeValid)))
}

func TestGauges(t *testing.T) {
	UpdateBestFitness("annealing", 4.25)
	assert.Equal(t, 4.25, testutil.ToFloat64(bestFitness.WithLabelValues("annealing")))

	UpdateProgress("annealing", 25, 100)
	assert.Equal(t, 0.25, testutil.ToFloat64(progressRatio.WithLabelValues("annealing")))
	UpdateProgress("annealing", 30, 0)
	assert.Equal(t, 0.25, testutil.ToFloat64(progressRatio.WithLabelValues("annealing")), "zero total is ignored")

	before := testutil.ToFloat64(errorsTotal.WithLabelValues("EVALUATION"))
	RecordError("EVALUATION")
	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("EVALUATION")))
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	h.Progress(10, 40)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, 10, status.Current)
	assert.Equal(t, 40, status.Total)

	h.Finish(nil)
	assert.Equal(t, "finished", h.Status().Status)

	h.Finish(errors.New("boom"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
