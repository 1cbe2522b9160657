package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisFailedTotal    atomic.Uint64
	analysisSkippedTotal   atomic.Uint64

	puzzlesLinkedTotal       atomic.Uint64
	puzzleLinkFailuresTotal  atomic.Uint64
	workerJobsReceivedTotal  atomic.Uint64
	workerJobsProcessedTotal atomic.Uint64
	workerJobsFailedTotal    atomic.Uint64

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})

	failuresMu     sync.Mutex
	failuresByCode = map[string]uint64{}
)

// IncAnalysisStarted counts a claimed job.
func IncAnalysisStarted() {
	analysisStartedTotal.Add(1)
}

// IncAnalysisCompleted counts a job committed as completed.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Add(1)
}

// IncAnalysisFailed counts a job committed as failed, labelled by error code.
func IncAnalysisFailed(code string) {
	analysisFailedTotal.Add(1)
	if code == "" {
		return
	}
	failuresMu.Lock()
	failuresByCode[code]++
	failuresMu.Unlock()
}

// IncAnalysisSkipped counts a delivery ignored by the idempotency guard or lost claim.
func IncAnalysisSkipped() {
	analysisSkippedTotal.Add(1)
}

// AddPuzzlesLinked counts persisted puzzles.
func AddPuzzlesLinked(n int) {
	if n > 0 {
		puzzlesLinkedTotal.Add(uint64(n))
	}
}

// IncPuzzleLinkFailure counts an absorbed puzzle persistence failure.
func IncPuzzleLinkFailure() {
	puzzleLinkFailuresTotal.Add(1)
}

// IncWorkerReceived counts a queue message pulled by a worker.
func IncWorkerReceived() {
	workerJobsReceivedTotal.Add(1)
}

// IncWorkerProcessed counts a queue message handled and deleted.
func IncWorkerProcessed() {
	workerJobsProcessedTotal.Add(1)
}

// IncWorkerFailed counts a queue message left for redelivery.
func IncWorkerFailed() {
	workerJobsFailedTotal.Add(1)
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_started_total", "Total analyses claimed", analysisStartedTotal.Load())
	writeCounter(&buf, "analysis_completed_total", "Total analyses completed", analysisCompletedTotal.Load())
	writeCounter(&buf, "analysis_failed_total", "Total analyses failed", analysisFailedTotal.Load())
	writeCounter(&buf, "analysis_skipped_total", "Total deliveries skipped by the idempotency guard", analysisSkippedTotal.Load())
	writeLabelledCounter(&buf, "analysis_failed_by_code_total", "Failed analyses by error code", "code", snapshotFailures())
	writeCounter(&buf, "puzzles_linked_total", "Total puzzles persisted", puzzlesLinkedTotal.Load())
	writeCounter(&buf, "puzzle_link_failures_total", "Total absorbed puzzle persistence failures", puzzleLinkFailuresTotal.Load())
	writeCounter(&buf, "worker_jobs_received_total", "Queue messages received", workerJobsReceivedTotal.Load())
	writeCounter(&buf, "worker_jobs_processed_total", "Queue messages processed", workerJobsProcessedTotal.Load())
	writeCounter(&buf, "worker_jobs_failed_total", "Queue messages left for redelivery", workerJobsFailedTotal.Load())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

func snapshotFailures() map[string]uint64 {
	failuresMu.Lock()
	defer failuresMu.Unlock()
	out := make(map[string]uint64, len(failuresByCode))
	for k, v := range failuresByCode {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabelledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
