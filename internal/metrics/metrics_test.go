package metrics

import (
	"strings"
	"testing"
)

func TestRecordRequestAndExport(t *testing.T) {
	Reset()

	// Record a single request and ensure it appears in the export.
	RecordRequest("POST", "/v1/jobs", 201, 12)

	out := Export()
	if !strings.Contains(out, "rjq_http_requests_total{method=\"POST\",path=\"/v1/jobs\",status=\"201\"}") {
		t.Fatalf("expected HTTP request metric for POST /v1/jobs in export, got:\n%s", out)
	}
	if !strings.Contains(out, "rjq_http_request_duration_ms_sum") || !strings.Contains(out, "rjq_http_request_duration_ms_count") {
		t.Fatalf("expected latency metrics headers in export, got:\n%s", out)
	}
}

func TestRecordQueueMetrics(t *testing.T) {
	Reset()

	RecordEnqueue("q1")
	RecordEnqueue("q1")
	RecordClaim("q1")
	RecordOutcome("q1", "finished", 120)
	RecordOutcome("q1", "lost", 30000)

	out := Export()
	if !strings.Contains(out, "rjq_jobs_enqueued_total{queue=\"q1\"} 2") {
		t.Fatalf("expected 2 enqueued jobs for q1, got:\n%s", out)
	}
	if !strings.Contains(out, "rjq_jobs_claimed_total{queue=\"q1\"} 1") {
		t.Fatalf("expected 1 claimed job for q1, got:\n%s", out)
	}
	if !strings.Contains(out, "rjq_jobs_done_total{queue=\"q1\",outcome=\"finished\"} 1") {
		t.Fatalf("expected finished outcome for q1, got:\n%s", out)
	}
	if !strings.Contains(out, "rjq_jobs_done_total{queue=\"q1\",outcome=\"lost\"} 1") {
		t.Fatalf("expected lost outcome for q1, got:\n%s", out)
	}
	if !strings.Contains(out, "rjq_job_supervision_ms_sum{queue=\"q1\"} 30120") {
		t.Fatalf("expected supervision sum for q1, got:\n%s", out)
	}
	if !strings.Contains(out, "rjq_job_supervision_ms_count{queue=\"q1\"} 2") {
		t.Fatalf("expected supervision count for q1, got:\n%s", out)
	}
}
