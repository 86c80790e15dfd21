package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the queue and its HTTP surface.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	jobsEnqueued = make(map[string]int64)
	jobsClaimed  = make(map[string]int64)
	jobsDone     = make(map[jobKey]int64)

	supervisionMsSum   = make(map[string]int64)
	supervisionMsCount = make(map[string]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type jobKey struct {
	Queue   string
	Outcome string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordEnqueue increments the enqueued-jobs counter for a queue.
func RecordEnqueue(queue string) {
	mu.Lock()
	defer mu.Unlock()
	jobsEnqueued[queue]++
}

// RecordClaim increments the claimed-jobs counter for a queue.
func RecordClaim(queue string) {
	mu.Lock()
	defer mu.Unlock()
	jobsClaimed[queue]++
}

// RecordOutcome records a terminal job outcome ("finished", "failed"
// or "lost") together with how long the worker supervised it.
func RecordOutcome(queue, outcome string, supervisionMs int64) {
	mu.Lock()
	defer mu.Unlock()

	jobsDone[jobKey{Queue: queue, Outcome: outcome}]++
	supervisionMsSum[queue] += supervisionMs
	supervisionMsCount[queue]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP rjq_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE rjq_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "rjq_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP rjq_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE rjq_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP rjq_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE rjq_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "rjq_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "rjq_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	// Queue metrics
	b.WriteString("# HELP rjq_jobs_enqueued_total Total jobs enqueued by queue\n")
	b.WriteString("# TYPE rjq_jobs_enqueued_total counter\n")
	for _, q := range sortedKeys(jobsEnqueued) {
		fmt.Fprintf(&b, "rjq_jobs_enqueued_total{queue=\"%s\"} %d\n", q, jobsEnqueued[q])
	}

	b.WriteString("# HELP rjq_jobs_claimed_total Total jobs claimed by workers\n")
	b.WriteString("# TYPE rjq_jobs_claimed_total counter\n")
	for _, q := range sortedKeys(jobsClaimed) {
		fmt.Fprintf(&b, "rjq_jobs_claimed_total{queue=\"%s\"} %d\n", q, jobsClaimed[q])
	}

	b.WriteString("# HELP rjq_jobs_done_total Total jobs by terminal outcome\n")
	b.WriteString("# TYPE rjq_jobs_done_total counter\n")

	var jobKeys []jobKey
	for k := range jobsDone {
		jobKeys = append(jobKeys, k)
	}
	sort.Slice(jobKeys, func(i, j int) bool {
		if jobKeys[i].Queue != jobKeys[j].Queue {
			return jobKeys[i].Queue < jobKeys[j].Queue
		}
		return jobKeys[i].Outcome < jobKeys[j].Outcome
	})

	for _, k := range jobKeys {
		fmt.Fprintf(&b, "rjq_jobs_done_total{queue=\"%s\",outcome=\"%s\"} %d\n",
			k.Queue, k.Outcome, jobsDone[k])
	}

	b.WriteString("# HELP rjq_job_supervision_ms_sum Total time spent supervising jobs in milliseconds\n")
	b.WriteString("# TYPE rjq_job_supervision_ms_sum counter\n")
	b.WriteString("# HELP rjq_job_supervision_ms_count Supervised job count for the duration metric\n")
	b.WriteString("# TYPE rjq_job_supervision_ms_count counter\n")
	for _, q := range sortedKeys(supervisionMsSum) {
		fmt.Fprintf(&b, "rjq_job_supervision_ms_sum{queue=\"%s\"} %d\n", q, supervisionMsSum[q])
		fmt.Fprintf(&b, "rjq_job_supervision_ms_count{queue=\"%s\"} %d\n", q, supervisionMsCount[q])
	}

	return b.String()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset clears all counters. Test helper.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	requestsTotal = make(map[reqKey]int64)
	latencyMsSum = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)
	jobsEnqueued = make(map[string]int64)
	jobsClaimed = make(map[string]int64)
	jobsDone = make(map[jobKey]int64)
	supervisionMsSum = make(map[string]int64)
	supervisionMsCount = make(map[string]int64)
}
