package internaldefs

import (
	goRefresh "github.com/MrEthical07/goRefresh"
)

// CounterDef binds an engine counter to its stable exported name.
type CounterDef struct {
	ID   goRefresh.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its stable exported name.
type HistogramDef struct {
	ID   goRefresh.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter. Order is the exposition order.
var CounterDefs = []CounterDef{
	{ID: goRefresh.MetricIssueSuccess, Name: "gorefresh_issue_success_total", Help: "Successfully issued refresh credentials."},
	{ID: goRefresh.MetricIssueFailure, Name: "gorefresh_issue_failure_total", Help: "Failed issue attempts."},
	{ID: goRefresh.MetricRotateSuccess, Name: "gorefresh_rotate_success_total", Help: "Successful rotations."},
	{ID: goRefresh.MetricRotateFailure, Name: "gorefresh_rotate_failure_total", Help: "Rejected rotation attempts."},
	{ID: goRefresh.MetricRotateRateLimited, Name: "gorefresh_rotate_rate_limited_total", Help: "Rate-limited rotation attempts."},
	{ID: goRefresh.MetricReplayDetected, Name: "gorefresh_replay_detected_total", Help: "Replayed credentials observed."},
	{ID: goRefresh.MetricFamilyRevoked, Name: "gorefresh_family_revoked_total", Help: "Token families revoked."},
	{ID: goRefresh.MetricUserRevocation, Name: "gorefresh_user_revocation_total", Help: "Revoke-all-for-user sweeps."},
	{ID: goRefresh.MetricAccessIssued, Name: "gorefresh_access_issued_total", Help: "Minted access tokens."},
	{ID: goRefresh.MetricAccessDenylisted, Name: "gorefresh_access_denylisted_total", Help: "Access tokens added to the denylist."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goRefresh.MetricRotateLatency, Name: "gorefresh_rotate_latency_seconds", Help: "Rotation latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus form.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
