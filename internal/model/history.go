package model

import "time"

// AnalysisStatus is the terminal state of one analysis run.
type AnalysisStatus string

const (
	AnalysisSucceeded AnalysisStatus = "succeeded"
	AnalysisFailed    AnalysisStatus = "failed"
)

// AnalysisRecord is the persisted audit row for one analysis request.
// Recording is best-effort: a failed write never fails the request.
type AnalysisRecord struct {
	ID                 string             `json:"id"`
	Fingerprint        string             `json:"fingerprint"`
	Mode               Mode               `json:"mode"`
	Status             AnalysisStatus     `json:"status"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty"`
	Cached             bool               `json:"cached"`
	LatencyMS          int64              `json:"latency_ms"`
	CostUSD            float64            `json:"cost_usd"`
	CreatedAt          time.Time          `json:"created_at"`
}
