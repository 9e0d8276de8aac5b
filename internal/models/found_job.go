package models

import (
	"encoding/json"
	"time"
)

// FoundJobStatus tracks a user's application progress on a scraped posting.
type FoundJobStatus string

const (
	FoundJobStatusAgentFound FoundJobStatus = "agent_found"
	FoundJobStatusReviewed   FoundJobStatus = "reviewed"
	FoundJobStatusApplied    FoundJobStatus = "applied"
	FoundJobStatusDismissed  FoundJobStatus = "dismissed"
)

// FoundJob is a single job posting discovered by the scraper, optionally
// scored against a resume by the matcher. Saved (bookmarking) and
// ApplicationStatus (the user's progress on the posting) are independent
// concerns: a job can be saved without ever being applied to, and vice
// versa.
type FoundJob struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	TaskID            string          `json:"task_id"`
	Title             string          `json:"title"`
	Company           string          `json:"company"`
	Location          string          `json:"location"`
	JobURL            string          `json:"job_url"`
	Description       string          `json:"description"`
	Salary            string          `json:"salary,omitempty"`
	WorkType          string          `json:"work_type,omitempty"`
	SourcePlatform    string          `json:"source_platform,omitempty"`
	PostedAt          *time.Time      `json:"posted_at,omitempty"`
	MatchScore        *float64        `json:"match_score,omitempty"`
	MatchRationale    string          `json:"match_rationale,omitempty"`
	AIAnalysis        json.RawMessage `json:"ai_analysis,omitempty"`
	ApplicationStatus FoundJobStatus  `json:"application_status"`
	Saved             bool            `json:"saved"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToJSON serializes the found job for storage.
func (f *FoundJob) ToJSON() ([]byte, error) {
	return json.Marshal(f)
}

// FromJSON populates the found job from stored JSON.
func (f *FoundJob) FromJSON(data []byte) error {
	return json.Unmarshal(data, f)
}

// MatchResult is the structured output the LLM matcher produces for one
// résumé/job pairing (spec §4.B's AnalysisResult shape).
type MatchResult struct {
	MatchingScore   float64  `json:"matching_score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths,omitempty"`
	Gaps            []string `json:"gaps,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty"`
}

// Resume is a stored candidate résumé available for matching.
type Resume struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"` // plain text extracted from the uploaded document
	CreatedAt time.Time `json:"created_at"`
}
