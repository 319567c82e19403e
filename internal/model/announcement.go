package model

import (
	"time"
)

// ClassificationStatus represents whether an announcement has been assigned a region.
type ClassificationStatus string

const (
	ClassificationPending    ClassificationStatus = "pending"
	ClassificationClassified ClassificationStatus = "classified"
)

// ClassificationMethod identifies which tier produced a region assignment.
type ClassificationMethod string

const (
	MethodNone    ClassificationMethod = ""
	MethodKeyword ClassificationMethod = "keyword"
	MethodAI      ClassificationMethod = "ai"
	MethodManual  ClassificationMethod = "manual"
	MethodDefault ClassificationMethod = "default"
	MethodError   ClassificationMethod = "error"
)

// Announcement is one normalized support-program record from the Bizinfo feed.
// RegionCode is non-nil exactly when Status is classified; Confidence follows
// RegionCode.
type Announcement struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`

	Title        string `json:"title"`
	IssuingOrg   string `json:"issuing_org"`
	ExecutingOrg string `json:"executing_org"`
	Summary      string `json:"summary"`
	Target       string `json:"target"`

	URL           string `json:"url"`
	ReceptionURL  string `json:"reception_url,omitempty"`
	AttachmentDir string `json:"attachment_dir,omitempty"`
	PrintPath     string `json:"print_path,omitempty"`
	PrintFileName string `json:"print_file_name,omitempty"`
	FileName      string `json:"file_name,omitempty"`

	ApplicationPeriod string `json:"application_period"`
	ApplicationMethod string `json:"application_method,omitempty"`
	Contact           string `json:"contact"`

	CategoryMajor string `json:"category_major,omitempty"`
	CategoryMinor string `json:"category_minor,omitempty"`
	Hashtags      string `json:"hashtags,omitempty"`

	TotalCount int `json:"total_count"`
	ViewCount  int `json:"view_count"`

	SourceCreatedAt *time.Time `json:"source_created_at,omitempty"`
	FetchedAt       time.Time  `json:"fetched_at"`

	RegionCode *string              `json:"region_code,omitempty"`
	Method     ClassificationMethod `json:"classification_method,omitempty"`
	Confidence *float64             `json:"classification_confidence,omitempty"`
	Status     ClassificationStatus `json:"classification_status"`
}

// ClassificationResult is the transient outcome of one classifier tier for
// one announcement. A nil RegionCode means the tier produced no usable
// assignment; Reason then explains why.
type ClassificationResult struct {
	RegionCode *string              `json:"region_code"`
	Confidence float64              `json:"confidence"`
	Method     ClassificationMethod `json:"method"`
	Reason     string               `json:"reason,omitempty"`
}

// CollectionStats aggregates the counters of one collection run.
type CollectionStats struct {
	TotalFetched         int           `json:"total_fetched"`
	NewAnnouncements     int           `json:"new_announcements"`
	Inserted             int           `json:"inserted"`
	KeywordClassified    int           `json:"keyword_classified"`
	AIClassified         int           `json:"ai_classified"`
	ClassificationFailed int           `json:"classification_failed"`
	StartedAt            time.Time     `json:"started_at"`
	Duration             time.Duration `json:"duration"`
	Errors               []string      `json:"errors,omitempty"`
}

// RegionCount is the number of announcements assigned to one region.
type RegionCount struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MethodCount is the number of announcements classified by one method.
type MethodCount struct {
	Method ClassificationMethod `json:"method"`
	Count  int                  `json:"count"`
}

// ClassificationStats summarizes the classification state of the whole store.
type ClassificationStats struct {
	Total        int           `json:"total"`
	Classified   int           `json:"classified"`
	Unclassified int           `json:"unclassified"`
	ByRegion     []RegionCount `json:"by_region"`
	ByMethod     []MethodCount `json:"by_method"`
}
