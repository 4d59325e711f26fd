// Package store implements the discovery knowledge store: projects and the
// discovery artifacts they own (gaps, conflicts, ambiguities, questions,
// documents, deliverables), plus the append-only activity timeline.
//
// Status enums are advisory, not enforced state machines: any member of a
// kind's enum may be assigned at any time. Only non-member values are
// rejected, at the boundary, before any write.
package store

import (
	"encoding/json"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
	ProjectStatusDraft    ProjectStatus = "draft"
)

// IsValid returns true if the status is a known ProjectStatus.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusArchived, ProjectStatusDraft:
		return true
	default:
		return false
	}
}

// Impact rates how much an artifact affects the project.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// IsValid returns true if the impact is a known Impact.
func (i Impact) IsValid() bool {
	switch i {
	case ImpactHigh, ImpactMedium, ImpactLow:
		return true
	default:
		return false
	}
}

// Priority rates how urgently an artifact needs attention.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid returns true if the priority is a known Priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// GapStatus is the lifecycle state of a gap: open → in-progress → resolved.
type GapStatus string

const (
	GapStatusOpen       GapStatus = "open"
	GapStatusInProgress GapStatus = "in-progress"
	GapStatusResolved   GapStatus = "resolved"
)

func (s GapStatus) IsValid() bool {
	switch s {
	case GapStatusOpen, GapStatusInProgress, GapStatusResolved:
		return true
	default:
		return false
	}
}

// ConflictStatus is the lifecycle state of a conflict.
type ConflictStatus string

const (
	ConflictStatusOpen       ConflictStatus = "open"
	ConflictStatusInProgress ConflictStatus = "in-progress"
	ConflictStatusResolved   ConflictStatus = "resolved"
)

func (s ConflictStatus) IsValid() bool {
	switch s {
	case ConflictStatusOpen, ConflictStatusInProgress, ConflictStatusResolved:
		return true
	default:
		return false
	}
}

// AmbiguityStatus is the lifecycle state of an ambiguity.
type AmbiguityStatus string

const (
	AmbiguityStatusOpen      AmbiguityStatus = "open"
	AmbiguityStatusClarified AmbiguityStatus = "clarified"
	AmbiguityStatusResolved  AmbiguityStatus = "resolved"
)

func (s AmbiguityStatus) IsValid() bool {
	switch s {
	case AmbiguityStatusOpen, AmbiguityStatusClarified, AmbiguityStatusResolved:
		return true
	default:
		return false
	}
}

// QuestionStatus is the lifecycle state of a question.
type QuestionStatus string

const (
	QuestionStatusOpen     QuestionStatus = "open"
	QuestionStatusAnswered QuestionStatus = "answered"
	QuestionStatusDeferred QuestionStatus = "deferred"
)

func (s QuestionStatus) IsValid() bool {
	switch s {
	case QuestionStatusOpen, QuestionStatusAnswered, QuestionStatusDeferred:
		return true
	default:
		return false
	}
}

// DocumentStatus tracks the processing pipeline state of a document.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
)

func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusProcessed:
		return true
	default:
		return false
	}
}

// DocumentSource identifies where a document came from.
type DocumentSource string

const (
	DocumentSourceUpload      DocumentSource = "upload"
	DocumentSourceIntegration DocumentSource = "integration"
	DocumentSourceLocal       DocumentSource = "local"
)

func (s DocumentSource) IsValid() bool {
	switch s {
	case DocumentSourceUpload, DocumentSourceIntegration, DocumentSourceLocal:
		return true
	default:
		return false
	}
}

// DeliverableStatus is the lifecycle state of a generated deliverable.
type DeliverableStatus string

const (
	DeliverableStatusDraft    DeliverableStatus = "draft"
	DeliverableStatusFinal    DeliverableStatus = "final"
	DeliverableStatusArchived DeliverableStatus = "archived"
)

func (s DeliverableStatus) IsValid() bool {
	switch s {
	case DeliverableStatusDraft, DeliverableStatusFinal, DeliverableStatusArchived:
		return true
	default:
		return false
	}
}

// DeliverableType is the kind of report a deliverable represents.
type DeliverableType string

const (
	DeliverableTypeImplementationPlan     DeliverableType = "implementation_plan"
	DeliverableTypeRequirementsDocument   DeliverableType = "requirements_document"
	DeliverableTypeTechnicalSpecification DeliverableType = "technical_specification"
	DeliverableTypeGapAnalysisReport      DeliverableType = "gap_analysis_report"
	DeliverableTypeRiskAssessment         DeliverableType = "risk_assessment"
	DeliverableTypeSOW                    DeliverableType = "sow"
)

func (t DeliverableType) IsValid() bool {
	switch t {
	case DeliverableTypeImplementationPlan, DeliverableTypeRequirementsDocument,
		DeliverableTypeTechnicalSpecification, DeliverableTypeGapAnalysisReport,
		DeliverableTypeRiskAssessment, DeliverableTypeSOW:
		return true
	default:
		return false
	}
}

// EventType classifies a timeline event.
type EventType string

const (
	EventDocumentAdded      EventType = "document_added"
	EventGapIdentified      EventType = "gap_identified"
	EventConflictResolved   EventType = "conflict_resolved"
	EventQuestionAnswered   EventType = "question_answered"
	EventConfidenceUpdated  EventType = "confidence_updated"
	EventAmbiguityClarified EventType = "ambiguity_clarified"
	EventProjectCreated     EventType = "project_created"
	EventAnalysisCompleted  EventType = "analysis_completed"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventDocumentAdded, EventGapIdentified, EventConflictResolved,
		EventQuestionAnswered, EventConfidenceUpdated, EventAmbiguityClarified,
		EventProjectCreated, EventAnalysisCompleted:
		return true
	default:
		return false
	}
}

// Project is the top-level scope owning all discovery artifacts.
// The *Count fields are denormalized mirrors of the live child counts;
// whoever mutates children is responsible for keeping them in sync.
type Project struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	ScenarioID       string        `json:"scenario_id"`
	Confidence       float64       `json:"confidence"`
	GapsCount        int           `json:"gaps_count"`
	ConflictsCount   int           `json:"conflicts_count"`
	AmbiguitiesCount int           `json:"ambiguities_count"`
	DocumentsCount   int           `json:"documents_count"`
	LastUpdated      time.Time     `json:"last_updated"`
	Status           ProjectStatus `json:"status"`
}

// Gap is a piece of missing information identified during discovery.
type Gap struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"project_id"`
	Category          string    `json:"category"`
	Description       string    `json:"description"`
	Impact            Impact    `json:"impact"`
	Priority          Priority  `json:"priority"`
	Status            GapStatus `json:"status"`
	IdentifiedDate    time.Time `json:"identified_date"`
	SuggestedQuestion string    `json:"suggested_question,omitempty"`
}

// Conflict is a contradiction between source statements.
type Conflict struct {
	ID                    string         `json:"id"`
	ProjectID             string         `json:"project_id"`
	Category              string         `json:"category"`
	Description           string         `json:"description"`
	Impact                Impact         `json:"impact"`
	Priority              Priority       `json:"priority"`
	Status                ConflictStatus `json:"status"`
	IdentifiedDate        time.Time      `json:"identified_date"`
	ConflictingStatements []string       `json:"conflicting_statements"`
	Sources               []string       `json:"sources"`
	Resolution            string         `json:"resolution,omitempty"`
}

// Ambiguity is an unclear requirement needing clarification.
type Ambiguity struct {
	ID                  string          `json:"id"`
	ProjectID           string          `json:"project_id"`
	Category            string          `json:"category"`
	Description         string          `json:"description"`
	Impact              Impact          `json:"impact"`
	ClarificationNeeded string          `json:"clarification_needed"`
	Clarification       string          `json:"clarification,omitempty"`
	Status              AmbiguityStatus `json:"status"`
	IdentifiedDate      time.Time       `json:"identified_date"`
	Context             string          `json:"context"`
}

// Question is an open question raised by the discovery process.
type Question struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	Question     string         `json:"question"`
	Category     string         `json:"category"`
	Priority     Priority       `json:"priority"`
	Status       QuestionStatus `json:"status"`
	AskedDate    time.Time      `json:"asked_date"`
	Answer       string         `json:"answer,omitempty"`
	AnsweredDate *time.Time     `json:"answered_date,omitempty"`
	WhyItMatters string         `json:"why_it_matters,omitempty"`
}

// Document is a source document ingested into a project.
// ExternalID, ExternalURL and IntegrationID are only meaningful when
// Source is DocumentSourceIntegration.
type Document struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"project_id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	UploadDate    time.Time       `json:"upload_date"`
	Size          int64           `json:"size"`
	Status        DocumentStatus  `json:"status"`
	SourceLink    string          `json:"source_link,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	ExternalID    string          `json:"external_id,omitempty"`
	ExternalURL   string          `json:"external_url,omitempty"`
	IntegrationID string          `json:"integration_id,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	Source        DocumentSource  `json:"source"`
}

// Deliverable is a generated output document.
type Deliverable struct {
	ID            string            `json:"id"`
	ProjectID     string            `json:"project_id"`
	Name          string            `json:"name"`
	Type          DeliverableType   `json:"type"`
	GeneratedDate time.Time         `json:"generated_date"`
	Status        DeliverableStatus `json:"status"`
	FileType      string            `json:"file_type"`
	DownloadURL   string            `json:"download_url,omitempty"`
}

// ContextEvent is one immutable entry in a project's activity timeline.
type ContextEvent struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	EventType   EventType       `json:"event_type"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Timestamps are persisted as epoch milliseconds, matching the wire format
// the frontend and agent already speak.

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
