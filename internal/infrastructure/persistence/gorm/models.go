// Package gorm provides GORM model definitions and repository
// implementations for the application's persisted aggregates.
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedModel is the GORM model for a configured external source.
type FeedModel struct {
	ID             uuid.UUID  `gorm:"type:char(36);primaryKey"`
	Name           string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Priority       string     `gorm:"type:varchar(5);not null"`
	Enabled        bool       `gorm:"default:true"`
	Cadence        string     `gorm:"type:varchar(20);not null"`
	CredentialBlob []byte     `gorm:"type:blob"`
	LastRunAt      *time.Time
	LastRunStatus  *string `gorm:"type:varchar(20)"`
	LastRunError   string  `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (FeedModel) TableName() string { return "feeds" }

func (f *FeedModel) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// ThreatModel is the GORM model for an ingested vulnerability advisory.
type ThreatModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	FeedID      uuid.UUID `gorm:"type:char(36);index;not null"`
	CVEID       string    `gorm:"type:varchar(32);index"`
	Title       string    `gorm:"type:varchar(500);not null"`
	Description string    `gorm:"type:text"`
	BaseScore   *float64
	Vector      string `gorm:"type:varchar(255)"`
	Severity    string `gorm:"type:varchar(20)"`
	Status      string `gorm:"type:varchar(20);index"`
	PublishedAt *time.Time
	CollectedAt time.Time `gorm:"index"`
	SourceURL   string    `gorm:"type:text"`
	RawPayload  []byte    `gorm:"type:blob"`
	Products    JSONSlice `gorm:"type:json"`
	TTPs        StringSlice `gorm:"type:json"`
	IOCs        JSONField `gorm:"type:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ThreatModel) TableName() string { return "threats" }

func (t *ThreatModel) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// AssociationModel is the GORM model for a (threat, asset) correlation edge.
type AssociationModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	ThreatID     uuid.UUID `gorm:"type:char(36);index;not null"`
	AssetID      uuid.UUID `gorm:"type:char(36);index;not null"`
	Confidence   float64
	MatchKind    string `gorm:"type:varchar(50)"`
	MatchDetails []byte `gorm:"type:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AssociationModel) TableName() string { return "associations" }

func (a *AssociationModel) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// PIRModel is the GORM model for a Priority-of-Interest Rule.
type PIRModel struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name           string    `gorm:"type:varchar(255);not null"`
	Description    string    `gorm:"type:text"`
	Priority       string    `gorm:"type:varchar(10);not null"`
	ConditionType  string    `gorm:"type:varchar(30);not null"`
	ConditionValue string    `gorm:"type:varchar(255);not null"`
	Enabled        bool      `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PIRModel) TableName() string { return "pirs" }

func (p *PIRModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RiskAssessmentModel is the GORM model for one scoring of a (threat,
// association) pair. Breakdown is stored verbatim for audit/explainability.
type RiskAssessmentModel struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	ThreatID      uuid.UUID `gorm:"type:char(36);index;not null"`
	AssociationID uuid.UUID `gorm:"type:char(36);uniqueIndex;not null"`
	Breakdown     JSONField `gorm:"type:json"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (RiskAssessmentModel) TableName() string { return "risk_assessments" }

func (a *RiskAssessmentModel) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// RiskHistoryModel is the GORM model for an immutable risk-scoring
// history row. Never updated or deleted after write.
type RiskHistoryModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	AssessmentID uuid.UUID `gorm:"type:char(36);index;not null"`
	Breakdown    JSONField `gorm:"type:json"`
	RecordedAt   time.Time `gorm:"index"`
}

func (RiskHistoryModel) TableName() string { return "risk_history" }

func (h *RiskHistoryModel) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// ReportModel is the GORM model for a rendered artefact: a CISO digest or
// an IT ticket synthesised from a qualifying risk assessment.
type ReportModel struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey"`
	Kind           string    `gorm:"type:varchar(20);index;not null"`
	Title          string    `gorm:"type:varchar(500);not null"`
	Path           string    `gorm:"type:text;not null"`
	Format         string    `gorm:"type:varchar(10);not null"`
	GeneratedAt    time.Time `gorm:"index"`
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	AISummary      string    `gorm:"type:text"`
	Metadata       StringMapField `gorm:"type:json"`
	TicketStatus   *string `gorm:"type:varchar(20);index"`
	TicketPriority *string `gorm:"type:varchar(10)"`
}

func (ReportModel) TableName() string { return "reports" }

func (r *ReportModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ScheduleModel is the GORM model for a cron-driven report/digest
// generation schedule.
type ScheduleModel struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name           string    `gorm:"type:varchar(255);not null"`
	CronExpression string    `gorm:"type:varchar(100);not null"`
	Timezone       string    `gorm:"type:varchar(100);not null"`
	Enabled        bool      `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ScheduleModel) TableName() string { return "schedules" }

func (s *ScheduleModel) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// NotificationRuleModel is the GORM model for a notification subscription.
type NotificationRuleModel struct {
	ID             uuid.UUID   `gorm:"type:char(36);primaryKey"`
	Kind           string      `gorm:"type:varchar(30);index;not null"`
	Enabled        bool        `gorm:"default:true"`
	ScoreThreshold float64
	SendTime       string      `gorm:"type:varchar(5)"`
	Recipients     StringSlice `gorm:"type:json"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (NotificationRuleModel) TableName() string { return "notification_rules" }

func (r *NotificationRuleModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NotificationModel is the GORM model for one sent (or attempted)
// notification instance.
type NotificationModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	RuleID      uuid.UUID `gorm:"type:char(36);index;not null"`
	DeliveredAt time.Time `gorm:"index"`
	Status      string    `gorm:"type:varchar(10)"`
	ErrorText   string    `gorm:"type:text"`
}

func (NotificationModel) TableName() string { return "notifications" }

func (n *NotificationModel) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// AuditEntryModel is the GORM model for an immutable audit record. No
// repository method updates or deletes a persisted row.
type AuditEntryModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	SubjectID    string    `gorm:"type:varchar(255);index"`
	Verb         string    `gorm:"type:varchar(20);index"`
	ResourceKind string    `gorm:"type:varchar(50);index"`
	ResourceID   string    `gorm:"type:varchar(255);index"`
	Details      JSONField `gorm:"type:json"`
	OriginIP     string    `gorm:"type:varchar(64)"`
	UserAgent    string    `gorm:"type:varchar(255)"`
	CreatedAt    time.Time `gorm:"index"`
}

func (AuditEntryModel) TableName() string { return "audit_entries" }

func (e *AuditEntryModel) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// StringSlice is a JSON-backed []string column.
type StringSlice []string

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return json.Marshal(s)
}

// JSONField is a JSON-backed map[string]any column, used for opaque
// structured data such as risk breakdowns and audit details.
type JSONField map[string]interface{}

func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = JSONField{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONField", value)
	}
}

func (j JSONField) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	return json.Marshal(j)
}

// StringMapField is a JSON-backed map[string]string column, used for
// report metadata.
type StringMapField map[string]string

func (m *StringMapField) Scan(value interface{}) error {
	if value == nil {
		*m = StringMapField{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into StringMapField", value)
	}
}

func (m StringMapField) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return json.Marshal(m)
}

// JSONSlice is a JSON-backed column for a slice of structured values, used
// for threat products.
type JSONSlice []byte

func (s *JSONSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*s = append(JSONSlice{}, v...)
		return nil
	case string:
		*s = JSONSlice(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into JSONSlice", value)
	}
}

func (s JSONSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return []byte(s), nil
}
