package gorm

import (
	"encoding/json"

	"github.com/aetim/core/internal/domain/association"
	"github.com/aetim/core/internal/domain/audit"
	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/domain/notification"
	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/google/uuid"
)

// FeedToModel converts a Feed aggregate to its persisted representation.
func FeedToModel(f *feed.Feed) *FeedModel {
	var lastRunStatus *string
	if s := f.LastRunStatus(); s != nil {
		v := string(*s)
		lastRunStatus = &v
	}
	return &FeedModel{
		ID:             f.ID(),
		Name:           f.Name(),
		Priority:       string(f.Priority()),
		Enabled:        f.Enabled(),
		Cadence:        string(f.Cadence()),
		CredentialBlob: f.CredentialBlob(),
		LastRunAt:      f.LastRunAt(),
		LastRunStatus:  lastRunStatus,
		LastRunError:   f.LastRunError(),
		CreatedAt:      f.CreatedAt(),
		UpdatedAt:      f.UpdatedAt(),
	}
}

// ModelToFeed reconstructs a Feed aggregate from its persisted model.
func ModelToFeed(m *FeedModel) *feed.Feed {
	var lastRunStatus *feed.CollectionStatus
	if m.LastRunStatus != nil {
		v := feed.CollectionStatus(*m.LastRunStatus)
		lastRunStatus = &v
	}
	return feed.Rehydrate(
		m.ID, m.Name, feed.Priority(m.Priority), m.Enabled, feed.Cadence(m.Cadence),
		m.CredentialBlob, m.LastRunAt, lastRunStatus, m.LastRunError, m.CreatedAt, m.UpdatedAt,
	)
}

type productDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	OriginalText string    `json:"original_text"`
}

// ThreatToModel converts a Threat aggregate to its persisted representation.
func ThreatToModel(t *threat.Threat) (*ThreatModel, error) {
	dtos := make([]productDTO, 0, len(t.Products()))
	for _, p := range t.Products() {
		dtos = append(dtos, productDTO{ID: p.ID(), Name: p.Name(), Version: p.Version(), Type: string(p.Type()), OriginalText: p.OriginalText()})
	}
	productsJSON, err := json.Marshal(dtos)
	if err != nil {
		return nil, err
	}

	iocs := JSONField{
		string(threat.IOCBucketIPs):     t.IOCs(threat.IOCBucketIPs),
		string(threat.IOCBucketDomains): t.IOCs(threat.IOCBucketDomains),
		string(threat.IOCBucketHashes):  t.IOCs(threat.IOCBucketHashes),
	}

	return &ThreatModel{
		ID:          t.ID(),
		FeedID:      t.FeedID(),
		CVEID:       t.CVEID(),
		Title:       t.Title(),
		Description: t.Description(),
		BaseScore:   t.BaseScore(),
		Vector:      t.Vector(),
		Severity:    string(t.Severity()),
		Status:      string(t.Status()),
		PublishedAt: t.PublishedAt(),
		CollectedAt: t.CollectedAt(),
		SourceURL:   t.SourceURL(),
		RawPayload:  t.RawPayload(),
		Products:    JSONSlice(productsJSON),
		TTPs:        StringSlice(t.TTPs()),
		IOCs:        iocs,
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}, nil
}

// ModelToThreat reconstructs a Threat aggregate from its persisted model.
func ModelToThreat(m *ThreatModel) (*threat.Threat, error) {
	var dtos []productDTO
	if len(m.Products) > 0 {
		if err := json.Unmarshal(m.Products, &dtos); err != nil {
			return nil, err
		}
	}
	products := make([]threat.Product, 0, len(dtos))
	for _, d := range dtos {
		products = append(products, threat.RehydrateProduct(d.ID, d.Name, d.Version, threat.ProductType(d.Type), d.OriginalText))
	}

	iocs := map[threat.IOCBucket][]string{
		threat.IOCBucketIPs:     stringsFromAny(m.IOCs[string(threat.IOCBucketIPs)]),
		threat.IOCBucketDomains: stringsFromAny(m.IOCs[string(threat.IOCBucketDomains)]),
		threat.IOCBucketHashes:  stringsFromAny(m.IOCs[string(threat.IOCBucketHashes)]),
	}

	return threat.Rehydrate(
		m.ID, m.FeedID, m.CVEID, m.Title, m.Description, m.BaseScore, m.Vector,
		threat.Severity(m.Severity), threat.Status(m.Status), m.PublishedAt, m.CollectedAt,
		m.SourceURL, m.RawPayload, products, []string(m.TTPs), iocs, m.CreatedAt, m.UpdatedAt,
	), nil
}

// stringsFromAny converts a JSON-decoded []interface{} (always the shape
// IOCs unmarshal into through JSONField) back into []string.
func stringsFromAny(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// AssociationToModel converts an Association aggregate to its persisted
// representation.
func AssociationToModel(a *association.Association) *AssociationModel {
	return &AssociationModel{
		ID:           a.ID(),
		ThreatID:     a.ThreatID(),
		AssetID:      a.AssetID(),
		Confidence:   a.Confidence(),
		MatchKind:    string(a.MatchKind()),
		MatchDetails: []byte(a.MatchDetails()),
		CreatedAt:    a.CreatedAt(),
		UpdatedAt:    a.UpdatedAt(),
	}
}

// ModelToAssociation reconstructs an Association aggregate from its
// persisted model.
func ModelToAssociation(m *AssociationModel) *association.Association {
	return association.Rehydrate(m.ID, m.ThreatID, m.AssetID, m.Confidence, association.Kind(m.MatchKind), m.MatchDetails, m.CreatedAt, m.UpdatedAt)
}

// PIRToModel converts a PIR aggregate to its persisted representation.
func PIRToModel(p *pir.PIR) *PIRModel {
	return &PIRModel{
		ID:             p.ID(),
		Name:           p.Name(),
		Description:    p.Description(),
		Priority:       string(p.Priority()),
		ConditionType:  string(p.ConditionType()),
		ConditionValue: p.ConditionValue(),
		Enabled:        p.Enabled(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}
}

// ModelToPIR reconstructs a PIR aggregate from its persisted model.
func ModelToPIR(m *PIRModel) *pir.PIR {
	return pir.Rehydrate(m.ID, m.Name, m.Description, pir.Priority(m.Priority), pir.ConditionType(m.ConditionType), m.ConditionValue, m.Enabled, m.CreatedAt, m.UpdatedAt)
}

// RiskAssessmentToModel converts a risk Assessment aggregate to its
// persisted representation.
func RiskAssessmentToModel(a *risk.Assessment) (*RiskAssessmentModel, error) {
	breakdown, err := breakdownToField(a.Breakdown())
	if err != nil {
		return nil, err
	}
	return &RiskAssessmentModel{
		ID:            a.ID(),
		ThreatID:      a.ThreatID(),
		AssociationID: a.AssociationID(),
		Breakdown:     breakdown,
		CreatedAt:     a.CreatedAt(),
		UpdatedAt:     a.UpdatedAt(),
	}, nil
}

// ModelToRiskAssessment reconstructs a risk Assessment aggregate from its
// persisted model.
func ModelToRiskAssessment(m *RiskAssessmentModel) (*risk.Assessment, error) {
	breakdown, err := fieldToBreakdown(m.Breakdown)
	if err != nil {
		return nil, err
	}
	return risk.Rehydrate(m.ID, m.ThreatID, m.AssociationID, breakdown, m.CreatedAt, m.UpdatedAt), nil
}

// RiskHistoryToModel converts an immutable risk history row to its
// persisted representation.
func RiskHistoryToModel(h risk.HistoryEntry) (*RiskHistoryModel, error) {
	breakdown, err := breakdownToField(h.Breakdown)
	if err != nil {
		return nil, err
	}
	return &RiskHistoryModel{
		ID:           h.ID,
		AssessmentID: h.AssessmentID,
		Breakdown:    breakdown,
		RecordedAt:   h.RecordedAt,
	}, nil
}

// ModelToRiskHistory reconstructs a risk history row from its persisted
// model.
func ModelToRiskHistory(m *RiskHistoryModel) (risk.HistoryEntry, error) {
	breakdown, err := fieldToBreakdown(m.Breakdown)
	if err != nil {
		return risk.HistoryEntry{}, err
	}
	return risk.HistoryEntry{ID: m.ID, AssessmentID: m.AssessmentID, Breakdown: breakdown, RecordedAt: m.RecordedAt}, nil
}

func breakdownToField(b risk.Breakdown) (JSONField, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	var field JSONField
	if err := json.Unmarshal(raw, &field); err != nil {
		return nil, err
	}
	return field, nil
}

func fieldToBreakdown(f JSONField) (risk.Breakdown, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return risk.Breakdown{}, err
	}
	var b risk.Breakdown
	if err := json.Unmarshal(raw, &b); err != nil {
		return risk.Breakdown{}, err
	}
	return b, nil
}

// ReportToModel converts a Report aggregate to its persisted representation.
func ReportToModel(r *report.Report) *ReportModel {
	var ticketStatus *string
	if s := r.TicketStatus(); s != nil {
		v := string(*s)
		ticketStatus = &v
	}
	var ticketPriority *string
	if p := r.TicketPriority(); p != nil {
		v := string(*p)
		ticketPriority = &v
	}
	return &ReportModel{
		ID:             r.ID(),
		Kind:           string(r.Kind()),
		Title:          r.Title(),
		Path:           r.Path(),
		Format:         string(r.Format()),
		GeneratedAt:    r.GeneratedAt(),
		PeriodStart:    r.PeriodStart(),
		PeriodEnd:      r.PeriodEnd(),
		AISummary:      r.AISummary(),
		Metadata:       StringMapField(r.Metadata()),
		TicketStatus:   ticketStatus,
		TicketPriority: ticketPriority,
	}
}

// ModelToReport reconstructs a Report aggregate from its persisted model.
func ModelToReport(m *ReportModel) *report.Report {
	var ticketStatus *report.TicketStatus
	if m.TicketStatus != nil {
		v := report.TicketStatus(*m.TicketStatus)
		ticketStatus = &v
	}
	var ticketPriority *report.TicketPriority
	if m.TicketPriority != nil {
		v := report.TicketPriority(*m.TicketPriority)
		ticketPriority = &v
	}
	return report.Rehydrate(
		m.ID, report.Kind(m.Kind), m.Title, m.Path, report.Format(m.Format),
		m.GeneratedAt, m.PeriodStart, m.PeriodEnd, m.AISummary, map[string]string(m.Metadata),
		ticketStatus, ticketPriority,
	)
}

// ScheduleToModel converts a report Schedule to its persisted representation.
func ScheduleToModel(s *report.Schedule) *ScheduleModel {
	return &ScheduleModel{
		ID:             s.ID(),
		Name:           s.Name(),
		CronExpression: s.CronExpression(),
		Timezone:       s.Timezone(),
		Enabled:        s.Enabled(),
		CreatedAt:      s.CreatedAt(),
		UpdatedAt:      s.UpdatedAt(),
	}
}

// ModelToSchedule reconstructs a report Schedule from its persisted model.
func ModelToSchedule(m *ScheduleModel) *report.Schedule {
	return report.RehydrateSchedule(m.ID, m.Name, m.CronExpression, m.Timezone, m.Enabled, m.CreatedAt, m.UpdatedAt)
}

// NotificationRuleToModel converts a notification Rule to its persisted
// representation.
func NotificationRuleToModel(r *notification.Rule) *NotificationRuleModel {
	return &NotificationRuleModel{
		ID:             r.ID(),
		Kind:           string(r.Kind()),
		Enabled:        r.Enabled(),
		ScoreThreshold: r.ScoreThreshold(),
		SendTime:       r.SendTime(),
		Recipients:     StringSlice(r.Recipients()),
		CreatedAt:      r.CreatedAt(),
		UpdatedAt:      r.UpdatedAt(),
	}
}

// ModelToNotificationRule reconstructs a notification Rule from its
// persisted model.
func ModelToNotificationRule(m *NotificationRuleModel) *notification.Rule {
	return notification.RehydrateRule(m.ID, notification.RuleKind(m.Kind), m.Enabled, m.ScoreThreshold, m.SendTime, []string(m.Recipients), m.CreatedAt, m.UpdatedAt)
}

// NotificationToModel converts a sent Notification instance to its
// persisted representation.
func NotificationToModel(n *notification.Notification) *NotificationModel {
	return &NotificationModel{
		ID:          n.ID(),
		RuleID:      n.RuleID(),
		DeliveredAt: n.DeliveredAt(),
		Status:      string(n.Status()),
		ErrorText:   n.ErrorText(),
	}
}

// ModelToNotification reconstructs a Notification instance from its
// persisted model.
func ModelToNotification(m *NotificationModel) *notification.Notification {
	return notification.RehydrateNotification(m.ID, m.RuleID, m.DeliveredAt, notification.DeliveryStatus(m.Status), m.ErrorText)
}

// AuditEntryToModel converts an audit Entry to its persisted representation.
func AuditEntryToModel(e audit.Entry) *AuditEntryModel {
	return &AuditEntryModel{
		ID:           e.ID,
		SubjectID:    e.SubjectID,
		Verb:         string(e.Verb),
		ResourceKind: e.ResourceKind,
		ResourceID:   e.ResourceID,
		Details:      JSONField(e.Details),
		OriginIP:     e.OriginIP,
		UserAgent:    e.UserAgent,
		CreatedAt:    e.CreatedAt,
	}
}

// ModelToAuditEntry reconstructs an audit Entry from its persisted model.
func ModelToAuditEntry(m *AuditEntryModel) audit.Entry {
	return audit.Entry{
		ID:           m.ID,
		SubjectID:    m.SubjectID,
		Verb:         audit.Verb(m.Verb),
		ResourceKind: m.ResourceKind,
		ResourceID:   m.ResourceID,
		Details:      map[string]interface{}(m.Details),
		OriginIP:     m.OriginIP,
		UserAgent:    m.UserAgent,
		CreatedAt:    m.CreatedAt,
	}
}
