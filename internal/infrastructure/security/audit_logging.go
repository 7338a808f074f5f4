// Package security provides structured logging for perimeter security
// events: authentication attempts, authorization denials, and the raw
// HTTP request trail. Business-level audit entries (who changed what
// aggregate) are the domain audit package's concern, written through
// outbound.AuditRepository; this logger only ever reaches zap.
package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"go.uber.org/zap"
)

// SecurityEventLogger logs perimeter security events.
type SecurityEventLogger struct {
	logger *zap.Logger
}

// NewSecurityEventLogger creates a new security event logger.
func NewSecurityEventLogger(logger *zap.Logger) *SecurityEventLogger {
	return &SecurityEventLogger{logger: logger.Named("security")}
}

// SecurityEvent represents a single perimeter security occurrence.
type SecurityEvent struct {
	Timestamp time.Time
	SubjectID string
	Action    string
	Resource  string
	Status    EventStatus
	IPAddress string
	UserAgent string
	Risk      RiskLevel
	Category  EventCategory
	Details   map[string]interface{}
}

// EventStatus represents the status of a logged event.
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusFailure EventStatus = "failure"
	StatusBlocked EventStatus = "blocked"
)

// RiskLevel represents the risk level of a security event.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// EventCategory represents categories of security events.
type EventCategory string

const (
	CategoryAuthentication EventCategory = "authentication"
	CategoryAuthorization  EventCategory = "authorization"
	CategoryHTTPRequest    EventCategory = "http_request"
)

// LogAuthentication logs an authentication attempt made against the
// OIDC exchange in front of the API.
func (a *SecurityEventLogger) LogAuthentication(subjectID, action, ipAddress, userAgent string, success bool) {
	status := StatusSuccess
	risk := RiskLow
	if !success {
		status = StatusFailure
		risk = RiskMedium
	}

	a.logEvent(SecurityEvent{
		Timestamp: time.Now(),
		SubjectID: subjectID,
		Action:    action,
		Resource:  "authentication",
		Status:    status,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Risk:      risk,
		Category:  CategoryAuthentication,
	})
}

// LogAuthorization logs a permission check outcome. Denials are also
// recorded to the domain audit trail by audit.Gate itself; this call
// only adds the perimeter-facing zap line with request context the
// gate does not see (user agent, full path).
func (a *SecurityEventLogger) LogAuthorization(subjectID, permission, resource, ipAddress, userAgent string, allowed bool) {
	status := StatusSuccess
	risk := RiskLow
	if !allowed {
		status = StatusBlocked
		risk = RiskMedium
	}

	a.logEvent(SecurityEvent{
		Timestamp: time.Now(),
		SubjectID: subjectID,
		Action:    permission,
		Resource:  resource,
		Status:    status,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Risk:      risk,
		Category:  CategoryAuthorization,
	})
}

// AuditMiddleware logs a line for every request worth keeping: writes,
// authenticated reads, and failures.
func (a *SecurityEventLogger) AuditMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &auditResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			subjectID := shared.SubjectIDFromContext(r.Context())

			if !a.shouldAuditRequest(r, ww.status, subjectID) {
				return
			}

			duration := time.Since(start)

			a.logEvent(SecurityEvent{
				Timestamp: start,
				SubjectID: subjectID,
				Action:    fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				Resource:  "http_request",
				Status:    a.determineStatus(ww.status),
				IPAddress: r.RemoteAddr,
				UserAgent: r.UserAgent(),
				Risk:      a.determineRequestRisk(r.URL.Path, ww.status),
				Category:  CategoryHTTPRequest,
				Details: map[string]interface{}{
					"status_code": ww.status,
					"duration_ms": duration.Milliseconds(),
				},
			})
		})
	}
}

type auditResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *auditResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (a *SecurityEventLogger) logEvent(event SecurityEvent) {
	fields := []zap.Field{
		zap.String("subject_id", event.SubjectID),
		zap.String("action", event.Action),
		zap.String("resource", event.Resource),
		zap.String("status", string(event.Status)),
		zap.String("risk", string(event.Risk)),
		zap.String("category", string(event.Category)),
		zap.String("ip_address", event.IPAddress),
	}

	if event.Details != nil {
		fields = append(fields, zap.Any("details", event.Details))
	}

	switch event.Risk {
	case RiskCritical:
		a.logger.Error("security event", fields...)
	case RiskHigh:
		a.logger.Warn("security event", fields...)
	case RiskMedium:
		a.logger.Info("security event", fields...)
	default:
		a.logger.Debug("security event", fields...)
	}
}

func (a *SecurityEventLogger) shouldAuditRequest(r *http.Request, status int, subjectID string) bool {
	skipPaths := []string{"/health", "/metrics", "/ready"}
	for _, path := range skipPaths {
		if r.URL.Path == path {
			return false
		}
	}

	if r.Method != "GET" && r.Method != "HEAD" {
		return true
	}

	if subjectID != "" {
		return true
	}

	return status >= 400
}

func (a *SecurityEventLogger) determineRequestRisk(path string, status int) RiskLevel {
	if strings.Contains(path, "/feeds") || strings.Contains(path, "/pirs") {
		return RiskMedium
	}

	if status >= 400 {
		return RiskMedium
	}

	return RiskLow
}

func (a *SecurityEventLogger) determineStatus(statusCode int) EventStatus {
	if statusCode >= 200 && statusCode < 300 {
		return StatusSuccess
	}
	return StatusFailure
}
