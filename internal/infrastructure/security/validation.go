// Package security provides comprehensive input validation and sanitization
package security

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var cveIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// ValidationService provides input validation and sanitization.
type ValidationService struct {
	logger    *zap.Logger
	validator *validator.Validate
}

// NewValidationService creates a new validation service.
func NewValidationService(logger *zap.Logger) *ValidationService {
	validate := validator.New()

	validate.RegisterValidation("cve_id", validateCVEID)
	validate.RegisterValidation("ioc_value", validateIOCValue)
	validate.RegisterValidation("feed_url", validateFeedURL)
	validate.RegisterValidation("no_sql_injection", validateNoSQLInjection)
	validate.RegisterValidation("no_xss", validateNoXSS)
	validate.RegisterValidation("safe_html", validateSafeHTML)
	validate.RegisterValidation("strong_password", validateStrongPassword)

	return &ValidationService{
		logger:    logger,
		validator: validate,
	}
}

// SanitizationConfig defines sanitization rules.
type SanitizationConfig struct {
	StripHTML           bool
	StripJavaScript     bool
	StripSQLKeywords    bool
	NormalizeWhitespace bool
	MaxLength           int
	AllowedTags         []string
}

// DefaultSanitizationConfig returns safe defaults for arbitrary input.
func DefaultSanitizationConfig() SanitizationConfig {
	return SanitizationConfig{
		StripHTML:           true,
		StripJavaScript:     true,
		StripSQLKeywords:    true,
		NormalizeWhitespace: true,
		MaxLength:           1000,
	}
}

// TicketNoteSanitizationConfig returns config for free-text ticket and
// report annotation fields, where a little structure is tolerated.
func TicketNoteSanitizationConfig() SanitizationConfig {
	return SanitizationConfig{
		StripHTML:           false,
		StripJavaScript:     true,
		StripSQLKeywords:    true,
		NormalizeWhitespace: true,
		MaxLength:           5000,
		AllowedTags:         []string{"p", "br", "strong", "em", "ul", "ol", "li"},
	}
}

// SanitizeInput sanitizes input based on configuration.
func (v *ValidationService) SanitizeInput(input string, config SanitizationConfig) string {
	result := strings.TrimSpace(input)

	if config.MaxLength > 0 && len(result) > config.MaxLength {
		result = result[:config.MaxLength]
	}

	if config.StripJavaScript {
		result = v.stripJavaScript(result)
	}

	if config.StripSQLKeywords {
		result = v.stripSQLKeywords(result)
	}

	if config.StripHTML {
		result = v.stripHTML(result)
	} else {
		result = v.sanitizeHTML(result, config.AllowedTags)
	}

	if config.NormalizeWhitespace {
		result = v.normalizeWhitespace(result)
	}

	return result
}

func (v *ValidationService) stripJavaScript(input string) string {
	scriptRegex := regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	input = scriptRegex.ReplaceAllString(input, "")

	eventRegex := regexp.MustCompile(`(?i)on[a-z]+\s*=\s*["'][^"']*["']`)
	input = eventRegex.ReplaceAllString(input, "")

	jsURLRegex := regexp.MustCompile(`(?i)javascript:\s*[^"'\s>]*`)
	input = jsURLRegex.ReplaceAllString(input, "")

	evalRegex := regexp.MustCompile(`(?i)(eval|setTimeout|setInterval)\s*\(`)
	input = evalRegex.ReplaceAllString(input, "")

	return input
}

func (v *ValidationService) stripSQLKeywords(input string) string {
	sqlKeywords := []string{
		"SELECT", "INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
		"EXEC", "EXECUTE", "UNION", "DECLARE", "CAST", "CONVERT",
		"--", "/*", "*/", "xp_", "sp_", "@@",
	}

	result := input
	for _, keyword := range sqlKeywords {
		pattern := fmt.Sprintf(`(?i)\b%s\b`, regexp.QuoteMeta(keyword))
		regex := regexp.MustCompile(pattern)
		result = regex.ReplaceAllString(result, "")
	}

	return result
}

func (v *ValidationService) stripHTML(input string) string {
	htmlRegex := regexp.MustCompile(`<[^>]*>`)
	result := htmlRegex.ReplaceAllString(input, "")
	return html.UnescapeString(result)
}

func (v *ValidationService) sanitizeHTML(input string, allowedTags []string) string {
	if len(allowedTags) == 0 {
		return v.stripHTML(input)
	}

	result := input

	dangerousTags := []string{
		"script", "object", "embed", "link", "style", "iframe",
		"frame", "frameset", "meta", "base", "form", "input",
		"textarea", "button", "select", "option",
	}

	for _, tag := range dangerousTags {
		pattern := fmt.Sprintf(`(?i)<%s[^>]*>.*?</%s>|<%s[^>]*/>`, tag, tag, tag)
		regex := regexp.MustCompile(pattern)
		result = regex.ReplaceAllString(result, "")
	}

	return html.EscapeString(result)
}

func (v *ValidationService) normalizeWhitespace(input string) string {
	spaceRegex := regexp.MustCompile(`\s+`)
	result := spaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(result)
}

// ValidationMiddleware provides baseline request validation.
func (v *ValidationService) ValidationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == "POST" || r.Method == "PUT" || r.Method == "PATCH" {
				contentType := r.Header.Get("Content-Type")
				if contentType == "" {
					writeJSONError(w, http.StatusBadRequest, "Content-Type header required")
					return
				}

				validTypes := []string{"application/json", "application/x-www-form-urlencoded"}
				valid := false
				for _, validType := range validTypes {
					if strings.Contains(contentType, validType) {
						valid = true
						break
					}
				}

				if !valid {
					writeJSONError(w, http.StatusBadRequest, "Invalid content type")
					return
				}
			}

			if r.ContentLength > 10*1024*1024 {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "Request too large")
				return
			}

			if v.containsSuspiciousPatterns(r.URL.Path) {
				v.logger.Warn("suspicious URL pattern detected",
					zap.String("path", r.URL.Path),
					zap.String("ip", r.RemoteAddr),
					zap.String("user_agent", r.UserAgent()),
				)
				writeJSONError(w, http.StatusBadRequest, "Invalid request")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, message)
}

func (v *ValidationService) containsSuspiciousPatterns(path string) bool {
	suspiciousPatterns := []string{
		"../", "..\\", "%2e%2e", "%252e%252e",
		"<script", "</script>", "javascript:", "vbscript:",
		"onload=", "onerror=", "onclick=",
		"eval(", "alert(",
		"SELECT ", "INSERT ", "UPDATE ", "DELETE ", "DROP ",
		"UNION ", "OR 1=1", "' OR '", "1' OR '1'='1",
		"/etc/passwd", "/proc/", "cmd.exe", "powershell", "/bin/bash", "/bin/sh",
	}

	pathLower := strings.ToLower(path)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(pathLower, strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}

// Custom validation functions

// validateCVEID validates the CVE-YYYY-NNNN... shape of a vulnerability
// identifier before it is used as a dedup key against an existing threat.
func validateCVEID(fl validator.FieldLevel) bool {
	return cveIDPattern.MatchString(fl.Field().String())
}

// validateIOCValue rejects IOC bucket entries that carry script or markup
// payloads instead of the hash, domain, IP, or URL an analyst expects.
func validateIOCValue(fl validator.FieldLevel) bool {
	value := fl.Field().String()

	if len(value) < 1 || len(value) > 2048 {
		return false
	}

	dangerous := []string{"<", ">", "script", "javascript:", "onload", "onerror"}
	valueLower := strings.ToLower(value)
	for _, danger := range dangerous {
		if strings.Contains(valueLower, danger) {
			return false
		}
	}

	return true
}

// validateFeedURL ensures a feed's collection endpoint is a well-formed
// absolute HTTP(S) URL, not a local file or other scheme.
func validateFeedURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func validateNoSQLInjection(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())

	sqlPatterns := []string{
		"'", "\"", ";", "--", "/*", "*/",
		"union", "select", "insert", "update", "delete", "drop",
		"exec", "execute", "xp_", "sp_", "@@",
		"or 1=1", "and 1=1", "' or '", "' and '",
		"1' or '1'='1", "admin'--",
	}

	for _, pattern := range sqlPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}

	return true
}

func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())

	xssPatterns := []string{
		"<script", "</script>", "javascript:", "vbscript:",
		"onload", "onerror", "onclick", "onmouseover", "onfocus",
		"onblur", "onchange", "onsubmit",
		"eval(", "alert(", "document.cookie", "document.write", "window.location",
	}

	for _, pattern := range xssPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}

	return true
}

func validateSafeHTML(fl validator.FieldLevel) bool {
	content := strings.ToLower(fl.Field().String())

	dangerous := []string{
		"<script", "<object", "<embed", "<link", "<style", "<iframe",
		"<frame", "<frameset", "<meta", "<base", "<form", "<input",
		"<textarea", "<button", "<select", "<option", "<applet",
		"javascript:", "vbscript:", "data:", "onload", "onerror",
	}

	for _, danger := range dangerous {
		if strings.Contains(content, danger) {
			return false
		}
	}

	return true
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case char >= 'A' && char <= 'Z':
			hasUpper = true
		case char >= 'a' && char <= 'z':
			hasLower = true
		case char >= '0' && char <= '9':
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	typeCount := 0
	for _, ok := range []bool{hasUpper, hasLower, hasNumber, hasSpecial} {
		if ok {
			typeCount++
		}
	}

	return typeCount >= 3
}

// ValidateStruct validates a struct using the registered validation rules.
func (v *ValidationService) ValidateStruct(s interface{}) error {
	return v.validator.Struct(s)
}

// GetValidationError formats validation errors for API responses.
func (v *ValidationService) GetValidationError(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()

			switch tag {
			case "required":
				errors[field] = fmt.Sprintf("%s is required", field)
			case "min":
				errors[field] = fmt.Sprintf("%s must be at least %s characters", field, e.Param())
			case "max":
				errors[field] = fmt.Sprintf("%s must be at most %s characters", field, e.Param())
			case "cve_id":
				errors[field] = "must be a valid CVE identifier (CVE-YYYY-NNNN)"
			case "ioc_value":
				errors[field] = "invalid indicator value"
			case "feed_url":
				errors[field] = "must be an absolute http(s) URL"
			case "no_sql_injection":
				errors[field] = "input contains potential SQL injection"
			case "no_xss":
				errors[field] = "input contains potential XSS"
			case "safe_html":
				errors[field] = "HTML content contains unsafe elements"
			case "strong_password":
				errors[field] = "password must be at least 8 characters with 3 different character types"
			default:
				errors[field] = fmt.Sprintf("%s is invalid", field)
			}
		}
	}

	return errors
}
