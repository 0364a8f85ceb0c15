package utils

import (
	"context"
	"errors"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrMalformedURL      = errors.New("malformed URL")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrScopeViolation    = errors.New("URL out of scope (domain/pattern)")
	ErrExcludedExtension = errors.New("URL path has an excluded file extension")
	ErrParsing           = errors.New("parsing error") // Wraps specific parsing error (HTML, JSON, YAML)
	ErrEngineClosed      = errors.New("crawl engine closed")
	ErrInternal          = errors.New("internal invariant violation")
	ErrDatabase          = errors.New("database error") // Wraps badger/sqlite errors
	ErrFetch             = errors.New("fetch failed")
	ErrRequestCreation   = errors.New("failed to create HTTP request")
	ErrResponseBodyRead  = errors.New("failed to read response body")
	ErrConfigValidation  = errors.New("configuration validation error")
	ErrReportWrite       = errors.New("failed to write report")
)

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrMalformedURL):
		return "Content_MalformedURL"
	case errors.Is(err, ErrUnsupportedScheme):
		return "Policy_Scheme"
	case errors.Is(err, ErrScopeViolation):
		return "Policy_Scope"
	case errors.Is(err, ErrExcludedExtension):
		return "Policy_Extension"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(errMsg, "JSON") {
			return "Content_ParsingJSON"
		}
		if strings.Contains(errMsg, "YAML") {
			return "Content_ParsingYAML"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrEngineClosed):
		return "Engine_Closed"
	case errors.Is(err, ErrInternal):
		return "Engine_Internal"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrReportWrite):
		return "Report_Write"
	}

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	// Network errors, possibly wrapped by ErrFetch
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErrMsg, "timeout"):
		return "Network_TimeoutGeneric"
	case strings.Contains(lowerErrMsg, "connection refused"):
		return "Network_ConnectionRefused"
	case strings.Contains(lowerErrMsg, "no such host"):
		return "Network_DNSLookup"
	case strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate"):
		return "Network_TLS"
	}
	if errors.Is(err, ErrFetch) {
		return "Network_Other"
	}

	return "Unknown"
}
