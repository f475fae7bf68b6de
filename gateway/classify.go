package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
)

// ErrorKind is the fixed taxonomy every adapter failure is mapped into.
type ErrorKind string

const (
	KindRateLimit       ErrorKind = "RateLimit"
	KindAuthFailure     ErrorKind = "AuthFailure"
	KindBadRequest      ErrorKind = "BadRequest"
	KindServerError     ErrorKind = "ServerError"
	KindNetworkFailure  ErrorKind = "NetworkFailure"
	KindQuotaExceeded   ErrorKind = "QuotaExceeded"
	KindContentFiltered ErrorKind = "ContentFiltered"
	KindUnknown         ErrorKind = "Unknown"
)

// Classification is the result of mapping one raw adapter failure.
// UserMessage is localized and safe to surface; RawDetail is preserved for
// logs only and never reaches the normalized stream.
type Classification struct {
	Kind        ErrorKind
	Provider    ai.ProviderID
	UserMessage string
	RawDetail   string
}

// Classifier maps raw adapter failures into the fixed taxonomy with
// messages in one configured language. It is immutable and shared across
// concurrent turns.
type Classifier struct {
	language string
}

// NewClassifier returns a classifier producing user messages in the given
// language. Unsupported languages fall back to English at lookup time;
// configuration validates the language beforehand.
func NewClassifier(language string) *Classifier {
	return &Classifier{language: language}
}

// quotaMarkers and contentMarkers detect vendor-declared conditions that
// hide behind generic HTTP statuses.
var (
	quotaMarkers   = []string{"quota", "billing", "insufficient_quota", "insufficient funds", "limit exceeded"}
	contentMarkers = []string{"content_filter", "content_policy", "content management policy", "moderation", "safety", "blocked by"}
)

// Classify maps a raw adapter failure to its [Classification]. Rules are
// evaluated in a fixed priority order so every vendor fails identically:
// HTTP 429, then 401/403, then 400, then 5xx, then transport failures,
// then vendor quota markers, then content-policy markers, then Unknown.
// Body markers are consulted only for statuses outside the fixed table and
// for errors with no HTTP status at all.
func (classifier *Classifier) Classify(provider ai.ProviderID, err error) Classification {
	classification := Classification{
		Kind:      KindUnknown,
		Provider:  provider,
		RawDetail: rawDetail(err),
	}

	if httpErr, ok := utils.AsHTTPError(err); ok {
		classification.Kind = classifyStatus(httpErr.StatusCode, httpErr.Body)
	} else if isTransportFailure(err) {
		classification.Kind = KindNetworkFailure
	} else if isBadRequestError(err) {
		classification.Kind = KindBadRequest
	} else if kind, ok := classifyMarkers(strings.ToLower(err.Error())); ok {
		classification.Kind = kind
	}

	classification.UserMessage = userMessage(classifier.language, classification.Kind, provider)
	return classification
}

// classifyStatus applies the HTTP status rules. Statuses outside the fixed
// table fall through to the vendor body markers.
func classifyStatus(statusCode int, body string) ErrorKind {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return KindAuthFailure
	case statusCode == http.StatusBadRequest:
		return KindBadRequest
	case statusCode >= 500:
		return KindServerError
	case statusCode == http.StatusPaymentRequired:
		return KindQuotaExceeded
	}

	if kind, ok := classifyMarkers(strings.ToLower(body)); ok {
		return kind
	}
	return KindUnknown
}

// classifyMarkers checks a lowered error text for vendor-declared quota and
// content-policy markers.
func classifyMarkers(lowered string) (ErrorKind, bool) {
	if hasMarker(lowered, quotaMarkers) {
		return KindQuotaExceeded, true
	}
	if hasMarker(lowered, contentMarkers) {
		return KindContentFiltered, true
	}
	return KindUnknown, false
}

func hasMarker(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// isTransportFailure reports whether err is a network-level failure with no
// HTTP status available: timeouts, connection errors, DNS failures, and
// context deadlines.
func isTransportFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// isBadRequestError reports whether err is a request the gateway itself
// knows the vendor cannot serve: a capability the adapter lacks or a
// misconfigured provider.
func isBadRequestError(err error) bool {
	var capabilityErr *ai.CapabilityError
	if errors.As(err, &capabilityErr) {
		return true
	}
	var configErr *ai.ConfigError
	return errors.As(err, &configErr)
}

// rawDetail renders the raw failure for server-side logs. HTML error bodies
// (typically reverse-proxy 502 pages) are converted to markdown so the log
// line stays readable.
func rawDetail(err error) string {
	if err == nil {
		return ""
	}

	detail := err.Error()
	if httpErr, ok := utils.AsHTTPError(err); ok && looksLikeHTML(httpErr.Body) {
		if markdown, convErr := htmltomarkdown.ConvertString(httpErr.Body); convErr == nil {
			detail = fmt.Sprintf("non-2xx status %d:\n%s", httpErr.StatusCode, strings.TrimSpace(markdown))
		}
	}
	return detail
}

func looksLikeHTML(body string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(body))
	return strings.HasPrefix(trimmed, "<!doctype html") || strings.HasPrefix(trimmed, "<html")
}
