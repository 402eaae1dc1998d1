package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Sentinel values substituted when a field cannot be determined.
const (
	UnknownName      = "Unknown"
	NoTitle          = "No Title"
	NoTranscript     = "No transcript found."
	CallDateLayout   = "2006-01-02"
	zeroCallDuration = "0 minutes 0 seconds"
)

// ErrInvalidURL is returned when an extraction request carries no usable URL.
var ErrInvalidURL = errors.New("invalid or missing URL")

// ExtractionRequest is a single extraction job as handed over by an outer surface.
type ExtractionRequest struct {
	URL string `json:"videoUrl"`
}

// Validate rejects requests before any browser work happens.
func (r ExtractionRequest) Validate() error {
	raw := strings.TrimSpace(r.URL)
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// CallMetadata represents the structured data describing one recorded call.
// Every field always carries a value; missing data is replaced by a sentinel.
type CallMetadata struct {
	// CallDate is the calendar date of the call in ISO form (2006-01-02).
	CallDate string `json:"call_date"`

	// SalespersonName is the host / recorder of the call.
	SalespersonName string `json:"salesperson_name"`

	// ProspectName is the first external participant.
	ProspectName string `json:"prospect_name"`

	// CallDuration is formatted as "<m> minutes <s> seconds".
	CallDuration string `json:"call_duration"`

	// TranscriptLink points back at the recording page.
	TranscriptLink string `json:"transcript_link"`

	// Title of the call.
	Title string `json:"title"`
}

// DefaultCallMetadata returns metadata where every field holds its default.
func DefaultCallMetadata(pageURL string, now time.Time) CallMetadata {
	return CallMetadata{
		CallDate:        now.Format(CallDateLayout),
		SalespersonName: UnknownName,
		ProspectName:    UnknownName,
		CallDuration:    zeroCallDuration,
		TranscriptLink:  pageURL,
		Title:           NoTitle,
	}
}

// WithDefaults fills every blank field from DefaultCallMetadata.
func (m CallMetadata) WithDefaults(pageURL string, now time.Time) CallMetadata {
	d := DefaultCallMetadata(pageURL, now)
	if strings.TrimSpace(m.CallDate) == "" {
		m.CallDate = d.CallDate
	}
	if strings.TrimSpace(m.SalespersonName) == "" {
		m.SalespersonName = d.SalespersonName
	}
	if strings.TrimSpace(m.ProspectName) == "" {
		m.ProspectName = d.ProspectName
	}
	if strings.TrimSpace(m.CallDuration) == "" {
		m.CallDuration = d.CallDuration
	}
	if strings.TrimSpace(m.TranscriptLink) == "" {
		m.TranscriptLink = d.TranscriptLink
	}
	if strings.TrimSpace(m.Title) == "" {
		m.Title = d.Title
	}
	return m
}

// FormatDuration renders a number of seconds as "<m> minutes <s> seconds".
// Hours are folded into minutes.
func FormatDuration(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	return fmt.Sprintf("%d minutes %d seconds", totalSeconds/60, totalSeconds%60)
}
