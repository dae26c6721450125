package booking

import (
	"strings"
	"time"
	_ "time/tzdata" // booking zones must resolve on images without a zoneinfo tree
)

// Request is a booking submission as it arrives from a form or JSON body.
type Request struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	EventType string `json:"eventType"`
	Location  string `json:"location"`
	Notes     string `json:"notes"`
	StartISO  string `json:"startIso"`
	EndISO    string `json:"endIso"`
	Timezone  string `json:"timezone"`
}

// Input is a Request that passed validation. Optional fields are nil when
// left blank.
type Input struct {
	FullName  string
	Email     string
	Phone     *string
	EventType string
	Location  *string
	Notes     *string
	StartISO  string
	EndISO    string
	Timezone  string
	Start     time.Time
	End       time.Time
}

// Field names reported by ValidationError.
const (
	FieldFullName  = "fullName"
	FieldEmail     = "email"
	FieldEventType = "eventType"
	FieldStart     = "startIso"
	FieldEnd       = "endIso"
	FieldToken     = "token"
)

// ValidationError names the first rule a Request failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// localLayouts are accepted when a time carries no UTC offset. They are
// interpreted in the booking's timezone. A time of day is required, so a bare
// date is rejected.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Validate trims req and checks it rule by rule, stopping at the first
// failure. Nothing is persisted here.
func Validate(req Request, defaultTZ string) (Input, *ValidationError) {
	in := Input{
		FullName:  strings.TrimSpace(req.FullName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     optional(req.Phone),
		EventType: strings.TrimSpace(req.EventType),
		Location:  optional(req.Location),
		Notes:     optional(req.Notes),
		StartISO:  strings.TrimSpace(req.StartISO),
		EndISO:    strings.TrimSpace(req.EndISO),
		Timezone:  strings.TrimSpace(req.Timezone),
	}
	if in.Timezone == "" {
		in.Timezone = defaultTZ
	}

	if in.FullName == "" {
		return Input{}, &ValidationError{Field: FieldFullName, Message: "Full name is required"}
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return Input{}, &ValidationError{Field: FieldEmail, Message: "Valid email is required"}
	}
	if in.EventType == "" {
		return Input{}, &ValidationError{Field: FieldEventType, Message: "Event type is required"}
	}

	loc := location(in.Timezone, defaultTZ)
	start, ok := parseTime(in.StartISO, loc)
	if !ok {
		return Input{}, &ValidationError{Field: FieldStart, Message: "Valid start time required"}
	}
	end, ok := parseTime(in.EndISO, loc)
	if !ok {
		return Input{}, &ValidationError{Field: FieldEnd, Message: "Valid end time required"}
	}
	if !end.After(start) {
		return Input{}, &ValidationError{Field: FieldEnd, Message: "End must be after start"}
	}

	in.Start = start
	in.End = end
	return in, nil
}

// ParseTimes re-reads the stored start and end of a booking.
func ParseTimes(startISO, endISO, tz, defaultTZ string) (start, end time.Time, ok bool) {
	loc := location(tz, defaultTZ)
	start, ok = parseTime(startISO, loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok = parseTime(endISO, loc)
	return start, end, ok
}

func parseTime(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// location resolves tz, falling back to defaultTZ and then UTC. The label
// stored on the booking is not changed by a fallback.
func location(tz, defaultTZ string) *time.Location {
	if loc, err := time.LoadLocation(tz); err == nil && tz != "" {
		return loc
	}
	if loc, err := time.LoadLocation(defaultTZ); err == nil && defaultTZ != "" {
		return loc
	}
	return time.UTC
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
