package ical

import (
	"strings"
	"time"
)

// DefaultProductID is written to PRODID when an Invite does not set one.
const DefaultProductID = "-//Saadia Henna Art//Booking//EN"

// ContentType is the media type used when an invite is attached to an email.
const ContentType = "text/calendar; charset=utf-8; method=PUBLISH"

const utcLayout = "20060102T150405Z"

// Invite holds the data needed to build a single-event calendar document.
type Invite struct {
	ProductID   string
	UID         string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// MakeInvite builds a PUBLISH calendar containing one VEVENT stamped with the current time.
func MakeInvite(inv Invite) string {
	return MakeInviteAt(inv, time.Now())
}

// MakeInviteAt is MakeInvite with an explicit DTSTAMP.
func MakeInviteAt(inv Invite, stamp time.Time) string {
	prodID := inv.ProductID
	if prodID == "" {
		prodID = DefaultProductID
	}
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + inv.UID,
		"DTSTAMP:" + FormatUTC(stamp),
		"DTSTART:" + FormatUTC(inv.Start),
		"DTEND:" + FormatUTC(inv.End),
		"SUMMARY:" + EscapeValue(inv.Title),
	}
	if inv.Description != "" {
		lines = append(lines, "DESCRIPTION:"+EscapeValue(inv.Description))
	}
	if inv.Location != "" {
		lines = append(lines, "LOCATION:"+EscapeValue(inv.Location))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")

	return strings.Join(lines, "\r\n")
}

// FormatUTC renders t as an iCalendar UTC date-time (YYYYMMDDTHHMMSSZ).
func FormatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}

// EscapeValue escapes TEXT property values. Backslashes go first so the
// escapes added afterwards are not doubled. CRLF and bare CR become LF, so
// UnescapeValue returns "\n" where the input had "\r\n" or "\r".
func EscapeValue(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	return s
}

// UnescapeValue reverses EscapeValue, except for the CR normalisation.
func UnescapeValue(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			sb.WriteByte('\n')
		case '\\', ',', ';':
			sb.WriteByte(s[i])
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
