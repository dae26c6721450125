package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"unicode"

	"github.com/saadiahenna/hennabook/internal/ical"
	"github.com/saadiahenna/hennabook/internal/metrics"
	"github.com/saadiahenna/hennabook/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	kindOwnerRequest       = "owner_request"
	kindRequesterConfirmed = "requester_confirmed"
	kindOwnerConfirmed     = "owner_confirmed"
)

// Config carries the addresses and branding used for every message.
type Config struct {
	From         string
	Owner        string
	BusinessName string
}

// Dispatcher composes booking emails and hands them to a Mailer.
type Dispatcher struct {
	mailer     Mailer
	cfg        Config
	tmpl       *template.Template
	attachName string
}

func NewDispatcher(mailer Mailer, cfg Config) (*Dispatcher, error) {
	if mailer == nil {
		return nil, errors.New("notify: mailer is required")
	}
	if cfg.From == "" || cfg.Owner == "" {
		return nil, errors.New("notify: from and owner addresses are required")
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Dispatcher{
		mailer:     mailer,
		cfg:        cfg,
		tmpl:       tmpl,
		attachName: AttachmentName(cfg.BusinessName),
	}, nil
}

// Send delivers one HTML email from the configured sender.
func (d *Dispatcher) Send(ctx context.Context, to, subject, html string, attachments ...Attachment) error {
	return d.mailer.Send(ctx, Message{
		From:        d.cfg.From,
		To:          []string{to},
		Subject:     subject,
		HTML:        html,
		Attachments: attachments,
	})
}

// BookingRequested tells the owner about a new request. The requester is not
// emailed at this stage.
func (d *Dispatcher) BookingRequested(ctx context.Context, b store.Booking, confirmURL string) error {
	data := newEmailData(b, d.cfg.BusinessName)
	data.ConfirmURL = template.URL(confirmURL)

	body, err := d.render("booking_requested.html", data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("New booking request: %s (%s)", b.FullName, b.EventType)
	err = d.Send(ctx, d.cfg.Owner, subject, body)
	metrics.NotificationSent(kindOwnerRequest, err)
	if err != nil {
		return fmt.Errorf("notify owner of booking %s: %w", b.ID, err)
	}
	return nil
}

// BookingConfirmed sends the confirmation to the requester and then to the
// owner, each with the invite attached. It stops at the first failure.
func (d *Dispatcher) BookingConfirmed(ctx context.Context, b store.Booking, invite string) error {
	body, err := d.render("booking_confirmed.html", newEmailData(b, d.cfg.BusinessName))
	if err != nil {
		return err
	}
	attachment := Attachment{
		Filename:    d.attachName,
		Content:     []byte(invite),
		ContentType: ical.ContentType,
	}

	err = d.Send(ctx, b.Email, "Your henna booking is confirmed ✅", body, attachment)
	metrics.NotificationSent(kindRequesterConfirmed, err)
	if err != nil {
		return fmt.Errorf("notify requester of booking %s: %w", b.ID, err)
	}

	subject := fmt.Sprintf("Confirmed: %s (%s) ✅", b.FullName, b.EventType)
	err = d.Send(ctx, d.cfg.Owner, subject, body, attachment)
	metrics.NotificationSent(kindOwnerConfirmed, err)
	if err != nil {
		return fmt.Errorf("notify owner of confirmed booking %s: %w", b.ID, err)
	}
	return nil
}

func (d *Dispatcher) render(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := d.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

type emailData struct {
	FullName     string
	Email        string
	Phone        string
	EventType    string
	Location     string
	Notes        string
	Start        string
	End          string
	Timezone     string
	BusinessName string
	ConfirmURL   template.URL
}

func newEmailData(b store.Booking, business string) emailData {
	return emailData{
		FullName:     b.FullName,
		Email:        b.Email,
		Phone:        store.StringValue(b.Phone),
		EventType:    b.EventType,
		Location:     store.StringValue(b.Location),
		Notes:        store.StringValue(b.Notes),
		Start:        b.StartISO,
		End:          b.EndISO,
		Timezone:     b.Timezone,
		BusinessName: business,
	}
}

// AttachmentName derives the invite filename from the business name,
// e.g. "Saadia Henna Art" becomes "saadia-henna-art-booking.ics".
func AttachmentName(business string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(business) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "booking.ics"
	}
	return slug + "-booking.ics"
}
