// Package booking runs the booking lifecycle: intake of a request, and its
// one-time confirmation by the owner through an emailed token link.
package booking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saadiahenna/hennabook/internal/ical"
	"github.com/saadiahenna/hennabook/internal/logging"
	"github.com/saadiahenna/hennabook/internal/metrics"
	"github.com/saadiahenna/hennabook/internal/store"
)

const (
	maxTokenAttempts = 3
	confirmPath      = "/api/bookings/confirm"
	confirmedPage    = "/book/confirmed"
)

// Notifier sends the emails that accompany each lifecycle step.
type Notifier interface {
	BookingRequested(ctx context.Context, b store.Booking, confirmURL string) error
	BookingConfirmed(ctx context.Context, b store.Booking, invite string) error
}

// Config holds the site settings the service needs to build links and invites.
type Config struct {
	BaseURL         string
	DefaultTimezone string
	BusinessName    string
}

// Service runs booking intake and confirmation against a repository and a notifier.
type Service struct {
	repo     store.BookingRepository
	notifier Notifier
	cfg      Config
	log      logrus.FieldLogger

	now      func() time.Time
	newToken func() (string, error)
}

// NewService returns a Service. A nil log falls back to the standard logger.
func NewService(repo store.BookingRepository, notifier Notifier, cfg Config, log logrus.FieldLogger) *Service {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		newToken: NewToken,
	}
}

// Confirmation is the result of a successful Confirm.
type Confirmation struct {
	BookingID        string
	AlreadyConfirmed bool
}

// RedirectPath is the page that shows the confirmed booking.
func (c Confirmation) RedirectPath() string {
	return confirmedPage + "?id=" + url.QueryEscape(c.BookingID)
}

// ConfirmURL is the link emailed to the owner for token.
func (s *Service) ConfirmURL(token string) string {
	return s.cfg.BaseURL + confirmPath + "?token=" + url.QueryEscape(token)
}

// Submit validates req, stores a REQUESTED booking and emails the owner a
// confirmation link. A booking that was stored stays stored when the email
// fails; the failure is still returned.
func (s *Service) Submit(ctx context.Context, req Request) (string, error) {
	in, verr := Validate(req, s.cfg.DefaultTimezone)
	if verr != nil {
		metrics.BookingSubmitted("invalid")
		return "", &Error{Kind: KindValidation, Field: verr.Field, Message: verr.Message}
	}

	created, token, err := s.create(ctx, in)
	if err != nil {
		metrics.BookingSubmitted("error")
		s.logger(ctx).WithError(err).Error("store booking")
		return "", internalError(err)
	}
	log := s.logger(ctx).WithField("booking_id", created.ID)

	if err := s.notifier.BookingRequested(ctx, *created, s.ConfirmURL(token)); err != nil {
		metrics.BookingSubmitted("notify_failed")
		log.WithError(err).Error("booking stored but owner was not notified")
		return "", internalError(err)
	}

	metrics.BookingSubmitted("ok")
	log.Info("booking requested")
	return created.ID, nil
}

func (s *Service) create(ctx context.Context, in Input) (*store.Booking, string, error) {
	for attempt := 1; ; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, "", err
		}
		created, err := s.repo.Create(ctx, store.NewBooking{
			ConfirmToken: token,
			FullName:     in.FullName,
			Email:        in.Email,
			Phone:        in.Phone,
			EventType:    in.EventType,
			Location:     in.Location,
			Notes:        in.Notes,
			StartISO:     in.StartISO,
			EndISO:       in.EndISO,
			Timezone:     in.Timezone,
		})
		if err == nil {
			return created, token, nil
		}
		if !errors.Is(err, store.ErrTokenConflict) || attempt == maxTokenAttempts {
			return nil, "", fmt.Errorf("create booking (attempt %d): %w", attempt, err)
		}
		s.logger(ctx).WithField("attempt", attempt).Warn("confirm token collision, regenerating")
	}
}

// Confirm moves the booking holding token from REQUESTED to CONFIRMED and
// emails both parties an invite. Repeated or concurrent calls for the same
// token succeed without sending anything more.
func (s *Service) Confirm(ctx context.Context, token string) (Confirmation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		metrics.BookingConfirmed("invalid")
		return Confirmation{}, &Error{Kind: KindValidation, Field: FieldToken, Message: "Missing token"}
	}

	b, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.BookingConfirmed("not_found")
			return Confirmation{}, &Error{Kind: KindNotFound, Field: FieldToken, Message: "Invalid token"}
		}
		metrics.BookingConfirmed("error")
		s.logger(ctx).WithError(err).Error("look up confirm token")
		return Confirmation{}, internalError(err)
	}
	log := s.logger(ctx).WithField("booking_id", b.ID)

	if b.Status == store.StatusConfirmed {
		metrics.BookingConfirmed("already_confirmed")
		return Confirmation{BookingID: b.ID, AlreadyConfirmed: true}, nil
	}

	res, err := s.repo.UpdateStatusIfMatch(ctx, b.ID, store.StatusRequested, store.StatusConfirmed, s.now().UTC())
	if err != nil {
		metrics.BookingConfirmed("error")
		log.WithError(err).Error("confirm booking")
		return Confirmation{}, internalError(err)
	}
	switch res.Outcome {
	case store.NotFound:
		metrics.BookingConfirmed("not_found")
		return Confirmation{}, &Error{Kind: KindNotFound, Field: FieldToken, Message: "Invalid token"}
	case store.AlreadyInTargetState:
		metrics.BookingConfirmed("already_confirmed")
		log.Info("booking confirmed concurrently, skipping notifications")
		return Confirmation{BookingID: b.ID, AlreadyConfirmed: true}, nil
	}

	confirmed := *res.Booking
	invite, err := s.invite(confirmed)
	if err != nil {
		metrics.BookingConfirmed("error")
		log.WithError(err).Error("build invite")
		return Confirmation{}, internalError(err)
	}
	if err := s.notifier.BookingConfirmed(ctx, confirmed, invite); err != nil {
		metrics.BookingConfirmed("notify_failed")
		log.WithError(err).Error("booking confirmed but notifications failed")
		return Confirmation{}, internalError(err)
	}

	metrics.BookingConfirmed("ok")
	log.Info("booking confirmed")
	return Confirmation{BookingID: confirmed.ID}, nil
}

func (s *Service) invite(b store.Booking) (string, error) {
	start, end, ok := ParseTimes(b.StartISO, b.EndISO, b.Timezone, s.cfg.DefaultTimezone)
	if !ok {
		return "", fmt.Errorf("booking %s has unreadable times %q/%q", b.ID, b.StartISO, b.EndISO)
	}
	location := store.StringValue(b.Location)
	if location == "" {
		location = "TBD"
	}
	return ical.MakeInviteAt(ical.Invite{
		ProductID:   "-//" + s.cfg.BusinessName + "//Booking//EN",
		UID:         b.ID,
		Title:       "Henna Appointment - " + s.cfg.BusinessName,
		Description: fmt.Sprintf("Booking confirmed for %s (%s).", b.FullName, b.EventType),
		Location:    location,
		Start:       start,
		End:         end,
	}, s.now()), nil
}

func (s *Service) logger(ctx context.Context) logrus.FieldLogger {
	return logging.FromContextOr(ctx, s.log)
}
