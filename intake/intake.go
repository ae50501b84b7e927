// Package intake turns a form submission into a stored lead and forwards it to
// the automation webhook without waiting for the result.
package intake

import (
	"context"
	"strings"

	tekio "github.com/tekio-be/leads"
	"github.com/tekio-be/leads/metrics"
	"github.com/tekio-be/leads/notify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Store is the part of the lead store intake writes to.
type Store interface {
	Create(ctx context.Context, newLead tekio.NewLead) (tekio.Lead, error)
}

// Dispatcher forwards a payload in the background.
type Dispatcher interface {
	Go(payload notify.Payload)
}

// Invalidator drops cached lead lists.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	store      Store
	dispatcher Dispatcher
	cache      Invalidator
	log        *zap.SugaredLogger
}

func NewService(store Store, dispatcher Dispatcher, cache Invalidator, log *zap.SugaredLogger) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		cache:      cache,
		log:        log,
	}
}

// CreateLead validates and stores a lead, then hands it to the dispatcher.
// Only store failures are returned; the dispatch outcome never is.
func (s *Service) CreateLead(ctx context.Context, newLead tekio.NewLead) (tekio.Lead, error) {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "intake.CreateLead")
	defer span.End()

	newLead = Normalize(newLead)
	if err := tekio.Validate(newLead); err != nil {
		return tekio.Lead{}, err
	}

	lead, err := s.store.Create(ctx, newLead)
	if err != nil {
		span.RecordError(err)
		return tekio.Lead{}, err
	}

	leadType := Classify(newLead.Source)
	span.SetAttributes(
		attribute.String("lead.id", lead.ID),
		attribute.String("lead.type", string(leadType)),
	)
	metrics.RecordLeadCreated(string(leadType))

	s.dispatcher.Go(payloadFor(leadType, newLead))

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warnw("CreateLead", "status", "cache invalidation failed", "error", err.Error())
	}

	return lead, nil
}

// Classify derives the lead type from a free-form source tag. The checks are
// ordered: audit wins over expert, anything else is a contact.
func Classify(source string) notify.LeadType {
	switch {
	case strings.Contains(source, "audit"):
		return notify.TypeAudit
	case strings.Contains(source, "expert"):
		return notify.TypeExpert
	default:
		return notify.TypeContact
	}
}

// Normalize trims every field and turns empty optional fields into nil.
func Normalize(newLead tekio.NewLead) tekio.NewLead {
	newLead.Email = strings.TrimSpace(newLead.Email)
	newLead.Source = strings.TrimSpace(newLead.Source)
	newLead.Language = tekio.Language(strings.ToUpper(strings.TrimSpace(string(newLead.Language))))

	newLead.CompanyName = optional(newLead.CompanyName)
	newLead.ContactName = optional(newLead.ContactName)
	newLead.NbUsersEstimate = optional(newLead.NbUsersEstimate)
	newLead.Message = optional(newLead.Message)

	newLead.Phone = optional(newLead.Phone)
	if newLead.Phone != nil {
		phone := NormalizePhone(*newLead.Phone)
		newLead.Phone = &phone
	}

	return newLead
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func payloadFor(leadType notify.LeadType, newLead tekio.NewLead) notify.Payload {
	email := newLead.Email
	language := string(newLead.Language)

	return notify.Payload{
		Type:            leadType,
		Source:          newLead.Source,
		Name:            newLead.ContactName,
		Email:           &email,
		Phone:           newLead.Phone,
		Company:         newLead.CompanyName,
		Message:         newLead.Message,
		NbUsersEstimate: newLead.NbUsersEstimate,
		Language:        &language,
	}
}
