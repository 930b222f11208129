package applications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/account-onboarding/pkg/eventbus"
	"github.com/richxcame/account-onboarding/pkg/logger"
)

const eventSource = "onboarding-service"

// Publisher is the part of eventbus.Bus the publisher needs
type Publisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}

// BusPublisher sends lifecycle events to the event bus
type BusPublisher struct {
	bus Publisher
}

// NewBusPublisher creates a publisher on bus
func NewBusPublisher(bus Publisher) *BusPublisher {
	return &BusPublisher{bus: bus}
}

// ApplicationSubmitted publishes applications.submitted
func (p *BusPublisher) ApplicationSubmitted(ctx context.Context, app *Application) {
	submittedAt := app.UpdatedAt
	if app.SubmittedAt != nil {
		submittedAt = *app.SubmittedAt
	}
	p.publish(ctx, eventbus.SubjectApplicationSubmitted, "application.submitted", eventbus.ApplicationSubmittedData{
		ApplicationID: app.ID,
		AccountType:   string(app.AccountType),
		SubmittedAt:   submittedAt,
	})
}

// ApplicationDecided publishes applications.decided
func (p *BusPublisher) ApplicationDecided(ctx context.Context, app *Application) {
	decidedAt := time.Now().UTC()
	if app.DecidedAt != nil {
		decidedAt = *app.DecidedAt
	}
	p.publish(ctx, eventbus.SubjectApplicationDecided, "application.decided", eventbus.ApplicationDecidedData{
		ApplicationID:  app.ID,
		AccountType:    string(app.AccountType),
		Status:         string(app.Status),
		RiskLevel:      string(app.RiskLevel),
		FraudScore:     app.FraudScore,
		TriggeredRules: app.TriggeredRules,
		Rationale:      app.Rationale,
		RuleSetVersion: app.RuleSetVersion,
		DecidedAt:      decidedAt,
	})
}

func (p *BusPublisher) publish(ctx context.Context, subject, eventType string, data interface{}) {
	event, err := eventbus.NewEvent(eventType, eventSource, data)
	if err == nil {
		err = p.bus.Publish(ctx, subject, event)
	}
	if err != nil {
		logger.WithContext(ctx).Warn("failed to publish event",
			zap.String("subject", subject), zap.Error(err))
	}
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) ApplicationSubmitted(context.Context, *Application) {}

func (NopPublisher) ApplicationDecided(context.Context, *Application) {}
