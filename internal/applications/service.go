package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/richxcame/account-onboarding/internal/facts"
	"github.com/richxcame/account-onboarding/internal/fieldcheck"
	"github.com/richxcame/account-onboarding/internal/integrations"
	"github.com/richxcame/account-onboarding/internal/risk"
	"github.com/richxcame/account-onboarding/internal/rules"
	"github.com/richxcame/account-onboarding/pkg/logger"
	"github.com/richxcame/account-onboarding/pkg/tracing"
	"github.com/richxcame/account-onboarding/pkg/validation"
)

// Service is the workflow controller. It owns every state transition of an
// application from draft to its disposition.
type Service struct {
	repo         RepositoryInterface
	rules        RuleSource
	integrations IntegrationRunner
	locker       Locker
	events       EventPublisher
	catalog      Catalog
	config       ServiceConfig
	now          func() time.Time
}

// ServiceConfig holds workflow options
type ServiceConfig struct {
	// StrictRuleVersion fails a pass whose rule snapshot went stale before rules_post.
	StrictRuleVersion bool
}

// NewService creates a workflow controller. A nil locker, publisher or catalog
// falls back to the in-process locker, no events and DefaultCatalog.
func NewService(
	repo RepositoryInterface,
	ruleSource RuleSource,
	runner IntegrationRunner,
	locker Locker,
	events EventPublisher,
	catalog Catalog,
	config ServiceConfig,
) *Service {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if events == nil {
		events = NopPublisher{}
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Service{
		repo:         repo,
		rules:        ruleSource,
		integrations: runner,
		locker:       locker,
		events:       events,
		catalog:      catalog,
		config:       config,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ========================================
// DRAFTS AND SUBMISSION
// ========================================

// Create opens a draft application
func (s *Service) Create(ctx context.Context, req *CreateApplicationRequest) (*Application, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, ok := s.catalog.For(req.AccountType); !ok {
		verr := &ValidationError{}
		verr.AddError("account_type", fmt.Sprintf("no workflow for account type %s", req.AccountType))
		return nil, verr
	}

	now := s.now()
	app := &Application{
		ID:             uuid.NewString(),
		AccountType:    req.AccountType,
		Applicant:      req.Applicant,
		Status:         StatusDraft,
		Stage:          StageDraft,
		FraudFlags:     []fieldcheck.Flag{},
		TriggeredRules: []string{},
		Outcomes:       []integrations.Outcome{},
		Rationale:      []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	logger.WithContext(ctx).Info("application created",
		zap.String("application_id", app.ID),
		zap.String("account_type", string(app.AccountType)),
	)
	return app, nil
}

// Submit moves a draft to submitted once every field its workflow requires is
// present. Submitting an application that already left draft returns it unchanged.
func (s *Service) Submit(ctx context.Context, id string) (*Application, error) {
	ctx = logger.ContextWithApplicationID(ctx, id)

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusDraft {
		return app, nil
	}

	wf, ok := s.catalog.For(app.AccountType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccountType, app.AccountType)
	}
	if err := s.checkRequired(app, wf); err != nil {
		return nil, err
	}

	now := s.now()
	app.Status = StatusSubmitted
	app.Stage = StageSubmitted
	app.SubmittedAt = &now
	app.UpdatedAt = now
	if err := s.repo.Save(ctx, app); err != nil {
		return nil, fmt.Errorf("save submitted application: %w", err)
	}

	logger.WithContext(ctx).Info("application submitted")
	s.events.ApplicationSubmitted(ctx, app)
	return app, nil
}

func (s *Service) checkRequired(app *Application, wf Workflow) error {
	verr := &ValidationError{}
	if err := validation.ValidateStruct(app.Applicant); err != nil {
		var fieldErrs *ValidationError
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for field, msg := range fieldErrs.Errors {
			verr.AddError(field, msg)
		}
	}
	for _, field := range wf.RequiredFields {
		if strings.TrimSpace(app.Applicant.fieldValue(field)) == "" {
			verr.AddError(field, fmt.Sprintf("%s is required", field))
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ========================================
// PROCESSING
// ========================================

// Process drives a submitted application through every automated stage it
// has not completed yet and returns its current state. Each stage is
// checkpointed, so a pass interrupted after integrations never calls them
// again. Applications in draft or already decided are returned unchanged.
func (s *Service) Process(ctx context.Context, id string) (*Application, error) {
	ctx = logger.ContextWithApplicationID(ctx, id)
	ctx, span := tracing.StartSpan(ctx, "workflow.process", attribute.String("application.id", id))
	defer span.End()

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusSubmitted {
		return app, nil
	}

	wf, ok := s.catalog.For(app.AccountType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccountType, app.AccountType)
	}

	// Both rule passes in this call read the same snapshot.
	snap := s.rules.Snapshot()
	log := logger.WithContext(ctx)

	for app.Status == StatusSubmitted {
		from := app.Stage
		start := time.Now()

		var stageErr error
		switch app.Stage {
		case StageSubmitted:
			s.score(app)
		case StageScoring:
			s.evaluatePre(ctx, app, wf, snap)
		case StageRulesPre:
			stageErr = s.runIntegrations(ctx, app, wf)
		case StageIntegrations:
			if s.config.StrictRuleVersion && snap.Version() != s.rules.Version() {
				log.Warn("rule set changed during pass",
					zap.Int64("pinned_version", snap.Version()),
					zap.Int64("active_version", s.rules.Version()),
				)
				span.SetStatus(codes.Error, ErrStaleRuleSet.Error())
				return app, ErrStaleRuleSet
			}
			s.evaluatePost(ctx, app, wf, snap)
		default:
			return nil, fmt.Errorf("application %s at unexpected stage %q", app.ID, app.Stage)
		}
		stageDuration.WithLabelValues(string(app.Stage)).Observe(time.Since(start).Seconds())

		var cfgErr *integrations.ConfigurationError
		if stageErr != nil && !errors.As(stageErr, &cfgErr) {
			span.SetStatus(codes.Error, stageErr.Error())
			return nil, stageErr
		}

		app.UpdatedAt = s.now()
		if err := s.repo.Save(ctx, app); err != nil {
			return nil, fmt.Errorf("checkpoint stage %s: %w", app.Stage, err)
		}
		log.Info("workflow stage completed",
			zap.String("from", string(from)),
			zap.String("stage", string(app.Stage)),
			zap.String("status", string(app.Status)),
		)

		if stageErr != nil {
			s.decided(ctx, app)
			span.SetStatus(codes.Error, stageErr.Error())
			return app, stageErr
		}
	}

	s.decided(ctx, app)
	span.SetAttributes(
		attribute.String("application.status", string(app.Status)),
		attribute.String("application.risk_level", string(app.RiskLevel)),
	)
	return app, nil
}

func (s *Service) lock(ctx context.Context, id string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, id)
	if errors.Is(err, ErrConcurrencyConflict) {
		conflictsTotal.Inc()
	}
	return unlock, err
}

// score runs the field checks and the risk scorer
func (s *Service) score(app *Application) {
	now := s.now()
	results := fieldcheck.CheckAll(app.Applicant.checkInput(), now)
	app.FieldResults = results
	s.applyAssessment(app, risk.Score(results), now)
	app.Stage = StageScoring
}

func (s *Service) applyAssessment(app *Application, a risk.Assessment, now time.Time) {
	app.FraudScore = a.FraudScore
	app.Confidence = a.Confidence
	app.FraudFlags = a.Flags
	app.RiskScore = risk.CompositeScore(a, app.Applicant.profile(now))
	app.RiskLevel = risk.LevelForScore(a.FraudScore)
}

// evaluatePre runs the rules over application and score data only. A blocking
// action ends the workflow here.
func (s *Service) evaluatePre(ctx context.Context, app *Application, wf Workflow, snap *rules.Snapshot) {
	ev := rules.Evaluate(ctx, baseFacts(app, s.now()), snap, wf.TerminalSet())
	s.applyEvaluation(app, ev)
	app.Stage = StageRulesPre

	if ev.Blocking {
		rationale := ruleRationale(ev)
		rationale = append(rationale, "blocking action triggered before integrations")
		s.decide(app, blockedStatus(ev, wf), rationale)
	}
}

// runIntegrations calls every integration the workflow declares. A workflow
// naming an unregistered integration is sent to review.
func (s *Service) runIntegrations(ctx context.Context, app *Application, wf Workflow) error {
	outcomes, err := s.integrations.Run(ctx, subjectFor(app), wf.Integrations)

	var cfgErr *integrations.ConfigurationError
	if errors.As(err, &cfgErr) {
		app.Stage = StageIntegrations
		s.decide(app, StatusInReview, []string{"integration configuration error: " + cfgErr.Error()})
		return err
	}
	if err != nil {
		return fmt.Errorf("run integrations: %w", err)
	}

	app.Outcomes = outcomes
	app.Stage = StageIntegrations
	return nil
}

// evaluatePost re-runs the rules with integration results folded in and
// renders the decision.
func (s *Service) evaluatePost(ctx context.Context, app *Application, wf Workflow, snap *rules.Snapshot) {
	now := s.now()
	derived := integrations.Derive(app.Outcomes)
	if hit, ok := derived.Get(facts.VarFraudDBHit); ok && hit.Truth() {
		s.applyAssessment(app, risk.Score(app.FieldResults, risk.SignalFraudDatabaseHit), now)
	}

	ev := rules.Evaluate(ctx, baseFacts(app, now).Merge(derived), snap, wf.TerminalSet())
	s.applyEvaluation(app, ev)
	app.Stage = StageRulesPost

	rationale := ruleRationale(ev)
	var unsettled []string
	for _, o := range app.Outcomes {
		if o.OK() {
			continue
		}
		unsettled = append(unsettled, o.IntegrationID)
		msg := fmt.Sprintf("integration %s: %s", o.IntegrationID, o.Status)
		if o.Error != "" {
			msg += " (" + o.Error + ")"
		}
		rationale = append(rationale, msg)
	}

	var status Status
	switch {
	case ev.Blocking:
		status = blockedStatus(ev, wf)
	case len(unsettled) > 0:
		status = StatusInReview
		rationale = append(rationale, "verification incomplete: "+strings.Join(unsettled, ", "))
	case app.RiskLevel.AtMost(wf.AutoApproveThreshold):
		status = StatusApproved
		rationale = append(rationale, fmt.Sprintf("risk level %s within auto-approve threshold %s", app.RiskLevel, wf.AutoApproveThreshold))
	default:
		status = StatusInReview
		rationale = append(rationale, fmt.Sprintf("risk level %s exceeds auto-approve threshold %s", app.RiskLevel, wf.AutoApproveThreshold))
	}
	s.decide(app, status, rationale)
}

func (s *Service) applyEvaluation(app *Application, ev rules.Evaluation) {
	app.RuleSetVersion = ev.Version
	app.TriggeredRules = ev.RuleIDs()
	app.RiskLevel = risk.Max(risk.LevelForScore(app.FraudScore), ev.RiskLevel)
}

func (s *Service) decide(app *Application, status Status, rationale []string) {
	now := s.now()
	app.Status = status
	app.Rationale = rationale
	app.DecidedAt = &now
}

func (s *Service) decided(ctx context.Context, app *Application) {
	decisionsTotal.WithLabelValues(string(app.AccountType), string(app.Status)).Inc()
	logger.WithContext(ctx).Info("application decided",
		zap.String("status", string(app.Status)),
		zap.String("risk_level", string(app.RiskLevel)),
		zap.Float64("fraud_score", app.FraudScore),
		zap.Strings("triggered_rules", app.TriggeredRules),
	)
	s.events.ApplicationDecided(ctx, app)
}

// blockedStatus picks the harshest disposition among triggered terminal actions
func blockedStatus(ev rules.Evaluation, wf Workflow) Status {
	status := StatusInReview
	for _, t := range ev.Triggered {
		if wf.TerminalActions[t.Action] == StatusRejected {
			status = StatusRejected
		}
	}
	return status
}

func ruleRationale(ev rules.Evaluation) []string {
	out := make([]string, 0, len(ev.Triggered)+1)
	for _, t := range ev.Triggered {
		out = append(out, t.Rationale())
	}
	return out
}

// ========================================
// QUERIES
// ========================================

// Get returns an application
func (s *Service) Get(ctx context.Context, id string) (*Application, error) {
	return s.repo.Get(ctx, id)
}

// GetStatus returns the stage, status, risk level and rationale
func (s *Service) GetStatus(ctx context.Context, id string) (*StatusView, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusView{
		ID:        app.ID,
		Stage:     app.Stage,
		Status:    app.Status,
		RiskLevel: app.RiskLevel,
		Rationale: app.Rationale,
	}, nil
}

// List returns applications newest first
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Application, error) {
	return s.repo.List(ctx, filter)
}

// Validate runs the field checks and scorer without changing the application
func (s *Service) Validate(ctx context.Context, id string) (*ValidationReport, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	results := fieldcheck.CheckAll(app.Applicant.checkInput(), s.now())
	a := risk.Score(results)
	return &ValidationReport{
		ApplicationID: app.ID,
		Results:       results,
		FraudScore:    a.FraudScore,
		Confidence:    a.Confidence,
		Flags:         a.Flags,
		RiskLevel:     risk.LevelForScore(a.FraudScore),
	}, nil
}

// Workflows returns the workflow catalog
func (s *Service) Workflows() []Workflow {
	return s.catalog.List()
}
