package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/navikt/github-team-auditor/internal/config"
	"github.com/navikt/github-team-auditor/internal/policy"
)

// Coordinator audits every configured team, one after the other.
type Coordinator struct {
	Source   SourceControlService
	Notifier NotificationService
	Logger   *slog.Logger
	// DryRun turns every policy into a report-only policy and logs messages
	// instead of sending them.
	DryRun bool
}

// Run audits the teams in configuration order. A failure for one team is
// recorded in its outcome and never stops the run.
func (c *Coordinator) Run(ctx context.Context, teams []config.TeamEntry, window policy.InactivityWindow) []AuditOutcome {
	log := c.Logger
	if log == nil {
		log = slog.Default()
	}

	classifier := &Classifier{Source: c.Source}
	remediator := &Remediator{Source: c.Source, Window: window}

	outcomes := make([]AuditOutcome, 0, len(teams))
	for _, built := range policy.BuildAll(teams) {
		log.Info("Checking for inactive users in team", slog.String("team", built.Team))

		var outcome AuditOutcome
		if built.Err != nil {
			log.Error("Invalid team configuration", slog.String("team", built.Team), slog.Any("error", built.Err))
			outcome = AuditOutcome{Team: built.Team, Err: built.Err}
		} else {
			p := built.Policy
			if c.DryRun {
				p = p.WithoutRemoval()
			}
			outcome = c.audit(ctx, log, classifier, remediator, p, window)
		}

		logSummary(log, outcome)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// logSummary writes one line per team with the counts of the audit.
func logSummary(log *slog.Logger, o AuditOutcome) {
	failed := 0
	var removalErr *RemovalError
	if errors.As(o.RemovalErr, &removalErr) {
		failed = len(removalErr.Failed)
	}
	attrs := []any{
		slog.String("team", o.Team),
		slog.Int("removed", len(o.Removed)),
		slog.Int("flagged", len(o.Flagged)),
		slog.Int("failed", failed),
		slog.Bool("notified", o.Dispatched),
	}
	if o.HasErrors() {
		attrs = append(attrs, slog.Any("error", errors.Join(o.Err, o.RemovalErr, o.NotificationErr)))
		log.Warn("Audited team with errors", attrs...)
		return
	}
	log.Info("Audited team", attrs...)
}

func (c *Coordinator) audit(ctx context.Context, log *slog.Logger, classifier *Classifier, remediator *Remediator,
	p policy.TeamPolicy, window policy.InactivityWindow) AuditOutcome {
	inactive, err := classifier.Classify(ctx, p, window)
	if err != nil {
		log.Error("Failed to find inactive users", slog.String("team", p.Name()), slog.Any("error", err))
		return AuditOutcome{Team: p.Name(), Err: err}
	}

	outcome := remediator.Remediate(ctx, p, inactive)
	if outcome.Err != nil {
		log.Error("Failed to remediate team", slog.String("team", p.Name()), slog.Any("error", outcome.Err))
		return outcome
	}

	var removalErr *RemovalError
	if errors.As(outcome.RemovalErr, &removalErr) {
		log.Error("Failed to remove some inactive users from team",
			slog.String("team", p.Name()),
			slog.Bool("partial", removalErr.Partial()),
			slog.Any("users", removalErr.Users()),
			slog.Any("error", outcome.RemovalErr))
	}

	if outcome.Message == "" {
		return outcome
	}
	if outcome.Channel == "" {
		log.Info("Team has no notification channel, not sending message", slog.String("team", p.Name()))
		return outcome
	}
	if c.DryRun {
		log.Info("Dry run, not sending message",
			slog.String("team", p.Name()),
			slog.String("channel", outcome.Channel),
			slog.String("message", outcome.Message))
		return outcome
	}
	if c.Notifier == nil {
		log.Warn("No notifier configured, not sending message", slog.String("team", p.Name()))
		return outcome
	}

	if err := c.Notifier.SendMessage(ctx, outcome.Channel, outcome.Message); err != nil {
		// Removals already performed stand; only the notification is lost.
		outcome.NotificationErr = &NotificationError{Team: p.Name(), Channel: outcome.Channel, Err: err}
		log.Error("Failed to send message to channel",
			slog.String("team", p.Name()),
			slog.String("channel", outcome.Channel),
			slog.Any("error", err))
		return outcome
	}
	outcome.Dispatched = true
	log.Info("Sent message to channel", slog.String("team", p.Name()), slog.String("channel", outcome.Channel))
	return outcome
}

// HasErrors reports whether any outcome of a run carries an error.
func HasErrors(outcomes []AuditOutcome) bool {
	for _, o := range outcomes {
		if o.HasErrors() {
			return true
		}
	}
	return false
}
