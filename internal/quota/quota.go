// Package quota alerts on a Slack channel when the GitHub Actions minutes
// used by one or more organisations approach the included quota.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultIncludedMinutes is the monthly Actions quota of the plan.
	DefaultIncludedMinutes = 50000
	// BaseThreshold is the percentage used that raises the first alert of
	// a month.
	BaseThreshold = 70
	// ThresholdStep is added to the threshold after every alert, so the
	// same usage is not reported twice.
	ThresholdStep = 10
)

// BillingSource reports the Actions minutes used by an organisation.
type BillingSource interface {
	ActionsMinutesUsed(ctx context.Context, org string) (float64, error)
}

// ThresholdStore persists the alert threshold between runs.
type ThresholdStore interface {
	QuotaThreshold(ctx context.Context) (threshold int, found bool, err error)
	SetQuotaThreshold(ctx context.Context, threshold int) error
}

// Notifier posts a message to a channel.
type Notifier interface {
	SendMessage(ctx context.Context, channel, text string) error
}

// Alerter compares the Actions minutes used with the stored threshold.
type Alerter struct {
	Billing    BillingSource
	Thresholds ThresholdStore
	Notifier   Notifier
	Channel    string
	Logger     *slog.Logger

	// IncludedMinutes defaults to DefaultIncludedMinutes.
	IncludedMinutes float64
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes one check of the quota.
type Result struct {
	MinutesUsed    float64
	PercentageUsed float64
	Threshold      int
	Alerted        bool
}

// Check sums the minutes used by orgs and posts an alert when the share of
// the quota used has reached the threshold. The threshold is then raised by
// ThresholdStep. On the first day of a month the threshold is reset to
// BaseThreshold before comparing.
func (a *Alerter) Check(ctx context.Context, orgs []string) (Result, error) {
	log := a.Logger
	if log == nil {
		log = slog.Default()
	}
	if len(orgs) == 0 {
		return Result{}, fmt.Errorf("no organisations to check")
	}

	var result Result
	for _, org := range orgs {
		used, err := a.Billing.ActionsMinutesUsed(ctx, org)
		if err != nil {
			return Result{}, err
		}
		result.MinutesUsed += used
	}
	result.PercentageUsed = PercentageUsed(result.MinutesUsed, a.includedMinutes())

	threshold, err := a.threshold(ctx, log)
	if err != nil {
		return Result{}, err
	}
	result.Threshold = threshold

	log.Info("Checked GitHub Actions quota",
		slog.Int("organisations", len(orgs)),
		slog.Float64("minutesUsed", result.MinutesUsed),
		slog.Float64("percentageUsed", result.PercentageUsed),
		slog.Int("threshold", threshold))

	if result.PercentageUsed < float64(threshold) {
		return result, nil
	}

	if err := a.Notifier.SendMessage(ctx, a.Channel, Message(result.PercentageUsed)); err != nil {
		return result, fmt.Errorf("failed to send quota alert: %w", err)
	}
	result.Alerted = true
	log.Info("Sent quota alert", slog.String("channel", a.Channel))

	if err := a.Thresholds.SetQuotaThreshold(ctx, threshold+ThresholdStep); err != nil {
		return result, err
	}
	return result, nil
}

func (a *Alerter) threshold(ctx context.Context, log *slog.Logger) (int, error) {
	if a.now().Day() == 1 {
		log.Info("First day of the month, resetting quota threshold", slog.Int("threshold", BaseThreshold))
		if err := a.Thresholds.SetQuotaThreshold(ctx, BaseThreshold); err != nil {
			return 0, err
		}
		return BaseThreshold, nil
	}

	threshold, found, err := a.Thresholds.QuotaThreshold(ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		return BaseThreshold, nil
	}
	return threshold, nil
}

func (a *Alerter) includedMinutes() float64 {
	if a.IncludedMinutes > 0 {
		return a.IncludedMinutes
	}
	return DefaultIncludedMinutes
}

func (a *Alerter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// PercentageUsed returns used as a percentage of included.
func PercentageUsed(used, included float64) float64 {
	return used / included * 100
}

// Message is the alert posted when the threshold is reached.
func Message(percentageUsed float64) string {
	return fmt.Sprintf("Warning:\n\n %.1f%% of the GitHub Actions minutes quota remains.", 100-percentageUsed)
}
