package funnel

import (
	"context"
	"sync"
	"time"

	"github.com/mthleonn/bot-auge/internal/metrics"
	"github.com/mthleonn/bot-auge/internal/repository"
	"github.com/mthleonn/bot-auge/internal/telegram"
	"go.uber.org/zap"
)

// Stage is one timed transition of the engagement funnel. A user at From
// becomes eligible once the reference time (joined_at for the first stage,
// last_funnel_message afterwards) is at least Threshold in the past.
type Stage struct {
	Name      string
	From      int
	To        int
	Threshold time.Duration
	Render    func(firstName string) string
}

// Engine advances users through the funnel. One Sweep walks every stage;
// sweeps never overlap. If the previous one is still running, the next
// trigger is skipped.
type Engine struct {
	users     repository.UserRepository
	sender    telegram.Sender
	stages    []Stage
	sendDelay time.Duration
	logger    *zap.Logger

	mu sync.Mutex
}

func NewEngine(users repository.UserRepository, sender telegram.Sender, duvidasLink string, sendDelay time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		users:     users,
		sender:    sender,
		sendDelay: sendDelay,
		logger:    logger,
		stages: []Stage{
			{
				Name:      "24h",
				From:      0,
				To:        1,
				Threshold: 24 * time.Hour,
				Render:    message24h,
			},
			{
				Name:      "48h",
				From:      1,
				To:        2,
				Threshold: 48 * time.Hour,
				Render: func(firstName string) string {
					return message48h(firstName, duvidasLink)
				},
			},
			{
				Name:      "72h",
				From:      2,
				To:        3,
				Threshold: 72 * time.Hour,
				Render:    message72h,
			},
		},
	}
}

// Stages exposes the transition table (used by diagnostics and tests).
func (e *Engine) Stages() []Stage {
	return e.stages
}

// Sweep runs one eligibility pass over all stages. Per-user delivery
// failures leave the user at their current step to be retried next sweep;
// storage faults skip the stage. Cancelling ctx stops the sweep between
// sends.
func (e *Engine) Sweep(ctx context.Context) {
	if !e.mu.TryLock() {
		e.logger.Warn("funnel sweep already running, skipping")
		return
	}
	defer e.mu.Unlock()

	e.logger.Info("funnel sweep started")
	for _, stage := range e.stages {
		if ctx.Err() != nil {
			e.logger.Info("funnel sweep cancelled")
			return
		}
		e.runStage(ctx, stage)
	}
	e.logger.Info("funnel sweep finished")
}

func (e *Engine) runStage(ctx context.Context, stage Stage) {
	users, err := e.users.EligibleForStep(ctx, stage.From, stage.Threshold)
	if err != nil {
		e.logger.Error("fetch eligible users",
			zap.String("stage", stage.Name),
			zap.Error(err))
		return
	}
	if len(users) == 0 {
		return
	}

	e.logger.Info("sending funnel messages",
		zap.String("stage", stage.Name),
		zap.Int("users", len(users)))

	for _, user := range users {
		if ctx.Err() != nil {
			return
		}

		text := stage.Render(user.DisplayName())
		if _, err := e.sender.SendMessage(ctx, user.UserID, text); err != nil {
			// Left at the current step; retried on the next sweep.
			e.logger.Error("send funnel message",
				zap.String("stage", stage.Name),
				zap.Int64("user_id", user.UserID),
				zap.Error(err))
			continue
		}

		if err := e.users.SetFunnelStep(ctx, user.UserID, stage.To); err != nil {
			e.logger.Error("advance funnel step",
				zap.String("stage", stage.Name),
				zap.Int64("user_id", user.UserID),
				zap.Error(err))
			continue
		}

		metrics.FunnelMessagesSent.WithLabelValues(stage.Name).Inc()
		e.logger.Info("funnel message sent",
			zap.String("stage", stage.Name),
			zap.Int64("user_id", user.UserID))

		if !sleepCtx(ctx, e.sendDelay) {
			return
		}
	}
}

// sleepCtx waits d or until ctx is cancelled; reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
