package state

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/airport-simulator/core"
	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/notify"
	"github.com/signalsfoundry/airport-simulator/model"
)

// Game-over causes.
const (
	CauseBankruptcy = "bankruptcy"
	CauseReputation = "reputation"
)

// Outcome describes how a session ended.
type Outcome struct {
	Cause   string    `json:"cause"`
	Reason  string    `json:"reason"`
	Score   int       `json:"score"`
	Rating  int       `json:"rating"`
	EndedAt time.Time `json:"endedAt"`
}

// latch is a two-threshold warning flag: it fires once when the arm
// condition first holds and stays quiet until the release condition resets
// it.
type latch struct {
	armed bool
}

// update reports true only on the transition into the armed state.
func (l *latch) update(arm, release bool) bool {
	switch {
	case arm && !l.armed:
		l.armed = true
		return true
	case !arm && release:
		l.armed = false
	}
	return false
}

// evaluateLocked raises threshold warnings and ends the session when cash
// or reputation crosses the game-over floor.
func (s *Session) evaluateLocked(ctx context.Context, now time.Time) {
	b := s.balance

	cashLatch := latch{armed: s.cashWarning}
	if cashLatch.update(s.cash < b.WarningCash && s.cash > b.GameOverCash, s.cash > b.WarningCashRelease) {
		s.addAlertLocked(now, "LOW FUNDS WARNING!",
			fmt.Sprintf("Cash: %s - You need to complete flights soon or face bankruptcy!", formatCurrency(s.cash)),
			model.SeverityDanger)
		s.emitLocked(now, notify.WarningRaised, "cash", "low funds", s.cash)
	}
	s.cashWarning = cashLatch.armed

	repLatch := latch{armed: s.reputationWarning}
	if repLatch.update(s.reputation <= b.WarningReputation && s.reputation > b.GameOverReputation, s.reputation > b.WarningReputationRelease) {
		s.addAlertLocked(now, "REPUTATION CRITICAL!",
			fmt.Sprintf("Reputation: %d - Improve satisfaction or your airport will close!", s.reputation),
			model.SeverityDanger)
		s.emitLocked(now, notify.WarningRaised, "reputation", "reputation critical", s.reputation)
	}
	s.reputationWarning = repLatch.armed

	switch {
	case s.cash < b.GameOverCash:
		s.endLocked(ctx, now, CauseBankruptcy,
			fmt.Sprintf("BANKRUPTCY! Your cash dropped to %s. You couldn't cover operational costs.", formatCurrency(s.cash)))
	case s.reputation <= b.GameOverReputation:
		s.endLocked(ctx, now, CauseReputation,
			"REPUTATION DESTROYED! Your airport lost all credibility with passengers and airlines.")
	}
}

// endLocked is the terminal transition: timers of this generation are
// cancelled and the final score is fixed.
func (s *Session) endLocked(ctx context.Context, now time.Time, cause, reason string) {
	if s.runState == Ended {
		return
	}
	s.runState = Ended
	cancelled := s.queue.CancelGeneration(s.generation)

	s.outcome = &Outcome{
		Cause:   cause,
		Reason:  reason,
		Score:   core.Score(s.cash, s.reputation, s.flightsCompleted, s.day),
		Rating:  core.Rating(s.flightsCompleted),
		EndedAt: now,
	}
	s.emitLocked(now, notify.GameOver, cause, reason, s.outcome.Score)
	s.outbox[len(s.outbox)-1].Rating = s.outcome.Rating
	if s.metrics != nil {
		s.metrics.IncGameOver(cause)
	}
	logging.FromContext(ctx, s.log).Info(ctx, "session ended",
		logging.String("cause", cause),
		logging.Int("score", s.outcome.Score),
		logging.Int("day", s.day),
		logging.Int("flights_completed", s.flightsCompleted),
		logging.Int("timers_cancelled", cancelled),
	)
}
