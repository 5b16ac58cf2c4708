package state

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/signalsfoundry/airport-simulator/internal/scheduler"
	"github.com/signalsfoundry/airport-simulator/model"
)

var printer = message.NewPrinter(language.English)

// formatCurrency renders whole dollars with thousands separators, e.g.
// "$12,500" and "-$3,000".
func formatCurrency(v int) string {
	if v < 0 {
		return printer.Sprintf("-$%d", -v)
	}
	return printer.Sprintf("$%d", v)
}

// addAlertLocked records an alert and arms its expiry. Expiry is not gated
// on the run state, so alerts clear even while paused.
func (s *Session) addAlertLocked(now time.Time, title, msg string, severity model.Severity) model.Alert {
	a := model.Alert{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   msg,
		Severity:  severity,
		CreatedAt: now,
	}
	s.alerts = append(s.alerts, a)
	s.queue.Schedule(now.Add(s.balance.AlertTTL), scheduler.KindAlertExpiry, s.generation, a.ID)
	return a
}

func (s *Session) expireAlertLocked(id string) {
	for i, a := range s.alerts {
		if a.ID == id {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			return
		}
	}
}
