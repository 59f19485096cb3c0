// Package render produces localized player-facing copy for game events.
package render

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/n1ck8131/tg-bot/internal/services/knives/domain"
)

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// NewLocalizer returns a message printer for the given locale, falling back
// to English when the locale does not parse.
func NewLocalizer(locale string) Localizer {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// Assignment renders one hunter's private contract briefing.
func Assignment(loc Localizer, event domain.AssignmentIssuedEvent) string {
	body := loc.Sprintf("game.assignment.body", event.TargetName, event.Weapon, event.Location)
	return withTestMarker(loc, event.Test, body)
}

// ConfirmationRequest renders the private prompt sent to a victim's killer.
func ConfirmationRequest(loc Localizer, event domain.ConfirmationRequestedEvent) string {
	body := loc.Sprintf("game.confirmation.body", event.VictimName)
	return withTestMarker(loc, event.Test, body)
}

// KillAnnouncement renders the group announcement for one confirmed kill.
// The killer stays hidden until the final report.
func KillAnnouncement(loc Localizer, event domain.KillConfirmedEvent) string {
	body := loc.Sprintf("game.kill.body", event.VictimName, event.Weapon, event.Location)
	return withTestMarker(loc, event.Test, body)
}

// FinalReport renders the finished-game summary: winner, kill chronology,
// and the winner's path through their contracts.
func FinalReport(loc Localizer, report domain.Report) string {
	var b strings.Builder
	b.WriteString(loc.Sprintf("game.finished.title", report.WinnerName))
	b.WriteString("\n\n")
	b.WriteString(loc.Sprintf("game.report.chronology_header"))
	for _, entry := range report.Chronology {
		b.WriteString("\n")
		b.WriteString(loc.Sprintf("game.report.kill_entry",
			entry.Seq, entry.KillerName, entry.VictimName, entry.Weapon, entry.Location))
	}
	b.WriteString("\n\n")
	b.WriteString(loc.Sprintf("game.report.path_header", report.WinnerName))
	for _, step := range report.WinnerPath {
		b.WriteString("\n")
		b.WriteString(loc.Sprintf("game.report.path_step", step.TargetName, step.Weapon, step.Location))
	}
	return withTestMarker(loc, report.Test, b.String())
}

func withTestMarker(loc Localizer, test bool, body string) string {
	if !test {
		return body
	}
	return loc.Sprintf("game.test_marker") + " " + body
}
