package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "game.test_marker", "🧪 TEST")
	message.SetString(lang, "game.assignment.body", "Your target: %s. Weapon: %s. Location: %s. Tell no one.")
	message.SetString(lang, "game.confirmation.body", "%s reports being eliminated. Confirm the kill if it happened.")
	message.SetString(lang, "game.kill.body", "%s has been eliminated. Weapon: %s. Location: %s.")
	message.SetString(lang, "game.finished.title", "The game is over. Winner: %s!")
	message.SetString(lang, "game.report.chronology_header", "Kill chronology:")
	message.SetString(lang, "game.report.kill_entry", "%d. %s eliminated %s (%s, %s)")
	message.SetString(lang, "game.report.path_header", "Path of %s:")
	message.SetString(lang, "game.report.path_step", "→ %s (%s, %s)")
}
