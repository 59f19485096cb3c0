package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Russian

	message.SetString(lang, "game.test_marker", "🧪 ТЕСТ")
	message.SetString(lang, "game.assignment.body", "Твоя цель: %s. Оружие: %s. Место: %s. Никому не говори.")
	message.SetString(lang, "game.confirmation.body", "%s сообщает о своей гибели. Подтверди убийство, если это так.")
	message.SetString(lang, "game.kill.body", "%s выбывает из игры. Оружие: %s. Место: %s.")
	message.SetString(lang, "game.finished.title", "Игра окончена. Победитель: %s!")
	message.SetString(lang, "game.report.chronology_header", "Хронология убийств:")
	message.SetString(lang, "game.report.kill_entry", "%d. %s устранил(а) %s (%s, %s)")
	message.SetString(lang, "game.report.path_header", "Путь игрока %s:")
	message.SetString(lang, "game.report.path_step", "→ %s (%s, %s)")
}
