package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	startFmt = "Hello, %s! 🐱\n" +
		"I'm your cat feeding reminder bot. I'll help you keep the cat fed on time."

	timezoneFirstText = "First, let's set up your timezone so reminders arrive at the right local time."

	timezonePromptText = "Send me your timezone as a GMT offset, e.g. GMT+3 or GMT-05:30.\n" +
		"Send \"cancel\" to abort."
	timezoneInvalidText = "That doesn't look like a GMT offset. Try something like GMT+3 or GMT-05:30."
	timezoneSetFmt      = "Timezone set to %s.\nYour current time should be around %s."
	timezoneCancelledText  = "Timezone setup cancelled."
	timezoneSaveFailedText = "Could not save your timezone, please try again later."

	pickScheduleText         = "How often should I remind you to feed the cat?"
	cancelOption             = "Cancel"
	manualNotImplementedText = "Manual schedule setup is not implemented yet."
	scheduleSetFmt           = "Scheduled \"%s\" feedings per day (in your timezone %s):\n%s"
	scheduleFailedText       = "Could not update the schedule, please try again later."
	previewIntroText         = "Here's how the reminders will look:"
	stoppedText              = "All feeding reminders stopped. Use /setup to start again."

	statsFmt = "🐱 Feeding Statistics\n\n" +
		"Today: %d feedings\n" +
		"This week: %d feedings\n" +
		"Total recorded: %d feedings\n\n" +
		"📷 With photo: %d\n🎥 With video: %d"
	statsFailedText = "Could not load your statistics, please try again later."
	noHistoryText   = "No feedings recorded yet. Use /fed after feeding the cat!"

	partnerPromptText    = "Send me your partner's numeric Telegram user id."
	partnerInvalidText   = "That doesn't look like a numeric user id."
	partnerAddedFmt      = "Partner %d added! They'll be kept in the loop."
	partnerCancelledText = "Partner setup cancelled."
	partnerFailedText    = "Could not add the partner, please try again later."

	notAuthorizedText = "This command is for the bot admin only."

	casualChatText = "I'm a simple cat feeding bot, I don't do small talk. 🐾\n" +
		"Try /help to see what I can do."
)

// choiceKeyboard builds a one-time reply keyboard with one option per row.
func choiceKeyboard(options []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(options))
	for _, opt := range options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(opt)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}
