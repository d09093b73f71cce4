package services

import (
	"log"
	"os"

	"photobooth-api/internal/models"
)

// Notifier delivers user-facing notices (the UI banner).
type Notifier interface {
	Notify(level models.Level, message string)
}

// LogNotifier writes notices to the process log. Used when no client channel is wired.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.New(os.Stdout, "[Notify] ", log.LstdFlags)}
}

func (n *LogNotifier) Notify(level models.Level, message string) {
	n.logger.Printf("%s: %s", level, message)
}
