package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"dupscan/internal/session"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorizeStatus(status session.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	switch status {
	case session.StatusCompleted:
		return ansiGreen + string(status) + ansiReset
	case session.StatusCompletedWithErrors, session.StatusCancelled:
		return ansiYellow + string(status) + ansiReset
	case session.StatusFailed:
		return ansiRed + string(status) + ansiReset
	default:
		return string(status)
	}
}
