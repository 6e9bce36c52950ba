package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// renderOutcomeLine colors the terminal outcome when writing to a terminal;
// piped output stays plain so scripts see the bare message.
func renderOutcomeLine(message string, success bool, colorize bool) string {
	if !colorize {
		return message
	}
	color := ansiGreen
	if !success {
		color = ansiRed
	}
	return color + message + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
