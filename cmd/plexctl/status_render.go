package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"plexctl/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if !colorize {
		return base
	}
	c := statusKindColor(kind)
	c.EnableColor()
	return c.Sprint(base)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) *color.Color {
	switch kind {
	case statusOK:
		return color.New(color.FgGreen)
	case statusWarn:
		return color.New(color.FgYellow)
	case statusError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		c := color.New(color.FgBlue)
		c.EnableColor()
		line, rule = c.Sprint(line), c.Sprint(rule)
	}
	return []string{line, rule}
}

func resultKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}
