package main

import (
	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	Title   lipgloss.Style
	Stage   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

var styles = palette{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
	Stage:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
	Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A6E3A1")),
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8")),
}
