package ui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"})

	modeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})

	lockedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#AA3333", Dark: "#FF6666"})

	unlockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#336633", Dark: "#66CC66"})

	plotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#2255AA", Dark: "#5599EE"})

	meterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#227722", Dark: "#55CC55"})

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"})

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
)
