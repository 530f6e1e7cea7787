// Package theme provides the Lip Gloss color palette and reusable styles
// for the blendmate TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Source colors.
var (
	ColorAddon   = lipgloss.Color("#ea7600") // Blender orange
	ColorApp     = lipgloss.Color("#3b82f6")
	ColorAI      = lipgloss.Color("#a855f7")
	ColorDefault = lipgloss.Color("#9ca3af")
)

// Message kind colors.
var (
	ColorEvent     = lipgloss.Color("#22c55e")
	ColorCommand   = lipgloss.Color("#d97706")
	ColorResponse  = lipgloss.Color("#06b6d4")
	ColorHeartbeat = lipgloss.Color("#4b5563")
)

// Link state colors.
var (
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder = lipgloss.Color("#4b5563")
	ColorDimmed = lipgloss.Color("#6b7280")
	ColorBright = lipgloss.Color("#f9fafb")
)

// SourceColor returns the color for a protocol source name.
func SourceColor(source string) lipgloss.Color {
	switch source {
	case "blender_addon":
		return ColorAddon
	case "blendmate":
		return ColorApp
	case "ai":
		return ColorAI
	default:
		return ColorDefault
	}
}

// SourceBadge returns a colored badge string for a protocol source.
func SourceBadge(source string) string {
	style := lipgloss.NewStyle().Foreground(SourceColor(source))
	switch source {
	case "blender_addon":
		return style.Render("[B]")
	case "blendmate":
		return style.Render("[M]")
	case "ai":
		return style.Render("[A]")
	default:
		return style.Render("[?]")
	}
}

// TypeColor returns the color for a message type.
func TypeColor(msgType string) lipgloss.Color {
	switch {
	case msgType == "heartbeat":
		return ColorHeartbeat
	case msgType == "response":
		return ColorResponse
	case strings.HasPrefix(msgType, "event."):
		return ColorEvent
	case strings.HasPrefix(msgType, "command."):
		return ColorCommand
	default:
		return ColorDefault
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)
)
