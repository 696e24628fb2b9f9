// Package styles provides terminal color and formatting helpers shared
// by the dbase3 console and its mage build scripts.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary   = lipgloss.Color("#7D56F4") // Purple
	Secondary = lipgloss.Color("#04B575") // Green
	Accent    = lipgloss.Color("#F25D94") // Pink

	SuccessColor = lipgloss.Color("#04B575") // Green
	WarningColor = lipgloss.Color("#FFB347") // Orange
	ErrorColor   = lipgloss.Color("#FF6B6B") // Red
	InfoColor    = lipgloss.Color("#54A6FF") // Blue

	Text     = lipgloss.Color("#FAFAFA") // Light
	TextDim  = lipgloss.Color("#A8A8A8") // Dim
	TextDark = lipgloss.Color("#383838") // Dark

	Background    = lipgloss.Color("#1A1A1A")
	BackgroundAlt = lipgloss.Color("#2D2D2D")
)

// Base styles for common UI elements
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			PaddingTop(1).
			PaddingBottom(1)

	SubHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(InfoColor)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(SuccessColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ErrorColor)

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(WarningColor)

	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	BoldStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Text)

	DimStyle = lipgloss.NewStyle().
			Foreground(TextDim)

	CodeStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Background(BackgroundAlt).
			PaddingLeft(1).
			PaddingRight(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	ListItemStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)

func Success(text string) string { return SuccessStyle.Render("✓ " + text) }
func Error(text string) string   { return ErrorStyle.Render("✗ " + text) }
func Warning(text string) string { return WarningStyle.Render("⚠ " + text) }
func Info(text string) string    { return InfoStyle.Render("ℹ " + text) }
func Header(text string) string  { return HeaderStyle.Render(text) }
func SubHeader(text string) string { return SubHeaderStyle.Render(text) }
func Bold(text string) string    { return BoldStyle.Render(text) }
func Dim(text string) string     { return DimStyle.Render(text) }
func Code(text string) string    { return CodeStyle.Render(text) }

// Example renders one "command - description" line, used by the mage
// Info target.
func Example(command, description string) string {
	return "  " + Code(command) + " - " + Dim(description)
}

// PromptTitle and PromptHint style the console's input prompt.
func PromptTitle(title string) string { return BoldStyle.Render(title) }
func PromptHint(hint string) string   { return DimStyle.Render(hint) }
