package tui

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha palette.
var flavor = catppuccin.Mocha

var (
	colorBase     = lipgloss.Color(flavor.Base().Hex)
	colorMantle   = lipgloss.Color(flavor.Mantle().Hex)
	colorSurface0 = lipgloss.Color(flavor.Surface0().Hex)
	colorText     = lipgloss.Color(flavor.Text().Hex)
	colorSubtext0 = lipgloss.Color(flavor.Subtext0().Hex)
	colorBlue     = lipgloss.Color(flavor.Blue().Hex)
	colorGreen    = lipgloss.Color(flavor.Green().Hex)
	colorRed      = lipgloss.Color(flavor.Red().Hex)
	colorYellow   = lipgloss.Color(flavor.Yellow().Hex)
	colorPeach    = lipgloss.Color(flavor.Peach().Hex)
	colorMauve    = lipgloss.Color(flavor.Mauve().Hex)
	colorOverlay0 = lipgloss.Color(flavor.Overlay0().Hex)
)

// Tree styles.
var (
	// TitleStyle is the header line above the tree.
	TitleStyle = lipgloss.NewStyle().
			Foreground(colorMauve).
			Bold(true)

	// CategoryStyle is used for category rows.
	CategoryStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	// CursorStyle highlights the row under the cursor.
	CursorStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	PartialStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(colorText)

	// ValueStyle renders the current value of a configurable item.
	ValueStyle = lipgloss.NewStyle().
			Foreground(colorPeach)

	DimStyle = lipgloss.NewStyle().
			Foreground(colorOverlay0)
)

// Sync badge styles.
var (
	SyncedBadgeStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	InstallBadgeStyle = lipgloss.NewStyle().
				Foreground(colorYellow)

	OrphanBadgeStyle = lipgloss.NewStyle().
				Foreground(colorRed)
)

// Status bar styles.
var (
	// StatusBarStyle is the base style for the bottom status bar.
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(colorSubtext0).
			Background(colorSurface0).
			Padding(0, 1)

	// StatusBarKeyStyle highlights keyboard shortcuts in the status bar.
	StatusBarKeyStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Background(colorSurface0).
				Bold(true)

	// StrictModeStyle marks Strict mode in the status bar.
	StrictModeStyle = lipgloss.NewStyle().
			Foreground(colorBase).
			Background(colorRed).
			Padding(0, 1).
			Bold(true)
)

// Message and prompt styles.
var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	InfoStyle = lipgloss.NewStyle().
			Foreground(colorSubtext0)

	// PromptStyle is the border around the strict-mode confirmation.
	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRed).
			Background(colorMantle).
			Foreground(colorText).
			Padding(0, 2)
)
