package render

import "github.com/charmbracelet/lipgloss"

// Palette is the color scheme of the terminal UI chrome
type Palette struct {
	Name string

	Surface lipgloss.Color
	Border  lipgloss.Color

	Primary   lipgloss.Color // user turns, focused borders
	Secondary lipgloss.Color // assistant turns
	Accent    lipgloss.Color // suggestions, spinner
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Text    lipgloss.Color
	TextDim lipgloss.Color
}

var (
	DarkPalette = Palette{
		Name:      StyleDark,
		Surface:   lipgloss.Color("#24283b"),
		Border:    lipgloss.Color("#414868"),
		Primary:   lipgloss.Color("#7aa2f7"),
		Secondary: lipgloss.Color("#9ece6a"),
		Accent:    lipgloss.Color("#bb9af7"),
		Warning:   lipgloss.Color("#e0af68"),
		Error:     lipgloss.Color("#f7768e"),
		Text:      lipgloss.Color("#c0caf5"),
		TextDim:   lipgloss.Color("#565f89"),
	}

	LightPalette = Palette{
		Name:      StyleLight,
		Surface:   lipgloss.Color("#e9e9ed"),
		Border:    lipgloss.Color("#a8aecb"),
		Primary:   lipgloss.Color("#2e7de9"),
		Secondary: lipgloss.Color("#587539"),
		Accent:    lipgloss.Color("#9854f1"),
		Warning:   lipgloss.Color("#8c6c3e"),
		Error:     lipgloss.Color("#c64343"),
		Text:      lipgloss.Color("#3760bf"),
		TextDim:   lipgloss.Color("#848cb5"),
	}
)

// PaletteFor picks the UI palette matching a markdown style.
// Light styles get the light palette; everything else is dark.
func PaletteFor(style string) Palette {
	if style == StyleLight {
		return LightPalette
	}
	if style == StyleAuto && !lipgloss.HasDarkBackground() {
		return LightPalette
	}
	return DarkPalette
}
