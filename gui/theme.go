//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// lampTheme keeps the window dark around the lamp so the light reads from
// the back of a classroom. Captions are sized for a projector.
type lampTheme struct{}

var captionColour = color.NRGBA{R: 235, G: 235, B: 235, A: 255}

func (lampTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground, theme.ColorNameOverlayBackground:
		return color.Black
	case theme.ColorNameForeground:
		return captionColour
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (lampTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(fyne.TextStyle{Bold: true, Monospace: style.Monospace})
}

func (lampTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (lampTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return 20
	}
	return theme.DefaultTheme().Size(name)
}
