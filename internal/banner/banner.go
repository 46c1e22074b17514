package banner

import (
	"productload/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
                    _            _   _                 _ 
  _ __  _ __ ___   __| |_   _  ___| |_| | ___   __ _  __| |
 | '_ \| '__/ _ \ / _' | | | |/ __| __| |/ _ \ / _' |/ _' |
 | |_) | | | (_) | (_| | |_| | (__| |_| | (_) | (_| | (_| |
 | .__/|_|  \___/ \__,_|\__,_|\___|\__|_|\___/ \__,_|\__,_|
 |_|                                                       `

	return "\n" + style.Render(ascii) + "\n"
}
