package cmd

import (
	"strings"

	"github.com/fatih/color"
)

const banner = `
     _   _  _  _ __  ___  ___  ___
    | \ | || \| |/ _|| __|| _ \/ __|
    |  _/| || .  ( (_ | _| |   /\__ \
    |_|  |_||_|\_|\__||___||_|_\|___/`

// getColor returns the requested color, or an uncolored object, depending on
// the value of noColor. The explicit EnableColor() and DisableColor() are
// needed because the library checks os.Stdout itself otherwise...
func getColor(noColor bool, attributes ...color.Attribute) *color.Color {
	if noColor {
		c := color.New()
		c.DisableColor()
		return c
	}

	c := color.New(attributes...)
	c.EnableColor()
	return c
}

func getBanner(noColor bool) string {
	c := getColor(noColor, color.FgCyan)
	return c.Sprint(strings.TrimPrefix(banner, "\n"))
}
