package render

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/glamour/styles"
)

// Style names accepted besides a JSON style path
const (
	StyleAuto  = styles.AutoStyle
	StyleDark  = styles.DarkStyle
	StyleLight = styles.LightStyle
	StyleNoTTY = styles.NoTTYStyle
)

// StyleNames returns the built-in style names, "auto" first
func StyleNames() []string {
	names := make([]string, 0, len(styles.DefaultStyles)+1)
	for name := range styles.DefaultStyles {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{StyleAuto}, names...)
}

// IsBuiltinStyle reports whether style names a glamour style
func IsBuiltinStyle(style string) bool {
	if style == StyleAuto {
		return true
	}
	_, ok := styles.DefaultStyles[style]
	return ok
}

// ValidateStyle accepts a built-in style name or a readable style file
func ValidateStyle(style string) error {
	if IsBuiltinStyle(style) {
		return nil
	}
	info, err := os.Stat(style)
	if err != nil {
		return fmt.Errorf("unknown markdown style %q (built-in styles: %v)", style, StyleNames())
	}
	if info.IsDir() {
		return fmt.Errorf("markdown style %q is a directory", style)
	}
	return nil
}
