package doctype

import "strings"

// MoreMarker separates the teaser from the rest of a rendered document.
const MoreMarker = "<!-- more -->"

// Teaser discards everything including and after MoreMarker.
func Teaser(rendered string) string {
	if index := strings.Index(rendered, MoreMarker); index >= 0 {
		return rendered[:index]
	}
	return rendered
}
