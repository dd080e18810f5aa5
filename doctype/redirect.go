package doctype

import (
	"fmt"
	"html"
	"net/url"
	pathpkg "path"
	"strings"
)

// Redirect treats the content as a target url, relative urls are resolved against the folder of the document.
// The rendered page forwards the browser to the target.
type Redirect struct{}

func (Redirect) Render(content, docPath string) (string, error) {

	u, err := url.Parse(strings.TrimSpace(content))
	if err != nil {
		return "", fmt.Errorf("redirect target: %w", err)
	}

	if !u.IsAbs() && u.Host == "" && !pathpkg.IsAbs(u.Path) {
		u.Path = pathpkg.Join(pathpkg.Dir(docPath), u.Path)
	}

	var target = html.EscapeString(u.String())
	return fmt.Sprintf(`<meta http-equiv="refresh" content="0; url=%s"><p><a href="%s">%s</a></p>`, target, target, target), nil
}
