package doctype

import (
	"bytes"
	"net/url"
	pathpkg "path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML makes relative links absolute. Links are relative to the folder of the document.
type HTML struct{}

func (HTML) Render(content, docPath string) (string, error) {

	var body = &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}

	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return "", err
	}

	var base = pathpkg.Dir(docPath)
	if docPath == "" {
		base = "/"
	}

	var result = &bytes.Buffer{}
	for _, n := range nodes {
		forEachNode(n, func(n *html.Node) {
			if n.Type != html.ElementNode {
				return
			}
			var key string
			switch n.DataAtom {
			case atom.A:
				key = "href"
			case atom.Img:
				key = "src"
			default:
				return
			}
			for i := range n.Attr {
				if strings.ToLower(n.Attr[i].Key) == key {
					n.Attr[i].Val = absolute(base, n.Attr[i].Val)
				}
			}
		})
		if err := html.Render(result, n); err != nil {
			return "", err
		}
	}
	return result.String(), nil
}

func forEachNode(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		forEachNode(c, fn)
	}
}

// absolute leaves urls with scheme, host or absolute path, fragments and unparseable values alone.
func absolute(base, val string) string {
	u, err := url.Parse(strings.TrimSpace(val))
	if err != nil {
		return val
	}
	if u.Opaque != "" || u.Scheme != "" || u.User != nil || u.Host != "" {
		return val
	}
	switch u.Path {
	case "":
		return val // like href="#foo"
	case ".":
		u.Path = base
	default:
		if pathpkg.IsAbs(u.Path) {
			return val
		}
		u.Path = pathpkg.Join(base, u.Path)
	}
	return u.String()
}
