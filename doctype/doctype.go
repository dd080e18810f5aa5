// Package doctype contains the document types. A document type decides how content is rendered,
// whether documents can be edited and versioned, and which properties discriminate its versions.
package doctype

import (
	"sort"
	"strings"

	"github.com/wansing/docflow/util"
)

type Renderer interface {
	Render(content string, docPath string) (string, error)
}

type DocType struct {
	Code           string
	Name           string
	Discriminators []string // default discriminators of new handles
	Editable       bool     // whether drafts can be obtained
	Versioned      bool     // whether transitions take snapshots
	Renderer       Renderer
}

// Render renders content. Without a renderer, content is returned unchanged.
func (t *DocType) Render(content, docPath string) (string, error) {
	if t.Renderer == nil {
		return content, nil
	}
	return t.Renderer.Render(content, docPath)
}

// Title returns the first heading of the rendered content.
func (t *DocType) Title(content, docPath string) string {
	rendered, err := t.Render(content, docPath)
	if err != nil {
		return ""
	}
	return util.Heading(strings.NewReader(rendered))
}

type Registry map[string]*DocType

func (reg Registry) Add(t *DocType) {
	reg[t.Code] = t
}

func (reg Registry) All() []string {
	var all = make([]string, 0, len(reg))
	for code := range reg {
		all = append(all, code)
	}
	sort.Strings(all)
	return all
}

func (reg Registry) Get(code string) (*DocType, bool) {
	t, ok := reg[code]
	return t, ok
}

// Builtin returns a new registry containing the types "markdown", "html" and "raw".
func Builtin() Registry {
	var reg = make(Registry)
	reg.Add(&DocType{
		Code:      "markdown",
		Name:      "Markdown document",
		Editable:  true,
		Versioned: true,
		Renderer:  Markdown{},
	})
	reg.Add(&DocType{
		Code:      "html",
		Name:      "HTML document",
		Editable:  true,
		Versioned: true,
		Renderer:  HTML{},
	})
	reg.Add(&DocType{
		Code:      "raw",
		Name:      "Raw document",
		Editable:  true,
		Versioned: true,
		Renderer:  Raw{},
	})
	return reg
}
