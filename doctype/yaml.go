package doctype

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type definition struct {
	Code           string   `yaml:"code"`
	Name           string   `yaml:"name"`
	Renderer       string   `yaml:"renderer"`
	Discriminators []string `yaml:"discriminators"`
	Editable       *bool    `yaml:"editable"`
	Versioned      *bool    `yaml:"versioned"`
}

var renderers = map[string]Renderer{
	"":         Raw{},
	"raw":      Raw{},
	"html":     HTML{},
	"markdown": Markdown{},
	"redirect": Redirect{},
}

// Load reads a list of document type definitions and adds them to reg.
// Editable and versioned default to true.
//
//	- code: article
//	  name: Article
//	  renderer: markdown
//	  discriminators: [language]
func (reg Registry) Load(r io.Reader) error {

	var defs []definition
	if err := yaml.NewDecoder(r).Decode(&defs); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decoding document types: %w", err)
	}

	for _, def := range defs {
		if def.Code == "" {
			return fmt.Errorf("document type without code")
		}
		renderer, ok := renderers[def.Renderer]
		if !ok {
			return fmt.Errorf("document type %s: unknown renderer %q", def.Code, def.Renderer)
		}
		var t = &DocType{
			Code:           def.Code,
			Name:           def.Name,
			Discriminators: def.Discriminators,
			Editable:       def.Editable == nil || *def.Editable,
			Versioned:      def.Versioned == nil || *def.Versioned,
			Renderer:       renderer,
		}
		if t.Name == "" {
			t.Name = t.Code
		}
		reg.Add(t)
	}
	return nil
}

func (reg Registry) LoadFile(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return reg.Load(f)
}
