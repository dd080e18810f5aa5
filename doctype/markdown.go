package doctype

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"gitlab.com/golang-commonmark/markdown"
)

var markdownParser *markdown.Markdown = markdown.New(markdown.HTML(true), markdown.Linkify(true), markdown.Typographer(true), markdown.MaxNesting(10))

// Markdown renders the content as CommonMark markdown and then runs HTML.
type Markdown struct {
	HTML
}

func (md Markdown) Render(content, docPath string) (string, error) {
	return md.HTML.Render(renderMarkdown(strings.NewReader(content)), docPath)
}

func renderMarkdown(input io.Reader) string {

	// remove all tabs from the beginning of each line

	var unindentedContent = &bytes.Buffer{}

	lineScanner := bufio.NewScanner(input)
	for lineScanner.Scan() {
		line := lineScanner.Text()
		for len(line) > 0 && line[0] == '\t' {
			line = line[1:]
		}
		unindentedContent.WriteString(line)
		unindentedContent.WriteString("\n")
	}

	var result = &bytes.Buffer{}
	markdownParser.RenderTokens(result, markdownParser.Parse(unindentedContent.Bytes()))
	return result.String()
}
