package doctype

// Raw returns the content as it is.
type Raw struct{}

func (Raw) Render(content, _ string) (string, error) {
	return content, nil
}
