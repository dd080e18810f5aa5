package core

import (
	"fmt"
	"regexp"
	"strings"
)

const maxDepth = 16

// doesn't contain the dot
var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeSlug lowercases the slug and replaces everything except letters and digits by dashes. Especially, dots are removed.
func NormalizeSlug(slug string) string {

	slug = strings.ToLower(strings.TrimSpace(slug))
	slug = slugRegex.ReplaceAllString(slug, `-`)

	// in addition to the javascript function, remove leading and trailing dashes
	slug = strings.Trim(slug, "-")

	return slug
}

// CleanPath returns the canonical form of a document or folder path: a leading slash, normalized slugs, no trailing slash.
// The root folder is "/".
func CleanPath(path string) (string, error) {

	// dots are not allowed
	if strings.Contains(path, ".") {
		return "", fmt.Errorf("path contains a dot: %s", path)
	}

	fields := strings.FieldsFunc(path, func(c rune) bool {
		return c == '/'
	})

	if len(fields) > maxDepth {
		return "", fmt.Errorf("path too deep: %s", path)
	}

	for i := range fields {
		fields[i] = NormalizeSlug(fields[i])
		if fields[i] == "" {
			return "", fmt.Errorf("path contains an empty segment: %s", path)
		}
	}

	return "/" + strings.Join(fields, "/"), nil
}

// ParentPath returns the folder which contains path. The parent of "/" is "/".
func ParentPath(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

// BaseName returns the last segment of path.
func BaseName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func JoinPath(folder, name string) string {
	if folder == "/" {
		return "/" + name
	}
	return folder + "/" + name
}

// Ancestors returns path and all folders above it, ending with "/".
func Ancestors(path string) []string {
	var result = []string{path}
	for path != "/" {
		path = ParentPath(path)
		result = append(result, path)
	}
	return result
}

// IsBelow returns whether path equals folder or is located somewhere below it.
func IsBelow(path, folder string) bool {
	if folder == "/" || path == folder {
		return true
	}
	return strings.HasPrefix(path, folder+"/")
}
