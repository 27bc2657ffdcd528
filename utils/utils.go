package utils

import (
	"iter"
	urlParser "net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/blase-lsp/blase/syntax"
	. "github.com/blase-lsp/blase/types"
)

func UriToPath(uri Uri) (string, error) {
	if strings.HasPrefix(uri, "/") {
		return filepath.FromSlash(uri), nil
	}

	url, err := urlParser.Parse(uri)

	if err != nil {
		return "", err
	}

	return filepath.FromSlash(url.Path), nil
}

func ToUri(path string) Uri {
	if !filepath.IsAbs(path) {
		return path
	}

	url := urlParser.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(path),
	}

	return url.String()
}

// NormalizeUri rewrites file URIs and absolute paths to one canonical
// spelling. Other schemes are returned unchanged.
func NormalizeUri(uri Uri) (Uri, error) {
	if !strings.HasPrefix(uri, "/") && !strings.HasPrefix(uri, "file:") {
		return uri, nil
	}

	path, err := UriToPath(uri)

	if err != nil {
		return "", err
	}

	return ToUri(filepath.Clean(path)), nil
}

// ReadUri returns the text of the file behind uri.
func ReadUri(uri Uri) (string, error) {
	path, err := UriToPath(uri)

	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)

	if err != nil {
		return "", err
	}

	return string(data), nil
}

func P[T any](src T) *T {
	return &src
}

// NodesIter yields, in document order, every node under root for which
// match is true. Children of a yielded node are not visited.
func NodesIter(root *syntax.Node, match func(*syntax.Node) bool) iter.Seq[*syntax.Node] {
	return func(yield func(*syntax.Node) bool) {
		if root == nil {
			return
		}

		active := true

		root.Walk(func(node *syntax.Node) bool {
			if !active {
				return false
			}

			if match(node) {
				active = yield(node)
				return false
			}

			return true
		})
	}
}
