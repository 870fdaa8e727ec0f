// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrCharsetMismatch is returned when a text node holds U+FFFD, which means
// the document was decoded with the wrong charset.
var ErrCharsetMismatch = errors.New("charset mismatch")

// mojibake holds UTF-8 sequences that were decoded as ISO-8859-1 somewhere
// upstream of the published tables.
var mojibake = strings.NewReplacer(
	"Ã¡", "á",
	"Ã©", "é",
	"Ã­", "í",
	"Ã³", "ó",
	"Ãº", "ú",
	"Ã±", "ñ",
	"Ã‘", "Ñ",
	"Ã¼", "ü",
)

// Node2string appends the text of n to sb, one space between text nodes.
func Node2string(n *html.Node, sb *strings.Builder) (err error) {
	if n.Type == html.TextNode {
		tmp := strings.Join(strings.Fields(n.Data), " ")

		if strings.ContainsRune(tmp, utf8.RuneError) {
			return fmt.Errorf("%w: `%s'", ErrCharsetMismatch, tmp)
		}

		tmp = mojibake.Replace(tmp)

		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}

		return nil
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err = Node2string(child, sb); err != nil {
			break
		}
	}

	return err
}

// Text returns the text of n.
func Text(n *html.Node) (string, error) {
	sb := strings.Builder{}
	err := Node2string(n, &sb)

	return sb.String(), err
}

// Validates that response seems to be an HTML response.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader with the correct charset.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !hasHTMLContentType(media) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}

// FindAll returns the elements named tag below n, in document order.
func FindAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node

	for d := range n.Descendants() {
		if d.Type == html.ElementNode && strings.EqualFold(d.Data, tag) {
			out = append(out, d)
		}
	}

	return out
}

// TableRows returns the cell texts of every row of table. Nested tables are
// not descended into.
func TableRows(table *html.Node) ([][]string, error) {
	var (
		rows [][]string
		walk func(*html.Node) error
	)

	walk = func(n *html.Node) error {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}

			switch strings.ToLower(c.Data) {
			case "table":
				continue
			case "tr":
				row, err := rowCells(c)
				if err != nil {
					return err
				}

				rows = append(rows, row)
			default:
				if err := walk(c); err != nil {
					return err
				}
			}
		}

		return nil
	}

	return rows, walk(table)
}

func rowCells(tr *html.Node) ([]string, error) {
	var cells []string

	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}

		text, err := Text(c)
		if err != nil {
			return nil, err
		}

		cells = append(cells, text)
	}

	return cells, nil
}
