package osm

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/triyaj/pkg/triyaj/facility"
)

// ParseDirectoryHTML extracts facility rows from an HTML directory page.
// Every table row with at least two data cells becomes a row: name, address,
// and optionally the facility type in the third cell. Header rows and rows
// with empty name or address cells are skipped.
func ParseDirectoryHTML(r io.Reader, city, specialtyID string) ([]facility.Facility, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse directory html: %w", err)
	}

	var out []facility.Facility
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if f, ok := rowToFacility(n, city, specialtyID); ok {
				out = append(out, f)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func rowToFacility(tr *html.Node, city, specialtyID string) (facility.Facility, bool) {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "td":
			cells = append(cells, nodeText(c))
		case "th":
			// a header row disqualifies itself
			return facility.Facility{}, false
		}
	}
	if len(cells) < 2 || cells[0] == "" || cells[1] == "" {
		return facility.Facility{}, false
	}

	f := facility.Facility{
		SpecialtyID: specialtyID,
		City:        city,
		Name:        cells[0],
		Address:     cells[1],
	}
	if len(cells) > 2 {
		f.Type = cells[2]
	}
	return f, true
}

// nodeText renders the concatenated text content of a node with whitespace
// collapsed, the way a browser would display the cell.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
