package grid

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// DefaultNumberedPageLimit is the largest page count rendered as a full run
// of page-number buttons.
const DefaultNumberedPageLimit = 7

// Pagination renders page-navigation controls.
type Pagination struct {
	// NumberedLimit is the page count up to which numbered buttons are shown.
	// Larger counts get First/Previous/[input]/Next/Last controls.
	NumberedLimit int
}

// Render clears container and, when there is more than one page, builds the
// navigation controls for currentPage.
func (p Pagination) Render(container *html.Node, totalItems, pageSize, currentPage int) {
	if container == nil {
		return
	}
	Clear(container)
	pages := PageCount(totalItems, pageSize)
	if pages <= 1 {
		return
	}
	current := max(1, min(currentPage, pages))

	nav := Element("nav", "class", "pagination", "aria-label", "Pagination")
	limit := p.NumberedLimit
	if limit <= 0 {
		limit = DefaultNumberedPageLimit
	}
	if pages <= limit {
		nav.AppendChild(pageButton("Previous", current-1, current == 1, false))
		for i := 1; i <= pages; i++ {
			nav.AppendChild(pageButton(strconv.Itoa(i), i, false, i == current))
		}
		nav.AppendChild(pageButton("Next", current+1, current == pages, false))
	} else {
		nav.AppendChild(pageButton("First", 1, current == 1, false))
		nav.AppendChild(pageButton("Previous", current-1, current == 1, false))

		label := Element("span", "class", "page-input-wrap")
		label.AppendChild(Text("Page "))
		label.AppendChild(Element("input",
			"type", "text",
			"id", "page-input",
			"class", "page-input",
			"inputmode", "numeric",
			"value", strconv.Itoa(current),
			"data-action", string(ActionPageInput),
		))
		label.AppendChild(Text(" of " + strconv.Itoa(pages)))
		nav.AppendChild(label)

		nav.AppendChild(pageButton("Next", current+1, current == pages, false))
		nav.AppendChild(pageButton("Last", pages, current == pages, false))
	}
	container.AppendChild(nav)
}

func pageButton(label string, page int, disabled, active bool) *html.Node {
	class := "page-btn"
	if active {
		class += " active"
	}
	b := Element("button",
		"type", "button",
		"class", class,
		"data-page", strconv.Itoa(page),
		"data-action", string(ActionPage),
	)
	if disabled {
		SetAttr(b, "disabled", "")
	}
	if active {
		SetAttr(b, "aria-current", "page")
	}
	b.AppendChild(Text(label))
	return b
}

// ParsePageInput validates a typed page number against [1, pageCount].
// Anything else, including non-numeric input, is an *OutOfRangePageError.
func ParsePageInput(raw string, pageCount int) (int, error) {
	bound := max(pageCount, 1)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > bound {
		return 0, &OutOfRangePageError{Input: raw, PageCount: bound}
	}
	return n, nil
}

// ResetInput sets the page input inside container back to current.
func ResetInput(container *html.Node, current int) {
	if in := Find(container, ByID("page-input")); in != nil {
		SetAttr(in, "value", strconv.Itoa(current))
	}
}

// PageInputValue returns the value currently held by the page input.
func PageInputValue(container *html.Node) (string, bool) {
	in := Find(container, ByID("page-input"))
	if in == nil {
		return "", false
	}
	return Attr(in, "value")
}
