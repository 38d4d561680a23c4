package grid

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element builds a detached element node. attrs are key/value pairs.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text builds a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Predicate selects nodes during a tree walk.
type Predicate func(*html.Node) bool

// ByClass matches elements carrying the given class.
func ByClass(class string) Predicate {
	return func(n *html.Node) bool { return HasClass(n, class) }
}

// ByAttr matches elements whose attribute key equals val.
func ByAttr(key, val string) Predicate {
	return func(n *html.Node) bool {
		v, ok := Attr(n, key)
		return ok && v == val
	}
}

// HasAttr matches elements that carry the attribute at all.
func HasAttr(key string) Predicate {
	return func(n *html.Node) bool {
		_, ok := Attr(n, key)
		return ok
	}
}

// ByID matches the element with the given id attribute.
func ByID(id string) Predicate { return ByAttr("id", id) }

// ByTag matches elements by tag name.
func ByTag(tag string) Predicate {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

// All combines predicates with AND.
func All(preds ...Predicate) Predicate {
	return func(n *html.Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// Find returns the first descendant of root (excluding root) matching pred.
func Find(root *html.Node, pred Predicate) *html.Node {
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && pred(c) {
			return c
		}
		if found := Find(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant of root matching pred, in document order.
func FindAll(root *html.Node, pred Predicate) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && pred(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// Closest walks from n up to and including stop and returns the first
// element matching pred. It returns nil when n is not inside stop.
func Closest(n, stop *html.Node, pred Predicate) *html.Node {
	if !Contains(stop, n) {
		return nil
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && pred(cur) {
			return cur
		}
		if cur == stop {
			break
		}
	}
	return nil
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	if root == nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

// Attr returns the value of an attribute.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// HasClass reports whether n carries class in its class attribute.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// ToggleClass adds class when on is true and removes it otherwise.
func ToggleClass(n *html.Node, class string, on bool) {
	v, _ := Attr(n, "class")
	fields := strings.Fields(v)
	out := fields[:0]
	present := false
	for _, c := range fields {
		if c == class {
			present = true
			if !on {
				continue
			}
		}
		out = append(out, c)
	}
	if on && !present {
		out = append(out, class)
	}
	if len(out) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(out, " "))
}

// FlipClass toggles class and returns whether it is now present.
func FlipClass(n *html.Node, class string) bool {
	on := !HasClass(n, class)
	ToggleClass(n, class, on)
	return on
}

// Clear detaches every child of n.
func Clear(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, s string) {
	Clear(n)
	n.AppendChild(Text(s))
}

// TextContent concatenates every text node under n.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// AppendMarkup parses markup in the context of parent and appends the
// resulting nodes, the equivalent of assigning innerHTML. Markup that fails
// to parse is appended as literal text.
func AppendMarkup(parent *html.Node, markup string) {
	ctx := parent
	if ctx.Type != html.ElementNode {
		ctx = Element("div")
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		parent.AppendChild(Text(markup))
		return
	}
	for _, c := range nodes {
		parent.AppendChild(c)
	}
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML renders n including its own tag.
func OuterHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}
