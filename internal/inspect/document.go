package inspect

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// DOM nodeType values, per the subset of the DOM the sandbox exposes.
const (
	nodeTypeElement  = 1
	nodeTypeText     = 3
	nodeTypeComment  = 8
	nodeTypeDocument = 9
)

// document bridges a parsed HTML tree into the sandbox runtime. It installs
// `document` and `location` globals whose properties read and write the
// underlying tree live, so generated mutation scripts behave as they would
// against a real page.
//
// Wrappers are cached per node so scripts observe stable object identity
// (node === node holds across two querySelectorAll calls).
type document struct {
	vm    *goja.Runtime
	root  *html.Node
	url   *url.URL
	cache map[*html.Node]*goja.Object
}

func newDocument(vm *goja.Runtime, root *html.Node, u *url.URL) *document {
	return &document{
		vm:    vm,
		root:  root,
		url:   u,
		cache: make(map[*html.Node]*goja.Object),
	}
}

// install sets the document, location, and window globals on the runtime.
func (d *document) install() {
	d.vm.Set("document", d.wrapDocument())
	d.vm.Set("location", d.locationObject())
	d.vm.Set("window", d.vm.GlobalObject())
}

func (d *document) wrapDocument() *goja.Object {
	if obj, ok := d.cache[d.root]; ok {
		return obj
	}
	obj := d.vm.NewObject()
	d.cache[d.root] = obj

	_ = obj.Set("nodeType", nodeTypeDocument)
	_ = obj.Set("nodeName", "#document")
	d.defineGetter(obj, "documentElement", func() goja.Value { return d.wrapOrNull(findElement(d.root, "html")) })
	d.defineGetter(obj, "body", func() goja.Value { return d.wrapOrNull(findElement(d.root, "body")) })
	d.defineGetter(obj, "head", func() goja.Value { return d.wrapOrNull(findElement(d.root, "head")) })
	d.defineGetter(obj, "title", func() goja.Value {
		if t := findElement(d.root, "title"); t != nil {
			return d.vm.ToValue(nodeText(t))
		}
		return d.vm.ToValue("")
	})
	d.defineGetter(obj, "childNodes", func() goja.Value { return d.wrapChildren(d.root) })
	_ = obj.Set("querySelector", func(sel string) goja.Value { return d.querySelector(d.root, sel) })
	_ = obj.Set("querySelectorAll", func(sel string) goja.Value { return d.querySelectorAll(d.root, sel) })
	_ = obj.Set("getElementById", func(id string) goja.Value { return d.wrapOrNull(findByID(d.root, id)) })
	d.defineGetter(obj, "location", func() goja.Value { return d.locationObject() })
	if d.url != nil {
		_ = obj.Set("URL", d.url.String())
	} else {
		_ = obj.Set("URL", "about:blank")
	}
	return obj
}

func (d *document) locationObject() *goja.Object {
	obj := d.vm.NewObject()
	u := d.url
	if u == nil {
		u = &url.URL{Scheme: "about", Opaque: "blank"}
	}
	_ = obj.Set("href", u.String())
	_ = obj.Set("protocol", u.Scheme+":")
	_ = obj.Set("host", u.Host)
	_ = obj.Set("hostname", u.Hostname())
	_ = obj.Set("pathname", u.Path)
	_ = obj.Set("search", queryString(u))
	_ = obj.Set("toString", func() string { return u.String() })
	return obj
}

func queryString(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}

// wrap returns the cached JS object for a node, creating it on first use.
func (d *document) wrap(n *html.Node) *goja.Object {
	if obj, ok := d.cache[n]; ok {
		return obj
	}
	obj := d.vm.NewObject()
	d.cache[n] = obj

	switch n.Type {
	case html.ElementNode:
		d.populateElement(obj, n)
	case html.TextNode:
		d.populateCharacterData(obj, n, nodeTypeText, "#text")
	case html.CommentNode:
		d.populateCharacterData(obj, n, nodeTypeComment, "#comment")
	default:
		_ = obj.Set("nodeType", 0)
		_ = obj.Set("nodeName", "")
	}
	return obj
}

func (d *document) wrapOrNull(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	return d.wrap(n)
}

func (d *document) populateElement(obj *goja.Object, n *html.Node) {
	_ = obj.Set("nodeType", nodeTypeElement)
	_ = obj.Set("nodeName", strings.ToUpper(n.Data))
	_ = obj.Set("tagName", strings.ToUpper(n.Data))
	_ = obj.Set("nodeValue", goja.Null())

	d.defineAccessor(obj, "textContent",
		func() goja.Value { return d.vm.ToValue(nodeText(n)) },
		func(v goja.Value) { setNodeText(n, v.String()) },
	)
	d.defineAccessor(obj, "innerHTML",
		func() goja.Value { return d.vm.ToValue(innerHTML(d.vm, n)) },
		func(v goja.Value) {
			if err := setInnerHTML(n, v.String()); err != nil {
				panic(d.vm.NewGoError(fmt.Errorf("innerHTML: %w", err)))
			}
		},
	)
	d.defineGetter(obj, "outerHTML", func() goja.Value { return d.vm.ToValue(outerHTML(d.vm, n)) })
	d.defineGetter(obj, "id", func() goja.Value {
		v, _ := attrValue(n, "id")
		return d.vm.ToValue(v)
	})
	d.defineGetter(obj, "className", func() goja.Value {
		v, _ := attrValue(n, "class")
		return d.vm.ToValue(v)
	})
	d.defineGetter(obj, "childNodes", func() goja.Value { return d.wrapChildren(n) })
	d.defineGetter(obj, "children", func() goja.Value { return d.wrapElementChildren(n) })
	d.defineGetter(obj, "parentNode", func() goja.Value { return d.wrapOrNull(n.Parent) })

	_ = obj.Set("getAttribute", func(name string) goja.Value {
		if v, ok := attrValue(n, name); ok {
			return d.vm.ToValue(v)
		}
		return goja.Null()
	})
	_ = obj.Set("hasAttribute", func(name string) bool {
		_, ok := attrValue(n, name)
		return ok
	})
	_ = obj.Set("setAttribute", func(name, value string) { setAttrValue(n, name, value) })
	_ = obj.Set("removeAttribute", func(name string) { removeAttr(n, name) })
	_ = obj.Set("querySelector", func(sel string) goja.Value { return d.querySelector(n, sel) })
	_ = obj.Set("querySelectorAll", func(sel string) goja.Value { return d.querySelectorAll(n, sel) })
	_ = obj.Set("matches", func(sel string) bool { return d.compile(sel).Match(n) })
}

func (d *document) populateCharacterData(obj *goja.Object, n *html.Node, nodeType int, nodeName string) {
	_ = obj.Set("nodeType", nodeType)
	_ = obj.Set("nodeName", nodeName)
	d.defineAccessor(obj, "nodeValue",
		func() goja.Value { return d.vm.ToValue(n.Data) },
		func(v goja.Value) { n.Data = v.String() },
	)
	d.defineAccessor(obj, "textContent",
		func() goja.Value { return d.vm.ToValue(n.Data) },
		func(v goja.Value) { n.Data = v.String() },
	)
	d.defineGetter(obj, "childNodes", func() goja.Value { return d.vm.NewArray() })
	d.defineGetter(obj, "parentNode", func() goja.Value { return d.wrapOrNull(n.Parent) })
}

func (d *document) defineGetter(obj *goja.Object, name string, get func() goja.Value) {
	getter := d.vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	_ = obj.DefineAccessorProperty(name, getter, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

func (d *document) defineAccessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := d.vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	setter := d.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		set(call.Argument(0))
		return goja.Undefined()
	})
	_ = obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

func (d *document) wrapChildren(n *html.Node) goja.Value {
	var items []any
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		items = append(items, d.wrap(c))
	}
	return d.vm.NewArray(items...)
}

func (d *document) wrapElementChildren(n *html.Node) goja.Value {
	var items []any
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			items = append(items, d.wrap(c))
		}
	}
	return d.vm.NewArray(items...)
}

// compile parses a selector group, throwing into the runtime on a bad
// selector the way a browser throws from querySelectorAll.
func (d *document) compile(sel string) cascadia.SelectorGroup {
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		panic(d.vm.NewGoError(fmt.Errorf("invalid selector %q: %w", sel, err)))
	}
	return group
}

func (d *document) querySelector(scope *html.Node, sel string) goja.Value {
	return d.wrapOrNull(cascadia.Query(scope, d.compile(sel)))
}

func (d *document) querySelectorAll(scope *html.Node, sel string) goja.Value {
	group := d.compile(sel)
	var items []any
	for _, n := range cascadia.QueryAll(scope, group) {
		items = append(items, d.wrap(n))
	}
	return d.vm.NewArray(items...)
}

// --- tree helpers shared with tests ---

// nodeText returns the concatenated text of all descendant text nodes.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// setNodeText replaces all children of n with a single text node.
func setNodeText(n *html.Node, text string) {
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func innerHTML(vm *goja.Runtime, n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			panic(vm.NewGoError(fmt.Errorf("render: %w", err)))
		}
	}
	return b.String()
}

func outerHTML(vm *goja.Runtime, n *html.Node) string {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		panic(vm.NewGoError(fmt.Errorf("render: %w", err)))
	}
	return b.String()
}

// setInnerHTML parses markup as a fragment in n's context and replaces n's
// children with the parsed nodes.
func setInnerHTML(n *html.Node, markup string) error {
	ctx := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return err
	}
	removeChildren(n)
	for _, child := range nodes {
		n.AppendChild(child)
	}
	return nil
}

func attrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttrValue(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// findElement returns the first element named tag in document order.
func findElement(root *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := attrValue(n, "id"); ok && v == id {
				found = n
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}
