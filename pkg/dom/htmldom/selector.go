package htmldom

import (
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var cache sync.Map

// Compile parses a CSS selector group with cascadia, caching the result
func Compile(s string) (cascadia.Selector, error) {
	if v, ok := cache.Load(s); ok {
		return v.(cascadia.Selector), nil
	}
	sel, err := cascadia.Compile(s)
	if err != nil {
		return nil, err
	}
	cache.Store(s, sel)
	return sel, nil
}

func elementParent(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

func lookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookup(n, key)
	return v
}
