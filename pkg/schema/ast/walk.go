package ast

import "strconv"

// Visitor is called for every node reached by Walk. path locates the node
// from the root "$", such as "$.items[2].each". Returning false skips the
// node's children.
type Visitor func(path string, n Node) bool

// Walk traverses n depth-first in source order, visiting computed fields
// before the node's own children.
func Walk(n Node, fn Visitor) {
	walk("$", n, fn)
}

func walk(path string, n Node, fn Visitor) {
	if n == nil || !fn(path, n) {
		return
	}
	for _, c := range n.Meta().Computed {
		walk(path+".computed."+c.Key, c.Node, fn)
	}
	switch node := n.(type) {
	case *TupleNode:
		for i, item := range node.Items {
			walk(path+"["+strconv.Itoa(i)+"]", item, fn)
		}
	case *ListNode:
		walk(path+".each", node.Each, fn)
	case *ObjectNode:
		for _, f := range node.Fields {
			walk(path+"."+f.Key, f.Node, fn)
		}
	}
}

// Depth returns the nesting depth of n. A leaf node has depth 1.
func Depth(n Node) int {
	deepest := 0
	var visit func(n Node, d int)
	visit = func(n Node, d int) {
		if n == nil {
			return
		}
		if d > deepest {
			deepest = d
		}
		for _, c := range n.Meta().Computed {
			visit(c.Node, d+1)
		}
		switch node := n.(type) {
		case *TupleNode:
			for _, item := range node.Items {
				visit(item, d+1)
			}
		case *ListNode:
			visit(node.Each, d+1)
		case *ObjectNode:
			for _, f := range node.Fields {
				visit(f.Node, d+1)
			}
		}
	}
	visit(n, 1)
	return deepest
}
