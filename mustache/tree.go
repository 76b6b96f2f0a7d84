package mustache

// TreeNode is a hierarchical document element, such as an XML element.
//
// A tree scope resolves a name first against the node's attributes and then
// against its child elements of that name. A single matching child is the
// value itself; several matching children form a list.
type TreeNode interface {
	Attr(name string) (string, bool)
	Children(name string) []TreeNode
	Text() string
}

type treeScope struct{ node TreeNode }

func (s treeScope) Lookup(name string) (any, bool) {
	if v, ok := s.node.Attr(name); ok {
		return v, true
	}

	switch kids := s.node.Children(name); len(kids) {
	case 0:
		return nil, false
	case 1:
		return kids[0], true
	default:
		list := make([]any, len(kids))
		for i, k := range kids {
			list[i] = k
		}

		return list, true
	}
}

func (s treeScope) Value() any { return s.node }
