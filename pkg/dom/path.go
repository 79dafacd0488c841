package dom

import "golang.org/x/net/html"

// Path addresses a node below a root by child positions (all node types
// counted). The empty path is the root itself. Paths let a template record
// its slot once and find the same slot in every clone.
type Path []int

// PathTo returns the path from root to target, or false when target is not in
// root's subtree.
func PathTo(root, target *html.Node) (Path, bool) {
	if root == nil || target == nil {
		return nil, false
	}
	var reversed []int
	for node := target; node != root; node = node.Parent {
		if node == nil || node.Parent == nil {
			return nil, false
		}
		idx := 0
		for sibling := node.Parent.FirstChild; sibling != node; sibling = sibling.NextSibling {
			idx++
		}
		reversed = append(reversed, idx)
	}
	path := make(Path, len(reversed))
	for i, idx := range reversed {
		path[len(reversed)-1-i] = idx
	}
	return path, true
}

// Follow resolves p below root. It returns nil when the path does not exist.
func (p Path) Follow(root *html.Node) *html.Node {
	node := root
	for _, idx := range p {
		if node == nil {
			return nil
		}
		child := node.FirstChild
		for i := 0; i < idx && child != nil; i++ {
			child = child.NextSibling
		}
		node = child
	}
	return node
}
