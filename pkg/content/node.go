package content

import "strings"

// NodeType tags a rich-text node. The set is closed: values outside the known
// constants are carried through decoding but routed to the unsupported path
// by renderers.
type NodeType string

const (
	NodeHeading1           NodeType = "heading-1"
	NodeHeading2           NodeType = "heading-2"
	NodeHeading3           NodeType = "heading-3"
	NodeHeading4           NodeType = "heading-4"
	NodeHeading5           NodeType = "heading-5"
	NodeHeading6           NodeType = "heading-6"
	NodeParagraph          NodeType = "paragraph"
	NodeListItemParagraph  NodeType = "list-item-paragraph"
	NodeBlockquote         NodeType = "blockquote"
	NodeHyperlink          NodeType = "hyperlink"
	NodeAssetHyperlink     NodeType = "asset-hyperlink"
	NodeEntryHyperlink     NodeType = "entry-hyperlink"
	NodeOrderedList        NodeType = "ordered-list"
	NodeUnorderedList      NodeType = "unordered-list"
	NodeListItem           NodeType = "list-item"
	NodeHR                 NodeType = "hr"
	NodeEmbeddedAssetBlock NodeType = "embedded-asset-block"
	NodeText               NodeType = "text"
)

var knownNodeTypes = map[NodeType]struct{}{
	NodeHeading1: {}, NodeHeading2: {}, NodeHeading3: {}, NodeHeading4: {},
	NodeHeading5: {}, NodeHeading6: {}, NodeParagraph: {}, NodeListItemParagraph: {},
	NodeBlockquote: {}, NodeHyperlink: {}, NodeAssetHyperlink: {}, NodeEntryHyperlink: {},
	NodeOrderedList: {}, NodeUnorderedList: {}, NodeListItem: {}, NodeHR: {},
	NodeEmbeddedAssetBlock: {}, NodeText: {},
}

// Known reports whether t is one of the declared node types.
func (t NodeType) Known() bool {
	_, ok := knownNodeTypes[t]
	return ok
}

// IsHeading reports heading-1 through heading-6.
func (t NodeType) IsHeading() bool {
	switch t {
	case NodeHeading1, NodeHeading2, NodeHeading3, NodeHeading4, NodeHeading5, NodeHeading6:
		return true
	}
	return false
}

// IsLink reports the three inline link kinds.
func (t NodeType) IsLink() bool {
	return t == NodeHyperlink || t == NodeAssetHyperlink || t == NodeEntryHyperlink
}

// IsList reports the list-bearing container kinds.
func (t NodeType) IsList() bool {
	return t == NodeOrderedList || t == NodeUnorderedList
}

// IsLeaf reports kinds that never carry children.
func (t NodeType) IsLeaf() bool {
	return t == NodeText || t == NodeHR || t == NodeEmbeddedAssetBlock
}

// Mark decorates a text leaf.
type Mark string

const (
	MarkBold      Mark = "bold"
	MarkItalic    Mark = "italic"
	MarkUnderline Mark = "underline"
	MarkCode      Mark = "code"
)

// Node is one node of a rich-text document. Which fields are meaningful
// depends on Type:
//
//   - text: Value and Marks
//   - hyperlink: URI and Content
//   - asset-hyperlink, entry-hyperlink, embedded-asset-block: Target
//   - every other container: Content
//
// A nil Content behaves as empty.
type Node struct {
	Type    NodeType
	Content []Node
	Value   string
	Marks   []Mark
	URI     string
	Target  string
}

// Text builds a text leaf.
func Text(value string, marks ...Mark) Node {
	return Node{Type: NodeText, Value: value, Marks: marks}
}

// Container builds a node of the given type with children.
func Container(t NodeType, children ...Node) Node {
	return Node{Type: t, Content: children}
}

// Hyperlink builds a literal URI link.
func Hyperlink(uri string, children ...Node) Node {
	return Node{Type: NodeHyperlink, URI: uri, Content: children}
}

// Link builds an asset-hyperlink, entry-hyperlink, or embedded-asset-block
// pointing at target.
func Link(t NodeType, target string, children ...Node) Node {
	return Node{Type: t, Target: target, Content: children}
}

// MarkListItemParagraphs renames paragraphs that sit beneath a list-item to
// list-item-paragraph so they resolve against their own template. Renamed
// paragraphs are not descended into; other nodes below a list-item are.
func MarkListItemParagraphs(nodes []Node) {
	for i := range nodes {
		if nodes[i].Type == NodeListItem {
			renameParagraphs(nodes[i].Content)
			continue
		}
		MarkListItemParagraphs(nodes[i].Content)
	}
}

func renameParagraphs(nodes []Node) {
	for i := range nodes {
		if nodes[i].Type == NodeParagraph {
			nodes[i].Type = NodeListItemParagraph
			continue
		}
		renameParagraphs(nodes[i].Content)
	}
}

// PlainText concatenates the text leaves below n.
func PlainText(n Node) string {
	if n.Type == NodeText {
		return n.Value
	}
	var b strings.Builder
	for _, child := range n.Content {
		b.WriteString(PlainText(child))
	}
	return b.String()
}
