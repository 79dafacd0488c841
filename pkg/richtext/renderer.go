package richtext

import (
	"github.com/flosch/pongo2/v6"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/content"
	"github.com/goliatone/go-contentbind/pkg/dom"
)

// Renderer renders rich-text documents against a Registry. It holds no state
// between calls.
type Renderer struct {
	logger zerolog.Logger
}

// NewRenderer constructs a Renderer.
func NewRenderer(options ...Option) *Renderer {
	s := newSettings(options)
	return &Renderer{logger: s.logger}
}

// Render returns one fragment per top-level node that resolves to a
// template, in input order. Nodes without a template are dropped with a
// warning. A reference to an asset missing from its index aborts the whole
// render with a MISSING_ASSET error.
func (r *Renderer) Render(nodes []content.Node, registry *Registry, assets content.Assets) ([]*html.Node, error) {
	p := &pass{registry: registry, assets: assets, logger: r.logger}
	out := make([]*html.Node, 0, len(nodes))
	for _, node := range nodes {
		fragment, err := p.node(node)
		if err != nil {
			return nil, err
		}
		if fragment != nil {
			out = append(out, fragment)
		}
	}
	return out, nil
}

// Render is a convenience wrapper around a default Renderer.
func Render(nodes []content.Node, registry *Registry, assets content.Assets, options ...Option) ([]*html.Node, error) {
	return NewRenderer(options...).Render(nodes, registry, assets)
}

type pass struct {
	registry *Registry
	assets   content.Assets
	logger   zerolog.Logger
}

func (p *pass) template(t content.NodeType) (*Template, bool) {
	tpl, ok := p.registry.Lookup(t)
	if !ok {
		p.logger.Warn().Str("node_type", string(t)).Msg("Template for rich text node not found, ignoring this content")
	}
	return tpl, ok
}

func (p *pass) node(n content.Node) (*html.Node, error) {
	switch {
	case n.Type.IsHeading(),
		n.Type == content.NodeParagraph,
		n.Type == content.NodeListItemParagraph,
		n.Type == content.NodeBlockquote:
		return p.block(n)
	case n.Type == content.NodeHR:
		tpl, ok := p.template(n.Type)
		if !ok {
			return nil, nil
		}
		root, _ := tpl.Instantiate()
		return root, nil
	case n.Type == content.NodeEmbeddedAssetBlock:
		return p.embeddedAsset(n)
	case n.Type.IsList():
		return p.list(n)
	}

	p.logger.Warn().Str("node_type", string(n.Type)).Msg("Unsupported rich text node, ignoring this content")
	return nil, nil
}

func (p *pass) block(n content.Node) (*html.Node, error) {
	tpl, ok := p.template(n.Type)
	if !ok {
		return nil, nil
	}

	var contributions []*html.Node
	for _, child := range n.Content {
		switch {
		case child.Type == content.NodeText:
			contributions = append(contributions, renderLeaf(child, p.logger)...)
		case child.Type.IsLink():
			link, err := p.link(child)
			if err != nil {
				return nil, err
			}
			if link != nil {
				contributions = append(contributions, link)
			}
		case child.Type == content.NodeParagraph:
			inner, err := p.node(child)
			if err != nil {
				return nil, err
			}
			if inner != nil {
				contributions = append(contributions, inner)
			}
		default:
			p.logger.Warn().
				Str("node_type", string(child.Type)).
				Str("parent_type", string(n.Type)).
				Msg("Unknown rich text sub-node, ignoring this content")
		}
	}

	root, slot := tpl.Instantiate()
	dom.Clear(slot)
	dom.Append(slot, contributions...)
	return root, nil
}

func (p *pass) link(n content.Node) (*html.Node, error) {
	href, err := p.href(n)
	if err != nil {
		return nil, err
	}
	tpl, ok := p.template(n.Type)
	if !ok {
		return nil, nil
	}
	if n.Type == content.NodeEntryHyperlink {
		href = p.entryURL(tpl, n.Target)
	}

	root, slot := tpl.Instantiate()
	dom.SetAttr(slot, "href", href)
	dom.Clear(slot)
	for _, grandchild := range n.Content {
		if grandchild.Type != content.NodeText {
			p.logger.Warn().
				Str("node_type", string(grandchild.Type)).
				Str("parent_type", string(n.Type)).
				Msg("Rich text link can only hold text, ignoring this content")
			continue
		}
		dom.Append(slot, renderLeaf(grandchild, p.logger)...)
	}
	return root, nil
}

// href resolves the link target of hyperlink and asset-hyperlink nodes.
// Asset lookups check the hyperlink index first, then the block index.
func (p *pass) href(n content.Node) (string, error) {
	switch n.Type {
	case content.NodeHyperlink:
		return n.URI, nil
	case content.NodeAssetHyperlink:
		if asset, ok := p.assets.Hyperlink.Lookup(n.Target); ok {
			return asset.URL, nil
		}
		if asset, ok := p.assets.Block.Lookup(n.Target); ok {
			return asset.URL, nil
		}
		return "", binderr.MissingAsset(n.Target).With("node_type", string(n.Type))
	}
	return "", nil
}

func (p *pass) entryURL(tpl *Template, id string) string {
	if tpl.urlPattern == nil {
		return ""
	}
	out, err := tpl.urlPattern.Execute(pongo2.Context{entryIDPatternVar: id})
	if err != nil {
		p.logger.Warn().Err(err).Str("entry_id", id).Msg("Could not expand entry hyperlink URL")
		return ""
	}
	return out
}

func (p *pass) embeddedAsset(n content.Node) (*html.Node, error) {
	asset, ok := p.assets.Block.Lookup(n.Target)
	if !ok {
		return nil, binderr.MissingAsset(n.Target).With("node_type", string(n.Type))
	}
	tpl, ok := p.template(n.Type)
	if !ok {
		return nil, nil
	}
	root, slot := tpl.Instantiate()
	dom.SetAttr(slot, "src", asset.URL)
	dom.SetAttr(slot, "alt", asset.Title)
	return root, nil
}

func (p *pass) list(n content.Node) (*html.Node, error) {
	tpl, ok := p.template(n.Type)
	if !ok {
		return nil, nil
	}

	root := dom.Clone(tpl.prototype)
	outer := tpl.childSlot.Follow(root)
	if outer == nil {
		outer = root
	}
	dom.Clear(outer)

	for _, item := range n.Content {
		if item.Type != content.NodeListItem {
			p.logger.Warn().
				Str("node_type", string(item.Type)).
				Str("parent_type", string(n.Type)).
				Msg("Rich text list child is not a list item, ignoring this content")
			continue
		}
		itemRoot, itemSlot := tpl.child.Instantiate()
		for _, child := range item.Content {
			rendered, err := p.node(child)
			if err != nil {
				return nil, err
			}
			if rendered != nil {
				dom.Append(itemSlot, rendered)
			}
		}
		dom.Append(outer, itemRoot)
	}
	return root, nil
}
