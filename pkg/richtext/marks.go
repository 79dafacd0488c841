package richtext

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/content"
	"github.com/goliatone/go-contentbind/pkg/dom"
)

var (
	leafPolicyOnce sync.Once
	leafPolicy     *bluemonday.Policy
)

var markTags = map[content.Mark]string{
	content.MarkBold:      "b",
	content.MarkItalic:    "i",
	content.MarkUnderline: "u",
	content.MarkCode:      "code",
}

// leafMarkup builds the inline markup for a text leaf: line breaks become
// <br>, each known mark wraps the previous result in declaration order, and
// the whole is wrapped in a span.
func leafMarkup(leaf content.Node, logger zerolog.Logger) string {
	value := strings.ReplaceAll(leaf.Value, "\n", "<br>")
	for _, mark := range leaf.Marks {
		tag, ok := markTags[mark]
		if !ok {
			logger.Warn().Str("mark", string(mark)).Msg("Unknown rich text mark, ignoring")
			continue
		}
		value = "<" + tag + ">" + value + "</" + tag + ">"
	}
	return "<span>" + value + "</span>"
}

// renderLeaf sanitises the leaf markup and parses it into detached nodes.
func renderLeaf(leaf content.Node, logger zerolog.Logger) []*html.Node {
	cleaned := leafSanitizer().Sanitize(leafMarkup(leaf, logger))
	if cleaned == "" {
		return nil
	}
	nodes, err := dom.ParseFragment(cleaned)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not parse rich text leaf, emitting as text")
		return []*html.Node{dom.TextNode(leaf.Value)}
	}
	return nodes
}

func leafSanitizer() *bluemonday.Policy {
	leafPolicyOnce.Do(func() {
		policy := bluemonday.NewPolicy()
		policy.AllowElements("span", "b", "i", "u", "code", "br")
		leafPolicy = policy
	})
	return leafPolicy
}
