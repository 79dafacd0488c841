package content

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-contentbind/pkg/binderr"
)

// DecodeRichText converts the API's rich-text field payload
// (`{json:{content:[...]}, links:{assets:{hyperlink:[...], block:[...]}}}`)
// into a RichText value. The payload is the generic tree produced by
// encoding/json or yaml.v3. An absent payload decodes to an empty document.
func DecodeRichText(payload any) (RichText, error) {
	if payload == nil {
		return RichText{}, nil
	}
	root, ok := AsMap(payload)
	if !ok {
		return RichText{}, binderr.Newf(binderr.CodeInvalidInput, "rich text: expected object, got %T", payload)
	}

	var doc RichText
	if raw, ok := root["json"]; ok && raw != nil {
		document, ok := AsMap(raw)
		if !ok {
			return RichText{}, binderr.Newf(binderr.CodeInvalidInput, "rich text: json must be an object, got %T", raw)
		}
		nodes, err := DecodeNodes(document["content"])
		if err != nil {
			return RichText{}, err
		}
		doc.Nodes = nodes
	}

	if assets, ok := Lookup(root, "links.assets"); ok {
		assetMap, _ := AsMap(assets)
		hyperlink, err := decodeAssets(assetMap["hyperlink"])
		if err != nil {
			return RichText{}, fmt.Errorf("rich text hyperlink assets: %w", err)
		}
		block, err := decodeAssets(assetMap["block"])
		if err != nil {
			return RichText{}, fmt.Errorf("rich text block assets: %w", err)
		}
		doc.Assets = Assets{Hyperlink: NewAssetIndex(hyperlink...), Block: NewAssetIndex(block...)}
	}

	MarkListItemParagraphs(doc.Nodes)
	return doc, nil
}

// DecodeNodes converts a generic `content` array into nodes. Nil decodes to an
// empty slice.
func DecodeNodes(raw any) ([]Node, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, binderr.Newf(binderr.CodeInvalidInput, "rich text: content must be an array, got %T", raw)
	}
	out := make([]Node, 0, len(items))
	for idx, item := range items {
		node, err := decodeNode(item)
		if err != nil {
			return nil, fmt.Errorf("content[%d]: %w", idx, err)
		}
		out = append(out, node)
	}
	return out, nil
}

func decodeNode(raw any) (Node, error) {
	fields, ok := AsMap(raw)
	if !ok {
		return Node{}, binderr.Newf(binderr.CodeInvalidInput, "rich text: node must be an object, got %T", raw)
	}
	nodeType := strings.TrimSpace(stringValue(fields["nodeType"]))
	if nodeType == "" {
		return Node{}, binderr.New(binderr.CodeInvalidInput, "rich text: node without nodeType")
	}

	node := Node{Type: NodeType(nodeType)}
	if node.Type == NodeText {
		node.Value = stringValue(fields["value"])
		if marks, ok := fields["marks"].([]any); ok {
			for _, mark := range marks {
				markFields, _ := AsMap(mark)
				if kind := stringValue(markFields["type"]); kind != "" {
					node.Marks = append(node.Marks, Mark(kind))
				}
			}
		}
		return node, nil
	}

	if uri, ok := Lookup(fields, "data.uri"); ok {
		node.URI = stringValue(uri)
	}
	if id, ok := Lookup(fields, "data.target.sys.id"); ok {
		node.Target = stringValue(id)
	}

	children, err := DecodeNodes(fields["content"])
	if err != nil {
		return Node{}, err
	}
	node.Content = children
	return node, nil
}

func decodeAssets(raw any) ([]Asset, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, binderr.Newf(binderr.CodeInvalidInput, "assets must be an array, got %T", raw)
	}
	out := make([]Asset, 0, len(items))
	for _, item := range items {
		fields, ok := AsMap(item)
		if !ok {
			continue
		}
		id, _ := Lookup(fields, "sys.id")
		out = append(out, Asset{
			ID:    stringValue(id),
			URL:   stringValue(fields["url"]),
			Title: stringValue(fields["title"]),
		})
	}
	return out, nil
}

// Lookup walks a dotted path through nested maps. An exact key match on the
// full path wins over traversal.
func Lookup(values map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}

	var current any = values
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		m, ok := AsMap(current)
		if !ok {
			return nil, false
		}
		next, ok := m[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// AsMap normalises the two map shapes decoders produce.
func AsMap(v any) (map[string]any, bool) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func stringValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}
