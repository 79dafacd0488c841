package content

import "strings"

// Asset is a resolved media reference.
type Asset struct {
	ID    string
	URL   string
	Title string
}

// AssetIndex maps asset id to its resolved asset. Built once before rendering
// and treated as read-only afterwards.
type AssetIndex map[string]Asset

// NewAssetIndex indexes assets by id. Later duplicates win; blank ids are
// skipped.
func NewAssetIndex(assets ...Asset) AssetIndex {
	idx := make(AssetIndex, len(assets))
	for _, asset := range assets {
		id := strings.TrimSpace(asset.ID)
		if id == "" {
			continue
		}
		asset.ID = id
		idx[id] = asset
	}
	return idx
}

// Lookup resolves an id. A nil index never resolves.
func (idx AssetIndex) Lookup(id string) (Asset, bool) {
	if idx == nil {
		return Asset{}, false
	}
	asset, ok := idx[strings.TrimSpace(id)]
	return asset, ok
}

// Assets holds the two independent indices of a rich-text property.
type Assets struct {
	Hyperlink AssetIndex
	Block     AssetIndex
}

// RichText is a decoded rich-text property value.
type RichText struct {
	Nodes  []Node
	Assets Assets
}
