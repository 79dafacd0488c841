package contentful

import (
	"errors"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/content"
	"github.com/goliatone/go-contentbind/pkg/listing"
	"github.com/goliatone/go-contentbind/pkg/markup"
	"github.com/goliatone/go-contentbind/pkg/property"
)

// Result holds the resolved response, parallel to the page's declarations.
// Problems lists values that could not be resolved; the affected properties
// are marked missing so binding leaves their elements alone.
type Result struct {
	Lists    [][]*listing.Instance
	Contents []ContentValues
	Problems []error
}

// ContentValues are the decoded values of one content, parallel to its
// properties. Found is false when the entry was absent from the response.
type ContentValues struct {
	Values []property.Value
	Found  bool
}

// Err joins the problems, or returns nil when there are none.
func (r *Result) Err() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.Problems...)
}

// Resolve maps data, the response to BuildQuery(page), onto page.
func Resolve(page *markup.Page, data map[string]any) *Result {
	result := &Result{}
	if page == nil {
		return result
	}

	for _, list := range page.Lists {
		result.Lists = append(result.Lists, result.instances(list, data))
	}
	for _, c := range page.Contents {
		result.Contents = append(result.Contents, result.content(c, data))
	}
	return result
}

func (r *Result) instances(list *markup.List, data map[string]any) []*listing.Instance {
	field := CollectionField(list.Name())
	collection, ok := content.AsMap(data[field])
	if !ok {
		r.Problems = append(r.Problems, binderr.Newf(binderr.CodeInvalidInput, "response has no %s", field).
			With("list", list.Name()))
		return nil
	}
	items, _ := collection["items"].([]any)

	instances := make([]*listing.Instance, 0, len(items))
	for _, raw := range items {
		fields, ok := content.AsMap(raw)
		if !ok {
			continue
		}
		src := property.Source{ID: entryID(fields), Fields: fields}
		instances = append(instances, &listing.Instance{
			ID:     src.ID,
			Fields: fields,
			Values: r.decode(list.Binding.Properties, src, "list", list.Name()),
		})
	}
	return instances
}

func (r *Result) content(c *markup.Content, data map[string]any) ContentValues {
	fields, ok := content.AsMap(data[c.Alias])
	if !ok {
		r.Problems = append(r.Problems, binderr.Newf(binderr.CodeInvalidInput, "content %q with id %q not found", c.Name, c.ID).
			With("content", c.Name).
			With("id", c.ID))
		return ContentValues{}
	}
	src := property.Source{ID: c.ID, Fields: fields}
	if id := entryID(fields); id != "" {
		src.ID = id
	}
	return ContentValues{
		Values: r.decode(c.Properties, src, "content", c.Name),
		Found:  true,
	}
}

// decode decodes each property on its own so one bad field only drops that
// property.
func (r *Result) decode(properties []property.Property, src property.Source, scope, name string) []property.Value {
	values := make([]property.Value, len(properties))
	for i, p := range properties {
		v, err := property.Decode(p, src)
		if err != nil {
			var be *binderr.Error
			if errors.As(err, &be) {
				be.With(scope, name)
			}
			r.Problems = append(r.Problems, err)
			values[i] = property.Value{Kind: p.Kind, Missing: true}
			continue
		}
		values[i] = v
	}
	return values
}

func entryID(fields map[string]any) string {
	raw, ok := content.Lookup(fields, "sys.id")
	if !ok {
		return ""
	}
	id, _ := raw.(string)
	return id
}
