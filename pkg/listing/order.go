package listing

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/content"
)

// OrderType selects how order keys are compared.
type OrderType string

const (
	OrderNumber OrderType = "number"
	OrderDate   OrderType = "date"
	OrderText   OrderType = "text"
)

// Direction selects the sort direction.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
	Random     Direction = "random"
)

// ParseOrderType validates an order type, defaulting blank to number.
func ParseOrderType(raw string) (OrderType, error) {
	switch t := OrderType(strings.TrimSpace(raw)); t {
	case "":
		return OrderNumber, nil
	case OrderNumber, OrderDate, OrderText:
		return t, nil
	}
	return "", binderr.Configuration("unsupported list order type %q", raw).With("order_type", raw)
}

// ParseDirection validates a direction, defaulting blank to ascending.
func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(strings.TrimSpace(raw)); d {
	case "":
		return Ascending, nil
	case Ascending, Descending, Random:
		return d, nil
	}
	return "", binderr.Configuration("unsupported list order direction %q", raw).With("direction", raw)
}

// OrderSpec configures list ordering. Key is a field name or dotted path
// into each instance's fields; it is ignored for random order.
type OrderSpec struct {
	Key       string
	Type      OrderType
	Direction Direction
}

// Order returns instances ordered by spec. The input slice is never
// modified. A nil spec keeps input order. Random order applies a
// Fisher-Yates shuffle drawing from r, or from the global source when r is
// nil.
func Order(instances []*Instance, spec *OrderSpec, r *rand.Rand) []*Instance {
	out := append([]*Instance(nil), instances...)
	if spec == nil {
		return out
	}
	if spec.Direction == Random {
		shuffle(out, r)
		return out
	}
	if strings.TrimSpace(spec.Key) == "" {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		if spec.Direction == Descending {
			return spec.compare(out[j], out[i]) < 0
		}
		return spec.compare(out[i], out[j]) < 0
	})
	return out
}

// compare orders a before b when negative. A missing key on the first
// operand sorts it after the second, then a missing key on the second
// operand sorts it after the first. Descending order swaps the operands of
// this whole comparison, so missing keys move to the front there.
func (s OrderSpec) compare(a, b *Instance) int {
	ka, okA := a.orderKey(s.Key)
	if !okA {
		return 1
	}
	kb, okB := b.orderKey(s.Key)
	if !okB {
		return -1
	}

	switch s.Type {
	case OrderDate:
		ta, errA := toTime(ka)
		tb, errB := toTime(kb)
		if errA != nil || errB != nil {
			return 0
		}
		return ta.Compare(tb)
	case OrderText:
		return strings.Compare(toText(ka), toText(kb))
	default:
		na, okA := toNumber(ka)
		nb, okB := toNumber(kb)
		if !okA || !okB {
			return 0
		}
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
}

func shuffle(items []*Instance, r *rand.Rand) {
	intN := rand.IntN
	if r != nil {
		intN = r.IntN
	}
	for i := len(items) - 1; i > 0; i-- {
		j := intN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// orderKey returns the instance's key value; nil and blank values are
// missing.
func (inst *Instance) orderKey(key string) (any, bool) {
	if inst == nil {
		return nil, false
	}
	v, ok := content.Lookup(inst.Fields, key)
	if !ok || v == nil {
		return nil, false
	}
	if strings.TrimSpace(toText(v)) == "" {
		return nil, false
	}
	return v, true
}

func toText(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func toNumber(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case bool:
		if typed {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, error) {
	switch typed := v.(type) {
	case time.Time:
		return typed, nil
	case string:
		return content.ParseTime(typed)
	}
	return time.Time{}, fmt.Errorf("not a date: %T", v)
}
