package dlis

import (
	"encoding/json"
	"math"

	"github.com/elliotchance/orderedmap/v3"
)

// Attribute is one labelled value of an object or a set template.
type Attribute struct {
	Label     string   `json:"label"`
	Count     int      `json:"count"`
	Code      ReprCode `json:"reprc"`
	Units     string   `json:"units,omitempty"`
	Value     []any    `json:"value"` // nil when undefined or absent
	Absent    bool     `json:"absent,omitempty"`
	Invariant bool     `json:"invariant,omitempty"`
}

func (a *Attribute) clone() *Attribute {
	c := *a
	if a.Value != nil {
		c.Value = append(make([]any, 0, len(a.Value)), a.Value...)
	}
	return &c
}

// Object is a named entity of a set, with its attributes in template order.
type Object struct {
	Type       string
	Name       ObjectName
	Attributes *orderedmap.OrderedMap[string, *Attribute]
}

func newObject(typ string, name ObjectName) *Object {
	return &Object{
		Type:       typ,
		Name:       name,
		Attributes: orderedmap.NewOrderedMap[string, *Attribute](),
	}
}

// Fingerprint returns the pool key of o.
func (o *Object) Fingerprint() Fingerprint {
	return Fingerprint{Type: o.Type, Name: o.Name}
}

// Attribute returns the attribute with the given label.
func (o *Object) Attribute(label string) (*Attribute, bool) {
	return o.Attributes.Get(label)
}

// Values returns the value of an attribute, nil if it is missing,
// absent or undefined.
func (o *Object) Values(label string) []any {
	attr, ok := o.Attributes.Get(label)
	if !ok || attr.Absent {
		return nil
	}
	return attr.Value
}

// Labels returns the attribute labels in order.
func (o *Object) Labels() []string {
	labels := make([]string, 0, o.Attributes.Len())
	for el := o.Attributes.Front(); el != nil; el = el.Next() {
		labels = append(labels, el.Key)
	}
	return labels
}

// MarshalJSON encodes the object with its attributes as an ordered list.
// Complex values are written as [real, imaginary] pairs, NaN and
// infinities as null.
func (o *Object) MarshalJSON() ([]byte, error) {
	attrs := make([]Attribute, 0, o.Attributes.Len())
	for el := o.Attributes.Front(); el != nil; el = el.Next() {
		a := *el.Value
		a.Value = jsonValues(a.Value)
		attrs = append(attrs, a)
	}
	return json.Marshal(struct {
		Type        string      `json:"type"`
		Name        ObjectName  `json:"name"`
		Fingerprint string      `json:"fingerprint"`
		Attributes  []Attribute `json:"attributes"`
	}{o.Type, o.Name, o.Fingerprint().String(), attrs})
}

func jsonValues(vs []any) []any {
	if vs == nil {
		return nil
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = jsonValue(v)
	}
	return out
}

func jsonValue(v any) any {
	switch c := v.(type) {
	case complex64:
		return [2]float32{real(c), imag(c)}
	case complex128:
		return [2]float64{real(c), imag(c)}
	case float32:
		if f := float64(c); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return v
	case float64:
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil
		}
		return v
	default:
		return v
	}
}

// merge folds the attributes of other into o. Later values win, except
// that an absent attribute does not replace a present one.
func (o *Object) merge(other *Object) {
	for el := other.Attributes.Front(); el != nil; el = el.Next() {
		if current, ok := o.Attributes.Get(el.Key); ok && el.Value.Absent && !current.Absent {
			continue
		}
		o.Attributes.Set(el.Key, el.Value)
	}
}

// Pool holds the objects of one logical file.
type Pool struct {
	objects *orderedmap.OrderedMap[Fingerprint, *Object]
	types   *orderedmap.OrderedMap[string, int]
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		objects: orderedmap.NewOrderedMap[Fingerprint, *Object](),
		types:   orderedmap.NewOrderedMap[string, int](),
	}
}

// Add inserts the objects of a set.
func (p *Pool) Add(set *Set) {
	for _, obj := range set.Objects {
		key := obj.Fingerprint()
		if existing, ok := p.objects.Get(key); ok {
			existing.merge(obj)
			continue
		}
		p.objects.Set(key, obj)
		n, _ := p.types.Get(obj.Type)
		p.types.Set(obj.Type, n+1)
	}
}

// Len returns the number of distinct objects.
func (p *Pool) Len() int {
	return p.objects.Len()
}

// Find returns the object with the given type and name.
func (p *Pool) Find(typ string, name ObjectName) (*Object, bool) {
	return p.objects.Get(Fingerprint{Type: typ, Name: name})
}

// Object returns the object identified by type, id, origin and copy number.
func (p *Pool) Object(typ, id string, origin uint32, copyNumber uint8) (*Object, bool) {
	return p.Find(typ, ObjectName{Origin: origin, Copy: copyNumber, ID: id})
}

// Objects returns all objects of a type in insertion order.
func (p *Pool) Objects(typ string) []*Object {
	var out []*Object
	for el := p.objects.Front(); el != nil; el = el.Next() {
		if el.Key.Type == typ {
			out = append(out, el.Value)
		}
	}
	return out
}

// All returns every object in insertion order.
func (p *Pool) All() []*Object {
	out := make([]*Object, 0, p.objects.Len())
	for el := p.objects.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Types returns the set types present, in order of first appearance.
func (p *Pool) Types() []string {
	out := make([]string, 0, p.types.Len())
	for el := p.types.Front(); el != nil; el = el.Next() {
		out = append(out, el.Key)
	}
	return out
}

// Lookup resolves a reference value to its object. OBJREF and ATTREF
// carry their own type; a bare OBNAME needs typ.
func (p *Pool) Lookup(typ string, ref any) (*Object, bool) {
	switch v := ref.(type) {
	case ObjectRef:
		return p.Find(v.Type, v.Name)
	case AttributeRef:
		return p.Find(v.Type, v.Name)
	case ObjectName:
		return p.Find(typ, v)
	default:
		return nil, false
	}
}

// LookupAll resolves every value of an attribute, skipping references
// to objects not in the pool.
func (p *Pool) LookupAll(typ string, refs []any) []*Object {
	var out []*Object
	for _, ref := range refs {
		if obj, ok := p.Lookup(typ, ref); ok {
			out = append(out, obj)
		}
	}
	return out
}
