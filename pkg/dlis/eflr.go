package dlis

import (
	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// Component roles, the top three bits of a component descriptor
const (
	roleAbsentAttribute    = 0 // ABSATR
	roleAttribute          = 1 // ATTRIB
	roleInvariantAttribute = 2 // INVATR
	roleObject             = 3 // OBJECT
	roleReserved           = 4
	roleRedundantSet       = 5 // RDSET
	roleReplacementSet     = 6 // RSET
	roleSet                = 7 // SET
)

// Component descriptor flags
const (
	setType byte = 1 << 4
	setName byte = 1 << 3

	objectName byte = 1 << 4

	attrLabel byte = 1 << 4
	attrCount byte = 1 << 3
	attrReprc byte = 1 << 2
	attrUnits byte = 1 << 1
	attrValue byte = 1 << 0
)

var roleNames = [...]string{"ABSATR", "ATTRIB", "INVATR", "OBJECT", "reserved", "RDSET", "RSET", "SET"}

// Set is a decoded EFLR: a type, a template and the objects that
// follow it.
type Set struct {
	Type        string
	Name        string
	Redundant   bool
	Replacement bool
	Template    []Attribute
	Objects     []*Object
}

type parseState int

const (
	stateTemplate parseState = iota
	stateObject
	stateAttributes
)

// ParseSet decodes the payload of an explicitly formatted record.
// Deviations that lose no data are reported to h at info severity; a set
// that cannot be decoded returns an error wrapping
// fault.ErrMalformedComponent, fault.ErrUnsupportedReprCode or
// fault.ErrTruncatedInput.
func ParseSet(data []byte, h *fault.Handler) (*Set, error) {
	r := newReader(data)
	if r.done() {
		return nil, errors.Wrap(fault.ErrMalformedComponent, "set is empty")
	}

	desc, _ := r.u8()
	role := desc >> 5
	set := &Set{}
	switch role {
	case roleSet:
	case roleRedundantSet:
		set.Redundant = true
	case roleReplacementSet:
		set.Replacement = true
	default:
		return nil, errors.Wrapf(fault.ErrMalformedComponent,
			"expected SET component, got %s (descriptor 0x%02X)", roleNames[role], desc)
	}
	if desc&setType == 0 {
		return nil, errors.Wrap(fault.ErrMalformedComponent, "SET component has no type")
	}
	typ, err := r.ident()
	if err != nil {
		return nil, errors.Wrap(err, "reading set type")
	}
	set.Type = typ
	if desc&setName != 0 {
		if set.Name, err = r.ident(); err != nil {
			return nil, errors.Wrap(err, "reading set name")
		}
	}

	var (
		state    = stateTemplate
		current  *Object
		position int
		slots    []int // template positions an object attribute may fill
	)

	for !r.done() {
		desc, _ := r.peek()
		role := desc >> 5

		switch state {
		case stateTemplate:
			switch role {
			case roleAttribute, roleInvariantAttribute:
				r.pos++
				attr := Attribute{Count: 1, Code: IDENT, Invariant: role == roleInvariantAttribute}
				if desc&attrLabel == 0 {
					return nil, errors.Wrapf(fault.ErrMalformedComponent,
						"template attribute %d of %s has no label", len(set.Template)+1, set.Type)
				}
				if err := readAttribute(r, desc, &attr, true); err != nil {
					return nil, errors.Wrapf(err, "template attribute %d of %s", len(set.Template)+1, set.Type)
				}
				for i := range set.Template {
					if set.Template[i].Label == attr.Label {
						if err := h.Handle(fault.Report{
							Severity: fault.Warning,
							Context:  "dlis.ParseSet",
							Problem:  "duplicated attribute label in set template",
							Spec:     "RP66 V1 3.2.2.1: attribute labels are unique within a template",
							Action:   "the later definition replaces the earlier",
							Debug:    set.Type + "." + attr.Label,
						}); err != nil {
							return nil, err
						}
					}
				}
				set.Template = append(set.Template, attr)
			case roleObject:
				slots = templateSlots(set.Template)
				state = stateObject
			default:
				return nil, errors.Wrapf(fault.ErrMalformedComponent,
					"unexpected %s in template of %s", roleNames[role], set.Type)
			}

		case stateObject:
			if role != roleObject {
				return nil, errors.Wrapf(fault.ErrMalformedComponent,
					"expected OBJECT in %s, got %s", set.Type, roleNames[role])
			}
			r.pos++
			if desc&objectName == 0 {
				return nil, errors.Wrapf(fault.ErrMalformedComponent,
					"object %d of %s has no name", len(set.Objects)+1, set.Type)
			}
			name, err := r.obname()
			if err != nil {
				return nil, errors.Wrapf(err, "name of object %d of %s", len(set.Objects)+1, set.Type)
			}
			current = newObject(set.Type, name)
			for i := range set.Template {
				current.Attributes.Set(set.Template[i].Label, set.Template[i].clone())
			}
			set.Objects = append(set.Objects, current)
			position = 0
			state = stateAttributes

		case stateAttributes:
			switch role {
			case roleObject:
				state = stateObject
				continue
			case roleAttribute, roleAbsentAttribute:
			case roleInvariantAttribute:
				return nil, errors.Wrapf(fault.ErrMalformedComponent,
					"invariant attribute in object %s", current.Name)
			default:
				return nil, errors.Wrapf(fault.ErrMalformedComponent,
					"unexpected %s in object %s", roleNames[role], current.Name)
			}
			r.pos++
			if position >= len(slots) {
				return nil, errors.Wrapf(fault.ErrMalformedComponent,
					"object %s has more attributes than its template (%d)", current.Name, len(slots))
			}
			tmpl := &set.Template[slots[position]]
			position++
			attr := tmpl.clone()

			if role == roleAbsentAttribute {
				attr.Absent = true
				attr.Value = nil
				current.Attributes.Set(attr.Label, attr)
				continue
			}

			if desc&attrLabel != 0 {
				if err := h.Handle(fault.Report{
					Severity: fault.Info,
					Context:  "dlis.ParseSet",
					Problem:  "label bit set in object attribute",
					Spec:     "RP66 V1 3.2.2.2: object attributes take their label from the template",
					Action:   "label is read and ignored",
					Debug:    current.Name.String() + "." + tmpl.Label,
				}); err != nil {
					return nil, err
				}
			}
			if err := readAttribute(r, desc, attr, false); err != nil {
				return nil, errors.Wrapf(err, "attribute %s of object %s", tmpl.Label, current.Name)
			}
			if desc&attrValue == 0 {
				switch {
				case desc&attrCount != 0 && attr.Count == 0:
					attr.Value = []any{}
				case attr.Count != tmpl.Count || attr.Code != tmpl.Code:
					attr.Value = nil
					if err := h.Handle(fault.Report{
						Severity: fault.Info,
						Context:  "dlis.ParseSet",
						Problem:  "count or representation code changed without a new value",
						Spec:     "RP66 V1 3.2.2.2: the template value is only inherited with its count and code",
						Action:   "value is left undefined",
						Debug:    current.Name.String() + "." + tmpl.Label,
					}); err != nil {
						return nil, err
					}
				}
			}
			current.Attributes.Set(attr.Label, attr)
		}
	}

	if state == stateObject {
		return nil, errors.Wrapf(fault.ErrMalformedComponent, "set %s ends inside an object header", set.Type)
	}
	return set, nil
}

// templateSlots returns the template positions that object attributes
// map to. Invariant attributes take no position in an object.
func templateSlots(template []Attribute) []int {
	slots := make([]int, 0, len(template))
	for i := range template {
		if !template[i].Invariant {
			slots = append(slots, i)
		}
	}
	return slots
}

// readAttribute reads the characteristics flagged in desc into attr.
func readAttribute(r *reader, desc byte, attr *Attribute, template bool) error {
	if desc&attrLabel != 0 {
		label, err := r.ident()
		if err != nil {
			return errors.Wrap(err, "label")
		}
		if template {
			attr.Label = label
		}
	}
	if desc&attrCount != 0 {
		n, err := r.uvari()
		if err != nil {
			return errors.Wrap(err, "count")
		}
		attr.Count = int(n)
	}
	if desc&attrReprc != 0 {
		c, err := r.u8()
		if err != nil {
			return errors.Wrap(err, "representation code")
		}
		code := ReprCode(c)
		if !code.Valid() {
			return errors.Wrapf(fault.ErrUnsupportedReprCode, "representation code %d", c)
		}
		attr.Code = code
	}
	if desc&attrUnits != 0 {
		units, err := r.ident()
		if err != nil {
			return errors.Wrap(err, "units")
		}
		attr.Units = units
	}
	if desc&attrValue != 0 {
		vs, err := r.values(attr.Code, attr.Count)
		if err != nil {
			return errors.Wrap(err, "value")
		}
		attr.Value = vs
	}
	return nil
}
