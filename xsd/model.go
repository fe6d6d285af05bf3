package xsd

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// Unbounded marks a particle whose maxOccurs is unlimited.
const Unbounded = -1

// Schema is the document model of a single parsed schema file. Lexical
// type references stay unresolved until the owning SchemaSet links them.
type Schema struct {
	TargetNamespace    string
	ElementFormDefault string
	Xmlns              map[string]string

	Imports      []*Import
	Includes     []*Include
	Elements     []*Element
	ComplexTypes []*ComplexType
	SimpleTypes  []*SimpleType
	Attributes   []*AttributeDecl
}

type Import struct {
	Namespace      string `xml:"namespace,attr"`
	SchemaLocation string `xml:"schemaLocation,attr"`
}

type Include struct {
	SchemaLocation string `xml:"schemaLocation,attr"`
}

// Element is a global or local element declaration.
type Element struct {
	Name              string
	TypeRef           string
	Ref               string
	MinOccursAttr     string
	MaxOccursAttr     string
	Abstract          bool
	Final             string
	SubstitutionGroup string

	InlineComplex *ComplexType
	InlineSimple  *SimpleType

	schema *Schema
	ref    *Element
}

// MinOccurs returns the declared minimum occurrence, defaulting to 1.
func (e *Element) MinOccurs() int {
	return parseOccurs(e.MinOccursAttr, 1)
}

// MaxOccurs returns the declared maximum occurrence, defaulting to 1.
// Unbounded is returned for maxOccurs="unbounded".
func (e *Element) MaxOccurs() int {
	return parseOccurs(e.MaxOccursAttr, 1)
}

func (e *Element) Schema() *Schema {
	return e.schema
}

// AttributeDecl is an attribute declaration inside a complex type or at
// schema top level.
type AttributeDecl struct {
	Name         string
	TypeRef      string
	Ref          string
	Use          string
	InlineSimple *SimpleType

	schema *Schema
}

func (a *AttributeDecl) IsRequired() bool {
	return a.Use == "required"
}

type GroupKind int

const (
	GroupSequence GroupKind = iota
	GroupChoice
	GroupAll
)

func (k GroupKind) String() string {
	switch k {
	case GroupSequence:
		return "sequence"
	case GroupChoice:
		return "choice"
	default:
		return "all"
	}
}

// Group is a model group (sequence, choice or all). Items holds the
// group's children in document order; each item is an *Element, a
// nested *Group or an *Any.
type Group struct {
	Kind          GroupKind
	MinOccursAttr string
	MaxOccursAttr string
	Items         []any

	parent *Group
}

func (g *Group) MinOccurs() int {
	return parseOccurs(g.MinOccursAttr, 1)
}

func (g *Group) MaxOccurs() int {
	return parseOccurs(g.MaxOccursAttr, 1)
}

func (g *Group) Parent() *Group {
	return g.parent
}

// Any is an element wildcard (xs:any).
type Any struct {
	Namespace       string `xml:"namespace,attr"`
	ProcessContents string `xml:"processContents,attr"`
	MinOccursAttr   string `xml:"minOccurs,attr"`
	MaxOccursAttr   string `xml:"maxOccurs,attr"`
}

func (a *Any) MinOccurs() int {
	return parseOccurs(a.MinOccursAttr, 1)
}

func (a *Any) MaxOccurs() int {
	return parseOccurs(a.MaxOccursAttr, 1)
}

// ComplexType is a named or anonymous complex type definition.
type ComplexType struct {
	Name     string
	Abstract bool
	Mixed    bool

	Model          *Group
	SimpleContent  *Content
	ComplexContent *Content
	Attributes     []*AttributeDecl
	AnyAttribute   bool

	schema *Schema
}

// Content carries either the extension or the restriction arm of a
// simpleContent/complexContent block.
type Content struct {
	Extension   *Derivation
	Restriction *Derivation
}

// Derivation is an extension or restriction of a named base type.
type Derivation struct {
	Base       string
	Model      *Group
	Attributes []*AttributeDecl
	Facets     Facets
}

// SimpleType is a named or anonymous simple type definition.
type SimpleType struct {
	Name        string
	Restriction *SimpleRestriction
	ListItem    string
	UnionOf     string

	schema *Schema
}

type SimpleRestriction struct {
	Base   string
	Facets Facets
	Inline *SimpleType
}

// Facets holds the constraining facets relevant to code generation.
type Facets struct {
	Length       *int
	MinLength    *int
	MaxLength    *int
	MinInclusive string
	MaxInclusive string
	MinExclusive string
	MaxExclusive string
	Enumerations []string
	Patterns     []string
}

func (f *Facets) hasAny() bool {
	return f.Length != nil || f.MinLength != nil || f.MaxLength != nil ||
		f.MinInclusive != "" || f.MaxInclusive != "" ||
		f.MinExclusive != "" || f.MaxExclusive != "" ||
		len(f.Enumerations) > 0 || len(f.Patterns) > 0
}

func parseOccurs(attr string, def int) int {
	if attr == "" {
		return def
	}
	if attr == "unbounded" {
		return Unbounded
	}
	n, err := strconv.Atoi(attr)
	if err != nil {
		return def
	}
	return n
}

/*
	Document parsing
*/

// UnmarshalXML collects the schema's namespace prefix table along with
// its top level components. Standard struct tags cannot capture xmlns
// declarations, so the schema element is decoded by hand.
func (s *Schema) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s.Xmlns = map[string]string{}

	for _, attr := range start.Attr {
		switch {
		case attr.Name.Space == "xmlns":
			s.Xmlns[attr.Name.Local] = attr.Value
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			s.Xmlns[""] = attr.Value
		case attr.Name.Local == "targetNamespace":
			s.TargetNamespace = attr.Value
		case attr.Name.Local == "elementFormDefault":
			s.ElementFormDefault = attr.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != XMLSchemaNamespace {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			switch t.Name.Local {
			case "import":
				x := &Import{}
				if err := d.DecodeElement(x, &t); err != nil {
					return err
				}
				s.Imports = append(s.Imports, x)
			case "include":
				x := &Include{}
				if err := d.DecodeElement(x, &t); err != nil {
					return err
				}
				s.Includes = append(s.Includes, x)
			case "element":
				x := &Element{}
				if err := x.unmarshal(d, t); err != nil {
					return err
				}
				s.Elements = append(s.Elements, x)
			case "complexType":
				x := &ComplexType{}
				if err := x.unmarshal(d, t); err != nil {
					return err
				}
				s.ComplexTypes = append(s.ComplexTypes, x)
			case "simpleType":
				x := &SimpleType{}
				if err := x.unmarshal(d, t); err != nil {
					return err
				}
				s.SimpleTypes = append(s.SimpleTypes, x)
			case "attribute":
				x := &AttributeDecl{}
				if err := x.unmarshal(d, t); err != nil {
					return err
				}
				s.Attributes = append(s.Attributes, x)
			case "annotation", "notation":
				if err := d.Skip(); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (e *Element) unmarshal(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "name":
			e.Name = attr.Value
		case "type":
			e.TypeRef = attr.Value
		case "ref":
			e.Ref = attr.Value
		case "minOccurs":
			e.MinOccursAttr = attr.Value
		case "maxOccurs":
			e.MaxOccursAttr = attr.Value
		case "abstract":
			e.Abstract = attr.Value == "true"
		case "final":
			e.Final = attr.Value
		case "substitutionGroup":
			e.SubstitutionGroup = attr.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "complexType":
				x := &ComplexType{}
				if err := x.unmarshal(d, t); err != nil {
					return err
				}
				e.InlineComplex = x
			case "simpleType":
				x := &SimpleType{}
				if err := x.unmarshal(d, t); err != nil {
					return err
				}
				e.InlineSimple = x
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (a *AttributeDecl) unmarshal(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "name":
			a.Name = attr.Value
		case "type":
			a.TypeRef = attr.Value
		case "ref":
			a.Ref = attr.Value
		case "use":
			a.Use = attr.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "simpleType" {
				x := &SimpleType{}
				if err := x.unmarshal(d, t); err != nil {
					return err
				}
				a.InlineSimple = x
			} else if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (c *ComplexType) unmarshal(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "name":
			c.Name = attr.Value
		case "abstract":
			c.Abstract = attr.Value == "true"
		case "mixed":
			c.Mixed = attr.Value == "true"
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sequence", "choice", "all":
				g, err := unmarshalGroup(d, t)
				if err != nil {
					return err
				}
				c.Model = g
			case "simpleContent":
				x, err := unmarshalContent(d, t)
				if err != nil {
					return err
				}
				c.SimpleContent = x
			case "complexContent":
				x, err := unmarshalContent(d, t)
				if err != nil {
					return err
				}
				c.ComplexContent = x
			case "attribute":
				x := &AttributeDecl{}
				if err := x.unmarshal(d, t); err != nil {
					return err
				}
				c.Attributes = append(c.Attributes, x)
			case "anyAttribute":
				c.AnyAttribute = true
				if err := d.Skip(); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func unmarshalContent(d *xml.Decoder, start xml.StartElement) (*Content, error) {
	content := &Content{}

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "extension":
				x, err := unmarshalDerivation(d, t)
				if err != nil {
					return nil, err
				}
				content.Extension = x
			case "restriction":
				x, err := unmarshalDerivation(d, t)
				if err != nil {
					return nil, err
				}
				content.Restriction = x
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return content, nil
		}
	}
}

func unmarshalDerivation(d *xml.Decoder, start xml.StartElement) (*Derivation, error) {
	dv := &Derivation{}
	for _, attr := range start.Attr {
		if attr.Name.Local == "base" {
			dv.Base = attr.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sequence", "choice", "all":
				g, err := unmarshalGroup(d, t)
				if err != nil {
					return nil, err
				}
				dv.Model = g
			case "attribute":
				x := &AttributeDecl{}
				if err := x.unmarshal(d, t); err != nil {
					return nil, err
				}
				dv.Attributes = append(dv.Attributes, x)
			default:
				if facet, ok := facetName(t.Name.Local); ok {
					if err := dv.Facets.read(facet, d, t); err != nil {
						return nil, err
					}
				} else if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return dv, nil
		}
	}
}

func unmarshalGroup(d *xml.Decoder, start xml.StartElement) (*Group, error) {
	g := &Group{}
	switch start.Name.Local {
	case "sequence":
		g.Kind = GroupSequence
	case "choice":
		g.Kind = GroupChoice
	case "all":
		g.Kind = GroupAll
	default:
		return nil, fmt.Errorf("xsd: unexpected model group <%s>", start.Name.Local)
	}

	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "minOccurs":
			g.MinOccursAttr = attr.Value
		case "maxOccurs":
			g.MaxOccursAttr = attr.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "element":
				x := &Element{}
				if err := x.unmarshal(d, t); err != nil {
					return nil, err
				}
				g.Items = append(g.Items, x)
			case "sequence", "choice", "all":
				sub, err := unmarshalGroup(d, t)
				if err != nil {
					return nil, err
				}
				sub.parent = g
				g.Items = append(g.Items, sub)
			case "any":
				x := &Any{}
				if err := d.DecodeElement(x, &t); err != nil {
					return nil, err
				}
				g.Items = append(g.Items, x)
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return g, nil
		}
	}
}

func (s *SimpleType) unmarshal(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "name" {
			s.Name = attr.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "restriction":
				r := &SimpleRestriction{}
				if err := r.unmarshal(d, t); err != nil {
					return err
				}
				s.Restriction = r
			case "list":
				for _, attr := range t.Attr {
					if attr.Name.Local == "itemType" {
						s.ListItem = attr.Value
					}
				}
				if err := d.Skip(); err != nil {
					return err
				}
			case "union":
				for _, attr := range t.Attr {
					if attr.Name.Local == "memberTypes" {
						s.UnionOf = attr.Value
					}
				}
				if err := d.Skip(); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (r *SimpleRestriction) unmarshal(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "base" {
			r.Base = attr.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "simpleType" {
				x := &SimpleType{}
				if err := x.unmarshal(d, t); err != nil {
					return err
				}
				r.Inline = x
				continue
			}
			if facet, ok := facetName(t.Name.Local); ok {
				if err := r.Facets.read(facet, d, t); err != nil {
					return err
				}
				continue
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func facetName(local string) (string, bool) {
	switch local {
	case "length", "minLength", "maxLength", "minInclusive", "maxInclusive",
		"minExclusive", "maxExclusive", "enumeration", "pattern":
		return local, true
	}
	return "", false
}

func (f *Facets) read(facet string, d *xml.Decoder, start xml.StartElement) error {
	value := ""
	for _, attr := range start.Attr {
		if attr.Name.Local == "value" {
			value = attr.Value
		}
	}
	if err := d.Skip(); err != nil {
		return err
	}

	switch facet {
	case "length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("xsd: invalid length facet %q: %w", value, err)
		}
		f.Length = &n
	case "minLength":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("xsd: invalid minLength facet %q: %w", value, err)
		}
		f.MinLength = &n
	case "maxLength":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("xsd: invalid maxLength facet %q: %w", value, err)
		}
		f.MaxLength = &n
	case "minInclusive":
		f.MinInclusive = value
	case "maxInclusive":
		f.MaxInclusive = value
	case "minExclusive":
		f.MinExclusive = value
	case "maxExclusive":
		f.MaxExclusive = value
	case "enumeration":
		f.Enumerations = append(f.Enumerations, value)
	case "pattern":
		f.Patterns = append(f.Patterns, value)
	}

	return nil
}
