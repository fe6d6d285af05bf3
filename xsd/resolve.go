package xsd

import (
	"github.com/cockroachdb/apd/v3"
)

type TypeKind int

const (
	TypeBuiltin TypeKind = iota
	TypeSimple
	TypeComplex
)

// Type is the resolved view of an element's or attribute's type. One
// Type value exists per type definition; identity comparison is safe.
type Type struct {
	Kind    TypeKind
	Name    QName
	Builtin *BuiltinType
	Simple  *SimpleType
	Complex *ComplexType

	set *SchemaSet
}

// IsAnonymous reports whether the type has no declared name.
func (t *Type) IsAnonymous() bool {
	return t.Name.Local == ""
}

// QualifiedName returns the Clark notation name, or "" for anonymous
// types.
func (t *Type) QualifiedName() string {
	if t.IsAnonymous() {
		return ""
	}
	return t.Name.String()
}

func (t *Type) LocalName() string {
	return t.Name.Local
}

func (t *Type) IsComplex() bool {
	return t.Kind == TypeComplex
}

func (t *Type) IsSimple() bool {
	return t.Kind != TypeComplex
}

func (t *Type) IsAbstract() bool {
	return t.Kind == TypeComplex && t.Complex.Abstract
}

func (s *SchemaSet) builtinType(local string) *Type {
	bt := BuiltinByName(local)
	if bt == nil {
		return nil
	}
	if s.btys == nil {
		s.btys = map[string]*Type{}
	}
	if cached, ok := s.btys[local]; ok {
		return cached
	}
	t := &Type{
		Kind:    TypeBuiltin,
		Name:    QName{XMLSchemaNamespace, local},
		Builtin: bt,
		set:     s,
	}
	s.btys[local] = t
	return t
}

func (s *SchemaSet) complexType(name QName, ct *ComplexType) *Type {
	if cached, ok := s.types[ct]; ok {
		return cached
	}
	t := &Type{Kind: TypeComplex, Name: name, Complex: ct, set: s}
	s.types[ct] = t
	return t
}

func (s *SchemaSet) simpleType(name QName, st *SimpleType) *Type {
	if cached, ok := s.stys[st]; ok {
		return cached
	}
	t := &Type{Kind: TypeSimple, Name: name, Simple: st, set: s}
	s.stys[st] = t
	return t
}

// ResolveType resolves a lexical type reference against the schema it
// appears in. Unknown names resolve to nil.
func (s *SchemaSet) ResolveType(ref string, schema *Schema) *Type {
	if ref == "" {
		return nil
	}
	var xmlns map[string]string
	if schema != nil {
		xmlns = schema.Xmlns
	}
	name := ParseQName(ref, xmlns)
	if name.Space == XMLSchemaNamespace {
		return s.builtinType(name.Local)
	}
	if ct, ok := s.complexTypes[name]; ok {
		return s.complexType(name, ct)
	}
	if st, ok := s.simpleTypes[name]; ok {
		return s.simpleType(name, st)
	}
	return nil
}

// TypeOf returns the element's resolved type: the referenced named
// type, the inline anonymous type, or anyType when the declaration
// carries none.
func (s *SchemaSet) TypeOf(el *Element) *Type {
	decl := s.Target(el)

	if decl.TypeRef != "" {
		if t := s.ResolveType(decl.TypeRef, decl.schema); t != nil {
			return t
		}
	}
	if decl.InlineComplex != nil {
		return s.complexType(QName{}, decl.InlineComplex)
	}
	if decl.InlineSimple != nil {
		return s.simpleType(QName{}, decl.InlineSimple)
	}

	return s.builtinType("anyType")
}

// AttributeType resolves an attribute declaration's type the same way.
func (s *SchemaSet) AttributeType(at *AttributeDecl) *Type {
	if at.TypeRef != "" {
		if t := s.ResolveType(at.TypeRef, at.schema); t != nil {
			return t
		}
	}
	if at.InlineSimple != nil {
		if at.InlineSimple.schema == nil {
			linkSimple(at.schema, at.InlineSimple)
		}
		return s.simpleType(QName{}, at.InlineSimple)
	}
	return s.builtinType("anySimpleType")
}

// effectiveModel returns the complex type's own content model,
// regardless of whether it is declared directly or inside a
// complexContent derivation.
func effectiveModel(ct *ComplexType) *Group {
	if ct.Model != nil {
		return ct.Model
	}
	if ct.ComplexContent != nil {
		if ct.ComplexContent.Extension != nil {
			return ct.ComplexContent.Extension.Model
		}
		if ct.ComplexContent.Restriction != nil {
			return ct.ComplexContent.Restriction.Model
		}
	}
	return nil
}

// BaseType returns the resolved base type definition, or nil for types
// without one (anyType, anonymous roots).
func (t *Type) BaseType() *Type {
	switch t.Kind {
	case TypeBuiltin:
		if t.Builtin.Base == "" {
			return nil
		}
		return t.set.builtinType(t.Builtin.Base)
	case TypeSimple:
		if t.Simple.Restriction != nil {
			if t.Simple.Restriction.Base != "" {
				return t.set.ResolveType(t.Simple.Restriction.Base, t.Simple.schema)
			}
			if t.Simple.Restriction.Inline != nil {
				return t.set.simpleType(QName{}, t.Simple.Restriction.Inline)
			}
		}
		return nil
	default:
		if dv := t.derivation(); dv != nil && dv.Base != "" {
			return t.set.ResolveType(dv.Base, t.Complex.schema)
		}
		return nil
	}
}

func (t *Type) derivation() *Derivation {
	if t.Kind != TypeComplex {
		return nil
	}
	for _, content := range []*Content{t.Complex.SimpleContent, t.Complex.ComplexContent} {
		if content == nil {
			continue
		}
		if content.Extension != nil {
			return content.Extension
		}
		if content.Restriction != nil {
			return content.Restriction
		}
	}
	return nil
}

// Derivation names the derivation method ("extension", "restriction")
// or returns "" for underived types.
func (t *Type) Derivation() string {
	switch t.Kind {
	case TypeSimple:
		if t.Simple.Restriction != nil {
			return "restriction"
		}
		return ""
	case TypeComplex:
		for _, content := range []*Content{t.Complex.SimpleContent, t.Complex.ComplexContent} {
			if content == nil {
				continue
			}
			if content.Extension != nil {
				return "extension"
			}
			if content.Restriction != nil {
				return "restriction"
			}
		}
		return ""
	default:
		return ""
	}
}

func (t *Type) IsExtension() bool {
	return t.Derivation() == "extension"
}

func (t *Type) IsRestriction() bool {
	return t.Derivation() == "restriction"
}

// PrimitiveLocalName walks the base chain down to the builtin primitive.
func (t *Type) PrimitiveLocalName() string {
	for cur := t; cur != nil; cur = cur.BaseType() {
		if cur.Kind == TypeBuiltin {
			return cur.Builtin.Primitive
		}
	}
	return "anyType"
}

// ContentTypeLabel classifies the type's content: "simple", "empty",
// "element-only" or "mixed".
func (t *Type) ContentTypeLabel() string {
	if t.Kind != TypeComplex {
		return "simple"
	}
	if t.Complex.SimpleContent != nil {
		return "simple"
	}
	if t.Complex.Mixed {
		return "mixed"
	}
	model := effectiveModel(t.Complex)
	if model == nil || len(model.Items) == 0 {
		// extension of a complex base without own particles still has
		// the base's content
		if base := t.BaseType(); base != nil && base.IsComplex() && t.IsExtension() {
			return base.ContentTypeLabel()
		}
		return "empty"
	}
	return "element-only"
}

// Enumeration returns the enumeration facet values of the nearest
// restriction declaring them, or nil.
func (t *Type) Enumeration() []string {
	for cur := t; cur != nil; cur = cur.BaseType() {
		if facets := cur.facets(); facets != nil && len(facets.Enumerations) > 0 {
			return facets.Enumerations
		}
	}
	return nil
}

func (t *Type) facets() *Facets {
	switch t.Kind {
	case TypeSimple:
		if t.Simple.Restriction != nil {
			return &t.Simple.Restriction.Facets
		}
	case TypeComplex:
		if dv := t.derivation(); dv != nil && dv.Facets.hasAny() {
			return &dv.Facets
		}
	}
	return nil
}

// MinLength returns the effective minLength facet, or nil.
func (t *Type) MinLength() *int {
	for cur := t; cur != nil; cur = cur.BaseType() {
		if facets := cur.facets(); facets != nil {
			if facets.Length != nil {
				return facets.Length
			}
			if facets.MinLength != nil {
				return facets.MinLength
			}
		}
	}
	return nil
}

// MaxLength returns the effective maxLength facet, or nil.
func (t *Type) MaxLength() *int {
	for cur := t; cur != nil; cur = cur.BaseType() {
		if facets := cur.facets(); facets != nil {
			if facets.Length != nil {
				return facets.Length
			}
			if facets.MaxLength != nil {
				return facets.MaxLength
			}
		}
	}
	return nil
}

// MinValue returns the effective lower value bound: the nearest
// minInclusive/minExclusive facet, falling back to the builtin value
// space.
func (t *Type) MinValue() *apd.Decimal {
	for cur := t; cur != nil; cur = cur.BaseType() {
		if facets := cur.facets(); facets != nil {
			if facets.MinInclusive != "" {
				if d, _, err := apd.NewFromString(facets.MinInclusive); err == nil {
					return d
				}
			}
			if facets.MinExclusive != "" {
				if d, _, err := apd.NewFromString(facets.MinExclusive); err == nil {
					out := &apd.Decimal{}
					if _, err := apd.BaseContext.Add(out, d, apd.New(1, 0)); err == nil {
						return out
					}
				}
			}
		}
		if cur.Kind == TypeBuiltin && cur.Builtin.MinValue != nil {
			return cur.Builtin.MinValue
		}
	}
	return nil
}

// MaxValue returns the effective upper value bound, facet first then
// builtin value space.
func (t *Type) MaxValue() *apd.Decimal {
	for cur := t; cur != nil; cur = cur.BaseType() {
		if facets := cur.facets(); facets != nil {
			if facets.MaxInclusive != "" {
				if d, _, err := apd.NewFromString(facets.MaxInclusive); err == nil {
					return d
				}
			}
			if facets.MaxExclusive != "" {
				if d, _, err := apd.NewFromString(facets.MaxExclusive); err == nil {
					out := &apd.Decimal{}
					if _, err := apd.BaseContext.Sub(out, d, apd.New(1, 0)); err == nil {
						return out
					}
				}
			}
		}
		if cur.Kind == TypeBuiltin && cur.Builtin.MaxValue != nil {
			return cur.Builtin.MaxValue
		}
	}
	return nil
}

// IsIntegerDerived reports whether the type's primitive chain passes
// through an integer builtin.
func (t *Type) IsIntegerDerived() bool {
	for cur := t; cur != nil; cur = cur.BaseType() {
		if cur.Kind == TypeBuiltin && cur.Builtin.IsInteger {
			return true
		}
	}
	return false
}

// ContentModel returns the type's own top level model group, or nil.
func (t *Type) ContentModel() *Group {
	if t.Kind != TypeComplex {
		return nil
	}
	return effectiveModel(t.Complex)
}

// ElementUse is one element (or wildcard) slot found while flattening a
// complex type's content model.
type ElementUse struct {
	Element *Element
	Decl    *Element
	Any     *Any
	Group   *Group
}

func (u *ElementUse) IsAny() bool {
	return u.Any != nil
}

func (u *ElementUse) MinOccurs() int {
	if u.Any != nil {
		return u.Any.MinOccurs()
	}
	return u.Element.MinOccurs()
}

// MaxOccurs returns the declared maximum, Unbounded included.
func (u *ElementUse) MaxOccurs() int {
	if u.Any != nil {
		return u.Any.MaxOccurs()
	}
	return u.Element.MaxOccurs()
}

// ChildUses flattens the type's content model into the ordered list of
// element and wildcard uses, extension base content first, nested
// groups expanded in document order.
func (t *Type) ChildUses() []*ElementUse {
	if t.Kind != TypeComplex {
		return nil
	}

	var uses []*ElementUse
	if t.IsExtension() {
		if base := t.BaseType(); base != nil && base.IsComplex() {
			uses = append(uses, base.ChildUses()...)
		}
	}
	collectUses(t.set, effectiveModel(t.Complex), &uses)
	return uses
}

func collectUses(set *SchemaSet, g *Group, out *[]*ElementUse) {
	if g == nil {
		return
	}
	for _, item := range g.Items {
		switch it := item.(type) {
		case *Element:
			*out = append(*out, &ElementUse{
				Element: it,
				Decl:    set.Target(it),
				Group:   g,
			})
		case *Group:
			collectUses(set, it, out)
		case *Any:
			*out = append(*out, &ElementUse{Any: it, Group: g})
		}
	}
}

// AttributeUse is one resolved attribute of a complex type.
type AttributeUse struct {
	Decl *AttributeDecl
	Type *Type
}

// AttributeUses collects the type's attributes, base chain first, in
// declaration order.
func (t *Type) AttributeUses() []*AttributeUse {
	if t.Kind != TypeComplex {
		return nil
	}

	var uses []*AttributeUse
	if base := t.BaseType(); base != nil && base.IsComplex() && t.Derivation() != "" {
		uses = append(uses, base.AttributeUses()...)
	}

	appendAttrs := func(attrs []*AttributeDecl) {
		for _, at := range attrs {
			if at.schema == nil {
				at.schema = t.Complex.schema
			}
			uses = append(uses, &AttributeUse{Decl: at, Type: t.set.AttributeType(at)})
		}
	}

	appendAttrs(t.Complex.Attributes)
	if dv := t.derivation(); dv != nil {
		appendAttrs(dv.Attributes)
	}

	return uses
}
