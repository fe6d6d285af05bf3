package xsd

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaSet is a linked collection of schema documents: the root schema
// named at load time plus every include and import reachable from it.
type SchemaSet struct {
	root    *Schema
	schemas []*Schema

	elements     map[QName]*Element
	complexTypes map[QName]*ComplexType
	simpleTypes  map[QName]*SimpleType

	// substitution group head name to member element declarations
	substitutionGroups map[QName][]*Element

	types map[*ComplexType]*Type
	stys  map[*SimpleType]*Type
	btys  map[string]*Type
}

// Load reads the schema at path (joined to baseDir unless absolute),
// resolving relative include and import locations against the directory
// of the document that declares them.
func Load(path, baseDir string) (*SchemaSet, error) {
	set := &SchemaSet{
		elements:           map[QName]*Element{},
		complexTypes:       map[QName]*ComplexType{},
		simpleTypes:        map[QName]*SimpleType{},
		substitutionGroups: map[QName][]*Element{},
		types:              map[*ComplexType]*Type{},
		stys:               map[*SimpleType]*Type{},
	}

	loaded := map[string]bool{}
	root, err := set.load(path, baseDir, loaded)
	if err != nil {
		return nil, err
	}
	set.root = root

	set.link()

	return set, nil
}

func (s *SchemaSet) load(path, baseDir string, loaded map[string]bool) (*Schema, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(baseDir, path)
	}
	full = filepath.Clean(full)

	if loaded[full] {
		return nil, nil
	}
	loaded[full] = true

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("xsd: reading schema: %w", err)
	}

	schema := &Schema{}
	if err := xml.Unmarshal(data, schema); err != nil {
		return nil, fmt.Errorf("xsd: parsing %s: %w", full, err)
	}
	s.schemas = append(s.schemas, schema)

	dir := filepath.Dir(full)
	for _, inc := range schema.Includes {
		if _, err := s.load(inc.SchemaLocation, dir, loaded); err != nil {
			return nil, err
		}
	}
	for _, imp := range schema.Imports {
		if imp.SchemaLocation == "" {
			continue
		}
		if _, err := s.load(imp.SchemaLocation, dir, loaded); err != nil {
			return nil, err
		}
	}

	return schema, nil
}

func (s *SchemaSet) link() {
	for _, schema := range s.schemas {
		for _, el := range schema.Elements {
			el.schema = schema
			s.elements[QName{schema.TargetNamespace, el.Name}] = el
			linkInline(schema, el)
		}
		for _, ct := range schema.ComplexTypes {
			ct.schema = schema
			s.complexTypes[QName{schema.TargetNamespace, ct.Name}] = ct
			linkGroupElements(schema, effectiveModel(ct))
		}
		for _, st := range schema.SimpleTypes {
			linkSimple(schema, st)
			s.simpleTypes[QName{schema.TargetNamespace, st.Name}] = st
		}
		for _, at := range schema.Attributes {
			at.schema = schema
		}
	}

	// second pass: element references and substitution groups need the
	// global element table complete
	for _, schema := range s.schemas {
		for _, el := range schema.Elements {
			s.linkElement(schema, el)
		}
		for _, ct := range schema.ComplexTypes {
			s.linkGroup(schema, effectiveModel(ct))
		}
	}
}

func linkInline(schema *Schema, el *Element) {
	if el.InlineComplex != nil {
		el.InlineComplex.schema = schema
		linkGroupElements(schema, effectiveModel(el.InlineComplex))
	}
	if el.InlineSimple != nil {
		linkSimple(schema, el.InlineSimple)
	}
}

func linkSimple(schema *Schema, st *SimpleType) {
	st.schema = schema
	if st.Restriction != nil && st.Restriction.Inline != nil {
		linkSimple(schema, st.Restriction.Inline)
	}
}

func linkGroupElements(schema *Schema, g *Group) {
	if g == nil {
		return
	}
	for _, item := range g.Items {
		switch it := item.(type) {
		case *Element:
			it.schema = schema
			linkInline(schema, it)
		case *Group:
			linkGroupElements(schema, it)
		}
	}
}

func (s *SchemaSet) linkElement(schema *Schema, el *Element) {
	if el.Ref != "" {
		ref := ParseQName(el.Ref, schema.Xmlns)
		el.ref = s.elements[ref]
	}
	if el.SubstitutionGroup != "" {
		head := ParseQName(el.SubstitutionGroup, schema.Xmlns)
		s.substitutionGroups[head] = append(s.substitutionGroups[head], el)
	}
	if el.InlineComplex != nil {
		s.linkGroup(schema, effectiveModel(el.InlineComplex))
	}
}

func (s *SchemaSet) linkGroup(schema *Schema, g *Group) {
	if g == nil {
		return
	}
	for _, item := range g.Items {
		switch it := item.(type) {
		case *Element:
			s.linkElement(schema, it)
		case *Group:
			s.linkGroup(schema, it)
		}
	}
}

// Root returns the schema document Load was called with.
func (s *SchemaSet) Root() *Schema {
	return s.root
}

// Schemas returns every loaded schema document in load order.
func (s *SchemaSet) Schemas() []*Schema {
	return s.schemas
}

// SchemaForNamespace returns the first loaded schema with the given
// target namespace.
func (s *SchemaSet) SchemaForNamespace(ns string) *Schema {
	for _, schema := range s.schemas {
		if schema.TargetNamespace == ns {
			return schema
		}
	}
	return nil
}

// GlobalElement resolves a global element declaration by qualified name.
func (s *SchemaSet) GlobalElement(name QName) *Element {
	return s.elements[name]
}

// SubstitutionGroup returns the concrete members declared for the given
// substitution group head, in schema document order.
func (s *SchemaSet) SubstitutionGroup(head QName) []*Element {
	return s.substitutionGroups[head]
}

// Target dereferences an element reference, returning the element
// itself when it is not a reference.
func (s *SchemaSet) Target(el *Element) *Element {
	if el.Ref != "" && el.ref != nil {
		return el.ref
	}
	return el
}
