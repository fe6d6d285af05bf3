package analyzer

import (
	"github.com/sirupsen/logrus"

	"github.com/chargeport/exigen/utils"
	"github.com/chargeport/exigen/xsd"
)

// DefaultMaxDepth caps the schema child recursion to defend against
// pathological schemas.
const DefaultMaxDepth = 10

// Options carries the per-schema configuration the analyzer consumes.
type Options struct {
	Prefix string

	// OccurrenceLimits maps particle names to the finite cap replacing
	// maxOccurs="unbounded"; names without an entry default to 1.
	OccurrenceLimits map[string]int

	ApplyOptimizations bool
	ArrayOptimizations map[string]int

	// FieldOptimizations names particles to suppress inside the listed
	// parent types (empty list suppresses everywhere).
	FieldOptimizations map[string][]string

	Fragments    []string
	AddDebugCode bool

	MaxDepth int
}

// SchemaAnalyzer lifts a loaded schema set into the canonical
// element/particle model.
type SchemaAnalyzer struct {
	set  *xsd.SchemaSet
	data *AnalyzerData
	opts Options
	log  *logrus.Entry
}

func NewSchemaAnalyzer(set *xsd.SchemaSet, opts Options, log *logrus.Entry) *SchemaAnalyzer {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &SchemaAnalyzer{
		set:  set,
		opts: opts,
		log:  log.WithField("prefix", opts.Prefix),
	}
}

// Analyze walks the schema and returns the finished AnalyzerData. The
// walk itself fails only on fatal conditions (depth overflow,
// unresolvable substitution groups); occurrence corrections are
// warnings with a safe default.
func (a *SchemaAnalyzer) Analyze() (*AnalyzerData, error) {
	a.data = NewAnalyzerData()
	a.data.SchemaIdentifier = a.opts.Prefix
	a.data.AddDebugCodeEnabled = a.opts.AddDebugCode

	if err := a.analyzeSchemaElements(); err != nil {
		return nil, err
	}

	a.buildSchemaBuiltinTypesList()
	a.buildGenerateElementsTypesList()
	a.buildNamespaceElementLists()
	a.scanAbstractTypesForNamespaceElements()

	// Caution! This has to be done after scanning for abstract types,
	// not before. Otherwise the types are not generated correctly.
	a.scanElementsForEmptyContent()
	a.scanParticlesForEmptyParentType()

	a.adjustChoiceElements()

	if a.opts.ApplyOptimizations {
		a.applyArrayOptimizations()
	}
	a.applyFieldOptimizations()
	a.collectFragments()

	a.prepareForTypeGeneration()

	return a.data, nil
}

func (a *SchemaAnalyzer) analyzeSchemaElements() error {
	rootNS := a.set.Root().TargetNamespace

	count := 0
	for _, schema := range a.set.Schemas() {
		if schema.TargetNamespace != rootNS {
			continue
		}
		for _, element := range schema.Elements {
			substList := []*xsd.Element{}
			elementData, err := a.elementDataFor(element, 0, count, &substList)
			if err != nil {
				return err
			}

			elementType := a.set.TypeOf(element)
			if elementType.IsComplex() {
				key := elementType.QualifiedName()
				short := elementType.LocalName()
				if key == "" {
					key = a.qualifiedElementName(element)
					short = element.Name
				}
				if !utils.ContainsKey(a.data.KnownElements, key) {
					a.data.KnownElements[key] = short
					a.data.GenerateElements = append(a.data.GenerateElements, elementData)
					a.data.RootElements = append(a.data.RootElements, elementData)
				}
			}

			if err := a.childTree(element, 0); err != nil {
				return err
			}
			count++
		}
	}

	return nil
}

// childTree descends the content tree of the given element, registering
// every complex or enum typed child for generation.
func (a *SchemaAnalyzer) childTree(element *xsd.Element, level int) error {
	level++
	if level > a.opts.MaxDepth {
		return newSchemaError(a.qualifiedElementName(element),
			"recursion depth exceeds %d", a.opts.MaxDepth)
	}

	count := 0
	for _, use := range a.set.TypeOf(element).ChildUses() {
		if use.IsAny() {
			continue
		}
		count++

		child := use.Decl
		childType := a.set.TypeOf(child)

		if child.Abstract {
			substList := []*xsd.Element{}
			childData, err := a.elementDataFor(child, level, count, &substList)
			if err != nil {
				return err
			}
			if use.Element.Ref != "" {
				childData.Ref = xsd.ParseQName(use.Element.Ref, use.Element.Schema().Xmlns).Local
			}
			if a.addToKnownElements(child) {
				a.data.GenerateElements = append(a.data.GenerateElements, childData)
			}

			group := a.set.SubstitutionGroup(a.qnameOf(child))
			if len(group) == 0 {
				return newSchemaError(a.qualifiedElementName(child),
					"no substitution group found for abstract element")
			}
			for _, substitute := range group {
				if err := a.descendSubstitute(substitute, level); err != nil {
					return err
				}
			}
			continue
		}

		substList := []*xsd.Element{}
		childData, err := a.elementDataFor(child, level, count, &substList)
		if err != nil {
			return err
		}
		if use.Element.Ref != "" {
			childData.Ref = xsd.ParseQName(use.Element.Ref, use.Element.Schema().Xmlns).Local
		}

		for _, substitute := range substList {
			if err := a.descendSubstitute(substitute, level); err != nil {
				return err
			}
		}

		if childType.IsComplex() || childData.TypeDefinition == TypeDefinitionEnum {
			if a.addToKnownElements(child) {
				a.data.GenerateElements = append(a.data.GenerateElements, childData)
			}
			if childType.IsComplex() && len(childType.ChildUses()) > 0 {
				if err := a.childTree(child, level); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (a *SchemaAnalyzer) descendSubstitute(substitute *xsd.Element, level int) error {
	substituteType := a.set.TypeOf(substitute)
	if !substituteType.IsComplex() {
		return nil
	}

	if a.addToKnownElements(substitute) {
		substList := []*xsd.Element{}
		substituteData, err := a.elementDataFor(substitute, level, 0, &substList)
		if err != nil {
			return err
		}
		a.data.GenerateElements = append(a.data.GenerateElements, substituteData)
	}

	return a.childTree(substitute, level)
}

func (a *SchemaAnalyzer) addToKnownElements(element *xsd.Element) bool {
	t := a.set.TypeOf(element)
	key := t.QualifiedName()
	short := t.LocalName()
	if key == "" {
		key = a.qualifiedElementName(element)
		short = element.Name
	}
	if utils.ContainsKey(a.data.KnownElements, key) {
		return false
	}
	a.data.KnownElements[key] = short
	return true
}

func (a *SchemaAnalyzer) addToMaxOccurs(name string, occurrence int) {
	if !utils.ContainsKey(a.data.MaxOccursChanged, name) {
		a.data.MaxOccursChanged[name] = occurrence
	}
}

/*
	name helpers
*/

func (a *SchemaAnalyzer) qnameOf(element *xsd.Element) xsd.QName {
	ns := ""
	if element.Schema() != nil {
		ns = element.Schema().TargetNamespace
	}
	return xsd.QName{Space: ns, Local: element.Name}
}

func (a *SchemaAnalyzer) qualifiedElementName(element *xsd.Element) string {
	return a.qnameOf(element).String()
}

func typeName(t *xsd.Type) string {
	if t == nil {
		return ""
	}
	if t.QualifiedName() != "" {
		return t.QualifiedName()
	}
	return "AnonymousType"
}

func typeNameShort(t *xsd.Type) string {
	if t == nil {
		return ""
	}
	if t.LocalName() != "" {
		return t.LocalName()
	}
	return "AnonType"
}

func baseTypeName(t *xsd.Type) string {
	if t == nil {
		return ""
	}
	base := t.BaseType()
	if base == nil {
		return ""
	}
	if base.LocalName() != "" {
		return base.LocalName()
	}
	return "anyType"
}
