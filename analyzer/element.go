package analyzer

import (
	"github.com/chargeport/exigen/utils"
	"github.com/chargeport/exigen/xsd"
)

// elementDataFor builds the ElementData of one element declaration,
// including its attribute, content and child particles. Substitution
// group members encountered among the children are appended to
// substList so the caller can descend into them.
func (a *SchemaAnalyzer) elementDataFor(element *xsd.Element, level, count int, substList *[]*xsd.Element) (*ElementData, error) {
	data := NewElementData(a.opts.Prefix)
	data.Level = level
	data.Count = count

	if element.Ref != "" {
		data.Ref = xsd.ParseQName(element.Ref, element.Schema().Xmlns).Local
	}

	t := a.set.TypeOf(element)

	data.Name = a.qualifiedElementName(element)
	data.NameShort = element.Name
	data.Type = typeName(t)
	data.TypeShort = typeNameShort(t)
	data.BaseType = baseTypeName(t)
	data.Derivation = t.Derivation()

	if t.ContentTypeLabel() == "element-only" {
		data.ContentType = ContentTypeElementOnly
	} else {
		data.ContentType = t.ContentTypeLabel()
	}

	if enum := t.Enumeration(); len(enum) > 0 {
		data.TypeDefinition = TypeDefinitionEnum
		data.EnumList = append(data.EnumList, enum...)
		data.HasEnumList = true
		if !utils.ContainsKey(a.data.KnownEnums, data.Type) {
			a.data.KnownEnums[data.Type] = data.NameShort
		}
	} else if t.IsSimple() {
		data.TypeDefinition = TypeDefinitionSimple
	} else {
		data.TypeDefinition = TypeDefinitionComplex
	}

	data.Abstract = element.Abstract
	data.AbstractType = t.IsAbstract()
	data.Final = element.Final != ""

	// attributes come first, followed by a CONTENT particle when the
	// element combines attributes with simple textual content
	attributes := t.AttributeUses()
	for _, attribute := range attributes {
		data.Particles = append(data.Particles, a.particleFromAttribute(attribute))
	}
	if len(attributes) > 0 && t.ContentTypeLabel() == ContentTypeSimple {
		a.log.Infof("Adding CONTENT Particle to Element %s", element.Name)

		baseType := baseTypeName(t)
		data.Particles = append(data.Particles, &Particle{
			Prefix:          a.opts.Prefix,
			Name:            "CONTENT",
			BaseType:        baseType,
			Type:            baseType,
			TypeShort:       data.TypeShort,
			IsSimpleContent: true,
			MinOccurs:       1,
			MaxOccurs:       1,
			EnumCount:       -1,
		})
	}

	particles, err := a.particleList(element, data, substList)
	if err != nil {
		return nil, err
	}
	data.Particles = append(data.Particles, particles...)

	a.addChoiceInfoIfExists(t, data)

	return data, nil
}

// particleList builds the child particles of the given element,
// flattening abstract children into their substitution group members.
// Each flattened group is recorded as an abstract sequence on the
// owning element so the grammar builder treats the members as one
// alternation.
func (a *SchemaAnalyzer) particleList(element *xsd.Element, data *ElementData, substList *[]*xsd.Element) ([]*Particle, error) {
	particles := []*Particle{}

	elementType := a.set.TypeOf(element)
	for _, use := range elementType.ChildUses() {
		if use.IsAny() {
			particles = append(particles, a.particleFromAny(use))
			continue
		}

		child := use.Decl
		if child.Abstract {
			group := a.set.SubstitutionGroup(a.qnameOf(child))
			if len(group) == 0 {
				return nil, newSchemaError(a.qualifiedElementName(child),
					"no substitution group found for abstract child")
			}
			substitutes := []*Particle{}
			for _, substitute := range group {
				particle := a.abstractParticle(use, substitute)
				particles = append(particles, particle)
				substitutes = append(substitutes, particle)
				*substList = append(*substList, substitute)
				a.data.KnownParticles[particle.Name] = particle
			}
			a.recordAbstractSequence(data, substitutes)
			continue
		}

		particle := a.particleFromUse(use)
		a.testForParentSequence(particle, use)
		a.testForParentSimpleContent(particle, use)
		particles = append(particles, particle)
	}

	if elementType.IsAbstract() {
		group := a.set.SubstitutionGroup(a.qnameOf(element))
		if len(group) == 0 {
			return nil, newSchemaError(a.qualifiedElementName(element),
				"no substitution group found for abstract typed element")
		}
		substitutes := []*Particle{}
		for _, substitute := range group {
			particle := a.abstractHeadParticle(element, substitute)
			particles = append(particles, particle)
			substitutes = append(substitutes, particle)
			*substList = append(*substList, substitute)
			a.data.KnownParticles[particle.Name] = particle
		}
		a.recordAbstractSequence(data, substitutes)
	}

	return particles, nil
}

// recordAbstractSequence registers a flattened substitution group as an
// alternation: exactly one member fills the abstract slot, so the
// grammar builder must emit the members as one choice group.
func (a *SchemaAnalyzer) recordAbstractSequence(data *ElementData, substitutes []*Particle) {
	if len(substitutes) < 2 {
		return
	}

	names := make([]string, 0, len(substitutes))
	for _, particle := range substitutes {
		names = append(names, particle.Name)
	}

	data.HasAbstractSequence = true
	data.AbstractSequences = append(data.AbstractSequences, AbstractSequence{
		Names:     names,
		MinOccurs: substitutes[0].MinOccurs,
		MaxOccurs: substitutes[0].MaxOccurs,
	})
}

// particleFromUse builds the particle of one concrete child element.
func (a *SchemaAnalyzer) particleFromUse(use *xsd.ElementUse) *Particle {
	child := use.Decl
	childType := a.set.TypeOf(child)

	particle := &Particle{
		Prefix:    a.opts.Prefix,
		EnumCount: -1,
	}

	particle.Abstract = child.Abstract
	particle.AbstractType = childType.IsAbstract()

	particle.Name = child.Name
	particle.Type = typeName(childType)
	particle.TypeShort = typeNameShort(childType)
	particle.BaseType = baseTypeName(childType)
	particle.TopLevelType = childType.PrimitiveLocalName()

	a.applyOccurrences(particle, use.MinOccurs(), use.MaxOccurs())
	a.applyFacets(particle, childType)

	if childType.IsComplex() {
		particle.IsComplex = true
	}
	if enum := childType.Enumeration(); len(enum) > 0 {
		particle.IsEnum = true
		particle.EnumCount = len(enum)
	}

	a.applyIntegerProperties(particle, childType)

	return particle
}

// abstractParticle replaces an abstract child with one of its
// substitution group members, inheriting the head's occurrences.
func (a *SchemaAnalyzer) abstractParticle(head *xsd.ElementUse, substitute *xsd.Element) *Particle {
	substituteType := a.set.TypeOf(substitute)

	particle := &Particle{
		Prefix:       a.opts.Prefix,
		IsSubstitute: true,
		EnumCount:    -1,
	}

	particle.Abstract = substitute.Abstract

	particle.Name = substitute.Name
	particle.Type = typeName(substituteType)
	particle.TypeShort = typeNameShort(substituteType)
	particle.BaseType = baseTypeName(substituteType)
	particle.TopLevelType = substituteType.PrimitiveLocalName()

	a.applyOccurrences(particle, head.MinOccurs(), head.MaxOccurs())
	a.applyFacets(particle, substituteType)

	if substituteType.IsComplex() {
		particle.IsComplex = true
	}
	if enum := substituteType.Enumeration(); len(enum) > 0 {
		particle.IsEnum = true
		particle.EnumCount = len(enum)
	}

	a.applyIntegerProperties(particle, substituteType)

	return particle
}

// abstractHeadParticle is the same substitution for an element whose
// type (not the element itself) is abstract; occurrences default to
// the single mandatory slot.
func (a *SchemaAnalyzer) abstractHeadParticle(element *xsd.Element, substitute *xsd.Element) *Particle {
	use := &xsd.ElementUse{Element: element, Decl: element}
	return a.abstractParticle(use, substitute)
}

func (a *SchemaAnalyzer) particleFromAny(use *xsd.ElementUse) *Particle {
	minOccurs := use.MinOccurs()
	maxOccurs := use.MaxOccurs()
	if maxOccurs == xsd.Unbounded {
		maxOccurs = 1
	}

	return &Particle{
		Prefix:    a.opts.Prefix,
		Name:      "ANY",
		Type:      "anyType",
		TypeShort: "anyType",
		BaseType:  "base64Binary",
		IsAny:     true,
		MinOccurs: minOccurs,
		MaxOccurs: maxOccurs,
		EnumCount: -1,
	}
}

// particleFromAttribute builds the particle of one attribute use;
// attribute enumerations additionally register an enum type for
// generation.
func (a *SchemaAnalyzer) particleFromAttribute(use *xsd.AttributeUse) *Particle {
	attributeType := use.Type

	particle := &Particle{
		Prefix:      a.opts.Prefix,
		IsAttribute: true,
		EnumCount:   -1,
	}

	particle.Name = use.Decl.Name
	particle.Type = typeName(attributeType)
	particle.TypeShort = typeNameShort(attributeType)
	particle.BaseType = baseTypeName(attributeType)
	particle.TopLevelType = attributeType.PrimitiveLocalName()

	if use.Decl.IsRequired() {
		particle.MinOccurs = 1
	} else {
		particle.MinOccurs = 0
	}
	particle.MaxOccurs = 1

	a.applyFacets(particle, attributeType)

	if attributeType.IsComplex() {
		particle.IsComplex = true
	}
	if enum := attributeType.Enumeration(); len(enum) > 0 {
		particle.IsEnum = true
		particle.EnumCount = len(enum)

		elementData := a.elementDataFromEnumAttribute(use)
		a.data.GenerateElements = append(a.data.GenerateElements, elementData)
		a.data.KnownElements[elementData.Type] = elementData.TypeShort
	}

	a.applyIntegerProperties(particle, attributeType)

	return particle
}

func (a *SchemaAnalyzer) elementDataFromEnumAttribute(use *xsd.AttributeUse) *ElementData {
	attributeType := use.Type

	data := NewElementData(a.opts.Prefix)
	data.Name = use.Decl.Name
	data.NameShort = use.Decl.Name
	data.Type = typeName(attributeType)
	data.TypeShort = typeNameShort(attributeType)
	data.BaseType = baseTypeName(attributeType)
	data.Derivation = attributeType.Derivation()
	data.ContentType = ContentTypeSimple

	data.TypeDefinition = TypeDefinitionEnum
	if !utils.ContainsKey(a.data.KnownEnums, data.Type) {
		a.data.KnownEnums[data.Type] = data.Type
	}
	data.EnumList = append(data.EnumList, attributeType.Enumeration()...)
	data.HasEnumList = true

	return data
}

// applyOccurrences writes the effective occurrence bounds, replacing
// unbounded with the configured limit (default 1) and auditing the
// correction.
func (a *SchemaAnalyzer) applyOccurrences(particle *Particle, minOccurs, maxOccurs int) {
	particle.MinOccurs = minOccurs

	if maxOccurs != xsd.Unbounded {
		particle.MaxOccurs = maxOccurs
		return
	}

	if limit, ok := a.opts.OccurrenceLimits[particle.Name]; ok {
		particle.MaxOccurs = limit
		a.log.Infof("%s max_occurs changed from unbounded to %d", particle.Name, limit)
	} else {
		particle.MaxOccurs = 1
		a.log.Warnf("%s max_occurs set to 1", particle.Name)
	}

	particle.MaxOccursChanged = true
	particle.MaxOccursOld = utils.AsPtr(xsd.Unbounded)
	a.addToMaxOccurs(particle.Name, particle.MaxOccurs)
}

func (a *SchemaAnalyzer) applyFacets(particle *Particle, t *xsd.Type) {
	if minLength := t.MinLength(); minLength != nil {
		particle.MinLength = minLength
	}
	if maxLength := t.MaxLength(); maxLength != nil {
		particle.MaxLength = maxLength
	}
	if minValue := t.MinValue(); minValue != nil && minValue.Sign() != 0 {
		particle.MinValue = minValue
	}
	if maxValue := t.MaxValue(); maxValue != nil && maxValue.Sign() != 0 {
		particle.MaxValue = maxValue
	}
}

// applyIntegerProperties derives the integer storage type, bit size and
// signedness from the type's value bounds.
func (a *SchemaAnalyzer) applyIntegerProperties(particle *Particle, t *xsd.Type) {
	if !t.IsSimple() {
		return
	}

	minValue := t.MinValue()
	maxValue := t.MaxValue()
	if minValue != nil && maxValue != nil {
		particle.IntegerMin = minValue
		particle.IntegerMax = maxValue
		particle.IntegerBitSize = bitInfoForInteger(minValue, maxValue)
		if minValue.Sign() >= 0 {
			// EXI specific: a value restricted by min >= 0 becomes unsigned
			particle.IntegerIsUnsigned = true
		}
		particle.TypeIsRestrictedInt = isRestrictedIntRange(minValue, maxValue)
	}

	if base, ok := typeTranslation[particle.TypeShort]; ok {
		particle.IntegerBaseType = base
	} else if base, ok := typeTranslation[particle.BaseType]; ok {
		particle.IntegerBaseType = base
	}
}

// testForParentSequence handles a sequence nested inside another
// sequence: the subsequence's own occurrence restrictions override the
// element's.
func (a *SchemaAnalyzer) testForParentSequence(particle *Particle, use *xsd.ElementUse) {
	group := use.Group
	if group == nil || group.Kind != xsd.GroupSequence {
		return
	}
	parent := group.Parent()
	if parent == nil || parent.Kind != xsd.GroupSequence {
		return
	}

	particle.ParentModelChangedRestrictions = true
	particle.MinOccursOld = utils.AsPtr(particle.MinOccurs)
	particle.MaxOccursOld = utils.AsPtr(particle.MaxOccurs)
	particle.MinOccurs = group.MinOccurs()
	maxOccurs := group.MaxOccurs()
	if maxOccurs == xsd.Unbounded {
		a.applyOccurrences(particle, particle.MinOccurs, maxOccurs)
	} else {
		particle.MaxOccurs = maxOccurs
	}

	sequence := []string{}
	for _, item := range group.Items {
		if el, ok := item.(*xsd.Element); ok {
			sequence = append(sequence, a.set.Target(el).Name)
		}
	}
	if len(sequence) > 0 {
		particle.ParentSequence = sequence
		particle.ParentHasSequence = true
	}
}

// testForParentSimpleContent flags nameless simple content so the
// coder generation can synthesize access to it later.
func (a *SchemaAnalyzer) testForParentSimpleContent(particle *Particle, use *xsd.ElementUse) {
	childType := a.set.TypeOf(use.Decl)
	if childType.ContentTypeLabel() == ContentTypeSimple && childType.IsComplex() {
		particle.HasSimpleContent = true
		particle.SimpleContentNames = append(particle.SimpleContentNames, use.Decl.Name)
	}
}

// addChoiceInfoIfExists ports the choice detection: a choice group at
// the top of the content model (or directly as the content model)
// populates the element's Choice list, and choice-of-sequences members
// are numbered 1-based.
func (a *SchemaAnalyzer) addChoiceInfoIfExists(t *xsd.Type, data *ElementData) {
	model := t.ContentModel()
	if model == nil {
		return
	}

	switch model.Kind {
	case xsd.GroupSequence:
		for _, item := range model.Items {
			if group, ok := item.(*xsd.Group); ok && group.Kind == xsd.GroupChoice {
				a.appendChoice(group, data)
			}
		}
	case xsd.GroupChoice:
		a.numberChoiceSequenceParticles(model, data)
		a.appendChoice(model, data)
	}
}

func (a *SchemaAnalyzer) appendChoice(group *xsd.Group, data *ElementData) {
	data.HasChoice = true

	choice := NewChoice()
	for index, item := range group.Items {
		switch it := item.(type) {
		case *xsd.Group:
			if it.Kind == xsd.GroupSequence {
				current := []ChoiceItem{}
				for _, seqItem := range it.Items {
					name := "other"
					if el, ok := seqItem.(*xsd.Element); ok {
						name = a.set.Target(el).Name
					}
					current = append(current, ChoiceItem{Name: name, Index: index + 1})
				}
				choice.ChoiceSequences = append(choice.ChoiceSequences, current)
			}
		case *xsd.Element:
			choice.ChoiceItems = append(choice.ChoiceItems,
				ChoiceItem{Name: a.set.Target(it).Name, Index: index + 1})
		case *xsd.Any:
			choice.ChoiceItems = append(choice.ChoiceItems,
				ChoiceItem{Name: "other", Index: index + 1})
		}
	}

	choice.MinOccurs = group.MinOccurs()
	choice.MultiChoiceMax = 1
	if group.MaxOccurs() == xsd.Unbounded {
		choice.IsMultiChoice = true
	} else if group.MaxOccurs() > 1 {
		choice.IsMultiChoice = true
		choice.MultiChoiceMax = group.MaxOccurs()
	}

	data.Choices = append(data.Choices, choice)
}

// numberChoiceSequenceParticles assigns the 1-based sequence number to
// every particle declared inside one of the choice's sequences.
func (a *SchemaAnalyzer) numberChoiceSequenceParticles(model *xsd.Group, data *ElementData) {
	sequenceNumber := 0
	for _, item := range model.Items {
		group, ok := item.(*xsd.Group)
		if !ok || group.Kind != xsd.GroupSequence {
			continue
		}
		sequenceNumber++
		for _, seqItem := range group.Items {
			el, ok := seqItem.(*xsd.Element)
			if !ok {
				continue
			}
			name := a.set.Target(el).Name
			for _, particle := range data.Particles {
				if particle.Name == name && particle.ParentChoiceSequenceNumber == 0 {
					particle.ParentHasChoiceSequence = true
					particle.ParentChoiceSequenceNumber = sequenceNumber
					break
				}
			}
		}
	}
}
