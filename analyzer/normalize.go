package analyzer

import (
	"slices"
	"sort"

	"github.com/chargeport/exigen/utils"
	"github.com/chargeport/exigen/xsd"
)

func (a *SchemaAnalyzer) buildSchemaBuiltinTypesList() {
	for name, base := range xsd.BuiltinTypeNames() {
		a.data.SchemaBuiltinTypes[name] = base
	}
}

func (a *SchemaAnalyzer) buildGenerateElementsTypesList() {
	rootNS := a.set.Root().TargetNamespace

	typeList := []string{}
	for _, schema := range a.set.Schemas() {
		if schema.TargetNamespace == rootNS {
			for _, ct := range schema.ComplexTypes {
				if ct.Model != nil && len(ct.Model.Items) > 0 && !ct.Mixed {
					typeList = append(typeList, ct.Name)
				}
			}
		}
	}

	a.log.Info("GENERATE ELEMENTS TYPES LIST")
	for _, element := range a.data.GenerateElements {
		if slices.Contains(typeList, element.TypeShort) {
			a.data.GenerateElementsTypes[element.TypeShort] = element.BaseType
			a.log.Infof("Element type=%s, base type=%s", element.TypeShort, element.BaseType)
		}
	}
}

// buildNamespaceElementLists builds the lists needed to generate the
// root struct and root decoding function, then rewrites the message
// dispatcher types of imported namespaces into flat "one of N" particle
// lists.
func (a *SchemaAnalyzer) buildNamespaceElementLists() {
	root := a.set.Root()

	for _, element := range root.Elements {
		items := []string{}
		for _, value := range root.Elements {
			name := typeNameShort(a.set.TypeOf(value))
			if name == "" || name == "AnonType" || name == "string" {
				name = value.Name
			}
			items = append(items, name)
		}
		sort.Strings(items)
		a.data.NamespaceElements[element.Name] = items
	}

	for _, imp := range root.Imports {
		imported := a.set.SchemaForNamespace(imp.Namespace)
		if imported == nil || len(imported.ComplexTypes) == 0 {
			continue
		}
		name := imported.ComplexTypes[0].Name

		items := []*Particle{}
		for _, element := range imported.Elements {
			particle := a.particleFromUse(&xsd.ElementUse{Element: element, Decl: element})
			// min_occurs and is_substitute have to be set to original values
			particle.MinOccurs = 0
			particle.IsSubstitute = true
			items = append(items, particle)
		}
		if len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Name < items[j].Name
		})

		for _, genElem := range a.data.GenerateElements {
			if genElem.Type == (xsd.QName{Space: imp.Namespace, Local: name}).String() {
				genElem.Particles = items
				genElem.IsInNamespaceElements = true
				names := make([]string, 0, len(items))
				for _, item := range items {
					names = append(names, item.Name)
				}
				a.data.NamespaceElements[name] = names
				break
			}
		}
	}
}

// scanAbstractTypesForNamespaceElements resolves the DIN style Body /
// BodyElement hierarchy: an abstract typed particle whose name appears
// in the namespace element lists has its parent's particles replaced by
// that particle followed by the abstract element's own list.
func (a *SchemaAnalyzer) scanAbstractTypesForNamespaceElements() {
	for _, abstractElement := range a.data.GenerateElements {
		if !abstractElement.AbstractType {
			continue
		}
		for _, element := range a.data.GenerateElements {
			for _, particle := range element.Particles {
				if abstractElement.NameShort != particle.Name || !particle.AbstractType {
					continue
				}
				if !utils.ContainsKey(a.data.NamespaceElements, particle.Name) {
					continue
				}

				a.log.Infof("Found particle match in namespace elements. "+
					"Replacing particles of %s (%s)", element.NameShort, element.TypeShort)
				particle.IsSubstitute = true
				particles := []*Particle{particle}
				particles = append(particles, abstractElement.Particles...)
				element.Particles = particles
				element.IsInNamespaceElements = true
				break
			}
		}
	}
}

func (a *SchemaAnalyzer) scanParticlesForEmptyParentType() {
	emptyList := []string{}
	for _, element := range a.data.GenerateElements {
		if element.ContentType == ContentTypeEmpty ||
			(len(element.Particles) == 0 && element.TypeDefinition != TypeDefinitionEnum) {
			emptyList = append(emptyList, element.NameShort)
		}
	}
	if len(emptyList) == 0 {
		return
	}

	for _, element := range a.data.GenerateElements {
		for _, particle := range element.Particles {
			if particle.IsComplex && slices.Contains(emptyList, particle.Name) {
				particle.ParentTypeIsEmpty = true
			}
		}
	}
}

func (a *SchemaAnalyzer) parentElementsWithParticle(particleName string) []*ElementData {
	parents := []*ElementData{}
	for _, element := range a.data.GenerateElements {
		for _, particle := range element.Particles {
			if particle.Name == particleName {
				parents = append(parents, element)
				break
			}
		}
	}
	return parents
}

func (a *SchemaAnalyzer) parentElementsWithSearchListParticles(searchList []string, elementName string) []*ElementData {
	parents := []*ElementData{}
	for _, element := range a.data.GenerateElements {
		if element.NameShort == elementName {
			continue
		}
		count := 0
		for _, particle := range element.Particles {
			if slices.Contains(searchList, particle.Name) {
				count++
			}
		}
		if count == len(searchList) {
			parents = append(parents, element)
		}
	}
	return parents
}

type indexedParticle struct {
	index    int
	particle *Particle
}

// replaceParticleListInParent drops the particles in particleList from
// the parent and inserts the alphabetically sorted replacements at the
// removed range's lowest index, recording the alternation as an
// abstract sequence.
func (a *SchemaAnalyzer) replaceParticleListInParent(parent *ElementData,
	particleList []indexedParticle, replacementList []*Particle,
	minOccurs, maxOccurs int) {

	// the replacements need to be sorted alphabetically
	sort.SliceStable(replacementList, func(i, j int) bool {
		return replacementList[i].Name < replacementList[j].Name
	})

	// the particles need to be sorted by index, for proper removal
	sort.SliceStable(particleList, func(i, j int) bool {
		return particleList[i].index < particleList[j].index
	})

	for i := 1; i < len(particleList); i++ {
		if particleList[i].index != particleList[i-1].index+1 {
			a.log.Warnf("particle indices are not contiguous for '%s' at %d: "+
				"%s, index %d after %s index %d", parent.NameShort, i,
				particleList[i].particle.Name, particleList[i].index,
				particleList[i-1].particle.Name, particleList[i-1].index)
		}
	}

	lowest := 0
	for i := len(particleList) - 1; i >= 0; i-- {
		entry := particleList[i]
		if parent.Particles[entry.index] != entry.particle {
			a.log.Warnf("particle '%s' not found in '%s'", entry.particle.Name, parent.NameShort)
		}
		parent.Particles = utils.SliceRemoveAtIndex(parent.Particles, entry.index)
		lowest = entry.index
	}

	tail := append([]*Particle{}, parent.Particles[lowest:]...)
	parent.Particles = parent.Particles[:lowest]
	abstractSeq := []string{}
	for _, part := range replacementList {
		a.log.Infof("    Add particle from list %s.", part.Name)
		parent.Particles = append(parent.Particles, part)
		abstractSeq = append(abstractSeq, part.Name)
	}
	parent.Particles = append(parent.Particles, tail...)

	parent.HasAbstractSequence = true
	parent.AbstractSequences = append(parent.AbstractSequences, AbstractSequence{
		Names:     abstractSeq,
		MinOccurs: minOccurs,
		MaxOccurs: maxOccurs,
	})
}

func (a *SchemaAnalyzer) copyParticlesFromEmptyContentElements(element *ElementData, parents []*ElementData) {
	for _, parent := range parents {
		replacementList := []*Particle{}
		particlesToRemove := []indexedParticle{}
		a.log.Infof("  Copying particle(s) of %s to %s.", element.NameShort, parent.NameShort)

		minOccurs, maxOccurs := 0, 1
		for _, particle := range element.Particles {
			exists := false
			for _, existing := range parent.Particles {
				if existing.Name == particle.Name {
					exists = true
					break
				}
			}
			if !exists {
				a.log.Infof("    Add to list and set substitute to false %s.", particle.Name)
				minOccurs = particle.MinOccurs
				maxOccurs = particle.MaxOccurs
				particle.MinOccurs = 0
				particle.IsSubstitute = false
				replacementList = append(replacementList, particle)
			} else {
				a.log.Infof("    Add to list and remove particle %s.", particle.Name)
				replacementList = append(replacementList, particle)
				if idx := parent.particleIndex(particle); idx >= 0 {
					particlesToRemove = append(particlesToRemove, indexedParticle{idx, particle})
				}
			}
		}

		for _, particle := range parent.Particles {
			if particle.Name == element.NameShort {
				a.log.Infof("    Add to list and remove particle %s.", particle.Name)
				minOccurs = particle.MinOccurs
				maxOccurs = particle.MaxOccurs
				particle.MinOccurs = 0
				replacementList = append(replacementList, particle)
				particlesToRemove = append(particlesToRemove,
					indexedParticle{parent.particleIndex(particle), particle})
			}
		}

		if len(replacementList) > 0 {
			a.replaceParticleListInParent(parent, particlesToRemove, replacementList,
				minOccurs, maxOccurs)
		}
	}
}

func (a *SchemaAnalyzer) copyParticlesFromEmptyContentElementsParticle(element *ElementData, parents []*ElementData) {
	names := make([]string, 0, len(element.Particles))
	for _, p := range element.Particles {
		names = append(names, p.Name)
	}
	for _, parent := range parents {
		if parent.NameShort == element.NameShort {
			continue
		}
		// a parent that already holds these members as a flattened
		// substitution group keeps that alternation unchanged
		if slices.ContainsFunc(parent.AbstractSequences, func(seq AbstractSequence) bool {
			return slices.Equal(seq.Names, names)
		}) {
			continue
		}

		replacementList := []*Particle{}
		particlesToRemove := []indexedParticle{}
		a.log.Infof("  Copying particle(s) of %s to %s.", element.NameShort, parent.NameShort)

		minOccurs, maxOccurs := 0, 1
		for _, p := range element.Particles {
			for partIndex, part := range parent.Particles {
				if part.Name == p.Name {
					a.log.Infof("    Add to list and remove particle %s.", part.Name)
					minOccurs = part.MinOccurs
					maxOccurs = part.MaxOccurs
					part.MinOccurs = 0
					part.IsSubstitute = false
					particlesToRemove = append(particlesToRemove, indexedParticle{partIndex, part})
					replacementList = append(replacementList, part)
					break
				}
			}
		}

		// finally, also add the original, abstract particle to the replacements
		a.log.Infof("    Add new particle to list %s.", element.NameShort)
		replacementList = append(replacementList, &Particle{
			Prefix:    a.opts.Prefix,
			Name:      element.NameShort,
			BaseType:  element.BaseType,
			Type:      element.Type,
			TypeShort: element.TypeShort,
			MinOccurs: 0,
			MaxOccurs: 1,
			EnumCount: -1,
		})

		a.replaceParticleListInParent(parent, particlesToRemove, replacementList,
			minOccurs, maxOccurs)
	}
}

// scanElementsForEmptyContent copies the particles of empty content
// elements into their referencing parents, and expands abstract
// referenced elements into sorted alternations. The copied slots only
// exist for correct event code enumeration in the parents.
func (a *SchemaAnalyzer) scanElementsForEmptyContent() {
	for _, element := range a.data.GenerateElements {
		// namespace dispatchers keep the element list written by
		// buildNamespaceElementLists
		if element.ContentType == ContentTypeEmpty && !element.IsInNamespaceElements {
			a.log.Infof("%s (%s) has empty content.", element.NameShort, element.TypeShort)
			if len(element.Particles) == 0 {
				continue
			}

			parents := a.parentElementsWithParticle(element.NameShort)
			if len(parents) > 0 {
				a.copyParticlesFromEmptyContentElements(element, parents)
			} else {
				parents = a.parentElementsWithParticle(element.Particles[0].Name)
				if len(parents) > 0 {
					a.copyParticlesFromEmptyContentElementsParticle(element, parents)
				}
			}

			a.log.Infof("  Deleting %d particle(s) of %s.", len(element.Particles), element.NameShort)
			element.Particles = nil
			continue
		}

		if element.Abstract && element.Ref != "" {
			a.log.Infof("%s (%s) is abstract and has a reference.", element.NameShort, element.TypeShort)

			searchList := []string{}
			for _, particle := range element.Particles {
				if particle.BaseType == element.TypeShort {
					searchList = append(searchList, particle.Name)
				}
			}
			if len(searchList) == 0 {
				continue
			}

			for _, parent := range a.parentElementsWithSearchListParticles(searchList, element.NameShort) {
				found := false
				for _, particle := range parent.Particles {
					if particle.Name == element.NameShort {
						found = true
						break
					}
				}
				if found {
					continue
				}

				reList := []*Particle{}
				a.log.Infof("  Copying particle(s) of %s to %s.", element.NameShort, parent.NameShort)
				minOccurs, maxOccurs := 0, 1
				for _, name := range searchList {
					for _, part := range parent.Particles {
						if part.Name == name {
							a.log.Infof("    Add to list and remove particle %s.", part.Name)
							minOccurs = part.MinOccurs
							maxOccurs = part.MaxOccurs
							part.MinOccurs = 0
							part.IsSubstitute = false
							reList = append(reList, part)
							parent.Particles = utils.SliceRemoveAtIndex(parent.Particles,
								parent.particleIndex(part))
							break
						}
					}
				}

				a.log.Infof("    Add new particle to list %s.", element.NameShort)
				reList = append(reList, &Particle{
					Prefix:    a.opts.Prefix,
					Name:      element.NameShort,
					BaseType:  element.BaseType,
					Type:      element.Type,
					TypeShort: element.TypeShort,
					MinOccurs: 0,
					MaxOccurs: 1,
					EnumCount: -1,
				})

				sort.SliceStable(reList, func(i, j int) bool {
					return reList[i].Name < reList[j].Name
				})
				abstractSeq := []string{}
				for _, part := range reList {
					a.log.Infof("    Add particle from list %s.", part.Name)
					parent.Particles = append(parent.Particles, part)
					abstractSeq = append(abstractSeq, part.Name)
				}

				parent.HasAbstractSequence = true
				parent.AbstractSequences = append(parent.AbstractSequences, AbstractSequence{
					Names:     abstractSeq,
					MinOccurs: minOccurs,
					MaxOccurs: maxOccurs,
				})
			}
		}
	}
}

// adjustChoiceElements sets every choice member optional: only one
// alternative occurs, so min_occurs moves to min_occurs_old and drops
// to zero.
func (a *SchemaAnalyzer) adjustChoiceElements() {
	a.log.Info("Adjusting choice elements")
	for _, element := range a.data.GenerateElements {
		if !element.HasChoice {
			continue
		}

		choiceList := []string{}
		for _, choice := range element.Choices {
			for _, item := range choice.ChoiceItems {
				choiceList = append(choiceList, item.Name)
			}
		}

		for _, particle := range element.Particles {
			if slices.Contains(choiceList, particle.Name) {
				a.log.Infof("    Setting min_occurs of %s to 0.", particle.Name)
				particle.ContentModelChangedRestrictions = true
				particle.MinOccursOld = utils.AsPtr(particle.MinOccurs)
				particle.MinOccurs = 0
			}
		}
	}
}

func (a *SchemaAnalyzer) applyArrayOptimizations() {
	if len(a.opts.ArrayOptimizations) == 0 {
		return
	}

	for _, element := range a.data.GenerateElements {
		for _, particle := range element.Particles {
			if cap, ok := a.opts.ArrayOptimizations[particle.TypeShort]; ok && particle.MaxOccurs > cap {
				a.log.Infof("Capping max_occurs of %s (%s) from %d to %d",
					particle.Name, particle.TypeShort, particle.MaxOccurs, cap)
				particle.MaxOccurs = cap
			}
		}
	}
}

// applyFieldOptimizations removes suppressed fields from their parents;
// an empty parent list removes the field everywhere.
func (a *SchemaAnalyzer) applyFieldOptimizations() {
	if len(a.opts.FieldOptimizations) == 0 {
		return
	}

	for _, element := range a.data.GenerateElements {
		kept := element.Particles[:0]
		for _, particle := range element.Particles {
			parents, ok := a.opts.FieldOptimizations[particle.Name]
			if ok && (len(parents) == 0 || slices.Contains(parents, element.NameShort) ||
				slices.Contains(parents, element.TypeShort)) {
				a.log.Infof("Removing field %s from %s", particle.Name, element.NameShort)
				continue
			}
			kept = append(kept, particle)
		}
		element.Particles = kept
	}
}

func (a *SchemaAnalyzer) collectFragments() {
	rootNS := a.set.Root().TargetNamespace
	for _, name := range a.opts.Fragments {
		fragment := FragmentData{Name: name, Namespace: rootNS}
		for _, element := range a.data.GenerateElements {
			if element.NameShort == name || element.TypeShort == name {
				fragment.Type = element.TypeShort
				break
			}
		}
		a.data.KnownFragments[name] = fragment
	}
}

// prepareForTypeGeneration orders the generate list by level
// (descending) and insertion count (ascending); the topological pass in
// OrderElements runs on top of this ordering.
func (a *SchemaAnalyzer) prepareForTypeGeneration() {
	sort.SliceStable(a.data.GenerateElements, func(i, j int) bool {
		return a.data.GenerateElements[i].Count < a.data.GenerateElements[j].Count
	})
	sort.SliceStable(a.data.GenerateElements, func(i, j int) bool {
		return a.data.GenerateElements[i].Level > a.data.GenerateElements[j].Level
	})
}
