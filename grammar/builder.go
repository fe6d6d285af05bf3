package grammar

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/chargeport/exigen/analyzer"
)

// Builder derives the ordered grammar list of each complex type. The
// grammar id counter runs continuously across the types of one
// generation run; the shared END/ERROR slot ids are allocated after the
// first type that produced content grammars.
type Builder struct {
	data *analyzer.AnalyzerData
	log  *logrus.Entry

	GrammarID         int
	GrammarEndElement int
	GrammarUnknown    int

	ElementGrammars []*ElementGrammar
}

func NewBuilder(data *analyzer.AnalyzerData, log *logrus.Entry) *Builder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Builder{
		data: data,
		log:  log,
	}
}

func (b *Builder) ResetGrammarIDs() {
	b.GrammarID = 0
	b.GrammarEndElement = 0
	b.GrammarUnknown = 0
}

func (b *Builder) ResetElementGrammars() {
	b.ElementGrammars = []*ElementGrammar{}
}

// IsInNamespaceElements reports whether the element's type is one of
// the namespace level message dispatchers.
func (b *Builder) IsInNamespaceElements(element *analyzer.ElementData) bool {
	_, ok := b.data.NamespaceElements[element.TypeShort]
	return ok
}

// HasElementArrayParticle reports whether any particle of the element
// is emitted as an array.
func HasElementArrayParticle(element *analyzer.ElementData) bool {
	for _, particle := range element.Particles {
		if particle.IsArray() {
			return true
		}
	}
	return false
}

func ElementArrayParticleNames(element *analyzer.ElementData) []string {
	result := []string{}
	for _, particle := range element.Particles {
		if particle.IsArray() {
			result = append(result, particle.Name)
		}
	}
	return result
}

// GetStartGrammarID returns the id of the first grammar carrying a
// START detail, or NoGrammar for trivial grammar lists.
func GetStartGrammarID(grammars []*ElementGrammar) int {
	if len(grammars) <= 2 {
		return NoGrammar
	}
	for _, grammar := range grammars {
		for _, detail := range grammar.Details {
			if detail.Flag == FlagStart {
				return grammar.GrammarID
			}
		}
	}
	return NoGrammar
}

// AppendEndAndUnknownGrammars closes a type's grammar list with the
// shared END and ERROR grammars.
func (b *Builder) AppendEndAndUnknownGrammars(typename string) {
	grammar := NewElementGrammar()
	grammar.Details = append(grammar.Details, newDetail(FlagEnd, nil))
	b.appendIDToElementGrammars(grammar, b.GrammarEndElement, typename)

	grammar = NewElementGrammar()
	grammar.Details = append(grammar.Details, newDetail(FlagError, nil))
	b.appendIDToElementGrammars(grammar, b.GrammarUnknown, typename)
}

func (b *Builder) appendIDToElementGrammars(grammar *ElementGrammar, grammarID int, elementTypename string) {
	grammar.GrammarID = grammarID
	grammar.ElementTypename = elementTypename
	b.ElementGrammars = append(b.ElementGrammars, grammar)

	b.log.Info(grammar.Comment())
}

func (b *Builder) appendToElementGrammars(grammar *ElementGrammar, elementTypename string) {
	grammar.GrammarID = b.GrammarID
	grammar.ElementTypename = elementTypename
	b.ElementGrammars = append(b.ElementGrammars, grammar)

	b.log.Info(grammar.Comment())
	b.GrammarID++
}

// builderState carries the grammar under construction; the recursive
// scan replaces it whenever a grammar is closed.
type builderState struct {
	grammar *ElementGrammar
}

// GenerateElementGrammars builds the grammar detail lists for one
// element. Event codes and next-grammar pointers are assigned by the
// subsequent GenerateEventInfo pass.
func (b *Builder) GenerateElementGrammars(element *analyzer.ElementData) {
	b.ResetElementGrammars()
	particleIsPartOfSequence := false

	// a namespace dispatcher type decodes as a flat one-of-N selection,
	// so a single start state is enough
	if element.IsInNamespaceElements && len(element.Particles) > 0 {
		grammar := NewElementGrammar()
		grammar.Details = append(grammar.Details, newDetail(FlagStart, element.Particles[0]))
		b.appendToElementGrammars(grammar, element.Typename())
		return
	}

	// find the last mandatory particle's index; choice members count
	// with their group's occurrence
	indexLastNonOptionalParticle := -1
	for particleIndex, particle := range element.Particles {
		choiceOptions := NewChoiceOptions(element, particle, b.log)
		combinedMinOccurs := particle.MinOccurs
		if choiceOptions.HasGroup() {
			combinedMinOccurs = choiceOptions.MinOccurs
		}
		if combinedMinOccurs == 1 {
			indexLastNonOptionalParticle = particleIndex
		}
	}

	state := &builderState{grammar: NewElementGrammar()}

	previousChoiceList := []string{}
	for particleIndex, particle := range element.Particles {
		choiceOptions := NewChoiceOptions(element, particle, b.log)
		if choiceOptions.HasGroup() && slices.Equal(choiceOptions.ItemNames, previousChoiceList) {
			// skip if particle in same choice group as a previously
			// processed one
			element.ParticlesNextGrammarIDs[particleIndex] = b.GrammarID
			continue
		}
		previousChoiceList = previousChoiceList[:0]
		if choiceOptions.HasGroup() {
			previousChoiceList = append(previousChoiceList, choiceOptions.ItemNames...)
		}

		b.addSubsequentGrammarDetails(element, particle, state, particleIndex,
			indexLastNonOptionalParticle, particleIsPartOfSequence, false)
		state.grammar = NewElementGrammar()
	}

	// at this point, the grammar detail lists for this element's
	// grammars are complete; reorder wildcards last
	for _, grammar := range b.ElementGrammars {
		b.expandAnyGrammar(grammar)
	}
}

// addSubsequentGrammarDetails scans the particle list from
// particleIndex onward and fills grammars until the current particle's
// run ends. Array particles recurse with the followers so the states
// past min_occurs stay reachable.
func (b *Builder) addSubsequentGrammarDetails(element *analyzer.ElementData,
	particle *analyzer.Particle, state *builderState,
	particleIndex, indexLastNonOptionalParticle int,
	particleIsPartOfSequence bool, isRecursion bool) {

	choiceOptions := NewChoiceOptions(element, particle, b.log)
	if particleIndex+choiceOptions.NumberOfParticlesToSkip() > indexLastNonOptionalParticle {
		// all the following particles are optional, so END needs to be
		// an expected event at the beginning of the detail list
		if !particleIsPartOfSequence {
			state.grammar.Details = append(state.grammar.Details, newDetail(FlagEnd, nil))
		} else if len(particle.ParentSequence) > 0 && particle.ParentSequence[0] == particle.Name {
			state.grammar.Details = append(state.grammar.Details, newDetail(FlagEnd, nil))
		}
	}

	previousChoiceList := []string{}

	// for the current particle, check all successors in the particle list
	nToSkip := map[int]bool{}
scan:
	for n := particleIndex; n < len(element.Particles); n++ {
		if nToSkip[n] {
			continue
		}
		part := element.Particles[n]

		switch {
		case part.MaxOccurs == 1 && !part.MaxOccursChanged:
			if part.ParentHasSequence {
				particleIsPartOfSequence = true
			}

			if !particleIsPartOfSequence || n == particleIndex {
				b.addParticleOrChoiceList(element, state.grammar, part, &previousChoiceList,
					FlagStart, false, false, false)

				if n < len(element.Particles)-1 {
					if !element.Particles[n+1].ParentHasSequence {
						particleIsPartOfSequence = false

						if minOccursOldIs(part, 1) {
							b.appendToElementGrammars(state.grammar, element.Typename())
							state.grammar = NewElementGrammar()
							break scan
						}
					}
				}
			} else {
				if !part.ParentHasSequence {
					state.grammar.Details = append(state.grammar.Details, newDetail(FlagStart, part))
					particleIsPartOfSequence = false
				} else if len(part.ParentSequence) > 0 && part.ParentSequence[0] == part.Name {
					// non-optional or last particle in element: end of grammar list
					if minOccursOldIs(part, 1) || n == len(element.Particles)-1 {
						b.addParticleOrChoiceList(element, state.grammar, part, &previousChoiceList,
							FlagStart, false, false, false)
						b.appendToElementGrammars(state.grammar, element.Typename())
						state.grammar = NewElementGrammar()
						break scan
					}
				}
			}

			// non-optional or last particle in element: end of grammar list
			partChoiceOptions := NewChoiceOptions(element, part, b.log)
			partMin := 0
			if partChoiceOptions.HasGroup() {
				partMin = partChoiceOptions.MinOccurs
			}
			if part.MinOccurs == 1 || partMin == 1 || n == len(element.Particles)-1 {
				if !isRecursion {
					b.appendToElementGrammars(state.grammar, element.Typename())
					state.grammar = NewElementGrammar()
				}
				break scan
			}
			if part.ParentHasChoiceSequence {
				skip := partChoiceOptions.NumberOfParticlesToSkip()
				if n == len(element.Particles)-1-skip {
					state.grammar.Details = append(state.grammar.Details, newDetail(FlagEnd, nil))
					if !isRecursion {
						b.appendToElementGrammars(state.grammar, element.Typename())
						state.grammar = NewElementGrammar()
					}
					break scan
				}
				for i := 0; i < skip; i++ {
					nToSkip[n+1+i] = true
					b.log.Infof("Skipping subsequent particle %d for particle '%s'", n+1+i, part.Name)
				}
			}

		case part.MaxOccurs > 1 || part.MaxOccursChanged:
			if part.MaxOccurs < 25 {
				max := part.MaxOccurs
				// an occurrence-corrected array needs one extra grammar
				// for the "no more elements" state
				addExtra := false
				if part.MaxOccurs >= 1 && part.MaxOccursChanged {
					max++
					addExtra = true
				}

				for m := 1; m <= max; m++ {
					if m < max {
						b.addParticleOrChoiceList(element, state.grammar, part, &previousChoiceList,
							FlagStart, false, true, false)
					} else {
						b.addParticleOrChoiceList(element, state.grammar, part, &previousChoiceList,
							FlagStart, true, false, addExtra)
					}
					if m > part.MinOccurs && m > 1 {
						// this is an optional occurrence (and grammar 0
						// already contains END), so recurse with the
						// subsequent particles
						b.addSubsequentGrammarDetails(element, particle, state, n+1,
							indexLastNonOptionalParticle, particleIsPartOfSequence, true)
					}

					b.appendToElementGrammars(state.grammar, element.Typename())
					state.grammar = NewElementGrammar()
				}
			} else {
				// open ended repetition: START state plus LOOP state
				for m := 0; m <= 1; m++ {
					if m >= part.MinOccurs && m > 0 {
						state.grammar.Details = append(state.grammar.Details, newDetail(FlagEnd, nil))
					}

					if m == 0 {
						state.grammar.Details = append(state.grammar.Details, newDetail(FlagStart, part))
					} else {
						state.grammar.Details = append(state.grammar.Details, newDetail(FlagLoop, part))
					}

					b.appendToElementGrammars(state.grammar, element.Typename())
					state.grammar = NewElementGrammar()
				}
			}

			break scan

		default:
			b.log.Errorf("missing handling of unexpected case min_occurs = %d: %s",
				part.MinOccurs, part.Name)
		}
	}

	element.ParticlesNextGrammarIDs[particleIndex] = b.GrammarID
}

// addParticleOrChoiceList adds the particle's whole choice group at
// once (remembering the group so interior members are not added again),
// or just the particle itself.
func (b *Builder) addParticleOrChoiceList(element *analyzer.ElementData,
	grammar *ElementGrammar, part *analyzer.Particle, previousChoiceList *[]string,
	flag GrammarFlag, isInArrayLast, isInArrayNotLast, isExtraGrammar bool) {

	choiceOptions := NewChoiceOptions(element, part, b.log)
	if choiceOptions.HasGroup() &&
		!(len(choiceOptions.ChoiceSequences) > 0 && part.ParentChoiceSequenceNumber > 1) {
		if !slices.Equal(choiceOptions.ItemNames, *previousChoiceList) {
			for _, choice := range choiceOptions.Particles {
				detail := newDetail(flag, choice)
				detail.IsInArrayLast = isInArrayLast
				detail.IsInArrayNotLast = isInArrayNotLast
				detail.IsExtraGrammar = isExtraGrammar
				grammar.Details = append(grammar.Details, detail)
			}
			*previousChoiceList = append(*previousChoiceList, choiceOptions.ItemNames...)
		}
	} else {
		detail := newDetail(flag, part)
		detail.IsInArrayLast = isInArrayLast
		detail.IsInArrayNotLast = isInArrayNotLast
		detail.IsExtraGrammar = isExtraGrammar
		grammar.Details = append(grammar.Details, detail)
		*previousChoiceList = (*previousChoiceList)[:0]
	}
}

// expandAnyGrammar moves wildcard details behind the named events and,
// when the grammar can terminate, duplicates each wildcard after END as
// the observable event (the pre-END copy only keeps the event-code
// numbering dense).
func (b *Builder) expandAnyGrammar(grammar *ElementGrammar) {
	sorted := []*ElementGrammarDetail{}
	anyDetails := []*ElementGrammarDetail{}
	endDetails := []*ElementGrammarDetail{}

	for _, detail := range grammar.Details {
		switch {
		case detail.Flag == FlagEnd:
			endDetails = append(endDetails, detail)
		case detail.IsAny():
			anyDetails = append(anyDetails, detail)
		default:
			sorted = append(sorted, detail)
		}
	}

	if len(endDetails) > 0 {
		// dummy ANYs first, then END, then the real ANY events
		sorted = append(sorted, anyDetails...)
		sorted = append(sorted, endDetails...)
		for _, anyDetail := range anyDetails {
			finalAnyDetail := anyDetail.clone()
			finalAnyDetail.AnyIsDummy = false
			sorted = append(sorted, finalAnyDetail)
		}
	} else {
		// without an END, only the real wildcard events get codes
		for _, anyDetail := range anyDetails {
			anyDetail.AnyIsDummy = false
		}
		sorted = append(sorted, anyDetails...)
	}

	grammar.Details = sorted
}

func minOccursOldIs(p *analyzer.Particle, n int) bool {
	return p.MinOccursOld != nil && *p.MinOccursOld == n
}
