package grammar

import (
	"fmt"

	Text "github.com/linkdotnet/golang-stringbuilder"

	"github.com/chargeport/exigen/analyzer"
)

// GenerateEventInfo assigns dense event codes and next-grammar pointers
// to every detail of the type's grammar list. The list must already end
// with the shared END and ERROR grammars.
func (b *Builder) GenerateEventInfo(grammars []*ElementGrammar, element *analyzer.ElementData) {
	lenGrammars := len(grammars)
	// with just ERROR or END/ERROR in the list, the element is ignored
	if lenGrammars <= 2 {
		return
	}

	for idxGrammar, grammar := range grammars {
		if grammar.DetailsCount() == 0 {
			b.log.Errorf("ERROR! Empty item list. Grammar %d", grammar.GrammarID)
			continue
		}

		// case 1: just one element, START as singular grammar detail
		if grammar.DetailsCount() == 1 && grammar.Details[0].Flag == FlagStart {
			detail := grammar.Details[0]
			detail.EventIndex = 0
			// the next grammar must be that of the subsequent particle
			detail.NextGrammar = grammars[idxGrammar+1].GrammarID
			b.logEventInfo(grammar, detail)
			continue
		}

		b.assignMultiDetailEventInfo(grammars, idxGrammar, element)
	}
}

func (b *Builder) assignMultiDetailEventInfo(grammars []*ElementGrammar, idxGrammar int, element *analyzer.ElementData) {
	grammar := grammars[idxGrammar]
	lenGrammars := len(grammars)
	lenDetails := grammar.DetailsCount()

	// first, find the index of the END detail (used below)
	endElemDetailIndex := -1
	for detailIndex, detail := range grammar.Details {
		if detail.Flag == FlagEnd {
			endElemDetailIndex = detailIndex
			break
		}
	}

	for detailIndex, detail := range grammar.Details {
		detail.EventIndex = detailIndex

		switch detail.Flag {
		case FlagEnd:
			// the next grammar is the ERROR grammar
			detail.NextGrammar = b.GrammarUnknown
			b.logEventInfo(grammar, detail)

		case FlagStart:
			partIndex := b.findParticleIndex(element, detail)

			if endElemDetailIndex >= 0 && lenDetails == 2 {
				if detail.IsInArrayLast {
					if b.isFinalParticle(element, partIndex, detail) {
						detail.NextGrammar = b.GrammarEndElement
					} else {
						detail.NextGrammar = element.ParticlesNextGrammarIDs[partIndex]
					}
				} else {
					detail.NextGrammar = grammars[idxGrammar+1].GrammarID
				}
			} else {
				if b.isFinalParticle(element, partIndex, detail) {
					// next grammar is always END for the final particle
					detail.NextGrammar = b.GrammarEndElement
				} else if detail.IsInArrayNotLast || detail.IsInArrayLast {
					detail.NextGrammar = grammars[idxGrammar+1].GrammarID
				} else {
					detail.NextGrammar = element.ParticlesNextGrammarIDs[partIndex]
				}
			}

			b.logEventInfo(grammar, detail)

			if detail.NextGrammar == NoGrammar {
				detail.NextGrammar = element.ParticlesNextGrammarIDs[idxGrammar]
				b.log.Errorf("Fallback: Failed to find element particle for %s, next ID=%d",
					detail.Particle.Name, detail.NextGrammar)
			}

		default:
			// LOOP details terminate in the ERROR grammar for now
			detail.NextGrammar = grammars[lenGrammars-1].GrammarID
			b.logEventInfo(grammar, detail)
		}
	}
}

// findParticleIndex locates the detail's particle in the element by
// identity; details cloned during the wildcard expansion share their
// particle, so the lookup still matches.
func (b *Builder) findParticleIndex(element *analyzer.ElementData, detail *ElementGrammarDetail) int {
	for index, particle := range element.Particles {
		if particle == detail.Particle {
			return index
		}
	}
	return len(element.Particles) - 1
}

// isFinalParticle reports whether the particle closes the type: the
// last particle, a member of the last particle's choice group, or the
// last slot before the parallel choice sequences.
func (b *Builder) isFinalParticle(element *analyzer.ElementData, particleIndex int, detail *ElementGrammarDetail) bool {
	if detail.IsInArrayNotLast {
		return false
	}
	if particleIndex == len(element.Particles)-1 {
		return true
	}

	choiceOptions := NewChoiceOptions(element, element.Particles[len(element.Particles)-1], b.log)
	if choiceOptions.HasGroup() {
		for _, particle := range choiceOptions.Particles {
			if particle == element.Particles[particleIndex] {
				return true
			}
		}
	}
	if len(choiceOptions.ChoiceSequences) > 0 {
		if particleIndex == len(element.Particles)-1-choiceOptions.NumberOfParticlesToSkip() {
			return true
		}
	}

	return false
}

func (b *Builder) logEventInfo(grammar *ElementGrammar, detail *ElementGrammarDetail) {
	sb := Text.NewStringBuilderFromString(
		fmt.Sprintf("Grammar ID=%d, eventCode=%d, ", grammar.GrammarID, detail.EventIndex))

	if detail.Particle != nil {
		sb.Append(fmt.Sprintf("decode=%s (Particle '%s'", detail.Particle.Typename(), detail.Particle.Name))
		if detail.Particle.IsAttribute {
			sb.Append(" (attribute)")
		}
		sb.Append("), ")
	} else {
		sb.Append(detail.Flag.String())
		sb.Append(", ")
	}
	sb.Append(fmt.Sprintf("next ID=%d", detail.NextGrammar))

	b.log.Info(sb.ToString())
}
