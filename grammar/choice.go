package grammar

import (
	"github.com/sirupsen/logrus"

	"github.com/chargeport/exigen/analyzer"
)

// ChoiceOptions resolves the choice context of one particle: the
// ordered particles of its choice group (plain, choice-of-sequences or
// expanded abstract alternation), the group's occurrence bounds, and
// the skip counters the builder needs around parallel choice
// sequences.
type ChoiceOptions struct {
	parentChoiceSequenceNumber     int
	isLastParticleInChoiceSequence bool
	isFollowedByMandatory          bool
	particlesToSkipInSameSeq       int

	Particles       []*analyzer.Particle
	ItemNames       []string
	MinOccurs       int
	MaxOccurs       int
	ChoiceSequences [][]analyzer.ChoiceItem
	ChoiceIndex     int
	Choice          *analyzer.Choice
}

func NewChoiceOptions(element *analyzer.ElementData, particle *analyzer.Particle, log *logrus.Entry) *ChoiceOptions {
	c := &ChoiceOptions{
		parentChoiceSequenceNumber: -1,
		MinOccurs:                  -1,
		MaxOccurs:                  -1,
		ChoiceIndex:                -1,
	}

	switch {
	case element.HasChoice:
		if particle.ParentHasChoiceSequence {
			c.fromChoiceSequence(element, particle, log)
			return c
		}
		c.fromChoice(element, particle, log)
	case element.HasAbstractSequence:
		for _, sequence := range element.AbstractSequences {
			for _, name := range sequence.Names {
				if particle.Name == name {
					for _, itemName := range sequence.Names {
						c.Particles = append(c.Particles, element.ParticleFromName(itemName))
						c.ItemNames = append(c.ItemNames, itemName)
					}
					c.MinOccurs = sequence.MinOccurs
					c.MaxOccurs = sequence.MaxOccurs
					return c
				}
			}
		}
	}

	return c
}

// HasGroup reports whether the particle actually belongs to a choice
// group.
func (c *ChoiceOptions) HasGroup() bool {
	return len(c.Particles) > 0
}

func (c *ChoiceOptions) fromChoiceSequence(element *analyzer.ElementData, particle *analyzer.Particle, log *logrus.Entry) {
	c.parentChoiceSequenceNumber = particle.ParentChoiceSequenceNumber

	for choiceIndex, choice := range element.Choices {
		if choice.ChoiceSequenceCount() < c.parentChoiceSequenceNumber {
			continue
		}
		// this choice has sufficient sequences
		sequence := choice.ChoiceSequences[c.parentChoiceSequenceNumber-1]
		if !sequenceContains(sequence, particle.Name) {
			continue
		}

		c.Choice = choice
		c.ChoiceSequences = choice.ChoiceSequences

		sequenceIndex := -1
		for idx, item := range sequence {
			if particle.Name == item.Name {
				sequenceIndex = idx
				break
			}
		}
		if sequenceIndex == -1 {
			log.Errorf("Failed to find particle '%s' in its own choice sequence", particle.Name)
		}

		if sequenceIndex == 0 {
			// the first particle of a choice sequence stands for the
			// whole choice, so the leaders of all sequences form the
			// alternation
			c.ChoiceIndex = choiceIndex
			for _, seq := range choice.ChoiceSequences {
				c.Particles = append(c.Particles, element.ParticleFromName(seq[0].Name))
				c.ItemNames = append(c.ItemNames, seq[0].Name)
			}
			c.MinOccurs = choice.MinOccurs
			c.MaxOccurs = choice.MultiChoiceMax
		} else {
			c.MinOccurs = particle.MinOccurs
			c.MaxOccurs = particle.MaxOccurs
		}

		isCounting := false
		for _, part := range element.Particles {
			if part.ParentChoiceSequenceNumber != c.parentChoiceSequenceNumber {
				continue
			}
			if particle.MinOccurs >= 1 {
				c.isFollowedByMandatory = true
				break
			}
			if part == particle {
				isCounting = true
				continue
			}
			if !isCounting {
				continue
			}
			if minOccursOldIsZero(part) || part.MinOccurs == 0 {
				c.particlesToSkipInSameSeq++
			} else {
				c.particlesToSkipInSameSeq = 0
				break
			}
		}

		if sequenceIndex == len(sequence)-1 {
			c.isLastParticleInChoiceSequence = true
		}
		break
	}
}

func (c *ChoiceOptions) fromChoice(element *analyzer.ElementData, particle *analyzer.Particle, log *logrus.Entry) {
	for choiceIndex, choice := range element.Choices {
		if choice.ChoiceSequenceCount() > 0 {
			// the choice initially consists of the first elements of
			// the sequences
			for sequenceIndex, sequence := range choice.ChoiceSequences {
				if len(sequence) == 0 {
					log.Errorf("choice of sequences: sequence %d is empty", sequenceIndex)
					continue
				}
				c.Particles = append(c.Particles, element.ParticleFromName(sequence[0].Name))
				c.ItemNames = append(c.ItemNames, sequence[0].Name)
			}
			c.MinOccurs = choice.MinOccurs
			c.MaxOccurs = choice.MultiChoiceMax
			return
		}

		for _, item := range choice.ChoiceItems {
			if particle.Name == item.Name {
				for _, choiceItem := range choice.ChoiceItems {
					c.Particles = append(c.Particles, element.ParticleFromName(choiceItem.Name))
					c.ItemNames = append(c.ItemNames, choiceItem.Name)
				}
				c.MinOccurs = choice.MinOccurs
				c.MaxOccurs = choice.MultiChoiceMax
				c.ChoiceIndex = choiceIndex
				c.Choice = choice
				return
			}
		}
	}
}

// NumberOfParticlesToSkip returns how many particles of the parallel
// choice sequences (plus trailing optional members of the own
// sequence) the outer scan has to step over when this particle closes
// its sequence.
func (c *ChoiceOptions) NumberOfParticlesToSkip() int {
	if c.Choice == nil || c.Choice.ChoiceSequenceCount() == 0 {
		return 0
	}
	if !c.isLastParticleInChoiceSequence {
		return 0
	}
	if c.isFollowedByMandatory {
		return 0
	}

	result := c.particlesToSkipInSameSeq
	// the sequence number is 1-based, so this slice walks the parallel
	// sequences after the own one
	for _, sequence := range c.Choice.ChoiceSequences[c.parentChoiceSequenceNumber:] {
		result += len(sequence)
	}
	return result
}

func sequenceContains(sequence []analyzer.ChoiceItem, name string) bool {
	for _, item := range sequence {
		if item.Name == name {
			return true
		}
	}
	return false
}

func minOccursOldIsZero(p *analyzer.Particle) bool {
	return p.MinOccursOld != nil && *p.MinOccursOld == 0
}
