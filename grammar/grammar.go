package grammar

import (
	"fmt"

	Text "github.com/linkdotnet/golang-stringbuilder"

	"github.com/chargeport/exigen/analyzer"
)

// GrammarFlag discriminates the event kind of a grammar detail.
type GrammarFlag int

const (
	FlagStart GrammarFlag = iota
	FlagLoop
	FlagEnd
	FlagError
)

func (f GrammarFlag) String() string {
	switch f {
	case FlagStart:
		return "START"
	case FlagLoop:
		return "LOOP"
	case FlagEnd:
		return "END Element"
	default:
		return "ERROR Element"
	}
}

// NoGrammar marks an unassigned next-grammar pointer.
const NoGrammar = -1

// ElementGrammarDetail is one expected event of a grammar: a START or
// LOOP with its particle, or a terminal END/ERROR without one.
type ElementGrammarDetail struct {
	Flag     GrammarFlag
	Particle *analyzer.Particle

	EventIndex  int
	NextGrammar int

	IsInArrayLast    bool
	IsInArrayNotLast bool
	IsExtraGrammar   bool
	AnyIsDummy       bool
}

func newDetail(flag GrammarFlag, particle *analyzer.Particle) *ElementGrammarDetail {
	return &ElementGrammarDetail{
		Flag:        flag,
		Particle:    particle,
		EventIndex:  -1,
		NextGrammar: NoGrammar,
		AnyIsDummy:  true,
	}
}

func (d *ElementGrammarDetail) IsOptional() bool {
	if d.Particle == nil {
		return false
	}
	return d.Particle.MinOccurs == 0 && d.Particle.MaxOccurs == 1
}

func (d *ElementGrammarDetail) IsOptionalArray() bool {
	if d.Particle == nil {
		return false
	}
	return d.Particle.MinOccurs == 0 && d.Particle.MaxOccurs > 1
}

func (d *ElementGrammarDetail) IsMandatory() bool {
	if d.Particle == nil {
		return false
	}
	return d.Particle.MinOccurs == 1 && d.Particle.MaxOccurs == 1
}

func (d *ElementGrammarDetail) IsMandatoryArray() bool {
	if d.Particle == nil {
		return false
	}
	return d.Particle.MinOccurs >= 1 && d.Particle.MaxOccurs > 1
}

func (d *ElementGrammarDetail) IsAny() bool {
	return d.Particle != nil && d.Particle.IsAny
}

func (d *ElementGrammarDetail) clone() *ElementGrammarDetail {
	copied := *d
	return &copied
}

// ElementGrammar is a single EXI production state: the ordered events
// expected at that state with their codes and next-state pointers.
type ElementGrammar struct {
	GrammarID       int
	Details         []*ElementGrammarDetail
	ElementTypename string
}

func NewElementGrammar() *ElementGrammar {
	return &ElementGrammar{
		GrammarID: NoGrammar,
		Details:   []*ElementGrammarDetail{},
	}
}

func (g *ElementGrammar) DetailsCount() int {
	return len(g.Details)
}

// BitsToRead is the event-code width of the grammar: ceil(log2(N+1))
// capped at 8 bits, 0 for the pure ERROR grammar.
func (g *ElementGrammar) BitsToRead() int {
	if g.DetailsCount() == 0 {
		return 0
	}
	for _, detail := range g.Details {
		if detail.Flag == FlagError {
			return 0
		}
	}

	total := g.DetailsCount() + 1
	switch {
	case total <= 2:
		return 1
	case total <= 4:
		return 2
	case total <= 8:
		return 3
	case total <= 16:
		return 4
	case total <= 32:
		return 5
	case total <= 64:
		return 6
	case total <= 128:
		return 7
	default:
		return 8
	}
}

func (g *ElementGrammar) BitsToWrite() int {
	return g.BitsToRead()
}

// Comment renders the grammar's one line summary for the generation
// log.
func (g *ElementGrammar) Comment() string {
	sb := Text.NewStringBuilderFromString(
		fmt.Sprintf("// Grammar: ID=%d; read/write bits=%d; ", g.GrammarID, g.BitsToRead()))

	for idx, detail := range g.Details {
		if idx > 0 {
			sb.Append(", ")
		}
		if detail.Particle != nil {
			sb.Append(fmt.Sprintf("%s (%s)", detail.Flag, detail.Particle.Name))
		} else {
			sb.Append(detail.Flag.String())
		}
	}

	return sb.ToString()
}

// Error reports a grammar invariant violation, a dependency cycle or an
// inconsistent next-grammar pointer.
type Error struct {
	Typename string
	Reason   string
}

func (e *Error) Error() string {
	if e.Typename == "" {
		return "grammar error: " + e.Reason
	}
	return fmt.Sprintf("grammar error in %s: %s", e.Typename, e.Reason)
}

func newError(typename, format string, args ...any) *Error {
	return &Error{Typename: typename, Reason: fmt.Sprintf(format, args...)}
}
