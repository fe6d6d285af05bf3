package analyzer

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// IntBaseType classifies the storage integer an integer-derived
// particle is emitted as.
type IntBaseType int

const (
	IntBaseNone IntBaseType = iota
	IntBaseChar
	IntBaseBoolean
	IntBaseInteger
	IntBase8
	IntBase16
	IntBase32
	IntBase64
	UintBase8
	UintBase16
	UintBase32
	UintBase64
)

func (t IntBaseType) String() string {
	switch t {
	case IntBaseChar:
		return "char"
	case IntBaseBoolean:
		return "boolean"
	case IntBaseInteger:
		return "integer"
	case IntBase8:
		return "int8"
	case IntBase16:
		return "int16"
	case IntBase32:
		return "int32"
	case IntBase64:
		return "int64"
	case UintBase8:
		return "uint8"
	case UintBase16:
		return "uint16"
	case UintBase32:
		return "uint32"
	case UintBase64:
		return "uint64"
	default:
		return ""
	}
}

// typeTranslation maps XSD builtin local names to the integer base the
// emitted code stores them as.
var typeTranslation = map[string]IntBaseType{
	"anyURI":        IntBaseChar,
	"boolean":       IntBaseBoolean,
	"byte":          IntBase8,
	"short":         IntBase16,
	"int":           IntBase32,
	"integer":       IntBase32,
	"long":          IntBase64,
	"decimal":       IntBaseInteger,
	"unsignedByte":  UintBase8,
	"unsignedShort": UintBase16,
	"unsignedInt":   UintBase32,
	"unsignedLong":  UintBase64,
}

// Particle is a single slot inside a complex type: one element,
// attribute, wildcard or synthesized content entry.
type Particle struct {
	Prefix       string
	Name         string
	Type         string
	TypeShort    string
	BaseType     string
	TopLevelType string

	MinOccurs int
	MaxOccurs int

	MinLength *int
	MaxLength *int
	MinValue  *apd.Decimal
	MaxValue  *apd.Decimal

	Abstract         bool
	AbstractType     bool
	MaxOccursChanged bool
	IsComplex        bool
	IsSubstitute     bool
	IsEnum           bool
	IsAttribute      bool
	IsSimpleContent  bool
	IsAny            bool
	EnumCount        int

	// set when the choice adjustment pass rewrote min_occurs
	ContentModelChangedRestrictions bool
	// set when a nested sequence overrode the occurrence restrictions
	ParentModelChangedRestrictions bool

	ParentHasSequence          bool
	ParentSequence             []string
	ParentHasChoiceSequence    bool
	ParentChoiceSequenceNumber int // 1-based, 0 when not in a choice sequence
	ParentTypeIsEmpty          bool

	HasSimpleContent   bool
	SimpleContentNames []string

	MinOccursOld *int
	MaxOccursOld *int

	IntegerMin          *apd.Decimal
	IntegerMax          *apd.Decimal
	IntegerBitSize      int
	IntegerBaseType     IntBaseType
	IntegerIsUnsigned   bool
	TypeIsRestrictedInt bool
}

// Typename resolves the name the particle's value type is emitted
// under: base type when present, falling back to the short type and
// finally the particle name.
func (p *Particle) Typename() string {
	result := p.TypeShort
	if p.BaseType != "" {
		result = p.BaseType
	}
	if result == "" {
		result = p.Name
	}
	return result
}

// TypenameSimple is the short type name, with anonymous types named
// after the particle itself.
func (p *Particle) TypenameSimple() string {
	if p.TypeShort == "AnonType" {
		return p.Name
	}
	return p.TypeShort
}

func (p *Particle) PrefixedName() string {
	return p.Prefix + p.Name
}

func (p *Particle) PrefixedType() string {
	return p.Prefix + p.TypenameSimple()
}

// IsArray reports whether more than one occurrence is possible.
func (p *Particle) IsArray() bool {
	return p.MaxOccurs > 1
}

func (p *Particle) IsOptional() bool {
	return p.MinOccurs == 0
}

// ValueParameterName selects the runtime codec parameter the particle's
// value travels in: array, characters or bytes.
func (p *Particle) ValueParameterName() string {
	if p.IsArray() {
		switch {
		case p.IsEnum:
			return "array"
		case p.BaseType == "string":
			return "characters"
		case p.BaseType == "base64Binary" || p.BaseType == "hexBinary":
			return "bytes"
		default:
			return "array"
		}
	}

	if p.BaseType == "base64Binary" || p.BaseType == "hexBinary" {
		return "bytes"
	}
	if p.TypeShort == "base64Binary" {
		return "bytes"
	}

	return "characters"
}

func (p *Particle) LengthParameterName() string {
	return p.ValueParameterName() + "Len"
}

// SimpleType normalizes the particle's simple type family: string,
// binary, hex or uri.
func (p *Particle) SimpleType() string {
	name := p.TypeShort
	if p.BaseType != "" {
		name = p.BaseType
	}

	switch strings.ToLower(name) {
	case "base64binary":
		return "binary"
	case "hexbinary":
		return "hex"
	case "string", "id", "ncname":
		return "string"
	case "anyuri":
		return "uri"
	}
	return p.TypeShort
}

func (p *Particle) SimpleTypeIsString() bool {
	// for now the uri is treated as string
	st := p.SimpleType()
	return st == "string" || st == "uri"
}

func (p *Particle) SimpleTypeIsBinary() bool {
	// for now the hex is treated as binary
	st := p.SimpleType()
	return st == "binary" || st == "hex"
}

// BitCountForCoding is the number of bits required to encode the
// particle's full value range: 1 for boolean, ceil(log2) of the enum
// cardinality or numeric range, 0 when the range is unbounded.
func (p *Particle) BitCountForCoding() int {
	if p.TypeShort == "boolean" {
		return 1
	}

	var numValues *big.Int
	if p.IsEnum {
		numValues = big.NewInt(int64(p.EnumCount))
	} else {
		if p.MaxValue == nil {
			return 0
		}
		max := decimalToBig(p.MaxValue)
		if max.Sign() <= 0 {
			return 0
		}
		min := big.NewInt(0)
		if p.MinValue != nil {
			min = decimalToBig(p.MinValue)
		}
		numValues = new(big.Int).Sub(max, min)
		numValues.Add(numValues, big.NewInt(1))
	}

	// range 0 .. numValues-1
	numValues.Sub(numValues, big.NewInt(1))
	if numValues.Sign() <= 0 {
		return 0
	}
	return numValues.BitLen()
}

func (p *Particle) minOccursOldIs(n int) bool {
	return p.MinOccursOld != nil && *p.MinOccursOld == n
}

func decimalToBig(d *apd.Decimal) *big.Int {
	i := new(big.Int)
	if _, ok := i.SetString(d.Text('f'), 10); !ok {
		return big.NewInt(0)
	}
	return i
}

// ChoiceItem is one alternative of a choice, carrying the 1-based index
// of the alternative inside the content model.
type ChoiceItem struct {
	Name  string
	Index int
}

// Choice describes a choice content model, either over plain elements
// (ChoiceItems) or over sequences of elements (ChoiceSequences).
type Choice struct {
	IsMultiChoice   bool
	MultiChoiceMax  int
	ChoiceItems     []ChoiceItem
	ChoiceSequences [][]ChoiceItem
	MinOccurs       int
}

func NewChoice() *Choice {
	return &Choice{
		MultiChoiceMax: 0,
		MinOccurs:      -1,
	}
}

func (c *Choice) ChoiceItemCount() int {
	return len(c.ChoiceItems)
}

func (c *Choice) ChoiceSequenceCount() int {
	return len(c.ChoiceSequences)
}

// TypeDefinition classifies an ElementData for emission.
type TypeDefinition int

const (
	TypeDefinitionNone TypeDefinition = iota
	TypeDefinitionSimple
	TypeDefinitionComplex
	TypeDefinitionEnum
)

func (d TypeDefinition) String() string {
	switch d {
	case TypeDefinitionSimple:
		return "simple"
	case TypeDefinitionComplex:
		return "complex"
	case TypeDefinitionEnum:
		return "enum"
	default:
		return ""
	}
}

// Content type labels as classified by the schema walk.
const (
	ContentTypeEmpty       = "empty"
	ContentTypeSimple      = "simple"
	ContentTypeElementOnly = "ELEMENT-ONLY"
	ContentTypeMixed       = "mixed"
)

// AbstractSequence records an expanded abstract particle alternation:
// the alphabetically sorted realization names plus the occurrence
// bounds inherited from the replaced particles.
type AbstractSequence struct {
	Names     []string
	MinOccurs int
	MaxOccurs int
}

// ElementData is one complex or enum type scheduled for emission.
type ElementData struct {
	Prefix string
	Level  int
	Count  int

	Name      string
	NameShort string
	Ref       string

	TypeDefinition TypeDefinition
	Type           string
	TypeShort      string
	BaseType       string
	ContentType    string
	Derivation     string

	Final        bool
	Abstract     bool
	AbstractType bool

	HasAbstractSequence bool
	AbstractSequences   []AbstractSequence

	Particles []*Particle

	HasChoice bool
	Choices   []*Choice

	IsInNamespaceElements bool

	HasEnumList bool
	EnumList    []string

	// particle index to the grammar id that follows the particle,
	// populated by the grammar builder
	ParticlesNextGrammarIDs map[int]int
}

func NewElementData(prefix string) *ElementData {
	return &ElementData{
		Prefix:                  prefix,
		Level:                   -1,
		Count:                   -1,
		ParticlesNextGrammarIDs: map[int]int{},
	}
}

// Typename is the emitted type name, with anonymous types named after
// the element.
func (e *ElementData) Typename() string {
	if e.TypeShort == "AnonType" {
		return e.NameShort
	}
	return e.TypeShort
}

func (e *ElementData) PrefixedName() string {
	return e.Prefix + e.NameShort
}

func (e *ElementData) PrefixedType() string {
	return e.Prefix + e.Typename()
}

// ParticleFromName returns the particle with the given name, or nil.
func (e *ElementData) ParticleFromName(name string) *Particle {
	for _, particle := range e.Particles {
		if particle.Name == name {
			return particle
		}
	}
	return nil
}

func (e *ElementData) particleIndex(p *Particle) int {
	for idx, particle := range e.Particles {
		if particle == p {
			return idx
		}
	}
	return -1
}
