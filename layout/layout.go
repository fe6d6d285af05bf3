// Package layout decides, per particle, the storage shape the emitted
// code declares: plain scalars, used-flag optionals, fixed capacity
// arrays with length fields, and the unions for substitute groups and
// choice-of-sequences.
package layout

import (
	"fmt"

	"github.com/chargeport/exigen/analyzer"
	"github.com/chargeport/exigen/utils"
)

// StorageKind is the emitted storage shape of one particle.
type StorageKind int

const (
	StorageScalar StorageKind = iota
	StorageScalarWithUsed
	StorageStruct
	StorageStructWithUsed
	StorageStructArray
	StorageScalarArray
	StorageEnumArray
	StorageCharArray
	StorageByteArray
)

func (k StorageKind) String() string {
	switch k {
	case StorageScalar:
		return "scalar"
	case StorageScalarWithUsed:
		return "scalar+used"
	case StorageStruct:
		return "struct"
	case StorageStructWithUsed:
		return "struct+used"
	case StorageStructArray:
		return "struct-array"
	case StorageScalarArray:
		return "scalar-array"
	case StorageEnumArray:
		return "enum-array"
	case StorageCharArray:
		return "char-array"
	default:
		return "byte-array"
	}
}

// Options carries the identifier shape knobs the planner needs.
type Options struct {
	ArrayDefineAddendum  string
	CharDefineAddendum   string
	ByteDefineAddendum   string
	ChoiceSequencePrefix string
}

// FieldPlan is the storage decision for one particle.
type FieldPlan struct {
	Particle *analyzer.Particle
	Kind     StorageKind
	WithUsed bool

	// TypeName is the language neutral value type: the integer base
	// type for translated integers, the prefixed type otherwise.
	TypeName string

	// ArrayDefine names the capacity constant of array storage.
	ArrayDefine string
	// LengthDefine names the capacity constant of char/byte storage.
	LengthDefine string
	// LengthValue is the constant's value ("" selects the runtime
	// library's default capacity).
	LengthValue string
}

// UnionPlan collects the alternatives sharing one storage slot.
type UnionPlan struct {
	Name   string
	Fields []FieldPlan
}

// StructPlan is the full storage layout of one emitted type.
type StructPlan struct {
	Element *analyzer.ElementData
	Fields  []FieldPlan

	// SubstituteUnion holds the optional alternatives of an expanded
	// substitution group, nil when the type has none.
	SubstituteUnion *UnionPlan

	// ChoiceSequenceUnions holds one arm per choice sequence for
	// choice-of-sequences types.
	ChoiceSequenceUnions []UnionPlan
}

// Planner maps particles to emission storage. It is stateless apart
// from the frozen analyzer result.
type Planner struct {
	data *analyzer.AnalyzerData
	opts Options
}

func NewPlanner(data *analyzer.AnalyzerData, opts Options) *Planner {
	return &Planner{data: data, opts: opts}
}

// PlanStruct derives the storage layout of one element.
func (p *Planner) PlanStruct(element *analyzer.ElementData) *StructPlan {
	plan := &StructPlan{Element: element}

	if hasChoiceSequences(element) {
		sequenceNumber := 0
		for _, choice := range element.Choices {
			for _, sequence := range choice.ChoiceSequences {
				sequenceNumber++
				arm := UnionPlan{
					Name: fmt.Sprintf("%s%d", p.opts.ChoiceSequencePrefix, sequenceNumber),
				}
				for _, item := range sequence {
					if particle := element.ParticleFromName(item.Name); particle != nil {
						arm.Fields = append(arm.Fields, p.PlanField(particle))
					}
				}
				plan.ChoiceSequenceUnions = append(plan.ChoiceSequenceUnions, arm)
			}
		}
		return plan
	}

	var substitutes []FieldPlan
	for _, particle := range element.Particles {
		if particle.MaxOccurs == 1 && particle.MinOccurs == 0 && particle.IsSubstitute {
			field := p.PlanField(particle)
			field.WithUsed = true
			substitutes = append(substitutes, field)
			continue
		}
		plan.Fields = append(plan.Fields, p.PlanField(particle))
	}

	switch len(substitutes) {
	case 0:
	case 1:
		// a single alternative degrades to a plain optional
		plan.Fields = append(plan.Fields, substitutes[0])
	default:
		plan.SubstituteUnion = &UnionPlan{Fields: substitutes}
	}

	return plan
}

// PlanField applies the storage table to a single particle.
func (p *Planner) PlanField(particle *analyzer.Particle) FieldPlan {
	field := FieldPlan{
		Particle: particle,
		TypeName: p.fieldTypeName(particle),
	}

	known := utils.ContainsKey(p.data.KnownElements, particle.Type)

	switch {
	case particle.MaxOccurs > 1:
		switch {
		case particle.IsEnum:
			field.Kind = StorageEnumArray
		case particle.SimpleTypeIsString():
			field.Kind = StorageCharArray
		case particle.SimpleTypeIsBinary():
			field.Kind = StorageByteArray
		case particle.IsComplex:
			field.Kind = StorageStructArray
		default:
			field.Kind = StorageScalarArray
		}
		field.ArrayDefine = p.ArrayDefine(particle)

	case particle.MinOccurs == 0:
		field.WithUsed = true
		switch {
		case particle.SimpleTypeIsString() && !known && !particle.IsEnum:
			field.Kind = StorageCharArray
		case particle.SimpleTypeIsBinary() && !known:
			field.Kind = StorageByteArray
		case particle.IsComplex:
			field.Kind = StorageStructWithUsed
		case known && !utils.ContainsKey(p.data.KnownEnums, particle.Type):
			field.Kind = StorageStructWithUsed
		default:
			field.Kind = StorageScalarWithUsed
		}

	default:
		switch {
		case particle.SimpleTypeIsString():
			field.Kind = StorageCharArray
		case particle.SimpleTypeIsBinary():
			field.Kind = StorageByteArray
		case particle.IsComplex:
			field.Kind = StorageStruct
		case known && !utils.ContainsKey(p.data.KnownEnums, particle.Type):
			field.Kind = StorageStruct
		default:
			field.Kind = StorageScalar
		}
	}

	if field.Kind == StorageCharArray || field.Kind == StorageByteArray {
		field.LengthDefine = p.BaseTypeDefine(particle)
		field.LengthValue = p.lengthValue(particle)
	}

	return field
}

func (p *Planner) fieldTypeName(particle *analyzer.Particle) string {
	if particle.IntegerBaseType != analyzer.IntBaseNone {
		return particle.IntegerBaseType.String()
	}
	return particle.PrefixedType()
}

// ArrayDefine derives the capacity constant of an array particle. Two
// particles only share a symbol when their occurrence caps agree.
func (p *Planner) ArrayDefine(particle *analyzer.Particle) string {
	if !particle.IsArray() {
		return ""
	}
	return fmt.Sprintf("%s%s_%d%s", particle.Prefix, particle.TypenameSimple(),
		particle.MaxOccurs, p.opts.ArrayDefineAddendum)
}

// BaseTypeDefine derives the capacity constant of char and byte
// storage.
func (p *Planner) BaseTypeDefine(particle *analyzer.Particle) string {
	if particle.IsEnum {
		return ""
	}

	switch particle.BaseType {
	case "base64Binary", "hexBinary":
		return particle.Prefix + particle.TypeShort + p.opts.ByteDefineAddendum
	case "string", "anyURI", "ID", "NCName":
		return particle.Prefix + particle.Name + p.opts.CharDefineAddendum
	}

	if particle.TypeShort == "" {
		return particle.Prefix + particle.Name + p.opts.CharDefineAddendum
	}

	if !particle.IsComplex {
		switch particle.TypeShort {
		case "string", "anyURI":
			return particle.Prefix + particle.Name + p.opts.CharDefineAddendum
		case "base64Binary", "hexBinary":
			return particle.Prefix + particle.TypeShort + p.opts.ByteDefineAddendum
		}
	}

	return ""
}

// lengthValue resolves the capacity constant's value: the bounded
// maxLength facet when present (strings reserve the terminator extra),
// the runtime library's default otherwise.
func (p *Planner) lengthValue(particle *analyzer.Particle) string {
	if particle.MaxLength != nil && *particle.MaxLength > 0 {
		if particle.SimpleTypeIsString() {
			return fmt.Sprintf("%d + ASCII_EXTRA_CHAR", *particle.MaxLength)
		}
		return fmt.Sprintf("%d", *particle.MaxLength)
	}

	if particle.ValueParameterName() == "bytes" {
		return "EXI_BYTE_ARRAY_MAX_LEN"
	}
	return "EXI_STRING_MAX_LEN + ASCII_EXTRA_CHAR"
}

func hasChoiceSequences(element *analyzer.ElementData) bool {
	if !element.HasChoice {
		return false
	}
	for _, choice := range element.Choices {
		if choice.ChoiceSequenceCount() > 0 {
			return true
		}
	}
	return false
}
