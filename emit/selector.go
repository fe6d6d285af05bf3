package emit

import (
	"github.com/sirupsen/logrus"

	"github.com/chargeport/exigen/analyzer"
	"github.com/chargeport/exigen/grammar"
	"github.com/chargeport/exigen/utils"
)

// CoderKind selects the runtime codec routine a grammar detail decodes
// or encodes with. Decoder and encoder share the table; only the
// rendered template differs.
type CoderKind int

const (
	KindNotImplemented CoderKind = iota
	KindNoEvent
	KindEndElement
	KindHexBinary
	KindBase64BinarySimple
	KindBase64Binary
	KindBoolean
	KindRestrictedInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint16Array
	KindUint32
	KindUint64
	KindString
	KindEnum
	KindEnumArray
	KindElement
	KindElementArray
	KindNamespaceElement
)

func (k CoderKind) String() string {
	switch k {
	case KindNoEvent:
		return "no-event"
	case KindEndElement:
		return "end-element"
	case KindHexBinary:
		return "hexBinary"
	case KindBase64BinarySimple:
		return "base64Binary-simple"
	case KindBase64Binary:
		return "base64Binary"
	case KindBoolean:
		return "boolean"
	case KindRestrictedInt:
		return "restricted-int"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint16Array:
		return "uint16-array"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindEnumArray:
		return "enum-array"
	case KindElement:
		return "element"
	case KindElementArray:
		return "element-array"
	case KindNamespaceElement:
		return "namespace-element"
	default:
		return "not-implemented"
	}
}

// SelectorFor maps one grammar detail to its codec routine. LOOP
// details are rejected loudly instead of degrading. Unhandled types
// fall back to KindNotImplemented with a diagnostic.
func SelectorFor(detail *grammar.ElementGrammarDetail, element *analyzer.ElementData,
	data *analyzer.AnalyzerData, log *logrus.Entry) (CoderKind, error) {

	if detail.Flag == grammar.FlagLoop {
		return KindNotImplemented, &Error{
			Typename: element.Typename(),
			Reason:   "loop grammars (maxOccurs >= 25) are not implemented",
		}
	}
	if detail.Particle == nil {
		return KindEndElement, nil
	}

	particle := detail.Particle

	if element.IsInNamespaceElements {
		return KindNamespaceElement, nil
	}
	if detail.IsAny() && detail.AnyIsDummy {
		return KindNoEvent, nil
	}

	if particle.IsEnum {
		if particle.IsArray() {
			return KindEnumArray, nil
		}
		return KindEnum, nil
	}

	if particle.IntegerBaseType != analyzer.IntBaseNone &&
		particle.IntegerBaseType != analyzer.IntBaseChar {
		return integerSelector(particle, log)
	}

	if !utils.ContainsKey(data.SchemaBuiltinTypes, particle.Typename()) {
		if !particle.SimpleTypeIsString() {
			if particle.IsArray() {
				return KindElementArray, nil
			}
			return KindElement, nil
		}
		log.Errorf("Unhandled fallthrough type: '%s': %s", particle.Name, element.Typename())
		return KindNotImplemented, nil
	}

	switch {
	case particle.IsComplex:
		return KindElement, nil
	case particle.SimpleTypeIsString():
		return KindString, nil
	case particle.Typename() == "nonNegativeInteger" && particle.TypeShort == "unsignedLong":
		return KindInt64, nil
	case particle.Typename() == "hexBinary":
		return KindHexBinary, nil
	case particle.Typename() == "base64Binary":
		if particle.IsSimpleContent {
			return KindBase64BinarySimple, nil
		}
		return KindBase64Binary, nil
	case particle.Typename() == "integer":
		if particle.IntegerBitSize == 64 && !particle.IntegerIsUnsigned {
			return KindInt64, nil
		}
	}

	log.Errorf("Unhandled type: '%s': '%s', base type '%s'",
		particle.Name, particle.TypeShort, particle.Typename())
	return KindNotImplemented, nil
}

func integerSelector(particle *analyzer.Particle, log *logrus.Entry) (CoderKind, error) {
	if particle.TypeIsRestrictedInt {
		// 4096 or fewer values: range shifted n-bit coding
		return KindRestrictedInt, nil
	}

	switch particle.IntegerBaseType {
	case analyzer.IntBaseBoolean:
		return KindBoolean, nil
	case analyzer.IntBase8:
		return KindInt8, nil
	case analyzer.IntBase16:
		return KindInt16, nil
	case analyzer.IntBase32:
		return KindInt32, nil
	case analyzer.IntBase64:
		return KindInt64, nil
	case analyzer.UintBase8:
		return KindUint8, nil
	case analyzer.UintBase16:
		if particle.IsArray() {
			return KindUint16Array, nil
		}
		return KindUint16, nil
	case analyzer.UintBase32:
		return KindUint32, nil
	case analyzer.UintBase64:
		return KindUint64, nil
	default:
		log.Errorf("Unhandled numeric type: '%s': '%s', integer_base_type = '%s'",
			particle.Name, particle.TypeShort, particle.IntegerBaseType)
		return KindNotImplemented, nil
	}
}
