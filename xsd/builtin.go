package xsd

import (
	"github.com/cockroachdb/apd/v3"
)

// BuiltinType describes one of the XML Schema atomic builtins the V2G
// schemas use. Integer builtins carry their value space so facet
// resolution can fall back to it when a restriction narrows only one
// bound (or none).
type BuiltinType struct {
	Local     string
	Base      string
	Primitive string
	IsInteger bool
	MinValue  *apd.Decimal
	MaxValue  *apd.Decimal
}

func dec(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic("xsd: bad builtin range constant: " + s)
	}
	return d
}

var builtinTypes = map[string]*BuiltinType{
	"anyType":       {Local: "anyType", Base: "", Primitive: "anyType"},
	"anySimpleType": {Local: "anySimpleType", Base: "anyType", Primitive: "anySimpleType"},
	"string":        {Local: "string", Base: "anySimpleType", Primitive: "string"},
	"normalizedString": {
		Local: "normalizedString", Base: "string", Primitive: "string",
	},
	"token":        {Local: "token", Base: "normalizedString", Primitive: "string"},
	"Name":         {Local: "Name", Base: "token", Primitive: "string"},
	"NCName":       {Local: "NCName", Base: "Name", Primitive: "string"},
	"ID":           {Local: "ID", Base: "NCName", Primitive: "string"},
	"IDREF":        {Local: "IDREF", Base: "NCName", Primitive: "string"},
	"language":     {Local: "language", Base: "token", Primitive: "string"},
	"anyURI":       {Local: "anyURI", Base: "anySimpleType", Primitive: "anyURI"},
	"QName":        {Local: "QName", Base: "anySimpleType", Primitive: "QName"},
	"boolean":      {Local: "boolean", Base: "anySimpleType", Primitive: "boolean"},
	"hexBinary":    {Local: "hexBinary", Base: "anySimpleType", Primitive: "hexBinary"},
	"base64Binary": {Local: "base64Binary", Base: "anySimpleType", Primitive: "base64Binary"},
	"decimal":      {Local: "decimal", Base: "anySimpleType", Primitive: "decimal"},
	"float":        {Local: "float", Base: "anySimpleType", Primitive: "float"},
	"double":       {Local: "double", Base: "anySimpleType", Primitive: "double"},
	"dateTime":     {Local: "dateTime", Base: "anySimpleType", Primitive: "dateTime"},
	"date":         {Local: "date", Base: "anySimpleType", Primitive: "date"},
	"time":         {Local: "time", Base: "anySimpleType", Primitive: "time"},
	"duration":     {Local: "duration", Base: "anySimpleType", Primitive: "duration"},

	"integer": {
		Local: "integer", Base: "decimal", Primitive: "decimal", IsInteger: true,
	},
	"nonNegativeInteger": {
		Local: "nonNegativeInteger", Base: "integer", Primitive: "decimal",
		IsInteger: true, MinValue: dec("0"),
	},
	"positiveInteger": {
		Local: "positiveInteger", Base: "nonNegativeInteger", Primitive: "decimal",
		IsInteger: true, MinValue: dec("1"),
	},
	"nonPositiveInteger": {
		Local: "nonPositiveInteger", Base: "integer", Primitive: "decimal",
		IsInteger: true, MaxValue: dec("0"),
	},
	"negativeInteger": {
		Local: "negativeInteger", Base: "nonPositiveInteger", Primitive: "decimal",
		IsInteger: true, MaxValue: dec("-1"),
	},
	"long": {
		Local: "long", Base: "integer", Primitive: "decimal", IsInteger: true,
		MinValue: dec("-9223372036854775808"), MaxValue: dec("9223372036854775807"),
	},
	"int": {
		Local: "int", Base: "long", Primitive: "decimal", IsInteger: true,
		MinValue: dec("-2147483648"), MaxValue: dec("2147483647"),
	},
	"short": {
		Local: "short", Base: "int", Primitive: "decimal", IsInteger: true,
		MinValue: dec("-32768"), MaxValue: dec("32767"),
	},
	"byte": {
		Local: "byte", Base: "short", Primitive: "decimal", IsInteger: true,
		MinValue: dec("-128"), MaxValue: dec("127"),
	},
	"unsignedLong": {
		Local: "unsignedLong", Base: "nonNegativeInteger", Primitive: "decimal",
		IsInteger: true, MinValue: dec("0"), MaxValue: dec("18446744073709551615"),
	},
	"unsignedInt": {
		Local: "unsignedInt", Base: "unsignedLong", Primitive: "decimal",
		IsInteger: true, MinValue: dec("0"), MaxValue: dec("4294967295"),
	},
	"unsignedShort": {
		Local: "unsignedShort", Base: "unsignedInt", Primitive: "decimal",
		IsInteger: true, MinValue: dec("0"), MaxValue: dec("65535"),
	},
	"unsignedByte": {
		Local: "unsignedByte", Base: "unsignedShort", Primitive: "decimal",
		IsInteger: true, MinValue: dec("0"), MaxValue: dec("255"),
	},
}

// BuiltinByName returns the builtin type with the given local name, or
// nil if the name is not a known XML Schema builtin.
func BuiltinByName(local string) *BuiltinType {
	return builtinTypes[local]
}

// BuiltinTypeNames returns the local name to base type local name table
// for all registered builtins, keyed the way the analyzer publishes it.
func BuiltinTypeNames() map[string]string {
	result := make(map[string]string, len(builtinTypes))
	for name, bt := range builtinTypes {
		result[name] = bt.Base
	}
	return result
}
