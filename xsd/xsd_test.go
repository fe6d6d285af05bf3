package xsd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeport/exigen/xsd"
)

const schemaOpen = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:tns="urn:test" targetNamespace="urn:test"
           elementFormDefault="qualified">`

func loadSet(t *testing.T, docs map[string]string, root string) *xsd.SchemaSet {
	t.Helper()

	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	set, err := xsd.Load(root, dir)
	require.NoError(t, err)
	return set
}

func TestParseQName(t *testing.T) {
	t.Parallel()

	xmlns := map[string]string{
		"":    "urn:default",
		"tns": "urn:test",
	}

	assert.Equal(t, xsd.QName{Space: "urn:test", Local: "Foo"}, xsd.ParseQName("tns:Foo", xmlns))
	assert.Equal(t, xsd.QName{Space: "urn:default", Local: "Bar"}, xsd.ParseQName("Bar", xmlns))
	assert.Equal(t, "{urn:test}Foo", xsd.QName{Space: "urn:test", Local: "Foo"}.String())
	assert.True(t, xsd.ParseQName("", xmlns).IsZero())
}

func TestLoadGlobalComponents(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Message" type="tns:MessageType"/>
  <xs:complexType name="MessageType">
    <xs:sequence>
      <xs:element name="Id" type="xs:unsignedByte"/>
      <xs:element name="Payload" type="xs:string" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd")

	element := set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Message"})
	require.NotNil(t, element)

	messageType := set.TypeOf(element)
	require.NotNil(t, messageType)
	assert.True(t, messageType.IsComplex())
	assert.Equal(t, "MessageType", messageType.LocalName())
	assert.Equal(t, "{urn:test}MessageType", messageType.QualifiedName())
	assert.Equal(t, "element-only", messageType.ContentTypeLabel())

	uses := messageType.ChildUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "Id", uses[0].Decl.Name)
	assert.Equal(t, 1, uses[0].MinOccurs())
	assert.Equal(t, 1, uses[0].MaxOccurs())
	assert.Equal(t, "Payload", uses[1].Decl.Name)
	assert.Equal(t, 0, uses[1].MinOccurs())
}

func TestOccursParsing(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="List" type="tns:ListType"/>
  <xs:complexType name="ListType">
    <xs:sequence>
      <xs:element name="Entry" type="xs:int" minOccurs="0" maxOccurs="unbounded"/>
      <xs:element name="Bounded" type="xs:int" maxOccurs="3"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd")

	uses := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "List"})).ChildUses()
	require.Len(t, uses, 2)
	assert.Equal(t, xsd.Unbounded, uses[0].MaxOccurs())
	assert.Equal(t, 3, uses[1].MaxOccurs())
}

func TestFacetResolution(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Doc" type="tns:DocType"/>
  <xs:complexType name="DocType">
    <xs:sequence>
      <xs:element name="Percent" type="tns:percentValueType"/>
      <xs:element name="Name" type="tns:nameType"/>
    </xs:sequence>
  </xs:complexType>
  <xs:simpleType name="percentValueType">
    <xs:restriction base="xs:byte">
      <xs:minInclusive value="0"/>
      <xs:maxInclusive value="100"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="nameType">
    <xs:restriction base="xs:string">
      <xs:maxLength value="32"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`,
	}, "main.xsd")

	uses := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Doc"})).ChildUses()
	require.Len(t, uses, 2)

	percent := set.TypeOf(uses[0].Decl)
	require.NotNil(t, percent.MinValue())
	require.NotNil(t, percent.MaxValue())
	assert.Equal(t, "0", percent.MinValue().String())
	assert.Equal(t, "100", percent.MaxValue().String())
	assert.True(t, percent.IsIntegerDerived())
	assert.Equal(t, "byte", percent.BaseType().LocalName())

	name := set.TypeOf(uses[1].Decl)
	require.NotNil(t, name.MaxLength())
	assert.Equal(t, 32, *name.MaxLength())
	assert.Nil(t, name.MinLength())
}

func TestBuiltinRangeFallback(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="V" type="xs:unsignedByte"/>
</xs:schema>`,
	}, "main.xsd")

	v := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "V"}))
	require.NotNil(t, v.MinValue())
	require.NotNil(t, v.MaxValue())
	assert.Equal(t, "0", v.MinValue().String())
	assert.Equal(t, "255", v.MaxValue().String())

	big := xsd.BuiltinByName("unsignedLong")
	require.NotNil(t, big)
	assert.Equal(t, "18446744073709551615", big.MaxValue.String())
}

func TestEnumerationChain(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Unit" type="tns:unitSymbolType"/>
  <xs:simpleType name="unitSymbolType">
    <xs:restriction base="xs:string">
      <xs:enumeration value="h"/>
      <xs:enumeration value="m"/>
      <xs:enumeration value="s"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`,
	}, "main.xsd")

	unit := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Unit"}))
	assert.Equal(t, []string{"h", "m", "s"}, unit.Enumeration())
	assert.Equal(t, "restriction", unit.Derivation())
}

func TestSubstitutionGroupIndex(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Base" type="tns:BaseType" abstract="true"/>
  <xs:element name="C" type="tns:CType" substitutionGroup="tns:Base"/>
  <xs:element name="D" type="tns:DType" substitutionGroup="tns:Base"/>
  <xs:complexType name="BaseType" abstract="true"/>
  <xs:complexType name="CType"><xs:sequence/></xs:complexType>
  <xs:complexType name="DType"><xs:sequence/></xs:complexType>
</xs:schema>`,
	}, "main.xsd")

	members := set.SubstitutionGroup(xsd.QName{Space: "urn:test", Local: "Base"})
	require.Len(t, members, 2)
	assert.Equal(t, "C", members[0].Name)
	assert.Equal(t, "D", members[1].Name)

	base := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Base"}))
	assert.True(t, base.IsAbstract())
}

func TestIncludeAndImportResolution(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:tns="urn:test" xmlns:body="urn:body"
           targetNamespace="urn:test" elementFormDefault="qualified">
  <xs:import namespace="urn:body" schemaLocation="body.xsd"/>
  <xs:include schemaLocation="extra.xsd"/>
  <xs:element name="Envelope" type="tns:EnvelopeType"/>
  <xs:complexType name="EnvelopeType">
    <xs:sequence>
      <xs:element name="Body" type="body:BodyType"/>
      <xs:element ref="tns:Extra" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
		"body.xsd": `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:body" elementFormDefault="qualified">
  <xs:complexType name="BodyType"><xs:sequence/></xs:complexType>
</xs:schema>`,
		"extra.xsd": schemaOpen + `
  <xs:element name="Extra" type="xs:string"/>
</xs:schema>`,
	}, "main.xsd")

	require.Len(t, set.Schemas(), 3)
	require.NotNil(t, set.SchemaForNamespace("urn:body"))

	envelope := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Envelope"}))
	uses := envelope.ChildUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "BodyType", set.TypeOf(uses[0].Decl).LocalName())

	// the ref use resolves to the included global element
	assert.Equal(t, "Extra", uses[1].Decl.Name)
	assert.Equal(t, "string", set.TypeOf(uses[1].Decl).LocalName())
}

func TestNestedGroupFlattening(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Key" type="tns:KeyValueType"/>
  <xs:complexType name="KeyValueType">
    <xs:sequence>
      <xs:sequence minOccurs="0">
        <xs:element name="P" type="xs:string"/>
        <xs:element name="Q" type="xs:string"/>
      </xs:sequence>
      <xs:element name="Y" type="xs:string"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd")

	uses := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Key"})).ChildUses()
	require.Len(t, uses, 3)
	assert.Equal(t, []string{"P", "Q", "Y"},
		[]string{uses[0].Decl.Name, uses[1].Decl.Name, uses[2].Decl.Name})

	// P and Q sit inside a sequence nested in a sequence
	require.NotNil(t, uses[0].Group)
	assert.Equal(t, xsd.GroupSequence, uses[0].Group.Kind)
	require.NotNil(t, uses[0].Group.Parent())
	assert.Equal(t, xsd.GroupSequence, uses[0].Group.Parent().Kind)
	assert.Equal(t, 0, uses[0].Group.MinOccurs())

	// Y belongs to the outer sequence
	assert.Nil(t, uses[2].Group.Parent())
}

func TestContentTypeLabels(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Empty" type="tns:EmptyType"/>
  <xs:element name="Simple" type="tns:SimpleContentType"/>
  <xs:complexType name="EmptyType"/>
  <xs:complexType name="SimpleContentType">
    <xs:simpleContent>
      <xs:extension base="xs:base64Binary">
        <xs:attribute name="Id" type="xs:ID" use="required"/>
      </xs:extension>
    </xs:simpleContent>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd")

	empty := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Empty"}))
	assert.Equal(t, "empty", empty.ContentTypeLabel())

	simple := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Simple"}))
	assert.Equal(t, "simple", simple.ContentTypeLabel())
	assert.Equal(t, "extension", simple.Derivation())
	assert.Equal(t, "base64Binary", simple.BaseType().LocalName())

	attrs := simple.AttributeUses()
	require.Len(t, attrs, 1)
	assert.Equal(t, "Id", attrs[0].Decl.Name)
	assert.True(t, attrs[0].Decl.IsRequired())
}

func TestComplexContentExtension(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Derived" type="tns:DerivedType"/>
  <xs:complexType name="BaseType">
    <xs:sequence>
      <xs:element name="A" type="xs:int"/>
    </xs:sequence>
  </xs:complexType>
  <xs:complexType name="DerivedType">
    <xs:complexContent>
      <xs:extension base="tns:BaseType">
        <xs:sequence>
          <xs:element name="B" type="xs:int"/>
        </xs:sequence>
      </xs:extension>
    </xs:complexContent>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd")

	derived := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Derived"}))
	uses := derived.ChildUses()
	require.Len(t, uses, 2)
	// base content precedes the extension's own content
	assert.Equal(t, "A", uses[0].Decl.Name)
	assert.Equal(t, "B", uses[1].Decl.Name)
	assert.Equal(t, "BaseType", derived.BaseType().LocalName())
}

func TestWildcardUse(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Holder" type="tns:HolderType"/>
  <xs:complexType name="HolderType">
    <xs:sequence>
      <xs:element name="Known" type="xs:string"/>
      <xs:any namespace="##any" processContents="lax" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd")

	uses := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Holder"})).ChildUses()
	require.Len(t, uses, 2)
	assert.False(t, uses[0].IsAny())
	assert.True(t, uses[1].IsAny())
	assert.Equal(t, 0, uses[1].MinOccurs())
}

func TestAnonymousInlineType(t *testing.T) {
	t.Parallel()

	set := loadSet(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Outer" type="tns:OuterType"/>
  <xs:complexType name="OuterType">
    <xs:sequence>
      <xs:element name="Inline">
        <xs:complexType>
          <xs:sequence>
            <xs:element name="V" type="xs:int"/>
          </xs:sequence>
        </xs:complexType>
      </xs:element>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd")

	uses := set.TypeOf(set.GlobalElement(xsd.QName{Space: "urn:test", Local: "Outer"})).ChildUses()
	require.Len(t, uses, 1)

	inline := set.TypeOf(uses[0].Decl)
	assert.True(t, inline.IsComplex())
	assert.True(t, inline.IsAnonymous())
	assert.Equal(t, "", inline.QualifiedName())
	require.Len(t, inline.ChildUses(), 1)
}
