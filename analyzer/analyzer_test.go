package analyzer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeport/exigen/analyzer"
	"github.com/chargeport/exigen/xsd"
)

const schemaOpen = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:tns="urn:test" targetNamespace="urn:test"
           elementFormDefault="qualified">`

func analyze(t *testing.T, docs map[string]string, root string, opts analyzer.Options) *analyzer.AnalyzerData {
	t.Helper()

	data, err := analyzeWithError(t, docs, root, opts)
	require.NoError(t, err)
	return data
}

func analyzeWithError(t *testing.T, docs map[string]string, root string, opts analyzer.Options) (*analyzer.AnalyzerData, error) {
	t.Helper()

	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	set, err := xsd.Load(root, dir)
	require.NoError(t, err)

	if opts.Prefix == "" {
		opts.Prefix = "test_"
	}
	return analyzer.NewSchemaAnalyzer(set, opts, nil).Analyze()
}

func elementByName(data *analyzer.AnalyzerData, nameShort string) *analyzer.ElementData {
	for _, element := range data.GenerateElements {
		if element.NameShort == nameShort {
			return element
		}
	}
	return nil
}

func TestScalarMandatoryParticle(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:complexType name="TType">
    <xs:sequence>
      <xs:element name="x" type="xs:unsignedByte"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	element := elementByName(data, "T")
	require.NotNil(t, element)
	assert.Equal(t, analyzer.TypeDefinitionComplex, element.TypeDefinition)
	assert.Equal(t, "TType", element.TypeShort)

	require.Len(t, element.Particles, 1)
	x := element.Particles[0]
	assert.Equal(t, "x", x.Name)
	assert.Equal(t, 1, x.MinOccurs)
	assert.Equal(t, 1, x.MaxOccurs)
	assert.False(t, x.IsArray())
	assert.False(t, x.IsOptional())
	assert.Equal(t, analyzer.UintBase8, x.IntegerBaseType)
	assert.Equal(t, 8, x.IntegerBitSize)
	assert.True(t, x.IntegerIsUnsigned)
	assert.True(t, x.TypeIsRestrictedInt)
	assert.Equal(t, 8, x.BitCountForCoding())
}

func TestOccurrenceCorrection(t *testing.T) {
	t.Parallel()

	docs := map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:complexType name="TType">
    <xs:sequence>
      <xs:element name="Entry" type="xs:int" minOccurs="0" maxOccurs="unbounded"/>
      <xs:element name="Other" type="xs:int" minOccurs="0" maxOccurs="unbounded"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}

	data := analyze(t, docs, "main.xsd", analyzer.Options{
		OccurrenceLimits: map[string]int{"Entry": 4},
	})

	element := elementByName(data, "T")
	require.NotNil(t, element)
	require.Len(t, element.Particles, 2)

	entry := element.Particles[0]
	assert.Equal(t, 4, entry.MaxOccurs)
	assert.True(t, entry.MaxOccursChanged)
	require.NotNil(t, entry.MaxOccursOld)
	assert.Equal(t, xsd.Unbounded, *entry.MaxOccursOld)

	// no table entry defaults to 1 with a warning, never fatal
	other := element.Particles[1]
	assert.Equal(t, 1, other.MaxOccurs)
	assert.True(t, other.MaxOccursChanged)

	assert.Equal(t, map[string]int{"Entry": 4, "Other": 1}, data.MaxOccursChanged)
}

func TestChoiceDetectionAndAdjustment(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:complexType name="TType">
    <xs:choice>
      <xs:element name="a" type="xs:int"/>
      <xs:element name="b" type="xs:int"/>
    </xs:choice>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	element := elementByName(data, "T")
	require.NotNil(t, element)
	assert.True(t, element.HasChoice)
	require.Len(t, element.Choices, 1)

	choice := element.Choices[0]
	require.Len(t, choice.ChoiceItems, 2)
	assert.Equal(t, analyzer.ChoiceItem{Name: "a", Index: 1}, choice.ChoiceItems[0])
	assert.Equal(t, analyzer.ChoiceItem{Name: "b", Index: 2}, choice.ChoiceItems[1])
	assert.Equal(t, 1, choice.MinOccurs)
	assert.False(t, choice.IsMultiChoice)

	// choice members become optional, the original min moves to min_occurs_old
	for _, particle := range element.Particles {
		assert.Equal(t, 0, particle.MinOccurs, particle.Name)
		require.NotNil(t, particle.MinOccursOld, particle.Name)
		assert.Equal(t, 1, *particle.MinOccursOld, particle.Name)
		assert.True(t, particle.ContentModelChangedRestrictions, particle.Name)
	}
}

func TestChoiceOfSequences(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:complexType name="TType">
    <xs:choice>
      <xs:sequence>
        <xs:element name="a" type="xs:int"/>
        <xs:element name="b" type="xs:int"/>
      </xs:sequence>
      <xs:sequence>
        <xs:element name="c" type="xs:int"/>
        <xs:element name="d" type="xs:int"/>
      </xs:sequence>
    </xs:choice>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	element := elementByName(data, "T")
	require.NotNil(t, element)
	assert.True(t, element.HasChoice)
	require.Len(t, element.Choices, 1)

	choice := element.Choices[0]
	assert.Empty(t, choice.ChoiceItems)
	require.Len(t, choice.ChoiceSequences, 2)
	assert.Equal(t, "a", choice.ChoiceSequences[0][0].Name)
	assert.Equal(t, "c", choice.ChoiceSequences[1][0].Name)

	require.Len(t, element.Particles, 4)
	for idx, want := range []int{1, 1, 2, 2} {
		particle := element.Particles[idx]
		assert.True(t, particle.ParentHasChoiceSequence, particle.Name)
		assert.Equal(t, want, particle.ParentChoiceSequenceNumber, particle.Name)
	}
}

func TestNestedSequenceRestrictionInheritance(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
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
	}, "main.xsd", analyzer.Options{})

	element := elementByName(data, "Key")
	require.NotNil(t, element)
	require.Len(t, element.Particles, 3)

	for _, name := range []string{"P", "Q"} {
		particle := element.ParticleFromName(name)
		require.NotNil(t, particle, name)
		assert.True(t, particle.ParentModelChangedRestrictions, name)
		assert.True(t, particle.ParentHasSequence, name)
		assert.Equal(t, []string{"P", "Q"}, particle.ParentSequence, name)
		assert.Equal(t, 0, particle.MinOccurs, name)
		require.NotNil(t, particle.MinOccursOld, name)
		assert.Equal(t, 1, *particle.MinOccursOld, name)
	}

	y := element.ParticleFromName("Y")
	require.NotNil(t, y)
	assert.False(t, y.ParentHasSequence)
	assert.Equal(t, 1, y.MinOccurs)
}

func TestSubstitutionGroupFlattening(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:element name="Base" type="tns:BaseType" abstract="true"/>
  <xs:element name="C" type="tns:CType" substitutionGroup="tns:Base"/>
  <xs:element name="D" type="tns:DType" substitutionGroup="tns:Base"/>
  <xs:complexType name="TType">
    <xs:sequence>
      <xs:element ref="tns:Base" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
  <xs:complexType name="BaseType" abstract="true"/>
  <xs:complexType name="CType">
    <xs:sequence><xs:element name="v" type="xs:int"/></xs:sequence>
  </xs:complexType>
  <xs:complexType name="DType">
    <xs:sequence><xs:element name="w" type="xs:int"/></xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	element := elementByName(data, "T")
	require.NotNil(t, element)
	require.Len(t, element.Particles, 2)

	c, d := element.Particles[0], element.Particles[1]
	assert.Equal(t, "C", c.Name)
	assert.Equal(t, "D", d.Name)
	for _, particle := range element.Particles {
		assert.True(t, particle.IsSubstitute, particle.Name)
		assert.True(t, particle.IsComplex, particle.Name)
		assert.Equal(t, 0, particle.MinOccurs, particle.Name)
		assert.Equal(t, 1, particle.MaxOccurs, particle.Name)
	}

	require.True(t, element.HasAbstractSequence)
	require.Len(t, element.AbstractSequences, 1)
	assert.Equal(t, []string{"C", "D"}, element.AbstractSequences[0].Names)
	assert.Equal(t, 0, element.AbstractSequences[0].MinOccurs)

	assert.Contains(t, data.KnownParticles, "C")
	assert.Contains(t, data.KnownParticles, "D")
	require.NotNil(t, elementByName(data, "C"))
	require.NotNil(t, elementByName(data, "D"))
}

func TestSimpleContentParticle(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:complexType name="TType">
    <xs:sequence>
      <xs:element name="SignatureValue" type="tns:SignatureValueType"/>
    </xs:sequence>
  </xs:complexType>
  <xs:complexType name="SignatureValueType">
    <xs:simpleContent>
      <xs:extension base="xs:base64Binary">
        <xs:attribute name="Id" type="xs:ID"/>
      </xs:extension>
    </xs:simpleContent>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	element := elementByName(data, "SignatureValue")
	require.NotNil(t, element)
	require.Len(t, element.Particles, 2)

	id := element.Particles[0]
	assert.Equal(t, "Id", id.Name)
	assert.True(t, id.IsAttribute)
	assert.Equal(t, 0, id.MinOccurs)

	content := element.Particles[1]
	assert.Equal(t, "CONTENT", content.Name)
	assert.True(t, content.IsSimpleContent)
	assert.Equal(t, "base64Binary", content.BaseType)
	assert.Equal(t, 1, content.MinOccurs)

	parent := elementByName(data, "T")
	require.NotNil(t, parent)
	require.Len(t, parent.Particles, 1)
	assert.True(t, parent.Particles[0].HasSimpleContent)
}

func TestEnumRegistration(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:complexType name="TType">
    <xs:sequence>
      <xs:element name="Unit" type="tns:unitSymbolType"/>
    </xs:sequence>
  </xs:complexType>
  <xs:simpleType name="unitSymbolType">
    <xs:restriction base="xs:string">
      <xs:enumeration value="h"/>
      <xs:enumeration value="m"/>
      <xs:enumeration value="s"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	element := elementByName(data, "T")
	require.NotNil(t, element)
	unit := element.Particles[0]
	assert.True(t, unit.IsEnum)
	assert.Equal(t, 3, unit.EnumCount)
	assert.Equal(t, 2, unit.BitCountForCoding())

	enumElement := elementByName(data, "Unit")
	require.NotNil(t, enumElement)
	assert.Equal(t, analyzer.TypeDefinitionEnum, enumElement.TypeDefinition)
	assert.True(t, enumElement.HasEnumList)
	assert.Equal(t, []string{"h", "m", "s"}, enumElement.EnumList)
	assert.Contains(t, data.KnownEnums, "{urn:test}unitSymbolType")
}

func TestEmptyParentTypeFlag(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:complexType name="TType">
    <xs:sequence>
      <xs:element name="Marker" type="tns:MarkerType" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
  <xs:complexType name="MarkerType"/>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	element := elementByName(data, "T")
	require.NotNil(t, element)
	require.Len(t, element.Particles, 1)
	assert.True(t, element.Particles[0].ParentTypeIsEmpty)

	marker := elementByName(data, "Marker")
	require.NotNil(t, marker)
	assert.Equal(t, analyzer.ContentTypeEmpty, marker.ContentType)
	assert.Empty(t, marker.Particles)
}

func TestDepthOverflowIsFatal(t *testing.T) {
	t.Parallel()

	_, err := analyzeWithError(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Node" type="tns:NodeType"/>
  <xs:complexType name="NodeType">
    <xs:sequence>
      <xs:element name="Child" type="tns:NodeType" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	require.Error(t, err)
	var schemaErr *analyzer.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Reason, "recursion depth")
}

func TestMissingSubstitutionGroupIsSchemaError(t *testing.T) {
	t.Parallel()

	_, err := analyzeWithError(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:element name="Base" type="xs:string" abstract="true"/>
  <xs:complexType name="TType">
    <xs:sequence>
      <xs:element ref="tns:Base"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	require.Error(t, err)
	var schemaErr *analyzer.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "{urn:test}Base", schemaErr.Construct)
}

func TestArrayOptimizations(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="T" type="tns:TType"/>
  <xs:complexType name="TType">
    <xs:sequence>
      <xs:element name="Entry" type="tns:EntryType" maxOccurs="24"/>
    </xs:sequence>
  </xs:complexType>
  <xs:complexType name="EntryType">
    <xs:sequence><xs:element name="v" type="xs:int"/></xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{
		ApplyOptimizations: true,
		ArrayOptimizations: map[string]int{"EntryType": 12},
	})

	element := elementByName(data, "T")
	require.NotNil(t, element)
	assert.Equal(t, 12, element.Particles[0].MaxOccurs)
}

func TestFieldOptimizations(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="SignedInfo" type="tns:SignedInfoType"/>
  <xs:complexType name="SignedInfoType">
    <xs:sequence>
      <xs:element name="Keep" type="xs:string"/>
      <xs:element name="Id" type="xs:string" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{
		FieldOptimizations: map[string][]string{"Id": {"SignedInfo"}},
	})

	element := elementByName(data, "SignedInfo")
	require.NotNil(t, element)
	require.Len(t, element.Particles, 1)
	assert.Equal(t, "Keep", element.Particles[0].Name)
}

func TestNamespaceElementDispatcher(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:tns="urn:test" xmlns:body="urn:body"
           targetNamespace="urn:test" elementFormDefault="qualified">
  <xs:import namespace="urn:body" schemaLocation="body.xsd"/>
  <xs:element name="V2G_Message" type="tns:MessageType"/>
  <xs:complexType name="MessageType">
    <xs:sequence>
      <xs:element name="Body" type="body:BodyType"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
		"body.xsd": `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:body="urn:body" targetNamespace="urn:body"
           elementFormDefault="qualified">
  <xs:complexType name="BodyType"><xs:sequence/></xs:complexType>
  <xs:element name="SessionSetupReq" type="body:SessionSetupReqType"/>
  <xs:element name="SessionSetupRes" type="body:SessionSetupResType"/>
  <xs:complexType name="SessionSetupReqType">
    <xs:sequence><xs:element name="EVCCID" type="xs:hexBinary"/></xs:sequence>
  </xs:complexType>
  <xs:complexType name="SessionSetupResType">
    <xs:sequence><xs:element name="EVSEID" type="xs:string"/></xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	body := elementByName(data, "Body")
	require.NotNil(t, body)
	assert.True(t, body.IsInNamespaceElements)
	require.Len(t, body.Particles, 2)
	for _, particle := range body.Particles {
		assert.True(t, particle.IsSubstitute, particle.Name)
		assert.Equal(t, 0, particle.MinOccurs, particle.Name)
	}

	assert.Equal(t, []string{"SessionSetupReq", "SessionSetupRes"},
		data.NamespaceElements["BodyType"])
}

func TestGenerateElementsPreSort(t *testing.T) {
	t.Parallel()

	data := analyze(t, map[string]string{
		"main.xsd": schemaOpen + `
  <xs:element name="Outer" type="tns:OuterType"/>
  <xs:complexType name="OuterType">
    <xs:sequence>
      <xs:element name="inner" type="tns:InnerType"/>
    </xs:sequence>
  </xs:complexType>
  <xs:complexType name="InnerType">
    <xs:sequence>
      <xs:element name="v" type="xs:int"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`,
	}, "main.xsd", analyzer.Options{})

	indexOf := func(nameShort string) int {
		for idx, element := range data.GenerateElements {
			if element.NameShort == nameShort {
				return idx
			}
		}
		return -1
	}

	require.GreaterOrEqual(t, indexOf("inner"), 0)
	require.GreaterOrEqual(t, indexOf("Outer"), 0)
	assert.Less(t, indexOf("inner"), indexOf("Outer"))
}
