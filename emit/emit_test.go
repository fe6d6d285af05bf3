package emit_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeport/exigen/config"
	"github.com/chargeport/exigen/emit"
)

const pipelineSchema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:tns="urn:test" targetNamespace="urn:test"
           elementFormDefault="qualified">
  <xs:element name="Session" type="tns:SessionType"/>
  <xs:complexType name="SessionType">
    <xs:sequence>
      <xs:element name="SessionID" type="tns:sessionIDType"/>
      <xs:element name="Entry" type="tns:EntryType" minOccurs="0" maxOccurs="3"/>
    </xs:sequence>
  </xs:complexType>
  <xs:simpleType name="sessionIDType">
    <xs:restriction base="xs:hexBinary">
      <xs:maxLength value="8"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:complexType name="EntryType">
    <xs:sequence>
      <xs:element name="Value" type="xs:unsignedShort"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`

type stubRenderer struct{}

func (stubRenderer) RenderHeader(unit *emit.FileUnit) (string, error) {
	return fmt.Sprintf("// header %s\n", unit.Spec.Name), nil
}

func (stubRenderer) RenderImplementation(unit *emit.FileUnit) (string, error) {
	return fmt.Sprintf("// impl %s, %d types\n", unit.Spec.Name, len(unit.Types)), nil
}

func pipelineConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	schemaDir := filepath.Join(base, "schemas")
	require.NoError(t, os.MkdirAll(schemaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(schemaDir, "session.xsd"),
		[]byte(pipelineSchema), 0o644))

	cfg := config.Default()
	cfg.SchemaBaseDir = schemaDir
	cfg.OutputDir = filepath.Join(base, "out")
	cfg.LogDir = filepath.Join(base, "log")
	cfg.Schemas = []config.SchemaConfig{{
		Prefix: "test_",
		Schema: "session.xsd",
	}}
	cfg.Files = []config.FileSpec{
		{
			Name:   "test_datatypes",
			Prefix: "test_",
			Type:   config.FileTypeConverter,
			Folder: "test",
			H:      &config.FilePart{Filename: "test_datatypes.h", Identifier: "TEST_DATATYPES_H"},
			C:      &config.FilePart{Filename: "test_datatypes.c", Identifier: "TEST_DATATYPES_C"},
		},
		{
			Name:   "test_decoder",
			Prefix: "test_",
			Type:   config.FileTypeDecoder,
			Folder: "test",
			C:      &config.FilePart{Filename: "test_decoder.c", Identifier: "TEST_DECODER_C"},
		},
		{
			Name:   "test_encoder",
			Prefix: "test_",
			Type:   config.FileTypeEncoder,
			Folder: "test",
			C:      &config.FilePart{Filename: "test_encoder.c", Identifier: "TEST_ENCODER_C"},
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestGenerateFilesWritesLogsAndOutput(t *testing.T) {
	t.Parallel()

	cfg := pipelineConfig(t)
	log := logrus.New()
	log.SetOutput(os.Stderr)

	generator := emit.NewGenerator(cfg, stubRenderer{}, log)
	require.NoError(t, generator.GenerateFiles())

	// one grammar log per emitted file
	for _, name := range []string{"test_datatypes.txt", "test_decoder.txt", "test_encoder.txt"} {
		info, err := os.Stat(filepath.Join(cfg.LogDir, name))
		require.NoError(t, err, name)
		assert.False(t, info.IsDir())
	}

	decoderLog, err := os.ReadFile(filepath.Join(cfg.LogDir, "test_decoder.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(decoderLog), "Grammar: ID=")
	assert.Contains(t, string(decoderLog), "eventCode=")

	for _, name := range []string{"test_datatypes.h", "test_datatypes.c", "test_decoder.c", "test_encoder.c"} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, "test", name))
		require.NoError(t, err, name)
	}
}

func TestGenerateFilesWithoutRenderer(t *testing.T) {
	t.Parallel()

	cfg := pipelineConfig(t)
	generator := emit.NewGenerator(cfg, nil, logrus.New())
	require.NoError(t, generator.GenerateFiles())

	// no renderer means no source output, but the grammar logs exist
	_, err := os.Stat(filepath.Join(cfg.OutputDir, "test"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(cfg.LogDir, "test_decoder.txt"))
	require.NoError(t, err)
}

func TestGenerateFilesUnknownSchemaIsFatal(t *testing.T) {
	t.Parallel()

	cfg := pipelineConfig(t)
	cfg.Schemas[0].Schema = "missing.xsd"

	generator := emit.NewGenerator(cfg, nil, logrus.New())
	err := generator.GenerateFiles()
	require.Error(t, err)

	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
}
