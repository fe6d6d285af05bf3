// Package config loads the generator configuration: path roots,
// identifier shape knobs, per-schema occurrence tables and the ordered
// list of files to generate.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ErrorKind separates a missing configuration from an invalid one; the
// two map to distinct process exit codes.
type ErrorKind int

const (
	ErrorMissing ErrorKind = iota
	ErrorInvalid
)

// Error is a configuration failure; it terminates the run.
type Error struct {
	Kind   ErrorKind
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "config error"
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FileType classifies one generated file pair.
type FileType string

const (
	FileTypeStatic    FileType = "static"
	FileTypeConverter FileType = "converter"
	FileTypeDecoder   FileType = "decoder"
	FileTypeEncoder   FileType = "encoder"
)

// FilePart describes one half (header or implementation) of a
// generated file pair.
type FilePart struct {
	Template      string   `yaml:"template"`
	Filename      string   `yaml:"filename"`
	Identifier    string   `yaml:"identifier"`
	IncludeStdLib []string `yaml:"include_std_lib"`
	IncludeOther  []string `yaml:"include_other"`
}

// FileSpec is one entry of the ordered generation list.
type FileSpec struct {
	Name   string    `yaml:"name"`
	Prefix string    `yaml:"prefix"`
	Type   FileType  `yaml:"type"`
	Folder string    `yaml:"folder"`
	H      *FilePart `yaml:"h"`
	C      *FilePart `yaml:"c"`
}

// SchemaConfig describes one schema family: the root document plus the
// per-family correction and optimization tables.
type SchemaConfig struct {
	Prefix string `yaml:"prefix"`
	Schema string `yaml:"schema"`

	// OccurrenceLimits replaces unbounded occurrences; a corrected
	// limit of 1 is the default for names without an entry.
	OccurrenceLimits map[string]int `yaml:"occurrence_limits"`

	ArrayOptimizations map[string]int      `yaml:"array_optimizations"`
	FieldOptimizations map[string][]string `yaml:"field_optimizations"`
	Fragments          []string            `yaml:"fragments"`
}

// Config is the complete, immutable generator configuration threaded
// through the pipeline.
type Config struct {
	TemplateDir   string `yaml:"template_dir"`
	OutputDir     string `yaml:"output_dir"`
	SchemaBaseDir string `yaml:"schema_base_dir"`
	LogDir        string `yaml:"log_dir"`
	LogFileName   string `yaml:"log_file_name"`

	AddDebugCode       bool `yaml:"add_debug_code"`
	ApplyOptimizations bool `yaml:"apply_optimizations"`
	GenerateFragments  bool `yaml:"generate_fragments"`

	RootStructName        string `yaml:"root_struct_name"`
	RootParameterName     string `yaml:"root_parameter_name"`
	FragmentStructName    string `yaml:"fragment_struct_name"`
	FragmentParameterName string `yaml:"fragment_parameter_name"`

	ArrayDefineAddendum string `yaml:"array_define_addendum"`
	CharDefineAddendum  string `yaml:"char_define_addendum"`
	ByteDefineAddendum  string `yaml:"byte_define_addendum"`

	InitFunctionPrefix   string `yaml:"init_function_prefix"`
	EncodeFunctionPrefix string `yaml:"encode_function_prefix"`
	DecodeFunctionPrefix string `yaml:"decode_function_prefix"`
	ChoiceSequencePrefix string `yaml:"choice_sequence_prefix"`

	CCodeIndentChars int      `yaml:"c_code_indent_chars"`
	CReplaceChars    []string `yaml:"c_replace_chars"`

	Schemas []SchemaConfig `yaml:"schemas"`
	Files   []FileSpec     `yaml:"files"`
}

// Default returns the configuration defaults applied underneath a
// loaded file.
func Default() *Config {
	return &Config{
		TemplateDir:           "input/code_templates/c",
		OutputDir:             "output/c",
		SchemaBaseDir:         "input/schemas",
		LogDir:                "output/log",
		LogFileName:           "logfile.txt",
		RootStructName:        "exiDocument",
		RootParameterName:     "exiDoc",
		FragmentStructName:    "exiFragment",
		FragmentParameterName: "exiFrag",
		ArrayDefineAddendum:   "_ARRAY_SIZE",
		CharDefineAddendum:    "_CHARACTER_SIZE",
		ByteDefineAddendum:    "_BYTES_SIZE",
		InitFunctionPrefix:    "init_",
		EncodeFunctionPrefix:  "encode_",
		DecodeFunctionPrefix:  "decode_",
		ChoiceSequencePrefix:  "choice_",
		CCodeIndentChars:      4,
		CReplaceChars:         []string{" ", "-", "/"},
	}
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Kind: ErrorMissing, Path: path,
				Reason: "config file does not exist", Err: err}
		}
		return nil, &Error{Kind: ErrorMissing, Path: path,
			Reason: "config file is not readable", Err: err}
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Kind: ErrorInvalid, Path: path,
			Reason: "config file does not parse", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross references the driver relies on.
func (c *Config) Validate() error {
	if c.SchemaBaseDir == "" {
		return &Error{Kind: ErrorInvalid, Reason: "schema_base_dir is empty"}
	}
	if c.OutputDir == "" {
		return &Error{Kind: ErrorInvalid, Reason: "output_dir is empty"}
	}

	prefixes := map[string]bool{}
	for i := range c.Schemas {
		schema := &c.Schemas[i]
		if schema.Prefix == "" {
			return &Error{Kind: ErrorInvalid,
				Reason: fmt.Sprintf("schema entry %d has no prefix", i)}
		}
		if schema.Schema == "" {
			return &Error{Kind: ErrorInvalid,
				Reason: fmt.Sprintf("schema entry %q names no schema file", schema.Prefix)}
		}
		if prefixes[schema.Prefix] {
			return &Error{Kind: ErrorInvalid,
				Reason: fmt.Sprintf("duplicate schema prefix %q", schema.Prefix)}
		}
		prefixes[schema.Prefix] = true
	}

	for i := range c.Files {
		file := &c.Files[i]
		if file.Name == "" {
			return &Error{Kind: ErrorInvalid,
				Reason: fmt.Sprintf("file entry %d has no name", i)}
		}
		switch file.Type {
		case FileTypeStatic, FileTypeConverter, FileTypeDecoder, FileTypeEncoder:
		default:
			return &Error{Kind: ErrorInvalid,
				Reason: fmt.Sprintf("file entry %q has unknown type %q", file.Name, file.Type)}
		}
		if file.Type != FileTypeStatic && !prefixes[file.Prefix] {
			return &Error{Kind: ErrorInvalid,
				Reason: fmt.Sprintf("file entry %q references unknown schema prefix %q", file.Name, file.Prefix)}
		}
		if file.H == nil && file.C == nil {
			return &Error{Kind: ErrorInvalid,
				Reason: fmt.Sprintf("file entry %q declares neither header nor implementation", file.Name)}
		}
	}

	return nil
}

// SchemaByPrefix returns the schema family registered for the prefix,
// or nil.
func (c *Config) SchemaByPrefix(prefix string) *SchemaConfig {
	for i := range c.Schemas {
		if c.Schemas[i].Prefix == prefix {
			return &c.Schemas[i]
		}
	}
	return nil
}
