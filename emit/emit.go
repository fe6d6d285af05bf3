// Package emit turns the frozen analysis result into language neutral
// generation units: per type grammar tables, storage plans and codec
// selectors, grouped per configured output file. The template rendering
// of those units into source text is an external collaborator.
package emit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chargeport/exigen/analyzer"
	"github.com/chargeport/exigen/config"
	"github.com/chargeport/exigen/grammar"
	"github.com/chargeport/exigen/layout"
	"github.com/chargeport/exigen/utils"
	"github.com/chargeport/exigen/xsd"
)

// Error is an emission failure: template lookup, filesystem write or a
// not implemented codec selection.
type Error struct {
	File     string
	Typename string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	msg := "emit error"
	if e.File != "" {
		msg += " (" + e.File + ")"
	}
	if e.Typename != "" {
		msg += " [" + e.Typename + "]"
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

// DetailSelector pairs one grammar detail with its codec routine.
type DetailSelector struct {
	Detail *grammar.ElementGrammarDetail
	Kind   CoderKind
}

// TypePlan is everything the renderer needs for one emitted type.
type TypePlan struct {
	Element        *analyzer.ElementData
	Grammars       []*grammar.ElementGrammar
	StartGrammarID int
	Struct         *layout.StructPlan
	Selectors      []DetailSelector

	// ArrayParticleNames drives the renderer's per-array loop counter
	// declarations.
	ArrayParticleNames []string
}

// FileUnit is the generation unit of one configured file pair.
type FileUnit struct {
	Spec config.FileSpec
	Data *analyzer.AnalyzerData

	Types     []*TypePlan
	Fragments []analyzer.FragmentData

	RootStructName    string
	RootParameterName string
}

// Renderer is the external template engine turning units into source
// text.
type Renderer interface {
	RenderHeader(unit *FileUnit) (string, error)
	RenderImplementation(unit *FileUnit) (string, error)
}

type analysisResult struct {
	set  *xsd.SchemaSet
	data *analyzer.AnalyzerData
}

// Generator drives the pipeline over the configured file list. Schema
// analysis runs once per schema prefix; all per-schema state tears down
// when the generator is discarded.
type Generator struct {
	cfg      *config.Config
	renderer Renderer
	log      *logrus.Logger

	analyzed map[string]*analysisResult
}

func NewGenerator(cfg *config.Config, renderer Renderer, log *logrus.Logger) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{
		cfg:      cfg,
		renderer: renderer,
		log:      log,
		analyzed: map[string]*analysisResult{},
	}
}

// GenerateFiles iterates the configured file list once. Schema and
// grammar failures abort the affected entry and continue; config and
// emission failures terminate the run.
func (g *Generator) GenerateFiles() error {
	for _, spec := range g.cfg.Files {
		if err := g.generateFile(spec); err != nil {
			var schemaErr *analyzer.SchemaError
			var grammarErr *grammar.Error
			if errors.As(err, &schemaErr) || errors.As(err, &grammarErr) {
				g.log.WithError(err).Errorf("skipping file %s", spec.Name)
				continue
			}
			return err
		}
	}
	return nil
}

func (g *Generator) generateFile(spec config.FileSpec) error {
	fileLog, closeLog, err := g.fileLogger(spec)
	if err != nil {
		return err
	}
	defer closeLog()

	unit := &FileUnit{
		Spec:              spec,
		RootStructName:    spec.Prefix + g.cfg.RootStructName,
		RootParameterName: g.cfg.RootParameterName,
	}

	if spec.Type != config.FileTypeStatic {
		result, err := g.analysis(spec.Prefix)
		if err != nil {
			return err
		}
		unit.Data = result.data

		if g.cfg.GenerateFragments {
			for _, fragment := range result.data.KnownFragments {
				unit.Fragments = append(unit.Fragments, fragment)
			}
		}

		switch spec.Type {
		case config.FileTypeConverter:
			g.planStructs(unit)
			g.registerPrototypes(result.data)
		case config.FileTypeDecoder, config.FileTypeEncoder:
			if err := g.planCoders(unit, spec, fileLog); err != nil {
				return err
			}
		}
	}

	return g.render(unit)
}

// analysis loads and analyzes the schema family once per prefix.
func (g *Generator) analysis(prefix string) (*analysisResult, error) {
	if result, ok := g.analyzed[prefix]; ok {
		return result, nil
	}

	schemaCfg := g.cfg.SchemaByPrefix(prefix)
	if schemaCfg == nil {
		return nil, &config.Error{Kind: config.ErrorInvalid,
			Reason: fmt.Sprintf("no schema registered for prefix %q", prefix)}
	}

	set, err := xsd.Load(schemaCfg.Schema, g.cfg.SchemaBaseDir)
	if err != nil {
		return nil, &config.Error{Kind: config.ErrorMissing, Path: schemaCfg.Schema,
			Reason: "schema is not loadable", Err: err}
	}

	opts := analyzer.Options{
		Prefix:             prefix,
		OccurrenceLimits:   schemaCfg.OccurrenceLimits,
		ApplyOptimizations: g.cfg.ApplyOptimizations,
		ArrayOptimizations: schemaCfg.ArrayOptimizations,
		FieldOptimizations: schemaCfg.FieldOptimizations,
		Fragments:          schemaCfg.Fragments,
		AddDebugCode:       g.cfg.AddDebugCode,
	}
	data, err := analyzer.NewSchemaAnalyzer(set, opts, logrus.NewEntry(g.log)).Analyze()
	if err != nil {
		return nil, err
	}

	ordered, err := grammar.OrderElements(data.GenerateElements)
	if err != nil {
		return nil, err
	}
	data.GenerateElements = ordered
	data.WriteToLog(logrus.NewEntry(g.log))

	result := &analysisResult{set: set, data: data}
	g.analyzed[prefix] = result
	return result, nil
}

// planStructs builds the storage plan of every emitted type for the
// datatype converter files.
func (g *Generator) planStructs(unit *FileUnit) {
	planner := layout.NewPlanner(unit.Data, layout.Options{
		ArrayDefineAddendum:  g.cfg.ArrayDefineAddendum,
		CharDefineAddendum:   g.cfg.CharDefineAddendum,
		ByteDefineAddendum:   g.cfg.ByteDefineAddendum,
		ChoiceSequencePrefix: g.cfg.ChoiceSequencePrefix,
	})

	for _, element := range unit.Data.GenerateElements {
		if element.TypeDefinition != analyzer.TypeDefinitionComplex &&
			element.TypeDefinition != analyzer.TypeDefinitionEnum {
			continue
		}
		unit.Types = append(unit.Types, &TypePlan{
			Element: element,
			Struct:  planner.PlanStruct(element),
		})
	}
}

// planCoders builds grammars, event info, storage plans and selectors
// for a decoder or encoder file.
func (g *Generator) planCoders(unit *FileUnit, spec config.FileSpec, fileLog *logrus.Entry) error {
	data := unit.Data

	builder := grammar.NewBuilder(data, fileLog)
	builder.ResetGrammarIDs()

	planner := layout.NewPlanner(data, layout.Options{
		ArrayDefineAddendum:  g.cfg.ArrayDefineAddendum,
		CharDefineAddendum:   g.cfg.CharDefineAddendum,
		ByteDefineAddendum:   g.cfg.ByteDefineAddendum,
		ChoiceSequencePrefix: g.cfg.ChoiceSequencePrefix,
	})

	for _, element := range data.GenerateElements {
		if element.TypeDefinition != analyzer.TypeDefinitionComplex {
			continue
		}

		fileLog.Infof("Grammar for %s", element.Typename())
		if builder.IsInNamespaceElements(element) {
			fileLog.Infof("%s is in the namespace elements list", element.Typename())
		}

		builder.GenerateElementGrammars(element)

		if builder.GrammarEndElement == 0 {
			builder.GrammarEndElement = builder.GrammarID
			builder.GrammarUnknown = builder.GrammarID + 1
			builder.GrammarID += 2
		}
		builder.AppendEndAndUnknownGrammars(element.Typename())

		grammars := builder.ElementGrammars
		builder.GenerateEventInfo(grammars, element)
		if err := builder.ValidateGrammars(grammars, element.Typename()); err != nil {
			return err
		}

		plan := &TypePlan{
			Element:        element,
			Grammars:       grammars,
			StartGrammarID: grammar.GetStartGrammarID(grammars),
			Struct:         planner.PlanStruct(element),
		}
		if grammar.HasElementArrayParticle(element) {
			plan.ArrayParticleNames = grammar.ElementArrayParticleNames(element)
		}

		for _, gr := range grammars {
			for _, detail := range gr.Details {
				kind, err := SelectorFor(detail, element, data, fileLog)
				if err != nil {
					return err
				}
				plan.Selectors = append(plan.Selectors, DetailSelector{Detail: detail, Kind: kind})
			}
		}

		unit.Types = append(unit.Types, plan)
		g.registerDebugMessage(data, spec, element)
	}

	return nil
}

// registerPrototypes records the init function registry: the root
// struct first, then every generated non enum type in emission order.
func (g *Generator) registerPrototypes(data *analyzer.AnalyzerData) {
	rootName := data.SchemaIdentifier + g.cfg.RootStructName
	data.KnownPrototypes[rootName] = g.cfg.RootParameterName

	for _, element := range data.RootElements {
		if element.BaseType == "" {
			data.KnownPrototypes[element.PrefixedName()] = element.NameShort
		} else {
			data.KnownPrototypes[element.PrefixedType()] = element.TypeShort
		}
	}

	for _, element := range data.GenerateElements {
		if element.TypeDefinition == analyzer.TypeDefinitionEnum {
			continue
		}
		if utils.ContainsKey(data.KnownPrototypes, element.PrefixedName()) {
			continue
		}
		if !utils.ContainsKey(data.KnownPrototypes, element.PrefixedType()) {
			data.KnownPrototypes[element.PrefixedType()] = element.TypeShort
		}
	}
}

// registerDebugMessage assigns a stable message id to each codec
// function when debug code generation is enabled.
func (g *Generator) registerDebugMessage(data *analyzer.AnalyzerData,
	spec config.FileSpec, element *analyzer.ElementData) {

	if !data.AddDebugCodeEnabled {
		return
	}

	fn := ""
	switch spec.Type {
	case config.FileTypeEncoder:
		fn = g.cfg.EncodeFunctionPrefix + element.PrefixedType()
	case config.FileTypeDecoder:
		fn = g.cfg.DecodeFunctionPrefix + element.PrefixedType()
	default:
		return
	}

	key := strings.ToUpper(fn)
	if !utils.ContainsKey(data.DebugCodeMessages, key) {
		data.DebugCodeMessages[key] = analyzer.DebugMessage{
			ID:       data.DebugCodeCurrentMessageID,
			Function: fn,
		}
		data.DebugCodeCurrentMessageID++
	}
}

// render writes the unit's header and implementation through the
// configured renderer. Without a renderer only the logs are produced.
func (g *Generator) render(unit *FileUnit) error {
	if g.renderer == nil {
		return nil
	}

	if unit.Spec.H != nil {
		content, err := g.renderer.RenderHeader(unit)
		if err != nil {
			return &Error{File: unit.Spec.Name, Reason: "header rendering failed", Err: err}
		}
		if err := g.writeOutput(unit.Spec.Folder, unit.Spec.H.Filename, content); err != nil {
			return err
		}
	}
	if unit.Spec.C != nil {
		content, err := g.renderer.RenderImplementation(unit)
		if err != nil {
			return &Error{File: unit.Spec.Name, Reason: "implementation rendering failed", Err: err}
		}
		if err := g.writeOutput(unit.Spec.Folder, unit.Spec.C.Filename, content); err != nil {
			return err
		}
	}

	return nil
}

func (g *Generator) writeOutput(folder, filename, content string) error {
	dir := filepath.Join(g.cfg.OutputDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{File: filename, Reason: "creating output directory", Err: err}
	}
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644); err != nil {
		return &Error{File: filename, Reason: "writing output file", Err: err}
	}
	return nil
}
