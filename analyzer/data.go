package analyzer

import "fmt"

// DebugMessage is one registered debug-code message: a stable id plus
// the codec function it belongs to.
type DebugMessage struct {
	ID       int
	Function string
}

// FragmentData names one additionally emitted fragment codec entry
// point.
type FragmentData struct {
	Name      string
	Namespace string
	Type      string
}

// AnalyzerData is the complete analysis result for one schema. It is
// created empty before the walk, filled by the SchemaAnalyzer and then
// treated as frozen by the grammar builder and the planners.
type AnalyzerData struct {
	SchemaIdentifier string

	RootElements     []*ElementData
	GenerateElements []*ElementData

	GenerateElementsTypes map[string]string

	KnownElements   map[string]string
	KnownParticles  map[string]*Particle
	KnownEnums      map[string]string
	KnownPrototypes map[string]string
	KnownFragments  map[string]FragmentData

	MaxOccursChanged   map[string]int
	NamespaceElements  map[string][]string
	SchemaBuiltinTypes map[string]string

	AddDebugCodeEnabled       bool
	DebugCodeCurrentMessageID int
	DebugCodeMessages         map[string]DebugMessage
}

func NewAnalyzerData() *AnalyzerData {
	return &AnalyzerData{
		GenerateElementsTypes:     map[string]string{},
		KnownElements:             map[string]string{},
		KnownParticles:            map[string]*Particle{},
		KnownEnums:                map[string]string{},
		KnownPrototypes:           map[string]string{},
		KnownFragments:            map[string]FragmentData{},
		MaxOccursChanged:          map[string]int{},
		NamespaceElements:         map[string][]string{},
		SchemaBuiltinTypes:        map[string]string{},
		DebugCodeCurrentMessageID: 1,
		DebugCodeMessages:         map[string]DebugMessage{},
	}
}

// ElementByTypeShort returns the first generate element with the given
// short type name, or nil.
func (d *AnalyzerData) ElementByTypeShort(typeShort string) *ElementData {
	for _, element := range d.GenerateElements {
		if element.TypeShort == typeShort {
			return element
		}
	}
	return nil
}

// SchemaError reports an unsupported or unresolvable schema construct.
// The construct's qualified name is always carried so diagnostics can
// point at the offending declaration.
type SchemaError struct {
	Construct string
	Reason    string
	Err       error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error at %s: %s", e.Construct, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func newSchemaError(construct, format string, args ...any) *SchemaError {
	return &SchemaError{Construct: construct, Reason: fmt.Sprintf(format, args...)}
}
