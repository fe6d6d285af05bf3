package analyzer

import (
	"fmt"
	"sort"

	Text "github.com/linkdotnet/golang-stringbuilder"
	"github.com/sirupsen/logrus"
)

// WriteToLog dumps the analysis result's lookup tables and element
// positions for auditing: known elements, particles, enums and
// prototypes, the occurrence corrections and the namespace element
// lists.
func (d *AnalyzerData) WriteToLog(log *logrus.Entry) {
	logStringTable(log, "KNOWN ELEMENTS", d.KnownElements)
	logParticleTable(log, d.KnownParticles)
	logStringTable(log, "KNOWN ENUMS", d.KnownEnums)
	logStringTable(log, "KNOWN PROTOTYPES", d.KnownPrototypes)
	logIntTable(log, "CHANGED MAX OCCURRENCE", d.MaxOccursChanged)

	names := sortedKeys(d.NamespaceElements)
	for _, name := range names {
		log.Infof("NAMESPACE ELEMENTS %s: %v", name, d.NamespaceElements[name])
	}

	log.Info("ELEMENTS pos data:")
	for _, element := range d.GenerateElements {
		log.Infof("   name / type short:   %s / %s (%d, %d)",
			element.NameShort, element.TypeShort, element.Level, element.Count)
	}

	log.Info("ELEMENTS to generate:")
	for _, element := range d.GenerateElements {
		logElement(log, element)
	}

	log.Info("ROOT ELEMENTS to generate:")
	for _, element := range d.RootElements {
		logElement(log, element)
	}
}

func logElement(log *logrus.Entry, element *ElementData) {
	sb := Text.NewStringBuilderFromString("ELEMENT ")
	sb.Append(element.NameShort)
	sb.Append(fmt.Sprintf(": definition=%s; type=%s; base type=%s; content type=%s; abstract=%t",
		element.TypeDefinition, element.Type, element.BaseType,
		element.ContentType, element.Abstract))
	log.Info(sb.ToString())

	for _, particle := range element.Particles {
		sb := Text.NewStringBuilderFromString("    ")
		sb.Append(fmt.Sprintf("%s, %s (%d, %d)",
			particle.Name, particle.TypeShort, particle.MinOccurs, particle.MaxOccurs))
		if particle.ParentHasSequence {
			sb.Append(fmt.Sprintf(" (seq. %v)", particle.ParentSequence))
		}
		if particle.IsSubstitute {
			sb.Append(" (substitute)")
		}
		log.Info(sb.ToString())
	}
}

func logStringTable(log *logrus.Entry, name string, table map[string]string) {
	for _, key := range sortedKeys(table) {
		log.Infof("%s %s: %s", name, key, table[key])
	}
}

func logIntTable(log *logrus.Entry, name string, table map[string]int) {
	for _, key := range sortedKeys(table) {
		log.Infof("%s %s: %d", name, key, table[key])
	}
}

func logParticleTable(log *logrus.Entry, table map[string]*Particle) {
	for _, key := range sortedKeys(table) {
		log.Infof("KNOWN PARTICLES %s: %s", key, table[key].TypeShort)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
