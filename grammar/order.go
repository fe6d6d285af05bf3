package grammar

import (
	"github.com/chargeport/exigen/analyzer"
)

// OrderElements topologically sorts the generate list so every complex
// particle's target type is emitted before the enclosing type. Ties
// keep the analyzer's traversal order. A dependency cycle in the
// canonical model indicates a schema or normalization bug and is
// reported as an Error.
func OrderElements(elements []*analyzer.ElementData) ([]*analyzer.ElementData, error) {
	indexByType := map[string]int{}
	for index, element := range elements {
		if _, ok := indexByType[element.Typename()]; !ok {
			indexByType[element.Typename()] = index
		}
	}

	// dependencies[i] holds the indices that must be emitted before i
	dependencies := make([][]int, len(elements))
	for index, element := range elements {
		for _, particle := range element.Particles {
			if !particle.IsComplex {
				continue
			}
			typeName := particle.TypeShort
			if typeName == "AnonType" {
				typeName = particle.Name
			}
			dep, ok := indexByType[typeName]
			if !ok || dep == index {
				continue
			}
			dependencies[index] = append(dependencies[index], dep)
		}
	}

	done := make([]bool, len(elements))
	result := make([]*analyzer.ElementData, 0, len(elements))

	for len(result) < len(elements) {
		progressed := false
		for index, element := range elements {
			if done[index] {
				continue
			}
			ready := true
			for _, dep := range dependencies[index] {
				if !done[dep] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			done[index] = true
			result = append(result, element)
			progressed = true
		}

		if !progressed {
			for index, element := range elements {
				if !done[index] {
					return nil, newError(element.Typename(), "dependency cycle detected")
				}
			}
		}
	}

	return result, nil
}
