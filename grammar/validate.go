package grammar

// ValidateGrammars checks the structural invariants of one type's
// finished grammar list: the trailing END/ERROR pair, dense event
// codes and closed next-grammar pointers. Bit widths are not checked.
func (b *Builder) ValidateGrammars(grammars []*ElementGrammar, typename string) error {
	if len(grammars) == 0 {
		return nil
	}
	if len(grammars) < 2 {
		return newError(typename, "grammar list is missing the trailing END/ERROR pair")
	}

	endGrammar := grammars[len(grammars)-2]
	errorGrammar := grammars[len(grammars)-1]
	if endGrammar.GrammarID != b.GrammarEndElement ||
		endGrammar.DetailsCount() != 1 || endGrammar.Details[0].Flag != FlagEnd {
		return newError(typename, "second to last grammar is not the shared END grammar")
	}
	if errorGrammar.GrammarID != b.GrammarUnknown ||
		errorGrammar.DetailsCount() != 1 || errorGrammar.Details[0].Flag != FlagError {
		return newError(typename, "last grammar is not the shared ERROR grammar")
	}

	if len(grammars) <= 2 {
		return nil
	}

	known := map[int]bool{}
	for _, grammar := range grammars {
		known[grammar.GrammarID] = true
	}

	for _, grammar := range grammars {
		if grammar.DetailsCount() == 0 {
			return newError(typename, "grammar %d has no details", grammar.GrammarID)
		}

		seen := map[int]bool{}
		for _, detail := range grammar.Details {
			if detail.Flag == FlagError {
				continue
			}
			if detail.EventIndex < 0 || detail.EventIndex >= grammar.DetailsCount() {
				return newError(typename, "grammar %d: event index %d out of range",
					grammar.GrammarID, detail.EventIndex)
			}
			if seen[detail.EventIndex] {
				return newError(typename, "grammar %d: duplicate event index %d",
					grammar.GrammarID, detail.EventIndex)
			}
			seen[detail.EventIndex] = true

			if detail.Flag == FlagStart || detail.Flag == FlagLoop {
				if !known[detail.NextGrammar] {
					return newError(typename, "grammar %d: next grammar %d is not in the type's list",
						grammar.GrammarID, detail.NextGrammar)
				}
			}
		}
	}

	return nil
}
