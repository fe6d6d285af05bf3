package xsd

import "strings"

// XMLSchemaNamespace is the namespace URI of the XML Schema definition
// language itself.
const XMLSchemaNamespace = "http://www.w3.org/2001/XMLSchema"

// QName is a namespace qualified name.
type QName struct {
	Space string
	Local string
}

// String renders the qualified name in Clark notation ({uri}local), the
// form used as map key throughout the analyzer.
func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

func (q QName) IsZero() bool {
	return q.Space == "" && q.Local == ""
}

// ParseQName splits a lexical QName (prefix:local or local) against the
// given prefix to namespace mapping. An unprefixed name resolves to the
// default namespace.
func ParseQName(name string, xmlns map[string]string) QName {
	if name == "" {
		return QName{}
	}

	prefix := ""
	local := name
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		prefix = name[:idx]
		local = name[idx+1:]
	}

	return QName{Space: xmlns[prefix], Local: local}
}
