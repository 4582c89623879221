package dn

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strings"
)

// Attribute is a single relative distinguished name component.
// Empty values are legal and preserved.
type Attribute struct {
	Type  string
	Value string
}

// Name is an ordered distinguished name. Order is significant and is
// kept exactly as written, including components with empty values.
type Name []Attribute

// Attribute type OIDs for the supported short names
var attributeOIDs = map[string]asn1.ObjectIdentifier{
	"CN":           {2, 5, 4, 3},
	"C":            {2, 5, 4, 6},
	"ST":           {2, 5, 4, 8},
	"L":            {2, 5, 4, 7},
	"O":            {2, 5, 4, 10},
	"OU":           {2, 5, 4, 11},
	"STREET":       {2, 5, 4, 9},
	"SERIALNUMBER": {2, 5, 4, 5},
	"E":            {1, 2, 840, 113549, 1, 9, 1},
	"DC":           {0, 9, 2342, 19200300, 100, 1, 25},
	"UID":          {0, 9, 2342, 19200300, 100, 1, 1},
}

// Aliases folded onto the canonical short names above
var attributeAliases = map[string]string{
	"EMAIL":           "E",
	"EMAILADDRESS":    "E",
	"S":               "ST",
	"DOMAINCOMPONENT": "DC",
}

// Parse parses a distinguished name string like
// "E=, CN=TestIssuer, O=, OU=, L=, ST=, C=DE" into an ordered Name.
// Components are separated by commas, attribute types are
// case-insensitive, and values may be empty. Commas and backslashes
// inside a value can be escaped with a backslash.
func Parse(s string) (Name, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty distinguished name")
	}

	var name Name
	for _, component := range splitComponents(s) {
		component = strings.TrimSpace(component)
		if component == "" {
			return nil, fmt.Errorf("empty component in distinguished name %q", s)
		}

		eq := indexUnescaped(component, '=')
		if eq < 0 {
			return nil, fmt.Errorf("malformed component %q: missing '='", component)
		}

		attrType := strings.ToUpper(strings.TrimSpace(unescape(component[:eq])))
		if attrType == "" {
			return nil, fmt.Errorf("malformed component %q: empty attribute type", component)
		}
		if canonical, ok := attributeAliases[attrType]; ok {
			attrType = canonical
		}
		if _, ok := attributeOIDs[attrType]; !ok {
			return nil, fmt.Errorf("unsupported attribute type %q", attrType)
		}

		value := strings.TrimSpace(unescape(component[eq+1:]))
		name = append(name, Attribute{Type: attrType, Value: value})
	}
	return name, nil
}

// splitComponents splits on commas that are not escaped with a
// backslash, keeping escape sequences intact for later processing.
func splitComponents(s string) []string {
	var parts []string
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune('\\')
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}
	return append(parts, b.String())
}

// indexUnescaped returns the index of the first occurrence of c that
// is not preceded by a backslash, or -1.
func indexUnescaped(s string, c byte) int {
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == c:
			return i
		}
	}
	return -1
}

func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escapeValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == ',' || r == '\\' {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// String renders the name back into comma-separated attr=value form.
// Parse(n.String()) reproduces n.
func (n Name) String() string {
	parts := make([]string, len(n))
	for i, attr := range n {
		parts[i] = attr.Type + "=" + escapeValue(attr.Value)
	}
	return strings.Join(parts, ", ")
}

// RDNSequence builds the ASN.1 RDN sequence for the name. Each
// attribute becomes its own single-attribute RDN so that order and
// empty values survive encoding.
func (n Name) RDNSequence() pkix.RDNSequence {
	seq := make(pkix.RDNSequence, 0, len(n))
	for _, attr := range n {
		seq = append(seq, []pkix.AttributeTypeAndValue{{
			Type:  attributeOIDs[attr.Type],
			Value: attr.Value,
		}})
	}
	return seq
}

// Encode returns the DER encoding of the name.
func (n Name) Encode() ([]byte, error) {
	der, err := asn1.Marshal(n.RDNSequence())
	if err != nil {
		return nil, fmt.Errorf("failed to encode distinguished name: %w", err)
	}
	return der, nil
}

// PkixName returns a pkix.Name carrying every attribute in ExtraNames.
// The named convenience fields are left empty on purpose: they drop
// empty values and reorder components during encoding, ExtraNames
// does not.
func (n Name) PkixName() pkix.Name {
	extra := make([]pkix.AttributeTypeAndValue, len(n))
	for i, attr := range n {
		extra[i] = pkix.AttributeTypeAndValue{
			Type:  attributeOIDs[attr.Type],
			Value: attr.Value,
		}
	}
	return pkix.Name{ExtraNames: extra}
}

// FromPkixAttributes converts decoded attributes (such as
// x509.Certificate.Subject.Names) back into an ordered Name.
// Attributes with unrecognized OIDs keep their dotted OID as the type.
func FromPkixAttributes(attrs []pkix.AttributeTypeAndValue) Name {
	name := make(Name, 0, len(attrs))
	for _, attr := range attrs {
		attrType := attr.Type.String()
		for short, oid := range attributeOIDs {
			if oid.Equal(attr.Type) {
				attrType = short
				break
			}
		}
		value := ""
		if s, ok := attr.Value.(string); ok {
			value = s
		} else if attr.Value != nil {
			value = fmt.Sprintf("%v", attr.Value)
		}
		name = append(name, Attribute{Type: attrType, Value: value})
	}
	return name
}

// Equal reports whether two names have identical components in
// identical order.
func (n Name) Equal(other Name) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}
