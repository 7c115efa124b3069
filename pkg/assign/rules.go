package assign

import (
	"strings"
	"unicode"

	"github.com/agentstation/bomsync/pkg/parts"
)

// Family is a component family recognized from part-number patterns.
type Family string

// Component families.
const (
	Unknown           Family = ""
	Capacitor         Family = "capacitor"
	Resistor          Family = "resistor"
	Inductor          Family = "inductor"
	IntegratedCircuit Family = "integrated_circuit"
	Connector         Family = "connector"
)

// Rule recognizes one family. Prefixes and substrings are matched against
// the normalized part number; keywords against the words of a catalog name.
type Rule struct {
	Family     Family
	Prefixes   []string
	Substrings []string
	Keywords   []string
}

// Matches reports whether a normalized part number belongs to the family.
func (r Rule) Matches(partNumber string) bool {
	for _, p := range r.Prefixes {
		if strings.HasPrefix(partNumber, p) {
			return true
		}
	}
	for _, s := range r.Substrings {
		if strings.Contains(partNumber, s) {
			return true
		}
	}
	return false
}

// Describes reports whether a catalog name refers to the family.
func (r Rule) Describes(catalogName string) bool {
	for _, w := range words(catalogName) {
		for _, k := range r.Keywords {
			if w == k {
				return true
			}
		}
	}
	return false
}

// DefaultRules returns the built-in family rules, in evaluation order.
// Inductors are checked before integrated circuits so ferrite and power
// inductor series are not taken for ICs.
func DefaultRules() []Rule {
	return []Rule{
		{
			Family:   Capacitor,
			Prefixes: []string{"grm", "gcm", "gjm", "cl05", "cl10", "cl21", "cl31", "cga", "c0402", "c0603", "c0805", "c1206", "c1608", "c2012", "c3216", "cc0", "ecj", "tmk", "emk", "umk", "jmk", "t491", "eee", "uwt"},
			Keywords: []string{"capacitor", "capacitors", "cap", "caps"},
		},
		{
			Family:   Resistor,
			Prefixes: []string{"rc0", "rc1", "rc2", "crcw", "erj", "rmcf", "rncp", "rt0", "cr0", "rk73", "mcr", "ac0", "wr0", "cpf"},
			Keywords: []string{"resistor", "resistors", "res"},
		},
		{
			Family:   Inductor,
			Prefixes: []string{"lqh", "lqm", "lqw", "lqp", "mlz", "blm", "srr", "srn", "srp", "ihlp", "xal", "xfl", "lps", "744", "nrs", "vlf", "cbc"},
			Keywords: []string{"inductor", "inductors", "ind", "magnetics", "ferrite", "ferrites"},
		},
		{
			Family:     Connector,
			Prefixes:   []string{"jst", "b2b", "sm02", "sm03", "sm04", "tsw", "ssw", "ftsh", "tsm", "usb", "df12", "df13", "fh12", "fh19", "pj", "molex"},
			Substrings: []string{"conn", "hdr", "header", "socket"},
			Keywords:   []string{"connector", "connectors", "conn", "header", "headers"},
		},
		{
			Family:   IntegratedCircuit,
			Prefixes: []string{"lm", "ne5", "tl0", "tps", "tlv", "opa", "ina", "stm32", "stm8", "atmega", "attiny", "atsamd", "sn74", "74hc", "74lvc", "cd4", "max", "mcp", "ads", "ad", "lt", "esp32", "nrf5", "pic", "ch340", "ft232", "uln", "ams1117"},
			Keywords: []string{"ic", "ics", "integrated", "semiconductor", "semiconductors", "mcu", "mcus"},
		},
	}
}

// words splits a catalog name into case-folded words.
func words(name string) []string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = parts.Normalize(f)
	}
	return fields
}
