package dts

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/adammathes/xbrlverify/pkg/qname"
	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// Use is the value of an arc's use attribute.
type Use string

const (
	UseOptional   Use = "optional"
	UseProhibited Use = "prohibited"
)

// ResolvedArc is an arc whose from and to labels have been paired with
// concrete endpoints. An arc whose labels match several locators or
// resources yields one ResolvedArc per endpoint pair.
type ResolvedArc struct {
	Arc      xmldom.Element
	Link     xmldom.Element
	Document *Document

	From, To           xmldom.Element
	FromLabel, ToLabel string

	Arcrole   string
	Linkrole  string
	LinkQName qname.QName
	ArcQName  qname.QName

	Order    *big.Rat
	Weight   *big.Rat
	Priority int
	Use      Use

	// Seq is the position of the arc in discovery order.
	Seq int
}

// Prohibited reports whether the arc cancels a relationship.
func (a *ResolvedArc) Prohibited() bool { return a.Use == UseProhibited }

// parseDecimal parses an xs:decimal lexical value exactly.
func parseDecimal(s string) (*big.Rat, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" || digits == "." {
		return nil, fmt.Errorf("invalid decimal %q", s)
	}
	dot := false
	for _, c := range digits {
		switch {
		case c == '.' && !dot:
			dot = true
		case c >= '0' && c <= '9':
		default:
			return nil, fmt.Errorf("invalid decimal %q", s)
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid decimal %q", s)
	}
	return r, nil
}

// FormatDecimal renders r without trailing zeros.
func FormatDecimal(r *big.Rat) string {
	if r == nil {
		return ""
	}
	if r.IsInt() {
		return r.Num().String()
	}
	s := r.FloatString(20)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
