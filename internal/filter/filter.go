// Package filter compiles the optional event-signature filter and matches
// raw logs against it.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature reports a malformed event signature. It is returned at
// compile time so a bad filter is rejected before polling starts.
var ErrInvalidSignature = errors.New("invalid event signature")

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	arrayPattern = regexp.MustCompile(`^(\[[0-9]*\])+$`)
)

// Filter matches logs for a single contract, optionally narrowed to one
// event signature via its topic0 hash.
type Filter struct {
	address   common.Address
	signature string
	topic0    common.Hash
	hasTopic  bool
}

// Compile builds a filter for the contract address and optional signature.
// The signature may carry parameter names and the indexed qualifier, e.g.
// "Transfer(address indexed from, address indexed to, uint256 value)"; it is
// canonicalized to "Transfer(address,address,uint256)" before hashing.
func Compile(address string, signature string) (*Filter, error) {
	f := &Filter{address: common.HexToAddress(address)}
	if signature == "" {
		return f, nil
	}

	canonical, err := Canonicalize(signature)
	if err != nil {
		return nil, err
	}
	f.signature = canonical
	f.topic0 = crypto.Keccak256Hash([]byte(canonical))
	f.hasTopic = true
	return f, nil
}

// Matches reports whether the log belongs to the filtered contract and, if a
// signature is configured, carries its hash as topic0. Anonymous logs never
// match a signature filter.
func (f *Filter) Matches(lg types.Log) bool {
	if lg.Address != f.address {
		return false
	}
	if !f.hasTopic {
		return true
	}
	return len(lg.Topics) > 0 && lg.Topics[0] == f.topic0
}

// Signature returns the canonical signature, or "" when none is configured.
func (f *Filter) Signature() string {
	return f.signature
}

// Topic0 returns the precomputed signature hash and whether one is set.
func (f *Filter) Topic0() (common.Hash, bool) {
	return f.topic0, f.hasTopic
}

// Address returns the contract address the filter is bound to.
func (f *Filter) Address() common.Address {
	return f.address
}

// Canonicalize validates a human-written event signature and reduces it to
// the "Name(type1,type2,...)" form used for topic hashing.
func Canonicalize(signature string) (string, error) {
	signature = strings.TrimSpace(signature)

	open := strings.Index(signature, "(")
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return "", fmt.Errorf("%w: %q must look like Name(type,...)", ErrInvalidSignature, signature)
	}
	if strings.Count(signature, "(") != 1 || strings.Count(signature, ")") != 1 {
		return "", fmt.Errorf("%w: %q has unbalanced or nested parentheses", ErrInvalidSignature, signature)
	}

	name := signature[:open]
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: bad event name %q", ErrInvalidSignature, name)
	}

	inner := strings.TrimSpace(signature[open+1 : len(signature)-1])
	if inner == "" {
		return name + "()", nil
	}

	parts := strings.Split(inner, ",")
	paramTypes := make([]string, 0, len(parts))
	for _, part := range parts {
		typ, err := parseParam(part)
		if err != nil {
			return "", err
		}
		paramTypes = append(paramTypes, typ)
	}
	return name + "(" + strings.Join(paramTypes, ",") + ")", nil
}

// parseParam extracts the type from one parameter declaration. Accepted
// shapes: "type", "type name", "type indexed name".
func parseParam(raw string) (string, error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 0:
		return "", fmt.Errorf("%w: empty parameter", ErrInvalidSignature)
	case 1:
	case 2:
		if fields[1] == "indexed" || !namePattern.MatchString(fields[1]) {
			return "", fmt.Errorf("%w: bad parameter %q", ErrInvalidSignature, strings.TrimSpace(raw))
		}
	case 3:
		if fields[1] != "indexed" || !namePattern.MatchString(fields[2]) {
			return "", fmt.Errorf("%w: bad parameter %q", ErrInvalidSignature, strings.TrimSpace(raw))
		}
	default:
		return "", fmt.Errorf("%w: bad parameter %q", ErrInvalidSignature, strings.TrimSpace(raw))
	}

	return canonicalType(fields[0])
}

// canonicalType validates an ABI elementary type and expands the width-less
// uint/int/ufixed/fixed aliases, so "uint" hashes the same as "uint256".
func canonicalType(typ string) (string, error) {
	base, suffix := typ, ""
	if i := strings.Index(typ, "["); i >= 0 {
		base, suffix = typ[:i], typ[i:]
		if !arrayPattern.MatchString(suffix) {
			return "", fmt.Errorf("%w: bad array type %q", ErrInvalidSignature, typ)
		}
	}

	switch base {
	case "address", "bool", "string", "bytes":
		return base + suffix, nil
	case "uint", "int":
		return base + "256" + suffix, nil
	case "ufixed", "fixed":
		return base + "128x18" + suffix, nil
	}

	if width, ok := strings.CutPrefix(base, "ufixed"); ok {
		return fixedType(base, width, suffix)
	}
	if width, ok := strings.CutPrefix(base, "fixed"); ok {
		return fixedType(base, width, suffix)
	}
	if width, ok := strings.CutPrefix(base, "uint"); ok {
		return intType(base, width, suffix)
	}
	if width, ok := strings.CutPrefix(base, "int"); ok {
		return intType(base, width, suffix)
	}
	if width, ok := strings.CutPrefix(base, "bytes"); ok {
		n, ok := parseWidth(width)
		if !ok || n < 1 || n > 32 {
			return "", fmt.Errorf("%w: unknown type %q", ErrInvalidSignature, base)
		}
		return base + suffix, nil
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidSignature, base)
}

func intType(base, width, suffix string) (string, error) {
	n, ok := parseWidth(width)
	if !ok || n < 8 || n > 256 || n%8 != 0 {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidSignature, base)
	}
	return base + suffix, nil
}

func fixedType(base, width, suffix string) (string, error) {
	m, f, found := strings.Cut(width, "x")
	mn, okM := parseWidth(m)
	fn, okF := parseWidth(f)
	if !found || !okM || !okF || mn < 8 || mn > 256 || mn%8 != 0 || fn < 1 || fn > 80 {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidSignature, base)
	}
	return base + suffix, nil
}

// parseWidth rejects empty and zero-padded widths so "uint008" cannot hash
// differently from "uint8".
func parseWidth(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}
