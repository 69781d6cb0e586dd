// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
)

const (
	// Directive marks a hook declaration, e.g.
	//
	//	//dlhook:hook origin="getuid"
	Directive = "//dlhook:hook"

	originOption = "origin"
	usage        = `please provide the origin function name, like //dlhook:hook origin="getuid"`
)

// Attribute is the payload that follows the directive on a hook declaration.
type Attribute struct {
	Payload string
	Pos     token.Position
}

// ParseDirective returns the payload of comment if it is a hook directive.
func ParseDirective(comment string) (string, bool) {
	rest, ok := strings.CutPrefix(comment, Directive)
	if !ok {
		return "", false
	}
	// "//dlhook:hooks" is not our directive
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// OriginAttribute builds the payload equivalent to origin="<origin>".
func OriginAttribute(origin string, pos token.Position) Attribute {
	return Attribute{Payload: originOption + "=" + strconv.Quote(origin), Pos: pos}
}

type payloadToken struct {
	tok token.Token
	lit string
}

func scanPayload(payload string) ([]payloadToken, bool) {
	src := []byte(payload)
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var s scanner.Scanner
	failed := false
	s.Init(file, src, func(token.Position, string) { failed = true }, 0)
	var toks []payloadToken
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		// Automatically inserted at the end of the payload
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		toks = append(toks, payloadToken{tok, lit})
	}
	return toks, !failed
}

// ExtractOrigin pulls the origin symbol out of attr. The payload must be
// exactly one origin option bound to a string literal.
func ExtractOrigin(attr Attribute) (string, error) {
	toks, ok := scanPayload(attr.Payload)
	if !ok || len(toks) == 0 {
		return "", newError(AttributeError, attr.Pos, "%s", usage)
	}
	if toks[0].tok != token.IDENT || toks[0].lit != originOption {
		return "", newError(AttributeError, attr.Pos,
			"unknown option %s, %s", describe(toks[0]), usage)
	}
	if len(toks) < 3 || toks[1].tok != token.ASSIGN {
		return "", newError(AttributeError, attr.Pos, "%s", usage)
	}
	if toks[2].tok != token.STRING {
		return "", newError(AttributeError, attr.Pos,
			"origin must be a string literal, %s", usage)
	}
	if len(toks) > 3 {
		return "", newError(AttributeError, attr.Pos,
			"unexpected %s after origin, only one origin option is allowed", describe(toks[3]))
	}
	origin, err := strconv.Unquote(toks[2].lit)
	if err != nil {
		return "", newError(AttributeError, attr.Pos, "malformed origin literal %s", toks[2].lit)
	}
	if msg := checkOrigin(origin); msg != "" {
		return "", newError(AttributeError, attr.Pos, "%s", msg)
	}
	return origin, nil
}

func describe(t payloadToken) string {
	if t.lit != "" {
		return strconv.Quote(t.lit)
	}
	return strconv.Quote(t.tok.String())
}

// checkOrigin returns why origin cannot name a C symbol, or "" if it can.
func checkOrigin(origin string) string {
	if origin == "" {
		return "origin must not be empty"
	}
	if strings.IndexByte(origin, 0) >= 0 {
		return "origin " + strconv.Quote(origin) + " contains a NUL byte"
	}
	if !isCIdent(origin) {
		return "origin " + strconv.Quote(origin) + " is not a valid C identifier"
	}
	return ""
}

func isCIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}
