package vm

import (
	"strings"
)

// TokenKind classifies a lexed token.
type TokenKind int

const (
	TokenDirective = TokenKind(iota) // .name
	TokenLabelDef                    // name:
	TokenIdent                       // mnemonic
	TokenRegister                    // $N
	TokenNumber                      // decimal, 0x hex, 0b binary
	TokenChar                        // 'c'
	TokenString                      // "text" or 'text'
	TokenLabelRef                    // @name
	TokenComma                       // ,
	TokenExpr                        // $( ... )
)

// Token is one lexed item with its source position.
type Token struct {
	Kind TokenKind
	Text string // sigils and quotes stripped, escapes decoded
	Line int
	Col  int
}

func isIdentRune(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func isNumberRune(c byte) bool {
	return isIdentRune(c) || c == '+' || c == '-'
}

// unescape decodes backslash escapes inside a quoted literal.
func unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", ErrUnterminatedString
		}
		switch s[i] {
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case 'e':
			out.WriteByte('\033')
		case '0':
			out.WriteByte(0)
		case '\\', '\'', '"':
			out.WriteByte(s[i])
		default:
			return "", ErrUnknownToken
		}
	}

	return out.String(), nil
}

// lexLine tokenizes a single source line. A ';' comment ends the scan.
func lexLine(line string, lineno int) (tokens []Token, err error) {
	i := 0
	for i < len(line) {
		c := line[i]
		col := i + 1

		switch {
		case c == ' ' || c == '\t':
			i++

		case c == ';':
			return

		case c == ',':
			tokens = append(tokens, Token{TokenComma, ",", lineno, col})
			i++

		case c == '.':
			start := i + 1
			i = start
			for i < len(line) && isIdentRune(line[i]) {
				i++
			}
			if i == start {
				return nil, ErrSyntax{lineno, col, line, ErrUnknownToken}
			}
			tokens = append(tokens, Token{TokenDirective, line[start:i], lineno, col})

		case c == '$' && i+1 < len(line) && line[i+1] == '(':
			depth := 0
			start := i + 2
			j := start
			for ; j < len(line); j++ {
				if line[j] == '(' {
					depth++
				}
				if line[j] == ')' {
					if depth == 0 {
						break
					}
					depth--
				}
			}
			if j == len(line) {
				return nil, ErrSyntax{lineno, col, line, ErrParseExpression(line[start:])}
			}
			tokens = append(tokens, Token{TokenExpr, line[start:j], lineno, col})
			i = j + 1

		case c == '$':
			start := i + 1
			i = start
			for i < len(line) && isIdentRune(line[i]) {
				i++
			}
			if i == start {
				return nil, ErrSyntax{lineno, col, line, ErrUnknownToken}
			}
			tokens = append(tokens, Token{TokenRegister, line[start:i], lineno, col})

		case c == '@':
			start := i + 1
			i = start
			for i < len(line) && isIdentRune(line[i]) {
				i++
			}
			if i == start {
				return nil, ErrSyntax{lineno, col, line, ErrUnknownToken}
			}
			tokens = append(tokens, Token{TokenLabelRef, line[start:i], lineno, col})

		case c == '"' || c == '\'':
			quote := c
			j := i + 1
			for ; j < len(line); j++ {
				if line[j] == '\\' {
					j++
					continue
				}
				if line[j] == quote {
					break
				}
			}
			if j >= len(line) {
				return nil, ErrSyntax{lineno, col, line, ErrUnterminatedString}
			}
			text, uerr := unescape(line[i+1 : j])
			if uerr != nil {
				return nil, ErrSyntax{lineno, col, line, uerr}
			}
			kind := TokenString
			if quote == '\'' && len(text) == 1 {
				kind = TokenChar
			}
			tokens = append(tokens, Token{kind, text, lineno, col})
			i = j + 1

		case c >= '0' && c <= '9' || c == '-' || c == '+':
			start := i
			i++
			for i < len(line) && isNumberRune(line[i]) {
				i++
			}
			tokens = append(tokens, Token{TokenNumber, line[start:i], lineno, col})

		case isIdentRune(c):
			start := i
			for i < len(line) && isIdentRune(line[i]) {
				i++
			}
			if i < len(line) && line[i] == ':' {
				tokens = append(tokens, Token{TokenLabelDef, line[start:i], lineno, col})
				i++
			} else {
				tokens = append(tokens, Token{TokenIdent, line[start:i], lineno, col})
			}

		default:
			return nil, ErrSyntax{lineno, col, line, ErrUnknownToken}
		}
	}

	return
}
