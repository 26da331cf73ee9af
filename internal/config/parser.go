package config

import "github.com/cameriere-di-rete/webserv/internal/httperr"

// directiveNode is a single config statement, e.g. "root ./www;".
type directiveNode struct {
	Name string
	Args []string
}

// blockNode is a brace-delimited section, e.g. "server { ... }" or
// "location /api { ... }".
type blockNode struct {
	Type       string
	Param      string
	Directives []directiveNode
	SubBlocks  []blockNode
}

// blockParser walks a token stream produced by tokenize into a tree of
// blockNode, mirroring the original webserv Parser's recursive-descent
// shape (peek/get over a flat token list).
type blockParser struct {
	tokens []string
	index  int
}

func parseTokens(tokens []string) (blockNode, error) {
	p := &blockParser{tokens: tokens}
	root := blockNode{Type: "root"}

	for p.index < len(p.tokens) {
		if p.peek() == "server" {
			blk, err := p.parseBlock()
			if err != nil {
				return root, err
			}
			root.SubBlocks = append(root.SubBlocks, blk)
		} else {
			dir, err := p.parseDirective()
			if err != nil {
				return root, err
			}
			root.Directives = append(root.Directives, dir)
		}
	}
	return root, nil
}

func (p *blockParser) peek() string {
	if p.index >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.index]
}

func (p *blockParser) get() (string, error) {
	if p.index >= len(p.tokens) {
		return "", httperr.NewConfigError("unexpected end of config tokens")
	}
	t := p.tokens[p.index]
	p.index++
	return t, nil
}

func (p *blockParser) parseBlock() (blockNode, error) {
	var blk blockNode
	typ, err := p.get()
	if err != nil {
		return blk, err
	}
	blk.Type = typ

	if typ == "location" {
		param, err := p.get()
		if err != nil {
			return blk, err
		}
		blk.Param = param
	}

	brace, err := p.get()
	if err != nil || brace != "{" {
		return blk, httperr.NewConfigError("expected '{' after " + typ)
	}

	for p.peek() != "}" {
		if p.peek() == "" {
			return blk, httperr.NewConfigError("missing closing '}' for " + typ)
		}
		if p.peek() == "location" {
			sub, err := p.parseBlock()
			if err != nil {
				return blk, err
			}
			blk.SubBlocks = append(blk.SubBlocks, sub)
		} else {
			dir, err := p.parseDirective()
			if err != nil {
				return blk, err
			}
			blk.Directives = append(blk.Directives, dir)
		}
	}
	if _, err := p.get(); err != nil { // consume '}'
		return blk, err
	}
	return blk, nil
}

func (p *blockParser) parseDirective() (directiveNode, error) {
	var dir directiveNode
	name, err := p.get()
	if err != nil {
		return dir, err
	}
	dir.Name = name

	for p.peek() != ";" {
		if p.peek() == "" {
			return dir, httperr.NewConfigError("directive missing ';' after " + name)
		}
		arg, err := p.get()
		if err != nil {
			return dir, err
		}
		dir.Args = append(dir.Args, arg)
	}
	if _, err := p.get(); err != nil { // consume ';'
		return dir, err
	}
	return dir, nil
}
