package repocontext

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// walkGoSymbols extracts function, method and type declarations from a
// parsed Go source tree, following internal/world/ast_treesitter.go's
// field-walking approach but emitting Symbol values for the
// repository's search index instead of logic-engine facts.
func walkGoSymbols(root *sitter.Node, path string, source []byte) []Symbol {
	text := func(n *sitter.Node) string {
		if n == nil {
			return ""
		}
		return n.Content(source)
	}

	var symbols []Symbol
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			name := text(n.ChildByFieldName("name"))
			if name != "" {
				symbols = append(symbols, Symbol{
					Name: name, Kind: "function", Path: path,
					Signature: signature("func "+name, n, text),
				})
			}

		case "method_declaration":
			name := text(n.ChildByFieldName("name"))
			receiver := text(n.ChildByFieldName("receiver"))
			if name != "" {
				symbols = append(symbols, Symbol{
					Name: name, Kind: "method", Path: path,
					Signature: signature(fmt.Sprintf("func %s %s", receiver, name), n, text),
				})
			}

		case "type_declaration":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				spec := n.NamedChild(i)
				if spec.Type() != "type_spec" {
					continue
				}
				name := text(spec.ChildByFieldName("name"))
				if name != "" {
					symbols = append(symbols, Symbol{
						Name: name, Kind: "type", Path: path,
						Signature: "type " + name,
					})
				}
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return symbols
}

func signature(prefix string, n *sitter.Node, text func(*sitter.Node) string) string {
	sig := prefix
	if params := n.ChildByFieldName("parameters"); params != nil {
		sig += text(params)
	}
	if result := n.ChildByFieldName("result"); result != nil {
		sig += " " + text(result)
	}
	return sig
}
