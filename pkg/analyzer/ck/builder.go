package ck

import (
	"github.com/panbanda/ckmetrics/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// BuildRegistry extracts one class record per class definition in a parsed file.
// Nested classes become separate records; their bodies are never attributed to the
// enclosing class.
func BuildRegistry(result *parser.ParseResult) *Registry {
	reg := NewRegistry()
	if result == nil || result.Tree == nil {
		return reg
	}

	root := result.Tree.RootNode()
	for _, classNode := range parser.FindNodesByType(root, result.Source, "class_definition") {
		rec := buildClass(classNode, result.Source)
		if rec == nil {
			continue
		}
		rec.addFile(result.Path)
		if existing, ok := reg.classes[rec.Name]; ok {
			existing.absorb(rec)
			continue
		}
		reg.classes[rec.Name] = rec
	}
	return reg
}

func buildClass(classNode *sitter.Node, source []byte) *ClassRecord {
	name := parser.GetNodeText(classNode.ChildByFieldName("name"), source)
	if name == "" {
		return nil
	}

	rec := NewClassRecord(name)
	rec.BaseClasses = baseClasses(classNode, source)

	body := classNode.ChildByFieldName("body")
	if body == nil {
		return rec
	}

	for _, method := range classMethods(body) {
		methodName := parser.GetNodeText(method.ChildByFieldName("name"), source)
		if methodName == "" {
			continue
		}
		if !rec.HasMethod(methodName) {
			rec.Methods = append(rec.Methods, methodName)
		}
		collectMethodBody(method.ChildByFieldName("body"), source, rec)
	}

	return rec
}

// baseClasses returns bases written as plain identifiers.
// Dotted, called, subscripted, keyword and splat bases are skipped.
func baseClasses(classNode *sitter.Node, source []byte) []string {
	args := classNode.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}

	var bases []string
	for i := range int(args.NamedChildCount()) {
		arg := args.NamedChild(i)
		if arg.Type() != "identifier" {
			continue
		}
		if base := parser.GetNodeText(arg, source); base != "" {
			bases = append(bases, base)
		}
	}
	return bases
}

// methodContainers are class-body statements whose blocks can hold method definitions,
// such as version checks and optional-import fallbacks.
var methodContainers = map[string]bool{
	"block":               true,
	"if_statement":        true,
	"elif_clause":         true,
	"else_clause":         true,
	"try_statement":       true,
	"except_clause":       true,
	"except_group_clause": true,
	"finally_clause":      true,
	"with_statement":      true,
}

// classMethods returns the function definitions of a class body in declaration order.
// It descends through conditional, try and with blocks but never into nested
// functions or classes.
func classMethods(body *sitter.Node) []*sitter.Node {
	var methods []*sitter.Node
	for i := range int(body.NamedChildCount()) {
		stmt := body.NamedChild(i)
		if method := methodDefinition(stmt); method != nil {
			methods = append(methods, method)
			continue
		}
		if methodContainers[stmt.Type()] {
			methods = append(methods, classMethods(stmt)...)
		}
	}
	return methods
}

// methodDefinition unwraps a class-body statement into a function definition, if it is one.
func methodDefinition(stmt *sitter.Node) *sitter.Node {
	if stmt == nil {
		return nil
	}
	switch stmt.Type() {
	case "function_definition":
		return stmt
	case "decorated_definition":
		def := stmt.ChildByFieldName("definition")
		if def != nil && def.Type() == "function_definition" {
			return def
		}
	}
	return nil
}

// collectMethodBody records calls and attribute accesses anywhere under body,
// stopping at nested class definitions.
func collectMethodBody(body *sitter.Node, source []byte, rec *ClassRecord) {
	parser.WalkTyped(body, source, func(node *sitter.Node, nodeType string, src []byte) bool {
		switch nodeType {
		case "class_definition":
			return false
		case "call":
			if callee := calleeName(node.ChildByFieldName("function"), src); callee != "" {
				rec.Calls.Add(callee)
			}
		case "attribute":
			if attr := parser.GetNodeText(node.ChildByFieldName("attribute"), src); attr != "" {
				rec.Attributes.Add(attr)
			}
		case "assignment", "augmented_assignment":
			if attr := selfTarget(node.ChildByFieldName("left"), src); attr != "" {
				rec.Attributes.Add(attr)
			}
		}
		return true
	})
}

// calleeName resolves foo() to foo and a.b.foo() to foo.
func calleeName(fn *sitter.Node, source []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return parser.GetNodeText(fn, source)
	case "attribute":
		return parser.GetNodeText(fn.ChildByFieldName("attribute"), source)
	}
	return ""
}

// selfTarget returns name for an assignment target of the form self.name.
func selfTarget(target *sitter.Node, source []byte) string {
	if target == nil || target.Type() != "attribute" {
		return ""
	}
	obj := target.ChildByFieldName("object")
	if obj == nil || obj.Type() != "identifier" || parser.GetNodeText(obj, source) != "self" {
		return ""
	}
	return parser.GetNodeText(target.ChildByFieldName("attribute"), source)
}
