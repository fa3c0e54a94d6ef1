package resolver

import (
	"github.com/sourcepawn-studio/spls/internal/defmap"
	"github.com/sourcepawn-studio/spls/internal/diagnostic"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// checkCallSite validates callNode (a NodeCallExpr whose callee resolved to
// def, always a KindFunction DefKind — method calls are qualified accesses
// and never reach this path) against the signature's parameter list, per
// SPEC_FULL.md §4.8: an argument-count mismatch reports
// IncorrectNumberOfArguments, and an unknown `.name = value` named argument
// reports UnresolvedNamedArg. Returns nil when the signature or argument
// list can't be resolved.
func checkCallSite(callerFile ids.FileID, callNode *syntax.Node, def defmap.Def, callee string, p Provider) []diagnostic.Diagnostic {
	if len(callNode.Children) != 2 {
		return nil
	}
	argList := callNode.Children[1]
	if argList.Kind != syntax.NodeArgList {
		return nil
	}

	tree := p.ItemTree(def.File)
	if tree == nil {
		return nil
	}
	sigSyntax := p.SyntaxTree(def.File)
	if sigSyntax == nil {
		return nil
	}
	sigNode := tree.Item(def.Item).Ptr.Resolve(sigSyntax)
	if sigNode == nil {
		return nil
	}
	params := paramNames(sigNode)
	if params == nil {
		return nil
	}

	var diags []diagnostic.Diagnostic
	actual := len(argList.Children)
	expected := len(params)
	if actual != expected {
		t, _ := targetFromRange(callerFile, argList.Range, p)
		diags = append(diags, diagnostic.Diagnostic{
			Kind:     diagnostic.IncorrectNumberOfArguments,
			File:     callerFile,
			Range:    t.Range,
			Callee:   callee,
			Expected: expected,
			Actual:   actual,
			AtLeast:  actual < expected,
		})
	}

	paramSet := make(map[string]bool, len(params))
	for _, name := range params {
		paramSet[name] = true
	}
	for _, arg := range argList.Children {
		if arg.Kind != syntax.NodeNamedArg || arg.Text == "" {
			continue
		}
		if !paramSet[arg.Text] {
			t, _ := targetFromRange(callerFile, arg.Range, p)
			diags = append(diags, diagnostic.Diagnostic{
				Kind:   diagnostic.UnresolvedNamedArg,
				File:   callerFile,
				Range:  t.Range,
				Callee: callee,
				Name:   arg.Text,
			})
		}
	}
	return diags
}

func paramNames(sigNode *syntax.Node) []string {
	for _, c := range sigNode.Children {
		if c.Kind != syntax.NodeParamList {
			continue
		}
		names := make([]string, 0, len(c.Children))
		for _, p := range c.Children {
			if p.Kind == syntax.NodeParam {
				names = append(names, p.Text)
			}
		}
		return names
	}
	return nil
}
