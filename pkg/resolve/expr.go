package resolve

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprEnv builds the environment visible to matcher expressions:
//
//	desc  the lower-cased description
//	raw   the description as captured
func exprEnv(desc string) map[string]any {
	return map[string]any{
		"desc": strings.ToLower(desc),
		"raw":  desc,
	}
}

// Expr compiles a boolean expr-lang expression into a Matcher, e.g.
//
//	desc contains "button" && !(desc contains "create")
func Expr(source string) (Matcher, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Matcher{}, fmt.Errorf("empty matcher expression")
	}
	program, err := expr.Compile(source, expr.Env(exprEnv("")), expr.AsBool())
	if err != nil {
		return Matcher{}, fmt.Errorf("compile matcher %q: %w", source, err)
	}
	return Matcher{
		Name:  "expr(" + source + ")",
		Match: func(desc string) bool { return runBool(program, desc) },
	}, nil
}

// CompileChain compiles each expression in order into a Chain.
func CompileChain(sources []string) (Chain, error) {
	chain := make(Chain, 0, len(sources))
	for i, src := range sources {
		m, err := Expr(src)
		if err != nil {
			return nil, fmt.Errorf("matcher %d: %w", i, err)
		}
		chain = append(chain, m)
	}
	return chain, nil
}

func runBool(program *vm.Program, desc string) bool {
	out, err := expr.Run(program, exprEnv(desc))
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}
