// Package cel compiles CEL expressions into item predicates for --where.
package cel

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	celext "github.com/google/cel-go/ext"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/oakwood-commons/listx/internal/predicate"
	"github.com/oakwood-commons/listx/pkg/item"
)

// ItemVar is the variable the current item is bound to.
const ItemVar = "item"

// ErrNotBool is returned when an expression does not produce a bool.
var ErrNotBool = errors.New("expression must evaluate to a bool")

// Program is a compiled --where expression.
type Program struct {
	expr string
	prg  cel.Program
	keys []string
}

// newStandardCELEnv creates the environment with the common extension
// libraries. Additional options extend it.
func newStandardCELEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	allOpts := make([]cel.EnvOption, 0, 7+len(opts))
	allOpts = append(allOpts,
		cel.Variable(ItemVar, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("_", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	allOpts = append(allOpts, opts...)
	return cel.NewEnv(allOpts...)
}

// Compile parses and type-checks expr. The result type must be bool or dyn;
// dyn results are checked per item.
func Compile(expr string) (*Program, error) {
	env, err := newStandardCELEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(types.BoolType) && !out.IsExactType(types.DynType) {
		return nil, fmt.Errorf("%w: %q returns %s", ErrNotBool, expr, out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	keys, err := referencedKeys(ast)
	if err != nil {
		return nil, err
	}
	return &Program{expr: expr, prg: prg, keys: keys}, nil
}

// Keys returns the top-level item keys the expression reads, sorted.
func (p *Program) Keys() []string {
	return p.keys
}

// referencedKeys collects item.key and item["key"] references from the
// parsed expression, including those inside macros and call arguments.
func referencedKeys(ast *cel.Ast) ([]string, error) {
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, fmt.Errorf("inspect expression: %w", err)
	}
	seen := make(map[string]bool)
	var walk func(*exprpb.Expr)
	walk = func(e *exprpb.Expr) {
		if e == nil {
			return
		}
		switch k := e.ExprKind.(type) {
		case *exprpb.Expr_SelectExpr:
			if isItemIdent(k.SelectExpr.GetOperand()) {
				seen[k.SelectExpr.GetField()] = true
				return
			}
			walk(k.SelectExpr.GetOperand())
		case *exprpb.Expr_CallExpr:
			call := k.CallExpr
			if call.GetFunction() == "_[_]" && len(call.GetArgs()) == 2 && isItemIdent(call.GetArgs()[0]) {
				if key := call.GetArgs()[1].GetConstExpr().GetStringValue(); key != "" {
					seen[key] = true
					return
				}
			}
			walk(call.GetTarget())
			for _, a := range call.GetArgs() {
				walk(a)
			}
		case *exprpb.Expr_ListExpr:
			for _, el := range k.ListExpr.GetElements() {
				walk(el)
			}
		case *exprpb.Expr_StructExpr:
			for _, en := range k.StructExpr.GetEntries() {
				walk(en.GetMapKey())
				walk(en.GetValue())
			}
		case *exprpb.Expr_ComprehensionExpr:
			c := k.ComprehensionExpr
			walk(c.GetIterRange())
			walk(c.GetAccuInit())
			walk(c.GetLoopCondition())
			walk(c.GetLoopStep())
			walk(c.GetResult())
		}
	}
	walk(parsed.GetExpr())

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func isItemIdent(e *exprpb.Expr) bool {
	name := e.GetIdentExpr().GetName()
	return name == ItemVar || name == "_"
}

// String returns the source expression.
func (p *Program) String() string {
	return p.expr
}

// Match evaluates the program against it.
func (p *Program) Match(it item.Item) (bool, error) {
	data := map[string]any(it)
	result, _, err := p.prg.Eval(map[string]any{
		ItemVar: data,
		"_":     data,
	})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	b, ok := result.(types.Bool)
	if !ok {
		return false, fmt.Errorf("%w: got %s", ErrNotBool, result.Type().TypeName())
	}
	return bool(b), nil
}

// Predicate adapts the program to the predicate engine. Evaluation errors
// exclude only the offending item and are logged at V(1).
func (p *Program) Predicate(log logr.Logger) predicate.Func {
	return func(it item.Item) bool {
		ok, err := p.Match(it)
		if err != nil {
			log.V(1).Info("where expression skipped item", "expr", p.expr, "error", err.Error())
			return false
		}
		return ok
	}
}

// Functions lists the non-operator functions and macros available to --where
// expressions, for help output.
func Functions() ([]string, error) {
	env, err := newStandardCELEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	seen := make(map[string]bool)
	for _, fn := range env.Functions() {
		if !isOperator(fn.Name()) {
			seen[fn.Name()] = true
		}
	}
	for _, m := range env.Macros() {
		if !isOperator(m.Function()) {
			seen[m.Function()] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// isOperator filters out internal operator-style declarations.
func isOperator(name string) bool {
	if strings.HasPrefix(name, "@") {
		return true
	}
	if strings.HasPrefix(name, "_") && strings.HasSuffix(name, "_") {
		return true
	}
	switch name {
	case "!_", "-_", "_[_]", "_?_:_":
		return true
	}
	return false
}
