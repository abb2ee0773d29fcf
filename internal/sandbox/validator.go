package sandbox

import (
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// ValidationResult is the validator's verdict. Execution must never proceed
// on a failing verdict.
type ValidationResult struct {
	OK     bool
	Reason string
}

// Validator statically inspects source for disallowed constructs before any
// execution. It is a denylist over direct syntactic patterns: it does not
// defend against capabilities rediscovered through indirect or late-bound
// attribute chains. That residual risk is accepted; the environment pruning
// in env.go is the second layer.
type Validator struct {
	policy Policy
}

// NewValidator creates a validator for the given policy.
func NewValidator(policy Policy) *Validator {
	return &Validator{policy: policy}
}

// Validate parses source and walks every node of the syntax tree in
// pre-order depth-first order. The first violation terminates the walk and
// becomes the reported reason.
func (v *Validator) Validate(source string) ValidationResult {
	chunk, err := parse.Parse(strings.NewReader(source), "submission")
	if err != nil {
		return ValidationResult{Reason: "syntax error: " + strings.TrimSpace(err.Error())}
	}
	c := &checker{policy: v.policy}
	if err := c.stmts(chunk); err != nil {
		return ValidationResult{Reason: err.Error()}
	}
	return ValidationResult{OK: true}
}

// checker walks the tree. Each node kind maps to one decision against the
// policy tables; traversal order never depends on the rule set.
type checker struct {
	policy Policy
}

func (c *checker) stmts(stmts []ast.Stmt) error {
	for _, st := range stmts {
		if err := c.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) stmt(stmt ast.Stmt) error {
	switch st := stmt.(type) {
	case *ast.LocalAssignStmt:
		return c.exprs(st.Exprs)
	case *ast.AssignStmt:
		if err := c.exprs(st.Lhs); err != nil {
			return err
		}
		return c.exprs(st.Rhs)
	case *ast.FuncCallStmt:
		return c.expr(st.Expr)
	case *ast.DoBlockStmt:
		return c.stmts(st.Stmts)
	case *ast.WhileStmt:
		if err := c.expr(st.Condition); err != nil {
			return err
		}
		return c.stmts(st.Stmts)
	case *ast.RepeatStmt:
		if err := c.stmts(st.Stmts); err != nil {
			return err
		}
		return c.expr(st.Condition)
	case *ast.IfStmt:
		if err := c.expr(st.Condition); err != nil {
			return err
		}
		if err := c.stmts(st.Then); err != nil {
			return err
		}
		return c.stmts(st.Else)
	case *ast.NumberForStmt:
		for _, e := range []ast.Expr{st.Init, st.Limit, st.Step} {
			if e == nil {
				continue
			}
			if err := c.expr(e); err != nil {
				return err
			}
		}
		return c.stmts(st.Stmts)
	case *ast.GenericForStmt:
		if err := c.exprs(st.Exprs); err != nil {
			return err
		}
		return c.stmts(st.Stmts)
	case *ast.FuncDefStmt:
		if err := c.funcName(st.Name); err != nil {
			return err
		}
		return c.expr(st.Func)
	case *ast.ReturnStmt:
		return c.exprs(st.Exprs)
	case *ast.LabelStmt:
		return c.banStmt("label", st.Line())
	case *ast.GotoStmt:
		return c.banStmt("goto", st.Line())
	}
	return nil
}

func (c *checker) funcName(name *ast.FuncName) error {
	if name == nil {
		return nil
	}
	if name.Func != nil {
		if err := c.expr(name.Func); err != nil {
			return err
		}
	}
	if name.Receiver != nil {
		if err := c.expr(name.Receiver); err != nil {
			return err
		}
	}
	if name.Method != "" {
		return c.banAttr(name.Method, 0)
	}
	return nil
}

func (c *checker) exprs(exprs []ast.Expr) error {
	for _, e := range exprs {
		if err := c.expr(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) expr(expr ast.Expr) error {
	switch ex := expr.(type) {
	case *ast.AttrGetExpr:
		if key, ok := ex.Key.(*ast.StringExpr); ok {
			if err := c.banAttr(key.Value, ex.Line()); err != nil {
				return err
			}
			return c.expr(ex.Object)
		}
		if err := c.expr(ex.Object); err != nil {
			return err
		}
		return c.expr(ex.Key)
	case *ast.TableExpr:
		for _, field := range ex.Fields {
			if field.Key != nil {
				if err := c.expr(field.Key); err != nil {
					return err
				}
			}
			if err := c.expr(field.Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.FuncCallExpr:
		return c.call(ex)
	case *ast.LogicalOpExpr:
		if err := c.expr(ex.Lhs); err != nil {
			return err
		}
		return c.expr(ex.Rhs)
	case *ast.RelationalOpExpr:
		if err := c.expr(ex.Lhs); err != nil {
			return err
		}
		return c.expr(ex.Rhs)
	case *ast.StringConcatOpExpr:
		if err := c.expr(ex.Lhs); err != nil {
			return err
		}
		return c.expr(ex.Rhs)
	case *ast.ArithmeticOpExpr:
		if err := c.expr(ex.Lhs); err != nil {
			return err
		}
		return c.expr(ex.Rhs)
	case *ast.UnaryMinusOpExpr:
		return c.expr(ex.Expr)
	case *ast.UnaryNotOpExpr:
		return c.expr(ex.Expr)
	case *ast.UnaryLenOpExpr:
		return c.expr(ex.Expr)
	case *ast.FunctionExpr:
		return c.stmts(ex.Stmts)
	}
	// Identifier and literal nodes carry nothing to reject.
	return nil
}

func (c *checker) call(call *ast.FuncCallExpr) error {
	if ident, ok := call.Func.(*ast.IdentExpr); ok {
		if ident.Value == "require" {
			return c.require(call)
		}
		if _, banned := c.policy.Dangerous.Functions[ident.Value]; banned {
			return violationf(call.Line(), "function not allowed: %s", ident.Value)
		}
	}
	if call.Method != "" {
		if err := c.banAttr(call.Method, call.Line()); err != nil {
			return err
		}
	}
	if call.Func != nil {
		if err := c.expr(call.Func); err != nil {
			return err
		}
	}
	if call.Receiver != nil {
		if err := c.expr(call.Receiver); err != nil {
			return err
		}
	}
	return c.exprs(call.Args)
}

func (c *checker) require(call *ast.FuncCallExpr) error {
	if len(call.Args) == 0 {
		return violationf(call.Line(), "require needs a module name")
	}
	name, ok := call.Args[0].(*ast.StringExpr)
	if !ok {
		// A computed module name cannot be checked statically; the guarded
		// require would catch it at runtime, but reject it here so nothing
		// slips past the static pass.
		return violationf(call.Line(), "dynamic module name in require")
	}
	if !c.policy.ModuleAllowed(name.Value) {
		return violationf(call.Line(), "module not allowed: %s", name.Value)
	}
	return c.exprs(call.Args[1:])
}

func (c *checker) banStmt(kind string, line int) error {
	if _, banned := c.policy.Dangerous.Statements[kind]; banned {
		return violationf(line, "statement not allowed: %s", kind)
	}
	return nil
}

func (c *checker) banAttr(name string, line int) error {
	if _, banned := c.policy.Dangerous.Attributes[name]; banned {
		return violationf(line, "attribute not allowed: %s", name)
	}
	return nil
}

func violationf(line int, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if line > 0 {
		return fmt.Errorf("line %d: %s", line, msg)
	}
	return fmt.Errorf("%s", msg)
}
