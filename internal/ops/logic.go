package ops

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowir/internal/ir"
)

// LogicalNot emits elementwise boolean NOT and returns the result.
func (l *Library) LogicalNot(b *ir.Block, x *ir.Variable) (*ir.Variable, error) {
	return l.unary(b, "logical_not", x)
}

// LogicalAnd emits elementwise boolean AND and returns the result.
func (l *Library) LogicalAnd(b *ir.Block, x, y *ir.Variable) (*ir.Variable, error) {
	return l.binaryBool(b, "logical_and", x, y)
}

// LogicalOr emits elementwise boolean OR and returns the result.
func (l *Library) LogicalOr(b *ir.Block, x, y *ir.Variable) (*ir.Variable, error) {
	return l.binaryBool(b, "logical_or", x, y)
}

func (l *Library) unary(b *ir.Block, opType string, x *ir.Variable) (*ir.Variable, error) {
	if err := requireVar(opType, "x", x); err != nil {
		return nil, err
	}
	out := l.Temp(b, opType, ir.Bool)
	out.Shape = x.Shape
	op := ir.NewOperation(opType).
		AddInput("X", x.Name).
		AddOutput("Out", out.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Library) binaryBool(b *ir.Block, opType string, x, y *ir.Variable) (*ir.Variable, error) {
	if err := requireVar(opType, "x", x); err != nil {
		return nil, err
	}
	if err := requireVar(opType, "y", y); err != nil {
		return nil, err
	}
	out := l.Temp(b, opType, ir.Bool)
	out.Shape = x.Shape
	op := ir.NewOperation(opType).
		AddInput("X", x.Name).
		AddInput("Y", y.Name).
		AddOutput("Out", out.Name)
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

// LessThan emits elementwise x < y. When cond is nil a boolean
// temporary is created for the result; passing cond lets loops reuse
// their condition variable.
func (l *Library) LessThan(b *ir.Block, x, y, cond *ir.Variable) (*ir.Variable, error) {
	return l.compare(b, "less_than", x, y, cond, true)
}

// Equal emits elementwise x == y, with the same cond contract as
// LessThan.
func (l *Library) Equal(b *ir.Block, x, y, cond *ir.Variable) (*ir.Variable, error) {
	return l.compare(b, "equal", x, y, cond, false)
}

func (l *Library) compare(b *ir.Block, opType string, x, y, cond *ir.Variable, forceCPU bool) (*ir.Variable, error) {
	if err := requireVar(opType, "x", x); err != nil {
		return nil, err
	}
	if err := requireVar(opType, "y", y); err != nil {
		return nil, err
	}
	if cond == nil {
		cond = l.Temp(b, opType, ir.Bool)
		cond.Shape = []int64{1}
	}
	op := ir.NewOperation(opType).
		AddInput("X", x.Name).
		AddInput("Y", y.Name).
		AddOutput("Out", cond.Name)
	if forceCPU {
		op.SetAttr("force_cpu", ir.Val(cty.True))
	}
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return cond, nil
}
