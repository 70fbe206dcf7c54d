package ops

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowir/internal/ir"
)

// FillConstant emits a constant-fill producing a fresh tensor of the
// given shape and dtype.
func (l *Library) FillConstant(b *ir.Block, shape []int64, dtype ir.DType, value float64, forceCPU bool) (*ir.Variable, error) {
	out := l.Temp(b, "fill_constant", dtype)
	out.Shape = shape
	op := ir.NewOperation("fill_constant").
		AddOutput("Out", out.Name).
		SetAttr("shape", shapeAttr(shape)).
		SetAttr("dtype", ir.Val(cty.StringVal(dtype.String()))).
		SetAttr("value", ir.Val(cty.NumberFloatVal(value)))
	if forceCPU {
		op.SetAttr("force_cpu", ir.Val(cty.True))
	}
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

// FillConstantBatchSizeLike fills out with a constant, copying the
// batch dimension from the reference tensor.
func (l *Library) FillConstantBatchSizeLike(b *ir.Block, ref, out *ir.Variable, shape []int64, value float64, inputDimIdx, outputDimIdx int) error {
	if err := requireVar("fill_constant_batch_size_like", "ref", ref); err != nil {
		return err
	}
	if err := requireVar("fill_constant_batch_size_like", "out", out); err != nil {
		return err
	}
	op := ir.NewOperation("fill_constant_batch_size_like").
		AddInput("Input", ref.Name).
		AddOutput("Out", out.Name).
		SetAttr("shape", shapeAttr(shape)).
		SetAttr("dtype", ir.Val(cty.StringVal(out.DType.String()))).
		SetAttr("value", ir.Val(cty.NumberFloatVal(value))).
		SetAttr("input_dim_idx", ir.Val(cty.NumberIntVal(int64(inputDimIdx)))).
		SetAttr("output_dim_idx", ir.Val(cty.NumberIntVal(int64(outputDimIdx))))
	return l.Append(b, op)
}

// Assign copies x into out.
func (l *Library) Assign(b *ir.Block, x, out *ir.Variable) error {
	if err := requireVar("assign", "x", x); err != nil {
		return err
	}
	if err := requireVar("assign", "out", out); err != nil {
		return err
	}
	op := ir.NewOperation("assign").
		AddInput("X", x.Name).
		AddOutput("Out", out.Name)
	return l.Append(b, op)
}

// Increment adds step to every element of x. In place by default;
// inPlace=false writes a fresh temporary instead.
func (l *Library) Increment(b *ir.Block, x *ir.Variable, step float64, inPlace bool) (*ir.Variable, error) {
	if err := requireVar("increment", "x", x); err != nil {
		return nil, err
	}
	out := x
	if !inPlace {
		out = l.Temp(b, "increment", x.DType)
		out.Shape = x.Shape
	}
	op := ir.NewOperation("increment").
		AddInput("X", x.Name).
		AddOutput("Out", out.Name).
		SetAttr("step", ir.Val(cty.NumberFloatVal(step)))
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

// PrintOptions configures the debug print pass-through.
type PrintOptions struct {
	Message   string
	FirstN    int
	Summarize int
	Phase     string // "FORWARD", "BACKWARD" or "BOTH"; empty means both
}

// Print wraps a tensor so the executor logs it on access; the output
// carries the same data as the input.
func (l *Library) Print(b *ir.Block, in *ir.Variable, opts PrintOptions) (*ir.Variable, error) {
	if err := requireVar("print", "in", in); err != nil {
		return nil, err
	}
	if opts.FirstN == 0 {
		opts.FirstN = -1
	}
	if opts.Summarize == 0 {
		opts.Summarize = -1
	}
	if opts.Phase == "" {
		opts.Phase = "BOTH"
	}
	out := l.Temp(b, "print", in.DType)
	out.Shape = in.Shape
	op := ir.NewOperation("print").
		AddInput("In", in.Name).
		AddOutput("Out", out.Name).
		SetAttr("message", ir.Val(cty.StringVal(opts.Message))).
		SetAttr("first_n", ir.Val(cty.NumberIntVal(int64(opts.FirstN)))).
		SetAttr("summarize", ir.Val(cty.NumberIntVal(int64(opts.Summarize)))).
		SetAttr("print_tensor_name", ir.Val(cty.True)).
		SetAttr("print_tensor_type", ir.Val(cty.True)).
		SetAttr("print_tensor_shape", ir.Val(cty.True)).
		SetAttr("print_tensor_lod", ir.Val(cty.True)).
		SetAttr("print_phase", ir.Val(cty.StringVal(opts.Phase)))
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}

// RNNMemoryHelper marks a recurrence state value so the executor can
// thread it between iterations; the output aliases the input's data.
func (l *Library) RNNMemoryHelper(b *ir.Block, x *ir.Variable) (*ir.Variable, error) {
	if err := requireVar("rnn_memory_helper", "x", x); err != nil {
		return nil, err
	}
	out := l.Temp(b, "rnn_memory_helper", x.DType)
	out.Shape = x.Shape
	op := ir.NewOperation("rnn_memory_helper").
		AddInput("X", x.Name).
		AddOutput("Out", out.Name).
		SetAttr("dtype", ir.Val(cty.StringVal(x.DType.String())))
	if err := l.Append(b, op); err != nil {
		return nil, err
	}
	return out, nil
}
