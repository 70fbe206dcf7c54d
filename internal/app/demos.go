package app

import (
	"context"

	"github.com/vk/flowir/internal/control"
	"github.com/vk/flowir/internal/ctxlog"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/ops"
)

// demoBuilder populates a fresh program with one example construction.
type demoBuilder func(ctx context.Context, lib *ops.Library) error

var demos = map[string]demoBuilder{
	"counter": buildCounterDemo,
	"switch":  buildSwitchDemo,
	"rnn":     buildRNNDemo,
}

// DemoNames lists the bundled demos.
func DemoNames() []string {
	return []string{"counter", "switch", "rnn"}
}

// buildCounterDemo lowers a count-to-ten while loop.
func buildCounterDemo(ctx context.Context, lib *ops.Library) error {
	logger := ctxlog.FromContext(ctx)
	root := lib.Prog.Current()

	i, err := lib.FillConstant(root, []int64{1}, ir.Int64, 0, true)
	if err != nil {
		return err
	}
	limit, err := lib.FillConstant(root, []int64{1}, ir.Int64, 10, true)
	if err != nil {
		return err
	}
	cond, err := lib.LessThan(root, i, limit, nil)
	if err != nil {
		return err
	}

	loop, err := control.NewWhile(lib, cond)
	if err != nil {
		return err
	}
	err = loop.Block(func(b *ir.Block) error {
		next, err := lib.Increment(b, i, 1, false)
		if err != nil {
			return err
		}
		if err := lib.Assign(b, next, i); err != nil {
			return err
		}
		_, err = lib.LessThan(b, i, limit, cond)
		return err
	})
	if err != nil {
		return err
	}
	logger.Debug("Counter demo lowered.", "blocks", lib.Prog.BlockCount())
	return nil
}

// buildSwitchDemo lowers a piecewise learning-rate selection.
func buildSwitchDemo(ctx context.Context, lib *ops.Library) error {
	logger := ctxlog.FromContext(ctx)
	root := lib.Prog.Current()

	step, err := lib.FillConstant(root, []int64{1}, ir.Float32, 5, false)
	if err != nil {
		return err
	}
	warmup, err := lib.FillConstant(root, []int64{1}, ir.Float32, 1, false)
	if err != nil {
		return err
	}
	decay, err := lib.FillConstant(root, []int64{1}, ir.Float32, 10, false)
	if err != nil {
		return err
	}
	lr := root.MustCreateVar(ir.VarSpec{
		Name:        lib.Names.Generate("learning_rate"),
		Kind:        ir.KindTensor,
		DType:       ir.Float32,
		Shape:       []int64{1},
		Persistable: true,
	})

	inWarmup, err := lib.LessThan(root, step, warmup, nil)
	if err != nil {
		return err
	}
	inDecay, err := lib.LessThan(root, step, decay, nil)
	if err != nil {
		return err
	}

	setLR := func(value float64) func(b *ir.Block) error {
		return func(b *ir.Block) error {
			v, err := lib.FillConstant(b, []int64{1}, ir.Float32, value, false)
			if err != nil {
				return err
			}
			return lib.Assign(b, v, lr)
		}
	}

	sw := control.NewSwitch(lib)
	err = sw.Block(func() error {
		if err := sw.Case(inWarmup, setLR(0.1)); err != nil {
			return err
		}
		if err := sw.Case(inDecay, setLR(0.01)); err != nil {
			return err
		}
		return sw.Default(setLR(0.001))
	})
	if err != nil {
		return err
	}
	logger.Debug("Switch demo lowered.", "blocks", lib.Prog.BlockCount())
	return nil
}

// buildRNNDemo lowers a dynamic recurrence over a variable-length
// sequence batch with one carried state.
func buildRNNDemo(ctx context.Context, lib *ops.Library) error {
	logger := ctxlog.FromContext(ctx)
	root := lib.Prog.Current()

	sentences := root.MustCreateVar(ir.VarSpec{
		Name:     lib.Names.Generate("sentences"),
		Kind:     ir.KindTensor,
		DType:    ir.Float32,
		Shape:    []int64{-1, 32},
		LoDLevel: 1,
	})

	drnn, err := control.NewDynamicRNN(lib)
	if err != nil {
		return err
	}
	err = drnn.Block(func(b *ir.Block) error {
		word, err := drnn.StepInput(sentences)
		if err != nil {
			return err
		}
		state, err := drnn.Memory(control.DynamicMemoryOptions{
			Shape: []int64{32},
			Value: 0,
			DType: ir.Float32,
		})
		if err != nil {
			return err
		}
		next, err := lib.Increment(b, state, 1, false)
		if err != nil {
			return err
		}
		if err := drnn.UpdateMemory(state, next); err != nil {
			return err
		}
		return drnn.Output(word, next)
	})
	if err != nil {
		return err
	}
	outs, err := drnn.Outputs()
	if err != nil {
		return err
	}
	logger.Debug("Recurrence demo lowered.", "outputs", len(outs), "blocks", lib.Prog.BlockCount())
	return nil
}
