package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/aluvm/asm"
	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/program"
)

func TestStepperMatchesBatchDriver(t *testing.T) {
	source := "put A16:1, 4 ; put A16:2, 4 ; eq.n A16:1, A16:2 ; ret"

	lib, err := asm.AssembleLib(source)
	require.NoError(t, err)

	batch := New()
	_, err = batch.Run(program.NewWithLib(lib), nil)
	require.NoError(t, err)

	stepped := New()
	stepper, err := NewStepper(stepped, program.NewWithLib(lib))
	require.NoError(t, err)
	halted, err := stepper.Run(nil, 0)
	require.NoError(t, err)
	require.True(t, halted)

	assert.Equal(t, batch.Core.Ck(), stepped.Core.Ck())
	assert.Equal(t, batch.Core.Co(), stepped.Core.Co())
	assert.Equal(t, batch.Core.Ca(), stepped.Core.Ca())
	assert.Equal(t, batch.Core.Cf(), stepped.Core.Cf())
}

func TestStepperSingleSteps(t *testing.T) {
	lib, err := asm.AssembleLib("nop ; nop ; ret")
	require.NoError(t, err)

	stepper, err := NewStepper(New(), program.NewWithLib(lib))
	require.NoError(t, err)

	instr, err := stepper.Peek()
	require.NoError(t, err)
	assert.Equal(t, "nop", instr.String())

	halted, err := stepper.Step(nil)
	require.NoError(t, err)
	assert.False(t, halted)
	assert.Equal(t, uint16(1), stepper.Site().Offset)

	// nop, then ret terminates
	_, err = stepper.Step(nil)
	require.NoError(t, err)
	halted, err = stepper.Step(nil)
	require.NoError(t, err)
	assert.True(t, halted)
	assert.Equal(t, core.StatusOk, stepper.Status())

	// stepping a halted program is a no-op
	halted, err = stepper.Step(nil)
	require.NoError(t, err)
	assert.True(t, halted)
}

func TestStepperRunBudget(t *testing.T) {
	lib, err := asm.AssembleLib("jmp 0")
	require.NoError(t, err)

	stepper, err := NewStepper(New(), program.NewWithLib(lib))
	require.NoError(t, err)
	halted, err := stepper.Run(nil, 10)
	require.NoError(t, err)
	assert.False(t, halted, "the budget must suspend the endless loop")
}
