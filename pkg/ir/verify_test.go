package ir

import "testing"

func simpleRetFunc() *Function {
	return &Function{
		Name:  "f",
		RetTy: I32,
		Blocks: []*BasicBlock{
			{Label: "entry", Instr: []Instr{
				IRet{Ty: I32, Val: ConstInt{Ty: I32, Value: 0}},
			}},
		},
	}
}

func TestVerifyAcceptsAWellFormedFunction(t *testing.T) {
	if err := Verify(simpleRetFunc()); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestVerifyRejectsAFunctionWithNoBlocks(t *testing.T) {
	fn := &Function{Name: "empty", RetTy: Void}
	if err := Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an error for a function with no blocks")
	}
}

func TestVerifyRejectsDuplicateBlockLabels(t *testing.T) {
	fn := simpleRetFunc()
	fn.Blocks = append(fn.Blocks, &BasicBlock{Label: "entry", Instr: []Instr{
		IRet{Ty: Void},
	}})
	if err := Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an error for a duplicate block label")
	}
}

func TestVerifyRejectsABlockMissingATerminator(t *testing.T) {
	fn := &Function{
		Name:  "f",
		RetTy: I32,
		Blocks: []*BasicBlock{
			{Label: "entry", Instr: []Instr{
				IAssign{Dest: 1, Ty: I32, Src: ConstInt{Ty: I32, Value: 0}},
			}},
		},
	}
	if err := Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an error for a block without a terminator")
	}
}

func TestVerifyRejectsATerminatorBeforeTheEndOfABlock(t *testing.T) {
	fn := &Function{
		Name:  "f",
		RetTy: I32,
		Blocks: []*BasicBlock{
			{Label: "entry", Instr: []Instr{
				IRet{Ty: I32, Val: ConstInt{Ty: I32, Value: 0}},
				IAssign{Dest: 1, Ty: I32, Src: ConstInt{Ty: I32, Value: 1}},
			}},
		},
	}
	if err := Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an error for a terminator that isn't the last instruction")
	}
}

func TestVerifyRejectsAPhiAfterANonPhiInstruction(t *testing.T) {
	fn := &Function{
		Name:  "f",
		RetTy: I32,
		Blocks: []*BasicBlock{
			{Label: "entry", Instr: []Instr{
				IAssign{Dest: 1, Ty: I32, Src: ConstInt{Ty: I32, Value: 0}},
				IPhi{Dest: 2, Ty: I32, Incoming: []PhiIncoming{{Pred: "entry", Value: ConstInt{Ty: I32}}}},
				IRet{Ty: I32, Val: Use{Reg: 2, Ty: I32}},
			}},
		},
	}
	if err := Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an error for a phi after a non-phi instruction")
	}
}

func TestVerifyRejectsDuplicateSwitchCases(t *testing.T) {
	fn := &Function{
		Name:  "f",
		RetTy: Void,
		Blocks: []*BasicBlock{
			{Label: "entry", Instr: []Instr{
				ISwitch{
					Ty:    I32,
					Value: ConstInt{Ty: I32, Value: 1},
					Cases: []SwitchCase{
						{Value: 1, Target: "a"},
						{Value: 1, Target: "b"},
					},
					Default: "a",
				},
			}},
			{Label: "a", Instr: []Instr{IRet{Ty: Void}}},
			{Label: "b", Instr: []Instr{IRet{Ty: Void}}},
		},
	}
	if err := Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an error for a switch with duplicate case values")
	}
}

func TestVerifyRejectsANonI32AllocaSize(t *testing.T) {
	fn := &Function{
		Name:  "f",
		RetTy: Void,
		Blocks: []*BasicBlock{
			{Label: "entry", Instr: []Instr{
				IAlloca{Dest: 1, ElemSize: 1, Align: 4, Size: ConstInt{Ty: I8, Value: 16}},
				IRet{Ty: Void},
			}},
		},
	}
	if err := Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an error for an alloca size that isn't i32")
	}
}

func TestVerifyRejectsANonSequentiallyConsistentAtomicOrder(t *testing.T) {
	fn := &Function{
		Name:  "f",
		RetTy: Void,
		Blocks: []*BasicBlock{
			{Label: "entry", Instr: []Instr{
				IIntrinsic{
					Kind:    AtomicLoad,
					Ty:      I32,
					Order:   MemoryOrder(2),
					OrderOK: true,
				},
				IRet{Ty: Void},
			}},
		},
	}
	if err := Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an error for a non-sequentially-consistent atomic order")
	}
}

func TestVerifyRejectsANonConstantAtomicIsLockFreeSize(t *testing.T) {
	fn := &Function{
		Name:  "f",
		RetTy: I32,
		Blocks: []*BasicBlock{
			{Label: "entry", Instr: []Instr{
				IIntrinsic{
					Kind: AtomicIsLockFree,
					Dest: func() *Reg { r := Reg(1); return &r }(),
					Ty:   I32,
					Args: []Value{Use{Reg: 2, Ty: I32}},
				},
				IRet{Ty: I32, Val: Use{Reg: 1, Ty: I32}},
			}},
		},
	}
	if err := Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an error for a non-constant AtomicIsLockFree size argument")
	}
}
