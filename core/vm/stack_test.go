package vm

import (
	"math/big"
	"testing"
)

func TestStackPushPop(t *testing.T) {
	st := NewStack()
	if err := st.Push(big.NewInt(42)); err != nil {
		t.Fatalf("push: %v", err)
	}
	v, err := st.Pop()
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if v.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("got %v, want 42", v)
	}
}

func TestStackPopEmptyUnderflows(t *testing.T) {
	st := NewStack()
	_, err := st.Pop()
	if kind, ok := KindOf(err); !ok || kind != StackUnderflow {
		t.Fatalf("expected StackUnderflow, got %v", err)
	}
}

func TestStackOverflowAtLimit(t *testing.T) {
	st := NewStack()
	for i := 0; i < StackLimit; i++ {
		if err := st.Push(big.NewInt(int64(i))); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	err := st.Push(big.NewInt(0))
	if kind, ok := KindOf(err); !ok || kind != StackOverflow {
		t.Fatalf("expected StackOverflow, got %v", err)
	}
}

func TestStackPeekDoesNotRemove(t *testing.T) {
	st := NewStack()
	st.Push(big.NewInt(1))
	st.Push(big.NewInt(2))
	v, err := st.Peek(0)
	if err != nil || v.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("Peek(0) = %v, %v", v, err)
	}
	if st.Len() != 2 {
		t.Errorf("Peek mutated stack length: %d", st.Len())
	}
}

func TestStackDupDuplicatesByDepth(t *testing.T) {
	st := NewStack()
	st.Push(big.NewInt(10))
	st.Push(big.NewInt(20))
	if err := st.Dup(2); err != nil {
		t.Fatalf("dup: %v", err)
	}
	top, _ := st.Peek(0)
	if top.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("DUP2 pushed %v, want 10", top)
	}
}

func TestStackSwapExchangesTopAndDepth(t *testing.T) {
	st := NewStack()
	st.Push(big.NewInt(1))
	st.Push(big.NewInt(2))
	if err := st.Swap(1); err != nil {
		t.Fatalf("swap: %v", err)
	}
	top, _ := st.Peek(0)
	bottom, _ := st.Peek(1)
	if top.Cmp(big.NewInt(1)) != 0 || bottom.Cmp(big.NewInt(2)) != 0 {
		t.Errorf("after SWAP1: top=%v bottom=%v", top, bottom)
	}
}

func TestStackSetOverwritesAtDepth(t *testing.T) {
	st := NewStack()
	st.Push(big.NewInt(1))
	st.Push(big.NewInt(2))
	if err := st.Set(1, big.NewInt(99)); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, _ := st.Peek(1)
	if v.Cmp(big.NewInt(99)) != 0 {
		t.Errorf("Set(1, 99) left %v", v)
	}
}
