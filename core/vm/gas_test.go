package vm

import "testing"

func TestSstoreCostSetVsReset(t *testing.T) {
	if got := sstoreCost(0, 1); got != GasSstoreSet {
		t.Errorf("0->nonzero = %d, want %d", got, GasSstoreSet)
	}
	if got := sstoreCost(1, 2); got != GasSstoreReset {
		t.Errorf("nonzero->nonzero = %d, want %d", got, GasSstoreReset)
	}
	if got := sstoreCost(1, 0); got != GasSstoreReset {
		t.Errorf("nonzero->0 = %d, want %d", got, GasSstoreReset)
	}
}

func TestSstoreRefundOnlyOnClear(t *testing.T) {
	if got := sstoreRefund(1, 0); got != GasSstoreClearRefund {
		t.Errorf("clear refund = %d, want %d", got, GasSstoreClearRefund)
	}
	if got := sstoreRefund(0, 1); got != 0 {
		t.Errorf("set should refund nothing, got %d", got)
	}
	if got := sstoreRefund(1, 2); got != 0 {
		t.Errorf("reset should refund nothing, got %d", got)
	}
}

func TestCallCostSurcharges(t *testing.T) {
	if got := callCost(false, true); got != GasCallBase {
		t.Errorf("no-value call = %d, want %d", got, GasCallBase)
	}
	if got := callCost(true, true); got != GasCallBase+GasCallValue {
		t.Errorf("value call to existing account = %d", got)
	}
	if got := callCost(true, false); got != GasCallBase+GasCallValue+GasNewAccount {
		t.Errorf("value call to new account = %d", got)
	}
}

func TestIntrinsicGasCountsZeroAndNonzeroBytes(t *testing.T) {
	data := []byte{0, 0, 1, 2}
	got := intrinsicGas(data, false)
	want := TxBase + 2*TxDataZero + 2*TxDataNonzero
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestIntrinsicGasCreateUsesHigherBase(t *testing.T) {
	got := intrinsicGas(nil, true)
	if got != TxCreate {
		t.Errorf("got %d, want %d", got, TxCreate)
	}
}

func TestIntrinsicGasF2AddsInitcodeWordSurcharge(t *testing.T) {
	data := make([]byte, 64)
	withoutSurcharge := IntrinsicGas(data, true, ForkF1)
	withSurcharge := IntrinsicGas(data, true, ForkF2)
	if withSurcharge <= withoutSurcharge {
		t.Errorf("F2 surcharge missing: F1=%d F2=%d", withoutSurcharge, withSurcharge)
	}
	if withSurcharge-withoutSurcharge != initcodeWordGas(64) {
		t.Errorf("surcharge delta = %d, want %d", withSurcharge-withoutSurcharge, initcodeWordGas(64))
	}
}

func TestExpCostScalesWithExponentByteLength(t *testing.T) {
	if got := expCost(0); got != GasExpBase {
		t.Errorf("exp(0 bytes) = %d, want %d", got, GasExpBase)
	}
	if got := expCost(2); got != GasExpBase+2*GasExpPerByte {
		t.Errorf("exp(2 bytes) = %d", got)
	}
}

func TestLogCostScalesWithTopicsAndSize(t *testing.T) {
	got := logCost(10, 2)
	want := GasLog + GasLogData*10 + GasLogTopic*2
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}
