package limits

import (
	"encoding/json"
	"testing"
)

func TestNew(t *testing.T) {
	l := New(1000, 50, 0)

	if v, ok := l.PayloadCap(); !ok || v != 1000 {
		t.Errorf("PayloadCap() = %d, %v", v, ok)
	}
	if v, ok := l.DailyCap(); !ok || v != 50 {
		t.Errorf("DailyCap() = %d, %v", v, ok)
	}
	if _, ok := l.MonthlyCap(); ok {
		t.Error("MonthlyCap() should be unset for 0")
	}
	if l.IsZero() {
		t.Error("IsZero() = true")
	}
}

func TestZeroValue(t *testing.T) {
	var l Limits
	if !l.IsZero() {
		t.Error("zero Limits should have no caps")
	}
}

func TestNonPositiveIsUnset(t *testing.T) {
	zero := int64(0)
	neg := int64(-5)
	l := Limits{MaxPayloadSize: &zero, Daily: &neg}

	if _, ok := l.PayloadCap(); ok {
		t.Error("zero payload cap should be unset")
	}
	if _, ok := l.DailyCap(); ok {
		t.Error("negative daily cap should be unset")
	}
}

func TestJSONLayout(t *testing.T) {
	var l Limits
	if err := json.Unmarshal([]byte(`{"maxPayloadSize":4096,"monthly":1000000}`), &l); err != nil {
		t.Fatal(err)
	}
	if v, _ := l.PayloadCap(); v != 4096 {
		t.Errorf("PayloadCap() = %d", v)
	}
	if _, ok := l.DailyCap(); ok {
		t.Error("absent daily should be unset")
	}

	out, err := json.Marshal(l)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"maxPayloadSize":4096,"monthly":1000000}` {
		t.Errorf("unexpected encoding: %s", out)
	}
}
