package audio

import "testing"

func frame(value int16, n int) []int16 {
	f := make([]int16, n)
	for i := range f {
		f[i] = value
	}
	return f
}

func TestUtterance_EndsOnTrailingSilence(t *testing.T) {
	u := newUtterance(1000)

	if u.add(frame(0, 500)) || u.add(frame(0, 500)) {
		t.Fatal("leading silence must not complete the utterance")
	}
	if len(u.samples) != 0 {
		t.Error("leading silence was recorded")
	}
	if u.add(frame(2000, 500)) {
		t.Fatal("speech alone must not complete the utterance")
	}
	if u.add(frame(10, 500)) {
		t.Fatal("half a second of silence is not enough")
	}
	if !u.add(frame(10, 500)) {
		t.Fatal("a second of silence should complete the utterance")
	}
	if len(u.samples) != 1500 {
		t.Errorf("recorded %d samples, want 1500", len(u.samples))
	}
}

func TestUtterance_LengthCap(t *testing.T) {
	u := newUtterance(100)
	done := false
	for i := 0; i < 20 && !done; i++ {
		done = u.add(frame(3000, 100))
	}
	if !done || len(u.samples) != 1000 {
		t.Errorf("done=%v samples=%d", done, len(u.samples))
	}
}
