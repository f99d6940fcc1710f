package math

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		name         string
		v, low, high uint32
		want         uint32
	}{
		{"inside", 800, 1, 4096, 800},
		{"below", 0, 1, 4096, 1},
		{"above", 10000, 1, 4096, 4096},
		{"degenerate", 5, 7, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.low, tt.high); got != tt.want {
				t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.v, tt.low, tt.high, got, tt.want)
			}
		})
	}

	if got := Clamp(1.5, 0.0, 1.0); got != 1.0 {
		t.Errorf("Clamp(1.5, 0, 1) = %v, want 1", got)
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		v, alignment, want uint64
	}{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{300, 64, 320},
		{17, 0, 17},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.v, tt.alignment); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.v, tt.alignment, got, tt.want)
		}
	}
}
