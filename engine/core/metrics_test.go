package core

import (
	"math"
	"testing"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	m := NewMetrics()
	// 60 frames of 1/60s each add up to one second
	for i := 0; i < 60; i++ {
		m.Update(1.0 / 60.0)
	}

	fps, avg := m.Frame()
	if fps != 60 {
		t.Fatalf("fps = %v, want 60", fps)
	}
	if math.Abs(avg-1000.0/60.0) > 1e-6 {
		t.Fatalf("avg frame time = %v, want %v", avg, 1000.0/60.0)
	}
}

func TestMetricsNeedsFullWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < AVG_COUNT-1; i++ {
		m.Update(0.01)
	}
	if m.FrameTime() != 0 {
		t.Fatalf("average should stay 0 until %d samples exist, got %v", AVG_COUNT, m.FrameTime())
	}
	m.Update(0.01)
	if math.Abs(m.FrameTime()-10) > 1e-9 {
		t.Fatalf("average = %v, want 10ms", m.FrameTime())
	}
}
