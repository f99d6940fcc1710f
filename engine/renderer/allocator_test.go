package renderer

import (
	"bytes"
	"testing"

	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu/gputest"
)

func TestFindMemoryType(t *testing.T) {
	types := []gpu.MemoryType{
		{Properties: gpu.MemoryPropertyDeviceLocal},
		{Properties: gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent},
		{Properties: gpu.MemoryPropertyDeviceLocal | gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent},
	}
	tests := []struct {
		name     string
		typeBits uint32
		props    gpu.MemoryProperty
		want     uint32
		wantErr  bool
	}{
		{"device local", 0b111, DeviceLocal, 0, false},
		{"host visible", 0b111, HostVisible, 1, false},
		{"filtered by type bits", 0b100, HostVisible, 2, false},
		{"device local and host visible", 0b111, DeviceLocal | HostVisible, 2, false},
		{"nothing allowed", 0b000, DeviceLocal, 0, true},
		{"no match", 0b001, HostVisible, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindMemoryType(types, tt.typeBits, tt.props)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Fatalf("index = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBufferWriteAndRelease(t *testing.T) {
	dev := gputest.New()
	alloc := NewAllocator(dev)

	buf, err := alloc.CreateBuffer(64, gpu.BufferUsageUniform, HostVisible)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.Write(8, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if got := dev.BufferContents(buf.Handle)[8:12]; !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("memory = %v", got)
	}
	if err := buf.Write(62, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected an overflow error")
	}

	buf.Release()
	buf.Release()
	if live := dev.LiveObjects(); len(live) != 0 {
		t.Fatalf("live objects after release: %v", live)
	}
	if v := dev.Violations(); len(v) != 0 {
		t.Fatalf("violations: %v", v)
	}
}

func TestDeviceLocalBufferCannotBeMapped(t *testing.T) {
	dev := gputest.New()
	buf, err := NewAllocator(dev).CreateBuffer(16, gpu.BufferUsageVertex, DeviceLocal)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Release()
	if _, err := buf.Map(); err == nil {
		t.Fatal("mapping device-local memory should fail")
	}
}

func TestCreateBufferCleansUpOnAllocationFailure(t *testing.T) {
	dev := gputest.New()
	dev.Types = []gpu.MemoryType{{Properties: gpu.MemoryPropertyDeviceLocal}}

	if _, err := NewAllocator(dev).CreateBuffer(16, gpu.BufferUsageUniform, HostVisible); err == nil {
		t.Fatal("expected no host visible memory type")
	}
	if dev.Live(gputest.KindBuffer) != 0 {
		t.Fatal("buffer leaked after failed allocation")
	}
}
