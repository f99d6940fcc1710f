package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// RunOneTime records commands into a fresh one-time command buffer, submits it
// and blocks until the queue is idle. Only used at load time.
func RunOneTime(device gpu.Device, pool gpu.Handle, record func(cb gpu.Handle)) error {
	buffers, err := device.AllocateCommandBuffers(pool, 1)
	if err != nil {
		return errors.Wrap(err, "failed to allocate one-time command buffer")
	}
	defer device.FreeCommandBuffers(pool, buffers)
	cb := buffers[0]

	if err := device.BeginCommandBuffer(cb, true); err != nil {
		return errors.Wrap(err, "failed to begin one-time command buffer")
	}
	record(cb)
	if err := device.EndCommandBuffer(cb); err != nil {
		return errors.Wrap(err, "failed to end one-time command buffer")
	}
	if err := device.QueueSubmit(gpu.SubmitInfo{CommandBuffers: buffers}); err != nil {
		return errors.Wrap(err, "failed to submit one-time command buffer")
	}
	// Wait for it to finish
	if err := device.QueueWaitIdle(); err != nil {
		return errors.Wrap(err, "failed to wait for one-time command buffer")
	}
	return nil
}
