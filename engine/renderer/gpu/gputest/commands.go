package gputest

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

func (d *Device) CreateCommandPool() (gpu.Handle, error) {
	h, _, err := d.create(KindCommandPool, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroyCommandPool(pool gpu.Handle) {
	d.destroy(pool, KindCommandPool)
}

func (d *Device) AllocateCommandBuffers(pool gpu.Handle, count uint32) ([]gpu.Handle, error) {
	if d.lookup(pool, KindCommandPool) == nil {
		return nil, errors.Newf("unknown command pool %d", pool)
	}
	out := make([]gpu.Handle, 0, count)
	for i := uint32(0); i < count; i++ {
		h, _, err := d.create(KindCommandBuffer, pool)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (d *Device) FreeCommandBuffers(pool gpu.Handle, buffers []gpu.Handle) {
	for _, cb := range buffers {
		d.destroy(cb, KindCommandBuffer)
	}
}

func (d *Device) ResetCommandBuffer(cb gpu.Handle) error {
	o := d.lookup(cb, KindCommandBuffer)
	if o == nil {
		return errors.Newf("unknown command buffer %d", cb)
	}
	for _, p := range d.inFlight {
		if _, used := p.refs[cb]; used {
			d.violate("command buffer %d reset while in flight", cb)
		}
	}
	o.state = cbInitial
	o.commands = nil
	o.draws = nil
	o.refs = nil
	o.bound = nil
	return nil
}

func (d *Device) BeginCommandBuffer(cb gpu.Handle, oneTimeSubmit bool) error {
	o := d.lookup(cb, KindCommandBuffer)
	if o == nil {
		return errors.Newf("unknown command buffer %d", cb)
	}
	if o.state == cbRecording {
		d.violate("command buffer %d begun twice", cb)
	}
	// begin implicitly resets the buffer
	o.state = cbRecording
	o.commands = nil
	o.draws = nil
	o.refs = map[gpu.Handle]struct{}{cb: {}}
	o.bound = make(map[uint32]gpu.Handle)
	return nil
}

func (d *Device) EndCommandBuffer(cb gpu.Handle) error {
	o := d.lookup(cb, KindCommandBuffer)
	if o == nil {
		return errors.Newf("unknown command buffer %d", cb)
	}
	if o.state != cbRecording {
		d.violate("command buffer %d ended while not recording", cb)
		return errors.Newf("command buffer %d is not recording", cb)
	}
	o.state = cbExecutable
	return nil
}

// recording returns the command buffer if it is recording and marks refs as
// used by it.
func (d *Device) recording(cb gpu.Handle, refs ...gpu.Handle) *object {
	o := d.lookup(cb, KindCommandBuffer)
	if o == nil {
		return nil
	}
	if o.state != cbRecording {
		d.violate("command recorded into command buffer %d which is not recording", cb)
		return nil
	}
	for _, r := range refs {
		if r == gpu.NullHandle {
			continue
		}
		if _, ok := d.objects[r]; !ok {
			d.violate("command references unknown handle %d", r)
		}
		o.refs[r] = struct{}{}
	}
	return o
}

func (d *Device) CmdBeginRenderPass(cb gpu.Handle, begin gpu.RenderPassBegin) {
	d.recording(cb, begin.RenderPass, begin.Framebuffer)
}

func (d *Device) CmdEndRenderPass(cb gpu.Handle) {
	d.recording(cb)
}

func (d *Device) CmdSetViewport(cb gpu.Handle, extent gpu.Extent2D) {
	d.recording(cb)
}

func (d *Device) CmdSetScissor(cb gpu.Handle, extent gpu.Extent2D) {
	d.recording(cb)
}

func (d *Device) CmdBindPipeline(cb, pipeline gpu.Handle) {
	if o := d.recording(cb, pipeline); o != nil {
		o.bound[^uint32(0)] = pipeline
	}
}

func (d *Device) CmdBindDescriptorSet(cb, layout gpu.Handle, index uint32, set gpu.Handle) {
	if o := d.recording(cb, layout, set); o != nil {
		o.bound[index] = set
	}
}

func (d *Device) CmdBindVertexBuffer(cb, buffer gpu.Handle, offset uint64) {
	d.recording(cb, buffer)
}

func (d *Device) CmdBindIndexBuffer(cb, buffer gpu.Handle, offset uint64) {
	d.recording(cb, buffer)
}

func (d *Device) CmdDraw(cb gpu.Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if o := d.recording(cb); o != nil {
		o.draws = append(o.draws, DrawCall{
			Count:         vertexCount,
			InstanceCount: instanceCount,
			First:         firstVertex,
			FirstInstance: firstInstance,
			Material:      o.bound[1],
			Pipeline:      o.bound[^uint32(0)],
		})
	}
}

func (d *Device) CmdDrawIndexed(cb gpu.Handle, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if o := d.recording(cb); o != nil {
		o.draws = append(o.draws, DrawCall{
			Indexed:       true,
			Count:         indexCount,
			InstanceCount: instanceCount,
			First:         firstIndex,
			VertexOffset:  vertexOffset,
			FirstInstance: firstInstance,
			Material:      o.bound[1],
			Pipeline:      o.bound[^uint32(0)],
		})
	}
}

func (d *Device) CmdCopyBuffer(cb, src, dst gpu.Handle, srcOffset, dstOffset, size uint64) {
	o := d.recording(cb, src, dst)
	if o == nil {
		return
	}
	o.commands = append(o.commands, func(d *Device) {
		from, to := d.BufferContents(src), d.BufferContents(dst)
		if srcOffset+size > uint64(len(from)) || dstOffset+size > uint64(len(to)) {
			d.violate("buffer copy of %d bytes out of bounds", size)
			return
		}
		copy(to[dstOffset:dstOffset+size], from[srcOffset:srcOffset+size])
	})
}

func (d *Device) CmdCopyBufferToImage(cb gpu.Handle, c gpu.BufferImageCopy) {
	o := d.recording(cb, c.Buffer, c.Image)
	if o == nil {
		return
	}
	o.commands = append(o.commands, func(d *Device) {
		img := d.objects[c.Image]
		if img == nil {
			return
		}
		if img.layout != gpu.ImageLayoutTransferDstOptimal {
			d.violate("copy into image %d in layout %d", c.Image, img.layout)
		}
		size := uint64(c.Extent.Width) * uint64(c.Extent.Height) * 4
		from, to := d.BufferContents(c.Buffer), d.BufferContents(c.Image)
		if size > uint64(len(from)) || size > uint64(len(to)) {
			d.violate("buffer to image copy of %d bytes out of bounds", size)
			return
		}
		copy(to[:size], from[:size])
	})
}

func (d *Device) CmdImageBarrier(cb gpu.Handle, barrier gpu.ImageBarrier) {
	o := d.recording(cb, barrier.Image)
	if o == nil {
		return
	}
	o.commands = append(o.commands, func(d *Device) {
		img := d.objects[barrier.Image]
		if img == nil {
			return
		}
		if barrier.OldLayout != gpu.ImageLayoutUndefined && barrier.OldLayout != img.layout {
			d.violate("image %d transitioned from layout %d but is in %d", barrier.Image, barrier.OldLayout, img.layout)
		}
		img.layout = barrier.NewLayout
	})
}

func (d *Device) CreateFence(signaled bool) (gpu.Handle, error) {
	h, o, err := d.create(KindFence, gpu.NullHandle)
	if err != nil {
		return h, err
	}
	o.signaled = signaled
	d.fences = append(d.fences, h)
	return h, nil
}

func (d *Device) DestroyFence(fence gpu.Handle) {
	d.destroy(fence, KindFence)
}

// WaitForFence returns ErrTimeout for an unsignaled fence, since nothing
// pending could ever signal it.
func (d *Device) WaitForFence(fence gpu.Handle, timeout uint64) error {
	o := d.lookup(fence, KindFence)
	if o == nil {
		return errors.Newf("unknown fence %d", fence)
	}
	d.fenceLog[fence] = append(d.fenceLog[fence], FenceWait)
	if !o.signaled {
		d.violate("wait on fence %d that will never signal", fence)
		return gpu.ErrTimeout
	}
	d.retire(func(p pending) bool { return p.fence == fence })
	return nil
}

func (d *Device) ResetFence(fence gpu.Handle) error {
	o := d.lookup(fence, KindFence)
	if o == nil {
		return errors.Newf("unknown fence %d", fence)
	}
	d.fenceLog[fence] = append(d.fenceLog[fence], FenceReset)
	o.signaled = false
	return nil
}

func (d *Device) CreateSemaphore() (gpu.Handle, error) {
	h, _, err := d.create(KindSemaphore, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroySemaphore(semaphore gpu.Handle) {
	d.destroy(semaphore, KindSemaphore)
}

func (d *Device) AcquireNextImage(swapchain, signal gpu.Handle, timeout uint64) (uint32, error) {
	o := d.lookup(swapchain, KindSwapchain)
	if o == nil {
		return 0, errors.Newf("unknown swapchain %d", swapchain)
	}
	if len(d.acquireScript) > 0 {
		err := d.acquireScript[0]
		d.acquireScript = d.acquireScript[1:]
		if err != nil {
			return 0, err
		}
	}
	s := d.lookup(signal, KindSemaphore)
	if s == nil {
		return 0, errors.Newf("unknown semaphore %d", signal)
	}
	if s.signaled {
		d.violate("acquire signals semaphore %d which is already signaled", signal)
	}
	s.signaled = true

	idx := o.nextImage
	o.nextImage = (o.nextImage + 1) % uint32(len(o.images))
	return idx, nil
}

func (d *Device) QueueSubmit(submit gpu.SubmitInfo) error {
	for _, w := range submit.WaitSemaphores {
		if s := d.lookup(w, KindSemaphore); s != nil {
			if !s.signaled {
				d.violate("submit waits on semaphore %d which is never signaled", w)
			}
			s.signaled = false
		}
	}

	snap := Submission{
		CommandBuffers: append([]gpu.Handle(nil), submit.CommandBuffers...),
		Fence:          submit.Fence,
	}
	refs := make(map[gpu.Handle]struct{})
	for _, cb := range submit.CommandBuffers {
		o := d.lookup(cb, KindCommandBuffer)
		if o == nil {
			return errors.Newf("unknown command buffer %d", cb)
		}
		if o.state != cbExecutable {
			d.violate("submit of command buffer %d which is not executable", cb)
			return errors.Newf("command buffer %d not executable", cb)
		}
		for _, c := range o.commands {
			c(d)
		}
		for r := range o.refs {
			refs[r] = struct{}{}
		}
		snap.Draws = append(snap.Draws, o.draws...)
	}

	for _, s := range submit.SignalSemaphores {
		if so := d.lookup(s, KindSemaphore); so != nil {
			so.signaled = true
		}
	}
	if submit.Fence != gpu.NullHandle {
		f := d.lookup(submit.Fence, KindFence)
		if f == nil {
			return errors.Newf("unknown fence %d", submit.Fence)
		}
		if f.signaled {
			d.violate("submit signals fence %d which was not reset", submit.Fence)
		}
		f.signaled = true
		d.fenceLog[submit.Fence] = append(d.fenceLog[submit.Fence], FenceSignal)
	}

	d.submissions = append(d.submissions, snap)
	d.inFlight = append(d.inFlight, pending{fence: submit.Fence, refs: refs})
	return nil
}

func (d *Device) QueuePresent(swapchain gpu.Handle, imageIndex uint32, wait gpu.Handle) error {
	if d.lookup(swapchain, KindSwapchain) == nil {
		return errors.Newf("unknown swapchain %d", swapchain)
	}
	if s := d.lookup(wait, KindSemaphore); s != nil {
		if !s.signaled {
			d.violate("present waits on semaphore %d which is never signaled", wait)
		}
		s.signaled = false
	}
	if len(d.presentScript) > 0 {
		err := d.presentScript[0]
		d.presentScript = d.presentScript[1:]
		if err != nil {
			return err
		}
	}
	d.presents = append(d.presents, imageIndex)
	return nil
}

func (d *Device) QueueWaitIdle() error {
	d.QueueIdleCalls++
	d.retire(func(pending) bool { return true })
	return nil
}

func (d *Device) WaitIdle() error {
	d.WaitIdleCalls++
	d.retire(func(pending) bool { return true })
	return nil
}

func (d *Device) retire(done func(pending) bool) {
	kept := d.inFlight[:0]
	for _, p := range d.inFlight {
		if !done(p) {
			kept = append(kept, p)
		}
	}
	d.inFlight = kept
}
