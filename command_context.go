package transient

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/descriptor"
	"github.com/vkngwrapper/transient/fence"
	"github.com/vkngwrapper/transient/linear"
	"golang.org/x/exp/slog"
)

// CommandContext is the per-goroutine recording state that draws on an AllocatorContext. It
// owns a LinearAllocator for each page kind and a DynamicDescriptorHeap for each descriptor kind,
// and forwards descriptor heap and table bindings to a descriptor.Recorder.
//
// A CommandContext is not safe for concurrent use. Each recording goroutine should own its own.
type CommandContext struct {
	logger   *slog.Logger
	parent   *AllocatorContext
	recorder descriptor.Recorder

	upload  *linear.LinearAllocator
	scratch *linear.LinearAllocator
	heaps   [backend.DescriptorKindCount]*descriptor.DynamicDescriptorHeap

	layout     *descriptor.BindingLayout
	boundHeaps [backend.DescriptorKindCount]backend.DescriptorHeap
}

var _ descriptor.Recorder = &CommandContext{}

// NewCommandContext creates a CommandContext whose descriptor bindings are recorded on recorder
func (c *AllocatorContext) NewCommandContext(recorder descriptor.Recorder) (*CommandContext, error) {
	if recorder == nil {
		return nil, errors.New("attempted to create a command context without a recorder")
	}

	commandContext := &CommandContext{
		logger:   c.logger,
		parent:   c,
		recorder: recorder,
	}

	var err error
	commandContext.upload, err = c.NewLinearAllocator(backend.PageKindCPUWritable)
	if err != nil {
		return nil, err
	}
	commandContext.scratch, err = c.NewLinearAllocator(backend.PageKindDeviceExclusive)
	if err != nil {
		return nil, err
	}

	for kind := backend.DescriptorKind(0); kind < backend.DescriptorKindCount; kind++ {
		commandContext.heaps[kind], err = c.NewDynamicDescriptorHeap(kind)
		if err != nil {
			return nil, err
		}
	}

	return commandContext, nil
}

// AllocateUpload reserves CPU-writable memory for data the device reads this submission
func (c *CommandContext) AllocateUpload(size int, alignment uint) (linear.Allocation, error) {
	return c.upload.Allocate(size, alignment)
}

// AllocateScratch reserves device-exclusive memory for use by this submission
func (c *CommandContext) AllocateScratch(size int, alignment uint) (linear.Allocation, error) {
	return c.scratch.Allocate(size, alignment)
}

// BindingLayout is the layout most recently passed to SetBindingLayout since the last Finish
func (c *CommandContext) BindingLayout() *descriptor.BindingLayout { return c.layout }

// DescriptorHeap returns the context's DynamicDescriptorHeap of kind
func (c *CommandContext) DescriptorHeap(kind backend.DescriptorKind) *descriptor.DynamicDescriptorHeap {
	if kind >= backend.DescriptorKindCount {
		return nil
	}
	return c.heaps[kind]
}

// SetBindingLayout prepares the descriptor caches for layout. Setting the layout that is already
// set does nothing, so staged descriptors survive.
func (c *CommandContext) SetBindingLayout(layout *descriptor.BindingLayout) error {
	if layout == c.layout {
		return nil
	}

	c.layout = nil
	for _, heap := range c.heaps {
		err := heap.ParseBindingLayout(layout)
		if err != nil {
			return err
		}
	}

	c.layout = layout
	return nil
}

// SetDynamicDescriptors stages view descriptors into the table at rootIndex
func (c *CommandContext) SetDynamicDescriptors(rootIndex int, offset int, handles []backend.CPUHandle) error {
	return c.heaps[backend.DescriptorKindView].StageDescriptors(rootIndex, offset, handles)
}

// SetDynamicSamplers stages sampler descriptors into the table at rootIndex
func (c *CommandContext) SetDynamicSamplers(rootIndex int, offset int, handles []backend.CPUHandle) error {
	return c.heaps[backend.DescriptorKindSampler].StageDescriptors(rootIndex, offset, handles)
}

// SetNamedDescriptor stages handle at the location the current binding layout gives to name
func (c *CommandContext) SetNamedDescriptor(name string, handle backend.CPUHandle) error {
	if c.layout == nil {
		return errors.Newf("cannot set parameter %q before a binding layout is set", name)
	}

	location, ok := c.layout.Parameter(name)
	if !ok {
		return errors.Newf("the binding layout has no parameter named %q", name)
	}

	param := c.layout.RootParameter(location.RootIndex)
	kind := param.Ranges[0].Kind
	return c.heaps[kind].StageDescriptors(location.RootIndex, location.Offset, []backend.CPUHandle{handle})
}

// CommitGraphics copies every stale descriptor table into shader-visible heaps and binds it
// for draws
func (c *CommandContext) CommitGraphics() error {
	return c.commit(descriptor.BindGraphics)
}

// CommitCompute copies every stale descriptor table into shader-visible heaps and binds it
// for dispatches
func (c *CommandContext) CommitCompute() error {
	return c.commit(descriptor.BindCompute)
}

func (c *CommandContext) commit(bind descriptor.BindFunc) error {
	for _, heap := range c.heaps {
		err := heap.CommitStagedDescriptors(c, bind)
		if err != nil {
			return err
		}
	}
	return nil
}

// CopyDescriptor copies a single descriptor into a shader-visible heap of kind and returns the
// GPU handle it can be read from
func (c *CommandContext) CopyDescriptor(kind backend.DescriptorKind, handle backend.CPUHandle) (backend.GPUHandle, error) {
	heap := c.DescriptorHeap(kind)
	if heap == nil {
		return 0, errors.Newf("attempted to copy a descriptor of unknown kind %d", kind)
	}
	return heap.CopyDescriptor(c, handle)
}

// SetDescriptorHeap binds heap on the recorder unless it is already bound
func (c *CommandContext) SetDescriptorHeap(kind backend.DescriptorKind, heap backend.DescriptorHeap) {
	if kind >= backend.DescriptorKindCount || c.boundHeaps[kind] == heap {
		return
	}

	c.boundHeaps[kind] = heap
	c.recorder.SetDescriptorHeap(kind, heap)
}

func (c *CommandContext) SetGraphicsRootDescriptorTable(rootIndex int, handle backend.GPUHandle) {
	c.recorder.SetGraphicsRootDescriptorTable(rootIndex, handle)
}

func (c *CommandContext) SetComputeRootDescriptorTable(rootIndex int, handle backend.GPUHandle) {
	c.recorder.SetComputeRootDescriptorTable(rootIndex, handle)
}

// Finish associates everything recorded since the last Finish with fenceValue. All memory and
// shader-visible heaps used so far are returned to the AllocatorContext, to be reused once
// fenceValue completes. The binding layout must be set again before staging descriptors.
func (c *CommandContext) Finish(fenceValue fence.Value) error {
	c.logger.Debug("CommandContext::Finish")

	err := errors.CombineErrors(c.upload.SetFence(fenceValue), c.scratch.SetFence(fenceValue))
	for kind, heap := range c.heaps {
		err = errors.CombineErrors(err, heap.Reset(fenceValue))
		c.boundHeaps[kind] = nil
	}
	c.layout = nil

	return err
}

// Close returns everything the context holds to the AllocatorContext as immediately reusable.
// The caller must ensure no GPU work recorded through this context is still outstanding.
func (c *CommandContext) Close() error {
	c.logger.Debug("CommandContext::Close")

	err := errors.CombineErrors(c.upload.Destroy(), c.scratch.Destroy())
	for kind, heap := range c.heaps {
		err = errors.CombineErrors(err, heap.Reset(0))
		c.boundHeaps[kind] = nil
	}
	c.layout = nil

	return err
}
