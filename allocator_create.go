package transient

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/descriptor"
	"github.com/vkngwrapper/transient/fence"
	"github.com/vkngwrapper/transient/linear"
	"github.com/vkngwrapper/transient/memutils"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator context behaviors to activate or deactivate
type CreateFlags int32

var createFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	createFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return createFlagsMapping.FlagsToString(f)
}

const (
	// CreateExternallySynchronized ensures that the page managers and heap pools of this context
	// will not be synchronized internally. The consumer must guarantee they are used from only one
	// goroutine at a time or are synchronized by some other mechanism.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	CreateExternallySynchronized.Register("CreateExternallySynchronized")
}

const (
	// DefaultDeviceExclusivePageSize is the page size for device-exclusive memory when none is
	// provided via CreateOptions. It is equal to 64KiB.
	DefaultDeviceExclusivePageSize int = 64 * 1024
	// DefaultCPUWritablePageSize is the page size for CPU-writable memory when none is provided
	// via CreateOptions. It is equal to 2MiB.
	DefaultCPUWritablePageSize int = 2 * 1024 * 1024
	// DefaultDescriptorHeapCapacity is the number of descriptors in each shader-visible heap
	// when none is provided via CreateOptions
	DefaultDescriptorHeapCapacity int = descriptor.DefaultHeapCapacity
)

// CreateOptions contains settings when creating an AllocatorContext. Every field but Fence may
// be left blank.
type CreateOptions struct {
	// Flags indicates specific allocator context behaviors to activate or deactivate
	Flags CreateFlags
	// DeviceExclusivePageSize is the size of each pooled page of device-exclusive memory. It
	// must be a power of two.
	DeviceExclusivePageSize int
	// CPUWritablePageSize is the size of each pooled page of CPU-writable memory. It must be a
	// power of two.
	CPUWritablePageSize int
	// DescriptorHeapCapacity is the number of descriptors in each shader-visible heap
	DescriptorHeapCapacity int

	// Fence reports which submitted work has finished executing. Pages and heaps are only
	// reused once the fence they were retired under is complete.
	Fence fence.CompletionFence
}

// New creates a new AllocatorContext
//
// pages - The backend that page memory is allocated from
//
// descriptors - The backend that shader-visible descriptor heaps are created from
//
// options - Settings for the context: only Fence is required
func New(logger *slog.Logger, pages backend.PageDevice, descriptors backend.DescriptorDevice, options CreateOptions) (*AllocatorContext, error) {
	if logger == nil {
		return nil, errors.New("attempted to create an allocator context without a logger")
	}
	if options.Fence == nil {
		return nil, errors.New("transient.CreateOptions.Fence must be provided")
	}

	useMutex := options.Flags&CreateExternallySynchronized == 0

	pageSizes := [backend.PageKindCount]int{
		backend.PageKindDeviceExclusive: DefaultDeviceExclusivePageSize,
		backend.PageKindCPUWritable:     DefaultCPUWritablePageSize,
	}
	if options.DeviceExclusivePageSize != 0 {
		pageSizes[backend.PageKindDeviceExclusive] = options.DeviceExclusivePageSize
	}
	if options.CPUWritablePageSize != 0 {
		pageSizes[backend.PageKindCPUWritable] = options.CPUWritablePageSize
	}

	heapCapacity := DefaultDescriptorHeapCapacity
	if options.DescriptorHeapCapacity != 0 {
		heapCapacity = options.DescriptorHeapCapacity
	}

	allocatorContext := &AllocatorContext{
		logger:      logger,
		createFlags: options.Flags,
		fence:       options.Fence,
		isComplete:  fence.Check(options.Fence),
	}

	for kind := backend.PageKind(0); kind < backend.PageKindCount; kind++ {
		err := memutils.CheckPow2(pageSizes[kind], kind.String()+" page size")
		if err != nil {
			return nil, err
		}

		allocatorContext.pageManagers[kind], err = linear.NewPageManager(logger, pages, kind, pageSizes[kind], useMutex)
		if err != nil {
			return nil, err
		}
	}

	for kind := backend.DescriptorKind(0); kind < backend.DescriptorKindCount; kind++ {
		var err error
		allocatorContext.heapPools[kind], err = descriptor.NewHeapPool(logger, descriptors, kind, heapCapacity, useMutex)
		if err != nil {
			return nil, err
		}
	}

	return allocatorContext, nil
}
