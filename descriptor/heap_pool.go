package descriptor

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/fence"
	"github.com/vkngwrapper/transient/internal/utils"
	"golang.org/x/exp/slog"
)

// DefaultHeapCapacity is the number of descriptors in each shader-visible heap when the consumer
// does not ask for something else
const DefaultHeapCapacity = 2048

type pooledHeap struct {
	heap  backend.DescriptorHeap
	fence fence.Value
	// retired is true while the heap waits in the pool
	retired bool
}

// HeapPool hands out shader-visible descriptor heaps of a single kind to every
// DynamicDescriptorHeap of that kind. Heaps are returned with the fence of the work that
// referenced them and are only handed out again once that fence has completed.
type HeapPool struct {
	logger   *slog.Logger
	device   backend.DescriptorDevice
	kind     backend.DescriptorKind
	capacity int

	mutex utils.OptionalMutex
	// heaps maps the CPU start handle of every heap this pool has created
	heaps   *swiss.Map[backend.CPUHandle, *pooledHeap]
	retired []*pooledHeap
}

func NewHeapPool(logger *slog.Logger, device backend.DescriptorDevice, kind backend.DescriptorKind, capacity int, useMutex bool) (*HeapPool, error) {
	if device == nil {
		return nil, errors.New("attempted to create a descriptor heap pool without a descriptor device")
	}
	if kind >= backend.DescriptorKindCount {
		return nil, errors.Newf("attempted to create a descriptor heap pool of unknown kind %d", kind)
	}
	if capacity <= 0 {
		return nil, errors.Newf("attempted to create a descriptor heap pool with invalid capacity %d", capacity)
	}

	return &HeapPool{
		logger:   logger,
		device:   device,
		kind:     kind,
		capacity: capacity,
		mutex:    utils.OptionalMutex{UseMutex: useMutex},
		heaps:    swiss.NewMap[backend.CPUHandle, *pooledHeap](8),
	}, nil
}

func (p *HeapPool) Kind() backend.DescriptorKind { return p.kind }

// Capacity is the number of descriptors in every heap the pool hands out
func (p *HeapPool) Capacity() int { return p.capacity }

// IncrementSize is the handle distance between adjacent descriptors in the pool's heaps
func (p *HeapPool) IncrementSize() int { return p.device.DescriptorIncrementSize(p.kind) }

func (p *HeapPool) copyDescriptors(dst backend.CPUHandle, src []backend.CPUHandle) {
	p.device.CopyDescriptors(p.kind, dst, src)
}

// RequestDescriptorHeap hands out the oldest retired heap whose fence isComplete reports as
// finished, or creates a new heap if there is none. It never waits on the GPU.
func (p *HeapPool) RequestDescriptorHeap(isComplete fence.Predicate) (backend.DescriptorHeap, error) {
	p.logger.Debug("HeapPool::RequestDescriptorHeap")

	p.mutex.Lock()
	for i, entry := range p.retired {
		if !isComplete.Complete(entry.fence) {
			continue
		}

		copy(p.retired[i:], p.retired[i+1:])
		p.retired[len(p.retired)-1] = nil
		p.retired = p.retired[:len(p.retired)-1]
		entry.retired = false
		p.mutex.Unlock()

		return entry.heap, nil
	}
	p.mutex.Unlock()

	heap, err := p.device.CreateDescriptorHeap(p.kind, p.capacity)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create a %s heap of capacity %d", p.kind, p.capacity)
	}
	if heap.Capacity() < p.capacity {
		return nil, errors.CombineErrors(
			errors.AssertionFailedf("backend created a %s heap of capacity %d when %d was requested", p.kind, heap.Capacity(), p.capacity),
			heap.Release(),
		)
	}

	p.mutex.Lock()
	p.heaps.Put(heap.CPUStart(), &pooledHeap{heap: heap})
	count := p.heaps.Count()
	p.mutex.Unlock()

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "created descriptor heap",
		slog.String("kind", p.kind.String()),
		slog.Int("capacity", p.capacity),
		slog.Int("heapCount", count),
	)

	return heap, nil
}

// DiscardDescriptorHeap returns heap to the pool. It will not be handed out again until
// fenceValue is complete.
func (p *HeapPool) DiscardDescriptorHeap(heap backend.DescriptorHeap, fenceValue fence.Value) error {
	p.logger.Debug("HeapPool::DiscardDescriptorHeap")

	if heap == nil {
		return errors.New("attempted to discard a nil descriptor heap")
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	entry, ok := p.heaps.Get(heap.CPUStart())
	if !ok || entry.heap != heap {
		return errors.AssertionFailedf("attempted to discard a %s heap that does not belong to this pool", p.kind)
	}
	if entry.retired {
		return errors.AssertionFailedf("attempted to discard a %s heap that has already been discarded", p.kind)
	}

	entry.retired = true
	entry.fence = fenceValue
	p.retired = append(p.retired, entry)
	return nil
}

// HeapCount is the number of heaps this pool has created and not destroyed
func (p *HeapPool) HeapCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.heaps.Count()
}

// RetiredHeapCount is the number of heaps waiting in the pool
func (p *HeapPool) RetiredHeapCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return len(p.retired)
}

// Destroy releases every heap the pool holds. Heaps still owned by a DynamicDescriptorHeap
// are reported as an error. It must only be called once no GPU work referencing the pool's
// heaps can be outstanding.
func (p *HeapPool) Destroy() error {
	p.logger.Debug("HeapPool::Destroy")

	p.mutex.Lock()
	var toRelease []backend.DescriptorHeap
	outstanding := 0
	p.heaps.Iter(func(start backend.CPUHandle, entry *pooledHeap) bool {
		if entry.retired {
			toRelease = append(toRelease, entry.heap)
			return false
		}

		outstanding++
		p.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED DESCRIPTOR HEAP] heap still owned by a dynamic descriptor heap",
			slog.String("kind", p.kind.String()),
			slog.Uint64("cpuStart", uint64(start)),
		)
		return false
	})
	for _, heap := range toRelease {
		p.heaps.Delete(heap.CPUStart())
	}
	p.retired = nil
	p.mutex.Unlock()

	var err error
	for _, heap := range toRelease {
		err = errors.CombineErrors(err, heap.Release())
	}

	if outstanding > 0 {
		err = errors.CombineErrors(err, errors.Newf("%d %s heaps were still in use when the pool was destroyed", outstanding, p.kind))
	}

	return err
}

// PrintDetailedMap writes a JSON object describing the pool
func (p *HeapPool) PrintDetailedMap(writer *jwriter.Writer) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	objState := writer.Object()
	defer objState.End()

	objState.Name("Kind").String(p.kind.String())
	objState.Name("Capacity").Int(p.capacity)
	objState.Name("Heaps").Int(p.heaps.Count())
	objState.Name("RetiredHeaps").Int(len(p.retired))
}
