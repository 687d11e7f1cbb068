package descriptor

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/memutils"
)

// MaxDescriptorTables is the largest number of root parameters a BindingLayout may declare. It
// matches the width of the stale table bitmask.
const MaxDescriptorTables = 32

type RootParameterType uint32

const (
	// RootParameterDescriptorTable is a range of descriptors located in a shader-visible heap
	RootParameterDescriptorTable RootParameterType = iota
	// RootParameterConstants is a block of 32-bit values set directly on the command list
	RootParameterConstants
	// RootParameterDescriptor is a single descriptor set directly on the command list
	RootParameterDescriptor
)

var rootParameterTypeMapping = map[RootParameterType]string{
	RootParameterDescriptorTable: "RootParameterDescriptorTable",
	RootParameterConstants:       "RootParameterConstants",
	RootParameterDescriptor:      "RootParameterDescriptor",
}

func (t RootParameterType) String() string {
	return rootParameterTypeMapping[t]
}

// DescriptorRange is a run of Count descriptors of one kind inside a descriptor table
type DescriptorRange struct {
	Kind  backend.DescriptorKind
	Count int
}

// RootParameter describes a single binding slot of a BindingLayout. Ranges is only consulted
// for descriptor tables, and every range in a table must have the same Kind. ConstantCount is
// only consulted for RootParameterConstants.
type RootParameter struct {
	Type          RootParameterType
	Ranges        []DescriptorRange
	ConstantCount int
}

// ParameterLocation locates a named shader parameter inside a descriptor table
type ParameterLocation struct {
	RootIndex int
	Offset    int
}

// BindingLayout describes the root parameters a pipeline binds. DynamicDescriptorHeap reads
// the descriptor tables of its own kind out of the layout when it is parsed.
type BindingLayout struct {
	parameters []RootParameter
	tableSizes [MaxDescriptorTables]int
	tableMasks [backend.DescriptorKindCount]uint32

	constantCount   int
	descriptorCount int

	names map[string]ParameterLocation
}

func NewBindingLayout() *BindingLayout {
	return &BindingLayout{
		names: make(map[string]ParameterLocation),
	}
}

// AddTable appends a descriptor table holding count descriptors of kind and returns its root
// index
func (l *BindingLayout) AddTable(kind backend.DescriptorKind, count int) (int, error) {
	return l.AddRootParameter(RootParameter{
		Type:   RootParameterDescriptorTable,
		Ranges: []DescriptorRange{{Kind: kind, Count: count}},
	})
}

// AddRootParameter appends param to the layout and returns its root index
func (l *BindingLayout) AddRootParameter(param RootParameter) (int, error) {
	rootIndex := len(l.parameters)
	if rootIndex >= MaxDescriptorTables {
		return -1, errors.Wrapf(ErrCapacityExceeded, "binding layouts may declare at most %d root parameters", MaxDescriptorTables)
	}

	switch param.Type {
	case RootParameterDescriptorTable:
		if len(param.Ranges) == 0 {
			return -1, errors.Newf("descriptor table at root index %d has no ranges", rootIndex)
		}

		kind := param.Ranges[0].Kind
		if kind >= backend.DescriptorKindCount {
			return -1, errors.Newf("descriptor table at root index %d has unknown descriptor kind %d", rootIndex, kind)
		}

		size := 0
		for _, descriptorRange := range param.Ranges {
			if descriptorRange.Kind != kind {
				return -1, errors.Newf("descriptor table at root index %d mixes %s and %s ranges", rootIndex, kind, descriptorRange.Kind)
			}
			if descriptorRange.Count <= 0 {
				return -1, errors.Newf("descriptor table at root index %d has a range of invalid size %d", rootIndex, descriptorRange.Count)
			}
			size += descriptorRange.Count
		}

		l.tableSizes[rootIndex] = size
		l.tableMasks[kind] |= 1 << rootIndex
	case RootParameterConstants:
		if param.ConstantCount <= 0 {
			return -1, errors.Newf("root constants at root index %d have invalid count %d", rootIndex, param.ConstantCount)
		}
		l.constantCount += param.ConstantCount
	case RootParameterDescriptor:
		l.descriptorCount++
	default:
		return -1, errors.Newf("root parameter at root index %d has unknown type %d", rootIndex, param.Type)
	}

	param.Ranges = append([]DescriptorRange(nil), param.Ranges...)
	l.parameters = append(l.parameters, param)
	return rootIndex, nil
}

// ParameterCount is the number of root parameters in the layout
func (l *BindingLayout) ParameterCount() int { return len(l.parameters) }

// RootParameter returns the root parameter at rootIndex
func (l *BindingLayout) RootParameter(rootIndex int) RootParameter {
	return l.parameters[rootIndex]
}

// TableMask has one bit set for each root index that is a descriptor table of kind
func (l *BindingLayout) TableMask(kind backend.DescriptorKind) uint32 {
	if kind >= backend.DescriptorKindCount {
		return 0
	}
	return l.tableMasks[kind]
}

// TableSize is the number of descriptors in the table at rootIndex, or 0 if rootIndex is not
// a descriptor table
func (l *BindingLayout) TableSize(rootIndex int) int {
	if rootIndex < 0 || rootIndex >= MaxDescriptorTables {
		return 0
	}
	return l.tableSizes[rootIndex]
}

func (l *BindingLayout) TableCount() int {
	var mask uint32
	for kind := backend.DescriptorKind(0); kind < backend.DescriptorKindCount; kind++ {
		mask |= l.TableMask(kind)
	}
	return memutils.PopCount(mask)
}

func (l *BindingLayout) RootConstantCount() int   { return l.constantCount }
func (l *BindingLayout) RootDescriptorCount() int { return l.descriptorCount }

// SetParameterName records that the shader parameter name lives at offset within the
// descriptor table at rootIndex
func (l *BindingLayout) SetParameterName(name string, rootIndex int, offset int) error {
	size := l.TableSize(rootIndex)
	if size == 0 {
		return errors.Newf("cannot name parameter %q: root index %d is not a descriptor table", name, rootIndex)
	}
	if offset < 0 || offset >= size {
		return errors.Wrapf(ErrTableOverflow, "cannot name parameter %q: offset %d is outside of the %d descriptors at root index %d", name, offset, size, rootIndex)
	}

	l.names[name] = ParameterLocation{RootIndex: rootIndex, Offset: offset}
	return nil
}

// Parameter looks up the location of a named shader parameter
func (l *BindingLayout) Parameter(name string) (ParameterLocation, bool) {
	location, ok := l.names[name]
	return location, ok
}
