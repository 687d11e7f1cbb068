package descriptor

//go:generate mockgen -source recorder.go -destination ./mocks/recorder.go -package mocks

import "github.com/vkngwrapper/transient/backend"

// Recorder is the command list that committed descriptor tables are bound on
type Recorder interface {
	SetDescriptorHeap(kind backend.DescriptorKind, heap backend.DescriptorHeap)
	SetGraphicsRootDescriptorTable(rootIndex int, handle backend.GPUHandle)
	SetComputeRootDescriptorTable(rootIndex int, handle backend.GPUHandle)
}

// BindFunc binds the committed table at rootIndex, which begins at handle, on recorder
type BindFunc func(recorder Recorder, rootIndex int, handle backend.GPUHandle)

// BindGraphics binds committed tables for draws
func BindGraphics(recorder Recorder, rootIndex int, handle backend.GPUHandle) {
	recorder.SetGraphicsRootDescriptorTable(rootIndex, handle)
}

// BindCompute binds committed tables for dispatches
func BindCompute(recorder Recorder, rootIndex int, handle backend.GPUHandle) {
	recorder.SetComputeRootDescriptorTable(rootIndex, handle)
}
