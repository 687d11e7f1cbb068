package memutils

import "unsafe"

// Validatable is anything DebugValidate can check
type Validatable interface {
	Validate() error
}

// guardPattern is repeated across the DebugMargin bytes that follow each allocation in
// CPU-writable pages
const guardPattern byte = 0xA5

func guardBytes(data unsafe.Pointer, offset int) []byte {
	return unsafe.Slice((*byte)(unsafe.Add(data, offset)), DebugMargin)
}
