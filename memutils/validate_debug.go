//go:build debug_mem_utils

package memutils

import "unsafe"

// DebugMargin is the number of guard bytes placed after every suballocation of a page
const DebugMargin int = 16

// WriteGuard fills the DebugMargin bytes at data+offset with a recognizable pattern
func WriteGuard(data unsafe.Pointer, offset int) {
	guard := guardBytes(data, offset)
	for i := range guard {
		guard[i] = guardPattern
	}
}

// CheckGuard reports whether the bytes written by WriteGuard at data+offset are intact
func CheckGuard(data unsafe.Pointer, offset int) bool {
	for _, b := range guardBytes(data, offset) {
		if b != guardPattern {
			return false
		}
	}

	return true
}

// DebugValidate panics if validatable reports an error
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}
