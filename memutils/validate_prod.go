//go:build !debug_mem_utils

package memutils

import "unsafe"

// DebugMargin is 0 outside of debug_mem_utils builds: pages carry no guard bytes
const DebugMargin int = 0

func WriteGuard(data unsafe.Pointer, offset int) {}

func CheckGuard(data unsafe.Pointer, offset int) bool { return true }

func DebugValidate(validatable Validatable) {}
