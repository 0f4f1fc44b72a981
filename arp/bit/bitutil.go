package bit

import "math/bits"

// IsSet16 checks if the bit at the specified index of a 16 bit mask is set.
// Indexes past bit 15 are never set.
func IsSet16(index uint8, value uint16) bool {
	if index > 15 {
		return false
	}
	return ((value >> index) & 1) == 1
}

// Set16 returns the mask with the bit at the specified index set to 1.
func Set16(index uint8, value uint16) uint16 {
	if index > 15 {
		return value
	}
	return value | (1 << index)
}

// Toggle16 flips the bit at the specified index.
func Toggle16(index uint8, value uint16) uint16 {
	if index > 15 {
		return value
	}
	return value ^ (1 << index)
}

// Count16 returns the number of set bits.
func Count16(value uint16) int {
	return bits.OnesCount16(value)
}

// Rotate16 shifts a single-bit mask one position left, wrapping back to bit 0
// once it would move past the last of size bits.
// Example: Rotate16(0b1000, 4) -> 0b0001
func Rotate16(mask uint16, size uint8) uint16 {
	if size == 0 || size > 16 {
		size = 16
	}
	next := uint32(mask) << 1
	if next >= 1<<size || next == 0 {
		return 1
	}
	return uint16(next)
}
