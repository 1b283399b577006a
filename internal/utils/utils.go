package utils

import "fmt"

// Clamps v into a byte, [0, 255]
func ClampByte(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Absolute value of v saturated at 255
func AbsByte(v int32) uint8 {
	if v < 0 {
		v = -v
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Print a Colored Block in terminal
func ColoredBlock(block string, red int, green int, blue int) string {
	return fmt.Sprintf("\033[48;2;%d;%d;%dm%s\033[0m", red, green, blue, block)
}
