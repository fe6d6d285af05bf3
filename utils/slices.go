package utils

// SliceRemoveAtIndex removes the item at the given index and returns the
// resulting slice.
func SliceRemoveAtIndex[T any](dst []T, index int) []T {
	if index < 0 || index >= len(dst) {
		panic("index out of bounds")
	}

	return append(dst[:index], dst[index+1:]...)
}
