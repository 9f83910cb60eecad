package utils

// SafeIntToUint64 converts v to uint64, clamping negatives to 0.
func SafeIntToUint64(v int) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
