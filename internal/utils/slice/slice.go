package slice

// Check if a string exists in a string slice
func Contains(slice []string, str string) bool {
	for _, item := range slice {
		if item == str {
			return true
		}
	}
	return false
}

// ContainsAny checks if any of the candidates exists in the slice
func ContainsAny(slice []string, candidates []string) bool {
	for _, c := range candidates {
		if Contains(slice, c) {
			return true
		}
	}
	return false
}
