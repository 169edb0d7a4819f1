package util

// Filter returns the elements matching p without touching the input slice
func Filter[T any](s []T, p func(T) bool) []T {
	filtered := make([]T, 0, len(s))
	for _, e := range s {
		if p(e) {
			filtered = append(filtered, e)
		}
	}

	return filtered
}
