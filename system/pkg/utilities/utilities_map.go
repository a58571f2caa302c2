package utilities

// Map applies fn to every element of items, keeping order. A nil slice maps
// to nil.
func Map[T any, U any](items []T, fn func(T) U) []U {
	if items == nil {
		return nil
	}
	out := make([]U, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}
