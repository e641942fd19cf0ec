package port

// StatStore tracks the last published value per stat key. Implementations
// need not be safe for concurrent use, the publisher actor serializes all
// access.
type StatStore interface {
	// Update stores value under key and reports whether it differed from
	// the previously stored value.
	Update(key, value string) bool
	Last(key string) (string, bool)
	Len() int
	// Compact rebuilds internal storage during periodic maintenance.
	Compact()
}
