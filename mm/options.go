package mm

// Options configures optional hardening behavior not mandated by the
// core allocator semantics. The zero value matches the documented
// default: no extra validation.
type Options struct {
	// Hardened enables pointer-plausibility and double-free checks in
	// Free, at the cost of an extra bounds check and header read per
	// call. spec.md §4.5 calls this out explicitly as an optional
	// hardening path rather than a mandated one.
	Hardened bool
}
