package cancellation

func ThrottledLen(r *Registry) int {
	return r.throttledLen()
}
