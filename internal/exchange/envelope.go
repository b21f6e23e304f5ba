package exchange

// BuildEnvelope implements the envelope construction rule from the
// data model: if the raw payload is a map, the envelope is that map
// with "producer" set (overwriting any existing key of that name); if
// the raw payload is a sequence, the envelope is
// {"data": seq, "producer": identity}; anything else yields (nil,
// false) so the caller can log a warning and move on without enqueuing
// anything or treating it as a failure.
func BuildEnvelope(identity string, raw Payload) (map[string]any, bool) {
	switch p := raw.(type) {
	case MapPayload:
		env := make(map[string]any, len(p)+1)
		for k, v := range p {
			env[k] = v
		}
		env["producer"] = identity
		return env, true
	case SeqPayload:
		return map[string]any{
			"data":     p,
			"producer": identity,
		}, true
	default:
		return nil, false
	}
}
