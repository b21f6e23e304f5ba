package exchange

// Payload is the raw value a Fetch call returns, modeled as a tagged
// variant: either a keyed map, an ordered sequence, or something else
// entirely (dropped by the producer with a logged warning). This
// mirrors ccxt's stream methods, which return either a dict or a list
// depending on the call.
type Payload interface {
	isPayload()
}

// MapPayload is a keyed payload, e.g. a ticker update.
type MapPayload map[string]any

func (MapPayload) isPayload() {}

// SeqPayload is an ordered payload, e.g. an OHLCV candle tuple.
type SeqPayload []any

func (SeqPayload) isPayload() {}

// OtherPayload wraps any value that is neither a MapPayload nor a
// SeqPayload. Producers drop these after logging a warning; the
// envelope builder never emits one onto the ingress queue.
type OtherPayload struct {
	Value any
}

func (OtherPayload) isPayload() {}

// NewPayload classifies an arbitrary Go value returned by an adapter
// into the Payload variant it belongs to. Exchange adapters are
// expected to return MapPayload/SeqPayload directly, but this helper
// lets a loosely-typed adapter (e.g. one decoding generic JSON) hand
// back map[string]any / []any and have it classified automatically.
func NewPayload(v any) Payload {
	switch t := v.(type) {
	case MapPayload:
		return t
	case SeqPayload:
		return t
	case map[string]any:
		return MapPayload(t)
	case []any:
		return SeqPayload(t)
	default:
		return OtherPayload{Value: v}
	}
}
