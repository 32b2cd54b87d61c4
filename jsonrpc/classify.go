package jsonrpc

// Kind tags the outcome of classifying one decoded payload.
type Kind int

const (
	// InvalidEnvelope: the value is not a valid request object. Err and ID
	// describe the error response to send.
	InvalidEnvelope Kind = iota
	// ClassifiedSingle: a single valid request or notification in Request.
	ClassifiedSingle
	// ClassifiedBatch: a non-empty batch; Elements holds one classification
	// per element, in input order.
	ClassifiedBatch
	// MalformedBatch: an empty batch. It is rejected as a whole with a single
	// error response.
	MalformedBatch
)

func (k Kind) String() string {
	switch k {
	case ClassifiedSingle:
		return "single"
	case ClassifiedBatch:
		return "batch"
	case MalformedBatch:
		return "malformed-batch"
	}
	return "invalid"
}

// Classification is the result of Classify.
type Classification struct {
	Kind     Kind
	Request  *Request
	Err      *JSONRPCError
	ID       ID
	Elements []Classification
}

// Classify inspects one decoded JSON value and sorts it into a single
// envelope, a batch, an empty batch, or an invalid envelope.
func Classify(v any) Classification {
	if elems, ok := v.([]any); ok {
		if len(elems) == 0 {
			return Classification{
				Kind: MalformedBatch,
				Err:  NewError(CodeInvalidRequest, "Invalid Request: empty batch"),
			}
		}
		out := make([]Classification, len(elems))
		for i, elem := range elems {
			out[i] = classifyEnvelope(elem)
		}
		return Classification{Kind: ClassifiedBatch, Elements: out}
	}
	return classifyEnvelope(v)
}

// classifyEnvelope validates one candidate envelope. Checks run in order:
// object, version, id type, method.
func classifyEnvelope(v any) Classification {
	m, ok := asObject(v)
	if !ok {
		return invalid(NullID(), "Invalid Request")
	}

	// Echo the id in errors when it is usable, else null.
	rawID, hasID := m["id"]
	id, idErr := IDFromValue(rawID)
	echo := id
	if idErr != nil {
		echo = NullID()
	}

	if ver, ok := m["jsonrpc"].(string); !ok || ver != Version {
		return invalid(echo, `Invalid Request: jsonrpc must be "2.0"`)
	}
	if idErr != nil {
		return invalid(NullID(), "Invalid Request: id must be a string, number or null")
	}

	method, ok := m["method"].(string)
	if !ok {
		return invalid(echo, "Invalid Request: method must be a string")
	}

	req := &Request{
		Method: method,
		Params: ParamsFromValue(m["params"]),
	}
	if hasID {
		req.ID = &id
	}
	return Classification{Kind: ClassifiedSingle, Request: req}
}

func invalid(id ID, message string) Classification {
	return Classification{
		Kind: InvalidEnvelope,
		Err:  NewError(CodeInvalidRequest, message),
		ID:   id,
	}
}
