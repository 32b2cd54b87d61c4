package jsonrpc

import (
	"encoding/json"
	"testing"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	v, err := JSONCodec{}.Decode([]byte(s))
	if err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return v
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantKind Kind
		wantCode int
		wantID   ID
	}{
		{"request", `{"jsonrpc":"2.0","method":"m","id":1}`, ClassifiedSingle, 0, NullID()},
		{"notification", `{"jsonrpc":"2.0","method":"m"}`, ClassifiedSingle, 0, NullID()},
		{"batch", `[{"jsonrpc":"2.0","method":"m"}]`, ClassifiedBatch, 0, NullID()},
		{"empty batch", `[]`, MalformedBatch, CodeInvalidRequest, NullID()},
		{"not an object", `"hello"`, InvalidEnvelope, CodeInvalidRequest, NullID()},
		{"wrong version", `{"jsonrpc":"1.0","method":"m","id":"a"}`, InvalidEnvelope, CodeInvalidRequest, StringID("a")},
		{"numeric version", `{"jsonrpc":2.0,"method":"m","id":3}`, InvalidEnvelope, CodeInvalidRequest, NumberID(3)},
		{"object id", `{"jsonrpc":"2.0","method":"m","id":{}}`, InvalidEnvelope, CodeInvalidRequest, NullID()},
		{"bool id", `{"jsonrpc":"2.0","method":"m","id":true}`, InvalidEnvelope, CodeInvalidRequest, NullID()},
		{"missing method", `{"jsonrpc":"2.0","id":4}`, InvalidEnvelope, CodeInvalidRequest, NumberID(4)},
		{"numeric method", `{"jsonrpc":"2.0","method":1,"id":5}`, InvalidEnvelope, CodeInvalidRequest, NumberID(5)},
		// An empty name is still a string; lookup reports it as not found.
		{"empty method", `{"jsonrpc":"2.0","method":"","id":6}`, ClassifiedSingle, 0, NullID()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(decodeJSON(t, tt.in))
			if c.Kind != tt.wantKind {
				t.Fatalf("got kind %s, want %s", c.Kind, tt.wantKind)
			}
			if tt.wantCode == 0 {
				if c.Err != nil {
					t.Errorf("got error %v, want none", c.Err)
				}
				return
			}
			if c.Err == nil || c.Err.Code != tt.wantCode {
				t.Errorf("got error %v, want code %d", c.Err, tt.wantCode)
			}
			if c.ID != tt.wantID {
				t.Errorf("got id %s, want %s", c.ID, tt.wantID)
			}
		})
	}
}

func TestClassify_RequestFields(t *testing.T) {
	c := Classify(decodeJSON(t, `{"jsonrpc":"2.0","method":"m","params":[1,"a"],"id":null}`))
	if c.Kind != ClassifiedSingle {
		t.Fatalf("got kind %s, want single", c.Kind)
	}
	// An explicit null id is a request, not a notification.
	if c.Request.IsNotification() {
		t.Error("request with null id classified as notification")
	}
	if !c.Request.ID.IsNull() {
		t.Errorf("got id %s, want null", *c.Request.ID)
	}
	args, ok := c.Request.Params.Positional()
	if !ok || len(args) != 2 || args[0] != json.Number("1") || args[1] != "a" {
		t.Errorf("got params %#v", c.Request.Params)
	}

	c = Classify(decodeJSON(t, `{"jsonrpc":"2.0","method":"m","params":null,"id":1}`))
	if !c.Request.Params.IsAbsent() {
		t.Errorf("null params should be absent, got %#v", c.Request.Params)
	}
}

func TestClassify_BatchElementsKeepOrder(t *testing.T) {
	c := Classify(decodeJSON(t, `[{"jsonrpc":"2.0","method":"a","id":1}, 7, {"jsonrpc":"2.0","method":"b"}]`))
	if c.Kind != ClassifiedBatch || len(c.Elements) != 3 {
		t.Fatalf("got %+v, want a batch of three", c)
	}
	kinds := []Kind{c.Elements[0].Kind, c.Elements[1].Kind, c.Elements[2].Kind}
	want := []Kind{ClassifiedSingle, InvalidEnvelope, ClassifiedSingle}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("element %d: got %s, want %s", i, kinds[i], want[i])
		}
	}
}
