package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

func newDispatcher(t *testing.T) (*jsonrpc.Dispatcher, *Calculator, *UserStore) {
	t.Helper()
	calc := NewCalculator(log.New(&bytes.Buffer{}, "", 0))
	users := NewUserStore()
	reg := jsonrpc.NewRegistry()
	calc.Register(reg)
	users.Register(reg)
	return jsonrpc.NewDispatcher(reg), calc, users
}

// roundTrip runs a JSON payload through the dispatcher and returns the
// decoded JSON reply, or nil when there is nothing to send.
func roundTrip(t *testing.T, d *jsonrpc.Dispatcher, payload string) any {
	t.Helper()
	reply := d.HandleBytes(context.Background(), jsonrpc.JSONCodec{}, []byte(payload))
	if reply.NoContent() {
		return nil
	}
	var buf bytes.Buffer
	if err := (jsonrpc.JSONCodec{}).Encode(&buf, reply.Wire()); err != nil {
		t.Fatal(err)
	}
	var out any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestCalculator(t *testing.T) {
	d, _, _ := newDispatcher(t)
	tests := []struct {
		name    string
		payload string
		want    any
	}{
		{"add", `{"jsonrpc":"2.0","method":"add","params":[5,3],"id":1}`,
			map[string]any{"jsonrpc": "2.0", "result": 8.0, "id": 1.0}},
		{"subtract named", `{"jsonrpc":"2.0","method":"subtract","params":{"a":10,"b":4},"id":2}`,
			map[string]any{"jsonrpc": "2.0", "result": 6.0, "id": 2.0}},
		{"multiply", `{"jsonrpc":"2.0","method":"multiply","params":[2.5,4],"id":3}`,
			map[string]any{"jsonrpc": "2.0", "result": 10.0, "id": 3.0}},
		{"divide", `{"jsonrpc":"2.0","method":"divide","params":[10,4],"id":4}`,
			map[string]any{"jsonrpc": "2.0", "result": 2.5, "id": 4.0}},
		{"divide by zero", `{"jsonrpc":"2.0","method":"divide","params":[10,0],"id":5}`,
			map[string]any{"jsonrpc": "2.0", "error": map[string]any{"code": -32000.0, "message": "Division by zero"}, "id": 5.0}},
		{"greet", `{"jsonrpc":"2.0","method":"greet","params":{"name":"Lovelace","title":"Countess"},"id":6}`,
			map[string]any{"jsonrpc": "2.0", "result": "Hello, Countess Lovelace!", "id": 6.0}},
		{"greet untitled", `{"jsonrpc":"2.0","method":"greet","params":{"name":"Ada"},"id":7}`,
			map[string]any{"jsonrpc": "2.0", "result": "Hello, Ada!", "id": 7.0}},
		{"add wrong arity", `{"jsonrpc":"2.0","method":"add","params":[1],"id":8}`,
			nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, d, tt.payload)
			if tt.want == nil {
				resp := got.(map[string]any)
				e, _ := resp["error"].(map[string]any)
				if e["code"] != float64(jsonrpc.CodeInvalidParams) {
					t.Errorf("got %v, want invalid params", got)
				}
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGreet_InvalidParams(t *testing.T) {
	d, _, _ := newDispatcher(t)
	for _, payload := range []string{
		`{"jsonrpc":"2.0","method":"greet","params":{"name":""},"id":1}`,
		`{"jsonrpc":"2.0","method":"greet","params":{"title":"Dr"},"id":1}`,
		`{"jsonrpc":"2.0","method":"greet","params":["Ada"],"id":1}`,
	} {
		resp := roundTrip(t, d, payload).(map[string]any)
		e, _ := resp["error"].(map[string]any)
		if e["code"] != float64(jsonrpc.CodeInvalidParams) {
			t.Errorf("%s: got %v, want invalid params", payload, resp)
		}
	}
}

func TestCalculatorProfile(t *testing.T) {
	calc := NewCalculator(nil)
	reg := jsonrpc.NewRegistry()
	calc.Register(reg)
	d := jsonrpc.NewDispatcher(reg)

	got := roundTrip(t, d, `{"jsonrpc":"2.0","method":"getUser","params":123,"id":1}`)
	want := map[string]any{"jsonrpc": "2.0", "id": 1.0, "result": map[string]any{
		"id": 123.0, "username": "alice", "email": "alice@example.com",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	got = roundTrip(t, d, `{"jsonrpc":"2.0","method":"getUser","params":[7],"id":2}`)
	e := got.(map[string]any)["error"].(map[string]any)
	if e["code"] != float64(CodeProfileMissing) || e["message"] != "User not found" {
		t.Errorf("got %v, want -32003 User not found", e)
	}
}

func TestLogEvent(t *testing.T) {
	var logBuf bytes.Buffer
	calc := NewCalculator(log.New(&logBuf, "", 0))
	reg := jsonrpc.NewRegistry()
	calc.Register(reg)
	d := jsonrpc.NewDispatcher(reg)

	if got := roundTrip(t, d, `{"jsonrpc":"2.0","method":"logEvent","params":{"event":"login","user":"alice"}}`); got != nil {
		t.Fatalf("got %v, want no response for a notification", got)
	}
	want := []Event{{Name: "login", Fields: map[string]any{"user": "alice"}}}
	if diff := cmp.Diff(want, calc.Events()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if logBuf.Len() == 0 {
		t.Error("event not logged")
	}

	// Missing event names fail silently for notifications.
	roundTrip(t, d, `{"jsonrpc":"2.0","method":"logEvent","params":{"user":"bob"}}`)
	if n := len(calc.Events()); n != 1 {
		t.Errorf("got %d events, want 1", n)
	}
}

func TestUserStore_Batch(t *testing.T) {
	d, _, _ := newDispatcher(t)
	got := roundTrip(t, d, `[
		{"jsonrpc":"2.0","method":"getUser","params":1,"id":1},
		{"jsonrpc":"2.0","method":"getUser","params":2,"id":2},
		{"jsonrpc":"2.0","method":"listUsers","params":{"active":true},"id":3}
	]`)
	resps, ok := got.([]any)
	if !ok || len(resps) != 3 {
		t.Fatalf("got %v, want three responses", got)
	}

	byID := make(map[float64]any)
	for _, r := range resps {
		m := r.(map[string]any)
		byID[m["id"].(float64)] = m["result"]
	}
	if u := byID[1].(map[string]any); u["username"] != "alice" {
		t.Errorf("id 1: got %v, want alice", u)
	}
	if u := byID[2].(map[string]any); u["username"] != "bob" {
		t.Errorf("id 2: got %v, want bob", u)
	}
	var names []string
	for _, u := range byID[3].([]any) {
		names = append(names, u.(map[string]any)["username"].(string))
	}
	if diff := cmp.Diff([]string{"alice", "bob"}, names); diff != "" {
		t.Errorf("active users mismatch (-want +got):\n%s", diff)
	}
}

func TestUserStore_Methods(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()

	newEmail := "newalice@example.com"
	u, err := s.UpdateUser(ctx, UpdateUserParams{ID: 1, Updates: UserPatch{Email: &newEmail}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(User{ID: 1, Username: "alice", Email: newEmail, Active: true}, u); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	inactive := false
	list, _ := s.ListUsers(ctx, ListUsersParams{Active: &inactive})
	if len(list) != 1 || list[0].Username != "charlie" {
		t.Errorf("got %v, want only charlie", list)
	}
	all, _ := s.ListUsers(ctx, ListUsersParams{})
	if len(all) != 3 {
		t.Errorf("got %d users, want 3", len(all))
	}

	res, err := s.DeleteUser(ctx, DeleteUserParams{ID: 2})
	if err != nil || !res.Success {
		t.Errorf("got %v, %v; want success", res, err)
	}
	if s.Len() != 2 {
		t.Errorf("got %d users, want 2", s.Len())
	}

	_, err = s.GetUser(ctx, GetUserParams{ID: 2})
	rpcErr, ok := err.(*jsonrpc.JSONRPCError)
	if !ok || rpcErr.Code != CodeUserNotFound || rpcErr.Message != "User not found" {
		t.Errorf("got %v, want -32001 User not found", err)
	}
	if _, err := s.DeleteUser(ctx, DeleteUserParams{ID: 2}); err == nil {
		t.Error("deleting a missing user succeeded")
	}
	if _, err := s.UpdateUser(ctx, UpdateUserParams{ID: 99}); err == nil {
		t.Error("updating a missing user succeeded")
	}
}

func TestUnknownZeroID(t *testing.T) {
	d, _, _ := newDispatcher(t)
	for _, method := range []string{"getUser", "deleteUser", "updateUser"} {
		got := roundTrip(t, d, `{"jsonrpc":"2.0","method":"`+method+`","params":{"id":0},"id":1}`)
		e, _ := got.(map[string]any)["error"].(map[string]any)
		if e["code"] != float64(CodeUserNotFound) {
			t.Errorf("%s(0): got %v, want user not found", method, got)
		}
	}

	calc := NewCalculator(nil)
	reg := jsonrpc.NewRegistry()
	calc.Register(reg)
	got := roundTrip(t, jsonrpc.NewDispatcher(reg), `{"jsonrpc":"2.0","method":"getUser","params":[0],"id":1}`)
	e, _ := got.(map[string]any)["error"].(map[string]any)
	if e["code"] != float64(CodeProfileMissing) {
		t.Errorf("calculator getUser(0): got %v, want profile missing", got)
	}
}

func TestUserStore_UpdateValidation(t *testing.T) {
	d, _, _ := newDispatcher(t)
	got := roundTrip(t, d, `{"jsonrpc":"2.0","method":"updateUser","params":{"id":1,"updates":{"email":"not-an-email"}},"id":1}`)
	e, _ := got.(map[string]any)["error"].(map[string]any)
	if e["code"] != float64(jsonrpc.CodeInvalidParams) {
		t.Errorf("got %v, want invalid params", got)
	}
}

func TestUserStore_ConcurrentBatch(t *testing.T) {
	d, _, users := newDispatcher(t)

	var payload bytes.Buffer
	payload.WriteString("[")
	for i := 0; i < 50; i++ {
		if i > 0 {
			payload.WriteString(",")
		}
		fmt.Fprintf(&payload, `{"jsonrpc":"2.0","method":"updateUser","params":{"id":%d,"updates":{"active":%t}},"id":%d}`, i%3+1, i%2 == 0, i)
		fmt.Fprintf(&payload, `,{"jsonrpc":"2.0","method":"listUsers","id":"l%d"}`, i)
	}
	payload.WriteString("]")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resps := roundTrip(t, d, payload.String()).([]any)
			if len(resps) != 100 {
				t.Errorf("got %d responses, want 100", len(resps))
			}
		}()
	}
	wg.Wait()

	if users.Len() != 3 {
		t.Errorf("got %d users, want 3", users.Len())
	}
}

func TestRegisteredMethods(t *testing.T) {
	reg := jsonrpc.NewRegistry()
	NewCalculator(nil).Register(reg)
	names := NewUserStore().Register(reg)
	sort.Strings(names)
	want := []string{"deleteUser", "getUser", "listUsers", "updateUser"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	// The user store's getUser replaces the calculator's.
	d := jsonrpc.NewDispatcher(reg)
	got := roundTrip(t, d, `{"jsonrpc":"2.0","method":"getUser","params":123,"id":1}`)
	e, _ := got.(map[string]any)["error"].(map[string]any)
	if e["code"] != float64(CodeUserNotFound) {
		t.Errorf("got %v, want the user store's not found error", got)
	}
}
