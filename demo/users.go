package demo

import (
	"context"
	"sort"
	"sync"

	"github.com/mnehpets/rpcserve/jsonrpc"
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Active   bool   `json:"active"`
}

// UserStore is an in-memory user table. Handlers run concurrently within a
// batch, so every method takes the lock.
type UserStore struct {
	mu    sync.RWMutex
	users map[int]*User
}

// NewUserStore returns a store seeded with alice, bob and charlie.
func NewUserStore() *UserStore {
	s := &UserStore{users: make(map[int]*User)}
	for _, u := range []User{
		{ID: 1, Username: "alice", Email: "alice@example.com", Active: true},
		{ID: 2, Username: "bob", Email: "bob@example.com", Active: true},
		{ID: 3, Username: "charlie", Email: "charlie@example.com", Active: false},
	} {
		u := u
		s.users[u.ID] = &u
	}
	return s
}

// Register adds getUser, updateUser, listUsers and deleteUser to reg.
func (s *UserStore) Register(reg *jsonrpc.Registry) []string {
	return reg.RegisterService("", s)
}

func userNotFound(id int) error {
	return jsonrpc.NewErrorWithData(CodeUserNotFound, "User not found", id)
}

type GetUserParams struct {
	_  struct{} `jsonrpc:"getUser"`
	ID int      `json:"id"`
}

func (s *UserStore) GetUser(_ context.Context, p GetUserParams) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[p.ID]
	if !ok {
		return User{}, userNotFound(p.ID)
	}
	return *u, nil
}

// UserPatch lists the fields updateUser may change. Nil fields are kept.
type UserPatch struct {
	Username *string `json:"username" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Active   *bool   `json:"active"`
}

type UpdateUserParams struct {
	_       struct{}  `jsonrpc:"updateUser"`
	ID      int       `json:"id"`
	Updates UserPatch `json:"updates"`
}

func (s *UserStore) UpdateUser(_ context.Context, p UpdateUserParams) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[p.ID]
	if !ok {
		return User{}, userNotFound(p.ID)
	}
	if p.Updates.Username != nil {
		u.Username = *p.Updates.Username
	}
	if p.Updates.Email != nil {
		u.Email = *p.Updates.Email
	}
	if p.Updates.Active != nil {
		u.Active = *p.Updates.Active
	}
	return *u, nil
}

type ListUsersParams struct {
	_      struct{} `jsonrpc:"listUsers"`
	Active *bool    `json:"active"`
}

// ListUsers returns users ordered by id, optionally only those whose active
// flag matches.
func (s *UserStore) ListUsers(_ context.Context, p ListUsersParams) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if p.Active != nil && u.Active != *p.Active {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type DeleteUserParams struct {
	_  struct{} `jsonrpc:"deleteUser"`
	ID int      `json:"id"`
}

type DeleteResult struct {
	Success bool `json:"success"`
}

func (s *UserStore) DeleteUser(_ context.Context, p DeleteUserParams) (DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.ID]; !ok {
		return DeleteResult{}, userNotFound(p.ID)
	}
	delete(s.users, p.ID)
	return DeleteResult{Success: true}, nil
}

// Len returns the number of users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
