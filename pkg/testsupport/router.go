package testsupport

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-rpc-query/procedure"
)

// User is the record served by the demo procedure tree.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Post is the record served by the posts namespace of the demo tree.
type Post struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	AuthorID int    `json:"authorId"`
}

// CreateUserInput is the input of createUser.
type CreateUserInput struct {
	Name string `json:"name"`
}

// UpdateNameInput is the input of updateName.
type UpdateNameInput struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CreatePostInput is the input of posts.create.
type CreatePostInput struct {
	Title    string `json:"title"`
	AuthorID int    `json:"authorId"`
}

// EchoInput is the input and output of nested.deep.echo.
type EchoInput struct {
	Text string `json:"text"`
}

// NestedMessage is returned by the nested namespace.
type NestedMessage struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

// Store backs the demo procedure tree and counts procedure calls.
type Store struct {
	mu     sync.Mutex
	users  map[int]User
	posts  map[int]Post
	nextID int
	calls  map[string]int
}

// NewStore returns a store seeded with the demo users.
func NewStore() *Store {
	return NewStoreWithUsers(
		User{ID: 1, Name: "Alice Johnson"},
		User{ID: 2, Name: "Bob Smith"},
		User{ID: 3, Name: "Charlie Brown"},
	)
}

// NewStoreWithUsers returns a store seeded with users. New users get ids
// after the highest seeded one.
func NewStoreWithUsers(users ...User) *Store {
	s := &Store{
		users: make(map[int]User, len(users)),
		posts: map[int]Post{
			1: {ID: 1, Title: "Hello World", AuthorID: 1},
		},
		nextID: 1,
		calls:  make(map[string]int),
	}
	for _, u := range users {
		s.users[u.ID] = u
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return s
}

// Calls returns how many times the procedure at path ran.
func (s *Store) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *Store) record(path string) {
	s.mu.Lock()
	s.calls[path]++
	s.mu.Unlock()
}

// User returns the stored user with id.
func (s *Store) User(id int) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// Router builds the demo procedure tree:
//
//	getUserById, listUsers, createUser, updateName
//	nested.getMessage, nested.deep.getVeryNestedMessage, nested.deep.echo
//	posts.getById, posts.create
func (s *Store) Router() *procedure.Router {
	deep := procedure.NewRouter().
		Procedure("getVeryNestedMessage", procedure.Query(func(ctx context.Context, _ struct{}) (NestedMessage, error) {
			s.record("nested.deep.getVeryNestedMessage")
			return NestedMessage{Message: "Hello from very nested route", Level: "deep"}, nil
		})).
		Procedure("echo", procedure.Query(func(ctx context.Context, in EchoInput) (EchoInput, error) {
			s.record("nested.deep.echo")
			return in, nil
		}))

	nested := procedure.NewRouter().
		Procedure("getMessage", procedure.Query(func(ctx context.Context, _ struct{}) (NestedMessage, error) {
			s.record("nested.getMessage")
			return NestedMessage{Message: "Hello from nested route", Level: "nested"}, nil
		})).
		Namespace("deep", deep)

	posts := procedure.NewRouter().
		Procedure("getById", procedure.Query(s.getPost)).
		Procedure("create", procedure.Mutation(s.createPost))

	return procedure.NewRouter().
		Procedure("getUserById", procedure.Query(s.getUserByID)).
		Procedure("listUsers", procedure.Query(s.listUsers)).
		Procedure("createUser", procedure.Mutation(s.createUser)).
		Procedure("updateName", procedure.Mutation(s.updateName)).
		Namespace("nested", nested).
		Namespace("posts", posts)
}

func (s *Store) getUserByID(ctx context.Context, id int) (User, error) {
	s.record("getUserById")
	u, ok := s.User(id)
	if !ok {
		return User{}, procedure.Errorf(procedure.CodeNotFound, "User with id %d not found", id)
	}
	return u, nil
}

func (s *Store) listUsers(ctx context.Context, _ struct{}) ([]User, error) {
	s.record("listUsers")
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Store) createUser(ctx context.Context, in CreateUserInput) (User, error) {
	s.record("createUser")
	if in.Name == "" {
		return User{}, procedure.NewError(procedure.CodeBadRequest, "name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := User{ID: s.nextID, Name: in.Name}
	s.users[u.ID] = u
	s.nextID++
	return u, nil
}

func (s *Store) updateName(ctx context.Context, in UpdateNameInput) (User, error) {
	s.record("updateName")
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[in.ID]
	if !ok {
		return User{}, procedure.Errorf(procedure.CodeNotFound, "User with id %d not found", in.ID)
	}
	u.Name = in.Name
	s.users[in.ID] = u
	return u, nil
}

func (s *Store) getPost(ctx context.Context, id int) (Post, error) {
	s.record("posts.getById")
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, procedure.Errorf(procedure.CodeNotFound, "Post with id %d not found", id)
	}
	return p, nil
}

func (s *Store) createPost(ctx context.Context, in CreatePostInput) (Post, error) {
	s.record("posts.create")
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Post{ID: len(s.posts) + 1, Title: in.Title, AuthorID: in.AuthorID}
	s.posts[p.ID] = p
	return p, nil
}
