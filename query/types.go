package query

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-rpc-query/procedure"
)

// Tag labels cached data for invalidation. A tag with a nil ID matches every
// entry providing a tag of the same Type.
type Tag struct {
	Type string
	ID   any
}

// TagType returns a tag matching every entry of type t.
func TagType(t string) Tag {
	return Tag{Type: t}
}

// TagID returns a tag for one entity of type t.
func TagID(t string, id any) Tag {
	return Tag{Type: t, ID: id}
}

func (t Tag) String() string {
	if t.ID == nil {
		return t.Type
	}
	return fmt.Sprintf("%s:%v", t.Type, t.ID)
}

// covers reports whether invalidating t invalidates an entry providing other.
func (t Tag) covers(other Tag) bool {
	if t.Type != other.Type {
		return false
	}
	if t.ID == nil {
		return true
	}
	return fmt.Sprint(t.ID) == fmt.Sprint(other.ID)
}

// Result is what a base query or an inline query function returns.
// Exactly one of Data or Error is meaningful.
type Result struct {
	Data  any
	Error error
}

// BaseQueryAPI describes the call a base query is serving.
type BaseQueryAPI struct {
	Endpoint     string
	Kind         procedure.Kind
	RequestID    string
	Extra        any
	ExtraOptions map[string]any
}

// BaseQueryFunc performs the actual request for endpoints that do not bring
// their own QueryFn. args is whatever Definition.Query produced.
type BaseQueryFunc func(ctx context.Context, args any, api BaseQueryAPI) Result

// Status is the lifecycle status of a query entry or a mutation.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusPending       Status = "pending"
	StatusFulfilled     Status = "fulfilled"
	StatusRejected      Status = "rejected"
)

// QueryState is a snapshot of one cache entry.
type QueryState struct {
	Endpoint    string
	Args        any
	Status      Status
	Data        any
	Error       error
	RequestID   string
	FulfilledAt time.Time

	IsUninitialized bool
	IsLoading       bool
	IsFetching      bool
	IsSuccess       bool
	IsError         bool
}

// MutationState is a snapshot of one mutation trigger.
type MutationState struct {
	Endpoint  string
	Args      any
	Status    Status
	Data      any
	Error     error
	RequestID string

	IsUninitialized bool
	IsLoading       bool
	IsSuccess       bool
	IsError         bool
}

func newMutationState(endpoint string, args any, status Status, res Result, requestID string) MutationState {
	return MutationState{
		Endpoint:        endpoint,
		Args:            args,
		Status:          status,
		Data:            res.Data,
		Error:           res.Error,
		RequestID:       requestID,
		IsUninitialized: status == StatusUninitialized,
		IsLoading:       status == StatusPending,
		IsSuccess:       status == StatusFulfilled,
		IsError:         status == StatusRejected,
	}
}
