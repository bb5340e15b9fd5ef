package gate

import "context"

// Policy decides whether user may act on a specific resource instance.
// U is the user/subject type (e.g., uint for userID).
type Policy[U any] interface {
	// Can returns true if user is authorized to perform action on resource.
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}
