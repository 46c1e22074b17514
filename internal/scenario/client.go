package scenario

import (
	"context"
	"net/http"
)

// Request is what a task hands to the client. Name groups requests for stats
// (e.g. "/products/[id]"); when empty the path is used.
type Request struct {
	Method string
	Path   string
	Name   string
	JSON   any
}

// Client is the HTTP capability a user owns. Implementations report the
// outcome themselves; tasks ignore it.
type Client interface {
	Do(ctx context.Context, req Request)
}

func Get(path, name string) Request {
	return Request{Method: http.MethodGet, Path: path, Name: name}
}

func Post(path, name string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, Name: name, JSON: body}
}
