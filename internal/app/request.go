package app

import "fmt"

// maxCreatorDepth bounds creators that keep returning creators.
const maxCreatorDepth = 32

// ActionRequest is what Inject accepts: a Name, a Descriptor or a Creator.
type ActionRequest interface {
	actionRequest()
}

// Name requests an action by name. The payload comes from the Inject call.
type Name string

// Descriptor carries its own payload, which takes precedence over the
// payload passed to Inject.
type Descriptor struct {
	Name    string
	Payload any
}

// Creator builds a request from the app. Returning nil dispatches nothing.
// The returned request is resolved without the payload given to Inject.
type Creator func(a *App) ActionRequest

func (Name) actionRequest()       {}
func (Descriptor) actionRequest() {}
func (Creator) actionRequest()    {}

// resolve turns req into an action name and payload. ok is false when a
// creator declined to produce an action.
func (a *App) resolve(req ActionRequest, payload any) (name string, out any, ok bool, err error) {
	for depth := 0; ; depth++ {
		if depth > maxCreatorDepth {
			return "", nil, false, fmt.Errorf("%w: action creators nested deeper than %d", ErrInvalidArgument, maxCreatorDepth)
		}

		switch r := req.(type) {
		case nil:
			return "", nil, false, fmt.Errorf("%w: nil action request", ErrInvalidArgument)
		case Name:
			if r == "" {
				return "", nil, false, fmt.Errorf("%w: empty action name", ErrInvalidArgument)
			}
			return string(r), payload, true, nil
		case Descriptor:
			return resolveDescriptor(&r)
		case *Descriptor:
			if r == nil {
				return "", nil, false, fmt.Errorf("%w: nil action descriptor", ErrInvalidArgument)
			}
			return resolveDescriptor(r)
		case Creator:
			if r == nil {
				return "", nil, false, fmt.Errorf("%w: nil action creator", ErrInvalidArgument)
			}
			req = r(a)
			if req == nil {
				return "", nil, false, nil
			}
			payload = nil
		default:
			return "", nil, false, fmt.Errorf("%w: unsupported action request %T", ErrInvalidArgument, req)
		}
	}
}

func resolveDescriptor(d *Descriptor) (string, any, bool, error) {
	if d.Name == "" {
		return "", nil, false, fmt.Errorf("%w: action descriptor without name", ErrInvalidArgument)
	}
	return d.Name, d.Payload, true, nil
}
