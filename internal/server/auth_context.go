package server

import "context"

type requesterKey struct{}

// identitySource records how a requester was identified.
type identitySource string

const (
	sourceBearer      identitySource = "bearer"
	sourceProxyHeader identitySource = "proxy_header"
)

// requester is the citizen or staff member behind a request.
type requester struct {
	UserID string
	Source identitySource
}

func withRequester(ctx context.Context, who requester) context.Context {
	return context.WithValue(ctx, requesterKey{}, who)
}

func requesterFrom(ctx context.Context) (requester, bool) {
	who, ok := ctx.Value(requesterKey{}).(requester)
	return who, ok && who.UserID != ""
}
