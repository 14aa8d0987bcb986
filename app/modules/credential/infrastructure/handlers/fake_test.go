package credentialhandlers

import (
	"context"

	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
)

type FakeService struct {
	AuthorizeURLFunc          func(ctx context.Context) (string, error)
	CompleteAuthorizationFunc func(ctx context.Context, state, code string) (*credentialdb.Credential, error)
}

func (f *FakeService) AuthorizeURL(ctx context.Context) (string, error) {
	if f.AuthorizeURLFunc != nil {
		return f.AuthorizeURLFunc(ctx)
	}
	return "", nil
}

func (f *FakeService) CompleteAuthorization(ctx context.Context, state, code string) (*credentialdb.Credential, error) {
	if f.CompleteAuthorizationFunc != nil {
		return f.CompleteAuthorizationFunc(ctx, state, code)
	}
	return nil, nil
}
