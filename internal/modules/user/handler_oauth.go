package user

import (
	"context"
	"net/http"

	"github.com/delordemm1/go-identity-core/internal/contextx"
	"github.com/delordemm1/go-identity-core/internal/httpx"
)

type OAuthLoginRequest struct {
	Provider string `path:"provider" enum:"google"`
}

// OAuthRedirectResponse sends the browser to the provider.
type OAuthRedirectResponse struct {
	Status   int
	Location string `header:"Location"`
}

type OAuthCallbackRequest struct {
	Provider  string `path:"provider" enum:"google"`
	State     string `query:"state" required:"true"`
	Code      string `query:"code" required:"true"`
	UserAgent string `header:"User-Agent"`
}

func (h *Handler) OAuthLoginHandler(ctx context.Context, input *OAuthLoginRequest) (*OAuthRedirectResponse, error) {
	url, err := h.service.InitiateOAuthLogin(ctx, OAuthProvider(input.Provider))
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &OAuthRedirectResponse{Status: http.StatusFound, Location: url}, nil
}

func (h *Handler) OAuthCallbackHandler(ctx context.Context, input *OAuthCallbackRequest) (*TokenPairResponse, error) {
	res, err := h.service.HandleOAuthCallback(ctx, OAuthCallbackInput{
		Provider:   OAuthProvider(input.Provider),
		State:      input.State,
		Code:       input.Code,
		DeviceInfo: input.UserAgent,
		IPAddress:  contextx.String(ctx, contextx.ClientIPKey),
	})
	if err != nil {
		h.logger.Warn("oauth callback failed", "provider", input.Provider, "error", err)
		return nil, httpx.ToProblem(ctx, err)
	}
	return toTokenPairResponse(res), nil
}
