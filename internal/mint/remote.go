package mint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type mintRequest struct {
	AssetName string `json:"asset_name"`
}

type mintResponse struct {
	AssetID string `json:"asset_id"`
}

// Remote asks an external minting service to mint a 1-of-1 asset.
type Remote struct {
	client *resty.Client
	url    string
}

// NewRemote builds a client for the minting service at baseURL.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Remote{client: client, url: strings.TrimRight(baseURL, "/")}
}

func (r *Remote) Mint(ctx context.Context, seed string) (string, error) {
	var out mintResponse
	res, err := r.client.R().
		SetContext(ctx).
		SetBody(mintRequest{AssetName: seed}).
		SetResult(&out).
		Post(r.url + "/mint")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, res.StatusCode())
	}
	if out.AssetID == "" {
		return "", fmt.Errorf("%w: empty asset id", ErrUnavailable)
	}
	return out.AssetID, nil
}
