package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"dispute-analytics/internal/commerce"
)

const (
	disputesCollection = "disputes"
	ordersCollection   = "orders"
	maxPageLimit       = 250
)

// ShopOptions identify one tenant's storefront API.
type ShopOptions struct {
	BaseURL     string
	APIVersion  string
	AuthHeader  string
	AccessToken string
	PageLimit   int
}

// Shop fetches disputes and orders from a storefront admin API.
type Shop struct {
	opts      ShopOptions
	paginator *Paginator
	logger    zerolog.Logger
}

// NewShop constructs a commerce source for one tenant.
func NewShop(opts ShopOptions, paginator *Paginator, logger zerolog.Logger) *Shop {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.APIVersion == "" {
		opts.APIVersion = "2024-07"
	}
	if opts.AuthHeader == "" {
		opts.AuthHeader = "X-Shopify-Access-Token"
	}
	if opts.PageLimit <= 0 || opts.PageLimit > maxPageLimit {
		opts.PageLimit = maxPageLimit
	}
	return &Shop{
		opts:      opts,
		paginator: paginator,
		logger:    logger.With().Str("component", "shop_fetcher").Logger(),
	}
}

// FetchDisputes returns every dispute visible to the tenant.
func (s *Shop) FetchDisputes(ctx context.Context) ([]commerce.Dispute, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(s.opts.PageLimit))
	endpoint := s.endpoint("shopify_payments/disputes.json", query)

	disputes, err := Collect[commerce.Dispute](ctx, s.paginator, endpoint, s.header(), disputesCollection)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("count", len(disputes)).Msg("disputes fetched")
	return disputes, nil
}

// FetchOrders returns the lite projection of every order visible to the tenant.
func (s *Shop) FetchOrders(ctx context.Context) ([]commerce.Order, error) {
	query := url.Values{}
	query.Set("status", "any")
	query.Set("limit", strconv.Itoa(s.opts.PageLimit))
	query.Set("fields", commerce.OrderFields)
	endpoint := s.endpoint("orders.json", query)

	orders, err := Collect[commerce.Order](ctx, s.paginator, endpoint, s.header(), ordersCollection)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("count", len(orders)).Msg("orders fetched")
	return orders, nil
}

func (s *Shop) endpoint(resource string, query url.Values) string {
	return s.opts.BaseURL + "/admin/api/" + s.opts.APIVersion + "/" + resource + "?" + query.Encode()
}

func (s *Shop) header() http.Header {
	h := http.Header{}
	if s.opts.AccessToken != "" {
		h.Set(s.opts.AuthHeader, s.opts.AccessToken)
	}
	return h
}

var _ CommerceSource = (*Shop)(nil)
