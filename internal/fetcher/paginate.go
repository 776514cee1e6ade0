package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultPageDelay = 1200 * time.Millisecond

// Paginator walks a Link-header paginated collection one page at a time.
type Paginator struct {
	requester *Requester
	pageDelay time.Duration
	logger    zerolog.Logger
}

// NewPaginator builds a paginator. pageDelay is slept between successful pages
// to stay under the upstream's request ceiling.
func NewPaginator(requester *Requester, pageDelay time.Duration, logger zerolog.Logger) *Paginator {
	if pageDelay < 0 {
		pageDelay = defaultPageDelay
	}
	return &Paginator{
		requester: requester,
		pageDelay: pageDelay,
		logger:    logger.With().Str("component", "paginator").Logger(),
	}
}

// FetchAll returns the concatenation, in page order, of the arrays stored under
// key on every page reachable from startURL.
func (p *Paginator) FetchAll(ctx context.Context, startURL string, header http.Header, key string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	pages := 0

	for next := startURL; next != ""; {
		resp, err := p.requester.Get(ctx, next, header)
		if err != nil {
			return nil, err
		}
		pages++

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(resp.Body, &envelope); err != nil {
			return nil, fmt.Errorf("decode page %s: %w", next, err)
		}
		raw, ok := envelope[key]
		if !ok {
			return nil, fmt.Errorf("decode page %s: missing %q collection", next, key)
		}
		var pageItems []json.RawMessage
		if err := json.Unmarshal(raw, &pageItems); err != nil {
			return nil, fmt.Errorf("decode page %s: %q is not an array: %w", next, key, err)
		}
		items = append(items, pageItems...)

		p.logger.Debug().
			Str("collection", key).
			Int("page", pages).
			Int("items", len(pageItems)).
			Int("attempts", resp.Attempts).
			Msg("page fetched")

		next = NextLink(resp.Header.Get("Link"))
		if next != "" {
			if err := sleep(ctx, p.pageDelay); err != nil {
				return nil, err
			}
		}
	}

	return items, nil
}

// Collect fetches every page and decodes the items into T.
func Collect[T any](ctx context.Context, p *Paginator, startURL string, header http.Header, key string) ([]T, error) {
	raw, err := p.FetchAll(ctx, startURL, header, key)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for i, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("decode %s[%d]: %w", key, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// NextLink extracts the rel="next" target from a Link header, or "" if absent.
// Targets are read between angle brackets, so commas inside a URL do not
// split a link-value.
func NextLink(header string) string {
	rest := header
	for {
		open := strings.IndexByte(rest, '<')
		if open < 0 {
			return ""
		}
		closing := strings.IndexByte(rest[open:], '>')
		if closing < 0 {
			return ""
		}
		target := rest[open+1 : open+closing]
		rest = rest[open+closing+1:]

		params := rest
		if end := paramsEnd(rest); end >= 0 {
			params, rest = rest[:end], rest[end+1:]
		} else {
			rest = ""
		}
		if hasRel(params, "next") {
			return target
		}
	}
}

// paramsEnd returns the index of the comma that ends a link-value's
// parameters, skipping commas inside quoted strings.
func paramsEnd(s string) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				return i
			}
		}
	}
	return -1
}

func hasRel(params, want string) bool {
	for _, param := range strings.Split(params, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "rel") {
			continue
		}
		for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
			if strings.EqualFold(rel, want) {
				return true
			}
		}
	}
	return false
}
