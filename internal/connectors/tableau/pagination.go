package tableau

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// flexInt decodes integers the API sends either bare or quoted.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", b, err)
	}
	*n = flexInt(v)
	return nil
}

// pagination is the paging envelope of list responses.
type pagination struct {
	PageNumber     flexInt `json:"pageNumber"`
	PageSize       flexInt `json:"pageSize"`
	TotalAvailable flexInt `json:"totalAvailable"`
}

// unwrapList decodes {"<singular>": [...]} into a slice.
// An empty object or a missing key yields no items.
func unwrapList[T any](raw json.RawMessage, singular string) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	inner, ok := wrapper[singular]
	if !ok {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// drain fetches every page of a list endpoint. Returns the items and the
// total reported by the server, or len(items) when no envelope was sent.
func drain[T any](ctx context.Context, c *Client, cl call, plural, singular string) ([]T, int, error) {
	var all []T
	total := -1

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return all, total, err
		}

		q := url.Values{}
		for k, v := range cl.query {
			q[k] = v
		}
		q.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
		q.Set("pageNumber", strconv.Itoa(page))
		pageCall := cl
		pageCall.query = q

		var env map[string]json.RawMessage
		if err := c.getJSON(ctx, pageCall, &env); err != nil {
			return all, total, err
		}

		items, err := unwrapList[T](env[plural], singular)
		if err != nil {
			return all, total, fmt.Errorf("%s: decode %s: %w", cl.op, plural, err)
		}
		all = append(all, items...)

		raw, paged := env["pagination"]
		if !paged {
			break
		}
		var p pagination
		if err := json.Unmarshal(raw, &p); err != nil {
			return all, total, fmt.Errorf("%s: decode pagination: %w", cl.op, err)
		}
		total = int(p.TotalAvailable)
		if len(items) == 0 || len(all) >= total {
			break
		}
	}

	if total < 0 {
		total = len(all)
	}
	return all, total, nil
}
