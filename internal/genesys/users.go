package genesys

import (
	"context"
	"net/http"
)

type userSearchRequest struct {
	PageSize int               `json:"pageSize"`
	Query    []userSearchQuery `json:"query"`
}

type userSearchQuery struct {
	Type   string   `json:"type"`
	Fields []string `json:"fields"`
	Values []string `json:"values"`
}

type userSearchResponse struct {
	Results []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"results"`
}

// ResolveNames maps user IDs to display names. Only IDs not already in the
// session cache are sent upstream; resolved names persist for the client
// lifetime. A failed lookup is logged and tolerated; callers fall back to
// a placeholder for IDs left unresolved.
func (c *Client) ResolveNames(ctx context.Context, ids []string) (map[string]string, error) {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()

	var missing []string
	for _, id := range ids {
		if _, ok := c.userNames[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		req := userSearchRequest{
			PageSize: pageSize,
			Query: []userSearchQuery{{
				Type:   "EXACT",
				Fields: []string{"id"},
				Values: missing,
			}},
		}

		var resp userSearchResponse
		if err := c.doJSON(ctx, "user search", http.MethodPost, "/api/v2/users/search", req, &resp); err != nil {
			c.logger.Warn().Err(err).Int("ids", len(missing)).Msg("user name lookup failed")
		} else {
			for _, u := range resp.Results {
				c.userNames[u.ID] = u.Name
			}
		}
	}

	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if name, ok := c.userNames[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}
