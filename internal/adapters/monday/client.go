// Package monday is the GraphQL adapter for the external board API.
package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"floorboard/internal/config"
	"floorboard/internal/domain"
	"floorboard/internal/ports"
)

type Client struct {
	httpc          *http.Client
	apiURL         string
	boardID        string
	subitemColumns []string
	tokens         ports.TokenSource
	logger         *slog.Logger
}

func NewClient(cfg config.MondayConfig, tokens ports.TokenSource, logger *slog.Logger) *Client {
	return &Client{
		httpc:          &http.Client{Timeout: cfg.Timeout},
		apiURL:         cfg.APIURL,
		boardID:        cfg.BoardID,
		subitemColumns: cfg.SubitemColumnIDs,
		tokens:         tokens,
		logger:         logger,
	}
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

func (c *Client) gql(ctx context.Context, query string, variables map[string]any, out any) error {
	token := c.tokens.Token()
	if token == "" {
		return ports.ErrNoToken
	}

	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("monday: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("monday: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("monday: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env gqlEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("monday: decode response: %w", err)
	}
	if len(env.Errors) > 0 {
		first := env.Errors[0]
		if isComplexityMessage(first) {
			return &ports.ComplexityError{Message: first.Message}
		}
		return fmt.Errorf("monday: api error: %s", first.Message)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("monday: decode data: %w", err)
		}
	}
	return nil
}

func isComplexityMessage(e gqlError) bool {
	if e.Extensions.Code == "ComplexityException" || e.Extensions.Code == "COMPLEXITY_BUDGET_EXHAUSTED" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "complexity")
}

const changeColumnQuery = `
mutation ChangeValue($board: ID!, $item: ID!, $col: String!, $val: JSON!) {
  change_column_value(board_id: $board, item_id: $item, column_id: $col, value: $val) { id }
}`

// ChangeColumnValue sets one column on one item. value is JSON-encoded into
// the API's stringified JSON scalar.
func (c *Client) ChangeColumnValue(ctx context.Context, itemID, columnID string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.gql(ctx, changeColumnQuery, map[string]any{
		"board": c.boardID,
		"item":  itemID,
		"col":   columnID,
		"val":   string(encoded),
	}, nil)
}

const itemsPageQuery = `
query ItemsPage($boardId: [ID!], $limit: Int!, $cursor: String, $cols: [String!]) {
  boards(ids: $boardId) {
    items_page(limit: $limit, cursor: $cursor) {
      cursor
      items {
        id
        name
        group { title }
        subitems {
          id
          name
          column_values(ids: $cols) { id text }
        }
      }
    }
  }
}`

// itemsPageData tolerates partial responses: every nested field the API may
// omit is a pointer or slice and defaults instead of failing the decode.
type itemsPageData struct {
	Boards []struct {
		ItemsPage *struct {
			Cursor *string `json:"cursor"`
			Items  []struct {
				ID    string `json:"id"`
				Name  string `json:"name"`
				Group *struct {
					Title string `json:"title"`
				} `json:"group"`
				Subitems []struct {
					ID           string `json:"id"`
					Name         string `json:"name"`
					ColumnValues []struct {
						ID   string  `json:"id"`
						Text *string `json:"text"`
					} `json:"column_values"`
				} `json:"subitems"`
			} `json:"items"`
		} `json:"items_page"`
	} `json:"boards"`
}

// FetchItemsPage fetches one page of items with nested subitem rows.
func (c *Client) FetchItemsPage(ctx context.Context, limit int, cursor string) (ports.FetchedPage, error) {
	variables := map[string]any{
		"boardId": []string{c.boardID},
		"limit":   limit,
		"cols":    c.subitemColumns,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	var data itemsPageData
	if err := c.gql(ctx, itemsPageQuery, variables, &data); err != nil {
		return ports.FetchedPage{}, err
	}
	if len(data.Boards) == 0 || data.Boards[0].ItemsPage == nil {
		return ports.FetchedPage{}, nil
	}

	page := data.Boards[0].ItemsPage
	c.logger.Debug("fetched board page", "items", len(page.Items), "limit", limit)
	out := ports.FetchedPage{}
	if page.Cursor != nil {
		out.Cursor = *page.Cursor
	}
	for _, it := range page.Items {
		item := domain.TrackedItem{ID: it.ID, Name: it.Name}
		if it.Group != nil {
			item.GroupTitle = it.Group.Title
		}
		for _, sub := range it.Subitems {
			row := domain.Subitem{ID: sub.ID, Name: sub.Name}
			for _, cv := range sub.ColumnValues {
				text := ""
				if cv.Text != nil {
					text = *cv.Text
				}
				row.ColumnValues = append(row.ColumnValues, domain.ColumnValue{ID: cv.ID, Text: text})
			}
			item.Subitems = append(item.Subitems, row)
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}
