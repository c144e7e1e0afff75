package notion

import (
	"context"

	"github.com/jomei/notionapi"
)

// Service defines the interface for interacting with the Notion API.
// This interface enables mocking and testing of Notion operations.
type Service interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// UpdatePage updates an existing Notion page with the given properties.
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase queries a Notion database with the given filter.
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// DownloadFile fetches a file attachment by its URL.
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}
