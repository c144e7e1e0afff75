package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/domain"
)

// Row is one manually logged transaction pulled from the transactions
// database.
type Row struct {
	PageID   string
	Line     domain.RawLine
	Category string // empty when the page has no category set
}

// Upload is one statement file pulled from the uploads database.
type Upload struct {
	PageID  string
	Title   string
	Status  string
	FileURL string
}

// RowFromPage maps a transactions-database page to a Row. Pages missing
// the date, description or amount are reported as malformed.
func RowFromPage(page notionapi.Page) (Row, bool) {
	date, ok := dateValue(page, "Date")
	if !ok {
		return Row{}, false
	}
	description := titleText(page, "Description")
	if description == "" {
		return Row{}, false
	}
	amount, ok := numberValue(page, "Amount")
	if !ok {
		return Row{}, false
	}

	category := selectName(page, "Category")
	if strings.EqualFold(category, domain.CategoryUncategorized) {
		category = ""
	}

	return Row{
		PageID: string(page.ID),
		Line: domain.RawLine{
			Date:        date,
			Description: description,
			Amount:      decimal.NewFromFloat(amount),
		},
		Category: category,
	}, true
}

// UploadFromPage maps an uploads-database page to an Upload.
func UploadFromPage(page notionapi.Page) Upload {
	return Upload{
		PageID:  string(page.ID),
		Title:   titleText(page, "Name"),
		Status:  selectName(page, "Status"),
		FileURL: fileURL(page, "File"),
	}
}

// CategoryProperties sets the Category select on a transactions page.
func CategoryProperties(category string) notionapi.Properties {
	return notionapi.Properties{
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: category,
			},
		},
	}
}

// UploadStatusProperties sets the Status select on an uploads page.
func UploadStatusProperties(status string) notionapi.Properties {
	return notionapi.Properties{
		"Status": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: status,
			},
		},
	}
}

// SyncLogProperties builds the page properties for one sync-log entry.
func SyncLogProperties(when time.Time, details string) notionapi.Properties {
	ts := when.Format("2006-01-02 15:04:05")
	return notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: "Sync on " + ts,
					},
				},
			},
		},
		"Details": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: details,
					},
				},
			},
		},
	}
}

func titleText(page notionapi.Page, name string) string {
	if prop, ok := page.Properties[name]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok && len(title.Title) > 0 {
			return title.Title[0].PlainText
		}
	}
	return ""
}

func selectName(page notionapi.Page, name string) string {
	if prop, ok := page.Properties[name]; ok {
		if sel, ok := prop.(*notionapi.SelectProperty); ok {
			return sel.Select.Name
		}
	}
	return ""
}

func dateValue(page notionapi.Page, name string) (time.Time, bool) {
	if prop, ok := page.Properties[name]; ok {
		if d, ok := prop.(*notionapi.DateProperty); ok && d.Date != nil && d.Date.Start != nil {
			return time.Time(*d.Date.Start), true
		}
	}
	return time.Time{}, false
}

func numberValue(page notionapi.Page, name string) (float64, bool) {
	if prop, ok := page.Properties[name]; ok {
		if n, ok := prop.(*notionapi.NumberProperty); ok {
			return n.Number, true
		}
	}
	return 0, false
}

func fileURL(page notionapi.Page, name string) string {
	if prop, ok := page.Properties[name]; ok {
		if files, ok := prop.(*notionapi.FilesProperty); ok && len(files.Files) > 0 {
			f := files.Files[0]
			if f.File != nil {
				return f.File.URL
			}
			if f.External != nil {
				return f.External.URL
			}
		}
	}
	return ""
}
