package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/vchukka/finsense/internal/domain"
)

const statementPrompt = "You are a bank statement parser.\n\n" +
	"Task:\n" +
	"- Parse ALL transactions in the attached statement PDF.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a JSON array of objects.\n\n" +
	"Each object must have these fields:\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"description\": string\n" +
	"- \"amount\": number (positive for money IN, negative for money OUT)\n\n" +
	"Rules:\n" +
	"- If the statement has separate \"paid out\" / \"paid in\" columns, convert to a single signed \"amount\".\n" +
	"- Skip balance rows, headers, and page furniture.\n" +
	"- Return ONLY valid raw JSON.\n" +
	"- Do NOT wrap the response in code fences.\n" +
	"- Output must begin with \"[\" and end with \"]\".\n"

// ExtractStatement hands a whole statement PDF to the model and returns the
// transaction rows. Rows the model mangles (unparseable dates) are skipped
// so one bad row never sinks the batch.
func (c *Client) ExtractStatement(ctx context.Context, data []byte) ([]domain.RawLine, error) {
	parts := []*genai.Part{
		{Text: statementPrompt},
		{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: data}},
	}

	raw, err := c.generate(ctx, parts)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	}
	clean := cleanModelJSON(raw)
	if err := json.Unmarshal([]byte(clean), &rows); err != nil {
		return nil, fmt.Errorf("%w: unmarshal statement rows: %v", domain.ErrExternalService, err)
	}

	out := make([]domain.RawLine, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		desc := strings.TrimSpace(row.Description)
		if desc == "" {
			continue
		}
		out = append(out, domain.RawLine{
			Date:        date,
			Description: desc,
			Amount:      decimal.NewFromFloat(row.Amount),
		})
	}
	return out, nil
}
