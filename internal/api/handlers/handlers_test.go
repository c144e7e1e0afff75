package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/jobs"
	"github.com/vchukka/finsense/internal/pipeline"
	"github.com/vchukka/finsense/internal/summary"
)

type fakePublisher struct {
	published []*jobs.SyncJob
	err       error
}

func (p *fakePublisher) PublishSync(ctx context.Context, job *jobs.SyncJob) error {
	if p.err != nil {
		return p.err
	}
	job.JobID = "job-123"
	p.published = append(p.published, job)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeStore struct {
	queryFunc  func(ctx context.Context, userID string, f domain.Filter) ([]domain.Transaction, error)
	updateFunc func(ctx context.Context, id uuid.UUID, fields domain.Fields) error
}

func (s *fakeStore) Query(ctx context.Context, userID string, f domain.Filter) ([]domain.Transaction, error) {
	return s.queryFunc(ctx, userID, f)
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, fields domain.Fields) error {
	return s.updateFunc(ctx, id, fields)
}

type fakeImporter struct {
	executeFunc func(ctx context.Context, state *pipeline.PipelineState) error
}

func (i *fakeImporter) Execute(ctx context.Context, state *pipeline.PipelineState) error {
	return i.executeFunc(ctx, state)
}

type fakeRules struct {
	addFunc    func(ctx context.Context, userID, keyword, category string) error
	userFunc   func(ctx context.Context, userID string) ([]domain.KeywordRule, error)
	globalFunc func(ctx context.Context) ([]domain.KeywordRule, error)
}

func (r *fakeRules) AddUserRule(ctx context.Context, userID, keyword, category string) error {
	return r.addFunc(ctx, userID, keyword, category)
}

func (r *fakeRules) UserRules(ctx context.Context, userID string) ([]domain.KeywordRule, error) {
	return r.userFunc(ctx, userID)
}

func (r *fakeRules) GlobalRules(ctx context.Context) ([]domain.KeywordRule, error) {
	return r.globalFunc(ctx)
}

type fakeSummaries struct {
	spendingFunc func(ctx context.Context, userID string, f domain.Filter) (summary.Spending, error)
	budgetFunc   func(ctx context.Context, userID, month string) (summary.BudgetReport, error)
	incomeFunc   func(ctx context.Context, userID, month string) (summary.IncomeSummary, error)
}

func (s *fakeSummaries) Spending(ctx context.Context, userID string, f domain.Filter) (summary.Spending, error) {
	return s.spendingFunc(ctx, userID, f)
}

func (s *fakeSummaries) Budget(ctx context.Context, userID, month string) (summary.BudgetReport, error) {
	return s.budgetFunc(ctx, userID, month)
}

func (s *fakeSummaries) Income(ctx context.Context, userID, month string) (summary.IncomeSummary, error) {
	return s.incomeFunc(ctx, userID, month)
}

func (s *fakeSummaries) ResolveFilter(ctx context.Context, text string, now time.Time) domain.Filter {
	return domain.Filter{Month: "2025-04", Category: "Groceries"}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestHandleWebhookEnqueuesSyncJob(t *testing.T) {
	pub := &fakePublisher{}
	h := NewSyncHandler(pub, "local", zerolog.Nop())

	payload := `{"events":[{"type":"page.updated","resource":{"id":"page-7"}},{"type":"comment.created","resource":{"id":"page-9"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/notion", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.published))
	}
	job := pub.published[0]
	if job.Type != jobs.JobTypeSyncNotion {
		t.Errorf("job type = %s, want %s", job.Type, jobs.JobTypeSyncNotion)
	}
	if job.Trigger != jobs.TriggerWebhook {
		t.Errorf("trigger = %s, want %s", job.Trigger, jobs.TriggerWebhook)
	}
	if job.PageID != "page-7" {
		t.Errorf("page id = %s, want page-7", job.PageID)
	}
	if job.UserID != "local" {
		t.Errorf("user id = %s, want local", job.UserID)
	}

	body := decodeBody(t, rec)
	if body["job_id"] != "job-123" {
		t.Errorf("job_id = %v, want job-123", body["job_id"])
	}
}

func TestHandleWebhookAcknowledgesVerification(t *testing.T) {
	pub := &fakePublisher{}
	h := NewSyncHandler(pub, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhook/notion",
		strings.NewReader(`{"verification_token":"secret_tok_abc"}`))
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d jobs during verification, want 0", len(pub.published))
	}
}

func TestHandleWebhookRejectsBadJSON(t *testing.T) {
	pub := &fakePublisher{}
	h := NewSyncHandler(pub, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhook/notion", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d jobs, want 0", len(pub.published))
	}
}

func TestCreateTransactionRunsPipeline(t *testing.T) {
	var gotState *pipeline.PipelineState
	importer := &fakeImporter{
		executeFunc: func(ctx context.Context, state *pipeline.PipelineState) error {
			gotState = state
			tx := domain.NewTransaction(state.UserID, state.Lines[0].Date, state.Lines[0].Description, state.Lines[0].Amount)
			tx.Category = "Groceries"
			tx.BudgetType = domain.BudgetNeeds
			tx.Status = domain.StatusRule
			state.Transactions = []domain.Transaction{tx}
			state.Result.Imported = 1
			return nil
		},
	}
	h := NewTransactionsHandler(&fakeStore{}, importer, "local", zerolog.Nop())

	body := `{"date":"2025-04-12","description":"REWE SAGT DANKE","amount":-42.17}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateTransaction(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if gotState == nil {
		t.Fatal("pipeline never ran")
	}
	if gotState.Source != "api" {
		t.Errorf("source = %s, want api", gotState.Source)
	}
	if gotState.UserID != "local" {
		t.Errorf("user id = %s, want local", gotState.UserID)
	}
	if len(gotState.Lines) != 1 || gotState.Lines[0].Description != "REWE SAGT DANKE" {
		t.Fatalf("unexpected lines: %+v", gotState.Lines)
	}
	if !gotState.Lines[0].Amount.Equal(decimal.RequireFromString("-42.17")) {
		t.Errorf("amount = %s, want -42.17", gotState.Lines[0].Amount)
	}

	resp := decodeBody(t, rec)
	tx, ok := resp["transaction"].(map[string]interface{})
	if !ok {
		t.Fatalf("no transaction in response: %v", resp)
	}
	if tx["category"] != "Groceries" {
		t.Errorf("category = %v, want Groceries", tx["category"])
	}
	if tx["status"] != "rule" {
		t.Errorf("status = %v, want rule", tx["status"])
	}
	if resp["pending"] != false {
		t.Errorf("pending = %v, want false", resp["pending"])
	}
}

func TestCreateTransactionReportsDuplicate(t *testing.T) {
	importer := &fakeImporter{
		executeFunc: func(ctx context.Context, state *pipeline.PipelineState) error {
			state.Result.Duplicates = 1
			return nil
		},
	}
	h := NewTransactionsHandler(&fakeStore{}, importer, "local", zerolog.Nop())

	body := `{"date":"2025-04-12","description":"REWE","amount":-42.17}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateTransaction(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	h := NewTransactionsHandler(&fakeStore{}, &fakeImporter{
		executeFunc: func(ctx context.Context, state *pipeline.PipelineState) error {
			t.Fatal("pipeline must not run on invalid input")
			return nil
		},
	}, "local", zerolog.Nop())

	tests := []struct {
		name string
		body string
	}{
		{name: "bad date", body: `{"date":"12.04.2025","description":"REWE","amount":-1}`},
		{name: "missing description", body: `{"date":"2025-04-12","description":"  ","amount":-1}`},
		{name: "zero amount", body: `{"date":"2025-04-12","description":"REWE","amount":0}`},
		{name: "amount not a number", body: `{"date":"2025-04-12","description":"REWE","amount":"lots"}`},
		{name: "not json", body: `date=2025-04-12`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.CreateTransaction(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestUpdateCategoryMarksRowUserConfirmed(t *testing.T) {
	id := uuid.New()
	var gotID uuid.UUID
	var gotFields domain.Fields
	store := &fakeStore{
		updateFunc: func(ctx context.Context, txID uuid.UUID, fields domain.Fields) error {
			gotID = txID
			gotFields = fields
			return nil
		},
	}
	h := NewTransactionsHandler(store, &fakeImporter{}, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+id.String()+"/category",
		strings.NewReader(`{"category":"dining"}`))
	rec := httptest.NewRecorder()

	h.UpdateCategory(rec, req, id.String())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotID != id {
		t.Errorf("updated id = %s, want %s", gotID, id)
	}
	if gotFields.Category == nil || *gotFields.Category != "Dining" {
		t.Errorf("category = %v, want Dining", gotFields.Category)
	}
	if gotFields.BudgetType == nil || *gotFields.BudgetType != domain.BudgetWants {
		t.Errorf("budget type = %v, want Wants", gotFields.BudgetType)
	}
	if gotFields.Status == nil || *gotFields.Status != domain.StatusUser {
		t.Errorf("status = %v, want user", gotFields.Status)
	}
}

func TestUpdateCategoryErrors(t *testing.T) {
	store := &fakeStore{
		updateFunc: func(ctx context.Context, txID uuid.UUID, fields domain.Fields) error {
			return domain.ErrTransactionNotFound
		},
	}
	h := NewTransactionsHandler(store, &fakeImporter{}, "local", zerolog.Nop())

	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
	}{
		{name: "unknown id", id: uuid.New().String(), body: `{"category":"Dining"}`, wantStatus: http.StatusNotFound},
		{name: "malformed id", id: "not-a-uuid", body: `{"category":"Dining"}`, wantStatus: http.StatusBadRequest},
		{name: "unknown category", id: uuid.New().String(), body: `{"category":"Gadgets"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+tt.id+"/category",
				strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.UpdateCategory(rec, req, tt.id)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestListTransactionsRejectsBadMonth(t *testing.T) {
	h := NewTransactionsHandler(&fakeStore{}, &fakeImporter{}, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?month=April", nil)
	rec := httptest.NewRecorder()

	h.ListTransactions(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListTransactionsAppliesFilter(t *testing.T) {
	var gotUser string
	var gotFilter domain.Filter
	store := &fakeStore{
		queryFunc: func(ctx context.Context, userID string, f domain.Filter) ([]domain.Transaction, error) {
			gotUser = userID
			gotFilter = f
			tx := domain.NewTransaction(userID, time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC), "REWE", decimal.RequireFromString("-42.17"))
			return []domain.Transaction{tx}, nil
		},
	}
	h := NewTransactionsHandler(store, &fakeImporter{}, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?month=2025-04&category=groceries&user_id=vasu", nil)
	rec := httptest.NewRecorder()

	h.ListTransactions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUser != "vasu" {
		t.Errorf("user = %s, want vasu", gotUser)
	}
	if gotFilter.Month != "2025-04" || gotFilter.Category != "Groceries" {
		t.Errorf("filter = %+v, want month 2025-04 category Groceries", gotFilter)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestGetSummaryBudgetWithoutProfile(t *testing.T) {
	svc := &fakeSummaries{
		budgetFunc: func(ctx context.Context, userID, month string) (summary.BudgetReport, error) {
			return summary.BudgetReport{}, domain.ErrProfileNotFound
		},
	}
	h := NewSummaryHandler(svc, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary?view=budget&month=2025-04", nil)
	rec := httptest.NewRecorder()

	h.GetSummary(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetSummarySpendingRendersMessage(t *testing.T) {
	svc := &fakeSummaries{
		spendingFunc: func(ctx context.Context, userID string, f domain.Filter) (summary.Spending, error) {
			return summary.Spending{
				Month:      f.Month,
				TotalSpent: decimal.RequireFromString("42.17"),
				Categories: []summary.CategoryTotal{
					{Category: "Groceries", Type: domain.BudgetNeeds, Spent: decimal.RequireFromString("42.17"), Count: 1},
				},
			}, nil
		},
	}
	h := NewSummaryHandler(svc, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary?month=2025-04", nil)
	rec := httptest.NewRecorder()

	h.GetSummary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	body := decodeBody(t, rec)
	message, _ := body["message"].(string)
	if !strings.Contains(message, "Groceries") {
		t.Errorf("message %q does not mention Groceries", message)
	}
}

func TestGetSummaryRejectsUnknownView(t *testing.T) {
	h := NewSummaryHandler(&fakeSummaries{}, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary?view=forecast", nil)
	rec := httptest.NewRecorder()

	h.GetSummary(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPostQueryResolvesFilter(t *testing.T) {
	var gotFilter domain.Filter
	svc := &fakeSummaries{
		spendingFunc: func(ctx context.Context, userID string, f domain.Filter) (summary.Spending, error) {
			gotFilter = f
			return summary.Spending{Month: f.Month, Category: f.Category}, nil
		},
	}
	h := NewSummaryHandler(svc, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"text":"how much did I spend on groceries in April?"}`))
	rec := httptest.NewRecorder()

	h.PostQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotFilter.Month != "2025-04" || gotFilter.Category != "Groceries" {
		t.Errorf("filter = %+v, want resolved month and category", gotFilter)
	}

	body := decodeBody(t, rec)
	filter, _ := body["filter"].(map[string]interface{})
	if filter["month"] != "2025-04" {
		t.Errorf("filter.month = %v, want 2025-04", filter["month"])
	}
}

func TestPostQueryRequiresText(t *testing.T) {
	h := NewSummaryHandler(&fakeSummaries{}, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"text":"   "}`))
	rec := httptest.NewRecorder()

	h.PostQuery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAddKeywordCanonicalizes(t *testing.T) {
	var gotUser, gotKeyword, gotCategory string
	rules := &fakeRules{
		addFunc: func(ctx context.Context, userID, keyword, category string) error {
			gotUser, gotKeyword, gotCategory = userID, keyword, category
			return nil
		},
	}
	h := NewKeywordsHandler(rules, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/keywords",
		strings.NewReader(`{"keyword":"LIEFERANDO","category":"dining"}`))
	rec := httptest.NewRecorder()

	h.AddKeyword(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if gotUser != "local" {
		t.Errorf("user = %s, want local", gotUser)
	}
	if gotKeyword != "LIEFERANDO" {
		t.Errorf("keyword = %s, want LIEFERANDO", gotKeyword)
	}
	if gotCategory != "Dining" {
		t.Errorf("category = %s, want Dining", gotCategory)
	}
}

func TestAddKeywordRejectsUnknownCategory(t *testing.T) {
	h := NewKeywordsHandler(&fakeRules{}, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/keywords",
		strings.NewReader(`{"keyword":"amazon","category":"Gadgets"}`))
	rec := httptest.NewRecorder()

	h.AddKeyword(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListKeywordsGroupsByScope(t *testing.T) {
	rules := &fakeRules{
		userFunc: func(ctx context.Context, userID string) ([]domain.KeywordRule, error) {
			return []domain.KeywordRule{
				{Keyword: "lieferando", Category: "Dining", Scope: domain.ScopeUser, UserID: userID, Position: 1},
			}, nil
		},
		globalFunc: func(ctx context.Context) ([]domain.KeywordRule, error) {
			return []domain.KeywordRule{
				{Keyword: "rewe", Category: "Groceries", Scope: domain.ScopeGlobal, Position: 1},
				{Keyword: "netflix", Category: "Subscriptions", Scope: domain.ScopeGlobal, Position: 2},
			}, nil
		},
	}
	h := NewKeywordsHandler(rules, "local", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/keywords", nil)
	rec := httptest.NewRecorder()

	h.ListKeywords(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(3) {
		t.Errorf("count = %v, want 3", body["count"])
	}
	user, _ := body["user"].([]interface{})
	if len(user) != 1 {
		t.Errorf("user rules = %d, want 1", len(user))
	}
}
