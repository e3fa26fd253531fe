package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vizgen/vizgen-engine/pkg/apperrors"
	"github.com/vizgen/vizgen-engine/pkg/chart"
	"github.com/vizgen/vizgen-engine/pkg/llm"
	"github.com/vizgen/vizgen-engine/pkg/models"
	"github.com/vizgen/vizgen-engine/pkg/schema"
)

func salesSchema() *schema.Description {
	return &schema.Description{
		DatabaseName: "shop",
		Dialect:      schema.DialectPostgres,
		Tables: []schema.Table{
			{
				Name:        "sales",
				Description: "Sales records",
				Columns: []schema.Column{
					{Name: "category", NormalizedType: schema.TypeString},
					{Name: "amount", NormalizedType: schema.TypeDecimal},
				},
			},
		},
	}
}

const salesReply = `{
  "analysis": {
    "intent": "total sales per category",
    "tablesUsed": ["sales"],
    "chartType": "bar",
    "aggregation": "sum",
    "groupBy": "category",
    "filters": []
  },
  "sqlQuery": "SELECT category, SUM(amount) AS total_amount FROM sales WHERE category IS NOT NULL GROUP BY category ORDER BY total_amount DESC LIMIT 20",
  "chartSpec": {
    "$schema": "https://vega.github.io/schema/vega-lite/v5.json",
    "data": {"values": []},
    "mark": "bar",
    "encoding": {
      "x": {"field": "category", "type": "nominal"},
      "y": {"field": "total_amount", "type": "quantitative"}
    }
  },
  "explanation": "Total sales per category as a bar chart."
}`

type fakeExecutor struct {
	rows    []map[string]any
	err     error
	lastSQL string
	pingErr error
}

func (f *fakeExecutor) Execute(_ context.Context, sqlText string, _ time.Duration, _ int) ([]map[string]any, error) {
	f.lastSQL = sqlText
	return f.rows, f.err
}

func (f *fakeExecutor) Ping(context.Context) error { return f.pingErr }

type fakeWidgetStore struct {
	saved chan *models.Widget
	err   error
}

func newFakeWidgetStore() *fakeWidgetStore {
	return &fakeWidgetStore{saved: make(chan *models.Widget, 1)}
}

func (f *fakeWidgetStore) Save(_ context.Context, w *models.Widget) error {
	f.saved <- w
	return f.err
}

func replyClient(content string) *llm.MockClient {
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(context.Context, string, string, float64) (*llm.GenerateResult, error) {
		return &llm.GenerateResult{Content: content, PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}, nil
	}
	return client
}

func newTestService(client llm.Client, exec QueryExecutor, widgets WidgetStore) *ChartService {
	cache := schema.NewCache(func(context.Context) (*schema.Description, error) {
		return salesSchema(), nil
	}, 0, nil)
	return NewChartService(cache, NewGenerator(client, nil), exec, widgets,
		QueryLimits{}, chart.DefaultOptions(), nil)
}

func TestGenerateChartFromPrompt(t *testing.T) {
	client := replyClient(salesReply)
	exec := &fakeExecutor{rows: []map[string]any{
		{"category": "books", "total_amount": 120.0},
		{"category": "games", "total_amount": 80.0},
	}}
	widgets := newFakeWidgetStore()

	svc := newTestService(client, exec, widgets)
	resp, err := svc.GenerateChartFromPrompt(context.Background(), "Show total sales by category")
	require.NoError(t, err)

	require.Contains(t, resp.SQLQuery, "GROUP BY category")
	require.Equal(t, "bar", resp.Analysis.ChartType)
	mark := resp.ChartSpec["mark"].(map[string]any)
	require.Equal(t, "bar", mark["type"])

	require.Equal(t, resp.SQLQuery, exec.lastSQL)
	require.Len(t, resp.Rows, 2)
	require.Equal(t, 2, resp.Summary.RowCount)
	require.Equal(t, 200.0, resp.Summary.Columns["total_amount"].Sum)
	require.Equal(t, 150, resp.TokensUsed.Total)
	require.Empty(t, resp.Warnings)

	// The instruction document carries the schema and the question.
	require.Contains(t, client.LastPrompt, "### sales")
	require.Contains(t, client.LastPrompt, "Show total sales by category")
	require.Equal(t, 0.2, client.LastTemperature)

	select {
	case w := <-widgets.saved:
		require.Equal(t, "Show total sales by category", w.Prompt)
		require.True(t, w.MostRecent)
	case <-time.After(2 * time.Second):
		t.Fatal("widget was not saved")
	}
}

func TestGenerateChartRejectsGuardedSQL(t *testing.T) {
	reply := strings.Replace(salesReply,
		"SELECT category, SUM(amount) AS total_amount FROM sales WHERE category IS NOT NULL GROUP BY category ORDER BY total_amount DESC LIMIT 20",
		"DROP TABLE sales", 1)

	svc := newTestService(replyClient(reply), &fakeExecutor{}, nil)
	_, err := svc.GenerateChartFromPrompt(context.Background(), "drop everything")
	require.Error(t, err)
	require.Equal(t, apperrors.KindSQLRejected, apperrors.KindOf(err))
}

func TestGenerateChartUnknownTableWarns(t *testing.T) {
	reply := strings.Replace(salesReply, "FROM sales", "FROM ghost_table", 1)

	exec := &fakeExecutor{rows: []map[string]any{{"category": "x", "total_amount": 1.0}}}
	svc := newTestService(replyClient(reply), exec, nil)

	resp, err := svc.GenerateChartFromPrompt(context.Background(), "show ghosts")
	require.NoError(t, err)
	require.Len(t, resp.Warnings, 1)
	require.Contains(t, resp.Warnings[0], "ghost_table")
}

func TestGenerateChartEmptyResultIsPlaceholder(t *testing.T) {
	svc := newTestService(replyClient(salesReply), &fakeExecutor{rows: nil}, nil)

	resp, err := svc.GenerateChartFromPrompt(context.Background(), "Show total sales by category")
	require.NoError(t, err)
	require.True(t, chart.IsPlaceholder(resp.ChartSpec))
	require.Equal(t, 0, resp.Summary.RowCount)
}

func TestGenerateChartDatabaseErrorPropagates(t *testing.T) {
	exec := &fakeExecutor{err: apperrors.New(apperrors.KindDatabase, "boom")}
	svc := newTestService(replyClient(salesReply), exec, nil)

	_, err := svc.GenerateChartFromPrompt(context.Background(), "Show total sales by category")
	require.Error(t, err)
	require.Equal(t, apperrors.KindDatabase, apperrors.KindOf(err))
}

func TestGenerateChartGenerationErrorPropagates(t *testing.T) {
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(context.Context, string, string, float64) (*llm.GenerateResult, error) {
		return nil, errors.New("connection refused")
	}

	svc := newTestService(client, &fakeExecutor{}, nil)
	_, err := svc.GenerateChartFromPrompt(context.Background(), "anything")
	require.Error(t, err)
	require.Equal(t, apperrors.KindGeneration, apperrors.KindOf(err))
}

func TestGenerateChartInjectionPromptWarnsButProceeds(t *testing.T) {
	exec := &fakeExecutor{rows: []map[string]any{{"category": "x", "total_amount": 1.0}}}
	svc := newTestService(replyClient(salesReply), exec, nil)

	resp, err := svc.GenerateChartFromPrompt(context.Background(), "' OR 1=1 --")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Warnings)
}

func TestGetSchemaAndInvalidate(t *testing.T) {
	calls := 0
	cache := schema.NewCache(func(context.Context) (*schema.Description, error) {
		calls++
		return salesSchema(), nil
	}, 0, nil)
	svc := NewChartService(cache, NewGenerator(llm.NewMockClient(), nil),
		&fakeExecutor{}, nil, QueryLimits{}, chart.DefaultOptions(), nil)

	_, err := svc.GetSchema(context.Background(), false)
	require.NoError(t, err)
	_, err = svc.GetSchema(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	svc.InvalidateSchemaCache()
	_, err = svc.GetSchema(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestCheckDatabaseHealth(t *testing.T) {
	svc := newTestService(llm.NewMockClient(), &fakeExecutor{}, nil)
	health := svc.CheckDatabaseHealth(context.Background())
	require.True(t, health.OK)
	require.Equal(t, "postgres", health.Dialect)
	require.Equal(t, "shop", health.DatabaseName)

	broken := newTestService(llm.NewMockClient(), &fakeExecutor{pingErr: errors.New("down")}, nil)
	health = broken.CheckDatabaseHealth(context.Background())
	require.False(t, health.OK)
	require.NotEmpty(t, health.Error)
}

func TestCheckGenerationServiceHealth(t *testing.T) {
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(context.Context, string, string, float64) (*llm.GenerateResult, error) {
		return &llm.GenerateResult{Content: `{"ok": true}`}, nil
	}

	svc := newTestService(client, &fakeExecutor{}, nil)
	health := svc.CheckGenerationServiceHealth(context.Background())
	require.True(t, health.OK)
	require.Equal(t, "mock-model", health.Model)
}
