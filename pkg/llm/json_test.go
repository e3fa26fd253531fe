package llm

import "testing"

func TestExtractJSON_PlainObject(t *testing.T) {
	input := `{"sqlQuery": "SELECT 1", "chartSpec": {}}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_WithThinkTags(t *testing.T) {
	input := `<think>
The user wants sales by category, so a bar chart fits.
</think>
{"chartType": "bar"}`

	expected := `{"chartType": "bar"}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_WithMarkdownFence(t *testing.T) {
	input := "Here is the result:\n```json\n{\"sqlQuery\": \"SELECT 1\"}\n```\nDone."
	expected := `{"sqlQuery": "SELECT 1"}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_NestedBracesInStrings(t *testing.T) {
	input := `{"explanation": "grouped by {category}", "value": 1}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_EscapedQuotes(t *testing.T) {
	input := `{"sql": "SELECT \"name\" FROM users"}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	if _, err := ExtractJSON("I could not produce a chart for that question."); err == nil {
		t.Error("expected an error for a response without JSON")
	}
}

func TestParseJSONResponse(t *testing.T) {
	type reply struct {
		SQLQuery string `json:"sqlQuery"`
	}

	got, err := ParseJSONResponse[reply]("prefix text {\"sqlQuery\": \"SELECT 1\"} suffix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SQLQuery != "SELECT 1" {
		t.Errorf("expected SELECT 1, got %q", got.SQLQuery)
	}
}

func TestParseJSONResponse_TypeMismatch(t *testing.T) {
	type reply struct {
		Count int `json:"count"`
	}

	if _, err := ParseJSONResponse[reply](`{"count": "not a number"}`); err == nil {
		t.Error("expected unmarshal error for type mismatch")
	}
}
