package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^the user service is running$`, tc.serviceIsRunning)

	ctx.Step(`^I GET "([^"]*)"$`, tc.get)
	ctx.Step(`^I DELETE "([^"]*)"$`, tc.delete)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, tc.postWithBody)
	ctx.Step(`^I PUT to "([^"]*)" with body:$`, tc.putWithBody)
	ctx.Step(`^I POST to "([^"]*)" with empty body$`, tc.postEmpty)

	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response should not have field "([^"]*)"$`, tc.responseShouldNotHaveField)
	ctx.Step(`^the Location header should be "([^"]*)"$`, tc.locationHeaderShouldBe)
	ctx.Step(`^the migrated list should have (\d+) entr(?:y|ies)$`, tc.migratedListShouldHave)
}

func (tc *TestContext) serviceIsRunning(context.Context) error {
	return nil
}

func (tc *TestContext) get(ctx context.Context, path string) error {
	return tc.Request(http.MethodGet, path, "")
}

func (tc *TestContext) delete(ctx context.Context, path string) error {
	return tc.Request(http.MethodDelete, path, "")
}

func (tc *TestContext) postWithBody(ctx context.Context, path string, body *godog.DocString) error {
	return tc.Request(http.MethodPost, path, body.Content)
}

func (tc *TestContext) putWithBody(ctx context.Context, path string, body *godog.DocString) error {
	return tc.Request(http.MethodPut, path, body.Content)
}

func (tc *TestContext) postEmpty(ctx context.Context, path string) error {
	return tc.Request(http.MethodPost, path, "{}")
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, status int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if tc.LastResponse.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s",
			status, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("expected field %q to equal %q, got %v", field, expected, value)
	}
	return nil
}

func (tc *TestContext) responseShouldNotHaveField(ctx context.Context, field string) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &payload); err != nil {
		return fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	if _, ok := payload[field]; ok {
		return fmt.Errorf("expected field %q to be absent, response: %s", field, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) locationHeaderShouldBe(ctx context.Context, expected string) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if got := tc.LastResponse.Header.Get("Location"); got != expected {
		return fmt.Errorf("expected Location %q, got %q", expected, got)
	}
	return nil
}

func (tc *TestContext) migratedListShouldHave(ctx context.Context, count int) error {
	var entries []map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &entries); err != nil {
		return fmt.Errorf("failed to parse response as JSON list: %w", err)
	}
	if len(entries) != count {
		return fmt.Errorf("expected %d migrated entries, got %d: %s", count, len(entries), string(tc.LastResponseBody))
	}
	return nil
}
