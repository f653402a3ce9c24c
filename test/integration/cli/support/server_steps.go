package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/server"
	"github.com/cucumber/godog"
)

// RegisterServerSteps registers steps against an in-process HTTP server.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the scan server is running$`, testCtx.theScanServerIsRunning)
	sc.Step(`^the scan server is running with a limit of (\d+) requests per minute$`, testCtx.theScanServerIsRunningWithLimit)
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I upload "([^"]*)" as "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
}

func (testCtx *TestContext) startServer(rl server.RateLimitConfig) error {
	srv, err := server.NewServer(server.Config{
		Host:            "127.0.0.1",
		CORSOrigin:      "*",
		MaxUploadMB:     5,
		TimeoutSec:      30,
		PipelineConfig:  pipeline.DefaultConfig(),
		OverlayEnabled:  true,
		OverlayBoxColor: "#FF0000",
		RateLimit:       rl,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPServer = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) theScanServerIsRunning() error {
	return testCtx.startServer(server.RateLimitConfig{})
}

func (testCtx *TestContext) theScanServerIsRunningWithLimit(rpm int) error {
	return testCtx.startServer(server.RateLimitConfig{Enabled: true, RequestsPerMinute: rpm})
}

func (testCtx *TestContext) iGET(target string) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("server is not running")
	}
	resp, err := testCtx.HTTPServer.Client().Get(testCtx.HTTPServer.URL + target)
	if err != nil {
		return err
	}
	return testCtx.recordResponse(resp)
}

// iUploadTo posts name as a multipart file under field, e.g. "image" or "pdf".
func (testCtx *TestContext) iUploadTo(name, field, target string) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("server is not running")
	}
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, testCtx.HTTPServer.URL+target, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := testCtx.HTTPServer.Client().Do(req)
	if err != nil {
		return err
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != value {
		return fmt.Errorf("header %s = %q, want %q", name, got, value)
	}
	return nil
}

// theResponseJSONFieldShouldBe follows a dotted path such as
// "result.barcodes.0.value" through the decoded body.
func (testCtx *TestContext) theResponseJSONFieldShouldBe(path, want string) error {
	var node any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &node); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	for _, key := range strings.Split(path, ".") {
		switch v := node.(type) {
		case map[string]any:
			node = v[key]
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(v) {
				return fmt.Errorf("index %q out of range at %s", key, path)
			}
			node = v[i]
		default:
			return fmt.Errorf("cannot descend into %T at %q", node, key)
		}
	}
	if got := fmt.Sprint(node); got != want {
		return fmt.Errorf("%s = %q, want %q", path, got, want)
	}
	return nil
}
