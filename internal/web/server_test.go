// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ferret-risk/internal/core"
	"ferret-risk/internal/detector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memo = "고객 홍길동 연락처 hong@example.com"

type stubRecognizer struct{}

func (stubRecognizer) Recognize(_ context.Context, text string) ([]detector.Prediction, error) {
	if !strings.Contains(text, "홍길동") {
		return nil, nil
	}
	return []detector.Prediction{
		{Label: detector.LabelPerson, Text: "홍길동", Score: detector.Score(0.8), Start: 3, End: 6},
	}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	scanner := core.NewScanner()
	scanner.Recognizer = stubRecognizer{}
	srv := httptest.NewServer(NewWebServer("0", scanner, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, url, filename, content string, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	resp, err := http.Post(url, w.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) ScanResponse {
	t.Helper()
	var out ScanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["ner"])

	resp, err = http.Post(srv.URL+"/health", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestFormats(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/formats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var formats []map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&formats))
	require.Len(t, formats, 4)
	assert.Equal(t, "csv", formats[0]["name"])
}

func TestScan(t *testing.T) {
	srv := newTestServer(t)
	resp := upload(t, srv.URL+"/scan", "../../memo.txt", memo, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	require.True(t, out.Success)
	require.NotNil(t, out.Result)
	require.NotNil(t, out.Raw)
	assert.NotEmpty(t, out.RequestID)
	assert.Equal(t, "memo.txt", out.Result.Report.Document.Name)
	assert.Equal(t, 1, out.Result.Report.Stats.ByLabel["PS"])
	assert.Contains(t, out.Result.Report.Stats.RulesFired, "email")
	assert.Equal(t, memo, out.Raw.Text)
}

func TestScan_LabelsAndFormat(t *testing.T) {
	srv := newTestServer(t)
	resp := upload(t, srv.URL+"/scan", "memo.txt", memo, map[string]string{"labels": "LC", "format": "csv"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "ferret-risk-report.csv")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "entity,")
	assert.Contains(t, string(data), "email")
}

func TestScan_Errors(t *testing.T) {
	srv := newTestServer(t)

	resp := upload(t, srv.URL+"/scan", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, resp).Error, "No file uploaded")

	resp = upload(t, srv.URL+"/scan", "tool.exe", "MZ", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, resp).Error, "file type not supported")

	resp = upload(t, srv.URL+"/scan", "memo.txt", memo, map[string]string{"rules": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, resp).Error, "unknown rules")
}

func TestReport_TogglesLabels(t *testing.T) {
	srv := newTestServer(t)
	scanned := decode(t, upload(t, srv.URL+"/scan", "memo.txt", memo, nil))
	require.True(t, scanned.Success)

	body, err := json.Marshal(ReportRequest{Raw: *scanned.Raw, Labels: []string{"OG"}})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/report", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	out := decode(t, resp)
	require.True(t, out.Success)
	assert.Empty(t, out.Result.Report.Stats.ByLabel)
	assert.Equal(t, []string{"OG"}, out.Result.Report.Policy.Labels)
	assert.Equal(t, scanned.Result.Report.Stats.ByKind, out.Result.Report.Stats.ByKind)
	assert.Less(t, out.Result.Report.Stats.RiskScore, scanned.Result.Report.Stats.RiskScore)
}

func TestReport_EmptyLabelListDisablesAll(t *testing.T) {
	srv := newTestServer(t)
	scanned := decode(t, upload(t, srv.URL+"/scan", "memo.txt", memo, nil))
	require.True(t, scanned.Success)
	require.Equal(t, 1, scanned.Result.Report.Stats.ByLabel["PS"])

	body, err := json.Marshal(ReportRequest{Raw: *scanned.Raw, Labels: []string{}})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"labels":[]`)

	resp, err := http.Post(srv.URL+"/report", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	out := decode(t, resp)
	require.True(t, out.Success)
	assert.Empty(t, out.Result.Report.Stats.ByLabel)
	assert.Empty(t, out.Result.Report.Policy.Labels)
	assert.NotNil(t, out.Raw.Labels)
}

func TestReport_Format(t *testing.T) {
	srv := newTestServer(t)
	raw := core.Raw{
		Text: memo,
		Candidates: []detector.Candidate{
			{Rule: "email", Value: "hong@example.com", Start: 11, End: 27, Valid: true},
		},
	}
	body, err := json.Marshal(ReportRequest{Raw: raw})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/report?format=yaml&labels=PS", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: ferret-risk/report-v1")
	assert.Contains(t, string(data), "pattern_ok: 1")

	resp2, err := http.Post(srv.URL+"/report?format=sarif", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestReport_BadBody(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/report", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSanitizeFilename(t *testing.T) {
	ws := &WebServer{}
	assert.Equal(t, "memo.txt", ws.sanitizeFilenameForDisplay(`C:\docs\memo.txt`))
	assert.Equal(t, "ab.pdf", ws.sanitizeFilenameForDisplay("a<b>.pdf"))
	assert.Equal(t, "upload", ws.sanitizeFilenameForDisplay(""))
}
