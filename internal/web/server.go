// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ferret-risk/internal/config"
	"ferret-risk/internal/core"
	"ferret-risk/internal/detector"
	"ferret-risk/internal/extract"
	"ferret-risk/internal/formatters"
	"ferret-risk/internal/report"
	"ferret-risk/internal/version"

	// Import formatters to register them
	_ "ferret-risk/internal/formatters/csv"
	_ "ferret-risk/internal/formatters/json"
	_ "ferret-risk/internal/formatters/text"
	_ "ferret-risk/internal/formatters/yaml"
)

const (
	// maxUploadSize bounds multipart uploads held in memory and on disk.
	maxUploadSize = 100 << 20
	// maxReportBody bounds POST /report request bodies.
	maxReportBody = 32 << 20
	portAttempts  = 10
)

// WebServer represents the web server instance
type WebServer struct {
	port    string
	scanner *core.Scanner
	rules   []string
	labels  map[detector.Label]bool
	logger  *slog.Logger
	server  *http.Server
}

// ScanResponse is the JSON body of /scan and /report. Raw is returned so a
// client can post it back to /report with a different label set.
type ScanResponse struct {
	Success   bool           `json:"success"`
	RequestID string         `json:"request_id,omitempty"`
	Result    *report.Result `json:"result,omitempty"`
	Raw       *core.Raw      `json:"raw,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ReportRequest is the JSON body of POST /report.
type ReportRequest struct {
	Raw core.Raw `json:"raw"`
	// Labels overrides the labels recorded in Raw. An empty list disables
	// every label; omit the field to keep the recorded ones.
	Labels []string `json:"labels"`
}

// NewWebServer creates a new web server instance. cfg supplies the default
// rule and label policy; nil uses the built-in defaults.
func NewWebServer(port string, scanner *core.Scanner, cfg *config.Config, logger *slog.Logger) *WebServer {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebServer{
		port:    port,
		scanner: scanner,
		rules:   cfg.RuleList(),
		labels:  detector.ParseLabels(cfg.Defaults.Labels),
		logger:  logger,
	}
}

// Start listens on the configured port, moving to the next one when it is
// busy, and serves until Stop is called.
func (ws *WebServer) Start() error {
	base, err := strconv.Atoi(ws.port)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", ws.port, err)
	}

	var lastError error
	for i := 0; i < portAttempts; i++ {
		currentPort := strconv.Itoa(base + i)

		listener, err := net.Listen("tcp", ":"+currentPort)
		if err != nil {
			lastError = err
			if i == 0 {
				ws.logger.Warn("port not available, trying alternative ports", "port", currentPort)
			}
			continue
		}

		ws.server = ws.createSecureServer(currentPort)
		ws.logger.Info("ferret-risk API started", "port", currentPort, "url", "http://localhost:"+currentPort)

		if err := ws.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server on port %s failed: %w", currentPort, err)
		}
		return nil
	}

	return fmt.Errorf("could not find an available port in range %d-%d\n"+
		"Last error: %v\n"+
		"Troubleshooting:\n"+
		"  1. Try a specific port with --port <number>\n"+
		"  2. Ensure you have permission to bind to the requested port", base, base+portAttempts-1, lastError)
}

// Stop stops the web server
func (ws *WebServer) Stop() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}

// Handler returns the API routes.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/formats", ws.handleFormats)
	mux.HandleFunc("/scan", ws.handleScan)
	mux.HandleFunc("/report", ws.handleReport)
	return mux
}

// createSecureServer creates an HTTP server with security timeouts
func (ws *WebServer) createSecureServer(port string) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Scans wait on the recognizer, so writes get more room than reads.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// handleHealth provides a health check endpoint with version information
func (ws *WebServer) handleHealth(responseWriter http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(responseWriter, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	versionInfo := version.Full()
	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "ferret-risk",
		"version":   versionInfo["version"],
		"ner":       ws.scanner.Recognizer != nil,
		"build_info": map[string]interface{}{
			"version":    versionInfo["version"],
			"commit":     versionInfo["commit"],
			"build_date": versionInfo["buildDate"],
			"go_version": versionInfo["goVersion"],
			"platform":   versionInfo["platform"],
		},
	}

	writeJSON(responseWriter, http.StatusOK, healthData)
}

// handleFormats lists the export formats accepted by /scan and /report
func (ws *WebServer) handleFormats(responseWriter http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(responseWriter, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(responseWriter, http.StatusOK, formatters.GetSupportedFormats())
}

// handleScan runs the full pipeline on one uploaded file. Form fields:
// file (required), rules, labels, format.
func (ws *WebServer) handleScan(responseWriter http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(responseWriter, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	request.Body = http.MaxBytesReader(responseWriter, request.Body, maxUploadSize)
	if err := request.ParseMultipartForm(32 << 20); err != nil {
		ws.sendError(responseWriter, "Failed to parse form data")
		return
	}

	file, header, err := request.FormFile("file")
	if err != nil {
		ws.sendError(responseWriter, "No file uploaded")
		return
	}
	defer file.Close()

	filename := ws.sanitizeFilenameForDisplay(header.Filename)
	if !extract.Supported(filename) {
		ws.sendError(responseWriter, fmt.Sprintf("file type not supported: %s", filename))
		return
	}

	tempPath, err := ws.saveUpload(file, filename)
	if err != nil {
		ws.sendErrorWithStatus(responseWriter, err.Error(), http.StatusInternalServerError)
		return
	}
	defer os.Remove(tempPath)

	rules := ws.rules
	if v := request.FormValue("rules"); v != "" {
		rules = config.SplitList(v)
	}
	labels := ws.labels
	if v := request.FormValue("labels"); v != "" {
		labels = detector.ParseLabels(v)
	}

	result, err := ws.scanner.ScanFile(request.Context(), core.ScanConfig{
		FilePath: tempPath,
		Name:     filename,
		Rules:    rules,
		Labels:   labels,
	})
	if err != nil {
		ws.logger.Warn("scan failed", "file", filename, "error", err)
		ws.sendError(responseWriter, fmt.Sprintf("scanning failed: %v", err))
		return
	}

	ws.respond(responseWriter, request.FormValue("format"), result)
}

// handleReport rebuilds a report from raw detector output. Query
// parameters: format, labels.
func (ws *WebServer) handleReport(responseWriter http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(responseWriter, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body ReportRequest
	decoder := json.NewDecoder(http.MaxBytesReader(responseWriter, request.Body, maxReportBody))
	if err := decoder.Decode(&body); err != nil {
		ws.sendError(responseWriter, fmt.Sprintf("Invalid report request: %v", err))
		return
	}

	var labels map[detector.Label]bool
	switch {
	case request.URL.Query().Get("labels") != "":
		labels = detector.ParseLabels(request.URL.Query().Get("labels"))
	case len(body.Labels) > 0:
		labels = detector.ParseLabels(strings.Join(body.Labels, ","))
	case body.Labels != nil:
		labels = map[detector.Label]bool{}
	}

	result := ws.scanner.Rebuild(body.Raw, labels)
	ws.respond(responseWriter, request.URL.Query().Get("format"), result)
}

// respond writes result as a ScanResponse, or as an export download when a
// format is requested.
func (ws *WebServer) respond(responseWriter http.ResponseWriter, format string, result *core.ScanResult) {
	if format == "" {
		raw := result.Raw
		writeJSON(responseWriter, http.StatusOK, ScanResponse{
			Success:   true,
			RequestID: result.RequestID,
			Result:    result.Result,
			Raw:       &raw,
		})
		return
	}

	content, mimeType, filename, err := formatters.ExportForWeb(format, result.Result, formatters.FormatterOptions{
		Verbose: true,
		NoColor: true,
	})
	if err != nil {
		ws.sendError(responseWriter, err.Error())
		return
	}
	responseWriter.Header().Set("Content-Type", mimeType)
	responseWriter.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	responseWriter.WriteHeader(http.StatusOK)
	io.WriteString(responseWriter, content)
}

// saveUpload copies an upload to a temp file keeping its extension.
func (ws *WebServer) saveUpload(src io.Reader, filename string) (string, error) {
	tempFile, err := os.CreateTemp("", "ferret_upload_*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, io.LimitReader(src, maxUploadSize)); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to copy file content: %w", err)
	}
	return tempFile.Name(), nil
}

// sendError sends an error response with enhanced error information
func (ws *WebServer) sendError(responseWriter http.ResponseWriter, message string) {
	ws.sendErrorWithStatus(responseWriter, message, http.StatusBadRequest)
}

// sendErrorWithStatus sends an error response with a specific HTTP status code
func (ws *WebServer) sendErrorWithStatus(responseWriter http.ResponseWriter, message string, statusCode int) {
	writeJSON(responseWriter, statusCode, ScanResponse{
		Success: false,
		Error:   ws.enhanceErrorMessage(message, statusCode),
	})
}

// enhanceErrorMessage adds troubleshooting information to error messages
func (ws *WebServer) enhanceErrorMessage(message string, statusCode int) string {
	switch {
	case strings.Contains(message, "Failed to parse form data"):
		return message + "\nTroubleshooting: Upload the document as multipart/form-data in the 'file' field"
	case strings.Contains(message, "No file uploaded"):
		return message + "\nTroubleshooting: Attach a document in the 'file' form field"
	case strings.Contains(message, "file type not supported"):
		return message + "\nTroubleshooting: Supported extensions are " + strings.Join(extract.Extensions(), ", ")
	case strings.Contains(message, "unsupported format"):
		return message + "\nTroubleshooting: GET /formats lists the available export formats"
	case statusCode == http.StatusInternalServerError:
		return message + "\nTroubleshooting: Check server logs for detailed error information"
	default:
		return message
	}
}

// sanitizeUserInput removes dangerous characters from user input for safe output
func sanitizeUserInput(input string, maxLength int) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, input)

	if runes := []rune(sanitized); len(runes) > maxLength {
		sanitized = string(runes[:maxLength])
	}
	return sanitized
}

// sanitizeFilenameForDisplay reduces an uploaded filename to a safe base name
func (ws *WebServer) sanitizeFilenameForDisplay(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = sanitizeUserInput(name, 255)
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}

func writeJSON(responseWriter http.ResponseWriter, status int, v interface{}) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(status)
	json.NewEncoder(responseWriter).Encode(v)
}
