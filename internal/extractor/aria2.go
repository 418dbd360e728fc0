package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"medidown/internal/model"
)

// Aria2 fetches direct media URLs through an aria2c daemon's JSON-RPC
// endpoint. It is the alternate, segmented transport: same Extractor
// contract, selected by configuration. Extraction-requiring platforms stay
// on the yt-dlp engine.
type Aria2 struct {
	rpcURL       string
	secret       string
	client       *http.Client
	pollInterval time.Duration
	cleanupGrace time.Duration
}

// NewAria2 builds the adapter. grace bounds the detached cleanup calls that
// run after a cancel or failure.
func NewAria2(rpcURL, secret string, grace time.Duration) *Aria2 {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Aria2{
		rpcURL:       rpcURL,
		secret:       secret,
		client:       &http.Client{Timeout: 10 * time.Second},
		pollInterval: time.Second,
		cleanupGrace: grace,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      string `json:"id"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

func (a *Aria2) call(ctx context.Context, method string, out any, params ...any) error {
	// With a secret configured, aria2 expects "token:<secret>" first.
	finalParams := make([]any, 0, len(params)+1)
	if a.secret != "" {
		finalParams = append(finalParams, "token:"+a.secret)
	}
	finalParams = append(finalParams, params...)

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		ID:      "medidown",
		Params:  finalParams,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.rpcURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return err
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out != nil {
		return json.Unmarshal(rpcResp.Result, out)
	}
	return nil
}

func (a *Aria2) addURI(ctx context.Context, uri, dir, out string) (string, error) {
	opts := map[string]any{
		"dir": dir,
		"out": out,
	}
	var gid string
	if err := a.call(ctx, "aria2.addUri", &gid, []string{uri}, opts); err != nil {
		return "", err
	}
	return gid, nil
}

type aria2Status struct {
	Status          string `json:"status"`
	TotalLength     string `json:"totalLength"`
	CompletedLength string `json:"completedLength"`
	DownloadSpeed   string `json:"downloadSpeed"`
	ErrorMessage    string `json:"errorMessage"`
}

func (a *Aria2) tellStatus(ctx context.Context, gid string) (aria2Status, error) {
	var st aria2Status
	keys := []string{"status", "totalLength", "completedLength", "downloadSpeed", "errorMessage"}
	err := a.call(ctx, "aria2.tellStatus", &st, gid, keys)
	return st, err
}

func (a *Aria2) forceRemove(gid string) {
	// Detached from the task context: cleanup must run even after cancel.
	ctx, cancel := context.WithTimeout(context.Background(), a.cleanupGrace)
	defer cancel()
	if err := a.call(ctx, "aria2.forceRemove", nil, gid); err != nil {
		logrus.WithField("gid", gid).Debugf("aria2 forceRemove: %v", err)
	}
	a.call(ctx, "aria2.removeDownloadResult", nil, gid)
}

func (a *Aria2) Fetch(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	out := req.TaskID + outputExt(req.URL)

	gid, err := a.addURI(ctx, req.URL, req.DestDir, out)
	if err != nil {
		return nil, Classify(err)
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.forceRemove(gid)
			return nil, Classify(ctx.Err())
		case <-ticker.C:
		}

		st, err := a.tellStatus(ctx, gid)
		if err != nil {
			if ctx.Err() != nil {
				a.forceRemove(gid)
				return nil, Classify(ctx.Err())
			}
			return nil, Classify(err)
		}

		total, _ := strconv.ParseInt(st.TotalLength, 10, 64)
		completed, _ := strconv.ParseInt(st.CompletedLength, 10, 64)
		speed, _ := strconv.ParseInt(st.DownloadSpeed, 10, 64)

		if total > 0 {
			percent := float64(completed) / float64(total) * 100
			speedStr := ""
			etaSec := -1
			if speed > 0 {
				speedStr = humanize.Bytes(uint64(speed)) + "/s"
				etaSec = int((total - completed) / speed)
			}
			onProgress(percent, speedStr, etaSec)
		}

		switch st.Status {
		case "complete":
			return &Result{Path: filepath.Join(req.DestDir, out)}, nil
		case "error":
			a.forceRemove(gid)
			msg := st.ErrorMessage
			if msg == "" {
				msg = "download failed"
			}
			return nil, Classify(fmt.Errorf("aria2: %s", msg))
		case "removed":
			return nil, model.NewTaskError(model.KindCanceled, "download canceled", nil)
		}
	}
}

// outputExt keeps the source extension when the URL path carries one, so
// the artifact stays playable without sniffing.
func outputExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".bin"
	}
	if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}
