package tableau

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// Download writes the workbook's content into destDir and returns the file path.
// The file name comes from the Content-Disposition header, falling back to <id>.twbx.
func (c *Client) Download(ctx context.Context, id, destDir string) (string, error) {
	op := "download " + id
	resp, err := c.do(ctx, call{
		op:   op,
		path: "workbooks/" + url.PathEscape(id) + "/content",
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(destDir, 0700); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	name := contentFilename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = id + ".twbx"
	}
	dest := filepath.Join(destDir, name)

	tmp, err := os.CreateTemp(destDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", classifyTransportError(ctx, op, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return dest, nil
}

// contentFilename extracts a safe base name from a Content-Disposition value.
// The server omits the disposition type, so one is supplied when missing.
func contentFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		if _, params, err = mime.ParseMediaType("attachment; " + header); err != nil {
			return ""
		}
	}
	name := filepath.Base(strings.ReplaceAll(params["filename"], "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

type publishRequest struct {
	Workbook struct {
		Name    string `json:"name"`
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
	} `json:"workbook"`
}

// Upload publishes a local workbook into the configured project and returns its ID.
func (c *Client) Upload(ctx context.Context, path string, mode domain.PublishMode) (string, error) {
	op := "publish " + filepath.Base(path)
	if !mode.IsValid() {
		return "", fmt.Errorf("%s: %w: publish mode %q", op, domain.ErrInvalidInput, mode)
	}
	if c.cfg.PublishProjectID == "" {
		return "", fmt.Errorf("%s: %w: server.publish_project_id is not set", op, domain.ErrNotConfigured)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	q := url.Values{"workbookType": {strings.TrimPrefix(ext, ".")}}
	switch mode {
	case domain.PublishOverwrite:
		q.Set("overwrite", "true")
	case domain.PublishAppend:
		q.Set("append", "true")
	case domain.PublishCreateNew:
		q.Set("overwrite", "false")
	}

	var out struct {
		Workbook struct {
			ID string `json:"id"`
		} `json:"workbook"`
	}
	resp, err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   "workbooks",
		query:  q,
		body: func() (io.Reader, string, error) {
			return c.publishBody(path)
		},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if out.Workbook.ID == "" {
		return "", fmt.Errorf("%s: server returned no workbook id", op)
	}
	return out.Workbook.ID, nil
}

// publishBody builds the multipart/mixed payload: a JSON request part
// followed by the workbook file.
func (c *Client) publishBody(path string) (io.Reader, string, error) {
	var req publishRequest
	req.Workbook.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	req.Workbook.Project.ID = c.cfg.PublishProjectID
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`name="request_payload"`},
		"Content-Type":        {"application/json"},
	})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}

	part, err = mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`name="tableau_workbook"; filename=%q`, filepath.Base(path))},
		"Content-Type":        {"application/octet-stream"},
	})
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, "multipart/mixed; boundary=" + mw.Boundary(), nil
}
