package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// uploadChunkSize is the resumable-upload chunk length in bytes.
const uploadChunkSize = 4 << 20

// ObjectMeta describes a stored object.
type ObjectMeta struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Updated     string `json:"updated"`
}

// ProgressFunc receives (bytesDone, bytesTotal) after each uploaded chunk.
type ProgressFunc func(done, total int64)

// StorageClient talks to the hosted object-storage service over HTTP.
type StorageClient struct {
	client *http.Client
	logger *zap.Logger
}

// NewStorageClient creates a new object-storage HTTP client
func NewStorageClient(logger *zap.Logger) *StorageClient {
	return &StorageClient{
		client: &http.Client{},
		logger: logger,
	}
}

// Upload streams an object to the store through the resumable protocol:
// a session POST yields an upload URI, then chunks go up with Content-Range
// headers, reporting progress after each one.
func (s *StorageClient) Upload(ctx context.Context, path string, r io.Reader, size int64, progress ProgressFunc) error {
	sessionURL, err := s.startSession(ctx, path)
	if err != nil {
		return errors.Wrap(err, "failed to start upload session")
	}

	var done int64
	buf := make([]byte, uploadChunkSize)
	for done < size {
		n, readErr := io.ReadFull(r, buf)
		if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
			return errors.Wrap(readErr, "failed to read upload chunk")
		}
		if n == 0 {
			break
		}

		httpReq, err := http.NewRequestWithContext(ctx, "PUT", sessionURL, bytes.NewReader(buf[:n]))
		if err != nil {
			return errors.Wrap(err, "failed to create chunk request")
		}
		httpReq.Header.Set("Content-Type", "application/octet-stream")
		httpReq.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", done, done+int64(n)-1, size))

		resp, err := s.client.Do(httpReq)
		if err != nil {
			return errors.Wrap(err, "failed to upload chunk")
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		// 308 means the store expects more chunks.
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusPermanentRedirect {
			return errors.Errorf("storage service returned non-200 status: %d", resp.StatusCode)
		}

		done += int64(n)
		if progress != nil {
			progress(done, size)
		}
	}

	s.logger.Info("Upload complete", zap.String("path", path), zap.Int64("size", size))
	return nil
}

func (s *StorageClient) startSession(ctx context.Context, path string) (string, error) {
	baseURL := viper.GetString("storage.base_url")

	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/upload?path="+url.QueryEscape(path), nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("storage service returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	var session struct {
		UploadURL string `json:"uploadUrl"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return "", err
	}
	return session.UploadURL, nil
}

// Metadata fetches a stored object's metadata.
func (s *StorageClient) Metadata(ctx context.Context, path string) (*ObjectMeta, error) {
	baseURL := viper.GetString("storage.base_url")

	httpReq, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/metadata?path="+url.QueryEscape(path), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send HTTP request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("storage service returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	var meta ObjectMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response JSON")
	}
	return &meta, nil
}

// DownloadURL fetches a short-lived download link for a stored object.
func (s *StorageClient) DownloadURL(ctx context.Context, path string) (string, error) {
	baseURL := viper.GetString("storage.base_url")

	httpReq, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/download-url?path="+url.QueryEscape(path), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create HTTP request")
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "failed to send HTTP request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("storage service returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal response JSON")
	}
	return payload.URL, nil
}
