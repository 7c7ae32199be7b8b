package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/http"
	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

func testClient(srv *httptest.Server) *Client {
	c := NewClient("gh-token")
	c.SetBaseURL(srv.URL)
	c.SetRetryConfig(llmhttp.RetryConfig{MaxRetries: 0, Multiplier: 1})
	return c
}

func TestFetchReviewContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"number": 7, "title": "Add cache", "head": {"sha": "abc123"}}`))
	})
	mux.HandleFunc("/repos/acme/widgets/pulls/7/files", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"filename": "cache.py", "status": "modified", "patch": "@@ -1 +1 @@", "additions": 3, "deletions": 1},
			{"filename": "old.py", "status": "removed", "patch": "", "additions": 0, "deletions": 10}
		]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rc, err := testClient(srv).FetchReviewContext(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)

	assert.Equal(t, "acme/widgets", rc.Repository)
	assert.Equal(t, 7, rc.PRNumber)
	assert.Equal(t, "Add cache", rc.Title)
	assert.Equal(t, "abc123", rc.HeadSHA)
	require.Len(t, rc.Diff.Files, 2)
	assert.Equal(t, domain.FileModified, rc.Diff.Files[0].Status)
	assert.Equal(t, []string{"cache.py"}, rc.Diff.ChangedPaths(), "removed files are not analyzed")
}

func TestFetchDiffPaginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls/7", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"number": 7, "title": "big", "head": {"sha": "s"}}`))
	})
	mux.HandleFunc("/repos/acme/widgets/pulls/7/files", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var files []pullRequestFile
		if page == 1 {
			for i := 0; i < perPage; i++ {
				files = append(files, pullRequestFile{Filename: fmt.Sprintf("f%d.py", i), Status: "modified"})
			}
		} else {
			files = append(files, pullRequestFile{Filename: "last.py", Status: "added"})
		}
		require.NoError(t, json.NewEncoder(w).Encode(files))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rc, err := testClient(srv).FetchReviewContext(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)
	assert.Len(t, rc.Diff.Files, perPage+1)
}

func TestFetchFile(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("model_provider: ollama\n"))
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/contents/.reviewbuddy.yml", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc123", r.URL.Query().Get("ref"))
		_, _ = fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "content": %q}`, content)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	data, err := testClient(srv).FetchFile(context.Background(), "acme", "widgets", ".reviewbuddy.yml", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "model_provider: ollama\n", string(data))
}

func TestFetchFileMissingReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	}))
	defer srv.Close()

	data, err := testClient(srv).FetchFile(context.Background(), "acme", "widgets", ".reviewbuddy.yml", "")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestUpsertCommentCreatesWhenNoMarker(t *testing.T) {
	var posted string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"id": 1, "body": "unrelated comment"}]`))
		case http.MethodPost:
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			posted = payload["body"]
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 2}`))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	err := testClient(srv).UpsertComment(context.Background(), "acme", "widgets", 7, "<!-- reviewbuddy -->", "new body")
	require.NoError(t, err)
	assert.Equal(t, "new body", posted)
}

func TestUpsertCommentUpdatesMarkedComment(t *testing.T) {
	var patched string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method, "no new comment is created")
		_, _ = w.Write([]byte(`[{"id": 11, "body": "<!-- reviewbuddy -->\nold body"}]`))
	})
	mux.HandleFunc("/repos/acme/widgets/issues/comments/11", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		patched = payload["body"]
		_, _ = w.Write([]byte(`{"id": 11}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	err := testClient(srv).UpsertComment(context.Background(), "acme", "widgets", 7, "<!-- reviewbuddy -->", "updated body")
	require.NoError(t, err)
	assert.Equal(t, "updated body", patched)
}

func TestErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Bad credentials"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).FetchReviewContext(context.Background(), "acme", "widgets", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad credentials")
}

func TestPublisherUsesPRNumberFromContext(t *testing.T) {
	var posted bool
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		posted = true
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewPublisher(testClient(srv), "acme", "widgets", "<!-- reviewbuddy -->")
	err := p.Publish(context.Background(), domain.ReviewContext{PRNumber: 42}, "body")
	require.NoError(t, err)
	assert.True(t, posted)
}
