package scenarios

import (
	"net/http"
	"os"
	"strconv"
	"testing"

	"tasksapitest/internal/httpclient"
)

type task struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IsDone      bool    `json:"is_done"`
}

type taskPage struct {
	Items []task `json:"items"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

type createRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

type updateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsDone      *bool   `json:"is_done,omitempty"`
}

// newTaskAPIClient targets the API at API_BASE (default http://localhost:8080)
// and skips the test when the service is not reachable.
func newTaskAPIClient(t *testing.T) *httpclient.Client {
	t.Helper()

	base := os.Getenv("API_BASE")
	if base == "" {
		base = "http://localhost:8080"
	}
	if _, err := http.Get(base + "/health"); err != nil {
		t.Skipf("skipping, API not reachable: %v", err)
	}
	return httpclient.New(base)
}

func createTask(t *testing.T, client *httpclient.Client, title string) task {
	t.Helper()

	var created task
	resp, err := client.PostJSON("/tasks", createRequest{Title: title}, &created)
	if err != nil {
		t.Fatalf("create task %q: %v", title, err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task %q: expected 201 got %d", title, resp.StatusCode)
	}
	t.Cleanup(func() {
		_, _ = client.Delete(taskPath(created.ID))
	})
	return created
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}
