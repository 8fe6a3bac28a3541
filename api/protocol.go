package api

import "github.com/jyanimaulik/task-manager/domain"

const taskBodyMaxSize = 16 * 1024 // 16 KiB

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsDone      *bool   `json:"is_done"`
}

// taskPage is the paged-result envelope for list and search responses.
type taskPage struct {
	Items []domain.Task `json:"items"`
	Total int           `json:"total"`
	Skip  int           `json:"skip"`
	Limit int           `json:"limit"`
}

type healthResponse struct {
	Status string `json:"status"`
}
