package news

import "time"

type NewsUpdate struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	ImageURL    *string    `json:"image_url"`
	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at"`
	AuthorID    *int64     `json:"author_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateNewsRequest struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	ImageURL    *string `json:"image_url"`
	IsPublished bool    `json:"is_published"`
	AuthorID    int64   `json:"-"`
}

type UpdateNewsRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	ImageURL *string `json:"image_url"`
}
