package gallery

import "time"

type GalleryItem struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	Caption    *string   `json:"caption"`
	Category   *string   `json:"category"`
	IsFeatured bool      `json:"is_featured"`
	UploadedBy *int64    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateItemRequest struct {
	URL        string  `json:"url"`
	Caption    *string `json:"caption"`
	Category   *string `json:"category"`
	IsFeatured bool    `json:"is_featured"`
	UploadedBy int64   `json:"-"`
}
