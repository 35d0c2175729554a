package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golbarg/internal/domain/gallery"
	"golbarg/internal/params"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

// uploadGalleryItemHandler godoc
//
//	@Summary		Upload a gallery photo
//	@Description	Uploads a photo to Cloudinary and records it in the gallery. Caption, category and featured flag come from form fields.
//	@Tags			admin
//	@Accept			mpfd
//	@Produce		json
//	@Param			photo		formData	file	true	"Photo file, size limit is 5MB"
//	@Param			caption		formData	string	false	"Caption"
//	@Param			category	formData	string	false	"Category"
//	@Param			featured	formData	bool	false	"Show on the landing page"
//	@Success		201			{object}	gallery.GalleryItem
//	@Failure		400			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/gallery [post]
func (app *application) uploadGalleryItemHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		http.Error(w, "Unable to parse form, file size limit is 5MB", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" {
		http.Error(w, "Only JPEG and PNG images are allowed", http.StatusBadRequest)
		return
	}

	publicID := fmt.Sprintf("gallery_%d", time.Now().UnixNano())
	uploadResult, err := app.cld.Upload.Upload(r.Context(), file, uploader.UploadParams{
		Folder:    "gallery",
		PublicID:  publicID,
		Overwrite: api.Bool(false),
	})
	if err != nil {
		http.Error(w, "Failed to upload image to Cloudinary", http.StatusInternalServerError)
		return
	}

	req := gallery.CreateItemRequest{
		URL:        uploadResult.SecureURL,
		IsFeatured: r.FormValue("featured") == "true",
		UploadedBy: user.ID,
	}
	if caption := r.FormValue("caption"); caption != "" {
		req.Caption = &caption
	}
	if category := r.FormValue("category"); category != "" {
		req.Category = &category
	}

	item, err := app.store.Gallery.Create(r.Context(), req)
	if err != nil {
		// Orphaned upload, remove it so Cloudinary stays in sync with the table.
		if delErr := app.deletePhotoFromCloudinary(uploadResult.SecureURL); delErr != nil {
			app.logger.Errorw("failed to clean up gallery upload", "error", delErr)
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, item); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listGalleryHandler godoc
//
//	@Summary		List gallery photos
//	@Description	Returns gallery photos for the public site, optionally filtered by category or featured flag
//	@Tags			gallery
//	@Produce		json
//	@Param			category	query		string	false	"Category filter"
//	@Param			featured	query		bool	false	"Only featured photos"
//	@Param			page		query		int		false	"Page number"
//	@Param			limit		query		int		false	"Items per page"
//	@Success		200			{object}	map[string]any
//	@Failure		500			{object}	error
//	@Router			/gallery [get]
func (app *application) listGalleryHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := params.ParsePagination(q)

	category := q.Get("category")
	featuredOnly := q.Get("featured") == "true"

	list, total, err := app.store.Gallery.List(r.Context(), category, featuredOnly, pg.Limit, pg.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	pg.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"gallery":    list,
		"pagination": pg,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type SetFeaturedPayload struct {
	Featured bool `json:"featured"`
}

// setGalleryFeaturedHandler godoc
//
//	@Summary		Feature or unfeature a gallery photo
//	@Tags			admin
//	@Accept			json
//	@Param			itemID	path	int					true	"Gallery item ID"
//	@Param			payload	body	SetFeaturedPayload	true	"Featured flag"
//	@Success		204
//	@Failure		404	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/gallery/{itemID}/featured [put]
func (app *application) setGalleryFeaturedHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid gallery item ID"))
		return
	}

	var payload SetFeaturedPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Gallery.SetFeatured(r.Context(), itemID, payload.Featured); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// deleteGalleryItemHandler godoc
//
//	@Summary		Delete a gallery photo
//	@Description	Removes the photo from the gallery and from Cloudinary
//	@Tags			admin
//	@Param			itemID	path	int	true	"Gallery item ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/gallery/{itemID} [delete]
func (app *application) deleteGalleryItemHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid gallery item ID"))
		return
	}

	item, err := app.store.Gallery.GetByID(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Gallery.Delete(r.Context(), itemID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.deletePhotoFromCloudinary(item.URL); err != nil {
		app.logger.Errorw("failed to delete gallery photo from cloudinary", "url", item.URL, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
