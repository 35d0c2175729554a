package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golbarg/internal/domain/news"
	"golbarg/internal/notifications"
	"golbarg/internal/params"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

type CreateNewsPayload struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Content     string  `json:"content" validate:"required"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	IsPublished bool    `json:"is_published"`
}

// createNewsHandler godoc
//
//	@Summary		Create a news update
//	@Description	Creates a news update, optionally publishing it right away
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateNewsPayload	true	"News fields"
//	@Success		201		{object}	news.NewsUpdate
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/news [post]
func (app *application) createNewsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload CreateNewsPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	item, err := app.store.News.Create(r.Context(), news.CreateNewsRequest{
		Title:       payload.Title,
		Content:     payload.Content,
		ImageURL:    payload.ImageURL,
		IsPublished: payload.IsPublished,
		AuthorID:    user.ID,
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if item.IsPublished {
		if err := notifications.SendNewsToParents(r.Context(), app.push, app.store, item.ID, item.Title); err != nil {
			app.logger.Warnw("news push failed", "news_id", item.ID, "error", err)
		}
	}

	if err := app.jsonResponse(w, http.StatusCreated, item); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listNewsHandler godoc
//
//	@Summary		List published news
//	@Description	Returns published news updates for the public site, newest first
//	@Tags			news
//	@Produce		json
//	@Param			page	query		int	false	"Page number"
//	@Param			limit	query		int	false	"Items per page"
//	@Success		200		{object}	map[string]any
//	@Failure		500		{object}	error
//	@Router			/news [get]
func (app *application) listNewsHandler(w http.ResponseWriter, r *http.Request) {
	pg := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.News.ListPublished(r.Context(), pg.Limit, pg.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	pg.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"news":       list,
		"pagination": pg,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getNewsHandler godoc
//
//	@Summary		Get a news update
//	@Description	Returns a single published news update
//	@Tags			news
//	@Produce		json
//	@Param			newsID	path		int	true	"News ID"
//	@Success		200		{object}	news.NewsUpdate
//	@Failure		404		{object}	error
//	@Router			/news/{newsID} [get]
func (app *application) getNewsHandler(w http.ResponseWriter, r *http.Request) {
	newsID, err := strconv.ParseInt(chi.URLParam(r, "newsID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid news ID"))
		return
	}

	item, err := app.store.News.GetByID(r.Context(), newsID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	// Drafts stay hidden from the public site.
	if !item.IsPublished {
		app.notFoundResponse(w, r, errors.New("news not published"))
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, item); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminListNewsHandler godoc
//
//	@Summary		List all news updates
//	@Description	Returns every news update including drafts
//	@Tags			admin
//	@Produce		json
//	@Param			page	query		int	false	"Page number"
//	@Param			limit	query		int	false	"Items per page"
//	@Success		200		{object}	map[string]any
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/news [get]
func (app *application) adminListNewsHandler(w http.ResponseWriter, r *http.Request) {
	pg := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.News.ListAll(r.Context(), pg.Limit, pg.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	pg.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"news":       list,
		"pagination": pg,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateNewsPayload struct {
	Title    *string `json:"title" validate:"omitempty,max=200"`
	Content  *string `json:"content"`
	ImageURL *string `json:"image_url" validate:"omitempty,url"`
}

// updateNewsHandler godoc
//
//	@Summary		Update a news update
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			newsID	path		int					true	"News ID"
//	@Param			payload	body		UpdateNewsPayload	true	"Fields to update"
//	@Success		200		{object}	news.NewsUpdate
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/news/{newsID} [patch]
func (app *application) updateNewsHandler(w http.ResponseWriter, r *http.Request) {
	newsID, err := strconv.ParseInt(chi.URLParam(r, "newsID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid news ID"))
		return
	}

	var payload UpdateNewsPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	item, err := app.store.News.Update(r.Context(), newsID, news.UpdateNewsRequest{
		Title:    payload.Title,
		Content:  payload.Content,
		ImageURL: payload.ImageURL,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, item); err != nil {
		app.internalServerError(w, r, err)
	}
}

type PublishNewsPayload struct {
	Published bool `json:"published"`
}

// publishNewsHandler godoc
//
//	@Summary		Publish or unpublish a news update
//	@Description	Toggles the published flag. Publishing for the first time notifies every parent.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			newsID	path		int					true	"News ID"
//	@Param			payload	body		PublishNewsPayload	true	"Publish flag"
//	@Success		200		{object}	news.NewsUpdate
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/news/{newsID}/publish [put]
func (app *application) publishNewsHandler(w http.ResponseWriter, r *http.Request) {
	newsID, err := strconv.ParseInt(chi.URLParam(r, "newsID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid news ID"))
		return
	}

	var payload PublishNewsPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	before, err := app.store.News.GetByID(r.Context(), newsID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	item, err := app.store.News.SetPublished(r.Context(), newsID, payload.Published)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if payload.Published && !before.IsPublished {
		if err := notifications.SendNewsToParents(r.Context(), app.push, app.store, item.ID, item.Title); err != nil {
			app.logger.Warnw("news push failed", "news_id", item.ID, "error", err)
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, item); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteNewsHandler godoc
//
//	@Summary		Delete a news update
//	@Tags			admin
//	@Param			newsID	path	int	true	"News ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/news/{newsID} [delete]
func (app *application) deleteNewsHandler(w http.ResponseWriter, r *http.Request) {
	newsID, err := strconv.ParseInt(chi.URLParam(r, "newsID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid news ID"))
		return
	}

	if err := app.store.News.Delete(r.Context(), newsID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
