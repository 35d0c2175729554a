package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golbarg/internal/domain/children"
	"golbarg/internal/params"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

func (app *application) childFromURL(r *http.Request) (*children.Child, error) {
	childID, err := strconv.ParseInt(chi.URLParam(r, "childID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid child ID")
	}
	return app.store.Children.GetByID(r.Context(), childID)
}

type CreateChildPayload struct {
	ParentID       int64   `json:"parent_id" validate:"required"`
	Name           string  `json:"name" validate:"required,max=100"`
	BirthDate      *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Age            *int    `json:"age" validate:"omitempty,gte=0,lte=10"`
	Gender         *string `json:"gender" validate:"omitempty,oneof=male female"`
	ClassName      *string `json:"class_name" validate:"omitempty,max=50"`
	EnrollmentDate *string `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
	Notes          *string `json:"notes"`
}

func parseDatePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}

// createChildHandler godoc
//
//	@Summary		Create a child record
//	@Description	Creates a child record linked to a parent account
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateChildPayload	true	"Child details"
//	@Success		201		{object}	children.Child
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/children [post]
func (app *application) createChildHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateChildPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	child, err := app.store.Children.Create(r.Context(), children.CreateChildRequest{
		ParentID:       payload.ParentID,
		Name:           payload.Name,
		BirthDate:      parseDatePtr(payload.BirthDate),
		Age:            payload.Age,
		Gender:         payload.Gender,
		ClassName:      payload.ClassName,
		EnrollmentDate: parseDatePtr(payload.EnrollmentDate),
		Notes:          payload.Notes,
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, child); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listChildrenHandler godoc
//
//	@Summary		List own children
//	@Description	Returns the children linked to the authenticated parent
//	@Tags			children
//	@Produce		json
//	@Success		200	{array}		children.Child
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/children [get]
func (app *application) listChildrenHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	list, err := app.store.Children.ListByParent(r.Context(), user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getChildHandler godoc
//
//	@Summary		Get a child
//	@Description	Returns a single child. Parents can only see their own children.
//	@Tags			children
//	@Produce		json
//	@Param			childID	path		int	true	"Child ID"
//	@Success		200		{object}	children.Child
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/children/{childID} [get]
func (app *application) getChildHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	child, err := app.childFromURL(r)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.badRequestResponse(w, r, err)
		return
	}

	if !user.IsAdmin() && child.ParentID != user.ID {
		app.forbiddenResponse(w, r)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, child); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminListChildrenHandler godoc
//
//	@Summary		List all children
//	@Description	Returns a paginated list of every enrolled child
//	@Tags			admin
//	@Produce		json
//	@Param			page	query		int	false	"Page number"
//	@Param			limit	query		int	false	"Items per page"
//	@Success		200		{object}	map[string]any
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/children [get]
func (app *application) adminListChildrenHandler(w http.ResponseWriter, r *http.Request) {
	pg := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.Children.ListAll(r.Context(), pg.Limit, pg.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	pg.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"children":   list,
		"pagination": pg,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateChildPayload struct {
	Name           *string `json:"name" validate:"omitempty,max=100"`
	BirthDate      *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Age            *int    `json:"age" validate:"omitempty,gte=0,lte=10"`
	Gender         *string `json:"gender" validate:"omitempty,oneof=male female"`
	ClassName      *string `json:"class_name" validate:"omitempty,max=50"`
	EnrollmentDate *string `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
	Notes          *string `json:"notes"`
}

// updateChildHandler godoc
//
//	@Summary		Update a child record
//	@Description	Updates the provided fields of a child record
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			childID	path		int					true	"Child ID"
//	@Param			payload	body		UpdateChildPayload	true	"Fields to update"
//	@Success		200		{object}	children.Child
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/children/{childID} [patch]
func (app *application) updateChildHandler(w http.ResponseWriter, r *http.Request) {
	childID, err := strconv.ParseInt(chi.URLParam(r, "childID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid child ID"))
		return
	}

	var payload UpdateChildPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	child, err := app.store.Children.Update(r.Context(), childID, children.UpdateChildRequest{
		Name:           payload.Name,
		BirthDate:      parseDatePtr(payload.BirthDate),
		Age:            payload.Age,
		Gender:         payload.Gender,
		ClassName:      payload.ClassName,
		EnrollmentDate: parseDatePtr(payload.EnrollmentDate),
		Notes:          payload.Notes,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, child); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteChildHandler godoc
//
//	@Summary		Delete a child record
//	@Tags			admin
//	@Param			childID	path	int	true	"Child ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/children/{childID} [delete]
func (app *application) deleteChildHandler(w http.ResponseWriter, r *http.Request) {
	childID, err := strconv.ParseInt(chi.URLParam(r, "childID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid child ID"))
		return
	}

	if err := app.store.Children.Delete(r.Context(), childID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// uploadChildAvatarHandler godoc
//
//	@Summary		Upload a child's avatar
//	@Description	Uploads the photo to Cloudinary and stores the URL on the child record
//	@Tags			admin
//	@Accept			mpfd
//	@Produce		json
//	@Param			childID	path		int		true	"Child ID"
//	@Param			avatar	formData	file	true	"Avatar file, size limit is 2MB"
//	@Success		200		{object}	string	"Secure URL of the uploaded avatar"
//	@Failure		400		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/children/{childID}/avatar [post]
func (app *application) uploadChildAvatarHandler(w http.ResponseWriter, r *http.Request) {
	childID, err := strconv.ParseInt(chi.URLParam(r, "childID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid child ID"))
		return
	}

	if err := r.ParseMultipartForm(2 << 20); err != nil {
		http.Error(w, "Unable to parse form, file size limit is 2MB", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("avatar")
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

	uploadParams := uploader.UploadParams{
		PublicID:       fmt.Sprintf("child_%d", childID),
		Overwrite:      boolPtr(true),
		Folder:         "children",
		Transformation: "w_300,h_300,c_fill,q_auto",
	}
	uploadResult, err := app.cld.Upload.Upload(r.Context(), file, uploadParams)
	if err != nil {
		http.Error(w, "Failed to upload image to Cloudinary", http.StatusInternalServerError)
		return
	}

	if err := app.store.Children.SetAvatar(r.Context(), childID, uploadResult.SecureURL); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, uploadResult.SecureURL); err != nil {
		app.internalServerError(w, r, err)
	}
}
