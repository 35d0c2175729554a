package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golbarg/internal/domain/reports"
	"golbarg/internal/notifications"
	"golbarg/internal/params"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

type CreateReportPayload struct {
	Date         *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Mood         *string `json:"mood" validate:"omitempty,oneof=happy calm tired upset"`
	FoodIntake   *string `json:"food_intake" validate:"omitempty,max=500"`
	SleepQuality *string `json:"sleep_quality" validate:"omitempty,max=500"`
	Activity     *string `json:"activity" validate:"omitempty,max=1000"`
	TeacherNote  *string `json:"teacher_note" validate:"omitempty,max=1000"`
}

// createReportHandler godoc
//
//	@Summary		Create a daily report
//	@Description	Creates a daily report for a child and pushes a notification to the parent
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			childID	path		int					true	"Child ID"
//	@Param			payload	body		CreateReportPayload	true	"Report fields"
//	@Success		201		{object}	reports.DailyReport
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/children/{childID}/reports [post]
func (app *application) createReportHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	childID, err := strconv.ParseInt(chi.URLParam(r, "childID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid child ID"))
		return
	}

	child, err := app.store.Children.GetByID(r.Context(), childID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	var payload CreateReportPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	report, err := app.store.Reports.Create(r.Context(), reports.CreateReportRequest{
		ChildID:      childID,
		Date:         parseDatePtr(payload.Date),
		Mood:         payload.Mood,
		FoodIntake:   payload.FoodIntake,
		SleepQuality: payload.SleepQuality,
		Activity:     payload.Activity,
		TeacherNote:  payload.TeacherNote,
		CreatedBy:    user.ID,
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Parent may have no registered device, that is not an error worth failing the request for.
	if err := notifications.SendDailyReportToParent(r.Context(), app.push, app.store, child.ParentID, childID, child.Name); err != nil {
		app.logger.Warnw("daily report push failed", "child_id", childID, "error", err)
	}

	if err := app.jsonResponse(w, http.StatusCreated, report); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listReportsHandler godoc
//
//	@Summary		List a child's daily reports
//	@Description	Returns the child's daily reports, newest first. Parents can only see their own children's reports.
//	@Tags			children
//	@Produce		json
//	@Param			childID	path		int	true	"Child ID"
//	@Param			page	query		int	false	"Page number"
//	@Param			limit	query		int	false	"Items per page"
//	@Success		200		{object}	map[string]any
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/children/{childID}/reports [get]
func (app *application) listReportsHandler(w http.ResponseWriter, r *http.Request) {
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

	pg := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.Reports.ListByChild(r.Context(), child.ID, pg.Limit, pg.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	pg.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"reports":    list,
		"pagination": pg,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteReportHandler godoc
//
//	@Summary		Delete a daily report
//	@Tags			admin
//	@Param			reportID	path	int	true	"Report ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/reports/{reportID} [delete]
func (app *application) deleteReportHandler(w http.ResponseWriter, r *http.Request) {
	reportID, err := strconv.ParseInt(chi.URLParam(r, "reportID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid report ID"))
		return
	}

	if err := app.store.Reports.Delete(r.Context(), reportID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
