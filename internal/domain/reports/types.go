package reports

import "time"

// DailyReport is the teacher's end-of-day note for one child.
type DailyReport struct {
	ID           int64     `json:"id"`
	ChildID      int64     `json:"child_id"`
	Date         time.Time `json:"date"`
	Mood         *string   `json:"mood"`
	FoodIntake   *string   `json:"food_intake"`
	SleepQuality *string   `json:"sleep_quality"`
	Activity     *string   `json:"activity"`
	TeacherNote  *string   `json:"teacher_note"`
	CreatedBy    *int64    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateReportRequest struct {
	ChildID      int64      `json:"child_id"`
	Date         *time.Time `json:"date"`
	Mood         *string    `json:"mood"`
	FoodIntake   *string    `json:"food_intake"`
	SleepQuality *string    `json:"sleep_quality"`
	Activity     *string    `json:"activity"`
	TeacherNote  *string    `json:"teacher_note"`
	CreatedBy    int64      `json:"-"`
}
